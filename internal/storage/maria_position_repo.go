package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

// MariaPositionRepo реализует PositionRepo для MariaDB/MySQL.
// Использует таблицу player_states.
type MariaPositionRepo struct {
	db *sql.DB
}

const upsertStateQuery = `
	INSERT INTO player_states (player_id, x, y, z, flying)
	VALUES (?, ?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
		x = VALUES(x),
		y = VALUES(y),
		z = VALUES(z),
		flying = VALUES(flying),
		updated_at = CURRENT_TIMESTAMP
`

// NewMariaPositionRepo подключается к базе и создаёт таблицу при необходимости.
//
// Параметры:
//
//	dsn - строка подключения (user:pass@tcp(host:port)/dbname?parseTime=true)
func NewMariaPositionRepo(ctx context.Context, dsn string) (*MariaPositionRepo, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с MariaDB: %w", err)
	}

	repo := &MariaPositionRepo{db: db}
	if err := repo.createTable(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *MariaPositionRepo) createTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS player_states (
			player_id  BIGINT UNSIGNED PRIMARY KEY,
			x          DOUBLE     NOT NULL,
			y          DOUBLE     NOT NULL,
			z          DOUBLE     NOT NULL,
			flying     TINYINT(1) NOT NULL DEFAULT 0,
			updated_at TIMESTAMP  DEFAULT CURRENT_TIMESTAMP
			           ON UPDATE  CURRENT_TIMESTAMP,
			INDEX idx_updated_at (updated_at)
		) ENGINE=InnoDB
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ошибка создания таблицы player_states: %w", err)
	}
	return nil
}

// Save сохраняет состояние игрока
func (r *MariaPositionRepo) Save(ctx context.Context, playerID uint64, st PlayerState) error {
	if err := validateState(playerID, st); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, upsertStateQuery,
		playerID, st.Position[0], st.Position[1], st.Position[2], st.IsFlying)
	if err != nil {
		return fmt.Errorf("ошибка сохранения состояния игрока %d: %w", playerID, err)
	}
	return nil
}

// Load загружает состояние игрока
func (r *MariaPositionRepo) Load(ctx context.Context, playerID uint64) (PlayerState, bool, error) {
	if playerID == 0 {
		return PlayerState{}, false, ErrInvalidPlayerID
	}

	var st PlayerState
	err := r.db.QueryRowContext(ctx,
		`SELECT x, y, z, flying, updated_at FROM player_states WHERE player_id = ?`, playerID,
	).Scan(&st.Position[0], &st.Position[1], &st.Position[2], &st.IsFlying, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return PlayerState{}, false, nil
	}
	if err != nil {
		return PlayerState{}, false, fmt.Errorf("ошибка загрузки состояния игрока %d: %w", playerID, err)
	}
	return st, true, nil
}

// Delete удаляет состояние игрока
func (r *MariaPositionRepo) Delete(ctx context.Context, playerID uint64) error {
	if playerID == 0 {
		return ErrInvalidPlayerID
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM player_states WHERE player_id = ?`, playerID)
	if err != nil {
		return fmt.Errorf("ошибка удаления состояния игрока %d: %w", playerID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения количества затронутых строк: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("игрок %d: %w", playerID, ErrNotFound)
	}
	return nil
}

// BatchSave сохраняет состояния в одной транзакции
func (r *MariaPositionRepo) BatchSave(ctx context.Context, states map[uint64]PlayerState) error {
	if len(states) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertStateQuery)
	if err != nil {
		return fmt.Errorf("ошибка подготовки запроса: %w", err)
	}
	defer stmt.Close()

	for id, st := range states {
		if err := validateState(id, st); err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, id, st.Position[0], st.Position[1], st.Position[2], st.IsFlying); err != nil {
			return fmt.Errorf("ошибка сохранения игрока %d в batch: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

// Close закрывает соединение с базой данных
func (r *MariaPositionRepo) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
