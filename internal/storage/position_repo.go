package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrInvalidPlayerID нулевой ID игрока не допускается
var ErrInvalidPlayerID = errors.New("недействительный ID игрока")

// ErrNotFound запись отсутствует в хранилище
var ErrNotFound = errors.New("запись не найдена")

// PlayerState сохраняемое между сессиями состояние игрока
type PlayerState struct {
	Position  mgl64.Vec3 `json:"position"`
	IsFlying  bool       `json:"is_flying"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// PositionRepo определяет интерфейс для сохранения и загрузки состояния игроков.
// Записи привязаны к постоянному ID игрока, поэтому переживают переподключение.
type PositionRepo interface {
	// Save сохраняет состояние игрока
	Save(ctx context.Context, playerID uint64, st PlayerState) error

	// Load загружает состояние. false означает первый вход.
	Load(ctx context.Context, playerID uint64) (PlayerState, bool, error)

	// Delete удаляет запись. Отсутствующая запись даёт ErrNotFound.
	Delete(ctx context.Context, playerID uint64) error

	// BatchSave сохраняет состояние нескольких игроков (автосохранение)
	BatchSave(ctx context.Context, states map[uint64]PlayerState) error
}

func validateState(playerID uint64, st PlayerState) error {
	if playerID == 0 {
		return ErrInvalidPlayerID
	}
	for i := 0; i < 3; i++ {
		v := st.Position[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("некорректная позиция игрока %d: %v", playerID, st.Position)
		}
	}
	return nil
}
