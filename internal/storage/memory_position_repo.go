package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryPositionRepo реализует PositionRepo в памяти.
// Используется как fallback, когда Redis и MariaDB не настроены.
// ВНИМАНИЕ: Данные теряются при перезапуске сервера!
type MemoryPositionRepo struct {
	mu   sync.RWMutex
	data map[uint64]PlayerState
}

// NewMemoryPositionRepo создает новый репозиторий в памяти
func NewMemoryPositionRepo() *MemoryPositionRepo {
	return &MemoryPositionRepo{
		data: make(map[uint64]PlayerState),
	}
}

// Save сохраняет состояние игрока в памяти
func (r *MemoryPositionRepo) Save(ctx context.Context, playerID uint64, st PlayerState) error {
	if err := validateState(playerID, st); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[playerID] = st
	return nil
}

// Load загружает состояние игрока из памяти
func (r *MemoryPositionRepo) Load(ctx context.Context, playerID uint64) (PlayerState, bool, error) {
	if playerID == 0 {
		return PlayerState{}, false, ErrInvalidPlayerID
	}
	if err := ctx.Err(); err != nil {
		return PlayerState{}, false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.data[playerID]
	return st, ok, nil
}

// Delete удаляет состояние игрока
func (r *MemoryPositionRepo) Delete(ctx context.Context, playerID uint64) error {
	if playerID == 0 {
		return ErrInvalidPlayerID
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[playerID]; !ok {
		return fmt.Errorf("игрок %d: %w", playerID, ErrNotFound)
	}
	delete(r.data, playerID)
	return nil
}

// BatchSave сохраняет несколько записей. При ошибке валидации ничего не пишется.
func (r *MemoryPositionRepo) BatchSave(ctx context.Context, states map[uint64]PlayerState) error {
	if len(states) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for id, st := range states {
		if err := validateState(id, st); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, st := range states {
		r.data[id] = st
	}
	return nil
}

// Count возвращает количество записей
func (r *MemoryPositionRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}
