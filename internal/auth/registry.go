package auth

import (
	"errors"
	"strings"
	"sync"
)

// ErrEmptyName имя игрока не задано
var ErrEmptyName = errors.New("пустое имя игрока")

// MaxNameLength ограничение длины имени
const MaxNameLength = 32

// PlayerRegistry потокобезопасное сопоставление имён игроков их ID.
// Имена регистронезависимы, ID выдаются по возрастанию начиная с 1.
type PlayerRegistry struct {
	mu     sync.RWMutex
	ids    map[string]uint64 // ключ = lowercase(name)
	names  map[uint64]string
	nextID uint64
}

// NewPlayerRegistry создаёт пустой реестр
func NewPlayerRegistry() *PlayerRegistry {
	return &PlayerRegistry{
		ids:    make(map[string]uint64),
		names:  make(map[uint64]string),
		nextID: 1,
	}
}

// Resolve возвращает ID игрока, регистрируя новое имя при первом обращении
func (r *PlayerRegistry) Resolve(name string) (uint64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, ErrEmptyName
	}
	if len(name) > MaxNameLength {
		name = name[:MaxNameLength]
	}
	key := normalize(name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.ids[key]; ok {
		return id, nil
	}
	id := r.nextID
	r.nextID++
	r.ids[key] = id
	r.names[id] = name
	return id, nil
}

// Name возвращает имя по ID
func (r *PlayerRegistry) Name(id uint64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.names[id]
	return name, ok
}

// Len количество известных игроков
func (r *PlayerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

func normalize(name string) string {
	return strings.ToLower(name)
}
