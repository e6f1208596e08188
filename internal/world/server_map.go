package world

import (
	"time"

	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/vec"
)

// ServerMap авторитетная карта чанков сервера
type ServerMap struct {
	chunkMap
	now func() uint64
}

// NewServerMap создаёт пустую серверную карту
func NewServerMap() *ServerMap {
	return NewServerMapWithClock(func() uint64 { return uint64(time.Now().UnixMilli()) })
}

// NewServerMapWithClock создаёт карту с заданным источником времени для меток чанков
func NewServerMapWithClock(now func() uint64) *ServerMap {
	m := &ServerMap{now: now}
	m.chunkMap = newChunkMap(func(c *Chunk) {
		c.Timestamp = m.now()
		c.ResetSent()
	})
	return m
}

// EnsureChunks генерирует и вставляет все отсутствующие чанки из списка.
// Возвращает координаты сгенерированных чанков в порядке списка.
func (m *ServerMap) EnsureChunks(coords []vec.Vec3, gen Generator, seed int64) []vec.Vec3 {
	var generated []vec.Vec3
	log := logging.GetWorldLogger()
	for _, coord := range coords {
		if m.HasChunk(coord) {
			continue
		}
		chunk := gen.GenerateChunk(coord, seed)
		if chunk == nil {
			chunk = NewChunk(coord)
		}
		chunk.Coords = coord
		chunk.Timestamp = m.now()
		m.InsertChunk(chunk)
		generated = append(generated, coord)
		log.Trace("Сгенерирован чанк %s (%d блоков)", coord, chunk.Len())
	}
	if len(generated) > 0 {
		log.Debug("Сгенерировано чанков: %d, всего загружено %d", len(generated), m.ChunkCount())
	}
	return generated
}

// ForgetPlayer удаляет игрока из списков получателей всех чанков
func (m *ServerMap) ForgetPlayer(playerID uint64) {
	for _, c := range m.chunks {
		c.ForgetPlayer(playerID)
	}
}

var _ Store = (*ServerMap)(nil)
