package world

import "github.com/annel0/blockverse/internal/vec"

// ClientMap локальная копия мира на клиенте, используемая для предсказания движения.
// Изменения помечают меш чанка устаревшим и ставят чанк в очередь рендера.
type ClientMap struct {
	chunkMap
}

// NewClientMap создаёт пустую клиентскую карту
func NewClientMap() *ClientMap {
	return &ClientMap{
		chunkMap: newChunkMap(func(c *Chunk) { c.NeedsRemesh = true }),
	}
}

// ApplyChunk заменяет чанк данными от сервера и ставит его на перестроение
func (m *ClientMap) ApplyChunk(c *Chunk) {
	c.NeedsRemesh = true
	m.InsertChunk(c)
	m.updates.Push(c.Coords)
}

// MarkMeshed отмечает, что меш чанка перестроен в момент ts
func (m *ClientMap) MarkMeshed(coord vec.Vec3, ts uint64) {
	if c, ok := m.chunks[coord]; ok {
		c.NeedsRemesh = false
		c.Timestamp = ts
	}
}

var _ Store = (*ClientMap)(nil)
