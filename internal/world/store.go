package world

import (
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// Store минимальный контракт воксельного хранилища.
// Клиентская и серверная карты реализуют его одинаково, поэтому симуляция
// движения работает с любой из них.
type Store interface {
	// Get возвращает блок по глобальной координате; false означает воздух
	Get(pos vec.Vec3) (block.Block, bool)
	// GetMut возвращает изменяемый блок или nil. Изменения через указатель не помечают чанк.
	GetMut(pos vec.Vec3) *block.Block
	// Set вставляет или заменяет блок, создавая чанк при необходимости
	Set(pos vec.Vec3, b block.Block)
	// Remove удаляет блок и возвращает прежнее значение
	Remove(pos vec.Vec3) (block.Block, bool)
	// HasChunk сообщает, загружен ли чанк с указанными координатами
	HasChunk(coord vec.Vec3) bool
	// MarkBlockForUpdate ставит чанк блока в очередь обновлений
	MarkBlockForUpdate(pos vec.Vec3)
}

// chunkMap общая часть клиентской и серверной карт
type chunkMap struct {
	chunks  map[vec.Vec3]*Chunk
	updates UpdateQueue
	// touch вызывается для чанка при каждом изменении
	touch func(c *Chunk)
}

func newChunkMap(touch func(c *Chunk)) chunkMap {
	return chunkMap{
		chunks: make(map[vec.Vec3]*Chunk),
		touch:  touch,
	}
}

// Get возвращает блок по глобальной координате
func (m *chunkMap) Get(pos vec.Vec3) (block.Block, bool) {
	chunk, ok := m.chunks[pos.ToChunkCoords()]
	if !ok {
		return block.Block{}, false
	}
	return chunk.GetLocal(pos.LocalInChunk())
}

// GetMut возвращает указатель на хранимый блок или nil
func (m *chunkMap) GetMut(pos vec.Vec3) *block.Block {
	chunk, ok := m.chunks[pos.ToChunkCoords()]
	if !ok {
		return nil
	}
	return chunk.Blocks[pos.LocalInChunk()]
}

// Set вставляет или заменяет блок
func (m *chunkMap) Set(pos vec.Vec3, b block.Block) {
	coord := pos.ToChunkCoords()
	chunk, ok := m.chunks[coord]
	if !ok {
		chunk = NewChunk(coord)
		m.chunks[coord] = chunk
	}
	chunk.SetLocal(pos.LocalInChunk(), b)
	m.markChunk(chunk)
}

// Remove удаляет блок. Отсутствующий чанк или блок не является ошибкой.
func (m *chunkMap) Remove(pos vec.Vec3) (block.Block, bool) {
	chunk, ok := m.chunks[pos.ToChunkCoords()]
	if !ok {
		return block.Block{}, false
	}

	local := pos.LocalInChunk()
	prev, ok := chunk.Blocks[local]
	if !ok {
		return block.Block{}, false
	}
	delete(chunk.Blocks, local)
	m.markChunk(chunk)
	return *prev, true
}

// HasChunk сообщает, загружен ли чанк
func (m *chunkMap) HasChunk(coord vec.Vec3) bool {
	_, ok := m.chunks[coord]
	return ok
}

// MarkBlockForUpdate ставит чанк блока в очередь, если чанк загружен
func (m *chunkMap) MarkBlockForUpdate(pos vec.Vec3) {
	if chunk, ok := m.chunks[pos.ToChunkCoords()]; ok {
		m.markChunk(chunk)
	}
}

// Chunk возвращает чанк по координатам
func (m *chunkMap) Chunk(coord vec.Vec3) (*Chunk, bool) {
	c, ok := m.chunks[coord]
	return c, ok
}

// InsertChunk добавляет или заменяет чанк целиком без пометки изменений
func (m *chunkMap) InsertChunk(c *Chunk) {
	m.chunks[c.Coords] = c
}

// RemoveChunk выгружает чанк
func (m *chunkMap) RemoveChunk(coord vec.Vec3) {
	delete(m.chunks, coord)
}

// ChunkCount возвращает количество загруженных чанков
func (m *chunkMap) ChunkCount() int {
	return len(m.chunks)
}

// ChunkCoords возвращает координаты всех загруженных чанков
func (m *chunkMap) ChunkCoords() []vec.Vec3 {
	out := make([]vec.Vec3, 0, len(m.chunks))
	for c := range m.chunks {
		out = append(out, c)
	}
	return out
}

// DrainUpdates забирает очередь изменённых чанков
func (m *chunkMap) DrainUpdates() []vec.Vec3 {
	return m.updates.Drain()
}

// PendingUpdates возвращает размер очереди изменений
func (m *chunkMap) PendingUpdates() int {
	return m.updates.Len()
}

func (m *chunkMap) markChunk(c *Chunk) {
	if m.touch != nil {
		m.touch(c)
	}
	m.updates.Push(c.Coords)
}
