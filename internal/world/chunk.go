package world

import (
	"sort"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// Chunk представляет кубический участок мира 16x16x16 блоков.
// Хранит только занятые позиции: отсутствие записи означает воздух.
type Chunk struct {
	Coords vec.Vec3 // Координаты чанка в мире

	// Blocks локальное смещение -> данные блока
	Blocks map[vec.Vec3]*block.Block

	// Timestamp время последнего изменения (мс). На клиенте время последней сборки меша.
	Timestamp uint64

	// NeedsRemesh выставляется на клиенте, когда меш чанка устарел
	NeedsRemesh bool

	// SentTo игроки, которым сервер уже отправил этот чанк
	SentTo map[uint64]struct{}
}

// NewChunk создаёт пустой чанк с указанными координатами
func NewChunk(coords vec.Vec3) *Chunk {
	return &Chunk{
		Coords: coords,
		Blocks: make(map[vec.Vec3]*block.Block),
		SentTo: make(map[uint64]struct{}),
	}
}

// GetLocal возвращает блок по локальному смещению
func (c *Chunk) GetLocal(local vec.Vec3) (block.Block, bool) {
	b, ok := c.Blocks[local]
	if !ok {
		return block.Block{}, false
	}
	return *b, true
}

// SetLocal записывает блок по локальному смещению без пометки изменений.
// Используется генератором и при загрузке из хранилища.
func (c *Chunk) SetLocal(local vec.Vec3, b block.Block) {
	stored := b
	c.Blocks[local] = &stored
}

// Len возвращает количество занятых позиций
func (c *Chunk) Len() int {
	return len(c.Blocks)
}

// MarkSent отмечает, что чанк отправлен игроку
func (c *Chunk) MarkSent(playerID uint64) {
	if c.SentTo == nil {
		c.SentTo = make(map[uint64]struct{})
	}
	c.SentTo[playerID] = struct{}{}
}

// WasSentTo проверяет, получал ли игрок этот чанк
func (c *Chunk) WasSentTo(playerID uint64) bool {
	_, ok := c.SentTo[playerID]
	return ok
}

// ForgetPlayer удаляет игрока из списка получателей (при отключении)
func (c *Chunk) ForgetPlayer(playerID uint64) {
	delete(c.SentTo, playerID)
}

// ResetSent сбрасывает список получателей, чтобы изменённый чанк разослали заново
func (c *Chunk) ResetSent() {
	c.SentTo = make(map[uint64]struct{})
}

// LocalEntry пара смещение/блок для детерминированного обхода
type LocalEntry struct {
	Local vec.Vec3
	Block block.Block
}

// Entries возвращает содержимое чанка, отсортированное по (y, z, x).
// Порядок стабилен, поэтому сериализация чанка воспроизводима.
func (c *Chunk) Entries() []LocalEntry {
	out := make([]LocalEntry, 0, len(c.Blocks))
	for local, b := range c.Blocks {
		out = append(out, LocalEntry{Local: local, Block: *b})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Local, out[j].Local
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		return a.X < b.X
	})
	return out
}

// Clone возвращает глубокую копию чанка без списка получателей
func (c *Chunk) Clone() *Chunk {
	out := NewChunk(c.Coords)
	out.Timestamp = c.Timestamp
	for local, b := range c.Blocks {
		out.SetLocal(local, *b)
	}
	return out
}
