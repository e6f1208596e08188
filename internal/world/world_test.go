package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

func fixedClock(ts uint64) func() uint64 {
	return func() uint64 { return ts }
}

func TestServerMap_SetGetRemove(t *testing.T) {
	m := NewServerMapWithClock(fixedClock(1000))

	positions := []vec.Vec3{
		vec.New(0, 0, 0),
		vec.New(-1, -1, -1),
		vec.New(17, 64, -33),
		vec.New(-16, 255, 15),
	}

	for i, p := range positions {
		b := block.Block{ID: block.StoneBlockID, Direction: block.Direction(i % 4)}
		m.Set(p, b)

		got, ok := m.Get(p)
		require.True(t, ok, "блок должен существовать после Set в %s", p)
		assert.Equal(t, b, got, "Get должен вернуть записанный блок в %s", p)

		prev, ok := m.Remove(p)
		require.True(t, ok, "Remove должен вернуть прежний блок в %s", p)
		assert.Equal(t, b, prev)

		_, ok = m.Get(p)
		assert.False(t, ok, "после Remove блока быть не должно в %s", p)
	}
}

func TestServerMap_SetCreatesChunkAndMarksDirty(t *testing.T) {
	m := NewServerMapWithClock(fixedClock(42))
	p := vec.New(-1, 5, 20)

	assert.False(t, m.HasChunk(p.ToChunkCoords()))
	m.Set(p, block.New(block.DirtBlockID))
	require.True(t, m.HasChunk(vec.New(-1, 0, 1)), "Set должен создать чанк")

	c, ok := m.Chunk(vec.New(-1, 0, 1))
	require.True(t, ok)
	assert.Equal(t, uint64(42), c.Timestamp, "метка времени чанка обновляется при изменении")

	assert.Equal(t, []vec.Vec3{vec.New(-1, 0, 1)}, m.DrainUpdates())
	assert.Empty(t, m.DrainUpdates(), "очередь пустеет после Drain")
}

func TestServerMap_RemoveMissingIsNoop(t *testing.T) {
	m := NewServerMap()

	_, ok := m.Remove(vec.New(100, 100, 100))
	assert.False(t, ok, "удаление из отсутствующего чанка не ошибка")

	m.Set(vec.New(0, 0, 0), block.New(block.StoneBlockID))
	m.DrainUpdates()

	_, ok = m.Remove(vec.New(1, 1, 1))
	assert.False(t, ok)
	assert.Zero(t, m.PendingUpdates(), "удаление пустой позиции не помечает чанк")
}

func TestServerMap_GetMut(t *testing.T) {
	m := NewServerMap()
	p := vec.New(3, 3, 3)

	assert.Nil(t, m.GetMut(p))

	m.Set(p, block.New(block.LogBlockID))
	ptr := m.GetMut(p)
	require.NotNil(t, ptr)
	ptr.BreakingProgress = 5

	got, _ := m.Get(p)
	assert.Equal(t, uint8(5), got.BreakingProgress, "изменение через GetMut видно в хранилище")
}

func TestServerMap_ChangeResetsSentTo(t *testing.T) {
	m := NewServerMap()
	p := vec.New(1, 1, 1)
	m.Set(p, block.New(block.StoneBlockID))

	c, _ := m.Chunk(vec.New(0, 0, 0))
	c.MarkSent(5)
	m.Set(p, block.New(block.DirtBlockID))
	assert.False(t, c.WasSentTo(5), "изменённый чанк нужно разослать повторно")
}

func TestServerMap_EnsureChunks(t *testing.T) {
	m := NewServerMap()
	calls := 0
	gen := GeneratorFunc(func(coord vec.Vec3, seed int64) *Chunk {
		calls++
		c := NewChunk(coord)
		c.SetLocal(vec.New(0, 0, 0), block.New(block.StoneBlockID))
		return c
	})

	coords := []vec.Vec3{vec.New(0, 0, 0), vec.New(1, 0, 0)}
	generated := m.EnsureChunks(coords, gen, 1)
	assert.Equal(t, coords, generated)
	assert.Equal(t, 2, calls)

	generated = m.EnsureChunks(coords, gen, 1)
	assert.Empty(t, generated, "существующие чанки не генерируются повторно")
	assert.Equal(t, 2, calls)

	_, ok := m.Get(vec.New(16, 0, 0))
	assert.True(t, ok)
	assert.Zero(t, m.PendingUpdates(), "генерация не считается изменением")
}

func TestClientMap_MarksRemesh(t *testing.T) {
	m := NewClientMap()
	p := vec.New(-5, 2, 7)

	m.Set(p, block.New(block.SandBlockID))
	c, ok := m.Chunk(p.ToChunkCoords())
	require.True(t, ok)
	assert.True(t, c.NeedsRemesh)

	m.MarkMeshed(c.Coords, 99)
	assert.False(t, c.NeedsRemesh)
	assert.Equal(t, uint64(99), c.Timestamp)

	m.MarkBlockForUpdate(p)
	assert.True(t, c.NeedsRemesh)
	assert.Equal(t, []vec.Vec3{c.Coords}, m.DrainUpdates())
}

func TestClientMap_ApplyChunk(t *testing.T) {
	m := NewClientMap()
	c := NewChunk(vec.New(2, 0, 2))
	c.SetLocal(vec.New(0, 0, 0), block.New(block.GrassBlockID))

	m.ApplyChunk(c)
	got, ok := m.Get(vec.New(32, 0, 32))
	require.True(t, ok)
	assert.Equal(t, block.GrassBlockID, got.ID)
	assert.Equal(t, 1, m.ChunkCount())
	assert.Equal(t, []vec.Vec3{vec.New(2, 0, 2)}, m.DrainUpdates())
}

func BenchmarkServerMap_Get(b *testing.B) {
	m := NewServerMap()
	for x := 0; x < 32; x++ {
		for z := 0; z < 32; z++ {
			m.Set(vec.New(x, 10, z), block.New(block.StoneBlockID))
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Get(vec.New(i%32, 10, (i/32)%32))
	}
}
