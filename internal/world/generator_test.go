package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

func TestPerlinGenerator_Deterministic(t *testing.T) {
	g1 := NewPerlinGenerator()
	g2 := NewPerlinGenerator()

	for _, coord := range []vec.Vec3{vec.New(0, 4, 0), vec.New(-3, 3, 7), vec.New(5, 4, -2)} {
		a := g1.GenerateChunk(coord, 1234)
		b := g2.GenerateChunk(coord, 1234)
		assert.Equal(t, a.Entries(), b.Entries(), "генерация чанка %s должна быть детерминированной", coord)
	}
}

func TestPerlinGenerator_Column(t *testing.T) {
	g := NewPerlinGenerator()
	m := NewServerMap()

	var coords []vec.Vec3
	for cy := 0; cy < WorldHeight/vec.ChunkSize; cy++ {
		coords = append(coords, vec.New(0, cy, 0))
	}
	m.EnsureChunks(coords, g, 99)

	height := g.ColumnHeight(3, 5, 99)
	top := HeightAt(m, 3, 5)
	assert.GreaterOrEqual(t, top, height, "верх колонки не ниже поверхности")

	bottom, ok := m.Get(vec.New(3, 0, 5))
	require.True(t, ok)
	assert.Equal(t, block.BedrockBlockID, bottom.ID)

	_, ok = m.Get(vec.New(3, WorldHeight-1, 5))
	assert.False(t, ok, "верх мира пуст")
}

func TestPerlinGenerator_OutOfRangeChunksEmpty(t *testing.T) {
	g := NewPerlinGenerator()

	assert.Zero(t, g.GenerateChunk(vec.New(0, -1, 0), 1).Len())
	assert.Zero(t, g.GenerateChunk(vec.New(0, WorldHeight/vec.ChunkSize, 0), 1).Len())
}

func TestFlatGenerator(t *testing.T) {
	g := FlatGenerator{Height: 10, Surface: block.GrassBlockID, Fill: block.StoneBlockID}
	c := g.GenerateChunk(vec.New(-1, 0, 2), 0)

	assert.Equal(t, 16*16*11, c.Len())
	top, ok := c.GetLocal(vec.New(0, 10, 0))
	require.True(t, ok)
	assert.Equal(t, block.GrassBlockID, top.ID)

	_, ok = c.GetLocal(vec.New(0, 11, 0))
	assert.False(t, ok)

	assert.Zero(t, g.GenerateChunk(vec.New(0, -1, 0), 0).Len())
}
