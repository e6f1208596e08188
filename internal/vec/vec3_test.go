package vec

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func TestChunkCoordAndLocalOffset(t *testing.T) {
	cases := []struct {
		v      int
		chunk  int
		offset int
	}{
		{0, 0, 0},
		{15, 0, 15},
		{16, 1, 0},
		{-1, -1, 15},
		{-16, -1, 0},
		{-17, -2, 15},
		{33, 2, 1},
	}

	for _, c := range cases {
		assert.Equal(t, c.chunk, ChunkCoord(c.v), "чанк для %d", c.v)
		assert.Equal(t, c.offset, LocalOffset(c.v), "смещение для %d", c.v)
	}
}

func TestChunkRecomposition(t *testing.T) {
	for v := -100; v <= 100; v++ {
		off := LocalOffset(v)
		assert.True(t, off >= 0 && off < ChunkSize, "смещение вне диапазона для %d", v)
		assert.Equal(t, v, ChunkCoord(v)*ChunkSize+off, "восстановление координаты %d", v)
	}
}

func TestVec3ChunkHelpers(t *testing.T) {
	p := New(-1, 17, -33)

	assert.Equal(t, New(-1, 1, -3), p.ToChunkCoords())
	assert.Equal(t, New(15, 1, 15), p.LocalInChunk())
	assert.Equal(t, New(-16, 16, -48), p.ToChunkCoords().ChunkOrigin())
}

func TestFromFloatAndTruncate(t *testing.T) {
	p := mgl64.Vec3{-0.5, 1.9, 2.0}

	assert.Equal(t, New(-1, 1, 2), FromFloat(p))
	assert.Equal(t, New(0, 1, 2), Truncate(p))
}
