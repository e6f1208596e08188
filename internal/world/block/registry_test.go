package block

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultHitboxes(t *testing.T) {
	assert.Equal(t, HitboxNone, HitboxOf(AirBlockID).Kind)
	assert.Equal(t, HitboxNone, HitboxOf(FlowerBlockID).Kind)
	assert.Equal(t, HitboxFull, HitboxOf(StoneBlockID).Kind)
	assert.Equal(t, HitboxBox, HitboxOf(SlabBlockID).Kind)
}

func TestUnknownBlockIsSolid(t *testing.T) {
	assert.False(t, IsValidBlockID(BlockID(9999)))
	assert.Equal(t, HitboxFull, HitboxOf(BlockID(9999)).Kind, "неизвестный блок должен быть твёрдым")
	assert.Equal(t, "block#9999", BlockID(9999).String())
}

func TestHitboxWorldBox(t *testing.T) {
	origin := mgl64.Vec3{-3, 10, 5}

	box, ok := HitboxOf(SlabBlockID).WorldBox(origin)
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec3{-3, 10, 5}, box.Min)
	assert.Equal(t, mgl64.Vec3{-2, 10.5, 6}, box.Max)

	full, ok := FullHitbox().WorldBox(origin)
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec3{-2, 11, 6}, full.Max)

	_, ok = NoHitbox().WorldBox(origin)
	assert.False(t, ok)
}

func TestAllSortedByID(t *testing.T) {
	all := All()
	require.NotEmpty(t, all)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].ID, all[i].ID)
	}
}

func TestBlockComparable(t *testing.T) {
	a := Block{ID: StoneBlockID, Direction: East}
	b := Block{ID: StoneBlockID, Direction: East}

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, New(StoneBlockID))
}
