package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActionSet(t *testing.T) {
	s := NewActionSet(MoveForward, ToggleFlyMode)

	assert.True(t, s.Has(MoveForward))
	assert.True(t, s.Has(ToggleFlyMode))
	assert.False(t, s.Has(MoveLeft))
	assert.Equal(t, []Action{MoveForward, ToggleFlyMode}, s.Actions())
	assert.Equal(t, "{MoveForward,ToggleFlyMode}", s.String())

	s = s.Without(MoveForward)
	assert.False(t, s.Has(MoveForward))
	assert.True(t, s.Valid())
	assert.False(t, ActionSet(0xffff).Valid(), "неизвестные биты")
}

func TestParseAction(t *testing.T) {
	a, ok := ParseAction("jumporflyup")
	assert.True(t, ok)
	assert.Equal(t, JumpOrFlyUp, a)

	a, ok = ParseAction("PlaceBlock")
	assert.True(t, ok)
	assert.Equal(t, PlaceBlock, a)

	_, ok = ParseAction("dance")
	assert.False(t, ok)
}

func TestFrameInputResetKeepsCamera(t *testing.T) {
	in := NewFrameInput(10, 16)
	in.Press(MoveLeft)
	in.HotbarSlot = 3
	cam := in.Camera

	in.Reset(26, 16)
	assert.Equal(t, uint64(26), in.TimeMs)
	assert.Zero(t, in.Actions)
	assert.Equal(t, cam, in.Camera)
	assert.Equal(t, uint8(3), in.HotbarSlot)
}

func TestFrameInputDeltaClamped(t *testing.T) {
	in := NewFrameInput(0, 50)
	assert.InDelta(t, 0.05, in.Delta(), 1e-12)

	in.DeltaMs = 10_000
	assert.InDelta(t, float64(MaxFrameDeltaMs)/1000, in.Delta(), 1e-12)
}

func TestPlayerCloneIndependent(t *testing.T) {
	p := New(1, "a", [3]float64{1, 2, 3})
	p.Inventory[1] = ItemStack{ItemID: 2, Count: 3}

	c := p.Clone()
	c.Inventory[1] = ItemStack{ItemID: 9, Count: 9}
	c.Position[0] = 100

	assert.Equal(t, uint32(2), p.Inventory[1].ItemID)
	assert.Equal(t, 1.0, p.Position[0])
	assert.False(t, p.Equal(c))
}

func TestHitboxAt(t *testing.T) {
	box := HitboxAt([3]float64{0, 10, 0})

	assert.InDelta(t, -Width/2, box.Min[0], 1e-12)
	assert.Equal(t, 10.0, box.Min[1])
	assert.InDelta(t, 10+Height, box.Max[1], 1e-12)
}
