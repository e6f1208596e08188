package client

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockverse/internal/player"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
)

// fakeClock часы, управляемые тестом
type fakeClock struct {
	now uint64
}

func (c *fakeClock) read() uint64 { return c.now }

func TestSyncTime_Monotonic(t *testing.T) {
	clk := &fakeClock{now: 1000}
	st := NewSyncTime(clk.read)

	clk.now = 1016
	st.Advance()
	assert.Equal(t, uint64(1016), st.CurrTimeMs())
	assert.Equal(t, uint64(16), st.Delta())

	clk.now = 900
	st.Advance()
	assert.Equal(t, uint64(1016), st.CurrTimeMs(), "время не идёт назад")
	assert.Equal(t, uint64(0), st.Delta())
}

func TestSynchronizer_OneRecordPerStep(t *testing.T) {
	clk := &fakeClock{now: 0}
	s := NewSynchronizer(clk.read)

	clk.now = 16
	s.Step()
	s.Current().Press(player.MoveForward)

	clk.now = 40
	s.Step()
	s.Current().Press(player.MoveLeft)

	clk.now = 50
	s.Step()

	records := s.Flush()
	require.Len(t, records, 3, "по одной записи на шаг")

	assert.Equal(t, uint64(0), records[0].DeltaMs, "первый кадр до старта пустой")
	assert.Equal(t, uint64(16), records[1].TimeMs)
	assert.Equal(t, uint64(16), records[1].DeltaMs)
	assert.True(t, records[1].IsPressed(player.MoveForward))
	assert.Equal(t, uint64(40), records[2].TimeMs)
	assert.Equal(t, uint64(24), records[2].DeltaMs, "дельта отражает реальное время между шагами")
	assert.True(t, records[2].IsPressed(player.MoveLeft))
	assert.False(t, records[2].IsPressed(player.MoveForward), "действия не переносятся между кадрами")

	assert.Nil(t, s.Flush())
	assert.Equal(t, uint64(50), s.Current().TimeMs)
}

func TestTickInputsBuffer_PruneAcked(t *testing.T) {
	b := NewTickInputsBuffer(0)
	for ts := uint64(10); ts <= 50; ts += 10 {
		b.Push(player.NewFrameInput(ts, 10))
	}
	require.Len(t, b.Flush(), 5)
	assert.Equal(t, 5, b.Pending())

	acked, ok := b.PruneAcked(30)
	require.True(t, ok)
	assert.Equal(t, uint64(30), acked.TimeMs)
	assert.Equal(t, 2, b.Pending())

	_, ok = b.PruneAcked(35)
	assert.False(t, ok)
	assert.Equal(t, 2, b.Pending(), "кадр 40 ещё не подтверждён")
}

func TestTickInputsBuffer_DropsOldest(t *testing.T) {
	b := NewTickInputsBuffer(3)
	for ts := uint64(1); ts <= 5; ts++ {
		b.Push(player.NewFrameInput(ts, 1))
	}
	b.Flush()

	assert.Equal(t, 3, b.Pending())
	assert.Equal(t, uint64(2), b.Dropped())
	_, ok := b.PruneAcked(3)
	assert.True(t, ok)
	assert.Equal(t, 2, b.Pending())
}

func readyClientWorld() *world.ClientMap {
	m := world.NewClientMap()
	gen := world.FlatGenerator{Height: 10, Surface: block.GrassBlockID, Fill: block.StoneBlockID}
	for x := -1; x <= 1; x++ {
		for y := -1; y <= 1; y++ {
			for z := -1; z <= 1; z++ {
				m.InsertChunk(gen.GenerateChunk(vec.New(x, y, z), 0))
			}
		}
	}
	return m
}

func TestPredictor_FrameRecordsPrediction(t *testing.T) {
	clk := &fakeClock{now: 0}
	sync := NewSynchronizer(clk.read)
	p := player.New(1, "me", mgl64.Vec3{0.5, 11, 0.5})
	p.IsFlying = true
	pred := NewPredictor(p, readyClientWorld(), sync)

	sync.Step()
	assert.False(t, pred.Frame(player.NewActionSet(player.MoveForward), mgl64.QuatIdent()), "нулевая дельта пропускается")

	clk.now = 50
	sync.Step()
	require.True(t, pred.Frame(player.NewActionSet(player.MoveForward), mgl64.QuatIdent()))
	assert.InDelta(t, -0.5, p.Position[2], 1e-9)
	assert.Equal(t, p.Position, sync.Current().Position)
}

func TestPredictor_CorrectsByAckedError(t *testing.T) {
	clk := &fakeClock{now: 0}
	sync := NewSynchronizer(clk.read)
	p := player.New(1, "me", mgl64.Vec3{0.5, 11, 0.5})
	p.IsFlying = true
	pred := NewPredictor(p, readyClientWorld(), sync)

	for i := 1; i <= 3; i++ {
		clk.now = uint64(i * 50)
		sync.Step()
		pred.Frame(player.NewActionSet(player.MoveForward), mgl64.QuatIdent())
	}
	clk.now = 200
	sync.Step()
	frames := sync.Flush()
	require.Len(t, frames, 4)

	predictedAt100 := frames[2].Position
	local := p.Position

	// Сервер подтвердил кадр 100, но видит игрока на 0.25 блока выше
	server := player.Snapshot{ID: 1, Position: predictedAt100.Add(mgl64.Vec3{0, 0.25, 0}), LastAckTimeMs: 100}
	pred.ApplyServerUpdate(server)

	assert.InDelta(t, local[1]+0.25, p.Position[1], 1e-9, "ошибка переносится на текущую позицию")
	assert.Equal(t, uint64(1), pred.Corrections())
	assert.Equal(t, 1, sync.Buffer().Pending(), "подтверждённые кадры удалены")

	// Совпадающий снимок коррекции не вызывает
	pred.ApplyServerUpdate(player.Snapshot{ID: 1, Position: frames[3].Position.Add(mgl64.Vec3{0, 0.25, 0}), LastAckTimeMs: 150})
	assert.Equal(t, uint64(1), pred.Corrections())
}

func TestPredictor_SnapsWhenAckUnknown(t *testing.T) {
	sync := NewSynchronizer((&fakeClock{}).read)
	p := player.New(1, "me", mgl64.Vec3{0.5, 11, 0.5})
	pred := NewPredictor(p, readyClientWorld(), sync)

	pred.ApplyServerUpdate(player.Snapshot{ID: 1, Position: mgl64.Vec3{0.5, 11.5, 0.5}, LastAckTimeMs: 999})
	assert.Equal(t, 11.0, p.Position[1], "малое расхождение без подтверждённого кадра игнорируется")

	pred.ApplyServerUpdate(player.Snapshot{ID: 1, Position: mgl64.Vec3{40, 70, 40}, LastAckTimeMs: 1000})
	assert.Equal(t, mgl64.Vec3{40, 70, 40}, p.Position)
	assert.Equal(t, uint64(1000), p.LastInputProcessed)
}

func TestPredictor_TracksOthers(t *testing.T) {
	sync := NewSynchronizer((&fakeClock{}).read)
	pred := NewPredictor(player.New(1, "me", mgl64.Vec3{}), world.NewClientMap(), sync)

	pred.ApplyServerUpdate(player.Snapshot{ID: 2, Position: mgl64.Vec3{1, 2, 3}})
	require.Contains(t, pred.Others, uint64(2))
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, pred.Others[2].Position)

	pred.RemoveOther(2)
	assert.NotContains(t, pred.Others, uint64(2))
}
