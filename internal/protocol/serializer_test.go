package protocol

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/annel0/blockverse/internal/player"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
)

func roundTrip(t *testing.T, msg Message) Message {
	t.Helper()
	ms := NewMessageSerializer()
	data, err := ms.SerializeMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, msg.Type(), PeekType(data))
	out, err := ms.DeserializeMessage(data)
	require.NoError(t, err)
	return out
}

func TestSerializer_InputBatch(t *testing.T) {
	in := player.NewFrameInput(1000, 16)
	in.Press(player.MoveForward)
	in.Press(player.JumpOrFlyUp)
	in.Camera = mgl64.QuatRotate(0.7, mgl64.Vec3{0, 1, 0})
	in.HotbarSlot = 3
	in.ViewMode = player.ThirdPerson
	in.Position = mgl64.Vec3{1.5, 11, -3.25}

	second := player.NewFrameInput(1016, 16)

	place := player.NewFrameInput(1032, 16)
	place.Press(player.PlaceBlock)
	place.Target = vec.New(-3, 70, 12)
	place.PlaceID = block.SandBlockID

	out := roundTrip(t, &InputBatch{Inputs: []player.FrameInput{in, second, place}})
	batch, ok := out.(*InputBatch)
	require.True(t, ok)
	require.Len(t, batch.Inputs, 3)
	assert.Equal(t, in, batch.Inputs[0])
	assert.Equal(t, second, batch.Inputs[1])
	assert.Equal(t, place, batch.Inputs[2])
}

func TestSerializer_PlayerUpdate(t *testing.T) {
	snap := player.Snapshot{
		ID:            42,
		Position:      mgl64.Vec3{-7.5, 64, 12.125},
		Orientation:   mgl64.QuatRotate(-1.2, mgl64.Vec3{0, 1, 0}),
		LastAckTimeMs: 98765,
		Inventory: player.Inventory{
			0: {ItemID: 1, Count: 64},
			8: {ItemID: 5, Count: 3},
		},
	}
	out := roundTrip(t, &PlayerUpdate{Snapshot: snap})
	upd, ok := out.(*PlayerUpdate)
	require.True(t, ok)
	assert.Equal(t, snap, upd.Snapshot)
}

func TestSerializer_HelloWelcomeLeft(t *testing.T) {
	hello := roundTrip(t, &Hello{Token: "abc.def.ghi", Name: "steve"})
	assert.Equal(t, &Hello{Token: "abc.def.ghi", Name: "steve"}, hello)

	w := &Welcome{PlayerID: 7, Seed: -12345, Spawn: mgl64.Vec3{0, 71, 0}, TickRate: 20}
	assert.Equal(t, w, roundTrip(t, w))

	assert.Equal(t, &PlayerLeft{PlayerID: 9}, roundTrip(t, &PlayerLeft{PlayerID: 9}))
}

func TestSerializer_ChunkData(t *testing.T) {
	c := world.NewChunk(vec.New(-3, 2, 5))
	c.Timestamp = 1234
	c.SetLocal(vec.New(0, 0, 0), block.New(block.StoneBlockID))
	c.SetLocal(vec.New(15, 15, 15), block.Block{ID: block.SlabBlockID, Direction: block.West, Flipped: true, BreakingProgress: 7})
	c.SetLocal(vec.New(3, 9, 14), block.New(block.WaterBlockID))

	out := roundTrip(t, &ChunkData{Chunk: c})
	cd, ok := out.(*ChunkData)
	require.True(t, ok)
	assert.Equal(t, c.Coords, cd.Chunk.Coords)
	assert.Equal(t, c.Timestamp, cd.Chunk.Timestamp)
	assert.Equal(t, c.Entries(), cd.Chunk.Entries())
}

func TestSerializer_EmptyChunk(t *testing.T) {
	c := world.NewChunk(vec.New(0, 0, 0))
	out := roundTrip(t, &ChunkData{Chunk: c})
	assert.Equal(t, 0, out.(*ChunkData).Chunk.Len())
}

func TestDeserialize_RejectsMalformed(t *testing.T) {
	ms := NewMessageSerializer()

	_, err := ms.DeserializeMessage([]byte{0xff, 0xff, 0xff})
	assert.ErrorIs(t, err, ErrMalformedMessage)

	// неизвестный тип
	var b []byte
	b = appendVarint(b, 1, 99)
	b = appendBytes(b, 2, nil)
	_, err = ms.DeserializeMessage(b)
	assert.ErrorIs(t, err, ErrMalformedMessage)
	assert.ErrorIs(t, err, ErrUnknownMessageType)
}

func TestDeserialize_RejectsNonFiniteFloats(t *testing.T) {
	var frame []byte
	frame = appendVarint(frame, 1, 10)
	frame = appendFloats(frame, 4, math.NaN(), 0, 0, 0)
	payload := appendBytes(nil, 1, frame)

	var env []byte
	env = appendVarint(env, 1, uint64(MsgInputBatch))
	env = appendBytes(env, 2, payload)

	_, err := NewMessageSerializer().DeserializeMessage(env)
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestDeserialize_RejectsInvalidActions(t *testing.T) {
	frame := appendVarint(nil, 3, 0xffff)
	payload := appendBytes(nil, 1, frame)
	env := appendVarint(nil, 1, uint64(MsgInputBatch))
	env = appendBytes(env, 2, payload)

	_, err := NewMessageSerializer().DeserializeMessage(env)
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestDeserialize_SkipsUnknownFields(t *testing.T) {
	var payload []byte
	payload = appendVarint(payload, 1, 5)
	payload = protowire.AppendTag(payload, 15, protowire.BytesType)
	payload = protowire.AppendString(payload, "future")

	env := appendVarint(nil, 1, uint64(MsgPlayerLeft))
	env = appendBytes(env, 2, payload)

	msg, err := NewMessageSerializer().DeserializeMessage(env)
	require.NoError(t, err)
	assert.Equal(t, &PlayerLeft{PlayerID: 5}, msg)
}

func TestDecodeChunkBlocks_RejectsBadIndex(t *testing.T) {
	raw := []byte{0x00, 0x10, 1, 0, 0, 0, 0} // индекс 4096
	data, err := compress(raw)
	require.NoError(t, err)
	_, err = DecodeChunkBlocks(vec.New(0, 0, 0), data)
	assert.ErrorIs(t, err, ErrMalformedMessage)

	_, err = DecodeChunkBlocks(vec.New(0, 0, 0), []byte("not zstd"))
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestFrameLength(t *testing.T) {
	assert.Equal(t, uint32(70000), ReadUint32(WriteUint32(70000)))
}
