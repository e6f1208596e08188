package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/annel0/blockverse/internal/player"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
)

// blockEntrySize индекс(2) + id(2) + направление + флаг переворота + прогресс разрушения
const blockEntrySize = 7

func appendQuat(b []byte, num protowire.Number, q mgl64.Quat) []byte {
	return appendFloats(b, num, q.W, q.V[0], q.V[1], q.V[2])
}

func appendVec3(b []byte, num protowire.Number, v mgl64.Vec3) []byte {
	return appendFloats(b, num, v[0], v[1], v[2])
}

func (r *fieldReader) quat(typ protowire.Type) mgl64.Quat {
	f := r.floats(typ, 4)
	if f == nil {
		return mgl64.QuatIdent()
	}
	return mgl64.Quat{W: f[0], V: mgl64.Vec3{f[1], f[2], f[3]}}
}

func (r *fieldReader) vec3(typ protowire.Type) mgl64.Vec3 {
	f := r.floats(typ, 3)
	if f == nil {
		return mgl64.Vec3{}
	}
	return mgl64.Vec3{f[0], f[1], f[2]}
}

// --- Hello ---

func encodeHello(m *Hello) []byte {
	var b []byte
	b = appendString(b, 1, m.Token)
	b = appendString(b, 2, m.Name)
	return b
}

func decodeHello(data []byte) (*Hello, error) {
	m := &Hello{}
	r := newFieldReader(data)
	for num, typ, ok := r.next(); ok; num, typ, ok = r.next() {
		switch num {
		case 1:
			m.Token = string(r.bytes(typ))
		case 2:
			m.Name = string(r.bytes(typ))
		default:
			r.skip(num, typ)
		}
	}
	return m, r.err
}

// --- Welcome ---

func encodeWelcome(m *Welcome) []byte {
	var b []byte
	b = appendVarint(b, 1, m.PlayerID)
	b = appendSint(b, 2, m.Seed)
	b = appendVec3(b, 3, m.Spawn)
	b = appendVarint(b, 4, uint64(m.TickRate))
	return b
}

func decodeWelcome(data []byte) (*Welcome, error) {
	m := &Welcome{}
	r := newFieldReader(data)
	for num, typ, ok := r.next(); ok; num, typ, ok = r.next() {
		switch num {
		case 1:
			m.PlayerID = r.varint(typ)
		case 2:
			m.Seed = r.sint(typ)
		case 3:
			m.Spawn = r.vec3(typ)
		case 4:
			m.TickRate = uint32(r.varint(typ))
		default:
			r.skip(num, typ)
		}
	}
	return m, r.err
}

// --- FrameInput / InputBatch ---

func encodeFrameInput(in *player.FrameInput) []byte {
	var b []byte
	b = appendVarint(b, 1, in.TimeMs)
	b = appendVarint(b, 2, in.DeltaMs)
	b = appendVarint(b, 3, uint64(in.Actions))
	b = appendQuat(b, 4, in.Camera)
	b = appendVarint(b, 5, uint64(in.HotbarSlot))
	b = appendVarint(b, 6, uint64(in.ViewMode))
	b = appendVec3(b, 7, in.Position)
	if in.Actions.Has(player.BreakBlock) || in.Actions.Has(player.PlaceBlock) {
		b = appendSint(b, 8, int64(in.Target.X))
		b = appendSint(b, 9, int64(in.Target.Y))
		b = appendSint(b, 10, int64(in.Target.Z))
		b = appendVarint(b, 11, uint64(in.PlaceID))
	}
	return b
}

func decodeFrameInput(data []byte) (player.FrameInput, error) {
	in := player.NewFrameInput(0, 0)
	r := newFieldReader(data)
	for num, typ, ok := r.next(); ok; num, typ, ok = r.next() {
		switch num {
		case 1:
			in.TimeMs = r.varint(typ)
		case 2:
			in.DeltaMs = r.varint(typ)
		case 3:
			v := r.varint(typ)
			set := player.ActionSet(v)
			if v > 0xffff || !set.Valid() {
				r.fail("недопустимый набор действий %#x", v)
			}
			in.Actions = set
		case 4:
			in.Camera = r.quat(typ)
		case 5:
			in.HotbarSlot = uint8(r.varint(typ))
		case 6:
			in.ViewMode = player.ViewMode(r.varint(typ))
		case 7:
			in.Position = r.vec3(typ)
		case 8:
			in.Target.X = int(r.sint(typ))
		case 9:
			in.Target.Y = int(r.sint(typ))
		case 10:
			in.Target.Z = int(r.sint(typ))
		case 11:
			in.PlaceID = block.BlockID(r.varint(typ))
		default:
			r.skip(num, typ)
		}
	}
	return in, r.err
}

func encodeInputBatch(m *InputBatch) []byte {
	var b []byte
	for i := range m.Inputs {
		b = appendBytes(b, 1, encodeFrameInput(&m.Inputs[i]))
	}
	return b
}

func decodeInputBatch(data []byte) (*InputBatch, error) {
	m := &InputBatch{}
	r := newFieldReader(data)
	for num, typ, ok := r.next(); ok; num, typ, ok = r.next() {
		if num != 1 {
			r.skip(num, typ)
			continue
		}
		raw := r.bytes(typ)
		if r.err != nil {
			break
		}
		in, err := decodeFrameInput(raw)
		if err != nil {
			return nil, fmt.Errorf("кадр %d: %w", len(m.Inputs), err)
		}
		m.Inputs = append(m.Inputs, in)
	}
	return m, r.err
}

// --- PlayerUpdate ---

func encodePlayerUpdate(m *PlayerUpdate) []byte {
	var b []byte
	b = appendVarint(b, 1, m.ID)
	b = appendVec3(b, 2, m.Position)
	b = appendQuat(b, 3, m.Orientation)
	b = appendVarint(b, 4, m.LastAckTimeMs)
	for _, slot := range sortedSlots(m.Inventory) {
		stack := m.Inventory[slot]
		var s []byte
		s = appendVarint(s, 1, uint64(slot))
		s = appendVarint(s, 2, uint64(stack.ItemID))
		s = appendVarint(s, 3, uint64(stack.Count))
		b = appendBytes(b, 5, s)
	}
	return b
}

func decodeSlot(data []byte) (uint32, player.ItemStack, error) {
	var (
		slot  uint32
		stack player.ItemStack
	)
	r := newFieldReader(data)
	for num, typ, ok := r.next(); ok; num, typ, ok = r.next() {
		switch num {
		case 1:
			slot = uint32(r.varint(typ))
		case 2:
			stack.ItemID = uint32(r.varint(typ))
		case 3:
			stack.Count = uint32(r.varint(typ))
		default:
			r.skip(num, typ)
		}
	}
	return slot, stack, r.err
}

func decodePlayerUpdate(data []byte) (*PlayerUpdate, error) {
	m := &PlayerUpdate{}
	m.Orientation = mgl64.QuatIdent()
	m.Inventory = make(player.Inventory)
	r := newFieldReader(data)
	for num, typ, ok := r.next(); ok; num, typ, ok = r.next() {
		switch num {
		case 1:
			m.ID = r.varint(typ)
		case 2:
			m.Position = r.vec3(typ)
		case 3:
			m.Orientation = r.quat(typ)
		case 4:
			m.LastAckTimeMs = r.varint(typ)
		case 5:
			raw := r.bytes(typ)
			if r.err != nil {
				break
			}
			slot, stack, err := decodeSlot(raw)
			if err != nil {
				return nil, err
			}
			m.Inventory[slot] = stack
		default:
			r.skip(num, typ)
		}
	}
	return m, r.err
}

// --- ChunkData ---

func encodeChunkData(m *ChunkData) ([]byte, error) {
	if m.Chunk == nil {
		return nil, fmt.Errorf("пустой чанк")
	}
	raw, err := EncodeChunkBlocks(m.Chunk)
	if err != nil {
		return nil, err
	}
	var b []byte
	b = appendSint(b, 1, int64(m.Chunk.Coords.X))
	b = appendSint(b, 2, int64(m.Chunk.Coords.Y))
	b = appendSint(b, 3, int64(m.Chunk.Coords.Z))
	b = appendVarint(b, 4, m.Chunk.Timestamp)
	b = appendBytes(b, 5, raw)
	return b, nil
}

func decodeChunkData(data []byte) (*ChunkData, error) {
	var (
		coords vec.Vec3
		ts     uint64
		blocks []byte
	)
	r := newFieldReader(data)
	for num, typ, ok := r.next(); ok; num, typ, ok = r.next() {
		switch num {
		case 1:
			coords.X = int(r.sint(typ))
		case 2:
			coords.Y = int(r.sint(typ))
		case 3:
			coords.Z = int(r.sint(typ))
		case 4:
			ts = r.varint(typ)
		case 5:
			blocks = r.bytes(typ)
		default:
			r.skip(num, typ)
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	c, err := DecodeChunkBlocks(coords, blocks)
	if err != nil {
		return nil, err
	}
	c.Timestamp = ts
	return &ChunkData{Chunk: c}, nil
}

// EncodeChunkBlocks упаковывает содержимое чанка в сжатый zstd список
// записей фиксированного размера. Тот же формат используется хранилищем.
func EncodeChunkBlocks(c *world.Chunk) ([]byte, error) {
	entries := c.Entries()
	raw := make([]byte, 0, len(entries)*blockEntrySize)
	var buf [blockEntrySize]byte
	for _, e := range entries {
		idx := e.Local.Y*vec.ChunkSize*vec.ChunkSize + e.Local.Z*vec.ChunkSize + e.Local.X
		binary.LittleEndian.PutUint16(buf[0:2], uint16(idx))
		binary.LittleEndian.PutUint16(buf[2:4], uint16(e.Block.ID))
		buf[4] = uint8(e.Block.Direction)
		buf[5] = 0
		if e.Block.Flipped {
			buf[5] = 1
		}
		buf[6] = e.Block.BreakingProgress
		raw = append(raw, buf[:]...)
	}
	return compress(raw)
}

// DecodeChunkBlocks восстанавливает чанк из результата EncodeChunkBlocks
func DecodeChunkBlocks(coords vec.Vec3, data []byte) (*world.Chunk, error) {
	c := world.NewChunk(coords)
	if len(data) == 0 {
		return c, nil
	}
	raw, err := decompress(data)
	if err != nil {
		return nil, err
	}
	if len(raw)%blockEntrySize != 0 {
		return nil, fmt.Errorf("%w: длина блоков %d не кратна %d", ErrMalformedMessage, len(raw), blockEntrySize)
	}
	const volume = vec.ChunkSize * vec.ChunkSize * vec.ChunkSize
	for off := 0; off < len(raw); off += blockEntrySize {
		e := raw[off : off+blockEntrySize]
		idx := int(binary.LittleEndian.Uint16(e[0:2]))
		if idx >= volume {
			return nil, fmt.Errorf("%w: индекс блока %d вне чанка", ErrMalformedMessage, idx)
		}
		local := vec.New(idx%vec.ChunkSize, idx/(vec.ChunkSize*vec.ChunkSize), (idx/vec.ChunkSize)%vec.ChunkSize)
		c.SetLocal(local, block.Block{
			ID:               block.BlockID(binary.LittleEndian.Uint16(e[2:4])),
			Direction:        block.Direction(e[4]),
			Flipped:          e[5] != 0,
			BreakingProgress: e[6],
		})
	}
	return c, nil
}

// --- PlayerLeft ---

func encodePlayerLeft(m *PlayerLeft) []byte {
	return appendVarint(nil, 1, m.PlayerID)
}

func decodePlayerLeft(data []byte) (*PlayerLeft, error) {
	m := &PlayerLeft{}
	r := newFieldReader(data)
	for num, typ, ok := r.next(); ok; num, typ, ok = r.next() {
		if num == 1 {
			m.PlayerID = r.varint(typ)
			continue
		}
		r.skip(num, typ)
	}
	return m, r.err
}
