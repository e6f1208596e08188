package protocol

import (
	"encoding/binary"
	"fmt"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/annel0/blockverse/internal/player"
)

// MessageSerializer кодирует сообщения протокола в конверт
// {1: тип, 2: полезная нагрузка} в формате protobuf
type MessageSerializer struct{}

// NewMessageSerializer создает новый сериализатор сообщений
func NewMessageSerializer() *MessageSerializer {
	return &MessageSerializer{}
}

// SerializeMessage сериализует сообщение вместе с конвертом
func (ms *MessageSerializer) SerializeMessage(msg Message) ([]byte, error) {
	payload, err := ms.encodePayload(msg)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации %s: %w", msg.Type(), err)
	}

	var b []byte
	b = appendVarint(b, 1, uint64(msg.Type()))
	b = appendBytes(b, 2, payload)
	return b, nil
}

func (ms *MessageSerializer) encodePayload(msg Message) ([]byte, error) {
	switch m := msg.(type) {
	case *Hello:
		return encodeHello(m), nil
	case *Welcome:
		return encodeWelcome(m), nil
	case *InputBatch:
		return encodeInputBatch(m), nil
	case *PlayerUpdate:
		return encodePlayerUpdate(m), nil
	case *ChunkData:
		return encodeChunkData(m)
	case *PlayerLeft:
		return encodePlayerLeft(m), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownMessageType, msg)
	}
}

// DeserializeMessage разбирает конверт и полезную нагрузку.
// Ошибки формата оборачивают ErrMalformedMessage.
func (ms *MessageSerializer) DeserializeMessage(data []byte) (Message, error) {
	var (
		msgType MessageType
		payload []byte
	)
	r := newFieldReader(data)
	for num, typ, ok := r.next(); ok; num, typ, ok = r.next() {
		switch num {
		case 1:
			msgType = MessageType(r.varint(typ))
		case 2:
			payload = r.bytes(typ)
		default:
			r.skip(num, typ)
		}
	}
	if r.err != nil {
		return nil, fmt.Errorf("ошибка десериализации конверта: %w", r.err)
	}

	var (
		msg Message
		err error
	)
	switch msgType {
	case MsgHello:
		msg, err = decodeHello(payload)
	case MsgWelcome:
		msg, err = decodeWelcome(payload)
	case MsgInputBatch:
		msg, err = decodeInputBatch(payload)
	case MsgPlayerUpdate:
		msg, err = decodePlayerUpdate(payload)
	case MsgChunkData:
		msg, err = decodeChunkData(payload)
	case MsgPlayerLeft:
		msg, err = decodePlayerLeft(payload)
	default:
		return nil, fmt.Errorf("%w: %w (%d)", ErrMalformedMessage, ErrUnknownMessageType, uint8(msgType))
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка десериализации %s: %w", msgType, err)
	}
	return msg, nil
}

// PeekType возвращает тип сообщения без разбора полезной нагрузки
func PeekType(data []byte) MessageType {
	r := newFieldReader(data)
	for num, typ, ok := r.next(); ok; num, typ, ok = r.next() {
		if num == 1 && typ == protowire.VarintType {
			return MessageType(r.varint(typ))
		}
		r.skip(num, typ)
	}
	return MsgUnknown
}

func sortedSlots(inv player.Inventory) []uint32 {
	slots := make([]uint32, 0, len(inv))
	for slot := range inv {
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
	return slots
}

// Вспомогательные функции для кадрирования потока

// WriteUint32 записывает uint32 в big-endian формате
func WriteUint32(val uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, val)
	return b
}

// ReadUint32 читает uint32 из big-endian формата
func ReadUint32(data []byte) uint32 {
	return binary.BigEndian.Uint32(data)
}
