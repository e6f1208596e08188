package protocol

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/blockverse/internal/player"
	"github.com/annel0/blockverse/internal/world"
)

// ErrMalformedMessage сообщение не удалось разобрать или оно нарушает ограничения протокола
var ErrMalformedMessage = errors.New("некорректное сообщение")

// ErrUnknownMessageType тип сообщения не поддерживается
var ErrUnknownMessageType = errors.New("неизвестный тип сообщения")

// MessageType тип сетевого сообщения
type MessageType uint8

const (
	MsgUnknown      MessageType = iota
	MsgHello                    // клиент -> сервер: токен входа
	MsgWelcome                  // сервер -> клиент: ID игрока и параметры мира
	MsgInputBatch               // клиент -> сервер: пачка кадров ввода
	MsgPlayerUpdate             // сервер -> все: снимок игрока
	MsgChunkData                // сервер -> клиент: содержимое чанка
	MsgPlayerLeft               // сервер -> все: игрок отключился
)

// String возвращает имя типа сообщения
func (t MessageType) String() string {
	switch t {
	case MsgHello:
		return "Hello"
	case MsgWelcome:
		return "Welcome"
	case MsgInputBatch:
		return "InputBatch"
	case MsgPlayerUpdate:
		return "PlayerUpdate"
	case MsgChunkData:
		return "ChunkData"
	case MsgPlayerLeft:
		return "PlayerLeft"
	default:
		return fmt.Sprintf("MessageType(%d)", uint8(t))
	}
}

// Message общий интерфейс сообщений протокола
type Message interface {
	Type() MessageType
}

// Hello первое сообщение клиента
type Hello struct {
	Token string
	Name  string
}

// Welcome ответ сервера на успешный вход
type Welcome struct {
	PlayerID uint64
	Seed     int64
	Spawn    mgl64.Vec3
	TickRate uint32
}

// InputBatch кадры ввода в порядке их создания
type InputBatch struct {
	Inputs []player.FrameInput
}

// PlayerUpdate снимок состояния игрока после тика
type PlayerUpdate struct {
	player.Snapshot
}

// ChunkData содержимое чанка
type ChunkData struct {
	Chunk *world.Chunk
}

// PlayerLeft уведомление об отключении игрока
type PlayerLeft struct {
	PlayerID uint64
}

func (*Hello) Type() MessageType        { return MsgHello }
func (*Welcome) Type() MessageType      { return MsgWelcome }
func (*InputBatch) Type() MessageType   { return MsgInputBatch }
func (*PlayerUpdate) Type() MessageType { return MsgPlayerUpdate }
func (*ChunkData) Type() MessageType    { return MsgChunkData }
func (*PlayerLeft) Type() MessageType   { return MsgPlayerLeft }
