package eventbus

import (
	"context"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/blockverse/internal/vec"
)

// ChunkSavedEvent чанки, сохранённые после изменения
type ChunkSavedEvent struct {
	Chunks []vec.Vec3 `json:"chunks"`
}

// PlayerEvent вход или выход игрока
type PlayerEvent struct {
	PlayerID uint64     `json:"player_id"`
	Name     string     `json:"name,omitempty"`
	Position mgl64.Vec3 `json:"position"`
}

// Publisher публикует события мира от имени одного источника
type Publisher struct {
	bus    EventBus
	source string
}

// NewPublisher создаёт издателя. nil-шина превращает вызовы в no-op.
func NewPublisher(bus EventBus, source string) *Publisher {
	return &Publisher{bus: bus, source: source}
}

func (p *Publisher) publish(ctx context.Context, eventType string, priority int, payload interface{}) error {
	if p == nil || p.bus == nil {
		return nil
	}
	ev, err := NewEnvelope(p.source, eventType, priority, payload)
	if err != nil {
		return err
	}
	return p.bus.Publish(ctx, ev)
}

// ChunksSaved сообщает о сохранённых чанках
func (p *Publisher) ChunksSaved(ctx context.Context, coords []vec.Vec3) error {
	if len(coords) == 0 {
		return nil
	}
	return p.publish(ctx, EventChunkSaved, PriorityLow, ChunkSavedEvent{Chunks: coords})
}

// PlayerJoined сообщает о входе игрока
func (p *Publisher) PlayerJoined(ctx context.Context, id uint64, name string, pos mgl64.Vec3) error {
	return p.publish(ctx, EventPlayerJoined, PriorityHigh, PlayerEvent{PlayerID: id, Name: name, Position: pos})
}

// PlayerLeft сообщает о выходе игрока
func (p *Publisher) PlayerLeft(ctx context.Context, id uint64, pos mgl64.Vec3) error {
	return p.publish(ctx, EventPlayerLeft, PriorityHigh, PlayerEvent{PlayerID: id, Position: pos})
}
