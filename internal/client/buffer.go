package client

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/blockverse/internal/player"
)

// DefaultMaxPending предел неподтверждённых кадров, после которого старые отбрасываются
const DefaultMaxPending = 256

// TickInputsBuffer буфер завершённых кадров ввода.
// Outgoing ещё не отправлены, pending отправлены и ждут подтверждения сервера.
type TickInputsBuffer struct {
	outgoing   []player.FrameInput
	pending    []player.FrameInput
	maxPending int
	dropped    uint64
}

// NewTickInputsBuffer создаёт пустой буфер
func NewTickInputsBuffer(maxPending int) *TickInputsBuffer {
	if maxPending <= 0 {
		maxPending = DefaultMaxPending
	}
	return &TickInputsBuffer{maxPending: maxPending}
}

// Push добавляет завершённый кадр в очередь отправки
func (b *TickInputsBuffer) Push(in player.FrameInput) {
	b.outgoing = append(b.outgoing, in)
}

// Flush забирает кадры для отправки и переносит их в ожидающие подтверждения
func (b *TickInputsBuffer) Flush() []player.FrameInput {
	if len(b.outgoing) == 0 {
		return nil
	}
	out := b.outgoing
	b.outgoing = nil

	b.pending = append(b.pending, out...)
	if over := len(b.pending) - b.maxPending; over > 0 {
		b.pending = append([]player.FrameInput(nil), b.pending[over:]...)
		b.dropped += uint64(over)
	}
	return out
}

// PruneAcked удаляет подтверждённые кадры с TimeMs <= ackMs.
// Возвращает подтверждённый кадр с TimeMs == ackMs, если он был в буфере.
func (b *TickInputsBuffer) PruneAcked(ackMs uint64) (player.FrameInput, bool) {
	var acked player.FrameInput
	found := false

	i := 0
	for ; i < len(b.pending) && b.pending[i].TimeMs <= ackMs; i++ {
		if b.pending[i].TimeMs == ackMs {
			acked = b.pending[i]
			found = true
		}
	}
	b.pending = b.pending[i:]
	return acked, found
}

// ShiftPredictions сдвигает записанные предсказанные позиции всех кадров в буфере
func (b *TickInputsBuffer) ShiftPredictions(diff mgl64.Vec3) {
	for i := range b.outgoing {
		b.outgoing[i].Position = b.outgoing[i].Position.Add(diff)
	}
	for i := range b.pending {
		b.pending[i].Position = b.pending[i].Position.Add(diff)
	}
}

// Outgoing количество неотправленных кадров
func (b *TickInputsBuffer) Outgoing() int { return len(b.outgoing) }

// Pending количество неподтверждённых кадров
func (b *TickInputsBuffer) Pending() int { return len(b.pending) }

// Dropped количество кадров, отброшенных из-за переполнения
func (b *TickInputsBuffer) Dropped() uint64 { return b.dropped }
