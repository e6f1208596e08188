package client

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/blockverse/internal/player"
)

// Synchronizer ведёт часы клиента и превращает намерения каждого кадра в
// готовые к отправке записи ввода.
type Synchronizer struct {
	time    *SyncTime
	current player.FrameInput
	buffer  *TickInputsBuffer
}

// NewSynchronizer создаёт синхронизатор поверх указанных часов
func NewSynchronizer(clock Clock) *Synchronizer {
	t := NewSyncTime(clock)
	return &Synchronizer{
		time:    t,
		current: player.NewFrameInput(t.CurrTimeMs(), 0),
		buffer:  NewTickInputsBuffer(DefaultMaxPending),
	}
}

// Step выполняется в начале каждого шага планировщика: продвигает часы,
// кладёт завершённый кадр предыдущего шага в буфер и начинает новый.
func (s *Synchronizer) Step() {
	s.time.Advance()
	s.buffer.Push(s.current)
	s.current.Reset(s.time.CurrTimeMs(), s.time.Delta())
}

// Current возвращает накапливаемый кадр текущего шага
func (s *Synchronizer) Current() *player.FrameInput {
	return &s.current
}

// Flush забирает завершённые кадры для отправки на сервер
func (s *Synchronizer) Flush() []player.FrameInput {
	return s.buffer.Flush()
}

// Ack обрабатывает подтверждение сервера
func (s *Synchronizer) Ack(ackMs uint64) (player.FrameInput, bool) {
	return s.buffer.PruneAcked(ackMs)
}

// ShiftPredictions сдвигает предсказанные позиции буферизованных кадров и
// текущего кадра после коррекции, чтобы одна ошибка не исправлялась дважды
func (s *Synchronizer) ShiftPredictions(diff mgl64.Vec3) {
	s.buffer.ShiftPredictions(diff)
	s.current.Position = s.current.Position.Add(diff)
}

// Buffer возвращает буфер кадров
func (s *Synchronizer) Buffer() *TickInputsBuffer {
	return s.buffer
}

// Time возвращает часы клиента
func (s *Synchronizer) Time() *SyncTime {
	return s.time
}
