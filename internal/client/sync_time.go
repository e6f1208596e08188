package client

import "time"

// Clock источник времени в миллисекундах
type Clock func() uint64

// SystemClock возвращает время по системным часам
func SystemClock() uint64 {
	return uint64(time.Now().UnixMilli())
}

// SyncTime монотонные часы клиента. Время никогда не идёт назад, даже если
// системные часы переведены.
type SyncTime struct {
	clock      Clock
	currTimeMs uint64
	lastTimeMs uint64
}

// NewSyncTime создаёт часы, начинающие отсчёт с текущего показания clock
func NewSyncTime(clock Clock) *SyncTime {
	if clock == nil {
		clock = SystemClock
	}
	now := clock()
	return &SyncTime{clock: clock, currTimeMs: now, lastTimeMs: now}
}

// Advance переходит к следующему шагу планировщика
func (s *SyncTime) Advance() {
	s.lastTimeMs = s.currTimeMs
	if now := s.clock(); now > s.currTimeMs {
		s.currTimeMs = now
	}
}

// CurrTimeMs возвращает время текущего шага
func (s *SyncTime) CurrTimeMs() uint64 {
	return s.currTimeMs
}

// Delta возвращает время между двумя последними шагами
func (s *SyncTime) Delta() uint64 {
	return s.currTimeMs - s.lastTimeMs
}
