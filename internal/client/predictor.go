package client

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/blockverse/internal/player"
	"github.com/annel0/blockverse/internal/world"
)

// DefaultSnapThreshold расхождение, после которого позиция принудительно
// переносится к серверной, если подтверждённый кадр уже не найден
const DefaultSnapThreshold = 2.0

// correctionEpsilon расхождение, которое считается совпадением
const correctionEpsilon = 1e-6

// Predictor локальное предсказание движения собственного игрока.
// Использует тот же player.Simulate, что и сервер. Прошлые кадры не
// переигрываются: при расхождении позиция сдвигается на величину ошибки.
type Predictor struct {
	Player *player.Player
	World  *world.ClientMap
	Sync   *Synchronizer

	// Others последние снимки остальных игроков
	Others map[uint64]player.Snapshot

	SnapThreshold float64
	corrections   uint64
}

// NewPredictor создаёт предсказатель для игрока
func NewPredictor(p *player.Player, w *world.ClientMap, sync *Synchronizer) *Predictor {
	return &Predictor{
		Player:        p,
		World:         w,
		Sync:          sync,
		Others:        make(map[uint64]player.Snapshot),
		SnapThreshold: DefaultSnapThreshold,
	}
}

// Frame применяет намерения текущего кадра к локальному игроку.
// Вызывается после Synchronizer.Step.
func (p *Predictor) Frame(actions player.ActionSet, camera mgl64.Quat) bool {
	in := p.Sync.Current()
	if in.DeltaMs == 0 {
		return false
	}

	in.Actions = actions
	in.Camera = camera

	applied := player.Simulate(p.Player, p.World, in)
	in.Position = p.Player.Position
	return applied
}

// ApplyServerUpdate принимает снимок от сервера
func (p *Predictor) ApplyServerUpdate(s player.Snapshot) {
	if s.ID != p.Player.ID {
		p.Others[s.ID] = s
		return
	}

	p.Player.Inventory = s.Inventory.Clone()
	p.Player.LastInputProcessed = s.LastAckTimeMs

	acked, found := p.Sync.Ack(s.LastAckTimeMs)
	if found {
		diff := s.Position.Sub(acked.Position)
		if diff.Len() > correctionEpsilon {
			p.correct(diff)
		}
		return
	}

	if diff := s.Position.Sub(p.Player.Position); diff.Len() > p.SnapThreshold {
		p.correct(diff)
		p.Player.Velocity = mgl64.Vec3{}
	}
}

func (p *Predictor) correct(diff mgl64.Vec3) {
	p.Player.Position = p.Player.Position.Add(diff)
	p.Sync.ShiftPredictions(diff)
	p.corrections++
}

// RemoveOther забывает отключившегося игрока
func (p *Predictor) RemoveOther(id uint64) {
	delete(p.Others, id)
}

// Corrections количество коррекций позиции по данным сервера
func (p *Predictor) Corrections() uint64 {
	return p.corrections
}
