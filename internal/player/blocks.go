package player

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
)

// BlockEvent итог действия игрока над блоком
type BlockEvent uint8

const (
	BlockUnchanged BlockEvent = iota
	// BlockDamaged прогресс разрушения вырос
	BlockDamaged
	// BlockBroken блок разрушен и удалён
	BlockBroken
	// BlockPlaced блок установлен
	BlockPlaced
)

// Eye позиция глаз игрока
func (p *Player) Eye() mgl64.Vec3 {
	return p.Position.Add(mgl64.Vec3{0, EyeHeight, 0})
}

// InReach проверяет, что центр блока target не дальше BlockReach от глаз
func InReach(p *Player, target vec.Vec3) bool {
	center := target.Float().Add(mgl64.Vec3{0.5, 0.5, 0.5})
	return center.Sub(p.Eye()).Len() <= BlockReach
}

// AdvanceBreaking продвигает разрушение блока target на один шаг.
// Смена цели сбрасывает прогресс прежнего блока. Когда прогресс достигает
// твёрдости вида, блок удаляется. Неразрушимые блоки и воздух не меняются.
func AdvanceBreaking(p *Player, s world.Store, target vec.Vec3) BlockEvent {
	if p.Mining && p.MiningTarget != target {
		StopBreaking(p, s)
	}
	if !InReach(p, target) {
		StopBreaking(p, s)
		return BlockUnchanged
	}

	b := s.GetMut(target)
	if b == nil || b.ID == block.AirBlockID {
		p.Mining = false
		return BlockUnchanged
	}
	props, _ := block.Get(b.ID)
	if props.Hardness == 0 {
		p.Mining = false
		return BlockUnchanged
	}

	p.Mining = true
	p.MiningTarget = target
	b.BreakingProgress++
	if b.BreakingProgress >= props.Hardness {
		s.Remove(target)
		p.Mining = false
		return BlockBroken
	}
	s.MarkBlockForUpdate(target)
	return BlockDamaged
}

// StopBreaking прекращает разрушение и обнуляет прогресс начатого блока
func StopBreaking(p *Player, s world.Store) {
	if !p.Mining {
		return
	}
	p.Mining = false
	if b := s.GetMut(p.MiningTarget); b != nil && b.BreakingProgress > 0 {
		b.BreakingProgress = 0
		s.MarkBlockForUpdate(p.MiningTarget)
	}
}

// TryPlace ставит блок id в target. Клетка должна быть пустой, чанк загружен,
// а хитбокс нового блока не должен пересекать игрока.
func TryPlace(p *Player, s world.Store, target vec.Vec3, id block.BlockID) bool {
	if id == block.AirBlockID || !block.IsValidBlockID(id) {
		return false
	}
	if !s.HasChunk(target.ToChunkCoords()) || !InReach(p, target) {
		return false
	}
	if existing, ok := s.Get(target); ok && existing.ID != block.AirBlockID {
		return false
	}
	if box, solid := block.HitboxOf(id).WorldBox(target.Float()); solid && box.Intersects(p.Hitbox()) {
		return false
	}
	s.Set(target, block.New(id))
	return true
}
