package player

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/blockverse/internal/physics"
	"github.com/annel0/blockverse/internal/vec"
)

// ItemStack стопка предметов в слоте инвентаря
type ItemStack struct {
	ItemID uint32
	Count  uint32
}

// Inventory слоты инвентаря. Симуляция его не трогает, он передаётся как есть.
type Inventory map[uint32]ItemStack

// Clone возвращает копию инвентаря
func (inv Inventory) Clone() Inventory {
	if inv == nil {
		return nil
	}
	out := make(Inventory, len(inv))
	for k, v := range inv {
		out[k] = v
	}
	return out
}

// Player кинематическое состояние игрока.
// Сервер владеет каноническим экземпляром, клиент локальной копией для предсказания;
// оба изменяются только через Simulate.
type Player struct {
	ID       uint64
	Name     string
	Position mgl64.Vec3
	// Velocity интегрируется только по вертикали
	Velocity mgl64.Vec3
	Camera   mgl64.Quat

	IsFlying bool
	OnGround bool

	// LastInputProcessed время последнего применённого кадра ввода
	LastInputProcessed uint64

	// Mining игрок разрушает блок MiningTarget
	Mining       bool
	MiningTarget vec.Vec3

	Inventory Inventory
}

// New создаёт игрока в указанной позиции
func New(id uint64, name string, pos mgl64.Vec3) *Player {
	return &Player{
		ID:        id,
		Name:      name,
		Position:  pos,
		Camera:    mgl64.QuatIdent(),
		Inventory: make(Inventory),
	}
}

// Clone возвращает независимую копию игрока
func (p *Player) Clone() *Player {
	out := *p
	out.Inventory = p.Inventory.Clone()
	return &out
}

// Hitbox возвращает хитбокс игрока в текущей позиции
func (p *Player) Hitbox() physics.AABB {
	return HitboxAt(p.Position)
}

// HitboxAt возвращает хитбокс игрока, стоящего ногами в pos
func HitboxAt(pos mgl64.Vec3) physics.AABB {
	const half = Width / 2
	return physics.AABB{
		Min: mgl64.Vec3{pos[0] - half, pos[1], pos[2] - half},
		Max: mgl64.Vec3{pos[0] + half, pos[1] + Height, pos[2] + half},
	}
}

// Equal сравнивает кинематическое состояние побитово
func (p *Player) Equal(o *Player) bool {
	return p.ID == o.ID &&
		p.Position == o.Position &&
		p.Velocity == o.Velocity &&
		p.Camera == o.Camera &&
		p.IsFlying == o.IsFlying &&
		p.OnGround == o.OnGround &&
		p.LastInputProcessed == o.LastInputProcessed
}

// Snapshot каноническое состояние игрока, рассылаемое сервером после тика
type Snapshot struct {
	ID            uint64
	Position      mgl64.Vec3
	Orientation   mgl64.Quat
	LastAckTimeMs uint64
	Inventory     Inventory
}

// Snapshot возвращает снимок состояния игрока
func (p *Player) Snapshot() Snapshot {
	return Snapshot{
		ID:            p.ID,
		Position:      p.Position,
		Orientation:   p.Camera,
		LastAckTimeMs: p.LastInputProcessed,
		Inventory:     p.Inventory.Clone(),
	}
}
