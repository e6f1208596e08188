package block

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/blockverse/internal/physics"
)

// HitboxKind вид геометрии столкновений блока
type HitboxKind uint8

const (
	// HitboxNone блок никогда не сталкивается (воздух, цветы)
	HitboxNone HitboxKind = iota
	// HitboxFull блок занимает весь единичный куб
	HitboxFull
	// HitboxBox блок занимает часть куба, заданную Box в локальных координатах [0,1]
	HitboxBox
)

// Hitbox описывает геометрию столкновений для вида блока
type Hitbox struct {
	Kind HitboxKind
	// Box задан относительно минимального угла блока, используется только для HitboxBox
	Box physics.AABB
}

// NoHitbox возвращает хитбокс без коллизии
func NoHitbox() Hitbox { return Hitbox{Kind: HitboxNone} }

// FullHitbox возвращает хитбокс полного куба
func FullHitbox() Hitbox { return Hitbox{Kind: HitboxFull} }

// BoxHitbox возвращает частичный хитбокс с углами в локальных координатах блока
func BoxHitbox(min, max mgl64.Vec3) Hitbox {
	return Hitbox{Kind: HitboxBox, Box: physics.NewAABB(min, max)}
}

// WorldBox возвращает хитбокс блока в глобальных координатах.
// Для HitboxNone второй результат false.
func (h Hitbox) WorldBox(origin mgl64.Vec3) (physics.AABB, bool) {
	switch h.Kind {
	case HitboxFull:
		return physics.UnitCube(origin), true
	case HitboxBox:
		return h.Box.Translate(origin), true
	default:
		return physics.AABB{}, false
	}
}
