package player

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/blockverse/internal/world"
)

// CheckCollision проверяет, пересекает ли хитбокс игрока в позиции pos твёрдые блоки
func CheckCollision(s world.Store, pos mgl64.Vec3) bool {
	return world.IntersectsSolid(s, HitboxAt(pos))
}
