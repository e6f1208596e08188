package world

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/blockverse/internal/physics"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

const (
	// WorldHeight верхняя граница сканирования колонки (не включительно)
	WorldHeight = 256

	// ReadinessRadius радиус окрестности чанков, которая должна быть загружена перед симуляцией
	ReadinessRadius = 1

	// MinReadyChunks минимальное число загруженных чанков окрестности
	MinReadyChunks = 9
)

// HeightAt возвращает наибольший занятый y в колонке (x, z) в диапазоне [0, 256).
// Пустая колонка даёт 0.
func HeightAt(s Store, x, z int) int {
	for y := WorldHeight - 1; y >= 0; y-- {
		if _, ok := s.Get(vec.New(x, y, z)); ok {
			return y
		}
	}
	return 0
}

// HeightAtPosition возвращает высоту колонки под непрерывной позицией.
// Координаты x и z усекаются к нулю.
func HeightAtPosition(s Store, pos mgl64.Vec3) int {
	return HeightAt(s, int(pos[0]), int(pos[2]))
}

// SurroundingChunks перечисляет координаты чанков в кубическом радиусе вокруг
// чанка, содержащего position. Возвращает (2r+1)^3 координат в порядке x, y, z.
func SurroundingChunks(position mgl64.Vec3, radius int) []vec.Vec3 {
	if radius < 0 {
		radius = 0
	}
	center := vec.FromFloat(position).ToChunkCoords()

	side := 2*radius + 1
	out := make([]vec.Vec3, 0, side*side*side)
	for i := -radius; i <= radius; i++ {
		for j := -radius; j <= radius; j++ {
			for k := -radius; k <= radius; k++ {
				out = append(out, vec.New(center.X+i, center.Y+j, center.Z+k))
			}
		}
	}
	return out
}

// CountLoaded возвращает сколько чанков из списка присутствует в хранилище
func CountLoaded(s Store, coords []vec.Vec3) int {
	n := 0
	for _, c := range coords {
		if s.HasChunk(c) {
			n++
		}
	}
	return n
}

// IsReady сообщает, загружено ли достаточно чанков вокруг позиции для симуляции
func IsReady(s Store, position mgl64.Vec3) bool {
	return CountLoaded(s, SurroundingChunks(position, ReadinessRadius)) >= MinReadyChunks
}

// IntersectsSolid проверяет, пересекает ли box твёрдую геометрию.
// Обходит все блоки от floor(min) до floor(max) включительно и возвращает true
// при первом попадании.
func IntersectsSolid(s Store, box physics.AABB) bool {
	minX, minY, minZ, maxX, maxY, maxZ := box.BlockRange()

	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			for z := minZ; z <= maxZ; z++ {
				pos := vec.New(x, y, z)
				b, ok := s.Get(pos)
				if !ok {
					continue
				}

				hitbox := block.HitboxOf(b.ID)
				switch hitbox.Kind {
				case block.HitboxFull:
					return true
				case block.HitboxNone:
					continue
				case block.HitboxBox:
					worldBox, _ := hitbox.WorldBox(pos.Float())
					if box.Intersects(worldBox) {
						return true
					}
				}
			}
		}
	}
	return false
}

// PointIsSolid проверяет, находится ли точка внутри твёрдой геометрии
func PointIsSolid(s Store, p mgl64.Vec3) bool {
	pos := vec.FromFloat(p)
	b, ok := s.Get(pos)
	if !ok {
		return false
	}
	hitbox := block.HitboxOf(b.ID)
	worldBox, solid := hitbox.WorldBox(pos.Float())
	return solid && worldBox.Contains(p)
}
