package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB представляет ограничивающий параллелепипед, выровненный по осям
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// NewAABB создаёт AABB по двум углам. Углы упорядочиваются покомпонентно.
func NewAABB(a, b mgl64.Vec3) AABB {
	return AABB{
		Min: mgl64.Vec3{math.Min(a[0], b[0]), math.Min(a[1], b[1]), math.Min(a[2], b[2])},
		Max: mgl64.Vec3{math.Max(a[0], b[0]), math.Max(a[1], b[1]), math.Max(a[2], b[2])},
	}
}

// UnitCube возвращает AABB единичного блока с минимальным углом в origin
func UnitCube(origin mgl64.Vec3) AABB {
	return AABB{Min: origin, Max: origin.Add(mgl64.Vec3{1, 1, 1})}
}

// Translate возвращает копию, сдвинутую на offset
func (b AABB) Translate(offset mgl64.Vec3) AABB {
	return AABB{Min: b.Min.Add(offset), Max: b.Max.Add(offset)}
}

// Size возвращает размеры по трём осям
func (b AABB) Size() mgl64.Vec3 {
	return b.Max.Sub(b.Min)
}

// Intersects проверяет пересечение двух AABB с ненулевым объёмом.
// Касание гранями пересечением не считается.
func (b AABB) Intersects(other AABB) bool {
	for i := 0; i < 3; i++ {
		lo := math.Max(b.Min[i], other.Min[i])
		hi := math.Min(b.Max[i], other.Max[i])
		if lo >= hi {
			return false
		}
	}
	return true
}

// Contains проверяет, лежит ли точка внутри AABB (границы включительно)
func (b AABB) Contains(p mgl64.Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// BlockRange возвращает целочисленные границы блоков, которые покрывает AABB.
// Границы включительные и вычисляются через floor, поэтому корректны для
// отрицательных координат.
func (b AABB) BlockRange() (minX, minY, minZ, maxX, maxY, maxZ int) {
	return int(math.Floor(b.Min[0])), int(math.Floor(b.Min[1])), int(math.Floor(b.Min[2])),
		int(math.Floor(b.Max[0])), int(math.Floor(b.Max[1])), int(math.Floor(b.Max[2]))
}
