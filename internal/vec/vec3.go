package vec

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ChunkSize длина ребра кубического чанка в блоках
const ChunkSize = 16

// Vec3 представляет трехмерный вектор с целочисленными координатами.
// Используется как для глобальных координат блоков, так и для координат чанков
// и локальных смещений внутри чанка.
type Vec3 struct {
	X int
	Y int
	Z int
}

// New создает Vec3 из трех координат
func New(x, y, z int) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

// FromFloat переводит непрерывную позицию в координату блока с округлением вниз.
// Корректно обрабатывает отрицательные значения (-0.5 -> -1).
func FromFloat(p mgl64.Vec3) Vec3 {
	return Vec3{
		X: int(math.Floor(p[0])),
		Y: int(math.Floor(p[1])),
		Z: int(math.Floor(p[2])),
	}
}

// Truncate переводит непрерывную позицию в целые координаты отбрасыванием дробной части
func Truncate(p mgl64.Vec3) Vec3 {
	return Vec3{X: int(p[0]), Y: int(p[1]), Z: int(p[2])}
}

// ChunkCoord возвращает координату чанка для одной оси (деление с округлением вниз)
func ChunkCoord(v int) int {
	return FloorDiv(v, ChunkSize)
}

// LocalOffset возвращает смещение внутри чанка в диапазоне [0, ChunkSize)
func LocalOffset(v int) int {
	return ((v % ChunkSize) + ChunkSize) % ChunkSize
}

// FloorDiv выполняет целочисленное деление с округлением к минус бесконечности
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// ToChunkCoords преобразует глобальные координаты блока в координаты чанка
func (v Vec3) ToChunkCoords() Vec3 {
	return Vec3{X: ChunkCoord(v.X), Y: ChunkCoord(v.Y), Z: ChunkCoord(v.Z)}
}

// LocalInChunk возвращает локальные координаты внутри чанка
func (v Vec3) LocalInChunk() Vec3 {
	return Vec3{X: LocalOffset(v.X), Y: LocalOffset(v.Y), Z: LocalOffset(v.Z)}
}

// ChunkOrigin возвращает глобальную координату блока (0,0,0) чанка v
func (v Vec3) ChunkOrigin() Vec3 {
	return Vec3{X: v.X * ChunkSize, Y: v.Y * ChunkSize, Z: v.Z * ChunkSize}
}

// DistanceTo возвращает квадрат расстояния до другого вектора
func (v Vec3) DistanceTo(other Vec3) float64 {
	dx := v.X - other.X
	dy := v.Y - other.Y
	dz := v.Z - other.Z
	return float64(dx*dx + dy*dy + dz*dz)
}

// Equals проверяет равенство векторов
func (v Vec3) Equals(other Vec3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Sub вычитает вектор
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{
		X: v.X - other.X,
		Y: v.Y - other.Y,
		Z: v.Z - other.Z,
	}
}

// Float возвращает вектор в виде mgl64.Vec3
func (v Vec3) Float() mgl64.Vec3 {
	return mgl64.Vec3{float64(v.X), float64(v.Y), float64(v.Z)}
}

// String реализует fmt.Stringer
func (v Vec3) String() string {
	return fmt.Sprintf("(%d, %d, %d)", v.X, v.Y, v.Z)
}
