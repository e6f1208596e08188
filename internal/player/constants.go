package player

import "github.com/go-gl/mathgl/mgl64"

// Параметры движения. Значения общие для клиента и сервера: любое расхождение
// ломает предсказание.
const (
	// Speed базовая горизонтальная скорость, блоков в секунду
	Speed = 5.0
	// FlySpeedMultiplier множитель скорости в режиме полёта
	FlySpeedMultiplier = 4.0
	// Gravity ускорение свободного падения, блоков/с²
	Gravity = -20.0
	// JumpVelocity вертикальная скорость в момент прыжка (высота прыжка около 1.6 блока)
	JumpVelocity = 8.0
	// MaxVerticalSpeed ограничение модуля вертикальной скорости
	MaxVerticalSpeed = 40.0

	// FallLimit высота, ниже которой игрок возвращается на точку возрождения
	FallLimit = -50.0

	// MaxFrameDeltaMs верхняя граница дельты одного кадра
	MaxFrameDeltaMs = 250

	// Width ширина хитбокса игрока по X и Z
	Width = 0.8
	// Height высота хитбокса игрока
	Height = 1.8
	// EyeHeight высота глаз над ногами
	EyeHeight = 1.6
	// BlockReach дальность действий с блоками от глаз до центра блока
	BlockReach = 5.0
)

// RespawnPosition точка, куда переносится выпавший из мира игрок
var RespawnPosition = mgl64.Vec3{0, 100, 0}
