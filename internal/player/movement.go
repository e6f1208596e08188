package player

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/blockverse/internal/world"
)

// Simulate продвигает состояние игрока на один кадр ввода.
//
// Функция чистая: результат зависит только от игрока, мира и кадра, поэтому
// клиент и сервер получают побитово одинаковое состояние. Возвращает false,
// если кадр пропущен (мир вокруг не загружен или нулевая дельта); в этом
// случае игрок не изменяется.
func Simulate(p *Player, s world.Store, in *FrameInput) bool {
	if !world.IsReady(s, p.Position) {
		return false
	}
	if in.DeltaMs == 0 {
		return false
	}

	delta := in.Delta()

	if in.IsPressed(ToggleFlyMode) {
		p.IsFlying = !p.IsFlying
	}

	p.Camera = in.Camera

	direction := movementDirection(in)

	if p.IsFlying {
		step := float64(Speed * FlySpeedMultiplier * delta)
		p.Position = mgl64.Vec3{
			addScaled(p.Position[0], direction[0], step),
			addScaled(p.Position[1], direction[1], step),
			addScaled(p.Position[2], direction[2], step),
		}
		p.Velocity[1] = 0
		p.OnGround = false
	} else {
		walk(p, s, direction, delta, in.IsPressed(JumpOrFlyUp))
	}

	if p.Position[1] < FallLimit {
		p.Position = RespawnPosition
		p.Velocity[1] = 0
	}

	return true
}

// walk разрешает движение по осям x, y, z по очереди. Порядок осей определяет
// поведение на углах и должен совпадать на клиенте и сервере.
func walk(p *Player, s world.Store, direction mgl64.Vec3, delta float64, jump bool) {
	vy := clamp(p.Velocity[1], -MaxVerticalSpeed, MaxVerticalSpeed)
	p.Velocity[1] = vy

	step := float64(Speed * delta)

	candidate := p.Position
	candidate[0] = addScaled(p.Position[0], direction[0], step)
	if !CheckCollision(s, candidate) {
		p.Position = candidate
	}

	candidate = p.Position
	candidate[1] = addScaled(p.Position[1], vy, delta)
	if CheckCollision(s, candidate) {
		p.OnGround = true
		p.Velocity[1] = 0
	} else {
		p.Position = candidate
		p.OnGround = false
	}

	candidate = p.Position
	candidate[2] = addScaled(p.Position[2], direction[2], step)
	if !CheckCollision(s, candidate) {
		p.Position = candidate
	}

	if p.OnGround && jump {
		p.Velocity[1] = JumpVelocity
		p.OnGround = false
	} else if !p.OnGround {
		p.Velocity[1] = addScaled(p.Velocity[1], Gravity, delta)
	}
}

// movementDirection собирает направление движения из действий кадра.
// Горизонтальная часть нормирована, вертикальная добавляется после нормировки.
func movementDirection(in *FrameInput) mgl64.Vec3 {
	forward := horizontalForward(in.Camera)
	right := horizontalRight(in.Camera)

	var x, z float64
	if in.IsPressed(MoveBackward) {
		x -= forward[0]
		z -= forward[1]
	}
	if in.IsPressed(MoveForward) {
		x += forward[0]
		z += forward[1]
	}
	if in.IsPressed(MoveLeft) {
		x -= right[0]
		z -= right[1]
	}
	if in.IsPressed(MoveRight) {
		x += right[0]
		z += right[1]
	}

	x, z = normalize2(x, z)

	var y float64
	if in.IsPressed(JumpOrFlyUp) {
		y++
	}
	if in.IsPressed(SneakOrFlyDown) {
		y--
	}

	return mgl64.Vec3{x, y, z}
}

// horizontalForward возвращает проекцию вектора взгляда камеры (-Z) на плоскость XZ.
// Вырожденная проекция (камера смотрит вертикально) даёт нулевой вектор.
func horizontalForward(q mgl64.Quat) [2]float64 {
	w, qx, qy, qz := q.W, q.V[0], q.V[1], q.V[2]
	fx := -(2 * (float64(qx*qz) + float64(w*qy)))
	fz := -(1 - 2*(float64(qx*qx)+float64(qy*qy)))
	fx, fz = normalize2(fx, fz)
	return [2]float64{fx, fz}
}

// horizontalRight возвращает проекцию правого вектора камеры (+X) на плоскость XZ
func horizontalRight(q mgl64.Quat) [2]float64 {
	w, qx, qy, qz := q.W, q.V[0], q.V[1], q.V[2]
	rx := 1 - 2*(float64(qy*qy)+float64(qz*qz))
	rz := 2 * (float64(qx*qz) - float64(w*qy))
	rx, rz = normalize2(rx, rz)
	return [2]float64{rx, rz}
}

// minDirectionLength длина, ниже которой направление считается нулевым
const minDirectionLength = 1e-9

// normalize2 нормирует двумерный вектор. Нулевой, слишком короткий или
// содержащий NaN вектор превращается в ноль.
func normalize2(x, z float64) (float64, float64) {
	l := math.Sqrt(float64(x*x) + float64(z*z))
	if !(l > minDirectionLength) || math.IsInf(l, 0) {
		return 0, 0
	}
	return x / l, z / l
}

// addScaled возвращает a + b*s. Явное приведение произведения к float64 запрещает
// компилятору объединять операции в FMA, результат одинаков на всех архитектурах.
func addScaled(a, b, s float64) float64 {
	return a + float64(b*s)
}

// clamp ограничивает v диапазоном [lo, hi]; NaN превращается в 0
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
