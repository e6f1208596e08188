package player

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// ViewMode режим камеры клиента
type ViewMode uint8

const (
	FirstPerson ViewMode = iota
	ThirdPerson
)

// FrameInput намерения игрока за один кадр клиента
type FrameInput struct {
	TimeMs  uint64    // Время кадра на часах клиента
	DeltaMs uint64    // Прошедшее с предыдущего кадра время
	Actions ActionSet // Нажатые действия
	Camera  mgl64.Quat

	// Target блок, на который смотрит игрок, для BreakBlock и PlaceBlock
	Target vec.Vec3
	// PlaceID вид блока для PlaceBlock
	PlaceID block.BlockID

	// Поля ниже информационные и не влияют на симуляцию
	HotbarSlot uint8
	ViewMode   ViewMode
	Position   mgl64.Vec3 // Предсказанная клиентом позиция после кадра
}

// NewFrameInput создаёт пустой кадр с камерой по умолчанию
func NewFrameInput(timeMs, deltaMs uint64) FrameInput {
	return FrameInput{TimeMs: timeMs, DeltaMs: deltaMs, Camera: mgl64.QuatIdent()}
}

// Reset начинает новый кадр, сохраняя камеру, слот и режим вида
func (f *FrameInput) Reset(timeMs, deltaMs uint64) {
	f.TimeMs = timeMs
	f.DeltaMs = deltaMs
	f.Actions = 0
}

// Press добавляет действие в кадр
func (f *FrameInput) Press(a Action) {
	f.Actions = f.Actions.With(a)
}

// IsPressed проверяет, было ли действие в кадре
func (f *FrameInput) IsPressed(a Action) bool {
	return f.Actions.Has(a)
}

// Delta возвращает дельту в секундах, ограниченную MaxFrameDeltaMs
func (f *FrameInput) Delta() float64 {
	ms := f.DeltaMs
	if ms > MaxFrameDeltaMs {
		ms = MaxFrameDeltaMs
	}
	return float64(ms) / 1000.0
}
