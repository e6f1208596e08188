package block

// Direction ориентация блока по сторонам света
type Direction uint8

const (
	North Direction = iota
	East
	South
	West
)

// Block данные одного блока в чанке.
// Значение сравнимо через ==, что используется в тестах детерминизма и в протоколе.
type Block struct {
	ID               BlockID
	Direction        Direction
	Flipped          bool
	BreakingProgress uint8
}

// New создаёт блок с ориентацией по умолчанию
func New(id BlockID) Block {
	return Block{ID: id}
}

// Hitbox возвращает хитбокс вида блока
func (b Block) Hitbox() Hitbox {
	return HitboxOf(b.ID)
}

// Properties статические свойства вида блока
type Properties struct {
	ID     BlockID
	Name   string
	Hitbox Hitbox
	// Hardness количество тиков разрушения; 0 неразрушимый
	Hardness uint8
}
