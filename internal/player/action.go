package player

import "strings"

// Action дискретное действие игрока в кадре
type Action uint8

const (
	MoveForward Action = iota
	MoveBackward
	MoveLeft
	MoveRight
	JumpOrFlyUp
	SneakOrFlyDown
	ToggleFlyMode
	BreakBlock
	PlaceBlock

	actionCount
)

var actionNames = [actionCount]string{
	"MoveForward",
	"MoveBackward",
	"MoveLeft",
	"MoveRight",
	"JumpOrFlyUp",
	"SneakOrFlyDown",
	"ToggleFlyMode",
	"BreakBlock",
	"PlaceBlock",
}

// String возвращает имя действия
func (a Action) String() string {
	if a < actionCount {
		return actionNames[a]
	}
	return "Unknown"
}

// ParseAction возвращает действие по имени
func ParseAction(name string) (Action, bool) {
	for i, n := range actionNames {
		if strings.EqualFold(n, name) {
			return Action(i), true
		}
	}
	return 0, false
}

// ActionSet множество действий в виде битовой маски
type ActionSet uint16

// NewActionSet собирает множество из списка действий
func NewActionSet(actions ...Action) ActionSet {
	var s ActionSet
	for _, a := range actions {
		s = s.With(a)
	}
	return s
}

// Has проверяет наличие действия
func (s ActionSet) Has(a Action) bool {
	return a < actionCount && s&(1<<a) != 0
}

// With возвращает множество с добавленным действием
func (s ActionSet) With(a Action) ActionSet {
	if a >= actionCount {
		return s
	}
	return s | 1<<a
}

// Without возвращает множество без действия
func (s ActionSet) Without(a Action) ActionSet {
	return s &^ (1 << a)
}

// Valid сообщает, что маска не содержит неизвестных битов
func (s ActionSet) Valid() bool {
	return s>>actionCount == 0
}

// Actions возвращает действия множества по порядку
func (s ActionSet) Actions() []Action {
	var out []Action
	for a := Action(0); a < actionCount; a++ {
		if s.Has(a) {
			out = append(out, a)
		}
	}
	return out
}

// String возвращает действия через запятую
func (s ActionSet) String() string {
	actions := s.Actions()
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = a.String()
	}
	return "{" + strings.Join(names, ",") + "}"
}
