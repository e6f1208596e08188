package block

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[BlockID]Properties)
)

// Register добавляет свойства блока в регистр.
// Повторная регистрация того же ID перезаписывает предыдущие свойства.
func Register(props Properties) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[props.ID] = props
}

// Get возвращает свойства для указанного ID
func Get(id BlockID) (Properties, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	props, exists := registry[id]
	return props, exists
}

// IsValidBlockID проверяет, является ли ID допустимым идентификатором блока
func IsValidBlockID(id BlockID) bool {
	_, exists := Get(id)
	return exists
}

// HitboxOf возвращает хитбокс блока. Незарегистрированный ID считается полным кубом,
// чтобы неизвестная геометрия не становилась проходимой.
func HitboxOf(id BlockID) Hitbox {
	if props, ok := Get(id); ok {
		return props.Hitbox
	}
	return FullHitbox()
}

// All возвращает все зарегистрированные блоки, отсортированные по ID
func All() []Properties {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]Properties, 0, len(registry))
	for _, p := range registry {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// BlockID представляет идентификатор блока
type BlockID uint16

// Константы ID блоков
const (
	// Базовые типы блоков
	AirBlockID   BlockID = iota // 0
	StoneBlockID                // 1
	GrassBlockID                // 2
	WaterBlockID                // 3
	SandBlockID                 // 4
	DirtBlockID                 // 5
	SnowBlockID                 // 6
	IceBlockID                  // 7
	LogBlockID                  // 8
	LeavesBlockID               // 9
	BedrockBlockID              // 10

	// Декоративные блоки (начиная с 100)
	FlowerBlockID    BlockID = 100 // Цветок, без коллизии
	TallGrassBlockID BlockID = 101 // Трава, без коллизии
	CactusBlockID    BlockID = 102 // Кактус, уже полного блока

	// Частичные блоки (начиная с 200)
	SlabBlockID   BlockID = 200 // Нижняя полублочная плита
	CarpetBlockID BlockID = 201 // Ковёр высотой 1/16
)

// String возвращает имя блока или числовой ID для незарегистрированных
func (id BlockID) String() string {
	if props, ok := Get(id); ok {
		return props.Name
	}
	return fmt.Sprintf("block#%d", uint16(id))
}
