package world

import (
	"math"
	"math/rand"
	"sync"

	"github.com/annel0/blockverse/internal/util"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// Generator внешняя чистая функция генерации чанка: одинаковые координаты и
// сид всегда дают одинаковое содержимое.
type Generator interface {
	GenerateChunk(coord vec.Vec3, seed int64) *Chunk
}

// GeneratorFunc адаптер функции к интерфейсу Generator
type GeneratorFunc func(coord vec.Vec3, seed int64) *Chunk

// GenerateChunk вызывает f
func (f GeneratorFunc) GenerateChunk(coord vec.Vec3, seed int64) *Chunk {
	return f(coord, seed)
}

// BiomeType представляет тип биома
type BiomeType int

const (
	BiomePlains BiomeType = iota
	BiomeForest
	BiomeFlowerPlains
	BiomeMountains
	BiomeDesert
	BiomeIcePlain
	BiomeOcean
)

// biome параметры рельефа биома
type biome struct {
	baseHeight      int
	heightVariation int
	surface         block.BlockID
	subSurface      block.BlockID
	decor           block.BlockID
	decorChance     float64
}

var biomes = map[BiomeType]biome{
	BiomePlains:       {64, 1, block.GrassBlockID, block.DirtBlockID, block.TallGrassBlockID, 0.08},
	BiomeForest:       {64, 2, block.GrassBlockID, block.DirtBlockID, block.LogBlockID, 0.04},
	BiomeFlowerPlains: {64, 1, block.GrassBlockID, block.DirtBlockID, block.FlowerBlockID, 0.15},
	BiomeMountains:    {72, 6, block.StoneBlockID, block.StoneBlockID, block.AirBlockID, 0},
	BiomeDesert:       {64, 1, block.SandBlockID, block.SandBlockID, block.CactusBlockID, 0.01},
	BiomeIcePlain:     {64, 1, block.SnowBlockID, block.IceBlockID, block.AirBlockID, 0},
	BiomeOcean:        {54, 2, block.SandBlockID, block.SandBlockID, block.AirBlockID, 0},
}

// PerlinGenerator генерирует ландшафт по шуму Перлина
type PerlinGenerator struct {
	NoiseScale float64 // Масштаб шума высоты
	BiomeScale float64 // Масштаб шума биомов
	Amplitude  float64 // Множитель вариации высоты
	SeaLevel   int     // Уровень воды

	mu     sync.Mutex
	noises map[int64]*util.Noise
}

// NewPerlinGenerator создаёт генератор с настройками по умолчанию
func NewPerlinGenerator() *PerlinGenerator {
	return &PerlinGenerator{
		NoiseScale: 0.02,
		BiomeScale: 0.005,
		Amplitude:  4,
		SeaLevel:   60,
		noises:     make(map[int64]*util.Noise),
	}
}

func (g *PerlinGenerator) noise(seed int64) *util.Noise {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.noises == nil {
		g.noises = make(map[int64]*util.Noise)
	}
	n, ok := g.noises[seed]
	if !ok {
		n = util.NewNoise(seed)
		g.noises[seed] = n
	}
	return n
}

// BiomeAt возвращает биом колонки
func (g *PerlinGenerator) BiomeAt(x, z int, seed int64) BiomeType {
	v := g.noise(seed+42).Noise2D(float64(x)*g.BiomeScale, float64(z)*g.BiomeScale)
	switch {
	case v < 0.30:
		return BiomeOcean
	case v < 0.40:
		return BiomeDesert
	case v < 0.50:
		return BiomePlains
	case v < 0.58:
		return BiomeFlowerPlains
	case v < 0.68:
		return BiomeForest
	case v < 0.80:
		return BiomeMountains
	default:
		return BiomeIcePlain
	}
}

// ColumnHeight возвращает высоту поверхности колонки
func (g *PerlinGenerator) ColumnHeight(x, z int, seed int64) int {
	b := biomes[g.BiomeAt(x, z, seed)]
	h := g.noise(seed).Noise2D(float64(x)*g.NoiseScale, float64(z)*g.NoiseScale)
	height := b.baseHeight + int(math.Round((h*2-1)*float64(b.heightVariation)*g.Amplitude))
	if height < 1 {
		height = 1
	}
	if height > WorldHeight-8 {
		height = WorldHeight - 8
	}
	return height
}

// GenerateChunk генерирует чанк по его координатам
func (g *PerlinGenerator) GenerateChunk(coord vec.Vec3, seed int64) *Chunk {
	chunk := NewChunk(coord)
	origin := coord.ChunkOrigin()

	// Чанки целиком вне диапазона высот пустые, но существуют
	if origin.Y+vec.ChunkSize <= 0 || origin.Y >= WorldHeight {
		return chunk
	}

	// Для каждого чанка создаем уникальный сид на основе глобального сида и координат
	chunkSeed := seed + int64(coord.X*31) + int64(coord.Z*17) + int64(coord.Y*13)
	rng := rand.New(rand.NewSource(chunkSeed))

	for lz := 0; lz < vec.ChunkSize; lz++ {
		for lx := 0; lx < vec.ChunkSize; lx++ {
			gx := origin.X + lx
			gz := origin.Z + lz
			kind := g.BiomeAt(gx, gz, seed)
			b := biomes[kind]
			height := g.ColumnHeight(gx, gz, seed)
			decorRoll := rng.Float64()

			for ly := 0; ly < vec.ChunkSize; ly++ {
				gy := origin.Y + ly
				id, ok := g.blockAt(gy, height, b, decorRoll)
				if !ok {
					continue
				}
				chunk.SetLocal(vec.New(lx, ly, lz), block.New(id))
			}
		}
	}

	return chunk
}

// blockAt выбирает блок для высоты gy в колонке с поверхностью height
func (g *PerlinGenerator) blockAt(gy, height int, b biome, decorRoll float64) (block.BlockID, bool) {
	switch {
	case gy < 0:
		return 0, false
	case gy == 0:
		return block.BedrockBlockID, true
	case gy < height-3:
		return block.StoneBlockID, true
	case gy < height:
		return b.subSurface, true
	case gy == height:
		if height < g.SeaLevel && b.surface == block.GrassBlockID {
			return block.DirtBlockID, true
		}
		return b.surface, true
	case gy <= g.SeaLevel:
		return block.WaterBlockID, true
	case gy == height+1 && decorRoll < b.decorChance && b.decor != block.AirBlockID:
		return b.decor, true
	default:
		return 0, false
	}
}

// FlatGenerator заполняет мир сплошным слоем до высоты Height включительно
type FlatGenerator struct {
	Height  int
	Surface block.BlockID
	Fill    block.BlockID
}

// GenerateChunk генерирует плоский чанк
func (g FlatGenerator) GenerateChunk(coord vec.Vec3, _ int64) *Chunk {
	chunk := NewChunk(coord)
	origin := coord.ChunkOrigin()

	for ly := 0; ly < vec.ChunkSize; ly++ {
		gy := origin.Y + ly
		if gy < 0 || gy > g.Height {
			continue
		}
		id := g.Fill
		if gy == g.Height {
			id = g.Surface
		}
		for lz := 0; lz < vec.ChunkSize; lz++ {
			for lx := 0; lx < vec.ChunkSize; lx++ {
				chunk.SetLocal(vec.New(lx, ly, lz), block.New(id))
			}
		}
	}
	return chunk
}
