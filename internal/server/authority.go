package server

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/annel0/blockverse/internal/eventbus"
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/metrics"
	"github.com/annel0/blockverse/internal/player"
	"github.com/annel0/blockverse/internal/storage"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
)

var (
	// ErrUnknownPlayer игрок не подключен
	ErrUnknownPlayer = errors.New("неизвестный игрок")
	// ErrAlreadyJoined игрок уже на сервере
	ErrAlreadyJoined = errors.New("игрок уже подключен")
	// ErrAlreadyRunning игровой цикл уже запущен
	ErrAlreadyRunning = errors.New("игровой цикл уже запущен")
)

const (
	// TicksPerSecond частота серверных тиков по умолчанию
	TicksPerSecond = 20
	// DefaultRenderDistance радиус потоковой отправки чанков
	DefaultRenderDistance = 4
	// DefaultChunkBudget сколько чанков вне обязательной окрестности генерируется за тик
	DefaultChunkBudget = 16
	// MaxPendingInputs лимит необработанных кадров одного игрока
	MaxPendingInputs = 64
	// DefaultAutosaveInterval период сохранения состояния игроков
	DefaultAutosaveInterval = 30 * time.Second
)

// Broadcaster доставка результатов тика клиентам
type Broadcaster interface {
	// BroadcastUpdate рассылает снимок игрока всем клиентам
	BroadcastUpdate(snap player.Snapshot)
	// SendChunk отправляет чанк одному игроку
	SendChunk(playerID uint64, c *world.Chunk)
	// BroadcastLeft сообщает всем об отключении игрока
	BroadcastLeft(playerID uint64)
}

// ChunkSink получает изменённые чанки после тика
type ChunkSink interface {
	SaveChunks(chunks []*world.Chunk) error
}

// Config зависимости и параметры Authority. Необязательные поля могут быть nil.
type Config struct {
	Seed           int64
	TickRate       int
	RenderDistance int
	ChunkBudget    int
	Autosave       time.Duration

	Generator   world.Generator
	Positions   storage.PositionRepo
	Chunks      ChunkSink
	Events      *eventbus.Publisher
	Metrics     *metrics.TickMetrics
	Tracer      trace.Tracer
	Broadcaster Broadcaster
}

// Stats накопленная статистика игрового цикла
type Stats struct {
	Ticks           uint64
	InputsApplied   uint64
	InputsDropped   uint64
	ChunksGenerated uint64
	ChunksSaved     uint64
	ChunksSent      uint64
	BlocksPlaced    uint64
	BlocksBroken    uint64
	Players         int
	LoadedChunks    int
	LastTick        time.Duration
}

type queuedInput struct {
	playerID uint64
	input    player.FrameInput
}

type chunkDelivery struct {
	playerID uint64
	chunk    *world.Chunk
}

// Authority авторитетная симуляция сервера. Владеет картой мира и игроками;
// все изменения происходят внутри Tick под одной блокировкой.
type Authority struct {
	mu sync.Mutex
	// broadcastMu берётся под mu и держится до конца рассылки,
	// чтобы снимки тика и PlayerLeft уходили в порядке изменения состояния
	broadcastMu sync.Mutex

	cfg     Config
	world   *world.ServerMap
	players map[uint64]*player.Player
	pending map[uint64]int
	inbox   []queuedInput

	stats   Stats
	running bool
	log     *logging.Logger
}

// NewAuthority создаёт сервер с пустым миром
func NewAuthority(cfg Config) *Authority {
	return NewAuthorityWithWorld(cfg, world.NewServerMap())
}

// NewAuthorityWithWorld создаёт сервер поверх готовой карты
func NewAuthorityWithWorld(cfg Config, m *world.ServerMap) *Authority {
	if cfg.TickRate <= 0 {
		cfg.TickRate = TicksPerSecond
	}
	if cfg.RenderDistance <= 0 {
		cfg.RenderDistance = DefaultRenderDistance
	}
	if cfg.ChunkBudget < 0 {
		cfg.ChunkBudget = 0
	}
	if cfg.Autosave <= 0 {
		cfg.Autosave = DefaultAutosaveInterval
	}
	if cfg.Generator == nil {
		cfg.Generator = world.NewPerlinGenerator()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = noop.NewTracerProvider().Tracer("")
	}
	return &Authority{
		cfg:     cfg,
		world:   m,
		players: make(map[uint64]*player.Player),
		pending: make(map[uint64]int),
		log:     logging.GetServerLogger(),
	}
}

// SetBroadcaster задаёт получателя результатов тика.
// Вызывается до Run: сетевой сервер создаётся после Authority.
func (a *Authority) SetBroadcaster(b Broadcaster) {
	a.mu.Lock()
	a.cfg.Broadcaster = b
	a.mu.Unlock()
}

// Seed зерно мира
func (a *Authority) Seed() int64 {
	return a.cfg.Seed
}

// TickRate частота тиков
func (a *Authority) TickRate() int {
	return a.cfg.TickRate
}

// Join добавляет игрока. Позиция берётся из хранилища, иначе над колонкой (0, 0).
func (a *Authority) Join(ctx context.Context, id uint64, name string) (player.Snapshot, error) {
	var (
		saved storage.PlayerState
		found bool
	)
	if a.cfg.Positions != nil {
		var err error
		saved, found, err = a.cfg.Positions.Load(ctx, id)
		if err != nil {
			a.log.Warn("⚠️ Не удалось загрузить состояние игрока %d: %v", id, err)
		}
	}

	a.mu.Lock()
	if _, ok := a.players[id]; ok {
		a.mu.Unlock()
		return player.Snapshot{}, fmt.Errorf("%w: %d", ErrAlreadyJoined, id)
	}

	var pos mgl64.Vec3
	if found {
		pos = saved.Position
	} else {
		pos = a.spawnPointLocked()
	}
	p := player.New(id, name, pos)
	p.IsFlying = found && saved.IsFlying
	a.players[id] = p
	snap := p.Snapshot()
	a.mu.Unlock()

	a.log.Info("👤 Игрок %s (%d) подключился в %v", name, id, pos)
	if err := a.cfg.Events.PlayerJoined(ctx, id, name, pos); err != nil {
		a.log.Warn("⚠️ Событие входа игрока %d не опубликовано: %v", id, err)
	}
	return snap, nil
}

// spawnPointLocked генерирует колонку чанков над (0, 0) и возвращает точку над поверхностью
func (a *Authority) spawnPointLocked() mgl64.Vec3 {
	column := make([]vec.Vec3, 0, world.WorldHeight/vec.ChunkSize)
	for cy := 0; cy < world.WorldHeight/vec.ChunkSize; cy++ {
		column = append(column, vec.New(0, cy, 0))
	}
	generated := a.world.EnsureChunks(column, a.cfg.Generator, a.cfg.Seed)
	a.stats.ChunksGenerated += uint64(len(generated))
	return mgl64.Vec3{0, float64(world.HeightAt(a.world, 0, 0) + 1), 0}
}

// Leave удаляет игрока и сохраняет его состояние
func (a *Authority) Leave(ctx context.Context, id uint64) error {
	a.mu.Lock()
	p, ok := a.players[id]
	if !ok {
		a.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrUnknownPlayer, id)
	}
	delete(a.players, id)
	delete(a.pending, id)
	a.world.ForgetPlayer(id)
	player.StopBreaking(p, a.world)
	state := storage.PlayerState{Position: p.Position, IsFlying: p.IsFlying, UpdatedAt: time.Now()}
	b := a.cfg.Broadcaster
	a.broadcastMu.Lock()
	a.mu.Unlock()

	if b != nil {
		b.BroadcastLeft(id)
	}
	a.broadcastMu.Unlock()

	if a.cfg.Positions != nil {
		if err := a.cfg.Positions.Save(ctx, id, state); err != nil {
			a.log.Error("❌ Не удалось сохранить состояние игрока %d: %v", id, err)
		}
	}
	if err := a.cfg.Events.PlayerLeft(ctx, id, state.Position); err != nil {
		a.log.Warn("⚠️ Событие выхода игрока %d не опубликовано: %v", id, err)
	}
	a.log.Info("👋 Игрок %s (%d) отключился", p.Name, id)
	return nil
}

// Enqueue ставит кадры ввода игрока в очередь следующего тика в порядке поступления.
// Кадры сверх MaxPendingInputs отбрасываются. Возвращает число принятых кадров.
func (a *Authority) Enqueue(id uint64, inputs ...player.FrameInput) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.players[id]; !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownPlayer, id)
	}
	accepted := 0
	for _, in := range inputs {
		if a.pending[id] >= MaxPendingInputs {
			a.stats.InputsDropped++
			continue
		}
		a.pending[id]++
		a.inbox = append(a.inbox, queuedInput{playerID: id, input: in})
		accepted++
	}
	return accepted, nil
}

// Tick выполняет один шаг симуляции: догружает чанки вокруг игроков,
// применяет очередь ввода, рассылает снимки и новые чанки, сохраняет изменённые чанки.
func (a *Authority) Tick(ctx context.Context) {
	start := time.Now()
	ctx, span := a.cfg.Tracer.Start(ctx, "server.tick")
	defer span.End()

	a.mu.Lock()
	sample := metrics.TickSample{}

	ids := a.playerIDsLocked()
	sample.ChunksGenerated = a.ensureChunksLocked(ids)

	applied, dropped := a.applyInputsLocked()
	sample.InputsApplied = applied
	sample.InputsDropped = dropped

	snapshots := make([]player.Snapshot, 0, len(ids))
	for _, id := range ids {
		snapshots = append(snapshots, a.players[id].Snapshot())
	}
	deliveries := a.collectChunksLocked(ids)
	sample.ChunksSent = len(deliveries)

	var dirty []*world.Chunk
	for _, coord := range a.world.DrainUpdates() {
		if c, ok := a.world.Chunk(coord); ok {
			dirty = append(dirty, c.Clone())
		}
	}

	a.stats.Ticks++
	a.stats.InputsApplied += uint64(applied)
	a.stats.InputsDropped += uint64(dropped)
	a.stats.ChunksGenerated += uint64(sample.ChunksGenerated)
	a.stats.ChunksSent += uint64(len(deliveries))
	sample.Players = len(a.players)
	sample.LoadedChunks = a.world.ChunkCount()
	b := a.cfg.Broadcaster
	a.broadcastMu.Lock()
	a.mu.Unlock()

	if b != nil {
		for _, snap := range snapshots {
			b.BroadcastUpdate(snap)
		}
		for _, d := range deliveries {
			b.SendChunk(d.playerID, d.chunk)
		}
	}
	a.broadcastMu.Unlock()

	sample.ChunksSaved = a.persistChunks(ctx, dirty)

	sample.Duration = time.Since(start)
	a.mu.Lock()
	a.stats.ChunksSaved += uint64(sample.ChunksSaved)
	a.stats.LastTick = sample.Duration
	a.mu.Unlock()

	a.cfg.Metrics.Observe(sample)
	span.SetAttributes(
		attribute.Int("players", sample.Players),
		attribute.Int("inputs.applied", sample.InputsApplied),
		attribute.Int("chunks.generated", sample.ChunksGenerated),
		attribute.Int("chunks.sent", sample.ChunksSent),
	)
}

func (a *Authority) playerIDsLocked() []uint64 {
	ids := make([]uint64, 0, len(a.players))
	for id := range a.players {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ensureChunksLocked генерирует окрестность радиуса 1 каждого игрока целиком
// и до ChunkBudget чанков дальней зоны, ближние первыми
func (a *Authority) ensureChunksLocked(ids []uint64) int {
	seen := make(map[vec.Vec3]struct{})
	var required []vec.Vec3
	for _, id := range ids {
		for _, c := range world.SurroundingChunks(a.players[id].Position, world.ReadinessRadius) {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			required = append(required, c)
		}
	}
	generated := len(a.world.EnsureChunks(required, a.cfg.Generator, a.cfg.Seed))

	if a.cfg.ChunkBudget == 0 {
		return generated
	}
	type candidate struct {
		coord vec.Vec3
		dist  int
	}
	var extra []candidate
	for _, id := range ids {
		center := vec.FromFloat(a.players[id].Position).ToChunkCoords()
		for _, c := range world.SurroundingChunks(a.players[id].Position, a.cfg.RenderDistance) {
			if _, ok := seen[c]; ok || c.Y < 0 || c.Y >= world.WorldHeight/vec.ChunkSize {
				continue
			}
			seen[c] = struct{}{}
			if a.world.HasChunk(c) {
				continue
			}
			extra = append(extra, candidate{coord: c, dist: chebyshev(center, c)})
		}
	}
	sort.SliceStable(extra, func(i, j int) bool { return extra[i].dist < extra[j].dist })
	if len(extra) > a.cfg.ChunkBudget {
		extra = extra[:a.cfg.ChunkBudget]
	}
	coords := make([]vec.Vec3, len(extra))
	for i, c := range extra {
		coords[i] = c.coord
	}
	return generated + len(a.world.EnsureChunks(coords, a.cfg.Generator, a.cfg.Seed))
}

func chebyshev(a, b vec.Vec3) int {
	d := func(x int) int {
		if x < 0 {
			return -x
		}
		return x
	}
	m := d(a.X - b.X)
	if v := d(a.Y - b.Y); v > m {
		m = v
	}
	if v := d(a.Z - b.Z); v > m {
		m = v
	}
	return m
}

// applyInputsLocked применяет очередь ввода в порядке поступления.
// Кадры ушедших игроков и повторы уже подтверждённого времени отбрасываются.
// Установка блока выполняется в своём кадре, разрушение продвигается
// на один шаг за тик по последнему кадру игрока.
func (a *Authority) applyInputsLocked() (applied, dropped int) {
	last := make(map[uint64]player.FrameInput)
	for i := range a.inbox {
		q := &a.inbox[i]
		p, ok := a.players[q.playerID]
		if !ok {
			dropped++
			continue
		}
		if q.input.TimeMs != 0 && q.input.TimeMs <= p.LastInputProcessed {
			dropped++
			continue
		}
		player.Simulate(p, a.world, &q.input)
		p.LastInputProcessed = q.input.TimeMs
		if q.input.IsPressed(player.PlaceBlock) && player.TryPlace(p, a.world, q.input.Target, q.input.PlaceID) {
			a.stats.BlocksPlaced++
			a.log.Debug("Игрок %d поставил блок %d в %s", p.ID, q.input.PlaceID, q.input.Target)
		}
		last[q.playerID] = q.input
		applied++
	}
	a.inbox = a.inbox[:0]
	for id := range a.pending {
		delete(a.pending, id)
	}

	for _, id := range a.playerIDsLocked() {
		in, ok := last[id]
		if !ok {
			continue
		}
		p := a.players[id]
		if !in.IsPressed(player.BreakBlock) {
			player.StopBreaking(p, a.world)
			continue
		}
		if player.AdvanceBreaking(p, a.world, in.Target) == player.BlockBroken {
			a.stats.BlocksBroken++
			a.log.Debug("Игрок %d разрушил блок в %s", id, in.Target)
		}
	}
	return applied, dropped
}

// collectChunksLocked отбирает загруженные чанки зоны видимости, ещё не отправленные игроку
func (a *Authority) collectChunksLocked(ids []uint64) []chunkDelivery {
	var out []chunkDelivery
	for _, id := range ids {
		for _, coord := range world.SurroundingChunks(a.players[id].Position, a.cfg.RenderDistance) {
			c, ok := a.world.Chunk(coord)
			if !ok || c.WasSentTo(id) {
				continue
			}
			c.MarkSent(id)
			out = append(out, chunkDelivery{playerID: id, chunk: c.Clone()})
		}
	}
	return out
}

func (a *Authority) persistChunks(ctx context.Context, dirty []*world.Chunk) int {
	if len(dirty) == 0 || a.cfg.Chunks == nil {
		return 0
	}
	if err := a.cfg.Chunks.SaveChunks(dirty); err != nil {
		a.log.Error("❌ Не удалось сохранить %d чанков: %v", len(dirty), err)
		return 0
	}
	coords := make([]vec.Vec3, len(dirty))
	for i, c := range dirty {
		coords[i] = c.Coords
	}
	if err := a.cfg.Events.ChunksSaved(ctx, coords); err != nil {
		a.log.Warn("⚠️ Событие сохранения чанков не опубликовано: %v", err)
	}
	return len(dirty)
}

// Run запускает игровой цикл с частотой TickRate до отмены контекста.
// При выходе сохраняет состояние всех игроков.
func (a *Authority) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return ErrAlreadyRunning
	}
	a.running = true
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	ticker := time.NewTicker(time.Second / time.Duration(a.cfg.TickRate))
	defer ticker.Stop()
	autosave := time.NewTicker(a.cfg.Autosave)
	defer autosave.Stop()

	a.log.Info("⏱️ Игровой цикл запущен: %d TPS", a.cfg.TickRate)
	for {
		select {
		case <-ctx.Done():
			saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := a.SaveAll(saveCtx)
			cancel()
			a.log.Info("🛑 Игровой цикл остановлен после %d тиков", a.Stats().Ticks)
			return err
		case <-ticker.C:
			a.Tick(ctx)
		case <-autosave.C:
			if err := a.SaveAll(ctx); err != nil {
				a.log.Error("❌ Автосохранение: %v", err)
			}
		}
	}
}

// SaveAll сохраняет состояние всех подключенных игроков
func (a *Authority) SaveAll(ctx context.Context) error {
	if a.cfg.Positions == nil {
		return nil
	}
	a.mu.Lock()
	states := make(map[uint64]storage.PlayerState, len(a.players))
	now := time.Now()
	for id, p := range a.players {
		states[id] = storage.PlayerState{Position: p.Position, IsFlying: p.IsFlying, UpdatedAt: now}
	}
	a.mu.Unlock()

	if err := a.cfg.Positions.BatchSave(ctx, states); err != nil {
		return fmt.Errorf("сохранение %d игроков: %w", len(states), err)
	}
	return nil
}

// Stats возвращает копию статистики
func (a *Authority) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.stats
	s.Players = len(a.players)
	s.LoadedChunks = a.world.ChunkCount()
	return s
}

// Players возвращает снимки всех игроков по возрастанию ID
func (a *Authority) Players() []player.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	ids := a.playerIDsLocked()
	out := make([]player.Snapshot, 0, len(ids))
	for _, id := range ids {
		out = append(out, a.players[id].Snapshot())
	}
	return out
}

// Player возвращает копию состояния игрока
func (a *Authority) Player(id uint64) (*player.Player, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.players[id]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// HeightAt высота колонки по загруженным чанкам. false, если чанк колонки не загружен.
func (a *Authority) HeightAt(x, z int) (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	coord := vec.New(x, 0, z).ToChunkCoords()
	if !a.world.HasChunk(coord) {
		return 0, false
	}
	return world.HeightAt(a.world, x, z), true
}

// WithWorld выполняет fn под блокировкой симуляции
func (a *Authority) WithWorld(fn func(m *world.ServerMap)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(a.world)
}
