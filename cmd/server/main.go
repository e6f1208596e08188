package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/annel0/blockverse/internal/api"
	"github.com/annel0/blockverse/internal/auth"
	"github.com/annel0/blockverse/internal/config"
	"github.com/annel0/blockverse/internal/eventbus"
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/metrics"
	"github.com/annel0/blockverse/internal/network"
	"github.com/annel0/blockverse/internal/observability"
	"github.com/annel0/blockverse/internal/server"
	"github.com/annel0/blockverse/internal/storage"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (по умолчанию $BLOCKVERSE_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	logging.SetLogDirectory(cfg.Logging.Dir)
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	if level, err := logging.ParseLevel(cfg.Logging.Level); err == nil {
		logging.SetDefaultLevel(level, logging.TRACE)
		logging.GetLoggerManager().SetAllLevels(level, logging.TRACE)
	} else {
		logging.Warn("⚠️ Неизвестный уровень логирования %q, используется INFO", cfg.Logging.Level)
	}

	if err := run(cfg); err != nil {
		logging.Error("❌ %v", err)
		logging.CloseDefaultLogger()
		os.Exit(1)
	}
	logging.Info("👋 Сервер успешно остановлен")
}

func run(cfg *config.Config) error {
	logging.Info("🎮 Запуск blockverse сервера...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === ТЕЛЕМЕТРИЯ ===
	if cfg.Telemetry.Enabled {
		shutdown, err := observability.InitTelemetry(ctx, observability.Options{
			ServiceName: "blockverse-server",
			Endpoint:    cfg.Telemetry.Endpoint,
			Insecure:    cfg.Telemetry.Insecure,
			SampleRatio: cfg.Telemetry.SampleRatio,
		})
		if err != nil {
			return fmt.Errorf("инициализация телеметрии: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(sctx)
		}()
		logging.Info("🔭 Трассировка включена")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// === ХРАНИЛИЩА ===
	worldStorage, err := storage.NewWorldStorage(cfg.Server.DataDir)
	if err != nil {
		return err
	}
	defer worldStorage.Close()

	seed, err := resolveSeed(cfg, worldStorage)
	if err != nil {
		return err
	}
	logging.Info("🌍 Сид мира: %d", seed)

	positions, closePositions, err := openPositionRepo(ctx, cfg)
	if err != nil {
		return err
	}
	defer closePositions()

	// === ШИНА СОБЫТИЙ ===
	bus, err := openEventBus(cfg)
	if err != nil {
		return err
	}
	defer bus.Close()

	if sub, err := eventbus.StartLoggingListener(bus); err != nil {
		logging.Warn("⚠️ Логирование событий недоступно: %v", err)
	} else {
		defer sub.Unsubscribe()
	}
	exporter := eventbus.NewMetricsExporter(bus, reg)
	exporter.Start()
	defer exporter.Stop()

	// === СИМУЛЯЦИЯ ===
	authority := server.NewAuthority(server.Config{
		Seed:           seed,
		TickRate:       cfg.Server.TickRate,
		RenderDistance: cfg.World.RenderDistance,
		ChunkBudget:    cfg.World.ChunkBudget,
		Autosave:       cfg.Server.Autosave(),
		Generator: &storage.LoadingGenerator{
			Storage:  worldStorage,
			Fallback: newGenerator(cfg),
		},
		Positions: positions,
		Chunks:    worldStorage,
		Events:    eventbus.NewPublisher(bus, "server"),
		Metrics:   metrics.NewTickMetrics(reg),
		Tracer:    observability.Tracer(),
	})

	// === АУТЕНТИФИКАЦИЯ ===
	tokens, err := auth.NewTokenIssuer(cfg.Auth.Secret, cfg.Auth.TTL())
	if err != nil {
		return fmt.Errorf("инициализация токенов: %w", err)
	}
	if cfg.Auth.Secret == "" {
		logging.Warn("⚠️ auth.secret не задан, токены действительны только до перезапуска")
	}
	registry := auth.NewPlayerRegistry()

	// === СЕТЬ ===
	gameAddr := fmt.Sprintf(":%d", cfg.Server.GetGamePort())
	gameServer := network.NewServer(gameAddr, authority, tokens)
	authority.SetBroadcaster(gameServer)
	if err := gameServer.Start(); err != nil {
		return err
	}
	defer gameServer.Stop()

	restPort := fmt.Sprintf(":%d", cfg.Server.GetRESTPort())
	restServer := api.NewRestServer(api.Config{
		Port:       restPort,
		Simulation: authority,
		Registry:   registry,
		Tokens:     tokens,
		Prometheus: reg,
		Online:     gameServer.ClientCount,
	})
	restServer.Start()
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := restServer.Shutdown(sctx); err != nil {
			logging.Error("❌ Ошибка остановки REST API: %v", err)
		}
	}()

	metricsAddr := fmt.Sprintf(":%d", cfg.Server.GetMetricsPort())
	metricsServer := &http.Server{
		Addr:              metricsAddr,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("❌ Сервер метрик: %v", err)
		}
	}()
	defer metricsServer.Close()

	logging.Info("✅ Все сервисы запущены и готовы принимать соединения")
	logging.Info("   🎮 Игровой трафик: KCP %s", gameAddr)
	logging.Info("   🌐 REST API: http://localhost%s", restPort)
	logging.Info("   📈 Метрики: http://localhost%s/metrics", metricsAddr)
	logging.Info("💡 Получить токен: curl -X POST http://localhost%s/api/session -d '{\"name\":\"steve\"}'", restPort)

	// Run возвращается после отмены контекста и финального сохранения
	err = authority.Run(ctx)
	logging.Info("📡 Получен сигнал завершения, остановка сервисов...")
	return err
}

func resolveSeed(cfg *config.Config, ws *storage.WorldStorage) (int64, error) {
	stored, ok, err := ws.Seed()
	if err != nil {
		return 0, fmt.Errorf("чтение сида: %w", err)
	}
	switch {
	case ok && cfg.Server.Seed != 0 && cfg.Server.Seed != stored:
		logging.Warn("⚠️ Сид %d из конфигурации игнорируется, мир создан с сидом %d", cfg.Server.Seed, stored)
		return stored, nil
	case ok:
		return stored, nil
	}

	seed := cfg.Server.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if err := ws.SetSeed(seed); err != nil {
		return 0, fmt.Errorf("сохранение сида: %w", err)
	}
	return seed, nil
}

func newGenerator(cfg *config.Config) world.Generator {
	if cfg.World.Generator == "flat" {
		return world.FlatGenerator{
			Height:  cfg.World.FlatHeight,
			Surface: block.GrassBlockID,
			Fill:    block.DirtBlockID,
		}
	}
	gen := world.NewPerlinGenerator()
	if cfg.World.NoiseScale > 0 {
		gen.NoiseScale = cfg.World.NoiseScale
	}
	return gen
}

func openPositionRepo(ctx context.Context, cfg *config.Config) (storage.PositionRepo, func(), error) {
	switch cfg.Storage.Positions {
	case "redis":
		rc := storage.DefaultRedisConfig()
		rc.Addr = cfg.Storage.Redis.Addr
		rc.Password = cfg.Storage.Redis.Password
		rc.DB = cfg.Storage.Redis.DB
		repo, err := storage.NewRedisPositionRepo(ctx, rc)
		if err != nil {
			return nil, nil, fmt.Errorf("подключение к Redis: %w", err)
		}
		logging.Info("💾 Позиции игроков: Redis %s", rc.Addr)
		return repo, func() { _ = repo.Close() }, nil
	case "maria":
		repo, err := storage.NewMariaPositionRepo(ctx, cfg.Storage.MariaDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("подключение к MariaDB: %w", err)
		}
		logging.Info("💾 Позиции игроков: MariaDB")
		return repo, func() { _ = repo.Close() }, nil
	default:
		logging.Info("💾 Позиции игроков: память (не переживут перезапуск)")
		return storage.NewMemoryPositionRepo(), func() {}, nil
	}
}

func openEventBus(cfg *config.Config) (eventbus.EventBus, error) {
	if cfg.EventBus.URL == "" {
		logging.Info("📨 Шина событий: память")
		return eventbus.NewMemoryBus(1024), nil
	}
	bus, err := eventbus.NewJetStreamBus(cfg.EventBus.URL, cfg.EventBus.Stream, cfg.EventBus.RetentionDuration())
	if err != nil {
		return nil, fmt.Errorf("подключение к NATS: %w", err)
	}
	logging.Info("📨 Шина событий: JetStream %s (%s)", cfg.EventBus.URL, cfg.EventBus.Stream)
	return bus, nil
}
