package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/blockverse/internal/auth"
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/middleware"
	"github.com/annel0/blockverse/internal/player"
	"github.com/annel0/blockverse/internal/server"
)

// Simulation данные симуляции, которые отдаёт REST API
type Simulation interface {
	Players() []player.Snapshot
	Player(id uint64) (*player.Player, bool)
	Stats() server.Stats
	HeightAt(x, z int) (int, bool)
	Seed() int64
}

// RestServer административный REST API сервера
type RestServer struct {
	router   *gin.Engine
	sim      Simulation
	registry *auth.PlayerRegistry
	tokens   *auth.TokenIssuer
	metrics  *HostMetrics
	logger   *logging.Logger
	http     *http.Server
	online   func() int
}

// Config зависимости REST сервера
type Config struct {
	Port       string // ":8088"
	Simulation Simulation
	Registry   *auth.PlayerRegistry
	Tokens     *auth.TokenIssuer
	// Registry prometheus, в который пишутся HTTP-метрики и который отдаёт /metrics
	Prometheus *prometheus.Registry
	// Online количество подключенных клиентов, может быть nil
	Online func() int
}

// NewRestServer создает REST API сервер
func NewRestServer(cfg Config) *RestServer {
	if cfg.Port == "" {
		cfg.Port = ":8088"
	}
	if cfg.Prometheus == nil {
		cfg.Prometheus = prometheus.NewRegistry()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	logger := logging.GetServerLogger()
	router.Use(otelgin.Middleware("blockverse-api"))
	router.Use(middleware.NewRequestLogger(logger).Handler())

	promMw := middleware.NewPrometheusMiddleware("blockverse_api", cfg.Prometheus)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, cfg.Prometheus)

	rs := &RestServer{
		router:   router,
		sim:      cfg.Simulation,
		registry: cfg.Registry,
		tokens:   cfg.Tokens,
		metrics:  NewHostMetrics(),
		logger:   logger,
		online:   cfg.Online,
		http: &http.Server{
			Addr:              cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
	rs.setupRoutes()
	return rs
}

func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	api.POST("/session", rs.handleSession)
	api.GET("/status", rs.handleStatus)
	api.GET("/players", rs.handlePlayers)
	api.GET("/world/height", rs.handleHeight)

	protected := api.Group("/")
	protected.Use(rs.bearerAuth())
	protected.GET("/me", rs.handleMe)
}

// Handler http.Handler для тестов и встраивания
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// Start запускает HTTP сервер в отдельной горутине
func (rs *RestServer) Start() {
	go func() {
		rs.logger.Info("🌐 REST API запущен на %s", rs.http.Addr)
		if err := rs.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rs.logger.Error("❌ REST API остановлен с ошибкой: %v", err)
		}
	}()
}

// Shutdown корректно останавливает HTTP сервер
func (rs *RestServer) Shutdown(ctx context.Context) error {
	return rs.http.Shutdown(ctx)
}

// GenericResponse общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// SessionRequest запрос токена входа
type SessionRequest struct {
	Name string `json:"name" binding:"required"`
}

// SessionResponse токен для Hello игрового соединения
type SessionResponse struct {
	PlayerID  uint64 `json:"player_id"`
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

// PlayerView снимок игрока в JSON
type PlayerView struct {
	ID            uint64     `json:"id"`
	Name          string     `json:"name,omitempty"`
	Position      [3]float64 `json:"position"`
	LastAckTimeMs uint64     `json:"last_ack_time_ms"`
}

func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().Unix()})
}

func (rs *RestServer) handleSession(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Message: "Неверный формат запроса"})
		return
	}

	id, err := rs.registry.Resolve(req.Name)
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Message: err.Error()})
		return
	}
	token, err := rs.tokens.Issue(id, req.Name)
	if err != nil {
		rs.logger.Error("❌ Ошибка выдачи токена для %s: %v", req.Name, err)
		c.JSON(http.StatusInternalServerError, GenericResponse{Message: "Ошибка генерации токена"})
		return
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Data: SessionResponse{
			PlayerID:  id,
			Token:     token,
			ExpiresAt: time.Now().Add(rs.tokens.TTL()).Unix(),
		},
	})
}

func (rs *RestServer) handleStatus(c *gin.Context) {
	stats := rs.sim.Stats()
	cpuPercent, _ := rs.metrics.ProcessCPU()

	online := stats.Players
	if rs.online != nil {
		online = rs.online()
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Data: gin.H{
			"seed": rs.sim.Seed(),
			"simulation": gin.H{
				"ticks":            stats.Ticks,
				"last_tick_ms":     float64(stats.LastTick.Microseconds()) / 1000,
				"inputs_applied":   stats.InputsApplied,
				"inputs_dropped":   stats.InputsDropped,
				"chunks_generated": stats.ChunksGenerated,
				"chunks_saved":     stats.ChunksSaved,
				"chunks_sent":      stats.ChunksSent,
				"loaded_chunks":    stats.LoadedChunks,
				"players":          stats.Players,
				"connections":      online,
			},
			"server": gin.H{
				"uptime":      rs.metrics.Uptime(),
				"cpu_percent": fmt.Sprintf("%.2f", cpuPercent),
				"memory":      rs.metrics.MemoryStats(),
			},
		},
	})
}

func (rs *RestServer) playerView(snap player.Snapshot) PlayerView {
	v := PlayerView{
		ID:            snap.ID,
		Position:      [3]float64{snap.Position.X(), snap.Position.Y(), snap.Position.Z()},
		LastAckTimeMs: snap.LastAckTimeMs,
	}
	if rs.registry != nil {
		v.Name, _ = rs.registry.Name(snap.ID)
	}
	return v
}

func (rs *RestServer) handlePlayers(c *gin.Context) {
	snaps := rs.sim.Players()
	views := make([]PlayerView, 0, len(snaps))
	for _, s := range snaps {
		views = append(views, rs.playerView(s))
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Data: views})
}

func (rs *RestServer) handleMe(c *gin.Context) {
	id := c.GetUint64(playerIDKey)
	p, ok := rs.sim.Player(id)
	if !ok {
		c.JSON(http.StatusNotFound, GenericResponse{Message: "Игрок не в игре"})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Data: gin.H{
			"player":    rs.playerView(p.Snapshot()),
			"velocity":  vecJSON(p.Velocity),
			"is_flying": p.IsFlying,
			"on_ground": p.OnGround,
		},
	})
}

func vecJSON(v mgl64.Vec3) [3]float64 {
	return [3]float64{v.X(), v.Y(), v.Z()}
}

func (rs *RestServer) handleHeight(c *gin.Context) {
	x, errX := strconv.Atoi(c.Query("x"))
	z, errZ := strconv.Atoi(c.Query("z"))
	if errX != nil || errZ != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Message: "Параметры x и z должны быть целыми"})
		return
	}

	h, ok := rs.sim.HeightAt(x, z)
	if !ok {
		c.JSON(http.StatusNotFound, GenericResponse{Message: "Колонка не загружена"})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Data:    gin.H{"x": x, "z": z, "height": h},
	})
}
