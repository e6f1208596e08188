package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации сервера
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	World     WorldConfig     `yaml:"world"`
	Storage   StorageConfig   `yaml:"storage"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	GamePort    int    `yaml:"game_port"`
	RESTPort    int    `yaml:"rest_port"`
	MetricsPort int    `yaml:"metrics_port"`
	TickRate    int    `yaml:"tick_rate"`
	Seed        int64  `yaml:"seed"`
	DataDir     string `yaml:"data_dir"`
	// AutosaveSeconds период полного сохранения, 0 - значение по умолчанию
	AutosaveSeconds int `yaml:"autosave_seconds"`
}

type WorldConfig struct {
	RenderDistance int     `yaml:"render_distance"`
	ChunkBudget    int     `yaml:"chunk_budget"`
	Generator      string  `yaml:"generator"` // perlin | flat
	NoiseScale     float64 `yaml:"noise_scale"`
	FlatHeight     int     `yaml:"flat_height"`
}

type StorageConfig struct {
	Positions string      `yaml:"positions"` // memory | redis | maria
	Redis     RedisConfig `yaml:"redis"`
	MariaDSN  string      `yaml:"maria_dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type EventBusConfig struct {
	URL       string `yaml:"url"` // пусто - шина в памяти
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
}

type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type AuthConfig struct {
	Secret     string `yaml:"secret"` // base64, пусто - случайный на каждый запуск
	TTLMinutes int    `yaml:"ttl_minutes"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// Default конфигурация, с которой сервер запускается без файла
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			TickRate:        20,
			DataDir:         "data",
			AutosaveSeconds: 30,
		},
		World: WorldConfig{
			RenderDistance: 4,
			ChunkBudget:    16,
			Generator:      "perlin",
			NoiseScale:     0.02,
			FlatHeight:     10,
		},
		Storage: StorageConfig{
			Positions: "memory",
			Redis:     RedisConfig{Addr: "localhost:6379"},
		},
		EventBus: EventBusConfig{
			Stream:    "BLOCKVERSE",
			Retention: 24,
		},
		Telemetry: TelemetryConfig{
			Insecure:    true,
			SampleRatio: 1,
		},
		Auth: AuthConfig{TTLMinutes: 24 * 60},
		Logging: LoggingConfig{
			Level: "INFO",
			Dir:   "logs",
		},
	}
}

// GetGamePort возвращает KCP порт с поддержкой fallback значений
func (s *ServerConfig) GetGamePort() int {
	return getPortWithEnvFallback(s.GamePort, "BLOCKVERSE_GAME_PORT", 7777)
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "BLOCKVERSE_REST_PORT", 8088)
}

// GetMetricsPort возвращает Prometheus порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "BLOCKVERSE_METRICS_PORT", 2112)
}

// Autosave период полного сохранения
func (s *ServerConfig) Autosave() time.Duration {
	if s.AutosaveSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.AutosaveSeconds) * time.Second
}

// TTL время жизни токена входа
func (a *AuthConfig) TTL() time.Duration {
	if a.TTLMinutes <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(a.TTLMinutes) * time.Minute
}

// RetentionDuration время хранения событий в потоке
func (e *EventBusConfig) RetentionDuration() time.Duration {
	return time.Duration(e.Retention) * time.Hour
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Validate проверяет значения, которые нельзя исправить молча
func (c *Config) Validate() error {
	switch c.Storage.Positions {
	case "memory", "redis", "maria":
	default:
		return fmt.Errorf("неизвестное хранилище позиций %q", c.Storage.Positions)
	}
	if c.Storage.Positions == "maria" && c.Storage.MariaDSN == "" {
		return fmt.Errorf("storage.maria_dsn обязателен для хранилища maria")
	}
	switch c.World.Generator {
	case "perlin", "flat":
	default:
		return fmt.Errorf("неизвестный генератор %q", c.World.Generator)
	}
	if c.Server.TickRate <= 0 {
		return fmt.Errorf("server.tick_rate должен быть положительным")
	}
	if c.World.RenderDistance < 1 {
		return fmt.Errorf("world.render_distance должен быть не меньше 1")
	}
	return nil
}

// Load читает YAML файл поверх значений по умолчанию.
// Если path == "", берёт путь из BLOCKVERSE_CONFIG, без него возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("BLOCKVERSE_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
