package domain

import (
	"errors"
	"fmt"
	"time"
)

// Config is the complete Heron server configuration. DefaultConfig and
// ProConfig give the two tier presets; cmd/heron layers env overrides on top.
type Config struct {
	Server  ServerConfig  `json:"server"`
	Tier    Tier          `json:"tier"`
	Scoring ScoringConfig `json:"scoring"`

	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	Logging LoggingConfig `json:"logging"`
	Metrics MetricsConfig `json:"metrics"`
}

// ScoringConfig holds engine-adjacent settings. The engines themselves are
// pure; these values are passed in by the assessment service.
type ScoringConfig struct {
	// DefaultWeights apply to organisations without stored settings.
	DefaultWeights RiskWeights `json:"defaultWeights"`

	ResultTTL    time.Duration `json:"resultTTL"`   // cache lifetime of stored scores, 0 keeps them
	RuleWorkers  int           `json:"ruleWorkers"` // escalation rule concurrency
	HistoryLimit int           `json:"historyLimit"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds

	// AllowedOrigins restricts CORS; empty echoes any origin.
	AllowedOrigins []string `json:"allowedOrigins,omitempty"`
}

// LoggingConfig selects the slog level (debug, info, warn, error) and
// handler (json, text).
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled"`
	Path      string `json:"path"`
	Namespace string `json:"namespace"`
}

// Tier selects the infrastructure preset.
type Tier string

const (
	// TierCommunity runs on SQLite, an in-process LRU and Go channels.
	TierCommunity Tier = "community"

	// TierPro runs on PostgreSQL, Redis two-phase caching and NATS, and
	// starts the recompute worker.
	TierPro Tier = "pro"
)

// DefaultConfig returns the Community tier configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Tier: TierCommunity,
		Scoring: ScoringConfig{
			DefaultWeights: DefaultRiskWeights(),
			ResultTTL:      24 * time.Hour,
			RuleWorkers:    10,
			HistoryLimit:   50,
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./heron.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Path:      "/metrics",
			Namespace: "heron",
		},
	}
}

// ProConfig returns the Pro tier configuration.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "heron",
		MaxOpenConns: 20,
		MaxIdleConns: 5,
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
		LocalTTL:       time.Minute,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSQueue:         "heron-workers",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	return cfg
}

// Validate reports every setting that would make startup or scoring fail.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.Tier {
	case TierCommunity, TierPro:
	default:
		errs = append(errs, fmt.Errorf("unknown tier %q", c.Tier))
	}
	switch c.Repository.Driver {
	case "", "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unsupported repository driver %q", c.Repository.Driver))
	}
	switch c.Cache.Type {
	case "", "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("unsupported cache type %q", c.Cache.Type))
	}
	switch c.EventBus.Type {
	case "", "channel", "nats":
	default:
		errs = append(errs, fmt.Errorf("unsupported event bus type %q", c.EventBus.Type))
	}
	switch c.Logging.Format {
	case "", "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unsupported log format %q", c.Logging.Format))
	}

	w := c.Scoring.DefaultWeights
	if !w.IsZero() && w.Sum() <= 0 {
		errs = append(errs, errors.New("scoring.defaultWeights must sum to more than 0"))
	}
	if c.Scoring.ResultTTL < 0 {
		errs = append(errs, errors.New("scoring.resultTTL must not be negative"))
	}
	if c.Scoring.RuleWorkers < 0 || c.Scoring.HistoryLimit < 0 {
		errs = append(errs, errors.New("scoring.ruleWorkers and scoring.historyLimit must not be negative"))
	}

	return errors.Join(errs...)
}
