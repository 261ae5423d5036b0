package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/mcoot/quizgame/internal/api"
	"github.com/mcoot/quizgame/internal/factory"
	"github.com/mcoot/quizgame/internal/services/phase"
	redisstorage "github.com/mcoot/quizgame/internal/storage/redis"
)

// Config is the server configuration read from QUIZGAME_* environment variables
type Config struct {
	HTTPHost string `env:"QUIZGAME_HTTP_HOST"`
	HTTPPort int    `env:"QUIZGAME_HTTP_PORT" envDefault:"8080"`
	LogLevel string `env:"QUIZGAME_LOG_LEVEL" envDefault:"info"`

	RedisURL          string        `env:"QUIZGAME_REDIS_URL"           envDefault:"redis://localhost:6379"`
	RedisPoolSize     int           `env:"QUIZGAME_REDIS_POOL_SIZE"     envDefault:"10"`
	LockTTL           time.Duration `env:"QUIZGAME_LOCK_TTL"            envDefault:"5s"`
	GameTTL           time.Duration `env:"QUIZGAME_GAME_TTL"            envDefault:"24h"`
	SessionTTL        time.Duration `env:"QUIZGAME_SESSION_TTL"         envDefault:"24h"`
	ExpirationWarning time.Duration `env:"QUIZGAME_EXPIRATION_WARNING"  envDefault:"10m"`

	// PostgresDSN enables the results table; results are only logged without it
	PostgresDSN  string `env:"QUIZGAME_POSTGRES_DSN"`
	OTelEndpoint string `env:"QUIZGAME_OTEL_ENDPOINT"`

	Timers Timers
}

// Timers are the question timer lengths
type Timers struct {
	MediaDownload    time.Duration `env:"QUIZGAME_TIMER_MEDIA_DOWNLOAD"    envDefault:"30s"`
	Showing          time.Duration `env:"QUIZGAME_TIMER_SHOWING"           envDefault:"60s"`
	Answering        time.Duration `env:"QUIZGAME_TIMER_ANSWERING"         envDefault:"20s"`
	ShowingAnswer    time.Duration `env:"QUIZGAME_TIMER_SHOWING_ANSWER"    envDefault:"5s"`
	SecretTransfer   time.Duration `env:"QUIZGAME_TIMER_SECRET_TRANSFER"   envDefault:"30s"`
	StakeBidding     time.Duration `env:"QUIZGAME_TIMER_STAKE_BIDDING"     envDefault:"30s"`
	ThemeElimination time.Duration `env:"QUIZGAME_TIMER_THEME_ELIMINATION" envDefault:"30s"`
	FinalBidding     time.Duration `env:"QUIZGAME_TIMER_FINAL_BIDDING"     envDefault:"30s"`
	FinalAnswering   time.Duration `env:"QUIZGAME_TIMER_FINAL_ANSWERING"   envDefault:"60s"`
}

// Load reads the configuration from the environment
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.ExpirationWarning >= cfg.GameTTL {
		return Config{}, fmt.Errorf("QUIZGAME_EXPIRATION_WARNING (%s) must be shorter than QUIZGAME_GAME_TTL (%s)", cfg.ExpirationWarning, cfg.GameTTL)
	}
	if _, err := cfg.Level(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Level parses the configured log level
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return level, fmt.Errorf("invalid QUIZGAME_LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Redis returns the coordination store settings
func (c Config) Redis() redisstorage.Config {
	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = c.RedisURL
	redisCfg.PoolSize = c.RedisPoolSize
	redisCfg.LockTTL = c.LockTTL
	redisCfg.GameTTL = c.GameTTL
	redisCfg.SessionTTL = c.SessionTTL
	redisCfg.ExpirationWarningLead = c.ExpirationWarning
	return redisCfg
}

// Durations returns the question timers
func (c Config) Durations() phase.Durations {
	return phase.Durations(c.Timers)
}

// Factory builds the application factory config
func (c Config) Factory(logger *slog.Logger) factory.Config {
	return factory.Config{
		Logger:      logger,
		Redis:       c.Redis(),
		Durations:   c.Durations(),
		PostgresDSN: c.PostgresDSN,
	}
}

// Server builds the HTTP server config
func (c Config) Server() api.ServerConfig {
	serverCfg := api.DefaultServerConfig()
	serverCfg.Host = c.HTTPHost
	serverCfg.Port = c.HTTPPort
	return serverCfg
}
