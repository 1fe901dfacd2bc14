package config

import (
	"time"

	"github.com/maxviazov/gamelog-sync/internal/logger"
)

type Config struct {
	App       AppConfig           `mapstructure:"app"`
	Logger    logger.LoggerConfig `mapstructure:"logger" validate:"-"`
	Postgres  PostgresConfig      `mapstructure:"postgres"`
	Source    SourceConfig        `mapstructure:"source"`
	Retry     RetryConfig         `mapstructure:"retry"`
	Sync      SyncConfig          `mapstructure:"sync"`
	Details   DetailsConfig       `mapstructure:"details"`
	Overrides OverridesConfig     `mapstructure:"overrides"`
	Quality   QualityConfig       `mapstructure:"quality"`
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	Env     string `mapstructure:"env"`
}

// PostgresConfig describes the warehouse connection. Secrets usually come from APP_POSTGRES_* env.
type PostgresConfig struct {
	Host              string `mapstructure:"host" validate:"required"`
	Port              int    `mapstructure:"port" validate:"gt=0,lt=65536"`
	User              string `mapstructure:"user" validate:"required"`
	Password          string `mapstructure:"password" validate:"required"`
	DBName            string `mapstructure:"db" validate:"required"`
	SSLMode           string `mapstructure:"sslmode"`
	MaxConns          int32  `mapstructure:"max_conns" validate:"gte=0"`
	MinConns          int32  `mapstructure:"min_conns" validate:"gte=0"`
	MaxConnLifetime   int    `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   int    `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod int    `mapstructure:"health_check_period"`
	AutoMigrate       bool   `mapstructure:"auto_migrate"`
}

// SourceConfig points the fetch adapter at the upstream stats API.
type SourceConfig struct {
	BaseURL         string            `mapstructure:"base_url" validate:"required,url"`
	Timeout         time.Duration     `mapstructure:"timeout" validate:"gt=0"`
	PolitenessDelay time.Duration     `mapstructure:"politeness_delay" validate:"gte=0"`
	Proxy           string            `mapstructure:"proxy"`
	Epoch           string            `mapstructure:"epoch" validate:"required,datetime=2006-01-02"`
	Headers         map[string]string `mapstructure:"headers"`
	MaxBodyBytes    int64             `mapstructure:"max_body_bytes" validate:"gt=0"`
}

// RetryConfig is the backoff curve shared by every network caller unless overridden.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" validate:"gte=1"`
	BaseDelay   time.Duration `mapstructure:"base_delay" validate:"gte=0"`
	MaxDelay    time.Duration `mapstructure:"max_delay" validate:"gte=0"`
	Jitter      time.Duration `mapstructure:"jitter" validate:"gte=0"`
	// Linear grows the delay as base*attempt instead of doubling it.
	Linear bool `mapstructure:"linear"`
}

type SyncConfig struct {
	LogPath         string        `mapstructure:"log_path" validate:"required"`
	WatermarkPath   string        `mapstructure:"watermark_path" validate:"required"`
	DefaultCategory string        `mapstructure:"default_category" validate:"required"`
	Categories      []string      `mapstructure:"categories"`
	Timeout         time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

type DetailsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Workers int  `mapstructure:"workers" validate:"gte=1,lte=64"`
}

type OverridesConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Workers    int           `mapstructure:"workers" validate:"gte=1,lte=64"`
	FlushEvery int           `mapstructure:"flush_every" validate:"gte=1"`
	Delay      time.Duration `mapstructure:"delay" validate:"gte=0"`
	Jitter     time.Duration `mapstructure:"jitter" validate:"gte=0"`
	Retry      RetryConfig   `mapstructure:"retry"`
}

// QualityConfig drives the gate. An empty KnownTeamIDs means the 30 current franchises.
type QualityConfig struct {
	Enabled         bool     `mapstructure:"enabled"`
	ModernStartYear int      `mapstructure:"modern_start_year" validate:"gte=1946"`
	KnownTeamIDs    []string `mapstructure:"known_team_ids"`
}
