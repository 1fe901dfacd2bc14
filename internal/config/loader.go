package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultPath is used when the caller does not pass --config.
const DefaultPath = "config.yaml"

// Load reads the YAML file at path, applies APP_* environment overrides and validates the result.
// A .env file next to the working directory is preloaded when present; real env always wins.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	setDefaults(v)

	var config Config
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config file not found: %w", err)
	}
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}
	return &config, nil
}

// setDefaults registers every key so AutomaticEnv can override keys missing from the file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "gamelog-sync")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.env", "prod")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.db", "")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_conns", 4)
	v.SetDefault("postgres.min_conns", 0)
	v.SetDefault("postgres.max_conn_lifetime", 300)
	v.SetDefault("postgres.max_conn_idle_time", 60)
	v.SetDefault("postgres.health_check_period", 30)
	v.SetDefault("postgres.auto_migrate", true)

	v.SetDefault("source.base_url", "https://stats.nba.com/stats")
	v.SetDefault("source.timeout", 30*time.Second)
	v.SetDefault("source.politeness_delay", time.Second)
	v.SetDefault("source.proxy", "")
	v.SetDefault("source.epoch", "1946-11-01")
	v.SetDefault("source.max_body_bytes", 32<<20)

	v.SetDefault("retry.max_attempts", 5)
	v.SetDefault("retry.base_delay", time.Second)
	v.SetDefault("retry.max_delay", 16*time.Second)
	v.SetDefault("retry.jitter", 250*time.Millisecond)
	v.SetDefault("retry.linear", false)

	v.SetDefault("sync.log_path", "data/raw/game.csv")
	v.SetDefault("sync.watermark_path", "data/raw/watermark.txt")
	v.SetDefault("sync.default_category", "Regular Season")
	v.SetDefault("sync.categories", []string{})
	v.SetDefault("sync.timeout", 0)

	v.SetDefault("details.enabled", true)
	v.SetDefault("details.workers", 4)

	v.SetDefault("overrides.enabled", true)
	v.SetDefault("overrides.workers", 4)
	v.SetDefault("overrides.flush_every", 25)
	v.SetDefault("overrides.delay", 600*time.Millisecond)
	v.SetDefault("overrides.jitter", 400*time.Millisecond)
	v.SetDefault("overrides.retry.max_attempts", 4)
	v.SetDefault("overrides.retry.base_delay", 1500*time.Millisecond)
	v.SetDefault("overrides.retry.max_delay", 6*time.Second)
	v.SetDefault("overrides.retry.jitter", 250*time.Millisecond)
	v.SetDefault("overrides.retry.linear", true)

	v.SetDefault("quality.enabled", true)
	v.SetDefault("quality.modern_start_year", 2010)
}
