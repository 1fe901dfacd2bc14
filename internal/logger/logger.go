package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LoggerConfig struct {
	Level          string                 `mapstructure:"level" json:"level,omitempty" validate:"oneof=trace debug info warn error"`
	Format         string                 `mapstructure:"format" json:"format,omitempty" validate:"oneof=json console"`
	OutputTarget   string                 `mapstructure:"output_target" json:"outputTarget,omitempty" validate:"oneof=stdout stderr"`
	TimeField      string                 `mapstructure:"time_field" json:"timeField,omitempty"`
	TimeFormat     string                 `mapstructure:"time_format" json:"timeFormat,omitempty" validate:"oneof=rfc3339 rfc3339nano unix unix_ms"`
	ServiceName    string                 `mapstructure:"service_name" json:"serviceName,omitempty"`
	ServiceVersion string                 `mapstructure:"service_version" json:"serviceVersion,omitempty"`
	Env            string                 `mapstructure:"env" json:"env,omitempty" validate:"oneof=dev test staging prod"`
	WithCaller     bool                   `mapstructure:"with_caller" json:"withCaller,omitempty"`
	Stacktrace     bool                   `mapstructure:"stacktrace" json:"stacktrace,omitempty"`
	Fields         map[string]interface{} `mapstructure:"fields" json:"fields,omitempty"`
	File           FileConfig             `mapstructure:"file" json:"file,omitempty"`
}

// FileConfig enables a rotating file sink next to the primary output.
// An empty Path disables it.
type FileConfig struct {
	Path       string `mapstructure:"path" json:"path,omitempty"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" json:"maxSizeMb,omitempty" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" json:"maxBackups,omitempty" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" json:"maxAgeDays,omitempty" validate:"gte=0"`
	Compress   bool   `mapstructure:"compress" json:"compress,omitempty"`
}

func New(logg *LoggerConfig) (logger zerolog.Logger, err error) {
	logg.setDefaults()

	v := validator.New()
	if err = v.Struct(logg); err != nil {
		return logger, fmt.Errorf("logger config validation error: %w", err)
	}

	// apply time settings from config
	zerolog.TimestampFieldName = logg.TimeField
	zerolog.TimeFieldFormat = timeFieldFormat(logg.TimeFormat)

	var out io.Writer = os.Stdout
	if logg.OutputTarget == "stderr" {
		out = os.Stderr
	}
	if logg.Format == "console" {
		// console output is for humans; the file sink below stays JSON
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	writer := out
	if logg.File.Path != "" {
		if err := os.MkdirAll(filepath.Dir(logg.File.Path), 0o755); err != nil {
			return logger, fmt.Errorf("create log directory: %w", err)
		}
		rotating := &lumberjack.Logger{
			Filename:   logg.File.Path,
			MaxSize:    logg.File.MaxSizeMB,
			MaxBackups: logg.File.MaxBackups,
			MaxAge:     logg.File.MaxAgeDays,
			Compress:   logg.File.Compress,
		}
		writer = zerolog.MultiLevelWriter(out, rotating)
	}

	logger = zerolog.New(writer).
		With().
		Timestamp().
		Str("service", logg.ServiceName).
		Str("version", logg.ServiceVersion).
		Str("env", logg.Env).
		Logger()

	// add optional extras in a clean linear flow
	if logg.WithCaller {
		logger = logger.With().Caller().Logger()
	}
	if logg.Stacktrace {
		logger = logger.With().Stack().Logger()
	}
	if len(logg.Fields) > 0 {
		logger = logger.With().Fields(logg.Fields).Logger()
	}

	// set log level globally (important: must be after ParseLevel)
	level, err := zerolog.ParseLevel(logg.Level)
	if err != nil {
		return logger, err
	}
	zerolog.SetGlobalLevel(level)

	return logger.Level(level), nil
}

// timeFieldFormat maps config names to zerolog layouts; raw layouts pass through.
func timeFieldFormat(name string) string {
	switch name {
	case "rfc3339":
		return "2006-01-02T15:04:05Z07:00"
	case "rfc3339nano":
		return "2006-01-02T15:04:05.999999999Z07:00"
	case "unix":
		return zerolog.TimeFormatUnix
	case "unix_ms":
		return zerolog.TimeFormatUnixMs
	default:
		return name
	}
}

func (c *LoggerConfig) setDefaults() {
	// environment default
	if c.Env == "" {
		c.Env = "prod"
	}

	// level defaults depend on environment
	if c.Level == "" {
		if c.Env == "dev" {
			c.Level = "debug"
		} else {
			c.Level = "info"
		}
	}

	// format defaults
	if c.Format == "" {
		if c.Env == "dev" {
			c.Format = "console"
		} else {
			c.Format = "json"
		}
	}

	// batch jobs keep stdout for the run summary
	if c.OutputTarget == "" {
		c.OutputTarget = "stderr"
	}

	// time defaults
	if c.TimeField == "" {
		c.TimeField = "ts"
	}
	if c.TimeFormat == "" {
		c.TimeFormat = "rfc3339nano"
	}

	if !c.WithCaller && c.Env == "dev" {
		c.WithCaller = true
	}

	// rotation defaults only matter when a file sink is configured
	if c.File.Path != "" {
		if c.File.MaxSizeMB == 0 {
			c.File.MaxSizeMB = 50
		}
		if c.File.MaxBackups == 0 {
			c.File.MaxBackups = 5
		}
		if c.File.MaxAgeDays == 0 {
			c.File.MaxAgeDays = 14
		}
	}

	// service defaults
	if c.ServiceName == "" {
		c.ServiceName = "gamelog-sync"
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "0.1.0"
	}

	// ensure fields map is not nil
	if c.Fields == nil {
		c.Fields = make(map[string]interface{})
	}
}
