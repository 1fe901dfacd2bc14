package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
)

// pgxLogger adapts zerolog.Logger to pgx's tracelog interface.
type pgxLogger struct {
	logger zerolog.Logger
}

// newPgxLogger tags the component explicitly so SQL noise stays filterable.
func newPgxLogger(logger zerolog.Logger) *pgxLogger {
	return &pgxLogger{logger: logger.With().Str("component", "pgx").Logger()}
}

// Log implements tracelog.Logger. SQL text and args only show up at trace level;
// CopyFrom batches can carry thousands of rows and must not end up in the log verbatim.
func (l *pgxLogger) Log(_ context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	var event *zerolog.Event
	switch level {
	case tracelog.LogLevelNone:
		return
	case tracelog.LogLevelTrace:
		event = l.logger.Trace()
	case tracelog.LogLevelDebug:
		event = l.logger.Debug()
	case tracelog.LogLevelInfo:
		event = l.logger.Info()
	case tracelog.LogLevelWarn:
		event = l.logger.Warn()
	case tracelog.LogLevelError:
		event = l.logger.Error()
	default:
		event = l.logger.Info().Str("pgx_log_level", level.String())
	}

	for k, v := range data {
		switch k {
		case "sql":
			if level == tracelog.LogLevelTrace {
				event = event.Interface("sql", v)
			}
		case "args", "rowValues":
			if level == tracelog.LogLevelTrace {
				event = event.Interface(k, v)
			}
		case "time":
			if d, ok := v.(time.Duration); ok {
				event = event.Dur("elapsed", d)
				continue
			}
			event = event.Interface(k, v)
		case "err":
			if err, ok := v.(error); ok {
				event = event.Err(err)
				continue
			}
			event = event.Interface(k, v)
		default:
			event = event.Interface(k, v)
		}
	}
	event.Msg(msg)
}
