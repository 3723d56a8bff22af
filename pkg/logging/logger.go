// Package logging wraps zerolog for the meetscribe CLI. Logs always go to
// stderr so stdout stays reserved for command output.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Level is the minimum severity a logger emits.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Config controls logger construction.
type Config struct {
	Level       Level
	ServiceName string
	// JSONFormat switches from console rendering to one JSON object per line.
	JSONFormat bool
	// Output defaults to os.Stderr.
	Output io.Writer
}

// Logger is the structured logging interface used throughout the CLI.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	// With returns a logger that attaches fields to every entry.
	With(fields ...Field) Logger
}

// Field is one structured key/value pair.
type Field struct {
	Key   string
	Value interface{}
}

// F builds a Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Err builds the conventional error field.
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

type logger struct {
	zl   zerolog.Logger
	base []Field
}

// NewLogger builds a Logger from cfg; a nil cfg gets info-level console
// output on stderr.
func NewLogger(cfg *Config) Logger {
	if cfg == nil {
		cfg = &Config{Level: LevelInfo, ServiceName: "meetscribe"}
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var w io.Writer = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	if cfg.JSONFormat {
		w = out
	}

	zl := zerolog.New(w).Level(zerologLevel(cfg.Level)).With().Timestamp()
	if cfg.JSONFormat && cfg.ServiceName != "" {
		zl = zl.Str("service_name", cfg.ServiceName)
	}
	return &logger{zl: zl.Logger()}
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return &logger{zl: zerolog.Nop()}
}

func zerologLevel(l Level) zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *logger) Debug(msg string, fields ...Field) { l.emit(l.zl.Debug(), msg, fields) }
func (l *logger) Info(msg string, fields ...Field)  { l.emit(l.zl.Info(), msg, fields) }
func (l *logger) Warn(msg string, fields ...Field)  { l.emit(l.zl.Warn(), msg, fields) }
func (l *logger) Error(msg string, fields ...Field) { l.emit(l.zl.Error(), msg, fields) }

func (l *logger) With(fields ...Field) Logger {
	base := make([]Field, 0, len(l.base)+len(fields))
	base = append(base, l.base...)
	base = append(base, fields...)
	return &logger{zl: l.zl, base: base}
}

func (l *logger) emit(event *zerolog.Event, msg string, fields []Field) {
	for _, f := range l.base {
		event = applyField(event, f)
	}
	for _, f := range fields {
		event = applyField(event, f)
	}
	event.Msg(msg)
}

// applyField keeps zerolog's typed rendering for the common value kinds.
func applyField(event *zerolog.Event, f Field) *zerolog.Event {
	switch v := f.Value.(type) {
	case string:
		return event.Str(f.Key, v)
	case int:
		return event.Int(f.Key, v)
	case int64:
		return event.Int64(f.Key, v)
	case float64:
		return event.Float64(f.Key, v)
	case bool:
		return event.Bool(f.Key, v)
	case error:
		return event.Err(v)
	case time.Duration:
		return event.Dur(f.Key, v)
	case time.Time:
		return event.Time(f.Key, v)
	default:
		return event.Interface(f.Key, v)
	}
}
