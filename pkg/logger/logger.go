package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog with a small typed-field API.
type Logger struct {
	zl zerolog.Logger
}

type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json or console
	Output     string // stdout, stderr, or file path
	TimeFormat string
}

func New(cfg *Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer
	switch cfg.Output {
	case "stdout", "":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		file, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("could not open log file: %w", err)
		}
		output = file
	}

	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = cfg.TimeFormat

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: cfg.TimeFormat,
		}
	}

	zl := zerolog.New(output).
		With().
		Timestamp().
		Logger()

	return &Logger{zl: zl}, nil
}

// Nop returns a logger that discards everything. Used in tests.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger carrying a constant component field.
func (l *Logger) With(component string) *Logger {
	return &Logger{zl: l.zl.With().Str("component", component).Logger()}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.emit(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.emit(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.emit(l.zl.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { l.emit(l.zl.Error(), msg, fields) }

func (l *Logger) emit(event *zerolog.Event, msg string, fields []Field) {
	for _, f := range fields {
		f.AddTo(event)
	}
	event.Msg(msg)
}

// Field attaches one typed key/value to a log event.
type Field interface {
	AddTo(event *zerolog.Event)
}

type stringField struct {
	key   string
	value string
}

func (f stringField) AddTo(e *zerolog.Event) { e.Str(f.key, f.value) }

type intField struct {
	key   string
	value int
}

func (f intField) AddTo(e *zerolog.Event) { e.Int(f.key, f.value) }

type int64Field struct {
	key   string
	value int64
}

func (f int64Field) AddTo(e *zerolog.Event) { e.Int64(f.key, f.value) }

type float64Field struct {
	key   string
	value float64
}

func (f float64Field) AddTo(e *zerolog.Event) { e.Float64(f.key, f.value) }

type errorField struct {
	value error
}

func (f errorField) AddTo(e *zerolog.Event) { e.Err(f.value) }

type durationField struct {
	key   string
	value time.Duration
}

func (f durationField) AddTo(e *zerolog.Event) { e.Dur(f.key, f.value) }

// --- Field constructors ---

func String(key, value string) Field { return stringField{key: key, value: value} }

func Int(key string, value int) Field { return intField{key: key, value: value} }

func Int64(key string, value int64) Field { return int64Field{key: key, value: value} }

func Float64(key string, value float64) Field { return float64Field{key: key, value: value} }

func Error(err error) Field { return errorField{value: err} }

func Duration(key string, value time.Duration) Field { return durationField{key: key, value: value} }
