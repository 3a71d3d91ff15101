// Package logging wraps zerolog with the key/value call style used across oracle-push.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps zerolog.Logger
type Logger struct {
	logger zerolog.Logger
}

// Options configures Init.
type Options struct {
	Level  string
	Format string
	Output string
	File   FileOptions
}

// FileOptions enables size-based log rotation when Path is set.
type FileOptions struct {
	Path       string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// Init initializes the global logger based on configuration
func Init(opts Options) (*Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	writer, err := openWriter(opts)
	if err != nil {
		return nil, err
	}

	var logger zerolog.Logger
	if strings.ToLower(opts.Format) == "text" {
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        writer,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(writer).With().Timestamp().Logger()
	}

	log.Logger = logger

	return &Logger{logger: logger}, nil
}

func openWriter(opts Options) (io.Writer, error) {
	if opts.File.Path != "" {
		return &lumberjack.Logger{
			Filename:   opts.File.Path,
			MaxSize:    opts.File.MaxSize,
			MaxBackups: opts.File.MaxBackups,
			MaxAge:     opts.File.MaxAge,
			Compress:   opts.File.Compress,
		}, nil
	}

	switch opts.Output {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		file, err := os.OpenFile(opts.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, err
		}
		return file, nil
	}
}

// New wraps an existing writer, mostly useful in tests.
func New(w io.Writer) *Logger {
	return &Logger{logger: zerolog.New(w).With().Timestamp().Logger()}
}

// NewNoopLogger returns a logger that discards all output.
func NewNoopLogger() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

// With returns a child logger that always carries the given fields.
func (l *Logger) With(fields ...interface{}) *Logger {
	ctx := l.logger.With()
	for i := 0; i < len(fields)-1; i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		ctx = ctx.Interface(key, fields[i+1])
	}
	return &Logger{logger: ctx.Logger()}
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, fields ...interface{}) {
	event := l.logger.Debug()
	addFields(event, fields...)
	event.Msg(msg)
}

// Info logs an info message
func (l *Logger) Info(msg string, fields ...interface{}) {
	event := l.logger.Info()
	addFields(event, fields...)
	event.Msg(msg)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, fields ...interface{}) {
	event := l.logger.Warn()
	addFields(event, fields...)
	event.Msg(msg)
}

// Error logs an error message
func (l *Logger) Error(msg string, fields ...interface{}) {
	event := l.logger.Error()
	addFields(event, fields...)
	event.Msg(msg)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(msg string, fields ...interface{}) {
	event := l.logger.Fatal()
	addFields(event, fields...)
	event.Msg(msg)
}

// ZerologLogger returns the underlying zerolog.Logger
func (l *Logger) ZerologLogger() zerolog.Logger {
	return l.logger
}

// addFields adds key-value pairs to a log event. Errors are rendered with
// their message rather than as an empty JSON object.
func addFields(event *zerolog.Event, fields ...interface{}) {
	for i := 0; i < len(fields)-1; i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		if err, ok := fields[i+1].(error); ok {
			event.AnErr(key, err)
			continue
		}
		if s, ok := fields[i+1].(interface{ String() string }); ok {
			event.Str(key, s.String())
			continue
		}
		event.Interface(key, fields[i+1])
	}
}

// Global logger instance
var globalLogger *Logger

// SetGlobal sets the global logger instance
func SetGlobal(l *Logger) {
	globalLogger = l
}

// Debug logs a debug message using global logger
func Debug(msg string, fields ...interface{}) {
	if globalLogger != nil {
		globalLogger.Debug(msg, fields...)
	}
}

// Info logs an info message using global logger
func Info(msg string, fields ...interface{}) {
	if globalLogger != nil {
		globalLogger.Info(msg, fields...)
	}
}

// Warn logs a warning message using global logger
func Warn(msg string, fields ...interface{}) {
	if globalLogger != nil {
		globalLogger.Warn(msg, fields...)
	}
}

// Error logs an error message using global logger
func Error(msg string, fields ...interface{}) {
	if globalLogger != nil {
		globalLogger.Error(msg, fields...)
	}
}
