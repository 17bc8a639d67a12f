package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// defaultLogger backs the package-level helpers
var defaultLogger zerolog.Logger

// LogLevel is a configured log level name
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

// Config represents logger configuration
type Config struct {
	Level LogLevel
	// Pretty switches from JSON lines to the console writer
	Pretty bool
	// Output defaults to os.Stdout
	Output  io.Writer
	Service string
}

// ParseLevel maps a configuration string onto a LogLevel, defaulting to info.
func ParseLevel(level string) LogLevel {
	switch l := LogLevel(strings.ToLower(strings.TrimSpace(level))); l {
	case DebugLevel, WarnLevel, ErrorLevel:
		return l
	default:
		return InfoLevel
	}
}

// Configure builds the process logger, installs it as the zerolog global
// and returns it for injection into components.
func Configure(config Config) zerolog.Logger {
	if config.Output == nil {
		config.Output = os.Stdout
	}

	level, err := zerolog.ParseLevel(string(config.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	out := config.Output
	if config.Pretty {
		out = zerolog.ConsoleWriter{Out: config.Output, TimeFormat: time.RFC3339}
	}

	lctx := zerolog.New(out).With().Timestamp()
	if config.Service != "" {
		lctx = lctx.Str("service", config.Service)
	}
	defaultLogger = lctx.Logger()
	log.Logger = defaultLogger
	return defaultLogger
}

// Debug logs a debug message
func Debug() *zerolog.Event {
	return defaultLogger.Debug()
}

// Info logs an informational message
func Info() *zerolog.Event {
	return defaultLogger.Info()
}

// Warn logs a warning message
func Warn() *zerolog.Event {
	return defaultLogger.Warn()
}

// Error logs an error message
func Error() *zerolog.Event {
	return defaultLogger.Error()
}

func init() {
	Configure(Config{Level: InfoLevel, Pretty: true})
}
