package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects the level and sinks of the process logger.
type Config struct {
	// Level is one of debug, info, warn or error. Unknown values fall back
	// to info.
	Level string
	// File enables a size-rotated log file.
	File string
	// Console writes human readable output to Stdout instead of JSON.
	Console bool

	MaxSizeMB  int
	MaxBackups int
	Compress   bool

	// Out overrides Stdout.
	Out io.Writer
}

// New builds a zerolog.Logger. The returned closer releases the log file and
// is never nil.
func New(cfg Config) (zerolog.Logger, io.Closer) {
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	writers := []io.Writer{out}
	if cfg.Console {
		writers[0] = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: cfg.Out != nil}
	}
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		if cfg.MaxSizeMB == 0 {
			cfg.MaxSizeMB = 10
		}
		if cfg.MaxBackups == 0 {
			cfg.MaxBackups = 5
		}
		rotating := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     28,
			Compress:   cfg.Compress,
		}
		writers = append(writers, rotating)
		closer = rotating
	}
	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(cfg.Level)).
		With().Timestamp().Logger()
	return logger, closer
}

// ParseLevel maps a level name to a zerolog level.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
