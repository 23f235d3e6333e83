package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LevelFatal sits above slog.LevelError. It marks conditions that end the run.
const LevelFatal = slog.Level(12)

type Options struct {
	Level string
	JSON  bool

	// File, when set, sends records to a rotating file instead of stderr.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var def atomic.Value

func init() {
	def.Store(newLogger(os.Stderr, slog.LevelInfo, false))
}

func Configure(opts Options) {
	var w io.Writer = os.Stderr
	if opts.File != "" {
		w = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
	}
	def.Store(newLogger(w, ParseLevel(opts.Level), opts.JSON))
}

// SetOutput swaps the destination while keeping level and format. Tests use it
// to capture records.
func SetOutput(w io.Writer, level string, json bool) {
	def.Store(newLogger(w, ParseLevel(level), json))
}

func newLogger(w io.Writer, lvl slog.Level, json bool) *slog.Logger {
	cfg := &slog.HandlerOptions{Level: lvl, ReplaceAttr: renameFatal}
	var h slog.Handler
	if json {
		h = slog.NewJSONHandler(w, cfg)
	} else {
		h = slog.NewTextHandler(w, cfg)
	}
	return slog.New(h)
}

func renameFatal(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl >= LevelFatal {
		a.Value = slog.StringValue("FATAL")
	}
	return a
}

func ParseLevel(s string) slog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "fatal":
		return LevelFatal
	default:
		return slog.LevelInfo
	}
}

func L() *slog.Logger {
	l, _ := def.Load().(*slog.Logger)
	return l
}

// Fatal logs at LevelFatal. It does not exit; the caller decides how the run ends.
func Fatal(msg string, args ...any) {
	L().Log(context.Background(), LevelFatal, msg, args...)
}

func InitFromEnv() {
	lvl := os.Getenv("DUOLOG_LOG_LEVEL")
	jsonStr := os.Getenv("DUOLOG_LOG_JSON")
	json := false
	if b, err := strconv.ParseBool(strings.TrimSpace(jsonStr)); err == nil {
		json = b
	}
	Configure(Options{Level: lvl, JSON: json, File: os.Getenv("DUOLOG_LOG_FILE")})
}
