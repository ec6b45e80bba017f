// Package logger holds the process-wide zerolog logger of the auth service.
//
// cmd/api builds it once from config (LOG_LEVEL, APP_ENV) and hands tagged
// children to the session manager, the notification worker and the HTTP
// layer through Component, so every entry can be traced back to the part of
// the service that wrote it.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the service logger.
type Options struct {
	// Level comes from LOG_LEVEL. Unknown values fall back to info.
	Level string
	// Pretty switches to zerolog's console writer. cmd/api enables it
	// outside production; production keeps one JSON object per line.
	Pretty bool
	// Output defaults to os.Stdout. Tests pass a buffer.
	Output io.Writer
	// Service and Env are stamped on every entry when non-empty.
	Service string
	Env     string
}

var (
	mu       sync.Mutex
	root     zerolog.Logger
	hasRoot  bool
	levelSet = map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"debug":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"warn":    zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
	}
)

// Init builds the service logger on first use and returns it. Later calls
// return the logger built by the first one and ignore opts.
func Init(opts Options) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()

	if !hasRoot {
		root = build(opts)
		hasRoot = true
	}
	return root
}

func build(opts Options) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	lvl := parseLevel(opts.Level)
	zerolog.SetGlobalLevel(lvl)

	fields := zerolog.New(out).Level(lvl).With().Timestamp().Caller()
	if opts.Service != "" {
		fields = fields.Str("service", opts.Service)
	}
	if opts.Env != "" {
		fields = fields.Str("env", opts.Env)
	}
	return fields.Logger()
}

// Get returns the logger built by Init and panics when Init has not run.
func Get() zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()

	if !hasRoot {
		panic("logger: Get() called before Init()")
	}
	return root
}

// Component returns a child logger carrying component=name, e.g. "sessions"
// or "http".
func Component(name string) zerolog.Logger {
	return Get().With().Str("component", name).Logger()
}

// Reset drops the logger so the next Init rebuilds it. Tests only.
func Reset() {
	mu.Lock()
	defer mu.Unlock()

	root = zerolog.Logger{}
	hasRoot = false
}

func parseLevel(s string) zerolog.Level {
	if lvl, ok := levelSet[strings.ToLower(strings.TrimSpace(s))]; ok {
		return lvl
	}
	return zerolog.InfoLevel
}
