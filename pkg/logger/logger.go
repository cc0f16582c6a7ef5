// Package logger provides a process-wide structured logger backed by zerolog.
//
// Initialise once at startup with Init, then retrieve anywhere with Get.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options controls logger behaviour at initialisation time.
type Options struct {
	// Level is the minimum level: trace, debug, info, warn, error.
	// Empty or unknown values mean info.
	Level string
	// Pretty switches to coloured console output for local development.
	Pretty bool
	// Service, when set, is attached to every entry as "service".
	Service string
	// Output defaults to os.Stdout.
	Output io.Writer
}

var (
	mu          sync.Mutex
	instance    zerolog.Logger
	initialized bool
)

// Init builds the process logger. Only the first call has any effect until
// Reset is called.
func Init(opts Options) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if initialized {
		return instance
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	lvl := ParseLevel(opts.Level)
	zerolog.SetGlobalLevel(lvl)

	ctx := zerolog.New(out).Level(lvl).With().Timestamp()
	if opts.Service != "" {
		ctx = ctx.Str("service", opts.Service)
	}
	instance = ctx.Logger()
	initialized = true
	return instance
}

// Get returns the process logger. It panics if Init has not been called.
func Get() zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if !initialized {
		panic("logger: Get() called before Init()")
	}
	return instance
}

// Reset discards the process logger so the next Init rebuilds it. Tests only.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	instance = zerolog.Logger{}
	initialized = false
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
}

// ParseLevel converts a level name to a zerolog.Level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
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
