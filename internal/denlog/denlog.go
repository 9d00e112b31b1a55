// Package denlog centralizes structured logging for every subsystem
// (tokenizer, parser, expander, exec, jobs, editor, completion, config).
package denlog

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu      sync.Mutex
	base    = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	Enabled = true
)

// Configure switches the package logger between an interactive
// ConsoleWriter (human-readable, colorized) and plain JSON.
func Configure(interactive bool, out io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if out == nil {
		out = os.Stderr
	}
	if interactive {
		base = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
		return
	}
	base = zerolog.New(out).With().Timestamp().Logger()
}

// SetLevel adjusts the global minimum level, e.g. zerolog.DebugLevel when
// xtrace is on.
func SetLevel(lvl zerolog.Level) {
	zerolog.SetGlobalLevel(lvl)
}

// Component returns a child logger tagged with name, for per-subsystem
// fields (e.g. denlog.Component("exec")).
func Component(name string) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return base.With().Str("component", name).Logger()
}

// Trace writes through the logger at Debug level; this is how `set -x`
// (xtrace) emits the expanded command line rather than bypassing logging.
func Trace(component, line string) {
	if !Enabled {
		return
	}
	lg := Component(component)
	lg.Debug().Msg(line)
}
