// Package drumlog is the module's sole logging entry point: one
// styled, leveled logger used only from foreground code (boot, slot
// load/save diagnostics), never from the audio or tempo
// ISR-equivalent paths, per spec.md §5's interrupt/foreground split.
//
// Grounded on the teacher's cmd/gbemu/main.go use of a single
// package-level logger threaded through the app, generalized from
// stdlib log.Printf/log.Fatalf to github.com/charmbracelet/log's
// structured, leveled API.
package drumlog

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Logger is the module's logging handle. It is a thin rename of
// *log.Logger so call sites don't need to import charmbracelet/log
// directly.
type Logger = log.Logger

// New returns a logger writing to w with the given level, styled with
// a timestamp and caller-friendly prefix.
func New(w io.Writer, level log.Level) *Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          "drumctl",
		Level:           level,
	})
	return l
}

// Default returns a logger at Info level writing to stderr, the
// configuration cmd/drumctl starts with before flags are parsed.
func Default() *Logger {
	return New(os.Stderr, log.InfoLevel)
}
