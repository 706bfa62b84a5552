// logger.go - Shared structured logger for the module.
//
// Wraps zerolog behind a package-level instance so library code can emit
// structured events without owning logger configuration. Embedding programs
// replace or disable it through Set, SetOutput, and Disable.

package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logger zerolog.Logger

func init() {
	w := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger = zerolog.New(w).With().Timestamp().Logger()
}

// Logger returns the shared logger instance.
func Logger() zerolog.Logger {
	return logger
}

// Set replaces the shared logger.
func Set(l zerolog.Logger) {
	logger = l
}

// SetOutput redirects the shared logger to w.
func SetOutput(w io.Writer) {
	logger = logger.Output(w)
}

// Disable silences the shared logger.
func Disable() {
	logger = zerolog.Nop()
}
