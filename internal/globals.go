package internal

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

var (
	DefaultAppName = "watchtest"

	// DefaultPollInterval is the notification poll tick. It is intentionally
	// much smaller than any sensible debounce window.
	DefaultPollInterval = 100 * time.Millisecond

	// DefaultDebounce is the quiet period required before a batch is emitted.
	DefaultDebounce = 750 * time.Millisecond

	// Default Maven layout roots
	DefaultSourceDirectory = "src/main/java"
	DefaultTestDirectory   = "src/test/java"

	DefaultRunOrder = "filesystem"
	DefaultTempDir  = "target/tmp"
)

// GetLogger returns a properly configured zerolog logger instance
func GetLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
