package log

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the process logger. The dev environment logs at
// debug level.
func NewLogger(appEnv string) zerolog.Logger {
	level := zerolog.InfoLevel
	if appEnv == "dev" {
		level = zerolog.DebugLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339
	return zerolog.New(os.Stderr).With().Timestamp().Logger().Level(level)
}
