package testlog

import (
	"testing"

	"github.com/rs/zerolog"
)

// Logger returns a quiet logger for tests; raise the level locally when
// debugging a failing run.
func Logger(t *testing.T) zerolog.Logger {
	t.Helper()
	return zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.WarnLevel)
}
