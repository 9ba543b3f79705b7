package airlift

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewDiagnosticLogger returns a logger writing an actor's diagnostic stream
// to path, appending across restarts. Each actor process owns exactly one
// diagnostic file; the core protocol never writes here, only the actor's run
// loop and bootstrap do.
func NewDiagnosticLogger(path, actor string) (zerolog.Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("error opening diagnostic stream: %v", err)
	}
	output := zerolog.ConsoleWriter{
		Out:        f,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}
	return zerolog.New(output).With().Timestamp().Str("actor", actor).Logger(), nil
}
