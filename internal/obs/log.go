// Package obs wires the module's structured logging. Every component takes
// a logger at construction time rather than reaching for a process-wide
// singleton (spec §9's re-architecture note on the original's global
// spdlog), but a package-level default is provided for cmd/dbal and tests
// that don't need an injected logger of their own.
package obs

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"dbal/internal/dbalerr"
)

// New builds a zerolog.Logger. Format is "console" (human-readable, the
// default) or "json", selected by DBAL_LOG_FORMAT.
func New(w io.Writer) zerolog.Logger {
	format := strings.ToLower(os.Getenv("DBAL_LOG_FORMAT"))
	if format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	level := zerolog.InfoLevel
	if lv, err := zerolog.ParseLevel(strings.ToLower(os.Getenv("DBAL_LOG_LEVEL"))); err == nil {
		level = lv
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

var defaultLogger = New(os.Stderr)

// L returns the process-wide default logger. Components constructed
// without an explicit logger fall back to this.
func L() *zerolog.Logger { return &defaultLogger }

// LogError writes err at the severity spec §7 assigns to its Kind.
func LogError(logger *zerolog.Logger, err error, msg string) {
	if logger == nil {
		logger = L()
	}
	kind := dbalerr.KindOf(err)
	event := logger.Warn()
	switch dbalerr.SeverityOf(kind) {
	case dbalerr.SeverityCritical:
		event = logger.Error()
	case dbalerr.SeverityError:
		event = logger.Error()
	}
	event.Err(err).Str("kind", string(kind)).Msg(msg)
}
