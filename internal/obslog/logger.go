// logger.go — zerolog construction for the session runtime.
// A single logger is built at process start and threaded through the
// Session Manager, Browser Session, Capture Coordinator and Replay Store via
// constructor injection; nothing in this module reads zerolog's global
// logger, so tests can install a silent or buffered one.
package obslog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds a zerolog.Logger at the given level, writing to stderr.
// Output goes to stderr rather than stdout because stdout is the MCP stdio
// transport's wire channel (see internal/bridge) — any stray byte on stdout
// would corrupt the JSON-RPC stream.
func New(level string) zerolog.Logger {
	return NewWithWriter(level, os.Stderr)
}

// NewWithWriter builds a zerolog.Logger writing to w, for tests and for the
// REST transport (which has no stdout-purity constraint but keeps logs
// separate from response bodies regardless).
func NewWithWriter(level string, w io.Writer) zerolog.Logger {
	console := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	return zerolog.New(console).Level(parseLevel(level)).With().Timestamp().Logger()
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Nop returns a logger that discards everything, for unit tests that don't
// want console noise.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
