// Package irlog wires the core's diagnostic tracing through
// github.com/tliron/commonlog, the same logging facade cmd/kanso-lsp
// configures for its language server. The core never decides how log lines
// get rendered or filtered — it only asks for a named logger and writes
// through it — so a host embedding this module keeps full control over
// verbosity via Configure, exactly as the language server does for its own
// logging.
package irlog

import "github.com/tliron/commonlog"

// Configure sets the process-wide commonlog verbosity level (1 is debug,
// matching cmd/kanso-lsp's own default) and backend. A process that never
// calls Configure still gets commonlog's built-in default logger.
func Configure(maxLevel int) {
	commonlog.Configure(maxLevel, nil)
}

// Logger traces one subsystem's activity under its own name, the way
// commonlog.GetLogger already scopes the language server's own log lines.
type Logger struct {
	commonlog.Logger
}

// For returns the named logger for a subsystem — "resolve" for the
// def-resolution engine's block-sealing trace, "determinator" for the
// guard-injection trace, "parse" for the textual-form mirror parser.
func For(name string) Logger {
	return Logger{commonlog.GetLogger("octave-ir." + name)}
}
