package analytics

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
)

// Logger is anything with a Printf method, such as *log.Logger.
// Use WrapPrintfLogger to turn one into a StructuredLogger.
type Logger interface {
	Printf(format string, v ...any)
}

// StructuredLogger receives the SDK's leveled diagnostics as a message
// plus alternating key-value pairs, the same convention as log/slog.
//
//	client, _ := analytics.New(apiURL, appID,
//	    analytics.WithDebug(true),
//	    analytics.WithLogger(analytics.NewSlogAdapter(slog.Default())),
//	)
type StructuredLogger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// printfLogger renders leveled records as "[LEVEL] msg | k=v" lines.
type printfLogger struct {
	out Logger
}

// WrapPrintfLogger adapts a printf-style logger. Key-value pairs are
// appended to the message.
func WrapPrintfLogger(l Logger) StructuredLogger {
	return printfLogger{out: l}
}

// WrapStdLogger adapts a standard library *log.Logger.
func WrapStdLogger(l *log.Logger) StructuredLogger {
	return printfLogger{out: l}
}

func (p printfLogger) Debug(msg string, args ...any) { p.emit("DEBUG", msg, args) }
func (p printfLogger) Info(msg string, args ...any)  { p.emit("INFO", msg, args) }
func (p printfLogger) Warn(msg string, args ...any)  { p.emit("WARN", msg, args) }
func (p printfLogger) Error(msg string, args ...any) { p.emit("ERROR", msg, args) }

func (p printfLogger) emit(level, msg string, args []any) {
	p.out.Printf("[%s] %s%s", level, msg, formatArgs(args))
}

// formatArgs renders key-value pairs as " | k=v k2=v2". A trailing key
// without a value renders as k=<nil>.
func formatArgs(args []any) string {
	if len(args) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(" |")
	for i := 0; i < len(args); i += 2 {
		var value any
		if i+1 < len(args) {
			value = args[i+1]
		}
		fmt.Fprintf(&b, " %v=%v", args[i], value)
	}
	return b.String()
}

// NopLogger discards everything. It satisfies both Logger and
// StructuredLogger.
type NopLogger struct{}

func (NopLogger) Printf(string, ...any) {}
func (NopLogger) Debug(string, ...any)  {}
func (NopLogger) Info(string, ...any)   {}
func (NopLogger) Warn(string, ...any)   {}
func (NopLogger) Error(string, ...any)  {}

// SlogAdapter forwards SDK diagnostics to a *slog.Logger.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter wraps logger, or slog.Default() when logger is nil.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAdapter{logger: logger}
}

func (a *SlogAdapter) Debug(msg string, args ...any) { a.logger.Debug(msg, args...) }
func (a *SlogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *SlogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *SlogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }

// With returns an adapter that adds args to every record.
func (a *SlogAdapter) With(args ...any) *SlogAdapter {
	return &SlogAdapter{logger: a.logger.With(args...)}
}

// WithGroup returns an adapter that nests record attributes under name.
func (a *SlogAdapter) WithGroup(name string) *SlogAdapter {
	return &SlogAdapter{logger: a.logger.WithGroup(name)}
}

// defaultDebugLogger writes debug-level text logs to stderr.
func defaultDebugLogger() StructuredLogger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	return NewSlogAdapter(slog.New(handler)).With("sdk", "analytics")
}

var (
	_ Logger           = NopLogger{}
	_ StructuredLogger = NopLogger{}
	_ StructuredLogger = (*SlogAdapter)(nil)
	_ StructuredLogger = printfLogger{}
)
