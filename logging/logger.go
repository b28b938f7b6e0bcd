package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// LogLevel selects the minimum severity a ContextLogger writes.
type LogLevel int

// Supported levels, from most to least verbose.
const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l LogLevel) String() string {
	if l < LogLevelDebug || l > LogLevelError {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// toSlog maps the level onto the matching slog level.
func (l LogLevel) toSlog() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel maps a case-insensitive level name to a LogLevel. Unknown names
// fall back to info.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// Logger is the logging contract accepted by every package. Args are
// alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter lets an existing *slog.Logger serve as a Logger.
type SlogAdapter struct {
	*slog.Logger
}

// NewSlogAdapter wraps logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NoOpLogger discards everything.
type NoOpLogger struct{}

func (NoOpLogger) Debug(string, ...any) {}
func (NoOpLogger) Info(string, ...any)  {}
func (NoOpLogger) Warn(string, ...any)  {}
func (NoOpLogger) Error(string, ...any) {}

// LoggerConfig configures NewLogger.
type LoggerConfig struct {
	Level       LogLevel
	Format      string // "json" (default) or "text"
	Output      io.Writer
	AddSource   bool
	Component   string
	CustomAttrs map[string]any
}

// DefaultLoggerConfig writes JSON at info level to stderr.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{Level: LogLevelInfo, Format: "json", Output: os.Stderr}
}

// ContextLogger is a structured logger whose With* methods return scoped
// copies. It also carries the event helpers used by the processing pipeline.
type ContextLogger struct {
	logger *slog.Logger
}

var _ Logger = (*ContextLogger)(nil)

// NewLogger builds a ContextLogger. A nil cfg uses DefaultLoggerConfig.
func NewLogger(cfg *LoggerConfig) *ContextLogger {
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	hopts := &slog.HandlerOptions{Level: cfg.Level.toSlog(), AddSource: cfg.AddSource}
	var h slog.Handler = slog.NewJSONHandler(out, hopts)
	if cfg.Format == "text" {
		h = slog.NewTextHandler(out, hopts)
	}

	logger := slog.New(h)
	if cfg.Component != "" {
		logger = logger.With("component", cfg.Component)
	}
	for k, v := range cfg.CustomAttrs {
		logger = logger.With(k, v)
	}
	return &ContextLogger{logger: logger}
}

// NewSlogLogger is shorthand for NewLogger with stderr output.
func NewSlogLogger(level LogLevel, format string, addSource bool) *ContextLogger {
	cfg := DefaultLoggerConfig()
	cfg.Level = level
	cfg.AddSource = addSource
	if format != "" {
		cfg.Format = format
	}
	return NewLogger(cfg)
}

func (l *ContextLogger) with(args ...any) *ContextLogger {
	return &ContextLogger{logger: l.logger.With(args...)}
}

// WithContext attaches key=value to every entry of the returned logger.
func (l *ContextLogger) WithContext(key string, value any) *ContextLogger {
	return l.with(key, value)
}

// WithComponent tags entries with the emitting component (snapshot, router, cli).
func (l *ContextLogger) WithComponent(c string) *ContextLogger {
	return l.with("component", c)
}

// WithPass tags entries with a processing pass id.
func (l *ContextLogger) WithPass(id string) *ContextLogger {
	return l.with("pass_id", id)
}

// WithSpan tags entries with the trace and span ids of the span in ctx.
// Without a valid span context the logger is returned unchanged.
func (l *ContextLogger) WithSpan(ctx context.Context) *ContextLogger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}
	return l.with("trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String())
}

func (l *ContextLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *ContextLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *ContextLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *ContextLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

func (l *ContextLogger) emit(level slog.Level, msg string, attrs ...slog.Attr) {
	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// outcome logs okMsg at info, or failMsg at error with the error attached.
func (l *ContextLogger) outcome(okMsg, failMsg string, err error, attrs ...slog.Attr) {
	attrs = append(attrs, slog.Bool("success", err == nil))
	if err != nil {
		l.emit(slog.LevelError, failMsg, append(attrs, slog.String("error", err.Error()))...)
		return
	}
	l.emit(slog.LevelInfo, okMsg, attrs...)
}

// LogPass records the outcome of one processing pass.
func (l *ContextLogger) LogPass(messages, lore, entities, tokens int, dur time.Duration, err error) {
	l.outcome("Processing pass completed", "Processing pass failed", err,
		slog.Int("messages", messages),
		slog.Int("lore_entries", lore),
		slog.Int("entities", entities),
		slog.Int("tokens", tokens),
		slog.Duration("duration", dur),
	)
}

// LogRoute records an assembled consumer bundle.
func (l *ContextLogger) LogRoute(consumer, phase string, sections, length int) {
	l.emit(slog.LevelInfo, "Context routed",
		slog.String("consumer", consumer),
		slog.String("phase", phase),
		slog.Int("sections", sections),
		slog.Int("length", length),
	)
}

// LogQuery records a relevance query.
func (l *ContextLogger) LogQuery(query string, results int, cached bool, dur time.Duration) {
	l.emit(slog.LevelDebug, "Relevance query",
		slog.String("query", query),
		slog.Int("results", results),
		slog.Bool("cached", cached),
		slog.Duration("duration", dur),
	)
}

// LogGenerate records a model call.
func (l *ContextLogger) LogGenerate(model string, dur time.Duration, err error) {
	l.outcome("Generation completed", "Generation failed", err,
		slog.String("model", model),
		slog.Duration("duration", dur),
	)
}
