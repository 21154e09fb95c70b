package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/sufield/clusterauth/internal/core/ports"
)

// SecureLogger implements ports.Logger on top of a redacting slog handler.
type SecureLogger struct {
	logger *slog.Logger
}

// NewSecureLogger creates a logger writing through a RedactorHandler.
func NewSecureLogger(handler slog.Handler) *SecureLogger {
	return &SecureLogger{logger: slog.New(NewRedactorHandler(handler))}
}

// Options selects the handler NewHandler builds.
type Options struct {
	Level  string
	Format string
}

// NewHandler builds a text or JSON handler at the named level. Unknown levels
// fall back to info.
func NewHandler(w io.Writer, opts Options) slog.Handler {
	hopts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	if strings.EqualFold(opts.Format, "json") {
		return slog.NewJSONHandler(w, hopts)
	}
	return slog.NewTextHandler(w, hopts)
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *SecureLogger) Debug(ctx context.Context, message string, attrs ...ports.LogAttribute) {
	l.log(ctx, slog.LevelDebug, message, attrs)
}

func (l *SecureLogger) Info(ctx context.Context, message string, attrs ...ports.LogAttribute) {
	l.log(ctx, slog.LevelInfo, message, attrs)
}

func (l *SecureLogger) Warn(ctx context.Context, message string, attrs ...ports.LogAttribute) {
	l.log(ctx, slog.LevelWarn, message, attrs)
}

func (l *SecureLogger) Error(ctx context.Context, message string, attrs ...ports.LogAttribute) {
	l.log(ctx, slog.LevelError, message, attrs)
}

// WithAttrs returns a logger that adds attrs to every record.
func (l *SecureLogger) WithAttrs(attrs ...ports.LogAttribute) ports.Logger {
	return &SecureLogger{logger: slog.New(l.logger.Handler().WithAttrs(toSlog(attrs)))}
}

// WithGroup returns a logger that nests subsequent attributes under name.
func (l *SecureLogger) WithGroup(name string) ports.Logger {
	return &SecureLogger{logger: l.logger.WithGroup(name)}
}

func (l *SecureLogger) log(ctx context.Context, level slog.Level, message string, attrs []ports.LogAttribute) {
	if !l.logger.Enabled(ctx, level) {
		return
	}
	l.logger.LogAttrs(ctx, level, message, toSlog(attrs)...)
}

func toSlog(attrs []ports.LogAttribute) []slog.Attr {
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = slog.Any(a.Key, a.Value)
	}
	return out
}

// SecureLoggerProvider implements ports.LoggerProvider.
type SecureLoggerProvider struct {
	handler slog.Handler
}

// NewSecureLoggerProvider creates a provider handing out loggers over handler.
func NewSecureLoggerProvider(handler slog.Handler) *SecureLoggerProvider {
	return &SecureLoggerProvider{handler: handler}
}

// GetLogger returns a logger for ctx.
func (p *SecureLoggerProvider) GetLogger(context.Context) ports.Logger {
	return NewSecureLogger(p.handler)
}
