// Package logging provides the slog backed ports.Logger with redaction of
// cluster credentials.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// RedactedValue replaces the value of a redacted attribute.
const RedactedValue = "[REDACTED]"

// exactFields are redacted only on an exact (case-insensitive) key match.
var exactFields = map[string]bool{
	"key":                   true,
	"auth":                  true,
	"token":                 true,
	"password":              true,
	"certificate_authority": true,
	"ca_data":               true,
	"authorization":         true,
}

// fragments redact any key containing them, e.g. "hawkular_auth_key".
var fragments = []string{
	"auth_key",
	"bearer",
	"password",
	"secret",
	"token",
	"private_key",
	"credentials",
}

// RedactorHandler wraps an slog.Handler and redacts credential attributes.
type RedactorHandler struct {
	handler slog.Handler
}

// NewRedactorHandler creates a redacting handler around handler.
func NewRedactorHandler(handler slog.Handler) *RedactorHandler {
	return &RedactorHandler{handler: handler}
}

// Enabled implements slog.Handler.
func (h *RedactorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle implements slog.Handler.
//
//nolint:gocritic // Required by slog.Handler interface
func (h *RedactorHandler) Handle(ctx context.Context, record slog.Record) error {
	out := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(attr slog.Attr) bool {
		out.AddAttrs(redactAttr(attr))
		return true
	})

	if err := h.handler.Handle(ctx, out); err != nil {
		return fmt.Errorf("redactor handle failed: %w", err)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *RedactorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		redacted[i] = redactAttr(attr)
	}
	return &RedactorHandler{handler: h.handler.WithAttrs(redacted)}
}

// WithGroup implements slog.Handler.
func (h *RedactorHandler) WithGroup(name string) slog.Handler {
	return &RedactorHandler{handler: h.handler.WithGroup(name)}
}

func redactAttr(attr slog.Attr) slog.Attr {
	if IsSensitiveKey(attr.Key) {
		return slog.String(attr.Key, RedactedValue)
	}

	switch attr.Value.Kind() {
	case slog.KindGroup:
		group := attr.Value.Group()
		redacted := make([]slog.Attr, len(group))
		for i, a := range group {
			redacted[i] = redactAttr(a)
		}
		return slog.Attr{Key: attr.Key, Value: slog.GroupValue(redacted...)}
	case slog.KindString:
		return slog.String(attr.Key, redactString(attr.Value.String()))
	default:
		return attr
	}
}

// IsSensitiveKey reports whether values logged under key are redacted.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	if exactFields[lower] {
		return true
	}
	for _, f := range fragments {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}

func redactString(value string) string {
	if strings.Contains(value, "-----BEGIN ") {
		return RedactedValue
	}
	// Service account tokens are JWTs.
	if strings.HasPrefix(value, "eyJ") && strings.Count(value, ".") >= 2 {
		return RedactedValue
	}
	if strings.HasPrefix(strings.ToLower(value), "bearer ") {
		return RedactedValue
	}
	return value
}
