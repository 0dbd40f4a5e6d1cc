package logger

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"
)

const redacted = "[REDACTED]"

// storedHashPrefix marks a salted credential hash as written by auth.
const storedHashPrefix = "scrypt$"

type maskFunc func(slog.Value) slog.Value

// credentialMasks maps attribute keys to how their values are logged.
var credentialMasks = map[string]maskFunc{
	"password":      hide,
	"new_password":  hide,
	"answer":        hide,
	"password_hash": hide,
	"answer_hash":   hide,
	"hash":          hide,
	"nickname":      initialOnly,
}

func hide(slog.Value) slog.Value { return slog.StringValue(redacted) }

// initialOnly keeps the first rune of a login name.
func initialOnly(v slog.Value) slog.Value {
	r, size := utf8.DecodeRuneInString(v.String())
	if size == 0 {
		return slog.StringValue("")
	}
	return slog.StringValue(string(r) + "***")
}

// credentialHandler masks login material before records reach the wrapped handler.
type credentialHandler struct {
	next slog.Handler
}

func newCredentialHandler(next slog.Handler) slog.Handler {
	return credentialHandler{next: next}
}

func (h credentialHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h credentialHandler) Handle(ctx context.Context, record slog.Record) error {
	masked := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(a slog.Attr) bool {
		masked.AddAttrs(maskAttr(a))
		return true
	})
	return h.next.Handle(ctx, masked)
}

func (h credentialHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = maskAttr(a)
	}
	return credentialHandler{next: h.next.WithAttrs(masked)}
}

func (h credentialHandler) WithGroup(name string) slog.Handler {
	return credentialHandler{next: h.next.WithGroup(name)}
}

// maskAttr checks the key before descending into groups, so a group named
// after a credential is masked whole.
func maskAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()
	if mask, ok := credentialMasks[strings.ToLower(a.Key)]; ok {
		if a.Value.Kind() == slog.KindGroup {
			return slog.String(a.Key, redacted)
		}
		return slog.Attr{Key: a.Key, Value: mask(a.Value)}
	}
	switch a.Value.Kind() {
	case slog.KindGroup:
		group := a.Value.Group()
		inner := make([]slog.Attr, len(group))
		for i, g := range group {
			inner[i] = maskAttr(g)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(inner...)}
	case slog.KindString:
		if strings.HasPrefix(a.Value.String(), storedHashPrefix) {
			return slog.String(a.Key, redacted)
		}
	}
	return a
}
