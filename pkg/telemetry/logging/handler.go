package logging

import (
	"context"
	"log/slog"
)

// handler decorates a base handler with context fields and redaction.
type handler struct {
	base     slog.Handler
	redactor *Redactor
	grouped  bool
}

func newHandler(base slog.Handler, redactor *Redactor) *handler {
	return &handler{base: base, redactor: redactor}
}

func (h *handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *handler) Handle(ctx context.Context, r slog.Record) error {
	extra := contextAttrs(ctx)
	if h.redactor == nil && len(extra) == 0 {
		return h.base.Handle(ctx, r)
	}

	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redact(a))
		return true
	})
	out.AddAttrs(extra...)
	return h.base.Handle(ctx, out)
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redact(a)
	}
	return &handler{base: h.base.WithAttrs(redacted), redactor: h.redactor, grouped: h.grouped}
}

func (h *handler) WithGroup(name string) slog.Handler {
	return &handler{base: h.base.WithGroup(name), redactor: h.redactor, grouped: true}
}

// redact hashes top-level string attributes whose key is configured.
// Attributes inside groups are left alone.
func (h *handler) redact(a slog.Attr) slog.Attr {
	if h.redactor == nil || h.grouped || !h.redactor.Applies(a.Key) {
		return a
	}
	v := a.Value.Resolve()
	if v.Kind() != slog.KindString {
		return a
	}
	return slog.String(a.Key, h.redactor.Redact(v.String()))
}
