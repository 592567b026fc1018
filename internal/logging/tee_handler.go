package logging

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler sends each record to a primary handler and a job-scoped
// secondary handler. Levels are checked per side, so a debug job log still
// receives records the info-level daemon log drops.
type teeHandler struct {
	primary   slog.Handler
	secondary slog.Handler
}

func (h teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.primary.Enabled(ctx, level) || h.secondary.Enabled(ctx, level)
}

func (h teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errPrimary, errSecondary error
	if h.primary.Enabled(ctx, record.Level) {
		errPrimary = h.primary.Handle(ctx, record.Clone())
	}
	if h.secondary.Enabled(ctx, record.Level) {
		errSecondary = h.secondary.Handle(ctx, record)
	}
	return errors.Join(errPrimary, errSecondary)
}

func (h teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return teeHandler{primary: h.primary.WithAttrs(attrs), secondary: h.secondary.WithAttrs(attrs)}
}

func (h teeHandler) WithGroup(name string) slog.Handler {
	return teeHandler{primary: h.primary.WithGroup(name), secondary: h.secondary.WithGroup(name)}
}

// TeeLogger returns a logger writing to both base and extra. A nil base logs
// to extra alone.
func TeeLogger(base *slog.Logger, extra slog.Handler) *slog.Logger {
	if base == nil {
		return slog.New(extra)
	}
	return slog.New(teeHandler{primary: base.Handler(), secondary: extra})
}
