package logger

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler delivers each record to the local console handler and to the
// Better Stack shipper. Records are cloned before the second delivery
// because handlers may consume attributes destructively.
type teeHandler struct {
	console slog.Handler
	shipper slog.Handler
}

func newTeeHandler(console, shipper slog.Handler) slog.Handler {
	if shipper == nil {
		return console
	}
	return &teeHandler{console: console, shipper: shipper}
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return t.console.Enabled(ctx, level) || t.shipper.Enabled(ctx, level)
}

func (t *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var consoleErr, shipErr error
	if t.console.Enabled(ctx, r.Level) {
		consoleErr = t.console.Handle(ctx, r.Clone())
	}
	if t.shipper.Enabled(ctx, r.Level) {
		shipErr = t.shipper.Handle(ctx, r.Clone())
	}
	return errors.Join(consoleErr, shipErr)
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &teeHandler{
		console: t.console.WithAttrs(attrs),
		shipper: t.shipper.WithAttrs(attrs),
	}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	return &teeHandler{
		console: t.console.WithGroup(name),
		shipper: t.shipper.WithGroup(name),
	}
}
