package logger

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	keyLogger ctxKey = iota
	keyRID
	keyUpdate
	keyHandler
	keyTicket
)

// updateMeta identifies the Telegram update a context belongs to.
type updateMeta struct {
	updateID int
	userID   int64
	chatID   int64
}

func lookup[T any](ctx context.Context, key ctxKey) T {
	var zero T
	if ctx == nil {
		return zero
	}
	v, _ := ctx.Value(key).(T)
	return v
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func with(ctx context.Context, key ctxKey, v any) context.Context {
	return context.WithValue(orBackground(ctx), key, v)
}

// WithLogger makes log the logger LogEvent falls back to for ctx.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if log == nil {
		return orBackground(ctx)
	}
	return with(ctx, keyLogger, log)
}

// FromContext returns the logger stored by WithLogger, or L.
func FromContext(ctx context.Context) *slog.Logger {
	if log := lookup[*slog.Logger](ctx, keyLogger); log != nil {
		return log
	}
	return L
}

// WithRID tags ctx with a request id.
func WithRID(ctx context.Context, rid string) context.Context {
	return with(ctx, keyRID, rid)
}

func RIDFrom(ctx context.Context) string {
	return lookup[string](ctx, keyRID)
}

// WithUpdateMeta tags ctx with the update, user and chat ids.
func WithUpdateMeta(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	return with(ctx, keyUpdate, updateMeta{updateID: updateID, userID: userID, chatID: chatID})
}

func UpdateIDFrom(ctx context.Context) int {
	return lookup[updateMeta](ctx, keyUpdate).updateID
}

func UserIDFrom(ctx context.Context) int64 {
	return lookup[updateMeta](ctx, keyUpdate).userID
}

func ChatIDFrom(ctx context.Context) int64 {
	return lookup[updateMeta](ctx, keyUpdate).chatID
}

// WithHandler names the handler serving the update. An empty name is ignored.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		return orBackground(ctx)
	}
	return with(ctx, keyHandler, handler)
}

func HandlerFrom(ctx context.Context) string {
	return lookup[string](ctx, keyHandler)
}

// WithTicket tags downstream logs with the ticket being processed.
func WithTicket(ctx context.Context, ticketID string) context.Context {
	if ticketID == "" {
		return orBackground(ctx)
	}
	return with(ctx, keyTicket, ticketID)
}

func TicketFrom(ctx context.Context) string {
	return lookup[string](ctx, keyTicket)
}
