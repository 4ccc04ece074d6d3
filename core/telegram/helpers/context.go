package helpers

import (
	"context"

	"github.com/m3rciful/supportbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const (
	ctxKey = "tg.ctx"
	// RIDKey is the tele.Context key holding the request id of the update.
	RIDKey = "rid"
)

// Meta identifies the update being handled.
type Meta struct {
	UpdateID int
	ChatID   int64
	UserID   int64
	ChatType tele.ChatType
	Username string
}

// MetaOf collects ids from c. Callback updates carry no chat of their own,
// so the chat of the message holding the button is used instead.
func MetaOf(c tele.Context) Meta {
	var m Meta
	if c == nil {
		return m
	}
	m.UpdateID = c.Update().ID
	if u := c.Sender(); u != nil {
		m.UserID = u.ID
		m.Username = u.Username
	}
	chat := c.Chat()
	if chat == nil {
		if cb := c.Callback(); cb != nil && cb.Message != nil {
			chat = cb.Message.Chat
		}
	}
	if chat != nil {
		m.ChatID = chat.ID
		m.ChatType = chat.Type
	}
	return m
}

// NewContext returns a logging context for m. An empty rid is derived from m.
func NewContext(m Meta, rid string) context.Context {
	if rid == "" {
		rid = logger.BuildRID(m.UpdateID, m.ChatID, m.UserID)
	}
	ctx := logger.WithRID(context.Background(), rid)
	ctx = logger.WithUpdateMeta(ctx, m.UpdateID, m.UserID, m.ChatID)
	return logger.WithLogger(ctx, logger.TG)
}

// StoreContext caches ctx on c for later handlers.
func StoreContext(c tele.Context, ctx context.Context) {
	if c != nil && ctx != nil {
		c.Set(ctxKey, ctx)
	}
}

// ContextFrom returns the context cached by StoreContext.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	ctx, ok := c.Get(ctxKey).(context.Context)
	return ctx, ok && ctx != nil
}

// BuildContext returns the cached context of c, creating and caching one on
// first use.
func BuildContext(c tele.Context) context.Context {
	if ctx, ok := ContextFrom(c); ok {
		return ctx
	}
	rid, _ := c.Get(RIDKey).(string)
	ctx := NewContext(MetaOf(c), rid)
	StoreContext(c, ctx)
	return ctx
}

// WithHandler tags the cached context with the handler name.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler != "" && logger.HandlerFrom(ctx) != handler {
		ctx = logger.WithHandler(ctx, handler)
		StoreContext(c, ctx)
	}
	return ctx
}
