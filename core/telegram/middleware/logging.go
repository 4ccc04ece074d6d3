package middleware

import (
	"log/slog"
	"time"

	"github.com/m3rciful/supportbot/core/logger"
	"github.com/m3rciful/supportbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/supportbot/core/telegram/helpers"
	"github.com/m3rciful/supportbot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// receiptTTL bounds how long an update id is remembered as already logged.
const receiptTTL = 10 * time.Second

// receipts holds update ids whose receipt line was written. Routes share it,
// so an update passing through several wrapped branches is logged once.
var receipts = state.NewTable[struct{}](nil)

func firstReceipt(updateID int) bool {
	receipts.Sweep(receiptTTL)
	key := int64(updateID)
	if _, seen := receipts.Get(key); seen {
		return false
	}
	receipts.Put(key, struct{}{})
	return true
}

// LoggerMiddleware assigns the request id of the update, caches its logging
// context and writes one sampled debug receipt line. It is a no-op when an
// outer layer already cached a context.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if _, ok := tghelpers.ContextFrom(c); ok {
			return next(c)
		}
		meta := tghelpers.MetaOf(c)
		rid := logger.BuildRID(meta.UpdateID, meta.ChatID, meta.UserID)
		c.Set(tghelpers.RIDKey, rid)
		ctx := tghelpers.NewContext(meta, rid)
		tghelpers.StoreContext(c, ctx)

		if logger.ShouldSampleDebug() && firstReceipt(meta.UpdateID) {
			logger.LogEvent(ctx, logger.TG, slog.LevelDebug, "update.received", receiptAttrs(c, meta)...)
		}
		return next(c)
	}
}

func receiptAttrs(c tele.Context, meta tghelpers.Meta) []slog.Attr {
	attrs := []slog.Attr{slog.String("status", "ok")}
	if meta.ChatID != 0 {
		attrs = append(attrs, slog.String("chat_type", string(meta.ChatType)))
	}
	if meta.Username != "" {
		attrs = append(attrs, slog.String("username", logger.SanitizeLimit(meta.Username, 64)))
	}
	if cb := c.Callback(); cb != nil {
		key, payload := callbacks.Parse(cb)
		if key != "" {
			attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 128)))
		}
		if payload != "" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(payload, 256)))
		}
		return attrs
	}
	msg := c.Message()
	if msg == nil {
		return attrs
	}
	switch {
	case msg.Photo != nil:
		attrs = append(attrs, slog.String("kind", "photo"))
	case msg.Video != nil:
		attrs = append(attrs, slog.String("kind", "video"))
	case msg.Text != "":
		attrs = append(attrs, slog.String("kind", "text"), slog.Int("text_len", len([]rune(msg.Text))))
	}
	if msg.ReplyTo != nil {
		attrs = append(attrs, slog.Int("reply_to", msg.ReplyTo.ID))
	}
	return attrs
}
