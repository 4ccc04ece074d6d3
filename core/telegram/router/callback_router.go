package router

import (
	"log/slog"

	tg "github.com/m3rciful/supportbot/core/telegram"
	"github.com/m3rciful/supportbot/core/telegram/callbacks"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	// NotFound overrides the registry fallback for unknown keys.
	NotFound tele.HandlerFunc
}

// CallbackRoute dispatches every callback query by its key. Handlers answer
// the callback themselves.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	dispatch := func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil {
			return nil
		}
		key, _ := callbacks.Parse(cb)
		handler := "callback." + handlerName(key)
		keyAttr := slog.String("cb_key", key)

		if h, ok := reg.GetCallback(key); ok {
			return run(c, handler, func() error { return h(c) }, keyAttr)
		}

		fallback := opts.NotFound
		if fallback == nil {
			fallback = reg.CallbackNotFound()
		}
		skipped(c, handler, keyAttr, slog.String("reason", "not_found"))
		if fallback == nil {
			return c.Respond()
		}
		return fallback(c)
	}
	return tg.Route{Endpoint: tele.OnCallback, Handler: wrap(dispatch)}
}
