package middleware

import (
	"slices"

	tghelpers "github.com/m3rciful/supportbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// countingContext counts replies a handler sends through tele.Context. Sends
// made through the gateway update the same counters via the stored context.
type countingContext struct {
	tele.Context
	counters *tghelpers.Counters
}

func (c countingContext) Send(what any, opts ...any) error {
	return c.track(c.Context.Send(what, opts...), opts)
}

func (c countingContext) Reply(what any, opts ...any) error {
	return c.track(c.Context.Reply(what, opts...), opts)
}

func (c countingContext) Edit(what any, opts ...any) error {
	return c.track(c.Context.Edit(what, opts...), opts)
}

func (c countingContext) EditOrSend(what any, opts ...any) error {
	return c.track(c.Context.EditOrSend(what, opts...), opts)
}

func (c countingContext) track(err error, opts []any) error {
	if err == nil {
		c.counters.Add(slices.ContainsFunc(opts, carriesMarkup))
	}
	return err
}

func carriesMarkup(o any) bool {
	switch v := o.(type) {
	case *tele.SendOptions:
		return v != nil && v.ReplyMarkup != nil
	case *tele.ReplyMarkup:
		return v != nil
	}
	return false
}

// MessageMetricsMiddleware attaches per-update reply counters.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx, counters := tghelpers.WithCounters(tghelpers.BuildContext(c))
		tghelpers.StoreContext(c, ctx)
		return next(countingContext{Context: c, counters: counters})
	}
}

// GetCounters returns the reply count and whether any reply carried a keyboard.
func GetCounters(c tele.Context) (int, bool) {
	ctx, ok := tghelpers.ContextFrom(c)
	if !ok {
		return 0, false
	}
	return tghelpers.CountersFrom(ctx).Snapshot()
}
