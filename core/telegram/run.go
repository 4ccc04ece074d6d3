package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	coreconfig "github.com/m3rciful/supportbot/core/config"
	"github.com/m3rciful/supportbot/core/logger"
	tgsender "github.com/m3rciful/supportbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Middleware is a global bot middleware installed with bot.Use.
type Middleware struct {
	Name string
	Use  tele.MiddlewareFunc
}

// Route binds a handler to a telebot endpoint (a command, tele.OnText, ...).
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	DispatcherOptions tgsender.Options
	Dispatcher        *tgsender.Dispatcher

	Middlewares []Middleware
	Routes      []Route

	// Bind runs once the bot exists and returns routes that need it,
	// such as handlers sending through the Bot API outside tele.Context.
	Bind func(rt Runtime) ([]Route, error)

	// KeepWebhook skips webhook removal when starting in long-poll mode.
	KeepWebhook bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

// RunTelegram builds the bot, binds routes and serves updates until ctx is
// done. A cancelled ctx is a clean shutdown and returns nil.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := opts.Config
	if cfg == nil {
		return errors.New("telegram: nil config provided")
	}
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}

	popts := PollerOptionsFrom(cfg)
	bot, err := newBot(ctx, cfg.Telegram.Token, popts)
	if err != nil {
		return err
	}
	if !popts.Webhook && !opts.KeepWebhook {
		removeWebhook(ctx, bot)
	}

	dispatcher := opts.Dispatcher
	if dispatcher == nil {
		dispatcher = tgsender.NewDispatcher(opts.DispatcherOptions)
	}
	defer dispatcher.Close()
	rt := Runtime{Bot: bot, Dispatcher: dispatcher, Registry: reg}

	if err := install(bot, rt, opts); err != nil {
		return err
	}
	SetupCommands(bot, reg)

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return err
		}
	}

	runErr := serve(ctx, bot)

	if opts.OnStop != nil {
		if err := opts.OnStop(context.WithoutCancel(ctx), rt); err != nil {
			return err
		}
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

func newBot(ctx context.Context, token string, popts PollerOptions) (*tele.Bot, error) {
	start := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: BuildPoller(popts),
		Client: BuildHTTPClient(popts.PollTimeout),
		// One update at a time: conversation handlers assume no parallel events.
		Synchronous: true,
		OnError:     logUpdateError,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}

	attrs := []slog.Attr{
		slog.String("event", "mode"),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	}
	if popts.Webhook {
		attrs = append(attrs,
			slog.String("mode", "webhook"),
			slog.String("public_url", popts.PublicURL),
			slog.Bool("secret", popts.Secret != ""),
		)
	} else {
		attrs = append(attrs,
			slog.String("mode", "polling"),
			slog.Int("timeout_seconds", int(popts.PollTimeout/time.Second)),
		)
	}
	logger.TG.LogAttrs(ctx, slog.LevelInfo, "bot ready", attrs...)
	return bot, nil
}

// removeWebhook clears a webhook left by an earlier deployment; getUpdates
// fails while one is set.
func removeWebhook(ctx context.Context, bot *tele.Bot) {
	level, attrs := slog.LevelInfo, []slog.Attr{slog.String("event", "delete_webhook")}
	if err := bot.RemoveWebhook(); err != nil {
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
	}
	logger.TG.LogAttrs(ctx, level, "webhook removal", attrs...)
}

// install registers global middleware and every static and bound route.
func install(bot *tele.Bot, rt Runtime, opts RunOptions) error {
	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	routes := append([]Route(nil), opts.Routes...)
	if opts.Bind != nil {
		bound, err := opts.Bind(rt)
		if err != nil {
			return fmt.Errorf("telegram: bind failed: %w", err)
		}
		routes = append(routes, bound...)
	}
	for _, r := range routes {
		if r.Endpoint != nil && r.Handler != nil {
			bot.Handle(r.Endpoint, r.Handler)
		}
	}
	return nil
}

// serve runs the poller until ctx is done or the bot stops by itself.
func serve(ctx context.Context, bot *tele.Bot) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		bot.Start()
	}()
	select {
	case <-ctx.Done():
		bot.Stop()
		<-done
		return ctx.Err()
	case <-done:
		return nil
	}
}

func logUpdateError(err error, c tele.Context) {
	attrs := []slog.Attr{
		slog.String("event", "tg.error"),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	}
	if c != nil && c.Update().ID != 0 {
		attrs = append(attrs, slog.Int("update_id", c.Update().ID))
	}
	logger.TG.LogAttrs(context.Background(), slog.LevelError, "update failed", attrs...)
}
