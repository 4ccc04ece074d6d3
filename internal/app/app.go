// Package app wires the support conversation into the Telegram runtime.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/supportbot/core/bootstrap"
	"github.com/m3rciful/supportbot/core/cmd"
	coreconfig "github.com/m3rciful/supportbot/core/config"
	"github.com/m3rciful/supportbot/core/logger"
	coretelegram "github.com/m3rciful/supportbot/core/telegram"
	"github.com/m3rciful/supportbot/core/telegram/commands"
	"github.com/m3rciful/supportbot/core/telegram/gateway"
	tghelpers "github.com/m3rciful/supportbot/core/telegram/helpers"
	"github.com/m3rciful/supportbot/core/telegram/router"
	"github.com/m3rciful/supportbot/internal/support"
	"github.com/m3rciful/supportbot/internal/support/journal"
	"github.com/m3rciful/supportbot/internal/support/ticket"

	tele "gopkg.in/telebot.v4"
)

// App holds long-lived components. The support dispatcher is created once
// the bot exists.
type App struct {
	cfg   *coreconfig.Config
	infra *bootstrap.Result
	store *journal.Store

	dispatcher *support.Dispatcher
	ops        *opsServer
	stopSweep  context.CancelFunc
}

// Bootstrap initialises logging and the optional journal database.
func Bootstrap(ctx context.Context, carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
	cfg := carrier.CoreConfig()
	infra, err := bootstrap.Run(ctx, bootstrap.Options{Config: cfg})
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, infra: infra}
	if infra.DB != nil {
		a.store = journal.NewStore(infra.DB)
	}
	return a, nil
}

// Close releases the journal database.
func (a *App) Close() error {
	return a.infra.Close()
}

// TelegramRunOptions implements cmd.TelegramApp.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	cmds := map[string]commands.Command{
		"/start": {
			Handler:     a.command(support.CommandStart),
			Description: "Report a problem",
			PrivateOnly: true,
		},
		"/cancel": {
			Handler:     a.command(support.CommandCancel),
			Description: "Abort the current request",
			PrivateOnly: true,
		},
	}
	for name, cmd := range cmds {
		if err := reg.RegisterCommand(name, cmd); err != nil {
			return coretelegram.RunOptions{}, fmt.Errorf("app: %w", err)
		}
	}
	for _, action := range []string{support.ActionCategory, support.ActionTicket, support.ActionFeedback, support.ActionReply} {
		if err := reg.RegisterCallback(action, a.onClick); err != nil {
			return coretelegram.RunOptions{}, fmt.Errorf("app: %w", err)
		}
	}

	return coretelegram.RunOptions{
		Config:      a.cfg,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(),
		Bind:        a.bind,
		OnStart:     a.onStart,
		OnStop:      a.onStop,
	}, nil
}

func (a *App) bind(rt coretelegram.Runtime) ([]coretelegram.Route, error) {
	opts := support.Options{
		Gateway:     gateway.New(rt.Bot, rt.Dispatcher),
		StaffChatID: a.cfg.Telegram.StaffChatID,
		SessionTTL:  a.cfg.Support.SessionTTL,
		PointerTTL:  a.cfg.Support.PointerTTL,
	}
	if a.store != nil {
		opts.Journal = a.store
		opts.Resolvers = []ticket.Resolver{journal.Resolver{Store: a.store, StaffChatID: a.cfg.Telegram.StaffChatID}}
	}
	a.dispatcher = support.NewDispatcher(support.New(opts))

	routes := router.CommandRoutes(rt.Registry, router.CommandRouteOptions{})
	routes = append(routes, router.CallbackRoute(rt.Registry, router.CallbackOptions{}))
	routes = append(routes, router.MessageRoutes(router.MessageOptions{
		StaffChatID: a.cfg.Telegram.StaffChatID,
		Private:     a.onPrivate,
		Staff:       a.onStaff,
	})...)
	return routes, nil
}

func (a *App) onStart(ctx context.Context, rt coretelegram.Runtime) error {
	m := a.dispatcher.Machine()
	sweepCtx, cancel := context.WithCancel(ctx)
	a.stopSweep = cancel
	go m.RunSweeper(sweepCtx, a.cfg.Support.SweepInterval)

	if addr := a.cfg.Ops.Listen; addr != "" {
		deps := opsDeps{
			Stats:      m.Stats,
			Sender:     rt.Dispatcher.Stats,
			LogDropped: logger.DroppedLines,
		}
		if a.store != nil {
			deps.Ping = a.store.Ping
		}
		a.ops = startOps(addr, newOpsRouter(deps))
	}
	logger.Support.Info("support ready",
		slog.String("event", "support.ready"),
		slog.Int64("staff_chat_id", a.cfg.Telegram.StaffChatID),
		slog.Bool("journal", a.store != nil),
		slog.Duration("session_ttl", a.cfg.Support.SessionTTL),
	)
	return nil
}

func (a *App) onStop(ctx context.Context, _ coretelegram.Runtime) error {
	if a.stopSweep != nil {
		a.stopSweep()
	}
	return a.ops.Shutdown(ctx)
}

func (a *App) command(name string) tele.HandlerFunc {
	return func(c tele.Context) error {
		_ = a.dispatcher.HandleCommand(tghelpers.BuildContext(c), commandEvent(name, c.Message()))
		return nil
	}
}

func (a *App) onClick(c tele.Context) error {
	_ = a.dispatcher.HandleClick(tghelpers.BuildContext(c), clickEvent(c.Callback()))
	return nil
}

func (a *App) onPrivate(c tele.Context) error {
	_ = a.dispatcher.HandleMessage(tghelpers.BuildContext(c), messageEvent(c.Message()))
	return nil
}

func (a *App) onStaff(c tele.Context) error {
	_ = a.dispatcher.HandleStaffMessage(tghelpers.BuildContext(c), staffEvent(c.Message()))
	return nil
}
