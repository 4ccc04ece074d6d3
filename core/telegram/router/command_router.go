package router

import (
	"log/slog"

	"github.com/m3rciful/supportbot/core/logger"
	tg "github.com/m3rciful/supportbot/core/telegram"
	"github.com/m3rciful/supportbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures how commands are wrapped and exposed.
type CommandRouteOptions struct {
	// OnScopeReject runs when a private-only command arrives from a group.
	OnScopeReject tele.HandlerFunc
}

// CommandRoutes returns one route per command endpoint, aliases included.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}
	privateOnly := middleware.ChatScope(middleware.ScopeOptions{
		Scope:    middleware.ScopePrivate,
		OnReject: opts.OnScopeReject,
	})

	cmds := reg.Commands()
	var routes []tg.Route
	for name, cmd := range cmds {
		handler := "command." + handlerName(name)
		inner := cmd.Handler
		h := func(c tele.Context) error {
			return run(c, handler, func() error { return inner(c) })
		}
		if cmd.PrivateOnly {
			h = privateOnly(h)
		}
		h = wrap(h)
		for _, endpoint := range cmd.Endpoints(name) {
			routes = append(routes, tg.Route{Endpoint: endpoint, Handler: h})
		}
	}

	logger.TWire.Info("tg.wire",
		slog.String("event", "commands"),
		slog.Int("commands", len(cmds)),
		slog.Int("endpoints", len(routes)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}

// wrap applies the per-route middleware shared by every router.
func wrap(h tele.HandlerFunc) tele.HandlerFunc {
	return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
}
