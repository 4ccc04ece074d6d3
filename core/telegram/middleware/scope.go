package middleware

import (
	"log/slog"

	"github.com/m3rciful/supportbot/core/logger"
	tghelpers "github.com/m3rciful/supportbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Scope selects the chats a handler accepts updates from.
type Scope int

const (
	// ScopeAny accepts updates from every chat.
	ScopeAny Scope = iota
	// ScopePrivate accepts updates from private chats only.
	ScopePrivate
	// ScopeStaff accepts updates from the configured staff chat only.
	ScopeStaff
)

func (s Scope) String() string {
	switch s {
	case ScopePrivate:
		return "private"
	case ScopeStaff:
		return "staff"
	default:
		return "any"
	}
}

// ScopeOptions configures ChatScope.
type ScopeOptions struct {
	Scope       Scope
	StaffChatID int64
	// OnReject runs for filtered updates; nil drops them silently.
	OnReject tele.HandlerFunc
}

// Allows reports whether an update from chat passes the scope.
func (o ScopeOptions) Allows(chat *tele.Chat) bool {
	switch o.Scope {
	case ScopePrivate:
		return chat != nil && chat.Type == tele.ChatPrivate
	case ScopeStaff:
		return chat != nil && o.StaffChatID != 0 && chat.ID == o.StaffChatID
	default:
		return true
	}
}

// ChatScope drops updates that originate outside the configured chat scope.
func ChatScope(opts ScopeOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if opts.Allows(c.Chat()) {
				return next(c)
			}
			if logger.ShouldSampleDebug() {
				ctx := tghelpers.BuildContext(c)
				logger.Debug(ctx, "tg", "scope.skip",
					slog.String("status", "skip"),
					slog.String("scope", opts.Scope.String()),
				)
			}
			if opts.OnReject != nil {
				return opts.OnReject(c)
			}
			return nil
		}
	}
}
