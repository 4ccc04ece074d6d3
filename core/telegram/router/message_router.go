package router

import (
	tg "github.com/m3rciful/supportbot/core/telegram"
	"github.com/m3rciful/supportbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// MessageOptions routes free-form messages by the chat they arrive in.
type MessageOptions struct {
	StaffChatID int64
	// Private handles text and media sent in private chats.
	Private tele.HandlerFunc
	// Staff handles text and media sent in the staff chat.
	Staff tele.HandlerFunc
}

// MessageRoutes builds handlers for text, photo and video messages.
// Messages from any other chat are logged and dropped.
func MessageRoutes(opts MessageOptions) []tg.Route {
	private := middleware.ScopeOptions{Scope: middleware.ScopePrivate}
	staff := middleware.ScopeOptions{Scope: middleware.ScopeStaff, StaffChatID: opts.StaffChatID}

	handler := func(c tele.Context) error {
		kind := messageKind(c.Message())
		switch {
		case staff.Allows(c.Chat()) && opts.Staff != nil:
			return run(c, "message.staff."+kind, func() error { return opts.Staff(c) })
		case private.Allows(c.Chat()) && opts.Private != nil:
			return run(c, "message.private."+kind, func() error { return opts.Private(c) })
		}
		skipped(c, "message.other."+kind)
		return nil
	}

	wrapped := wrap(handler)
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrapped},
		{Endpoint: tele.OnPhoto, Handler: wrapped},
		{Endpoint: tele.OnVideo, Handler: wrapped},
	}
}

func messageKind(m *tele.Message) string {
	switch {
	case m == nil:
		return "unknown"
	case m.Photo != nil:
		return "photo"
	case m.Video != nil:
		return "video"
	default:
		return "text"
	}
}
