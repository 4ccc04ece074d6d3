package app

import (
	"strings"

	"github.com/m3rciful/supportbot/core/telegram/callbacks"
	"github.com/m3rciful/supportbot/internal/support"
	"github.com/m3rciful/supportbot/internal/support/ticket"

	tele "gopkg.in/telebot.v4"
)

// displayName prefers the @username and falls back to the first name.
func displayName(u *tele.User) string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return u.Username
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func commandEvent(name string, m *tele.Message) support.Command {
	ev := support.Command{Name: name}
	if m == nil {
		return ev
	}
	if m.Sender != nil {
		ev.UserID = m.Sender.ID
		ev.DisplayName = displayName(m.Sender)
	}
	if m.Chat != nil {
		ev.ChatID = m.Chat.ID
	}
	return ev
}

func clickEvent(cb *tele.Callback) support.Click {
	if cb == nil {
		return support.Click{}
	}
	action, payload := callbacks.Parse(cb)
	ev := support.Click{ID: cb.ID, Action: action, Payload: payload}
	if cb.Sender != nil {
		ev.UserID = cb.Sender.ID
		ev.DisplayName = displayName(cb.Sender)
	}
	if cb.Message != nil {
		ev.MessageID = cb.Message.ID
		if cb.Message.Chat != nil {
			ev.ChatID = cb.Message.Chat.ID
		}
	}
	return ev
}

func messageEvent(m *tele.Message) support.Message {
	if m == nil {
		return support.Message{}
	}
	ev := support.Message{MessageID: m.ID, Text: m.Text}
	if m.Sender != nil {
		ev.UserID = m.Sender.ID
	}
	if m.Chat != nil {
		ev.ChatID = m.Chat.ID
	}
	switch {
	case m.Photo != nil:
		ev.Photo = m.Photo.FileID
		ev.Text = ""
	case m.Video != nil:
		ev.Video = m.Video.FileID
		ev.Text = ""
	}
	if q := m.ReplyTo; q != nil {
		text := q.Text
		if text == "" {
			text = q.Caption
		}
		ev.Quote = &ticket.Quote{MessageID: q.ID, Text: text}
	}
	return ev
}

// staffEvent is messageEvent for the staff chat, where a media caption
// counts as the reply text.
func staffEvent(m *tele.Message) support.Message {
	ev := messageEvent(m)
	if m != nil && ev.Text == "" {
		ev.Text = m.Caption
	}
	return ev
}
