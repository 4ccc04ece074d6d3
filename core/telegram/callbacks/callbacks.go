// Package callbacks decodes the callback data telebot attaches to inline
// buttons.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Parse returns the unique and payload of cb. Telebot splits the data only
// when a handler is registered for the unique; otherwise Data still holds
// the "\f<unique>|<payload>" encoding. Data without the form feed is taken
// as a bare unique.
func Parse(cb *tele.Callback) (unique, payload string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	unique, payload, _ = strings.Cut(strings.TrimPrefix(cb.Data, "\f"), "|")
	return strings.TrimSpace(unique), payload
}
