// Package keyboard builds inline keyboards whose buttons are routed by
// callback unique.
package keyboard

import tele "gopkg.in/telebot.v4"

// Button is one inline button. Action becomes the callback unique and
// selects the handler; Payload is passed to it.
type Button struct {
	Text    string
	Action  string
	Payload string
}

// Rows is an inline keyboard, top row first.
type Rows [][]Button

// Markup converts r for sending. Empty rows are dropped and nil is returned
// when no button is left.
func (r Rows) Markup() *tele.ReplyMarkup {
	var inline [][]tele.InlineButton
	for _, row := range r {
		if len(row) == 0 {
			continue
		}
		out := make([]tele.InlineButton, len(row))
		for i, b := range row {
			out[i] = tele.InlineButton{Text: b.Text, Unique: b.Action, Data: b.Payload}
		}
		inline = append(inline, out)
	}
	if inline == nil {
		return nil
	}
	return &tele.ReplyMarkup{InlineKeyboard: inline}
}

// Len counts the buttons in r.
func (r Rows) Len() int {
	n := 0
	for _, row := range r {
		n += len(row)
	}
	return n
}
