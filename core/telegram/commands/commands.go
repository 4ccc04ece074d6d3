// Package commands describes bot commands before they are bound to routes.
package commands

import (
	"errors"
	"slices"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Command is a slash command together with its menu metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// PrivateOnly restricts the command to private chats with the bot.
	PrivateOnly bool
	// Hidden keeps the command out of the published menu.
	Hidden  bool
	Aliases []string
}

var (
	ErrNoHandler     = errors.New("commands: handler is nil")
	ErrNoDescription = errors.New("commands: description is empty")
	ErrBadName       = errors.New("commands: name must look like /word")
)

// Validate checks that cmd can be registered under name.
func (cmd Command) Validate(name string) error {
	if !validName(name) {
		return ErrBadName
	}
	if cmd.Handler == nil {
		return ErrNoHandler
	}
	if strings.TrimSpace(cmd.Description) == "" {
		return ErrNoDescription
	}
	return nil
}

// Endpoints returns name followed by each distinct valid alias in slash form.
func (cmd Command) Endpoints(name string) []string {
	out := []string{name}
	for _, alias := range cmd.Aliases {
		alias = Slash(alias)
		if validName(alias) && !slices.Contains(out, alias) {
			out = append(out, alias)
		}
	}
	return out
}

// Slash prefixes name with "/" unless it already has one.
func Slash(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.HasPrefix(name, "/") {
		return name
	}
	return "/" + name
}

func validName(name string) bool {
	if len(name) < 2 || name[0] != '/' {
		return false
	}
	for _, r := range name[1:] {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
