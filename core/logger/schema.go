package logger

import (
	"log/slog"
	"slices"
	"strings"
)

// knownStatus lists the values the status field is expected to take.
var knownStatus = []string{"ok", "fail", "skip", "retry", "stale", "cancelled"}

// defaultKeyOrder fixes the leading keys of every line; other keys follow
// alphabetically.
var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "status", "rid", "rid_full", "ts_unix_nano",
	// update
	"update_id", "user_id", "chat_id", "chat_type", "handler", "cb_key",
	"duration_ms", "messages", "kb",
	// support flow
	"ticket_id", "state", "from_state", "category", "attachments", "via",
	"staff_id", "target_user_id", "feedback", "expired", "payload", "username",
	// infrastructure
	"mode", "listen", "public_url", "driver", "db", "host", "port",
	// failures
	"err", "err_kind", "err_code", "cause", "attempts",
}

func levelName(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return "DEBUG"
	case l < slog.LevelWarn:
		return "INFO"
	case l < slog.LevelError:
		return "WARN"
	default:
		return "ERROR"
	}
}

// normalizeStatus lowercases s and reports whether it is a known status.
func normalizeStatus(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	return s, slices.Contains(knownStatus, s)
}
