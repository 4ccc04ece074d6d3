package logger

import (
	"fmt"
	"strings"
	"time"
)

// RoundMS truncates sub-millisecond noise from durations; negatives become zero.
func RoundMS(d time.Duration) time.Duration {
	return max(d, 0).Round(time.Millisecond)
}

// Preview joins at most limit values and notes how many were left out,
// e.g. "a, b (+3 more)".
func Preview(values []string, limit int) string {
	if len(values) == 0 {
		return ""
	}
	shown := values[:min(max(limit, 0), len(values))]
	out := strings.Join(shown, ", ")
	if rest := len(values) - len(shown); rest > 0 {
		if out != "" {
			out += " "
		}
		out += fmt.Sprintf("(+%d more)", rest)
	}
	return out
}
