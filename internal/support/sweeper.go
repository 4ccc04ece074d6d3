package support

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/supportbot/core/logger"
)

// Sweep expires idle sessions and stale reply pointers.
func (m *Machine) Sweep(ctx context.Context) (sessions, pointers []int64) {
	sessions = m.sessions.Sweep(m.sessionTTL)
	pointers = m.pointers.Sweep(m.pointerTTL)
	for _, id := range sessions {
		m.log(ctx, slog.LevelInfo, "session.expired", slog.Int64("session_user_id", id))
	}
	for _, id := range pointers {
		logger.LogEvent(ctx, logger.Staff, slog.LevelDebug, "pointer.expired", slog.Int64("operator_id", id))
	}
	return sessions, pointers
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Machine) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}
