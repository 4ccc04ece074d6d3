package journal

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/m3rciful/supportbot/core/logger"
	"github.com/m3rciful/supportbot/internal/support/ticket"
)

// Resolver correlates native staff replies through recorded staff message ids.
// Lookup failures are logged and treated as not applicable so that the
// text-based resolvers still get a chance.
type Resolver struct {
	Store       *Store
	StaffChatID int64
}

// Resolve implements ticket.Resolver.
func (r Resolver) Resolve(ctx context.Context, rep ticket.Reply) (ticket.Target, error) {
	if r.Store == nil || rep.Quote == nil || rep.Quote.MessageID == 0 {
		return ticket.Target{}, ticket.ErrNotApplicable
	}
	e, err := r.Store.LookupByStaffMessage(ctx, r.StaffChatID, rep.Quote.MessageID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.LogEvent(ctx, logger.Journal, slog.LevelWarn, "journal.lookup_failed",
				slog.Int("msg_id", rep.Quote.MessageID),
				slog.String("err", err.Error()),
			)
		}
		return ticket.Target{}, ticket.ErrNotApplicable
	}
	body := strings.TrimSpace(rep.Text)
	if body == "" {
		return ticket.Target{}, ticket.ErrEmptyBody
	}
	return ticket.Target{UserID: e.UserID, DisplayName: e.DisplayName, Body: body, Via: "journal"}, nil
}
