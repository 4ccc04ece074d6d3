package support

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/m3rciful/supportbot/core/logger"
	"github.com/m3rciful/supportbot/core/telegram/gateway"
	"github.com/m3rciful/supportbot/internal/support/ticket"
)

// TakePointer removes and returns the operator's reply pointer.
func (m *Machine) TakePointer(operatorID int64) (ticket.Pointer, bool) {
	return m.pointers.Remove(operatorID)
}

// PointReply handles the per-ticket reply button: the operator's next staff
// chat message goes to the ticket's user.
func (m *Machine) PointReply(ctx context.Context, c Click) (string, error) {
	if c.ChatID != m.staffChatID {
		return "", newError(KindStale, "reply.point", nil)
	}
	userID, err := strconv.ParseInt(c.Payload, 10, 64)
	if err != nil || userID <= 0 {
		return "", newError(KindStale, "reply.point", err)
	}
	m.pointers.Put(c.UserID, ticket.Pointer{UserID: userID})
	logger.LogEvent(ctx, logger.Staff, slog.LevelInfo, "pointer.set", slog.Int64("target_user_id", userID))
	return pointerSetText(userID), nil
}

// Relay delivers a staff chat message to the user it answers.
func (m *Machine) Relay(ctx context.Context, msg Message) error {
	target, err := m.resolver.Resolve(ctx, ticket.Reply{
		SenderID:  msg.UserID,
		MessageID: msg.MessageID,
		Text:      msg.Text,
		Quote:     msg.Quote,
	})
	switch {
	case err == nil:
	case errors.Is(err, ticket.ErrNotApplicable):
		logger.LogEvent(ctx, logger.Staff, slog.LevelDebug, "staff.ignored")
		return nil
	case errors.Is(err, ticket.ErrBadCommand):
		return &Error{Kind: KindCorrelation, Op: "relay", Notice: textBadCommand, Err: err}
	case errors.Is(err, ticket.ErrEmptyBody):
		return &Error{Kind: KindCorrelation, Op: "relay", Notice: textEmptyBody, Err: err}
	case errors.Is(err, ticket.ErrNoRecipient):
		return &Error{Kind: KindCorrelation, Op: "relay", Notice: textNoRecipient, Err: err}
	default:
		return newError(KindInternal, "relay", err)
	}

	if _, err := m.gw.SendText(ctx, target.UserID, replyToUserText(target.Body), gateway.Options{Keyboard: feedbackKeyboard()}); err != nil {
		return &Error{Kind: KindDelivery, Op: "relay", Notice: replyFailedText(target.UserID), Err: err}
	}

	if s, ok := m.sessions.Get(target.UserID); ok && s.State.postSubmit() {
		s.State = AwaitingFeedback
		m.sessions.Put(target.UserID, s)
	}
	if err := m.journal.MarkReplied(ctx, target.UserID, m.now()); err != nil {
		logger.LogEvent(ctx, logger.Journal, slog.LevelDebug, "journal.reply_skip", slog.String("err", err.Error()))
	}
	logger.LogEvent(ctx, logger.Staff, slog.LevelInfo, "reply.sent",
		slog.Int64("target_user_id", target.UserID),
		slog.String("via", target.Via),
		slog.Int("text_len", len(target.Body)),
	)

	if _, err := m.gw.SendText(ctx, m.staffChatID, replySentText(target.UserID), gateway.Options{ReplyTo: msg.MessageID}); err != nil {
		logger.LogEvent(ctx, logger.Staff, slog.LevelWarn, "reply.confirm_fail", slog.String("err", err.Error()))
	}
	return nil
}
