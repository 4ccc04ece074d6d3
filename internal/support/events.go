package support

import (
	"context"
	"time"

	"github.com/m3rciful/supportbot/core/telegram/gateway"
	"github.com/m3rciful/supportbot/internal/support/ticket"
)

// Commands understood by HandleCommand.
const (
	CommandStart  = "start"
	CommandCancel = "cancel"
)

// Command is a slash command sent in a private chat.
type Command struct {
	Name        string
	UserID      int64
	ChatID      int64
	DisplayName string
}

// Click is an inline button press.
type Click struct {
	ID          string
	Action      string
	Payload     string
	UserID      int64
	ChatID      int64
	MessageID   int
	DisplayName string
}

// Message is an incoming text or media message. Photo and Video hold file ids.
type Message struct {
	UserID    int64
	ChatID    int64
	MessageID int
	Text      string
	Photo     string
	Video     string
	// Quote is set when the message replies to another one.
	Quote *ticket.Quote
}

// Gateway sends and edits chat messages.
type Gateway interface {
	SendText(ctx context.Context, chatID int64, text string, opts gateway.Options) (int, error)
	SendMedia(ctx context.Context, chatID int64, kind, fileID, caption string, opts gateway.Options) (int, error)
	EditText(ctx context.Context, chatID int64, messageID int, text string, kb gateway.Keyboard) error
	// DeleteMessage is best-effort and never fails.
	DeleteMessage(ctx context.Context, chatID int64, messageID int)
	AnswerClick(ctx context.Context, clickID, notice string) error
}

// Journal records submitted tickets and their outcome. Writes are best-effort.
type Journal interface {
	Record(ctx context.Context, t ticket.Ticket, staffChatID int64, msgIDs []int) error
	MarkReplied(ctx context.Context, userID int64, at time.Time) error
	MarkFeedback(ctx context.Context, userID int64, feedback string, at time.Time) error
}

type noopJournal struct{}

func (noopJournal) Record(context.Context, ticket.Ticket, int64, []int) error    { return nil }
func (noopJournal) MarkReplied(context.Context, int64, time.Time) error          { return nil }
func (noopJournal) MarkFeedback(context.Context, int64, string, time.Time) error { return nil }
