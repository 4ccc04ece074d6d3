// Package journal keeps a durable audit trail of submitted tickets and maps
// staff-chat messages back to the user that opened the ticket.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/supportbot/core/logger"
	"github.com/m3rciful/supportbot/internal/support/ticket"
)

// ErrNotFound is returned when no journal row matches.
var ErrNotFound = errors.New("journal: not found")

// Entry is one submitted ticket.
type Entry struct {
	ID             string         `db:"id"`
	TicketRef      string         `db:"ticket_ref"`
	UserID         int64          `db:"user_id"`
	DisplayName    string         `db:"display_name"`
	Category       string         `db:"category"`
	Description    string         `db:"description"`
	Attachments    int            `db:"attachments"`
	StaffChatID    int64          `db:"staff_chat_id"`
	StaffMessageID int64          `db:"staff_message_id"`
	CreatedAt      int64          `db:"created_at"`
	RepliedAt      sql.NullInt64  `db:"replied_at"`
	Feedback       sql.NullString `db:"feedback"`
	FeedbackAt     sql.NullInt64  `db:"feedback_at"`
}

// Store persists journal entries through sqlx. It works with both the
// postgres and sqlite schemas.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps an open database handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Record stores the ticket and every staff-side message id that carries it.
// msgIDs[0] is the ticket text message.
func (s *Store) Record(ctx context.Context, t ticket.Ticket, staffChatID int64, msgIDs []int) error {
	if len(msgIDs) == 0 {
		return fmt.Errorf("journal: record %s: no staff messages", t.ID)
	}
	start := time.Now()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("journal: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id := uuid.NewString()
	_, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO tickets
		(id, ticket_ref, user_id, display_name, category, description, attachments, staff_chat_id, staff_message_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		id, t.ID, t.UserID, t.DisplayName, string(t.Category), t.Description, len(t.Attachments),
		staffChatID, int64(msgIDs[0]), t.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("journal: insert ticket: %w", err)
	}
	msgQ := tx.Rebind(`INSERT INTO ticket_messages (staff_chat_id, staff_message_id, ticket_id) VALUES (?, ?, ?)`)
	for _, mid := range msgIDs {
		if mid == 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, msgQ, staffChatID, int64(mid), id); err != nil {
			return fmt.Errorf("journal: insert message %d: %w", mid, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("journal: commit: %w", err)
	}

	logger.LogEvent(ctx, logger.Journal, slog.LevelDebug, "journal.record",
		slog.String("ticket", t.ID),
		slog.Int("messages", len(msgIDs)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return nil
}

// LookupByStaffMessage returns the entry a staff chat message belongs to.
func (s *Store) LookupByStaffMessage(ctx context.Context, staffChatID int64, messageID int) (Entry, error) {
	var e Entry
	err := s.db.GetContext(ctx, &e, s.db.Rebind(`SELECT t.* FROM tickets t
		JOIN ticket_messages m ON m.ticket_id = t.id
		WHERE m.staff_chat_id = ? AND m.staff_message_id = ?`),
		staffChatID, int64(messageID),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("journal: lookup: %w", err)
	}
	return e, nil
}

// Latest returns the newest entry for a user.
func (s *Store) Latest(ctx context.Context, userID int64) (Entry, error) {
	var e Entry
	err := s.db.GetContext(ctx, &e, s.db.Rebind(`SELECT * FROM tickets
		WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("journal: latest: %w", err)
	}
	return e, nil
}

// MarkReplied stamps the user's latest ticket with the first staff reply time.
func (s *Store) MarkReplied(ctx context.Context, userID int64, at time.Time) error {
	return s.updateLatest(ctx, userID, "replied_at = COALESCE(replied_at, ?)", at.Unix())
}

// MarkFeedback stores the user's answer on their latest ticket.
func (s *Store) MarkFeedback(ctx context.Context, userID int64, feedback string, at time.Time) error {
	return s.updateLatest(ctx, userID, "feedback = ?, feedback_at = ?", feedback, at.Unix())
}

func (s *Store) updateLatest(ctx context.Context, userID int64, set string, args ...any) error {
	e, err := s.Latest(ctx, userID)
	if err != nil {
		return err
	}
	args = append(args, e.ID)
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE tickets SET `+set+` WHERE id = ?`), args...); err != nil {
		return fmt.Errorf("journal: update %s: %w", e.TicketRef, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
