package support

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/supportbot/core/logger"
	"github.com/m3rciful/supportbot/core/telegram/gateway"
	"github.com/m3rciful/supportbot/core/telegram/state"
	"github.com/m3rciful/supportbot/internal/support/ticket"
)

// Options configures a Machine.
type Options struct {
	Gateway     Gateway
	Journal     Journal
	StaffChatID int64
	// Resolvers are consulted after the command and pointer resolvers and
	// before the quoted-text resolver.
	Resolvers []ticket.Resolver
	// SessionTTL expires idle sessions on Sweep; 0 keeps them.
	SessionTTL time.Duration
	PointerTTL time.Duration
	Clock      func() time.Time
}

// Machine owns all sessions and reply pointers and applies the conversation
// transitions. Handlers are expected to run one event at a time.
type Machine struct {
	gw          Gateway
	journal     Journal
	staffChatID int64
	resolver    ticket.Resolver
	sessionTTL  time.Duration
	pointerTTL  time.Duration
	now         func() time.Time

	sessions *state.Table[*Session]
	pointers *state.Table[ticket.Pointer]
}

// New builds a Machine.
func New(opts Options) *Machine {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	journal := opts.Journal
	if journal == nil {
		journal = noopJournal{}
	}
	m := &Machine{
		gw:          opts.Gateway,
		journal:     journal,
		staffChatID: opts.StaffChatID,
		sessionTTL:  opts.SessionTTL,
		pointerTTL:  opts.PointerTTL,
		now:         clock,
		sessions:    state.NewTable[*Session](clock),
		pointers:    state.NewTable[ticket.Pointer](clock),
	}
	chain := ticket.Chain{ticket.CommandResolver{}, ticket.PointerResolver{Pointers: m}}
	chain = append(chain, opts.Resolvers...)
	m.resolver = append(chain, ticket.QuoteResolver{})
	return m
}

// Session returns a copy of the user's session.
func (m *Machine) Session(userID int64) (Session, bool) {
	s, ok := m.sessions.Get(userID)
	if !ok {
		return Session{}, false
	}
	cp := *s
	cp.Attachments = append([]ticket.Attachment(nil), s.Attachments...)
	cp.PendingUI = append([]int(nil), s.PendingUI...)
	return cp, true
}

// Stats is a point-in-time view of in-memory state.
type Stats struct {
	Sessions int `json:"sessions"`
	Pointers int `json:"pointers"`
}

// Stats reports table sizes.
func (m *Machine) Stats() Stats {
	return Stats{Sessions: m.sessions.Len(), Pointers: m.pointers.Len()}
}

func (m *Machine) log(ctx context.Context, level slog.Level, event string, attrs ...slog.Attr) {
	logger.LogEvent(ctx, logger.Support, level, event, attrs...)
}

// retract deletes the session's superseded acknowledgement messages.
func (m *Machine) retract(ctx context.Context, s *Session) {
	for _, id := range s.PendingUI {
		m.gw.DeleteMessage(ctx, s.ChatID, id)
	}
	s.PendingUI = nil
}

// Start opens a fresh session, replacing any previous one.
func (m *Machine) Start(ctx context.Context, cmd Command) error {
	if old, ok := m.sessions.Remove(cmd.UserID); ok {
		m.retract(ctx, old)
		m.log(ctx, slog.LevelInfo, "session.reset", slog.String("prev_state", old.State.String()))
	}
	s := &Session{
		State:       AwaitingCategory,
		DisplayName: cmd.DisplayName,
		ChatID:      cmd.ChatID,
		StartedAt:   m.now(),
	}
	m.sessions.Put(cmd.UserID, s)

	id, err := m.gw.SendText(ctx, cmd.ChatID, textGreeting, gateway.Options{Keyboard: categoryKeyboard()})
	if err != nil {
		m.sessions.Remove(cmd.UserID)
		return newError(KindDelivery, "start", err)
	}
	s.PromptID = id
	m.sessions.Put(cmd.UserID, s)
	m.log(ctx, slog.LevelInfo, "session.start", slog.String("state", s.State.String()))
	return nil
}

// Cancel drops the session and tells the user.
func (m *Machine) Cancel(ctx context.Context, cmd Command) error {
	if s, ok := m.sessions.Remove(cmd.UserID); ok {
		m.retract(ctx, s)
		m.log(ctx, slog.LevelInfo, "session.cancel", slog.String("prev_state", s.State.String()))
	}
	if _, err := m.gw.SendText(ctx, cmd.ChatID, textAborted, gateway.Options{}); err != nil {
		return newError(KindDelivery, "cancel", err)
	}
	return nil
}

// ChooseCategory handles a category button.
func (m *Machine) ChooseCategory(ctx context.Context, c Click) (string, error) {
	s, ok := m.sessions.Get(c.UserID)
	if !ok {
		return "", m.Start(ctx, Command{Name: CommandStart, UserID: c.UserID, ChatID: c.ChatID, DisplayName: c.DisplayName})
	}
	if s.Category != "" {
		return "", nil
	}
	if s.State != AwaitingCategory || !s.ownsPrompt(c.MessageID) {
		return "", newError(KindStale, "category", nil)
	}

	cat := ticket.ParseCategory(c.Payload)
	variant := variantFor(cat)
	prompt := textPromptMedia
	if variant == VariantText {
		prompt = textPromptText
	}
	if err := m.gw.EditText(ctx, s.ChatID, c.MessageID, prompt, submitKeyboard()); err != nil {
		return "", newError(KindDelivery, "category", err)
	}
	s.Category = cat
	s.Variant = variant
	s.State = CollectingDetails
	s.PromptID = c.MessageID
	m.sessions.Put(c.UserID, s)
	m.log(ctx, slog.LevelInfo, "session.category", slog.String("category", string(cat)))
	return "", nil
}

// Collect stores a description or attachment sent in a private chat.
func (m *Machine) Collect(ctx context.Context, msg Message) error {
	s, ok := m.sessions.Get(msg.UserID)
	if !ok {
		m.log(ctx, slog.LevelDebug, "input.ignored", slog.String("state", Idle.String()))
		return nil
	}
	if s.State != CollectingDetails {
		m.log(ctx, slog.LevelDebug, "input.ignored", slog.String("state", s.State.String()))
		return nil
	}

	var ack string
	switch {
	case msg.Photo != "" || msg.Video != "":
		if s.Variant == VariantText {
			m.log(ctx, slog.LevelDebug, "media.ignored", slog.String("category", string(s.Category)))
			return nil
		}
		a := ticket.Attachment{Kind: ticket.KindPhoto, Ref: msg.Photo}
		ack = textPhotoAccepted
		if msg.Photo == "" {
			a = ticket.Attachment{Kind: ticket.KindVideo, Ref: msg.Video}
			ack = textVideoAccepted
		}
		s.Attachments = append(s.Attachments, a)
		m.log(ctx, slog.LevelInfo, "attachment.added",
			slog.String("kind", a.Kind),
			slog.Int("attachments", len(s.Attachments)),
		)
	case msg.Text != "":
		s.Description = msg.Text
		ack = textDescMediaAccepted
		if s.Variant == VariantText {
			ack = textDescTextAccepted
		}
		m.log(ctx, slog.LevelInfo, "description.set", slog.Int("text_len", len(msg.Text)))
	default:
		return nil
	}

	id, err := m.gw.SendText(ctx, s.ChatID, ack, gateway.Options{})
	m.retract(ctx, s)
	if err != nil {
		m.log(ctx, slog.LevelWarn, "ack.fail", slog.String("err", err.Error()))
	} else {
		s.PendingUI = []int{id}
	}
	m.sessions.Put(msg.UserID, s)
	return nil
}

// Submit forwards the collected details to the staff chat.
func (m *Machine) Submit(ctx context.Context, c Click) (string, error) {
	s, ok := m.sessions.Get(c.UserID)
	if !ok {
		return "", newError(KindSessionMissing, "submit", nil)
	}
	if s.State != CollectingDetails || s.Category == "" || !s.ownsPrompt(c.MessageID) {
		return "", newError(KindStale, "submit", nil)
	}

	t := ticket.New(c.UserID, s.DisplayName, s.Category, s.Description, s.Attachments, m.now())
	ctx = logger.WithTicket(ctx, t.ID)

	msgIDs, err := m.deliver(ctx, t)
	if err != nil {
		if removed, ok := m.sessions.Remove(c.UserID); ok {
			m.retract(ctx, removed)
		}
		return "", &Error{Kind: KindDelivery, Op: "submit", Notice: textSendFailed, Err: err}
	}

	m.retract(ctx, s)
	if err := m.gw.EditText(ctx, s.ChatID, c.MessageID, textAccepted, nil); err != nil {
		m.log(ctx, slog.LevelWarn, "prompt.edit_fail", slog.String("err", err.Error()))
	}
	s.State = AwaitingStaffReply
	m.sessions.Put(c.UserID, s)
	m.log(ctx, slog.LevelInfo, "ticket.submitted",
		slog.String("category", string(t.Category)),
		slog.Int("attachments", len(t.Attachments)),
		slog.Int("staff_messages", len(msgIDs)),
	)

	if err := m.journal.Record(ctx, t, m.staffChatID, msgIDs); err != nil {
		logger.LogEvent(ctx, logger.Journal, slog.LevelWarn, "journal.record_fail", slog.String("err", err.Error()))
	}
	return "", nil
}

// deliver posts the ticket and its attachments. Only a failure of the ticket
// text itself is returned; failed attachments are reported to staff.
func (m *Machine) deliver(ctx context.Context, t ticket.Ticket) ([]int, error) {
	head, err := m.gw.SendText(ctx, m.staffChatID, ticket.Render(t), gateway.Options{Keyboard: staffTicketKeyboard(t.UserID)})
	if err != nil {
		return nil, err
	}
	ids := []int{head}
	for i, a := range t.Attachments {
		id, err := m.gw.SendMedia(ctx, m.staffChatID, a.Kind, a.Ref, ticket.Caption(a, t.DisplayName, t.UserID), gateway.Options{ReplyTo: head})
		if err != nil {
			logger.LogEvent(ctx, logger.Staff, slog.LevelWarn, "attachment.fail",
				slog.Int("index", i),
				slog.String("kind", a.Kind),
				slog.String("err", err.Error()),
			)
			if _, werr := m.gw.SendText(ctx, m.staffChatID, attachmentFailedText(t.DisplayName, t.UserID), gateway.Options{ReplyTo: head}); werr != nil {
				logger.LogEvent(ctx, logger.Staff, slog.LevelWarn, "attachment.warn_fail", slog.String("err", werr.Error()))
			}
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Discard handles the cancel button of the details prompt.
func (m *Machine) Discard(ctx context.Context, c Click) (string, error) {
	s, ok := m.sessions.Get(c.UserID)
	if !ok {
		return "", newError(KindSessionMissing, "discard", nil)
	}
	if s.State != CollectingDetails || !s.ownsPrompt(c.MessageID) {
		return "", newError(KindStale, "discard", nil)
	}
	m.sessions.Remove(c.UserID)
	m.retract(ctx, s)
	if err := m.gw.EditText(ctx, s.ChatID, c.MessageID, textSendCancelled, nil); err != nil {
		return "", newError(KindDelivery, "discard", err)
	}
	m.log(ctx, slog.LevelInfo, "session.discard")
	return "", nil
}

// Feedback closes the loop after a staff reply. The session is removed on
// every path when it is in a post-submission state.
func (m *Machine) Feedback(ctx context.Context, c Click) (string, error) {
	defer func() {
		if s, ok := m.sessions.Get(c.UserID); ok && s.State.postSubmit() {
			if _, removed := m.sessions.Remove(c.UserID); removed {
				m.log(ctx, slog.LevelInfo, "session.closed")
			}
		}
	}()

	userText := textMoreHelpUser
	if c.Payload == PayloadThanks {
		userText = textThanksUser
	}
	if err := m.gw.EditText(ctx, c.ChatID, c.MessageID, userText, nil); err != nil {
		m.log(ctx, slog.LevelWarn, "feedback.edit_fail", slog.String("err", err.Error()))
	}
	if _, err := m.gw.SendText(ctx, m.staffChatID, feedbackStaffText(c.UserID, c.Payload), gateway.Options{}); err != nil {
		logger.LogEvent(ctx, logger.Staff, slog.LevelWarn, "feedback.forward_fail", slog.String("err", err.Error()))
	}
	if err := m.journal.MarkFeedback(ctx, c.UserID, c.Payload, m.now()); err != nil {
		logger.LogEvent(ctx, logger.Journal, slog.LevelDebug, "journal.feedback_skip", slog.String("err", err.Error()))
	}
	m.log(ctx, slog.LevelInfo, "feedback", slog.String("value", c.Payload))
	return "", nil
}
