package support

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/supportbot/core/telegram/gateway"
	"github.com/m3rciful/supportbot/internal/support/ticket"
)

const (
	staffChat int64 = -100
	userID    int64 = 12345
	userChat  int64 = 12345
)

var errBoom = errors.New("boom")

type sent struct {
	ChatID  int64
	ID      int
	Text    string
	Kind    string
	FileID  string
	Opts    gateway.Options
	Caption string
}

type edit struct {
	ChatID    int64
	MessageID int
	Text      string
	Keyboard  gateway.Keyboard
}

type answer struct {
	ID     string
	Notice string
}

// fakeGateway records calls. failText/failMedia select sends that fail.
type fakeGateway struct {
	mu      sync.Mutex
	nextID  int
	sent    []sent
	edits   []edit
	deleted []int
	answers []answer

	failText  func(chatID int64, text string) bool
	failMedia func(fileID string) bool
	failEdit  bool
}

func newFakeGateway() *fakeGateway { return &fakeGateway{nextID: 100} }

func (g *fakeGateway) SendText(_ context.Context, chatID int64, text string, opts gateway.Options) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failText != nil && g.failText(chatID, text) {
		return 0, errBoom
	}
	g.nextID++
	g.sent = append(g.sent, sent{ChatID: chatID, ID: g.nextID, Text: text, Opts: opts})
	return g.nextID, nil
}

func (g *fakeGateway) SendMedia(_ context.Context, chatID int64, kind, fileID, caption string, opts gateway.Options) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failMedia != nil && g.failMedia(fileID) {
		return 0, errBoom
	}
	g.nextID++
	g.sent = append(g.sent, sent{ChatID: chatID, ID: g.nextID, Kind: kind, FileID: fileID, Caption: caption, Opts: opts})
	return g.nextID, nil
}

func (g *fakeGateway) EditText(_ context.Context, chatID int64, messageID int, text string, kb gateway.Keyboard) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failEdit {
		return errBoom
	}
	g.edits = append(g.edits, edit{ChatID: chatID, MessageID: messageID, Text: text, Keyboard: kb})
	return nil
}

func (g *fakeGateway) DeleteMessage(_ context.Context, _ int64, messageID int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleted = append(g.deleted, messageID)
}

func (g *fakeGateway) AnswerClick(_ context.Context, id, notice string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.answers = append(g.answers, answer{ID: id, Notice: notice})
	return nil
}

func (g *fakeGateway) sentTo(chatID int64) []sent {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []sent
	for _, s := range g.sent {
		if s.ChatID == chatID {
			out = append(out, s)
		}
	}
	return out
}

func (g *fakeGateway) last(chatID int64) sent {
	all := g.sentTo(chatID)
	if len(all) == 0 {
		return sent{}
	}
	return all[len(all)-1]
}

func (g *fakeGateway) lastEdit() edit {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.edits) == 0 {
		return edit{}
	}
	return g.edits[len(g.edits)-1]
}

func containing(list []sent, sub string) int {
	n := 0
	for _, s := range list {
		if strings.Contains(s.Text, sub) {
			n++
		}
	}
	return n
}

type fakeJournal struct {
	recorded []ticket.Ticket
	msgIDs   [][]int
	replied  []int64
	feedback []string
	err      error
}

func (j *fakeJournal) Record(_ context.Context, t ticket.Ticket, _ int64, ids []int) error {
	j.recorded = append(j.recorded, t)
	j.msgIDs = append(j.msgIDs, ids)
	return j.err
}

func (j *fakeJournal) MarkReplied(_ context.Context, uid int64, _ time.Time) error {
	j.replied = append(j.replied, uid)
	return j.err
}

func (j *fakeJournal) MarkFeedback(_ context.Context, _ int64, fb string, _ time.Time) error {
	j.feedback = append(j.feedback, fb)
	return j.err
}

type fixture struct {
	gw      *fakeGateway
	journal *fakeJournal
	m       *Machine
	d       *Dispatcher
	now     time.Time
	clicks  int
}

func newFixture() *fixture {
	f := &fixture{gw: newFakeGateway(), journal: &fakeJournal{}, now: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)}
	f.m = New(Options{
		Gateway:     f.gw,
		Journal:     f.journal,
		StaffChatID: staffChat,
		SessionTTL:  time.Hour,
		PointerTTL:  time.Minute,
		Clock:       func() time.Time { return f.now },
	})
	f.d = NewDispatcher(f.m)
	return f
}

func (f *fixture) start() int {
	_ = f.d.HandleCommand(context.Background(), Command{Name: CommandStart, UserID: userID, ChatID: userChat, DisplayName: "bob"})
	return f.gw.last(userChat).ID
}

func (f *fixture) click(action, payload string, messageID int) error {
	f.clicks++
	return f.d.HandleClick(context.Background(), Click{
		ID:          fmt.Sprintf("cb%d", f.clicks),
		Action:      action,
		Payload:     payload,
		UserID:      userID,
		ChatID:      userChat,
		MessageID:   messageID,
		DisplayName: "bob",
	})
}

func (f *fixture) text(s string) error {
	return f.d.HandleMessage(context.Background(), Message{UserID: userID, ChatID: userChat, Text: s})
}

func (f *fixture) photo(ref string) error {
	return f.d.HandleMessage(context.Background(), Message{UserID: userID, ChatID: userChat, Photo: ref})
}

func (f *fixture) video(ref string) error {
	return f.d.HandleMessage(context.Background(), Message{UserID: userID, ChatID: userChat, Video: ref})
}

func (f *fixture) staff(text string, quote *ticket.Quote) error {
	return f.d.HandleStaffMessage(context.Background(), Message{UserID: 777, ChatID: staffChat, MessageID: 5000, Text: text, Quote: quote})
}

// submitted drives a user through the application flow and submission.
func (f *fixture) submitted() int {
	prompt := f.start()
	_ = f.click(ActionCategory, string(ticket.CategoryApplication), prompt)
	_ = f.text("it peels off")
	_ = f.click(ActionTicket, PayloadSend, prompt)
	return prompt
}
