package support

import (
	"context"
	"strings"
	"testing"

	"github.com/m3rciful/supportbot/internal/support/ticket"
)

func TestRelayViaQuotedTicket(t *testing.T) {
	f := newFixture()
	f.submitted()
	head := f.gw.sentTo(staffChat)[0]

	if err := f.staff("hello from staff", &ticket.Quote{MessageID: head.ID, Text: head.Text}); err != nil {
		t.Fatal(err)
	}
	got := f.gw.last(userChat)
	if got.Text != "📩 Support reply:\n\nhello from staff" {
		t.Fatalf("user got %q", got.Text)
	}
	if len(got.Opts.Keyboard) != 2 || got.Opts.Keyboard[0][0].Action != ActionFeedback {
		t.Fatalf("feedback keyboard = %+v", got.Opts.Keyboard)
	}
	confirm := f.gw.last(staffChat)
	if confirm.Text != "✅ Reply sent to user 12345" || confirm.Opts.ReplyTo != 5000 {
		t.Fatalf("staff confirmation = %+v", confirm)
	}
	if len(f.journal.replied) != 1 || f.journal.replied[0] != userID {
		t.Fatalf("journal replied = %v", f.journal.replied)
	}
}

func TestRelayCommandWithQuotedBody(t *testing.T) {
	f := newFixture()
	if err := f.staff("/reply_12345", &ticket.Quote{Text: "use the alignment sticker"}); err != nil {
		t.Fatal(err)
	}
	if got := f.gw.last(userChat).Text; !strings.HasSuffix(got, "use the alignment sticker") {
		t.Fatalf("user got %q", got)
	}
}

func TestRelayWithoutSessionKeepsState(t *testing.T) {
	f := newFixture()
	prompt := f.start()
	_ = f.click(ActionCategory, "other", prompt)
	if err := f.staff("/reply_12345 hi", nil); err != nil {
		t.Fatal(err)
	}
	s, _ := f.m.Session(userID)
	if s.State != CollectingDetails {
		t.Fatalf("in-progress session moved to %v", s.State)
	}

	other := newFixture()
	if err := other.staff("/reply_12345 hi", nil); err != nil {
		t.Fatal(err)
	}
	if _, ok := other.m.Session(userID); ok {
		t.Fatal("relay created a session")
	}
}

func TestRelayCorrelationErrors(t *testing.T) {
	cases := []struct {
		text  string
		quote *ticket.Quote
		want  string
	}{
		{"/reply_abc hi", nil, textBadCommand},
		{"/reply_12345", nil, textEmptyBody},
		{"hi", &ticket.Quote{Text: "🆕 New ticket #x\nbroken"}, textNoRecipient},
	}
	for _, tc := range cases {
		f := newFixture()
		err := f.staff(tc.text, tc.quote)
		if KindOf(err) != KindCorrelation {
			t.Errorf("%q: kind = %v", tc.text, KindOf(err))
			continue
		}
		got := f.gw.last(staffChat)
		if got.Text != tc.want || got.Opts.ReplyTo != 5000 {
			t.Errorf("%q: staff notice = %+v", tc.text, got)
		}
		if len(f.gw.sentTo(userChat)) != 0 {
			t.Errorf("%q: user received a message", tc.text)
		}
	}
}

func TestRelayIgnoresChatter(t *testing.T) {
	f := newFixture()
	if err := f.staff("lunch?", nil); err != nil {
		t.Fatal(err)
	}
	if err := f.staff("sure", &ticket.Quote{MessageID: 1, Text: "lunch?"}); err != nil {
		t.Fatal(err)
	}
	if len(f.gw.sent) != 0 {
		t.Fatalf("chatter produced messages: %+v", f.gw.sent)
	}
}

func TestRelayDeliveryFailure(t *testing.T) {
	f := newFixture()
	f.gw.failText = func(chatID int64, _ string) bool { return chatID == userChat }
	err := f.staff("/reply_12345 hi", nil)
	if KindOf(err) != KindDelivery {
		t.Fatalf("kind = %v", KindOf(err))
	}
	if got := f.gw.last(staffChat).Text; got != "❌ Could not deliver the reply to user 12345" {
		t.Fatalf("staff notice = %q", got)
	}
}

func TestReplyButtonSetsPointer(t *testing.T) {
	f := newFixture()
	f.submitted()

	err := f.d.HandleClick(context.Background(), Click{ID: "r1", Action: ActionReply, Payload: "12345", UserID: 777, ChatID: staffChat})
	if err != nil {
		t.Fatal(err)
	}
	if got := f.gw.answers[len(f.gw.answers)-1].Notice; got != "Send your reply to user 12345 as the next message" {
		t.Fatalf("toast = %q", got)
	}
	if f.m.Stats().Pointers != 1 {
		t.Fatal("pointer not stored")
	}

	if err := f.staff("plain answer", nil); err != nil {
		t.Fatal(err)
	}
	if got := f.gw.last(userChat).Text; !strings.HasSuffix(got, "plain answer") {
		t.Fatalf("user got %q", got)
	}
	if f.m.Stats().Pointers != 0 {
		t.Fatal("pointer not consumed")
	}
}

func TestReplyButtonOutsideStaffChat(t *testing.T) {
	f := newFixture()
	err := f.d.HandleClick(context.Background(), Click{ID: "r1", Action: ActionReply, Payload: "12345", UserID: 777, ChatID: 555})
	if KindOf(err) != KindStale {
		t.Fatalf("kind = %v", KindOf(err))
	}
	if f.m.Stats().Pointers != 0 {
		t.Fatal("pointer stored from private chat")
	}
}
