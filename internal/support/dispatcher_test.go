package support

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/m3rciful/supportbot/core/telegram/gateway"
)

// panickyGateway panics when sending to the staff chat.
type panickyGateway struct{ *fakeGateway }

func (p panickyGateway) SendText(ctx context.Context, chatID int64, text string, opts gateway.Options) (int, error) {
	if chatID == staffChat {
		panic("send exploded")
	}
	return p.fakeGateway.SendText(ctx, chatID, text, opts)
}

func TestDispatcherRecoversPanic(t *testing.T) {
	fg := newFakeGateway()
	d := NewDispatcher(New(Options{Gateway: panickyGateway{fg}, StaffChatID: staffChat}))
	ctx := context.Background()
	_ = d.HandleCommand(ctx, Command{Name: CommandStart, UserID: userID, ChatID: userChat})
	prompt := fg.last(userChat).ID
	_ = d.HandleClick(ctx, Click{ID: "c1", Action: ActionCategory, Payload: "other", UserID: userID, ChatID: userChat, MessageID: prompt})

	err := d.HandleClick(ctx, Click{ID: "c2", Action: ActionTicket, Payload: PayloadSend, UserID: userID, ChatID: userChat, MessageID: prompt})
	if KindOf(err) != KindInternal {
		t.Fatalf("kind = %v, err = %v", KindOf(err), err)
	}
	if len(fg.answers) != 2 || fg.answers[1].ID != "c2" || fg.answers[1].Notice != "" {
		t.Fatalf("answers = %+v", fg.answers)
	}
	if e := fg.lastEdit(); e.MessageID != prompt || e.Text != textRestart || e.Keyboard != nil {
		t.Fatalf("prompt not replaced: %+v", e)
	}

	// the loop keeps working after a panic
	if err := d.HandleCommand(ctx, Command{Name: CommandStart, UserID: userID, ChatID: userChat}); err != nil {
		t.Fatalf("start after panic: %v", err)
	}
}

func TestDispatcherClickPolicy(t *testing.T) {
	f := newFixture()
	err := f.click(ActionTicket, PayloadSend, 1)
	if KindOf(err) != KindSessionMissing {
		t.Fatalf("kind = %v", KindOf(err))
	}
	if len(f.gw.answers) != 1 || f.gw.answers[0].Notice != textNeedStart {
		t.Fatalf("answers = %+v", f.gw.answers)
	}

	err = f.click("bogus", "", 1)
	if KindOf(err) != KindStale {
		t.Fatalf("unknown action kind = %v", KindOf(err))
	}
	if len(f.gw.answers) != 2 || f.gw.answers[1].Notice != textStaleClick {
		t.Fatalf("answers = %+v", f.gw.answers)
	}
	if len(f.gw.edits) != 0 {
		t.Fatalf("stale click edited a message: %+v", f.gw.edits)
	}
}

func TestUserNotice(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{newError(KindSessionMissing, "op", nil), textNeedStart},
		{&Error{Kind: KindDelivery, Op: "op", Notice: "custom"}, "custom"},
		{errors.New("plain"), textRestart},
		{fmt.Errorf("wrapped: %w", newError(KindStale, "op", nil)), textRestart},
	}
	for _, tc := range cases {
		if got := userNotice(tc.err); got != tc.want {
			t.Errorf("userNotice(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestKindOf(t *testing.T) {
	err := fmt.Errorf("outer: %w", &Error{Kind: KindCorrelation, Op: "relay", Err: errBoom})
	if KindOf(err) != KindCorrelation {
		t.Fatalf("kind = %v", KindOf(err))
	}
	if !errors.Is(err, errBoom) {
		t.Fatal("cause not unwrapped")
	}
	if KindOf(errBoom) != KindInternal {
		t.Fatal("plain error should be internal")
	}
}
