package support

import (
	"context"
	"strings"
	"testing"

	"github.com/m3rciful/supportbot/internal/support/ticket"
)

func TestStartCreatesSession(t *testing.T) {
	f := newFixture()
	prompt := f.start()

	s, ok := f.m.Session(userID)
	if !ok {
		t.Fatal("no session after /start")
	}
	if s.State != AwaitingCategory || s.PromptID != prompt || s.DisplayName != "bob" {
		t.Fatalf("unexpected session %+v", s)
	}
	greeting := f.gw.last(userChat)
	if greeting.Text != textGreeting || len(greeting.Opts.Keyboard) != 2 {
		t.Fatalf("greeting = %+v", greeting)
	}
}

func TestRestartResetsSession(t *testing.T) {
	f := newFixture()
	prompt := f.start()
	_ = f.click(ActionCategory, "application", prompt)
	_ = f.photo("p1")
	_ = f.text("desc")

	f.start()
	s, _ := f.m.Session(userID)
	if s.State != AwaitingCategory || s.Category != "" || s.Description != "" || len(s.Attachments) != 0 {
		t.Fatalf("session not reset: %+v", s)
	}
	if len(f.gw.deleted) == 0 {
		t.Fatal("pending acknowledgement was not retracted")
	}
}

func TestStartDeliveryFailureRemovesSession(t *testing.T) {
	f := newFixture()
	f.gw.failText = func(int64, string) bool { return true }
	err := f.d.HandleCommand(context.Background(), Command{Name: CommandStart, UserID: userID, ChatID: userChat})
	if KindOf(err) != KindDelivery {
		t.Fatalf("kind = %v, err = %v", KindOf(err), err)
	}
	if _, ok := f.m.Session(userID); ok {
		t.Fatal("session kept after failed greeting")
	}
}

func TestCategoryClickIdempotent(t *testing.T) {
	f := newFixture()
	prompt := f.start()
	if err := f.click(ActionCategory, "application", prompt); err != nil {
		t.Fatal(err)
	}
	first, _ := f.m.Session(userID)
	edits := len(f.gw.edits)

	if err := f.click(ActionCategory, "other", prompt); err != nil {
		t.Fatalf("second click: %v", err)
	}
	second, _ := f.m.Session(userID)
	if second.Category != ticket.CategoryApplication || second.Variant != first.Variant || second.State != CollectingDetails {
		t.Fatalf("second click changed the session: %+v", second)
	}
	if len(f.gw.edits) != edits {
		t.Fatal("second click edited the prompt")
	}
	if n := len(f.gw.answers); n != 2 {
		t.Fatalf("answers = %d, want 2", n)
	}
}

func TestCategoryWithoutSessionRestarts(t *testing.T) {
	f := newFixture()
	if err := f.click(ActionCategory, "application", 42); err != nil {
		t.Fatal(err)
	}
	s, ok := f.m.Session(userID)
	if !ok || s.State != AwaitingCategory {
		t.Fatalf("session = %+v, %v", s, ok)
	}
	if f.gw.last(userChat).Text != textGreeting {
		t.Fatal("fresh greeting not sent")
	}
}

func TestCategoryOnOldPromptIsStale(t *testing.T) {
	f := newFixture()
	old := f.start()
	f.start()
	err := f.click(ActionCategory, "other", old)
	if KindOf(err) != KindStale {
		t.Fatalf("kind = %v", KindOf(err))
	}
	if got := f.gw.answers[len(f.gw.answers)-1].Notice; got != textStaleClick {
		t.Fatalf("toast = %q", got)
	}
}

func TestTicketButtonsOnOldPromptAreStale(t *testing.T) {
	f := newFixture()
	old := f.start()
	_ = f.click(ActionCategory, "application", old)
	current := f.start()
	_ = f.click(ActionCategory, "other", current)
	_ = f.text("screen cracked")

	for _, payload := range []string{PayloadSend, PayloadCancel} {
		if err := f.click(ActionTicket, payload, old); KindOf(err) != KindStale {
			t.Fatalf("%s on old prompt: kind = %v, err = %v", payload, KindOf(err), err)
		}
	}
	s, ok := f.m.Session(userID)
	if !ok || s.State != CollectingDetails || s.PromptID != current {
		t.Fatalf("session changed by old prompt: %+v", s)
	}
	if n := len(f.gw.sentTo(staffChat)); n != 0 {
		t.Fatalf("staff got %d messages from a stale submit", n)
	}

	if err := f.click(ActionTicket, PayloadSend, current); err != nil {
		t.Fatalf("submit on current prompt: %v", err)
	}
	if s, _ := f.m.Session(userID); s.State != AwaitingStaffReply {
		t.Fatalf("state = %v", s.State)
	}
}

func TestAttachmentOrderPreserved(t *testing.T) {
	f := newFixture()
	prompt := f.start()
	_ = f.click(ActionCategory, "application", prompt)
	_ = f.photo("p1")
	_ = f.video("v1")
	_ = f.photo("p2")

	s, _ := f.m.Session(userID)
	want := []ticket.Attachment{{Kind: "photo", Ref: "p1"}, {Kind: "video", Ref: "v1"}, {Kind: "photo", Ref: "p2"}}
	if len(s.Attachments) != len(want) {
		t.Fatalf("attachments = %+v", s.Attachments)
	}
	for i := range want {
		if s.Attachments[i] != want[i] {
			t.Fatalf("attachment %d = %+v, want %+v", i, s.Attachments[i], want[i])
		}
	}
	if len(s.PendingUI) != 1 {
		t.Fatalf("pending ui = %v, want only the latest ack", s.PendingUI)
	}
	if len(f.gw.deleted) != 2 {
		t.Fatalf("deleted = %v, want two superseded acks", f.gw.deleted)
	}

	_ = f.click(ActionTicket, PayloadSend, prompt)
	var media []string
	for _, m := range f.gw.sentTo(staffChat) {
		if m.FileID != "" {
			media = append(media, m.FileID)
		}
	}
	if strings.Join(media, ",") != "p1,v1,p2" {
		t.Fatalf("forwarded media order = %v", media)
	}
}

func TestTextVariantIgnoresMedia(t *testing.T) {
	f := newFixture()
	prompt := f.start()
	_ = f.click(ActionCategory, "other", prompt)
	_ = f.photo("p1")
	_ = f.text("my problem")
	_ = f.text("my real problem")

	s, _ := f.m.Session(userID)
	if len(s.Attachments) != 0 {
		t.Fatalf("media accepted in text-only variant: %+v", s.Attachments)
	}
	if s.Description != "my real problem" {
		t.Fatalf("description = %q", s.Description)
	}
}

func TestInputWithoutSessionIsIgnored(t *testing.T) {
	f := newFixture()
	for _, send := range []func() error{
		func() error { return f.text("hello") },
		func() error { return f.photo("p1") },
	} {
		if err := send(); err != nil {
			t.Fatalf("input without session: %v", err)
		}
	}
	if n := len(f.gw.sentTo(userChat)); n != 0 {
		t.Fatalf("idle user got %d messages", n)
	}
	if _, ok := f.m.Session(userID); ok {
		t.Fatal("input created a session")
	}
}

func TestInputIgnoredOutsideCollecting(t *testing.T) {
	f := newFixture()
	f.start()
	before := len(f.gw.sent)
	if err := f.text("hello"); err != nil {
		t.Fatal(err)
	}
	if len(f.gw.sent) != before {
		t.Fatal("input in AwaitingCategory produced a message")
	}

	f.submitted()
	before = len(f.gw.sent)
	if err := f.photo("late"); err != nil {
		t.Fatal(err)
	}
	s, _ := f.m.Session(userID)
	if len(s.Attachments) != 0 || len(f.gw.sent) != before {
		t.Fatalf("input after submission was accepted: %+v", s)
	}
}

func TestEmptySubmissionRendersNotProvided(t *testing.T) {
	f := newFixture()
	prompt := f.start()
	_ = f.click(ActionCategory, "other", prompt)
	if err := f.click(ActionTicket, PayloadSend, prompt); err != nil {
		t.Fatal(err)
	}
	staff := f.gw.sentTo(staffChat)
	if len(staff) != 1 {
		t.Fatalf("staff messages = %d", len(staff))
	}
	if strings.Count(staff[0].Text, "not provided") != 2 {
		t.Fatalf("ticket text:\n%s", staff[0].Text)
	}
}

func TestSubmitSuccess(t *testing.T) {
	f := newFixture()
	prompt := f.submitted()

	s, _ := f.m.Session(userID)
	if s.State != AwaitingStaffReply {
		t.Fatalf("state = %v", s.State)
	}
	if e := f.gw.lastEdit(); e.MessageID != prompt || e.Text != textAccepted || e.Keyboard != nil {
		t.Fatalf("prompt edit = %+v", e)
	}
	head := f.gw.sentTo(staffChat)[0]
	if !strings.Contains(head.Text, "ID: 12345") || !strings.Contains(head.Text, "it peels off") {
		t.Fatalf("ticket text:\n%s", head.Text)
	}
	if len(head.Opts.Keyboard) != 1 || head.Opts.Keyboard[0][0].Action != ActionReply {
		t.Fatalf("ticket keyboard = %+v", head.Opts.Keyboard)
	}
	if len(f.journal.recorded) != 1 || f.journal.msgIDs[0][0] != head.ID {
		t.Fatalf("journal = %+v %v", f.journal.recorded, f.journal.msgIDs)
	}
}

func TestSubmitDeliveryFailure(t *testing.T) {
	f := newFixture()
	prompt := f.start()
	_ = f.click(ActionCategory, "other", prompt)
	f.gw.failText = func(chatID int64, _ string) bool { return chatID == staffChat }

	err := f.click(ActionTicket, PayloadSend, prompt)
	if KindOf(err) != KindDelivery {
		t.Fatalf("kind = %v", KindOf(err))
	}
	if _, ok := f.m.Session(userID); ok {
		t.Fatal("session kept after failed delivery")
	}
	if e := f.gw.lastEdit(); e.Text != textSendFailed || e.MessageID != prompt {
		t.Fatalf("user not told: %+v", e)
	}
	if len(f.journal.recorded) != 0 {
		t.Fatal("failed ticket was journaled")
	}
}

func TestPartialMediaFailure(t *testing.T) {
	f := newFixture()
	prompt := f.start()
	_ = f.click(ActionCategory, "application", prompt)
	_ = f.photo("good")
	_ = f.photo("bad")
	f.gw.failMedia = func(id string) bool { return id == "bad" }

	if err := f.click(ActionTicket, PayloadSend, prompt); err != nil {
		t.Fatal(err)
	}
	staff := f.gw.sentTo(staffChat)
	if len(staff) != 3 {
		t.Fatalf("staff messages = %+v", staff)
	}
	head := staff[0]
	if staff[1].FileID != "good" || staff[1].Opts.ReplyTo != head.ID {
		t.Fatalf("attachment = %+v", staff[1])
	}
	if containing(staff, "Could not forward an attachment") != 1 {
		t.Fatalf("want exactly one warning: %+v", staff)
	}
	s, _ := f.m.Session(userID)
	if s.State != AwaitingStaffReply {
		t.Fatalf("state = %v", s.State)
	}
}

func TestCancelThenStartEqualsFirstContact(t *testing.T) {
	fresh := newFixture()
	fresh.start()
	want, _ := fresh.m.Session(userID)

	f := newFixture()
	prompt := f.start()
	_ = f.click(ActionCategory, "application", prompt)
	_ = f.text("x")
	if err := f.d.HandleCommand(context.Background(), Command{Name: CommandCancel, UserID: userID, ChatID: userChat}); err != nil {
		t.Fatal(err)
	}
	if _, ok := f.m.Session(userID); ok {
		t.Fatal("session survived /cancel")
	}
	if f.gw.last(userChat).Text != textAborted {
		t.Fatal("abort notice missing")
	}
	f.start()
	got, _ := f.m.Session(userID)
	if got.State != want.State || got.Category != want.Category || got.Description != want.Description ||
		len(got.Attachments) != 0 || len(got.PendingUI) != 0 {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestDiscardButton(t *testing.T) {
	f := newFixture()
	prompt := f.start()
	_ = f.click(ActionCategory, "application", prompt)
	if err := f.click(ActionTicket, PayloadCancel, prompt); err != nil {
		t.Fatal(err)
	}
	if _, ok := f.m.Session(userID); ok {
		t.Fatal("session survived cancel button")
	}
	if e := f.gw.lastEdit(); e.Text != textSendCancelled {
		t.Fatalf("edit = %+v", e)
	}
	if err := f.click(ActionTicket, PayloadSend, prompt); KindOf(err) != KindSessionMissing {
		t.Fatalf("submit after cancel: %v", err)
	}
}

func TestFeedbackRemovesSessionOnce(t *testing.T) {
	f := newFixture()
	f.submitted()
	if err := f.staff("/reply_12345 try heating it", nil); err != nil {
		t.Fatal(err)
	}
	s, _ := f.m.Session(userID)
	if s.State != AwaitingFeedback {
		t.Fatalf("state = %v", s.State)
	}

	if err := f.click(ActionFeedback, PayloadThanks, 900); err != nil {
		t.Fatal(err)
	}
	if _, ok := f.m.Session(userID); ok {
		t.Fatal("session kept after feedback")
	}
	if e := f.gw.lastEdit(); e.Text != textThanksUser || e.MessageID != 900 {
		t.Fatalf("edit = %+v", e)
	}
	if containing(f.gw.sentTo(staffChat), "confirmed the problem is solved (ID: 12345)") != 1 {
		t.Fatal("staff summary missing")
	}

	// a second click finds nothing to remove and still succeeds
	if err := f.click(ActionFeedback, PayloadMoreHelp, 900); err != nil {
		t.Fatal(err)
	}
	if len(f.journal.feedback) != 2 {
		t.Fatalf("journal feedback = %v", f.journal.feedback)
	}
}

func TestFeedbackRemovesSessionEvenIfEditFails(t *testing.T) {
	f := newFixture()
	f.submitted()
	f.gw.failEdit = true
	_ = f.click(ActionFeedback, PayloadMoreHelp, 900)
	if _, ok := f.m.Session(userID); ok {
		t.Fatal("session kept after failed feedback edit")
	}
}

func TestFeedbackKeepsInProgressSession(t *testing.T) {
	f := newFixture()
	prompt := f.start()
	_ = f.click(ActionCategory, "application", prompt)
	if err := f.click(ActionFeedback, PayloadThanks, 1); err != nil {
		t.Fatal(err)
	}
	s, ok := f.m.Session(userID)
	if !ok || s.State != CollectingDetails {
		t.Fatalf("in-progress session touched: %+v %v", s, ok)
	}
}
