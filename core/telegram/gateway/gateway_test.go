package gateway

import (
	"context"
	"errors"
	"testing"

	tghelpers "github.com/m3rciful/supportbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

type sent struct {
	to   tele.Recipient
	what interface{}
	opts *tele.SendOptions
}

type fakeAPI struct {
	nextID   int
	sent     []sent
	edits    []string
	deleted  []tele.Editable
	answered []*tele.CallbackResponse
	sendErr  error
	editErr  error
}

func (f *fakeAPI) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.nextID++
	s := sent{to: to, what: what}
	if len(opts) > 0 {
		s.opts, _ = opts[0].(*tele.SendOptions)
	}
	f.sent = append(f.sent, s)
	return &tele.Message{ID: f.nextID}, nil
}

func (f *fakeAPI) Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error) {
	if f.editErr != nil {
		return nil, f.editErr
	}
	f.edits = append(f.edits, what.(string))
	return &tele.Message{}, nil
}

func (f *fakeAPI) Delete(msg tele.Editable) error {
	f.deleted = append(f.deleted, msg)
	return nil
}

func (f *fakeAPI) Respond(c *tele.Callback, resp ...*tele.CallbackResponse) error {
	f.answered = append(f.answered, resp...)
	return nil
}

func TestSendTextBuildsKeyboardAndThreading(t *testing.T) {
	api := &fakeAPI{}
	g := New(api, nil)
	ctx, counters := tghelpers.WithCounters(context.Background())

	id, err := g.SendText(ctx, -100, "hello", Options{
		Keyboard: Keyboard{{{Text: "Reply", Action: "reply", Payload: "42"}}},
		ReplyTo:  7,
	})
	if err != nil || id != 1 {
		t.Fatalf("SendText = %d, %v", id, err)
	}
	got := api.sent[0]
	if got.to.Recipient() != "-100" {
		t.Fatalf("recipient = %s", got.to.Recipient())
	}
	if got.opts.ReplyTo == nil || got.opts.ReplyTo.ID != 7 {
		t.Fatalf("reply-to not set: %+v", got.opts.ReplyTo)
	}
	if got.opts.ReplyMarkup == nil || got.opts.ReplyMarkup.InlineKeyboard[0][0].Unique != "reply" {
		t.Fatalf("keyboard not set: %+v", got.opts.ReplyMarkup)
	}
	if n, kb := counters.Snapshot(); n != 1 || !kb {
		t.Fatalf("counters = %d,%v", n, kb)
	}
}

func TestSendMediaKinds(t *testing.T) {
	api := &fakeAPI{}
	g := New(api, nil)

	if _, err := g.SendMedia(context.Background(), 1, KindPhoto, "p1", "cap", Options{}); err != nil {
		t.Fatalf("photo: %v", err)
	}
	if _, err := g.SendMedia(context.Background(), 1, KindVideo, "v1", "cap", Options{}); err != nil {
		t.Fatalf("video: %v", err)
	}
	if _, err := g.SendMedia(context.Background(), 1, "audio", "a1", "", Options{}); !errors.Is(err, ErrUnsupportedMedia) {
		t.Fatalf("audio err = %v", err)
	}
	if p, ok := api.sent[0].what.(*tele.Photo); !ok || p.FileID != "p1" || p.Caption != "cap" {
		t.Fatalf("photo payload = %#v", api.sent[0].what)
	}
	if v, ok := api.sent[1].what.(*tele.Video); !ok || v.FileID != "v1" {
		t.Fatalf("video payload = %#v", api.sent[1].what)
	}
}

func TestEditIgnoresNotModified(t *testing.T) {
	api := &fakeAPI{editErr: tele.ErrMessageNotModified}
	g := New(api, nil)
	if err := g.EditText(context.Background(), 1, 2, "same", nil); err != nil {
		t.Fatalf("EditText = %v, want nil", err)
	}
	api.editErr = errors.New("boom")
	if err := g.EditText(context.Background(), 1, 2, "x", nil); err == nil {
		t.Fatal("expected edit error")
	}
}

func TestDeleteMessageInlineWithoutQueue(t *testing.T) {
	api := &fakeAPI{}
	g := New(api, nil)
	g.DeleteMessage(context.Background(), 5, 0)
	g.DeleteMessage(context.Background(), 5, 9)
	if len(api.deleted) != 1 {
		t.Fatalf("deleted = %d, want 1", len(api.deleted))
	}
	id, chat := api.deleted[0].MessageSig()
	if id != "9" || chat != 5 {
		t.Fatalf("deleted %s in %d", id, chat)
	}
}

func TestAnswerClick(t *testing.T) {
	api := &fakeAPI{}
	g := New(api, nil)
	if err := g.AnswerClick(context.Background(), "", "ignored"); err != nil {
		t.Fatal(err)
	}
	if err := g.AnswerClick(context.Background(), "cb1", "done"); err != nil {
		t.Fatal(err)
	}
	if len(api.answered) != 1 || api.answered[0].Text != "done" {
		t.Fatalf("answered = %+v", api.answered)
	}
}
