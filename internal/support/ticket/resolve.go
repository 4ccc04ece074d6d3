package ticket

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// CommandPrefix starts the explicit staff reply command.
const CommandPrefix = "/reply_"

const headerMarker = "🆕 New ticket"

// Resolution errors. ErrNotApplicable means a resolver does not recognise the
// message and the next one should be tried.
var (
	ErrNotApplicable = errors.New("ticket: message is not a reply")
	ErrBadCommand    = errors.New("ticket: malformed reply command")
	ErrEmptyBody     = errors.New("ticket: reply text is empty")
	ErrNoRecipient   = errors.New("ticket: recipient not found")
)

// Quote is the message a staff reply was attached to.
type Quote struct {
	MessageID int
	// Text is the quoted text or media caption.
	Text string
}

// Reply is an incoming staff-chat message.
type Reply struct {
	SenderID  int64
	MessageID int
	Text      string
	Quote     *Quote
}

// Target is a resolved reply destination.
type Target struct {
	UserID      int64
	DisplayName string
	Body        string
	// Via names the resolver that produced the target.
	Via string
}

// Resolver recovers the originating user of a staff reply.
type Resolver interface {
	Resolve(ctx context.Context, r Reply) (Target, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, r Reply) (Target, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, r Reply) (Target, error) {
	return f(ctx, r)
}

// Chain tries resolvers in order and returns the first result that is not
// ErrNotApplicable.
type Chain []Resolver

// Resolve implements Resolver.
func (c Chain) Resolve(ctx context.Context, r Reply) (Target, error) {
	for _, res := range c {
		if res == nil {
			continue
		}
		t, err := res.Resolve(ctx, r)
		if errors.Is(err, ErrNotApplicable) {
			continue
		}
		return t, err
	}
	return Target{}, ErrNotApplicable
}

// CommandResolver handles "/reply_<id>[@bot] [text]".
type CommandResolver struct{}

// Resolve implements Resolver.
func (CommandResolver) Resolve(_ context.Context, r Reply) (Target, error) {
	text := strings.TrimSpace(r.Text)
	if !strings.HasPrefix(text, "/reply") {
		return Target{}, ErrNotApplicable
	}
	rest := strings.TrimPrefix(text, "/reply")
	if rest != "" && rest[0] != '_' && rest[0] != ' ' && rest[0] != '@' && rest[0] != '\n' {
		// a different command such as /replyall
		return Target{}, ErrNotApplicable
	}
	rest = strings.TrimPrefix(rest, "_")

	n := 0
	for n < len(rest) && rest[n] >= '0' && rest[n] <= '9' {
		n++
	}
	if n == 0 {
		return Target{}, ErrBadCommand
	}
	userID, err := strconv.ParseInt(rest[:n], 10, 64)
	if err != nil || userID <= 0 {
		return Target{}, ErrBadCommand
	}

	body := rest[n:]
	if strings.HasPrefix(body, "@") {
		if i := strings.IndexAny(body, " \n\t"); i >= 0 {
			body = body[i:]
		} else {
			body = ""
		}
	}
	body = strings.TrimSpace(body)
	if body == "" && r.Quote != nil {
		body = strings.TrimSpace(r.Quote.Text)
	}
	if body == "" {
		return Target{}, ErrEmptyBody
	}
	return Target{UserID: userID, Body: body, Via: "command"}, nil
}

// Pointer remembers which user a staff operator is replying to.
type Pointer struct {
	UserID      int64
	DisplayName string
}

// PointerSource hands out and clears operator pointers.
type PointerSource interface {
	TakePointer(operatorID int64) (Pointer, bool)
}

// PointerResolver consumes the pointer set by a ticket's reply button.
type PointerResolver struct {
	Pointers PointerSource
}

// Resolve implements Resolver.
func (p PointerResolver) Resolve(_ context.Context, r Reply) (Target, error) {
	if p.Pointers == nil {
		return Target{}, ErrNotApplicable
	}
	ptr, ok := p.Pointers.TakePointer(r.SenderID)
	if !ok {
		return Target{}, ErrNotApplicable
	}
	body := strings.TrimSpace(r.Text)
	if body == "" {
		return Target{}, ErrEmptyBody
	}
	return Target{UserID: ptr.UserID, DisplayName: ptr.DisplayName, Body: body, Via: "pointer"}, nil
}

var (
	idRx   = regexp.MustCompile(`ID: (\d+)`)
	fromRx = regexp.MustCompile(`From: @(\S+)`)
)

// QuoteResolver extracts the user id from a quoted ticket or attachment caption.
type QuoteResolver struct{}

// Resolve implements Resolver.
func (QuoteResolver) Resolve(_ context.Context, r Reply) (Target, error) {
	if r.Quote == nil {
		return Target{}, ErrNotApplicable
	}
	m := idRx.FindStringSubmatch(r.Quote.Text)
	if m == nil {
		if strings.Contains(r.Quote.Text, headerMarker) {
			return Target{}, ErrNoRecipient
		}
		return Target{}, ErrNotApplicable
	}
	userID, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || userID <= 0 {
		return Target{}, ErrNoRecipient
	}
	body := strings.TrimSpace(r.Text)
	if body == "" {
		return Target{}, ErrEmptyBody
	}
	t := Target{UserID: userID, Body: body, Via: "quote"}
	if f := fromRx.FindStringSubmatch(r.Quote.Text); f != nil {
		t.DisplayName = f[1]
	}
	return t, nil
}
