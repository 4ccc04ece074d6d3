// Package gateway exposes the Telegram Bot API through the narrow set of
// operations a conversation needs: send text or media, edit, delete and
// answer button clicks.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/m3rciful/supportbot/core/logger"
	tghelpers "github.com/m3rciful/supportbot/core/telegram/helpers"
	"github.com/m3rciful/supportbot/core/telegram/keyboard"
	"github.com/m3rciful/supportbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Media kinds accepted by SendMedia.
const (
	KindPhoto = "photo"
	KindVideo = "video"
)

// ErrUnsupportedMedia is returned by SendMedia for unknown kinds.
var ErrUnsupportedMedia = errors.New("gateway: unsupported media kind")

// Button is one inline button. Action selects the handler, Payload is passed to it.
type Button = keyboard.Button

// Keyboard is a set of inline button rows.
type Keyboard = keyboard.Rows

// Options carries optional parts of an outbound message.
type Options struct {
	Keyboard Keyboard
	// ReplyTo threads the message under an earlier one in the same chat.
	ReplyTo int
}

// API is the subset of *tele.Bot used by Telegram.
type API interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
	Delete(msg tele.Editable) error
	Respond(c *tele.Callback, resp ...*tele.CallbackResponse) error
}

// Telegram implements the messaging gateway on top of a telebot API.
type Telegram struct {
	api    API
	queue  *sender.Dispatcher
	logger *slog.Logger
}

// New wires the gateway. queue may be nil, in which case deletions run inline.
func New(api API, queue *sender.Dispatcher) *Telegram {
	return &Telegram{api: api, queue: queue, logger: logger.Component("tg.gateway")}
}

func (o Options) sendOptions() *tele.SendOptions {
	opts := &tele.SendOptions{ReplyMarkup: o.Keyboard.Markup()}
	if o.ReplyTo != 0 {
		opts.ReplyTo = &tele.Message{ID: o.ReplyTo}
	}
	return opts
}

// SendText sends plain text and returns the new message id.
func (g *Telegram) SendText(ctx context.Context, chatID int64, text string, opts Options) (int, error) {
	start := time.Now()
	msg, err := g.api.Send(tele.ChatID(chatID), text, opts.sendOptions())
	g.observe(ctx, "send.text", chatID, len(opts.Keyboard) > 0, start, err)
	if err != nil {
		return 0, fmt.Errorf("send text to %d: %w", chatID, err)
	}
	return msg.ID, nil
}

// SendMedia sends a photo or video referenced by a Telegram file id.
func (g *Telegram) SendMedia(ctx context.Context, chatID int64, kind, fileID, caption string, opts Options) (int, error) {
	var what interface{}
	switch kind {
	case KindPhoto:
		what = &tele.Photo{File: tele.File{FileID: fileID}, Caption: caption}
	case KindVideo:
		what = &tele.Video{File: tele.File{FileID: fileID}, Caption: caption}
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedMedia, kind)
	}
	start := time.Now()
	msg, err := g.api.Send(tele.ChatID(chatID), what, opts.sendOptions())
	g.observe(ctx, "send."+kind, chatID, len(opts.Keyboard) > 0, start, err)
	if err != nil {
		return 0, fmt.Errorf("send %s to %d: %w", kind, chatID, err)
	}
	return msg.ID, nil
}

// EditText replaces the text of a sent message. A nil keyboard removes inline buttons.
func (g *Telegram) EditText(ctx context.Context, chatID int64, messageID int, text string, kb Keyboard) error {
	start := time.Now()
	ref := tele.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: chatID}
	_, err := g.api.Edit(ref, text, &tele.SendOptions{ReplyMarkup: kb.Markup()})
	if errors.Is(err, tele.ErrMessageNotModified) {
		err = nil
	}
	g.observe(ctx, "edit.text", chatID, len(kb) > 0, start, err)
	if err != nil {
		return fmt.Errorf("edit message %d in %d: %w", messageID, chatID, err)
	}
	return nil
}

// DeleteMessage removes a message best-effort. Failures are logged, never returned.
func (g *Telegram) DeleteMessage(ctx context.Context, chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	ref := tele.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: chatID}
	run := func() error { return g.api.Delete(ref) }
	if g.queue != nil {
		err := g.queue.Enqueue(context.WithoutCancel(ctx), "delete", "deleteMessage", run)
		if err == nil {
			return
		}
		logger.Debug(ctx, "tg.gateway", "queue.fallback",
			slog.String("action", "delete"),
			slog.String("err", err.Error()),
		)
	}
	if err := run(); err != nil {
		logger.Debug(ctx, "tg.gateway", "delete.skip",
			slog.Int64("chat_id", chatID),
			slog.Int("message_id", messageID),
			slog.String("err", err.Error()),
		)
	}
}

// AnswerClick acknowledges a callback query, optionally with a short notice.
func (g *Telegram) AnswerClick(ctx context.Context, clickID, notice string) error {
	if clickID == "" {
		return nil
	}
	resp := &tele.CallbackResponse{Text: notice}
	if err := g.api.Respond(&tele.Callback{ID: clickID}, resp); err != nil {
		logger.Warn(ctx, "tg.gateway", "answer.fail",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

func (g *Telegram) observe(ctx context.Context, action string, chatID int64, kb bool, start time.Time, err error) {
	if err == nil {
		tghelpers.CountersFrom(ctx).Add(kb)
		if logger.ShouldSampleDebug() {
			logger.LogEvent(ctx, g.logger, slog.LevelDebug, action,
				slog.String("status", "ok"),
				slog.Int64("target_chat_id", chatID),
				slog.Duration("duration", logger.RoundMS(time.Since(start))),
			)
		}
		return
	}
	logger.LogEvent(ctx, g.logger, slog.LevelWarn, action,
		slog.String("status", "fail"),
		slog.Int64("target_chat_id", chatID),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
}
