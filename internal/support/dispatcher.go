package support

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/m3rciful/supportbot/core/logger"
	"github.com/m3rciful/supportbot/core/telegram/gateway"
)

// Dispatcher routes events to the Machine and applies one failure policy to
// whatever the handlers return. Its methods never panic; the returned error
// has already been reported and is only useful for inspection.
type Dispatcher struct {
	m  *Machine
	gw Gateway
}

// NewDispatcher wraps m.
func NewDispatcher(m *Machine) *Dispatcher {
	return &Dispatcher{m: m, gw: m.gw}
}

// Machine returns the wrapped state machine.
func (d *Dispatcher) Machine() *Machine { return d.m }

// HandleCommand processes /start and /cancel.
func (d *Dispatcher) HandleCommand(ctx context.Context, cmd Command) error {
	err := guard(ctx, "command."+cmd.Name, func() error {
		switch cmd.Name {
		case CommandStart:
			return d.m.Start(ctx, cmd)
		case CommandCancel:
			return d.m.Cancel(ctx, cmd)
		default:
			return nil
		}
	})
	if err != nil {
		d.report(ctx, err)
		d.notify(ctx, cmd.ChatID, userNotice(err), 0)
	}
	return err
}

// HandleClick processes an inline button press. The click is answered exactly once.
func (d *Dispatcher) HandleClick(ctx context.Context, c Click) error {
	var toast string
	err := guard(ctx, "click."+c.Action, func() error {
		var err error
		switch c.Action {
		case ActionCategory:
			toast, err = d.m.ChooseCategory(ctx, c)
		case ActionTicket:
			if c.Payload == PayloadSend {
				toast, err = d.m.Submit(ctx, c)
			} else {
				toast, err = d.m.Discard(ctx, c)
			}
		case ActionFeedback:
			toast, err = d.m.Feedback(ctx, c)
		case ActionReply:
			toast, err = d.m.PointReply(ctx, c)
		default:
			err = newError(KindStale, "click", fmt.Errorf("unknown action %q", c.Action))
		}
		return err
	})

	var edit string
	if err != nil {
		d.report(ctx, err)
		switch KindOf(err) {
		case KindSessionMissing:
			toast = textNeedStart
		case KindStale:
			toast = textStaleClick
		case KindCorrelation:
			toast = noticeOf(err)
		default:
			toast = ""
			edit = userNotice(err)
		}
	}
	if aerr := d.gw.AnswerClick(ctx, c.ID, toast); aerr != nil {
		logger.LogEvent(ctx, logger.Support, slog.LevelDebug, "click.answer_fail", slog.String("err", aerr.Error()))
	}
	if edit != "" && c.MessageID != 0 {
		if eerr := d.gw.EditText(ctx, c.ChatID, c.MessageID, edit, nil); eerr != nil {
			logger.LogEvent(ctx, logger.Support, slog.LevelWarn, "notice.edit_fail", slog.String("err", eerr.Error()))
		}
	}
	return err
}

// HandleMessage processes text and media in a private chat.
func (d *Dispatcher) HandleMessage(ctx context.Context, msg Message) error {
	err := guard(ctx, "message", func() error { return d.m.Collect(ctx, msg) })
	if err != nil {
		d.report(ctx, err)
		d.notify(ctx, msg.ChatID, userNotice(err), 0)
	}
	return err
}

// HandleStaffMessage processes a message posted in the staff chat.
func (d *Dispatcher) HandleStaffMessage(ctx context.Context, msg Message) error {
	err := guard(ctx, "staff.message", func() error { return d.m.Relay(ctx, msg) })
	if err != nil {
		d.report(ctx, err)
		notice := noticeOf(err)
		if notice == "" {
			notice = textStaffFailed
		}
		d.notify(ctx, msg.ChatID, notice, msg.MessageID)
	}
	return err
}

func (d *Dispatcher) notify(ctx context.Context, chatID int64, text string, replyTo int) {
	if _, err := d.gw.SendText(ctx, chatID, text, gateway.Options{ReplyTo: replyTo}); err != nil {
		logger.LogEvent(ctx, logger.Support, slog.LevelWarn, "notice.fail", slog.String("err", err.Error()))
	}
}

func (d *Dispatcher) report(ctx context.Context, err error) {
	level := slog.LevelInfo
	switch KindOf(err) {
	case KindInternal:
		level = slog.LevelError
	case KindDelivery:
		level = slog.LevelWarn
	}
	logger.LogEvent(ctx, logger.Support, level, "handler.error",
		slog.String("kind", KindOf(err).String()),
		slog.String("err", err.Error()),
	)
}

// userNotice picks the text shown to a user for err.
func userNotice(err error) string {
	if n := noticeOf(err); n != "" {
		return n
	}
	if KindOf(err) == KindSessionMissing {
		return textNeedStart
	}
	return textRestart
}

// guard runs fn and converts a panic into an internal error.
func guard(ctx context.Context, op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.LogEvent(ctx, logger.Support, slog.LevelError, "handler.panic",
				slog.String("op", op),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			err = newError(KindInternal, op, fmt.Errorf("panic: %v", r))
		}
	}()
	return fn()
}
