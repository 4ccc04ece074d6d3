// Package sender runs best-effort Bot API calls off the update loop, retrying
// transient network failures and honouring Telegram flood-control waits.
package sender

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/supportbot/core/logger"
	"github.com/m3rciful/supportbot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

var (
	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull is returned when the task was not accepted.
	ErrQueueFull = errors.New("telegram sender: queue full")

	tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
)

// Options controls the dispatcher. Zero values select defaults.
type Options struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent on a single task, waits included.
	MaxDuration time.Duration
	// MaxFloodWait is the longest retry_after a task will sleep through.
	MaxFloodWait time.Duration
}

func (o *Options) applyDefaults() {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Workers <= 0 {
		o.Workers = 2
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 30 * time.Second
	}
	if o.MaxFloodWait <= 0 {
		o.MaxFloodWait = 10 * time.Second
	}
}

type task struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

// Stats is a snapshot of dispatcher counters.
type Stats struct {
	Done    uint64 `json:"done"`
	Failed  uint64 `json:"failed"`
	Pending int    `json:"pending"`
}

// Dispatcher executes queued calls on a fixed worker pool.
type Dispatcher struct {
	opts  Options
	tasks chan task

	// mu guards closed so Enqueue never sends on a closed channel.
	mu     sync.RWMutex
	closed bool
	once   sync.Once
	wg     sync.WaitGroup

	done   atomic.Uint64
	failed atomic.Uint64
}

// NewDispatcher starts the workers.
func NewDispatcher(opts Options) *Dispatcher {
	opts.applyDefaults()
	d := &Dispatcher{
		opts:  opts,
		tasks: make(chan task, opts.QueueSize),
	}
	d.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go d.worker()
	}
	return d
}

// Enqueue schedules run. It never blocks; a saturated queue returns ErrQueueFull.
// run may be called more than once and must tolerate that.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.tasks <- task{ctx: ctx, action: action, endpoint: endpoint, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stats returns current counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{Done: d.done.Load(), Failed: d.failed.Load(), Pending: len(d.tasks)}
}

// ErrorCount returns the number of tasks that finally failed.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.failed.Load()
}

// Close rejects new tasks and waits until queued ones finish.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.tasks)
		d.mu.Unlock()
		d.wg.Wait()
	})
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for t := range d.tasks {
		d.execute(t)
	}
}

func (d *Dispatcher) execute(t task) {
	ctx, cancel := context.WithTimeout(t.ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	for attempt := 1; ; attempt++ {
		err := t.run()
		if err == nil {
			d.done.Add(1)
			attrs := append(taskAttrs(t), slog.Duration("elapsed", logger.RoundMS(time.Since(start))))
			if attempt > 1 {
				logger.Info(ctx, "tg.sender", "send.retry.success", append(attrs, slog.Int("attempt", attempt))...)
			} else {
				logger.Debug(ctx, "tg.sender", "send.success", attrs...)
			}
			return
		}

		wait, retry := d.backoff(err, attempt)
		if !retry {
			d.fail(ctx, t, err, attempt, start)
			return
		}
		logger.Debug(ctx, "tg.sender", "send.retry.backoff", append(taskAttrs(t),
			slog.Int("attempt", attempt),
			slog.String("reason", errorKind(err)),
			slog.Duration("delay", wait),
		)...)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			d.fail(ctx, t, ctx.Err(), attempt, start)
			return
		case <-timer.C:
		}
	}
}

// backoff decides whether err after the given attempt is retried and how long
// to wait first. Flood control uses the server's retry_after.
func (d *Dispatcher) backoff(err error, attempt int) (time.Duration, bool) {
	if attempt > d.opts.MaxRetries {
		return 0, false
	}
	var flood tele.FloodError
	if errors.As(err, &flood) {
		wait := time.Duration(flood.RetryAfter) * time.Second
		if wait > d.opts.MaxFloodWait {
			return 0, false
		}
		if wait <= 0 {
			wait = d.opts.RetryBackoff
		}
		return wait, true
	}
	if !netutil.ShouldRetry(err) {
		return 0, false
	}
	return d.opts.RetryBackoff * time.Duration(attempt), true
}

func (d *Dispatcher) fail(ctx context.Context, t task, err error, attempts int, start time.Time) {
	d.failed.Add(1)
	logger.Error(ctx, "tg.sender", "send.fail", append(taskAttrs(t),
		slog.String("error", redact(err)),
		slog.String("error_kind", errorKind(err)),
		slog.Int("attempts", attempts),
		slog.Duration("elapsed", logger.RoundMS(time.Since(start))),
	)...)
}

func taskAttrs(t task) []slog.Attr {
	attrs := []slog.Attr{slog.String("action", t.action)}
	if t.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", t.endpoint))
	}
	return attrs
}

// errorKind buckets err for the error_kind log key.
func errorKind(err error) string {
	var alert tls.AlertError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &alert):
		return "tls"
	}
	if reason := netutil.Reason(err); reason != "" {
		return reason
	}
	switch code := statusOf(err); {
	case code == http.StatusTooManyRequests:
		return "flood"
	case code >= 500:
		return "http_5xx"
	case code >= 400:
		return "http_4xx"
	default:
		return "unknown"
	}
}

// redact masks bot tokens embedded in request URLs.
func redact(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}

// statusOf extracts the Bot API status carried by err, or 0.
func statusOf(err error) int {
	var (
		flood  tele.FloodError
		apiErr *tele.Error
		group  tele.GroupError
	)
	switch {
	case errors.As(err, &flood):
		return http.StatusTooManyRequests
	case errors.As(err, &apiErr):
		return apiErr.Code
	case errors.As(err, &group):
		return http.StatusBadRequest
	}
	// Untyped API errors end in "(<code>)".
	msg := strings.TrimSpace(err.Error())
	if !strings.HasSuffix(msg, ")") {
		return 0
	}
	i := strings.LastIndexByte(msg, '(')
	if i < 0 {
		return 0
	}
	code, convErr := strconv.Atoi(strings.TrimSpace(msg[i+1 : len(msg)-1]))
	if convErr != nil {
		return 0
	}
	return code
}
