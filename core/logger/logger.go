// Package logger wires the process-wide structured logger: a slog handler
// writing flat JSON or key=value lines through asynchronous sinks, plus
// per-component loggers and context helpers for Telegram update metadata.
package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/supportbot/core/buildinfo"
	coreconfig "github.com/m3rciful/supportbot/core/config"
)

var (
	initOnce sync.Once
	stopOnce sync.Once

	logWriter *asyncWriter
	errWriter *asyncWriter
	closers   []io.Closer

	levelVar slog.LevelVar

	debugSampler = newRatioSampler(defaultSampleKeep, defaultSampleEvery)
	traceAll     bool

	// L is the base logger.
	L *slog.Logger

	// DB logs database connection events.
	DB *slog.Logger
	// TG logs Telegram transport events.
	TG *slog.Logger
	// MIG logs journal migration events.
	MIG *slog.Logger
	// TWire logs Telegram wiring steps.
	TWire *slog.Logger
	// Support logs conversation state machine activity.
	Support *slog.Logger
	// Staff logs staff-side correlation and delivery.
	Staff *slog.Logger
	// Journal logs ticket journal writes.
	Journal *slog.Logger
	// Ops logs the operational HTTP listener.
	Ops *slog.Logger
)

func init() {
	// Usable before InitLogger runs (tests, early startup errors).
	setBase(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func setBase(base *slog.Logger) {
	L = base
	DB = Component("db")
	TG = Component("tg")
	MIG = Component("db.migrate")
	TWire = Component("tg.wire")
	Support = Component("support")
	Staff = Component("support.staff")
	Journal = Component("journal")
	Ops = Component("ops")
}

// InitLogger installs the configured logger as L and slog's default. Only
// the first call has an effect.
func InitLogger(cfg *coreconfig.Config) error {
	initOnce.Do(func() {
		s := resolveSettings(cfg)
		levelVar.Set(s.level)
		debugSampler.Set(s.sampleKeep, s.sampleEvery)
		traceAll = truthy(os.Getenv("TRACE")) || truthy(os.Getenv("LOG_TRACE"))

		out := openSinks(s)
		closers = out.closers
		logWriter = newAsyncWriter(out.main, 64*1024)
		if out.errors != nil {
			errWriter = newAsyncWriter([]io.Writer{out.errors}, 16*1024)
		}

		setBase(slog.New(newStructuredHandler(handlerConfig{
			level:     &levelVar,
			writer:    logWriter,
			errWriter: errWriter,
			format:    s.format,
			keyOrder:  s.keyOrder,
		})))
		slog.SetDefault(L)
		logStartup(cfg, s)
	})
	return nil
}

func logStartup(cfg *coreconfig.Config, s settings) {
	attrs := []slog.Attr{
		slog.String("event", "startup"),
		slog.String("go_version", runtime.Version()),
		slog.String("build", buildinfo.Current().String()),
		slog.String("cfg_profile", s.profile),
	}
	if cfg != nil {
		attrs = append(attrs,
			slog.Int64("staff_chat_id", cfg.Telegram.StaffChatID),
			slog.Bool("journal", cfg.Database.Enabled()),
		)
	}
	Component("app").LogAttrs(context.Background(), slog.LevelInfo, "startup", attrs...)
}

// DroppedLines reports log lines discarded because a writer queue stayed full.
func DroppedLines() uint64 {
	return logWriter.Dropped() + errWriter.Dropped()
}

// Shutdown drains the writers and closes log files. Later calls are no-ops.
func Shutdown() error {
	var errs []error
	stopOnce.Do(func() {
		for _, w := range []*asyncWriter{logWriter, errWriter} {
			if w != nil {
				errs = append(errs, w.Flush(), w.Close())
			}
		}
		for _, c := range closers {
			errs = append(errs, c.Close())
		}
	})
	return errors.Join(errs...)
}

// LogEvent writes attrs under an explicit event name. A nil logg falls back
// to the logger stored in ctx.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

// Component returns L scoped to the named component.
func Component(name string) *slog.Logger {
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelDebug, event, attrs...)
}

func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelInfo, event, attrs...)
}

func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelWarn, event, attrs...)
}

func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelError, event, attrs...)
}

// ShouldSampleDebug reports whether a high-volume debug line should be
// written. TRACE=1 lets every line through.
func ShouldSampleDebug() bool {
	return traceAll || debugSampler.Allow()
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
