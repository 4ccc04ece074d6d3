package logger

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"strings"
	"time"
)

const tsLayout = "2006-01-02T15:04:05.000Z07:00"

type handlerConfig struct {
	level  slog.Leveler
	writer *asyncWriter
	// errWriter receives a copy of every WARN and above record when set.
	errWriter *asyncWriter
	format    logFormat
	keyOrder  []string
}

// structuredHandler renders records as one flat line per record. Groups are
// flattened into dotted keys and well-known context values are added.
type structuredHandler struct {
	cfg    handlerConfig
	enc    encoder
	preset fields
	prefix string
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	if cfg.keyOrder == nil {
		cfg.keyOrder = defaultKeyOrder
	}
	return &structuredHandler{cfg: cfg, enc: newEncoder(cfg.format, cfg.keyOrder)}
}

func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return errors.New("logger: writer not initialized")
	}
	f := make(fields, len(h.preset)+r.NumAttrs()+8)
	maps.Copy(f, h.preset)
	r.Attrs(func(a slog.Attr) bool {
		f.add(h.prefix, a)
		return true
	})
	f.fromContext(ctx)
	f.finish(r, h.cfg.format == formatJSON)

	line, err := h.enc.encode(f)
	if err != nil {
		return err
	}
	line = append(line, '\n')
	if h.cfg.errWriter != nil && r.Level >= slog.LevelWarn {
		_ = h.cfg.errWriter.Write(line)
	}
	return h.cfg.writer.Write(line)
}

func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.preset = maps.Clone(h.preset)
	if clone.preset == nil {
		clone.preset = make(fields, len(attrs))
	}
	for _, a := range attrs {
		clone.preset.add(h.prefix, a)
	}
	return &clone
}

func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = joinKey(h.prefix, name)
	return &clone
}

// fields is one log line under construction.
type fields map[string]any

func (f fields) str(key string) string {
	switch v := f[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func (f fields) setDefault(key string, v any) {
	if _, ok := f[key]; !ok {
		f[key] = v
	}
}

func (f fields) add(prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			f.add(joinKey(prefix, a.Key), child)
		}
		return
	}
	if a.Key == "" {
		return
	}
	key, val := plain(joinKey(prefix, a.Key), v)
	if val != nil {
		f[key] = val
	}
}

// fromContext fills ids carried by ctx unless the record set them already.
func (f fields) fromContext(ctx context.Context) {
	if ctx == nil {
		return
	}
	for key, val := range map[string]any{
		"rid":       RIDFrom(ctx),
		"update_id": UpdateIDFrom(ctx),
		"user_id":   UserIDFrom(ctx),
		"chat_id":   ChatIDFrom(ctx),
		"handler":   HandlerFrom(ctx),
		"ticket_id": TicketFrom(ctx),
	} {
		switch v := val.(type) {
		case string:
			if v != "" {
				f.setDefault(key, v)
			}
		case int:
			if v != 0 {
				f.setDefault(key, v)
			}
		case int64:
			if v != 0 {
				f.setDefault(key, v)
			}
		}
	}
}

// finish stamps the envelope keys and drops empty values.
func (f fields) finish(r slog.Record, verbose bool) {
	ts := r.Time.UTC()
	f["ts"] = ts.Truncate(time.Millisecond).Format(tsLayout)
	f["level"] = levelName(r.Level)
	if verbose {
		f["ts_unix_nano"] = ts.UnixNano()
	}
	if rid := f.str("rid"); rid != "" {
		if short := CompactRID(rid); short != rid {
			if verbose {
				f.setDefault("rid_full", rid)
			}
			f["rid"] = short
		}
	}
	if f.str("event") == "" {
		f["event"] = cmp.Or(r.Message, "unknown")
	}
	if f.str("component") == "" {
		f["component"] = "app"
	}
	if status := f.str("status"); status != "" {
		f["status"], _ = normalizeStatus(status)
	}
	for k, v := range f {
		if s, ok := v.(string); ok && s == "" {
			delete(f, k)
		}
	}
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	default:
		return prefix + "." + key
	}
}

// plain converts v into a JSON-friendly value. Durations become integer
// milliseconds under a key ending in _ms.
func plain(key string, v slog.Value) (string, any) {
	switch v.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(v.String())
	case slog.KindBool:
		return key, v.Bool()
	case slog.KindInt64:
		return key, v.Int64()
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return key, int64(u)
		}
		return key, v.Uint64()
	case slog.KindFloat64:
		return key, v.Float64()
	case slog.KindDuration:
		return msKey(key), RoundMS(v.Duration()).Milliseconds()
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano)
	}
	switch x := v.Any().(type) {
	case nil:
		return key, nil
	case error:
		return key, x.Error()
	case time.Duration:
		return msKey(key), RoundMS(x).Milliseconds()
	case fmt.Stringer:
		return key, x.String()
	default:
		return key, fmt.Sprint(x)
	}
}

func msKey(key string) string {
	if key == "duration" {
		return "duration_ms"
	}
	if strings.HasSuffix(key, "_ms") {
		return key
	}
	return key + "_ms"
}
