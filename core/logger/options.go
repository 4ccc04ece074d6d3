package logger

import (
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	coreconfig "github.com/m3rciful/supportbot/core/config"
)

const (
	defaultSampleKeep  = 1
	defaultSampleEvery = 50
)

// settings is the logging section of the config with defaults applied.
type settings struct {
	format      logFormat
	level       slog.Level
	keyOrder    []string
	sampleKeep  int
	sampleEvery int
	profile     string

	dir        string
	botFile    string
	errorsFile string
}

func resolveSettings(cfg *coreconfig.Config) settings {
	s := settings{
		format:      formatJSON,
		level:       slog.LevelInfo,
		keyOrder:    defaultKeyOrder,
		sampleKeep:  defaultSampleKeep,
		sampleEvery: defaultSampleEvery,
		profile:     "prod",
	}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging
	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		s.profile = p
	}
	s.format = parseFormat(lc.Format, s.profile)
	s.level = parseLevel(lc.Level)
	if order := splitList(lc.KeysOrder); len(order) > 0 && order[0] != "default" {
		s.keyOrder = order
	}
	if raw := strings.TrimSpace(lc.DebugSample); raw != "" {
		keep, every := parseRatio(raw)
		switch {
		case keep == 0 && every == 0:
			s.sampleKeep, s.sampleEvery = 0, 0
		case keep > 0 && every > 0:
			s.sampleKeep, s.sampleEvery = keep, every
		}
	}
	s.dir = strings.TrimSpace(lc.Dir)
	s.botFile = strings.TrimSpace(lc.BotFile)
	s.errorsFile = strings.TrimSpace(lc.ErrorsFile)
	return s
}

// parseFormat picks kv for dev profiles unless a format is set explicitly.
func parseFormat(raw, profile string) logFormat {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "kv", "text", "pretty":
		return formatKV
	case "json":
		return formatJSON
	}
	if profile == "debug" || profile == "dev" {
		return formatKV
	}
	return formatJSON
}

func parseLevel(raw string) slog.Level {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "warning") {
		return slog.LevelWarn
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// sinks are the destinations opened for a settings value.
type sinks struct {
	main    []io.Writer
	errors  io.Writer
	closers []io.Closer
}

// openSinks always writes to stdout. Files under dir are added when they can
// be opened; failures are reported on the standard logger and skipped.
func openSinks(s settings) sinks {
	out := sinks{main: []io.Writer{os.Stdout}}
	if s.dir == "" {
		return out
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		log.Printf("logger: failed to create log dir %s: %v", s.dir, err)
		return out
	}
	open := func(name string) io.Writer {
		if name == "" {
			return nil
		}
		path := filepath.Join(s.dir, name)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Printf("logger: failed to open log file %s: %v", path, err)
			return nil
		}
		out.closers = append(out.closers, f)
		return f
	}
	if f := open(s.botFile); f != nil {
		out.main = append(out.main, f)
	}
	out.errors = open(s.errorsFile)
	return out
}
