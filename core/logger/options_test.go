package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	coreconfig "github.com/m3rciful/supportbot/core/config"
)

func TestResolveSettingsDefaults(t *testing.T) {
	s := resolveSettings(nil)
	if s.format != formatJSON || s.level != slog.LevelInfo || s.profile != "prod" {
		t.Fatalf("defaults = %+v", s)
	}
	if s.sampleKeep != defaultSampleKeep || s.sampleEvery != defaultSampleEvery {
		t.Fatalf("sample = %d/%d", s.sampleKeep, s.sampleEvery)
	}
}

func TestResolveSettings(t *testing.T) {
	cfg := &coreconfig.Config{}
	cfg.Logging = coreconfig.LoggingConfig{
		Level:       "warning",
		Profile:     "Dev",
		KeysOrder:   "ts, event ,level",
		DebugSample: "0",
	}
	s := resolveSettings(cfg)
	if s.format != formatKV {
		t.Fatalf("dev profile should default to kv, got %s", s.format)
	}
	if s.level != slog.LevelWarn {
		t.Fatalf("level = %v", s.level)
	}
	if len(s.keyOrder) != 3 || s.keyOrder[1] != "event" {
		t.Fatalf("key order = %v", s.keyOrder)
	}
	if s.sampleKeep != 0 || s.sampleEvery != 0 {
		t.Fatalf("sampling should be disabled, got %d/%d", s.sampleKeep, s.sampleEvery)
	}

	cfg.Logging = coreconfig.LoggingConfig{Format: "json", Level: "DEBUG", Profile: "debug", DebugSample: "-1/5"}
	s = resolveSettings(cfg)
	if s.format != formatJSON || s.level != slog.LevelDebug {
		t.Fatalf("explicit format/level ignored: %+v", s)
	}
	if s.sampleKeep != defaultSampleKeep || s.sampleEvery != defaultSampleEvery {
		t.Fatalf("bad ratio should keep defaults, got %d/%d", s.sampleKeep, s.sampleEvery)
	}
}

func TestOpenSinksCreatesFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	out := openSinks(settings{dir: dir, botFile: "bot.log", errorsFile: "errors.log"})
	defer func() {
		for _, c := range out.closers {
			c.Close()
		}
	}()
	if len(out.main) != 2 || out.errors == nil || len(out.closers) != 2 {
		t.Fatalf("sinks = %+v", out)
	}
	for _, name := range []string{"bot.log", "errors.log"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("%s not created: %v", name, err)
		}
	}
	if plain := openSinks(settings{}); len(plain.main) != 1 || plain.errors != nil {
		t.Fatalf("stdout-only sinks = %+v", plain)
	}
}
