package config

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Token string `yaml:"token" envconfig:"BOT_TOKEN"`
	// StaffChatID is the group chat where tickets are posted and staff replies come from.
	StaffChatID int64  `yaml:"staff_chat_id" envconfig:"STAFF_CHAT_ID"`
	RunMode     string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds bounds one getUpdates call. Zero uses the default.
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig is used when run_mode is webhook. URL is the public address
// registered with Telegram; Listen and Port are the local bind.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	// Secret is echoed by Telegram in X-Telegram-Bot-Api-Secret-Token.
	Secret string `yaml:"secret" envconfig:"WEBHOOK_SECRET"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir" envconfig:"LOG_DIR"`
	BotFile     string `yaml:"bot_file"`
	ErrorsFile  string `yaml:"errors_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// DatabaseConfig selects the ticket journal backend. An empty driver disables it.
type DatabaseConfig struct {
	Driver         string `yaml:"driver" envconfig:"DB_DRIVER"`
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	Path           string `yaml:"path" envconfig:"DB_PATH"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// Enabled reports whether a journal database is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.Driver != ""
}

// OpsConfig configures the operational HTTP listener.
type OpsConfig struct {
	Listen string `yaml:"listen" envconfig:"OPS_LISTEN"`
}

// SupportConfig holds conversation retention settings.
type SupportConfig struct {
	// SessionTTL drops sessions idle for longer than this; 0 keeps them forever.
	SessionTTL    time.Duration `yaml:"session_ttl" envconfig:"SUPPORT_SESSION_TTL"`
	PointerTTL    time.Duration `yaml:"pointer_ttl" envconfig:"SUPPORT_POINTER_TTL"`
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"SUPPORT_SWEEP_INTERVAL"`
}

// Update delivery modes accepted in telegram.run_mode.
const (
	RunModeWebhook  = "webhook"
	RunModeLongpoll = "longpoll"
)

const (
	// DriverPostgres stores the journal in PostgreSQL.
	DriverPostgres = "postgres"
	// DriverSQLite stores the journal in an embedded SQLite file.
	DriverSQLite = "sqlite"
)

const (
	defaultSessionTTL    = 72 * time.Hour
	defaultPointerTTL    = 30 * time.Minute
	defaultSweepInterval = 5 * time.Minute
)

// Config aggregates the bot configuration.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Logging  LoggingConfig  `yaml:"logging"`
	Database DatabaseConfig `yaml:"database"`
	Ops      OpsConfig      `yaml:"ops"`
	Support  SupportConfig  `yaml:"support"`

	// sessionTTLSet records an explicit session_ttl so that 0 survives Normalize.
	sessionTTLSet bool
}

// Load reads the YAML file at path, applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := Parse(data, &cfg); err != nil {
		return nil, err
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}
	if _, ok := os.LookupEnv("SUPPORT_SESSION_TTL"); ok {
		cfg.sessionTTLSet = true
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Parse decodes YAML into cfg without applying environment overrides.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	var probe struct {
		Support map[string]any `yaml:"support"`
	}
	if yaml.Unmarshal(data, &probe) == nil {
		_, cfg.sessionTTLSet = probe.Support["session_ttl"]
	}
	return nil
}

// Normalize validates cfg and fills defaults in place.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil")
	}
	for _, step := range []func(*Config) error{
		normalizeTelegram,
		func(c *Config) error { return normalizeDatabase(&c.Database) },
		normalizeSupport,
	} {
		if err := step(cfg); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	return nil
}

func normalizeTelegram(cfg *Config) error {
	tg := &cfg.Telegram
	switch {
	case tg.Token == "":
		return errors.New("telegram.token is required")
	case tg.StaffChatID == 0:
		return errors.New("telegram.staff_chat_id is required")
	case tg.LongPollTimeoutSeconds < 0:
		return errors.New("telegram.longpoll_timeout_seconds must be >= 0")
	}

	mode := strings.ToLower(strings.TrimSpace(tg.RunMode))
	switch mode {
	case "", "polling", RunModeLongpoll:
		tg.RunMode = RunModeLongpoll
		return nil
	case RunModeWebhook:
		tg.RunMode = RunModeWebhook
	default:
		return fmt.Errorf("telegram.run_mode %q: want webhook or longpoll", tg.RunMode)
	}

	var missing []string
	if strings.TrimSpace(cfg.Webhook.URL) == "" {
		missing = append(missing, "webhook.url")
	}
	if strings.TrimSpace(cfg.Webhook.Listen) == "" {
		missing = append(missing, "webhook.listen")
	}
	if cfg.Webhook.Port <= 0 {
		missing = append(missing, "webhook.port")
	}
	if len(missing) > 0 {
		return fmt.Errorf("webhook mode needs %s", strings.Join(missing, ", "))
	}
	return nil
}

func normalizeSupport(cfg *Config) error {
	s := &cfg.Support
	if s.SessionTTL < 0 || s.PointerTTL < 0 || s.SweepInterval < 0 {
		return errors.New("support durations must be >= 0")
	}
	if s.SessionTTL == 0 && !cfg.sessionTTLSet {
		s.SessionTTL = defaultSessionTTL
	}
	s.PointerTTL = cmp.Or(s.PointerTTL, defaultPointerTTL)
	s.SweepInterval = cmp.Or(s.SweepInterval, defaultSweepInterval)
	return nil
}

func normalizeDatabase(db *DatabaseConfig) error {
	db.Driver = strings.ToLower(strings.TrimSpace(db.Driver))
	switch db.Driver {
	case "":
		return nil
	case "postgresql", "pg":
		db.Driver = DriverPostgres
	case "sqlite3":
		db.Driver = DriverSQLite
	}
	switch db.Driver {
	case DriverPostgres:
		if strings.TrimSpace(db.Host) == "" || strings.TrimSpace(db.Name) == "" {
			return fmt.Errorf("database.host and database.name are required for postgres")
		}
		if db.Port == "" {
			db.Port = "5432"
		}
		if db.SSLMode == "" {
			db.SSLMode = "disable"
		}
	case DriverSQLite:
		if strings.TrimSpace(db.Path) == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	default:
		return fmt.Errorf("invalid database.driver %q; allowed: postgres, sqlite", db.Driver)
	}
	if db.MaxConnections <= 0 {
		db.MaxConnections = 4
	}
	return nil
}
