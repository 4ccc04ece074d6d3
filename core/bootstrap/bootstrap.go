package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/supportbot/core/config"
	coredatabase "github.com/m3rciful/supportbot/core/database"
	"github.com/m3rciful/supportbot/core/logger"
)

// Options control the bootstrap pipeline. Hooks default to the core implementations.
type Options struct {
	Config *coreconfig.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Ready      func(ctx context.Context, db *sqlx.DB, timeout time.Duration) error
	Migrate    func(coredatabase.Config) error

	// ReadyTimeout bounds the wait for the journal database; 0 means 10s.
	ReadyTimeout time.Duration
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
// DB is nil when the ticket journal is disabled.
type Result struct {
	DB *sqlx.DB
}

// Close releases the journal connection pool if one was opened.
func (r *Result) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// Run initializes the logger and, when a journal driver is configured,
// opens the database and brings its schema up to date.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: nil config provided")
	}
	opts.applyDefaults()

	if err := opts.LoggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	dbCfg := opts.Config.Database
	if !dbCfg.Enabled() {
		logger.DB.Info("journal disabled",
			slog.String("event", "db.skip"),
			slog.String("cause", "no_driver"),
		)
		return &Result{}, nil
	}
	db, err := openJournal(ctx, opts, dbCfg)
	if err != nil {
		return nil, err
	}
	return &Result{DB: db}, nil
}

func (o *Options) applyDefaults() {
	if o.LoggerInit == nil {
		o.LoggerInit = logger.InitLogger
	}
	if o.Connect == nil {
		o.Connect = coredatabase.Connect
	}
	if o.Ready == nil {
		o.Ready = coredatabase.WaitReady
	}
	if o.Migrate == nil {
		o.Migrate = coredatabase.RunMigrations
	}
	if o.ReadyTimeout <= 0 {
		o.ReadyTimeout = 10 * time.Second
	}
}

// openJournal connects, waits for the server and migrates. The pool is closed
// again on any failure after connect.
func openJournal(ctx context.Context, opts Options, cfg coredatabase.Config) (*sqlx.DB, error) {
	conn, err := opts.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}
	if err := opts.Ready(ctx, conn, opts.ReadyTimeout); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("bootstrap: database not ready: %w", err)
	}
	if err := opts.Migrate(cfg); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}
	return conn, nil
}
