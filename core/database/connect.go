package database

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	coreconfig "github.com/m3rciful/supportbot/core/config"
	"github.com/m3rciful/supportbot/core/logger"
)

const (
	connectTimeout = 5 * time.Second
	readyInterval  = 2 * time.Second
)

// Connect opens the journal database, sizes the pool and pings it once.
func Connect(cfg Config) (*sqlx.DB, error) {
	if cfg.Driver == coreconfig.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	start := time.Now()
	db, err := sqlx.ConnectContext(ctx, driverName(cfg), connDSN(cfg))
	attrs := append(describe(cfg), slog.Duration("duration", logger.RoundMS(time.Since(start))))
	if err != nil {
		logger.DB.LogAttrs(ctx, slog.LevelError, "db connect failed", append(attrs, slog.String("err", err.Error()))...)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	size := poolSize(cfg)
	db.SetMaxOpenConns(size)
	db.SetMaxIdleConns(size)
	db.SetConnMaxLifetime(30 * time.Minute)
	logger.DB.LogAttrs(ctx, slog.LevelInfo, "db connected", append(attrs, slog.Int("pool_open", size))...)
	return db, nil
}

// poolSize pins SQLite to a single connection so writers never contend for
// the file lock.
func poolSize(cfg Config) int {
	if cfg.Driver == coreconfig.DriverSQLite {
		return 1
	}
	return cfg.MaxConnections
}

func describe(cfg Config) []slog.Attr {
	attrs := []slog.Attr{slog.String("event", "db.connect"), slog.String("driver", cfg.Driver)}
	if cfg.Driver == coreconfig.DriverSQLite {
		return append(attrs, slog.String("db", cfg.Path))
	}
	return append(attrs,
		slog.String("host", cfg.Host),
		slog.String("port", cfg.Port),
		slog.String("db", cfg.Name),
	)
}

// WaitReady pings db every couple of seconds until it answers, ctx is done
// or timeout elapses.
func WaitReady(ctx context.Context, db *sqlx.DB, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(readyInterval)
	defer ticker.Stop()
	for {
		err := db.PingContext(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout reached waiting for database: %w", err)
		case <-ticker.C:
		}
	}
}
