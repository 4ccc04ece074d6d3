package database

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/m3rciful/supportbot/core/logger"
	"github.com/m3rciful/supportbot/migrations"
)

// RunMigrations applies all up migrations embedded for the configured driver.
func RunMigrations(cfg Config) error {
	return runMigrations(cfg, migrations.FS)
}

func runMigrations(cfg Config, fsys fs.FS) error {
	plan := loadPlan(fsys, cfg.Driver)
	logger.MIG.Debug("migrations resolved",
		slog.String("event", "resolve"),
		slog.String("driver", cfg.Driver),
		slog.Int("files_total", len(plan)),
		slog.String("files", logger.Preview(plan.names(), 6)),
	)

	src, err := iofs.New(fsys, cfg.Driver)
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(cfg))
	if err != nil {
		logger.MIG.Error("init failed", slog.String("event", "db.migrate"), slog.String("err", err.Error()))
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.MIG.Warn("close failed",
				slog.String("event", "db.migrate"),
				slog.String("err", errors.Join(srcErr, dbErr).Error()),
			)
		}
	}()

	from, _, _ := m.Version()
	start := time.Now()
	upErr := m.Up()
	took := logger.RoundMS(time.Since(start))

	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		logger.MIG.Error("migration failed",
			slog.String("event", "apply"),
			slog.String("err", upErr.Error()),
			slog.Duration("duration", took),
		)
		return fmt.Errorf("migration execution failed: %w", upErr)
	}
	to, _, _ := m.Version()
	logger.MIG.Info("migrations summary",
		slog.String("event", "summary"),
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Int("files", len(plan.between(uint64(from), uint64(to)))),
		slog.Duration("duration", took),
	)
	return nil
}

type migrationFile struct {
	name    string
	version uint64
}

// migrationPlan is the ordered list of up scripts for one driver.
type migrationPlan []migrationFile

func loadPlan(fsys fs.FS, dir string) migrationPlan {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil
	}
	var plan migrationPlan
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		prefix, _, _ := strings.Cut(name, "_")
		v, _ := strconv.ParseUint(prefix, 10, 64)
		plan = append(plan, migrationFile{name: name, version: v})
	}
	slices.SortFunc(plan, func(a, b migrationFile) int { return strings.Compare(a.name, b.name) })
	return plan
}

func (p migrationPlan) names() []string {
	out := make([]string, len(p))
	for i, f := range p {
		out[i] = f.name
	}
	return out
}

// between lists the scripts that move the schema from version from to to.
func (p migrationPlan) between(from, to uint64) []string {
	var out []string
	for _, f := range p {
		if f.version > from && f.version <= to {
			out = append(out, f.name)
		}
	}
	return out
}
