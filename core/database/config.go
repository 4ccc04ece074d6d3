package database

import (
	"fmt"
	"net/url"

	coreconfig "github.com/m3rciful/supportbot/core/config"
)

// Config holds journal database connection settings.
type Config = coreconfig.DatabaseConfig

// driverName maps the configured driver onto the registered database/sql name.
func driverName(cfg Config) string {
	if cfg.Driver == coreconfig.DriverSQLite {
		return "sqlite"
	}
	return "postgres"
}

// connDSN builds the database/sql data source name.
func connDSN(cfg Config) string {
	if cfg.Driver == coreconfig.DriverSQLite {
		return cfg.Path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	}
	return fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name, cfg.SSLMode,
	)
}

// migrateURL builds the golang-migrate database URL.
func migrateURL(cfg Config) string {
	if cfg.Driver == coreconfig.DriverSQLite {
		return "sqlite://" + cfg.Path
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host + ":" + cfg.Port,
		Path:     "/" + cfg.Name,
		RawQuery: "sslmode=" + url.QueryEscape(cfg.SSLMode),
	}
	return u.String()
}
