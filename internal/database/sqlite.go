package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	_ "modernc.org/sqlite"
)

// Config holds database configuration
type Config struct {
	Path string
}

// DSN returns the modernc sqlite data source name with the pragmas every
// pooled connection needs.
func (c Config) DSN() string {
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	return "file:" + c.Path + "?" + q.Encode()
}

// registerSQLFunctions runs the registration once and keeps its result.
var registerSQLFunctions = sync.OnceValue(registerFunctions)

// Open opens the database and registers the SQL helper functions.
func Open(cfg Config) (*sql.DB, error) {
	if regErr := registerSQLFunctions(); regErr != nil {
		return nil, fmt.Errorf("failed to register sql functions: %w", regErr)
	}

	db, err := sql.Open("sqlite", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Default().Info("database opened", slog.String("component", "database"), slog.String("path", cfg.Path))
	return db, nil
}
