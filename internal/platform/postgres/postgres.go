// Package postgres opens the database handle used by the principal store.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"eventgate/internal/platform/config"
)

// New opens a connection pool and verifies connectivity.
// Returns nil if no DSN is configured (principal store falls back to memory).
func New(cfg config.PostgresConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, nil
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return db, nil
}
