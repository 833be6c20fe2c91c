// Package postgres owns database connectivity and the idempotent schema
// migrations both stores rely on.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
)

const connectTimeout = 5 * time.Second

// Connect opens and ping-checks the pgx pool backing the document version
// store.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// OpenAuditDB opens the database/sql handle used by the audit trail. The pool
// is kept deliberately small so audit bursts cannot starve the document
// store's connections.
func OpenAuditDB(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// migrations are idempotent and run in order on every startup.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS did_document_versions (
		id UUID PRIMARY KEY,
		did TEXT NOT NULL,
		sequence BIGINT NOT NULL CHECK (sequence >= 1),
		document JSONB NOT NULL,
		active BOOLEAN NOT NULL,
		owner_id UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (did, sequence)
	)`,

	// At most one active version per identity, enforced by the database in
	// addition to the store's CAS discipline.
	`CREATE UNIQUE INDEX IF NOT EXISTS did_document_versions_one_active
		ON did_document_versions (did) WHERE active`,

	`CREATE TABLE IF NOT EXISTS audit_events (
		id UUID PRIMARY KEY,
		category TEXT NOT NULL,
		occurred_at TIMESTAMPTZ NOT NULL,
		principal_id UUID,
		subject TEXT NOT NULL,
		action TEXT NOT NULL,
		sequence BIGINT NOT NULL DEFAULT 0,
		request_id TEXT NOT NULL DEFAULT '',
		client_ip TEXT NOT NULL DEFAULT '',
		device TEXT NOT NULL DEFAULT '',
		published_at TIMESTAMPTZ
	)`,

	`CREATE INDEX IF NOT EXISTS audit_events_unpublished
		ON audit_events (occurred_at) WHERE published_at IS NULL`,

	`CREATE INDEX IF NOT EXISTS audit_events_subject
		ON audit_events (subject, occurred_at)`,
}

// Migrate applies the schema. Safe to run concurrently with an already
// migrated database; every statement is IF NOT EXISTS.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}
