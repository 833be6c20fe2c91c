package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "github.com/0xshikhar/sapphire-did-sub000/pkg/domain"
	audit "github.com/0xshikhar/sapphire-did-sub000/pkg/platform/audit"
)

// Store implements audit.Store over the audit_events table. The table doubles
// as the transactional outbox: rows start with published_at NULL and the
// outbox worker stamps them once the event has been produced to Kafka, so the
// same rows serve queries and delivery tracking.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append writes one audit event with a fresh row id, unpublished.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	query := `
		INSERT INTO audit_events (
			id, category, occurred_at, principal_id, subject, action,
			sequence, request_id, client_ip, device
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	var principal *uuid.UUID
	if !event.Principal.IsZero() {
		p := uuid.UUID(event.Principal)
		principal = &p
	}

	_, err := s.db.ExecContext(ctx, query,
		uuid.New(),
		string(event.Category),
		event.Timestamp,
		principal,
		event.Subject,
		event.Action,
		event.Sequence,
		event.RequestID,
		event.ClientIP,
		event.Device,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByPrincipal returns events recorded for one principal, newest first.
func (s *Store) ListByPrincipal(ctx context.Context, principal id.PrincipalID) ([]audit.Event, error) {
	query := `
		SELECT category, occurred_at, principal_id, subject, action,
		       sequence, request_id, client_ip, device
		FROM audit_events
		WHERE principal_id = $1
		ORDER BY occurred_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(principal))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListBySubject returns events recorded against one DID, newest first.
func (s *Store) ListBySubject(ctx context.Context, subject string) ([]audit.Event, error) {
	query := `
		SELECT category, occurred_at, principal_id, subject, action,
		       sequence, request_id, client_ip, device
		FROM audit_events
		WHERE subject = $1
		ORDER BY occurred_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, subject)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Unpublished returns up to limit rows not yet produced to Kafka, oldest
// first. Delivery is at-least-once: rows claimed here are only stamped by
// MarkPublished after the produce succeeds, so a crash between the two
// re-delivers on the next pass.
func (s *Store) Unpublished(ctx context.Context, limit int) ([]audit.OutboxEntry, error) {
	query := `
		SELECT id, category, occurred_at, principal_id, subject, action,
		       sequence, request_id, client_ip, device
		FROM audit_events
		WHERE published_at IS NULL
		ORDER BY occurred_at ASC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query unpublished audit events: %w", err)
	}
	defer rows.Close()

	var entries []audit.OutboxEntry
	for rows.Next() {
		var (
			entry             audit.OutboxEntry
			category          string
			principalNullable *uuid.UUID
		)
		err := rows.Scan(
			&entry.ID,
			&category,
			&entry.Event.Timestamp,
			&principalNullable,
			&entry.Event.Subject,
			&entry.Event.Action,
			&entry.Event.Sequence,
			&entry.Event.RequestID,
			&entry.Event.ClientIP,
			&entry.Event.Device,
		)
		if err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entry.Event.Category = audit.EventCategory(category)
		if principalNullable != nil {
			entry.Event.Principal = id.PrincipalID(*principalNullable)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox entries: %w", err)
	}
	return entries, nil
}

// MarkPublished stamps the given rows as delivered.
func (s *Store) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE audit_events SET published_at = $1 WHERE id = ANY($2)`
	if _, err := s.db.ExecContext(ctx, query, time.Now().UTC(), pq.Array(ids)); err != nil {
		return fmt.Errorf("mark audit events published: %w", err)
	}
	return nil
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event

	for rows.Next() {
		var (
			category          string
			event             audit.Event
			principalNullable *uuid.UUID
		)

		err := rows.Scan(
			&category,
			&event.Timestamp,
			&principalNullable,
			&event.Subject,
			&event.Action,
			&event.Sequence,
			&event.RequestID,
			&event.ClientIP,
			&event.Device,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}

		event.Category = audit.EventCategory(category)
		if principalNullable != nil {
			event.Principal = id.PrincipalID(*principalNullable)
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}

	return events, nil
}
