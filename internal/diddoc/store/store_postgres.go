package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/0xshikhar/sapphire-did-sub000/internal/diddoc/models"
	id "github.com/0xshikhar/sapphire-did-sub000/pkg/domain"
	"github.com/0xshikhar/sapphire-did-sub000/pkg/platform/sentinel"
	"github.com/0xshikhar/sapphire-did-sub000/pkg/requestcontext"
)

var tracer = otel.Tracer("github.com/0xshikhar/sapphire-did-sub000/internal/diddoc/store")

// Postgres persists document chains in the did_document_versions table.
// The table carries UNIQUE (did, sequence) plus a partial unique index on
// (did) WHERE active, so both chain invariants are enforced by the database
// as well as by the CAS discipline here.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) InsertInitial(ctx context.Context, did id.DID, doc models.Document, owner id.PrincipalID) (*models.DocumentVersion, error) {
	version, err := models.NewInitialVersion(did, doc, owner, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	docRaw, err := json.Marshal(version.Document)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}

	query := `
		INSERT INTO did_document_versions (id, did, sequence, document, active, owner_id, created_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, $6)
	`
	_, err = s.pool.Exec(ctx, query,
		uuid.UUID(version.ID),
		version.DID.String(),
		version.Sequence,
		docRaw,
		uuid.UUID(version.Owner),
		version.CreatedAt,
	)
	if err != nil {
		// Sequence 1 exists whenever any version does, so the (did, sequence)
		// constraint rejects every duplicate creation attempt.
		if isUniqueViolation(err) {
			return nil, sentinel.ErrAlreadyUsed
		}
		return nil, fmt.Errorf("insert initial version: %w", err)
	}
	return version, nil
}

func (s *Postgres) GetActive(ctx context.Context, did id.DID) (*models.DocumentVersion, error) {
	query := `
		SELECT id, did, sequence, document, active, owner_id, created_at
		FROM did_document_versions
		WHERE did = $1 AND active
	`
	version, err := scanVersion(s.pool.QueryRow(ctx, query, did.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get active version: %w", err)
	}
	return version, nil
}

func (s *Postgres) GetHistory(ctx context.Context, did id.DID) ([]*models.DocumentVersion, error) {
	query := `
		SELECT id, did, sequence, document, active, owner_id, created_at
		FROM did_document_versions
		WHERE did = $1
		ORDER BY sequence ASC
	`
	rows, err := s.pool.Query(ctx, query, did.String())
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	defer rows.Close()

	history := make([]*models.DocumentVersion, 0)
	for rows.Next() {
		version, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		history = append(history, version)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return history, nil
}

// CommitNextVersion runs the compare-and-swap in one transaction: the
// conditional deactivation and the successor insert either both land or
// neither does. A stale expected id matches zero rows on the UPDATE, nothing
// is written, and ErrConflict is returned. Under concurrent commits against
// the same active row the row lock serializes them; the loser re-evaluates
// the active predicate against the committed flip and misses.
func (s *Postgres) CommitNextVersion(ctx context.Context, did id.DID, expectedActiveID id.VersionID, doc models.Document, owner id.PrincipalID) (*models.DocumentVersion, error) {
	ctx, span := tracer.Start(ctx, "store.CommitNextVersion", trace.WithAttributes(
		attribute.String("did", did.String()),
	))
	defer span.End()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin commit: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	flip := `
		UPDATE did_document_versions
		SET active = FALSE
		WHERE id = $1 AND did = $2 AND active
		RETURNING sequence, owner_id
	`
	var (
		prevSequence int64
		chainOwner   uuid.UUID
	)
	err = tx.QueryRow(ctx, flip, uuid.UUID(expectedActiveID), did.String()).Scan(&prevSequence, &chainOwner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrConflict
		}
		return nil, fmt.Errorf("deactivate expected version: %w", err)
	}
	// The owner argument must restate the chain owner; a deviation means the
	// caller tried to change ownership mid-chain.
	if id.PrincipalID(chainOwner) != owner {
		return nil, sentinel.ErrInvalidState
	}

	next := &models.DocumentVersion{
		ID:        id.NewVersionID(),
		DID:       did,
		Sequence:  prevSequence + 1,
		Document:  doc.Clone(),
		Active:    true,
		Owner:     id.PrincipalID(chainOwner),
		CreatedAt: requestcontext.Now(ctx),
	}
	docRaw, err := json.Marshal(next.Document)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}

	insert := `
		INSERT INTO did_document_versions (id, did, sequence, document, active, owner_id, created_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, $6)
	`
	_, err = tx.Exec(ctx, insert,
		uuid.UUID(next.ID),
		next.DID.String(),
		next.Sequence,
		docRaw,
		uuid.UUID(next.Owner),
		next.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, sentinel.ErrConflict
		}
		return nil, fmt.Errorf("insert next version: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit next version: %w", err)
	}

	span.SetAttributes(attribute.Int64("sequence", next.Sequence))
	return next, nil
}

// DeactivateAll is the terminal CAS: it flips the expected active version to
// inactive and inserts nothing. A stale expected id returns ErrConflict.
func (s *Postgres) DeactivateAll(ctx context.Context, did id.DID, expectedActiveID id.VersionID) error {
	ctx, span := tracer.Start(ctx, "store.DeactivateAll", trace.WithAttributes(
		attribute.String("did", did.String()),
	))
	defer span.End()

	query := `
		UPDATE did_document_versions
		SET active = FALSE
		WHERE id = $1 AND did = $2 AND active
	`
	tag, err := s.pool.Exec(ctx, query, uuid.UUID(expectedActiveID), did.String())
	if err != nil {
		return fmt.Errorf("deactivate identity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func scanVersion(row pgx.Row) (*models.DocumentVersion, error) {
	var (
		version   models.DocumentVersion
		versionID uuid.UUID
		did       string
		docRaw    []byte
		ownerID   uuid.UUID
	)
	err := row.Scan(&versionID, &did, &version.Sequence, &docRaw, &version.Active, &ownerID, &version.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(docRaw, &version.Document); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	version.ID = id.VersionID(versionID)
	version.DID = id.DID(did)
	version.Owner = id.PrincipalID(ownerID)
	return &version, nil
}

// isUniqueViolation reports whether err is a unique constraint violation
// (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
