package conflict

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"origo/internal/reconcile/models"
	id "origo/pkg/domain"
	"origo/pkg/platform/sentinel"
	txcontext "origo/pkg/platform/tx"
)

const conflictColumns = `
	id, entity_id, field_name, current_value, current_source,
	candidate_value, candidate_source, candidate_confidence, candidate_document_id,
	state, created_at, updated_at, resolved_at, resolved_by, decision, notes`

// PostgresStore persists conflicts in PostgreSQL. The partial unique index
// conflicts_open_idx backs the one-open-conflict-per-field invariant.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) q(ctx context.Context) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, c *models.Conflict) error {
	query := `
		INSERT INTO conflicts (` + conflictColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	var docID any
	if !c.Candidate.DocumentID.IsNil() {
		docID = uuid.UUID(c.Candidate.DocumentID)
	}
	_, err := s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(c.ID), uuid.UUID(c.EntityID), string(c.FieldName),
		c.CurrentValue, string(c.CurrentSource),
		c.Candidate.Value, string(c.Candidate.Source), c.Candidate.Confidence, docID,
		string(c.State), c.CreatedAt, c.UpdatedAt,
		c.ResolvedAt, nullString(c.ResolvedBy), nullString(string(c.Decision)), nullString(c.Notes))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create conflict: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, conflictID id.ConflictID) (*models.Conflict, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+conflictColumns+` FROM conflicts WHERE id = $1`,
		uuid.UUID(conflictID))
	return scanConflict(row)
}

func (s *PostgresStore) FindOpenByField(ctx context.Context, entityID id.EntityID, field id.FieldName) (*models.Conflict, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+conflictColumns+` FROM conflicts
		 WHERE entity_id = $1 AND field_name = $2 AND state = 'open'`,
		uuid.UUID(entityID), string(field))
	return scanConflict(row)
}

func (s *PostgresStore) ListOpen(ctx context.Context, entityIDs []id.EntityID) ([]*models.Conflict, error) {
	query := `SELECT ` + conflictColumns + ` FROM conflicts WHERE state = 'open'`
	args := []any{}
	if len(entityIDs) > 0 {
		raw := make([]uuid.UUID, len(entityIDs))
		for i, e := range entityIDs {
			raw[i] = uuid.UUID(e)
		}
		query += ` AND entity_id = ANY($1)`
		args = append(args, pq.Array(raw))
	}
	query += ` ORDER BY created_at`

	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list open conflicts: %w", err)
	}
	defer rows.Close()

	var out []*models.Conflict
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) HasOpenConflicts(ctx context.Context, entityID id.EntityID) (bool, error) {
	var exists bool
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM conflicts WHERE entity_id = $1 AND state = 'open')`,
		uuid.UUID(entityID)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check open conflicts: %w", err)
	}
	return exists, nil
}

// Execute locks the conflict row, runs validate, applies mutate, and writes
// the updated row back in one transaction.
func (s *PostgresStore) Execute(ctx context.Context, conflictID id.ConflictID, validate func(*models.Conflict) error, mutate func(*models.Conflict)) (*models.Conflict, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	row := tx.QueryRowContext(ctx,
		`SELECT `+conflictColumns+` FROM conflicts WHERE id = $1 FOR UPDATE`,
		uuid.UUID(conflictID))
	c, err := scanConflict(row)
	if err != nil {
		return nil, err
	}
	if err := validate(c); err != nil {
		return nil, err
	}
	mutate(c)

	_, err = tx.ExecContext(ctx, `
		UPDATE conflicts
		SET candidate_value = $2, candidate_source = $3, candidate_confidence = $4,
		    candidate_document_id = $5, state = $6, updated_at = $7,
		    resolved_at = $8, resolved_by = $9, decision = $10, notes = $11
		WHERE id = $1
	`,
		uuid.UUID(c.ID),
		c.Candidate.Value, string(c.Candidate.Source), c.Candidate.Confidence,
		nullUUID(uuid.UUID(c.Candidate.DocumentID)), string(c.State), c.UpdatedAt,
		c.ResolvedAt, nullString(c.ResolvedBy), nullString(string(c.Decision)), nullString(c.Notes))
	if err != nil {
		return nil, fmt.Errorf("update conflict: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return c, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanConflict(row scannable) (*models.Conflict, error) {
	var (
		c          models.Conflict
		conflictID uuid.UUID
		entityID   uuid.UUID
		docID      uuid.NullUUID
		resolvedBy sql.NullString
		decision   sql.NullString
		notes      sql.NullString
	)
	err := row.Scan(
		&conflictID, &entityID, &c.FieldName, &c.CurrentValue, &c.CurrentSource,
		&c.Candidate.Value, &c.Candidate.Source, &c.Candidate.Confidence, &docID,
		&c.State, &c.CreatedAt, &c.UpdatedAt, &c.ResolvedAt, &resolvedBy, &decision, &notes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan conflict: %w", err)
	}
	c.ID = id.ConflictID(conflictID)
	c.EntityID = id.EntityID(entityID)
	if docID.Valid {
		c.Candidate.DocumentID = id.DocumentID(docID.UUID)
	}
	c.ResolvedBy = resolvedBy.String
	c.Decision = models.Decision(decision.String)
	c.Notes = notes.String
	return &c, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullUUID(u uuid.UUID) any {
	if u == uuid.Nil {
		return nil
	}
	return u
}
