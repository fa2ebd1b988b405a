package assignment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"origo/internal/progression/models"
	id "origo/pkg/domain"
	"origo/pkg/platform/sentinel"
	txcontext "origo/pkg/platform/tx"
)

// PostgresStore persists stage assignments. The partial unique index
// stage_assignments_current_idx enforces one current row per
// (entity, workflow).
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

func (s *PostgresStore) FindCurrent(ctx context.Context, entityID id.EntityID, workflow string) (*models.StageAssignment, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT entity_id, workflow, stage, ordinal, assigned_at, assigned_by, reverted, revert_reason
		FROM stage_assignments
		WHERE entity_id = $1 AND workflow = $2 AND current
	`, uuid.UUID(entityID), workflow)
	return scanAssignment(row)
}

// Transition serializes per (entity, workflow) on the current row lock,
// then retires it and inserts the next assignment as current.
func (s *PostgresStore) Transition(ctx context.Context, entityID id.EntityID, workflow string, decide func(current *models.StageAssignment) (*models.StageAssignment, error)) (*models.StageAssignment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	row := tx.QueryRowContext(ctx, `
		SELECT entity_id, workflow, stage, ordinal, assigned_at, assigned_by, reverted, revert_reason
		FROM stage_assignments
		WHERE entity_id = $1 AND workflow = $2 AND current
		FOR UPDATE
	`, uuid.UUID(entityID), workflow)
	current, err := scanAssignment(row)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}

	next, err := decide(current)
	if err != nil {
		return nil, err
	}

	if current != nil {
		if _, err := tx.ExecContext(ctx, `
			UPDATE stage_assignments SET current = FALSE
			WHERE entity_id = $1 AND workflow = $2 AND current
		`, uuid.UUID(entityID), workflow); err != nil {
			return nil, fmt.Errorf("retire current assignment: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stage_assignments (entity_id, workflow, stage, ordinal, assigned_at, assigned_by, reverted, revert_reason, current)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
	`, uuid.UUID(next.EntityID), next.Workflow, next.Stage, next.Ordinal,
		next.AssignedAt, next.AssignedBy, next.Reverted, nullString(next.RevertReason))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, sentinel.ErrConcurrentModification
		}
		return nil, fmt.Errorf("insert assignment: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return next, nil
}

func (s *PostgresStore) ListHistory(ctx context.Context, entityID id.EntityID, workflow string) ([]*models.StageAssignment, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT entity_id, workflow, stage, ordinal, assigned_at, assigned_by, reverted, revert_reason
		FROM stage_assignments
		WHERE entity_id = $1 AND workflow = $2
		ORDER BY assigned_at
	`, uuid.UUID(entityID), workflow)
	if err != nil {
		return nil, fmt.Errorf("list assignment history: %w", err)
	}
	defer rows.Close()

	var out []*models.StageAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountByStage(ctx context.Context, workflow string, entityIDs []id.EntityID) (map[string]int, error) {
	query := `
		SELECT stage, COUNT(*)
		FROM stage_assignments
		WHERE workflow = $1 AND current
	`
	args := []any{workflow}
	if len(entityIDs) > 0 {
		raw := make([]uuid.UUID, len(entityIDs))
		for i, e := range entityIDs {
			raw[i] = uuid.UUID(e)
		}
		query += ` AND entity_id = ANY($2)`
		args = append(args, pq.Array(raw))
	}
	query += ` GROUP BY stage`

	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count by stage: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var stage string
		var n int
		if err := rows.Scan(&stage, &n); err != nil {
			return nil, fmt.Errorf("scan stage count: %w", err)
		}
		counts[stage] = n
	}
	return counts, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanAssignment(row scannable) (*models.StageAssignment, error) {
	var (
		a        models.StageAssignment
		entityID uuid.UUID
		reason   sql.NullString
	)
	err := row.Scan(&entityID, &a.Workflow, &a.Stage, &a.Ordinal,
		&a.AssignedAt, &a.AssignedBy, &a.Reverted, &reason)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan assignment: %w", err)
	}
	a.EntityID = id.EntityID(entityID)
	a.RevertReason = reason.String
	return &a, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
