package fieldvalue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"origo/internal/reconcile/models"
	id "origo/pkg/domain"
	"origo/pkg/platform/sentinel"
)

// uniqueViolation is the Postgres error code raised when two writers race
// the partial unique index on current rows.
const uniqueViolation = "23505"

// PostgresStore persists field value history in PostgreSQL. Current-row
// replacement is an optimistic compare-and-swap on the revision the caller
// read, so losers surface ErrConcurrentModification instead of clobbering.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindCurrent(ctx context.Context, entityID id.EntityID, field id.FieldName) (*models.FieldValue, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT entity_id, field_name, value, source, confidence, revision, updated_at, updated_by
		FROM field_values
		WHERE entity_id = $1 AND field_name = $2 AND current
	`, uuid.UUID(entityID), field.String())
	return scanFieldValue(row)
}

func (s *PostgresStore) Append(ctx context.Context, fv *models.FieldValue, expectedRevision int64) error {
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = dbtx.Rollback() }()

	if expectedRevision > 0 {
		res, err := dbtx.ExecContext(ctx, `
			UPDATE field_values SET current = FALSE
			WHERE entity_id = $1 AND field_name = $2 AND current AND revision = $3
		`, uuid.UUID(fv.EntityID), fv.FieldName.String(), expectedRevision)
		if err != nil {
			return fmt.Errorf("retire current value: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return sentinel.ErrConcurrentModification
		}
	}

	_, err = dbtx.ExecContext(ctx, `
		INSERT INTO field_values (entity_id, field_name, value, source, confidence, revision, updated_at, updated_by, current)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
	`, uuid.UUID(fv.EntityID), fv.FieldName.String(), fv.Value, fv.Source.String(),
		fv.Confidence, expectedRevision+1, fv.UpdatedAt, fv.UpdatedBy)
	if err != nil {
		// Two first-writers can race past the UPDATE branch; the partial
		// unique index on current rows decides the winner.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return sentinel.ErrConcurrentModification
		}
		return fmt.Errorf("append field value: %w", err)
	}

	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	fv.Revision = expectedRevision + 1
	return nil
}

func (s *PostgresStore) Touch(ctx context.Context, entityID id.EntityID, field id.FieldName, now time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE field_values SET updated_at = $3
		WHERE entity_id = $1 AND field_name = $2 AND current
	`, uuid.UUID(entityID), field.String(), now)
	if err != nil {
		return fmt.Errorf("touch field value: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListHistory(ctx context.Context, entityID id.EntityID, field id.FieldName) ([]*models.FieldValue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entity_id, field_name, value, source, confidence, revision, updated_at, updated_by
		FROM field_values
		WHERE entity_id = $1 AND field_name = $2
		ORDER BY revision
	`, uuid.UUID(entityID), field.String())
	if err != nil {
		return nil, fmt.Errorf("list field history: %w", err)
	}
	defer rows.Close()

	var out []*models.FieldValue
	for rows.Next() {
		fv, err := scanFieldValue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, fv)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFieldValue(row rowScanner) (*models.FieldValue, error) {
	var (
		fv         models.FieldValue
		entityID   uuid.UUID
		fieldName  string
		source     string
		confidence sql.NullFloat64
	)
	err := row.Scan(&entityID, &fieldName, &fv.Value, &source, &confidence,
		&fv.Revision, &fv.UpdatedAt, &fv.UpdatedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan field value: %w", err)
	}
	fv.EntityID = id.EntityID(entityID)
	fv.FieldName = id.FieldName(fieldName)
	fv.Source = id.ValueSource(source)
	if confidence.Valid {
		c := confidence.Float64
		fv.Confidence = &c
	}
	return &fv, nil
}
