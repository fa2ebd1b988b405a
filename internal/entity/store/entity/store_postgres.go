package entity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"origo/internal/entity/models"
	id "origo/pkg/domain"
	"origo/pkg/platform/sentinel"
	txcontext "origo/pkg/platform/tx"
)

// PostgresStore persists entities in PostgreSQL.
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

func (s *PostgresStore) Create(ctx context.Context, e *models.Entity) error {
	query := `
		INSERT INTO entities (id, case_id, kind, display_name, created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	res, err := s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(e.ID), uuid.UUID(e.CaseID), string(e.Kind), e.DisplayName,
		e.CreatedAt, e.UpdatedAt, e.DeletedAt)
	if err != nil {
		return fmt.Errorf("create entity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, entityID id.EntityID) (*models.Entity, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT id, case_id, kind, display_name, created_at, updated_at, deleted_at
		FROM entities WHERE id = $1
	`, uuid.UUID(entityID))
	return scanEntity(row)
}

func (s *PostgresStore) ListByCase(ctx context.Context, caseID id.CaseID) ([]*models.Entity, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT id, case_id, kind, display_name, created_at, updated_at, deleted_at
		FROM entities WHERE case_id = $1
		ORDER BY created_at
	`, uuid.UUID(caseID))
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	var out []*models.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Execute validates and mutates an entity under SELECT ... FOR UPDATE so the
// transition is atomic against concurrent writers.
func (s *PostgresStore) Execute(ctx context.Context, entityID id.EntityID, validate func(*models.Entity) error, mutate func(*models.Entity)) (*models.Entity, error) {
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = dbtx.Rollback() }()

	row := dbtx.QueryRowContext(ctx, `
		SELECT id, case_id, kind, display_name, created_at, updated_at, deleted_at
		FROM entities WHERE id = $1
		FOR UPDATE
	`, uuid.UUID(entityID))
	e, err := scanEntity(row)
	if err != nil {
		return nil, err
	}
	if err := validate(e); err != nil {
		return nil, err
	}
	mutate(e)

	_, err = dbtx.ExecContext(ctx, `
		UPDATE entities SET display_name = $2, updated_at = $3, deleted_at = $4
		WHERE id = $1
	`, uuid.UUID(e.ID), e.DisplayName, e.UpdatedAt, e.DeletedAt)
	if err != nil {
		return nil, fmt.Errorf("update entity: %w", err)
	}
	if err := dbtx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return e, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (*models.Entity, error) {
	var (
		e         models.Entity
		entityID  uuid.UUID
		caseID    uuid.UUID
		kind      string
		deletedAt sql.NullTime
	)
	err := row.Scan(&entityID, &caseID, &kind, &e.DisplayName, &e.CreatedAt, &e.UpdatedAt, &deletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan entity: %w", err)
	}
	e.ID = id.EntityID(entityID)
	e.CaseID = id.CaseID(caseID)
	e.Kind = models.Kind(kind)
	if deletedAt.Valid {
		t := deletedAt.Time.UTC()
		e.DeletedAt = &t
	}
	return &e, nil
}
