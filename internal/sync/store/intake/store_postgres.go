package intake

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"origo/internal/sync/models"
	id "origo/pkg/domain"
	"origo/pkg/platform/sentinel"
)

// PostgresStore mirrors the intake table in PostgreSQL. The timestamp guard
// lives in the upsert predicate, so concurrent appliers cannot interleave a
// stale write between read and write.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Find(ctx context.Context, entityID id.EntityID, field id.FieldName) (*models.IntakeValue, error) {
	var (
		v   models.IntakeValue
		eid uuid.UUID
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT entity_id, field_name, value, origin, updated_at
		FROM intake_values WHERE entity_id = $1 AND field_name = $2
	`, uuid.UUID(entityID), string(field)).Scan(&eid, &v.FieldName, &v.Value, &v.Origin, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find intake value: %w", err)
	}
	v.EntityID = id.EntityID(eid)
	return &v, nil
}

func (s *PostgresStore) ApplyIfNewer(ctx context.Context, entityID id.EntityID, field id.FieldName, value string, ts time.Time, origin string) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO intake_values (entity_id, field_name, value, origin, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (entity_id, field_name) DO UPDATE
		SET value = EXCLUDED.value, origin = EXCLUDED.origin, updated_at = EXCLUDED.updated_at
		WHERE intake_values.updated_at < EXCLUDED.updated_at
	`, uuid.UUID(entityID), string(field), value, origin, ts)
	if err != nil {
		return fmt.Errorf("apply intake value: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrStale
	}
	return nil
}
