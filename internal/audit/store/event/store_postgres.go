package event

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"origo/internal/audit/models"
	id "origo/pkg/domain"
)

// PostgresStore persists audit events in the audit_events table. Rows are
// append-only; no update path exists.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, e models.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, entity_id, field_name, action, value, source, actor, client_ip, user_agent, request_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		e.ID,
		uuid.UUID(e.EntityID),
		nullString(e.FieldName.String()),
		string(e.Action),
		nullString(e.Value),
		nullString(e.Source),
		nullString(e.Actor),
		nullString(e.ClientIP),
		nullString(e.UserAgent),
		nullString(e.RequestID),
		e.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByEntity(ctx context.Context, entityID id.EntityID, field id.FieldName) ([]models.Event, error) {
	query := `
		SELECT id, entity_id, field_name, action, value, source, actor, client_ip, user_agent, request_id, occurred_at
		FROM audit_events
		WHERE entity_id = $1
	`
	args := []any{uuid.UUID(entityID)}
	if field != "" {
		query += ` AND field_name = $2`
		args = append(args, field.String())
	}
	query += ` ORDER BY occurred_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []models.Event
	for rows.Next() {
		var (
			e         models.Event
			entity    uuid.UUID
			fieldName sql.NullString
			value     sql.NullString
			source    sql.NullString
			actor     sql.NullString
			clientIP  sql.NullString
			userAgent sql.NullString
			requestID sql.NullString
		)
		if err := rows.Scan(&e.ID, &entity, &fieldName, &e.Action, &value, &source, &actor, &clientIP, &userAgent, &requestID, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.EntityID = id.EntityID(entity)
		e.FieldName = id.FieldName(fieldName.String)
		e.Value = value.String
		e.Source = source.String
		e.Actor = actor.String
		e.ClientIP = clientIP.String
		e.UserAgent = userAgent.String
		e.RequestID = requestID.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
