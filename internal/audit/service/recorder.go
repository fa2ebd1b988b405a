package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"origo/internal/audit/models"
	progressionmodels "origo/internal/progression/models"
	reconcilemodels "origo/internal/reconcile/models"
	id "origo/pkg/domain"
	"origo/pkg/platform/middleware/metadata"
	"origo/pkg/requestcontext"
)

const defaultInboxSize = 256

// Recorder turns domain mutations into audit events and hands them to the
// background worker over a buffered channel. Emission never blocks the
// mutating request; a full inbox drops the event with a warning instead.
type Recorder struct {
	inbox  chan models.Event
	logger *slog.Logger
}

func NewRecorder(logger *slog.Logger) *Recorder {
	return &Recorder{
		inbox:  make(chan models.Event, defaultInboxSize),
		logger: logger,
	}
}

// Inbox exposes the event channel for the persisting worker.
func (r *Recorder) Inbox() <-chan models.Event { return r.inbox }

// FieldWritten records an accepted field value write.
func (r *Recorder) FieldWritten(ctx context.Context, fv *reconcilemodels.FieldValue) {
	r.emit(ctx, models.Event{
		EntityID:  fv.EntityID,
		FieldName: fv.FieldName,
		Action:    models.ActionFieldWritten,
		Value:     fv.Value,
		Source:    fv.Source.String(),
		Actor:     fv.UpdatedBy,
	})
}

// ConflictOpened records a detected conflict with the losing candidate.
func (r *Recorder) ConflictOpened(ctx context.Context, c *reconcilemodels.Conflict) {
	r.emit(ctx, models.Event{
		EntityID:  c.EntityID,
		FieldName: c.FieldName,
		Action:    models.ActionConflictOpened,
		Value:     c.Candidate.Value,
		Source:    c.Candidate.Source.String(),
		Actor:     requestcontext.Actor(ctx),
	})
}

// ConflictResolved records the reviewer's decision.
func (r *Recorder) ConflictResolved(ctx context.Context, c *reconcilemodels.Conflict) {
	r.emit(ctx, models.Event{
		EntityID:  c.EntityID,
		FieldName: c.FieldName,
		Action:    models.ActionConflictResolved,
		Value:     string(c.Decision),
		Actor:     c.ResolvedBy,
	})
}

// StageChanged records a workflow stage transition. The workflow rides in
// the field column and the stage reached in the value column.
func (r *Recorder) StageChanged(ctx context.Context, a *progressionmodels.StageAssignment) {
	r.emit(ctx, models.Event{
		EntityID:  a.EntityID,
		FieldName: id.FieldName(a.Workflow),
		Action:    models.ActionStageChanged,
		Value:     a.Stage,
		Actor:     a.AssignedBy,
	})
}

func (r *Recorder) emit(ctx context.Context, e models.Event) {
	e.ID = uuid.New()
	e.OccurredAt = time.Now().UTC()
	e.ClientIP = metadata.GetClientIP(ctx)
	e.UserAgent = metadata.GetUserAgent(ctx)
	e.RequestID = requestcontext.RequestID(ctx)
	if e.Actor == "" {
		e.Actor = requestcontext.Actor(ctx)
	}

	select {
	case r.inbox <- e:
	default:
		r.logger.WarnContext(ctx, "audit inbox full, event dropped",
			"entity_id", e.EntityID,
			"action", e.Action,
		)
	}
}
