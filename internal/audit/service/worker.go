package service

import (
	"context"
	"log/slog"

	"origo/internal/audit/models"
)

// Worker consumes audit events from the recorder's inbox and persists
// them. Append failures are logged and skipped so one bad row cannot stall
// the trail behind it.
type Worker struct {
	store  EventStore
	inbox  <-chan models.Event
	logger *slog.Logger
}

func NewWorker(store EventStore, inbox <-chan models.Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "audit append failed",
					"entity_id", event.EntityID,
					"action", event.Action,
					"error", err,
				)
			}
		}
	}
}
