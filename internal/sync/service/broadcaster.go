package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	reconcilemodels "origo/internal/reconcile/models"
	"origo/internal/sync/metrics"
	"origo/internal/sync/models"
)

// Applier applies a change to its linked tables in-process. Implemented by
// the sync coordinator.
type Applier interface {
	Apply(ctx context.Context, change models.Change) error
}

// Broadcaster turns accepted field writes into local link applications and
// published changes on the field-changes topic. It satisfies the reconcile
// module's ChangeNotifier.
type Broadcaster struct {
	applier   Applier
	publisher Publisher
	originTag string
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewBroadcaster(applier Applier, publisher Publisher, originTag string, logger *slog.Logger, m *metrics.Metrics) *Broadcaster {
	return &Broadcaster{applier: applier, publisher: publisher, originTag: originTag, logger: logger, metrics: m}
}

// FieldChanged applies the write to its linked tables and publishes it,
// both off the caller's goroutine. The local apply happens here because
// consumers drop own-origin echoes; it also marks the ChangeID applied, so
// peers sharing the dedupe set treat the consumed copy as a duplicate.
// Failures are logged, not surfaced: the local write already committed, and
// the linked side catches up on the next change or resync.
func (b *Broadcaster) FieldChanged(ctx context.Context, fv *reconcilemodels.FieldValue) {
	change := models.Change{
		ChangeID:  uuid.NewString(),
		EntityID:  fv.EntityID,
		Table:     models.TableMaster,
		Field:     fv.FieldName,
		Value:     fv.Value,
		Timestamp: fv.UpdatedAt,
		Origin:    b.originTag,
	}

	go func(ctx context.Context) {
		if err := b.applier.Apply(ctx, change); err != nil {
			// Publish anyway; a consumer on the other system can still
			// apply the change from the topic.
			b.logger.ErrorContext(ctx, "failed to apply change to linked tables",
				"change_id", change.ChangeID,
				"entity_id", change.EntityID,
				"field_name", change.Field,
				"error", err,
			)
		}
		if err := b.publisher.Publish(ctx, change); err != nil {
			b.logger.ErrorContext(ctx, "failed to publish change",
				"change_id", change.ChangeID,
				"entity_id", change.EntityID,
				"field_name", change.Field,
				"error", err,
			)
			return
		}
		b.metrics.IncrementPublished()
	}(context.WithoutCancel(ctx))
}
