package service

//go:generate mockgen -source=coordinator.go -destination=mocks/mocks.go -package=mocks TableWriter,Publisher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"origo/internal/sync/dedupe"
	"origo/internal/sync/links"
	"origo/internal/sync/metrics"
	"origo/internal/sync/models"
	id "origo/pkg/domain"
	dErrors "origo/pkg/domain-errors"
	"origo/pkg/platform/sentinel"
)

// TableWriter applies one remote change to a synchronized table.
// Implementations reject the write with sentinel.ErrStale when their stored
// timestamp is at or past the change's.
type TableWriter interface {
	ApplyIfNewer(ctx context.Context, entityID id.EntityID, field id.FieldName, value string, ts time.Time, origin string) error
}

// Publisher delivers a change to the field-changes topic.
type Publisher interface {
	Publish(ctx context.Context, change models.Change) error
}

// Coordinator moves field changes between the master and intake tables.
// Loop safety rests on three rails: the origin tag (never apply our own
// echo), the dedupe set (never apply the same change id twice), and the
// timestamp guard in each writer (never let an older value overwrite a
// newer one). Any one of them alone converges; together they also keep
// redelivery cheap.
type Coordinator struct {
	links     *links.Registry
	writers   map[string]TableWriter
	dedupe    dedupe.Deduper
	originTag string
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

func NewCoordinator(reg *links.Registry, ded dedupe.Deduper, originTag string, logger *slog.Logger, m *metrics.Metrics) *Coordinator {
	return &Coordinator{
		links:     reg,
		writers:   make(map[string]TableWriter),
		dedupe:    ded,
		originTag: originTag,
		logger:    logger,
		metrics:   m,
		tracer:    otel.Tracer("origo/sync"),
	}
}

// RegisterWriter binds a table name to its writer. Called during wiring,
// before any Propagate.
func (c *Coordinator) RegisterWriter(table string, w TableWriter) {
	c.writers[table] = w
}

// Propagate applies one incoming change to every linked counterpart field.
// Stale and duplicate deliveries are successful no-ops. Own-origin
// deliveries are echoes of changes already applied at emit time and are
// dropped without touching the dedupe set.
func (c *Coordinator) Propagate(ctx context.Context, change models.Change) error {
	if change.Origin == c.originTag {
		c.metrics.IncrementPropagation("own_origin")
		return nil
	}
	return c.Apply(ctx, change)
}

// Apply pushes the change through the link registry to every target table,
// regardless of origin. The broadcaster calls it at emit time so a local
// write reaches its linked tables in-process instead of depending on the
// bus delivering our own message back to us.
func (c *Coordinator) Apply(ctx context.Context, change models.Change) error {
	ctx, span := c.tracer.Start(ctx, "sync.Apply")
	defer span.End()
	span.SetAttributes(
		attribute.String("change_id", change.ChangeID),
		attribute.String("table", change.Table),
		attribute.String("field_name", string(change.Field)),
		attribute.String("origin", change.Origin),
	)
	start := time.Now()
	defer func() { c.metrics.ObservePropagateLatency(time.Since(start)) }()

	if change.ChangeID != "" {
		seen, err := c.dedupe.Seen(ctx, change.ChangeID)
		if err != nil {
			c.metrics.IncrementPropagation("error")
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check change id")
		}
		if seen {
			c.metrics.IncrementPropagation("duplicate")
			return nil
		}
	}

	targets, err := c.links.TargetsFor(change.Table, change.Field)
	if err != nil {
		c.metrics.IncrementPropagation("error")
		return dErrors.Wrap(err, dErrors.CodeValidation,
			"no sync link for "+change.Table+"."+string(change.Field))
	}

	applied := 0
	for _, link := range targets {
		writer, ok := c.writers[link.TargetTable]
		if !ok {
			c.metrics.IncrementPropagation("error")
			return dErrors.New(dErrors.CodeInternal, "no writer registered for table "+link.TargetTable)
		}

		err := writer.ApplyIfNewer(ctx, change.EntityID, link.TargetField, link.Apply(change.Value), change.Timestamp, change.Origin)
		switch {
		case errors.Is(err, sentinel.ErrStale):
			c.logger.DebugContext(ctx, "stale change skipped",
				"change_id", change.ChangeID,
				"table", link.TargetTable,
				"field_name", link.TargetField,
			)
			c.metrics.IncrementPropagation("stale")
		case err != nil:
			c.metrics.IncrementPropagation("error")
			return dErrors.Wrap(err, dErrors.CodeInternal,
				"failed to apply change to "+link.TargetTable)
		default:
			applied++
		}
	}

	if change.ChangeID != "" {
		if err := c.dedupe.Mark(ctx, change.ChangeID); err != nil {
			// The write landed; a failed mark only risks a redundant
			// redelivery, which the timestamp guard absorbs.
			c.logger.WarnContext(ctx, "failed to mark change id",
				"change_id", change.ChangeID,
				"error", err,
			)
		}
	}
	if applied > 0 {
		c.metrics.IncrementPropagation("applied")
	}
	return nil
}
