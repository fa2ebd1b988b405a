// Package worker runs the consume side of the sync loop: it reads changes
// from the notifier and hands them to the coordinator.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"origo/internal/sync/models"
)

// Propagator applies one incoming change. Implemented by the sync
// coordinator.
type Propagator interface {
	Propagate(ctx context.Context, change models.Change) error
}

// Kafka consumes the field-changes topic within a consumer group and
// propagates each decoded change. Errors are logged and the offset is
// committed anyway; the timestamp guard makes a later resync safe.
type Kafka struct {
	client     *kgo.Client
	propagator Propagator
	logger     *slog.Logger
}

// NewKafka connects a group consumer on the topic.
func NewKafka(brokers []string, topic, group string, propagator Propagator, logger *slog.Logger) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka consumer: %w", err)
	}
	return &Kafka{client: client, propagator: propagator, logger: logger}, nil
}

// Run polls until ctx is cancelled.
func (w *Kafka) Run(ctx context.Context) error {
	defer w.client.Close()
	for {
		fetches := w.client.PollFetches(ctx)
		if fetches.IsClientClosed() || errors.Is(ctx.Err(), context.Canceled) {
			return ctx.Err()
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			w.logger.ErrorContext(ctx, "fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})
		fetches.EachRecord(func(record *kgo.Record) {
			w.handle(ctx, record.Value)
		})
	}
}

func (w *Kafka) handle(ctx context.Context, payload []byte) {
	var change models.Change
	if err := json.Unmarshal(payload, &change); err != nil {
		w.logger.ErrorContext(ctx, "undecodable change skipped", "error", err)
		return
	}
	if err := w.propagator.Propagate(ctx, change); err != nil {
		w.logger.ErrorContext(ctx, "propagation failed",
			"change_id", change.ChangeID,
			"table", change.Table,
			"field_name", change.Field,
			"error", err,
		)
	}
}

// Channel consumes changes from an in-memory subscription. Used when the
// engine runs single-process without Kafka.
type Channel struct {
	changes    <-chan models.Change
	propagator Propagator
	logger     *slog.Logger
}

func NewChannel(changes <-chan models.Change, propagator Propagator, logger *slog.Logger) *Channel {
	return &Channel{changes: changes, propagator: propagator, logger: logger}
}

// Run drains the subscription until ctx is cancelled.
func (w *Channel) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case change := <-w.changes:
			if err := w.propagator.Propagate(ctx, change); err != nil {
				w.logger.ErrorContext(ctx, "propagation failed",
					"change_id", change.ChangeID,
					"error", err,
				)
			}
		}
	}
}
