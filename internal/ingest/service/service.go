package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"origo/internal/ingest/models"
	reconcilemodels "origo/internal/reconcile/models"
	reconcileservice "origo/internal/reconcile/service"
	id "origo/pkg/domain"
	dErrors "origo/pkg/domain-errors"
	"origo/pkg/platform/sentinel"
	"origo/pkg/requestcontext"
)

// maxConcurrentTuples bounds the detect fan-out per batch so one large scan
// run cannot monopolize store connections.
const maxConcurrentTuples = 8

// Detector is the slice of the reconcile service ingestion drives.
type Detector interface {
	Detect(ctx context.Context, entityID id.EntityID, field id.FieldName, candidate reconcilemodels.Candidate) (*reconcileservice.DetectResult, error)
}

// Service feeds OCR batches through conflict detection.
type Service struct {
	detector Detector
	logger   *slog.Logger
}

func New(detector Detector, logger *slog.Logger) *Service {
	return &Service{detector: detector, logger: logger}
}

// IngestBatch runs one Detect per tuple with bounded concurrency. Tuple
// failures are collected, never fatal to the batch; the returned error is
// reserved for empty input.
func (s *Service) IngestBatch(ctx context.Context, batch models.Batch) (models.BatchResult, error) {
	if len(batch.Tuples) == 0 {
		return models.BatchResult{}, dErrors.New(dErrors.CodeValidation, "batch has no tuples")
	}

	ctx = requestcontext.WithIngestJob(ctx, batch.JobID)

	var (
		mu     sync.Mutex
		result models.BatchResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentTuples)

	for _, tuple := range batch.Tuples {
		g.Go(func() error {
			outcome, err := s.ingestTuple(gctx, tuple)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				result.Failures = append(result.Failures, models.TupleError{
					DocumentID: tuple.DocumentID,
					EntityID:   tuple.EntityID,
					FieldName:  tuple.FieldName,
					Reason:     dErrors.Message(err),
				})
				return nil
			}
			switch outcome {
			case reconcileservice.OutcomeAccepted:
				result.Accepted++
			case reconcileservice.OutcomeCorroborated:
				result.Corroborated++
			case reconcileservice.OutcomeConflicted:
				result.Conflicted++
			}
			return nil
		})
	}
	_ = g.Wait()

	s.logger.InfoContext(ctx, "batch ingested",
		"job_id", batch.JobID,
		"tuples", len(batch.Tuples),
		"accepted", result.Accepted,
		"corroborated", result.Corroborated,
		"conflicted", result.Conflicted,
		"failed", result.Failed,
	)
	return result, nil
}

// ingestTuple detects one tuple, retrying once when a concurrent write
// invalidated the revision it read.
func (s *Service) ingestTuple(ctx context.Context, tuple models.Tuple) (reconcileservice.Outcome, error) {
	candidate := reconcilemodels.Candidate{
		Value:      tuple.Value,
		Source:     id.SourceOCR,
		Confidence: tuple.Confidence,
		DocumentID: tuple.DocumentID,
	}

	res, err := s.detector.Detect(ctx, tuple.EntityID, tuple.FieldName, candidate)
	if errors.Is(err, sentinel.ErrConcurrentModification) {
		res, err = s.detector.Detect(ctx, tuple.EntityID, tuple.FieldName, candidate)
	}
	if err != nil {
		return "", err
	}
	return res.Outcome, nil
}
