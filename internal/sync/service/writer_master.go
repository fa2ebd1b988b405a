package service

import (
	"context"
	"errors"
	"time"

	reconcilemodels "origo/internal/reconcile/models"
	id "origo/pkg/domain"
	"origo/pkg/platform/sentinel"
)

// FieldValueStore is the slice of the field value store the master writer
// needs.
type FieldValueStore interface {
	FindCurrent(ctx context.Context, entityID id.EntityID, field id.FieldName) (*reconcilemodels.FieldValue, error)
	Append(ctx context.Context, fv *reconcilemodels.FieldValue, expectedRevision int64) error
	Touch(ctx context.Context, entityID id.EntityID, field id.FieldName, now time.Time) error
}

// MasterWriter applies intake-originated changes to the field value store.
// Sync writes carry the system source and keep the originating system in
// the provenance trail.
type MasterWriter struct {
	values FieldValueStore
}

func NewMasterWriter(values FieldValueStore) *MasterWriter {
	return &MasterWriter{values: values}
}

func (w *MasterWriter) ApplyIfNewer(ctx context.Context, entityID id.EntityID, field id.FieldName, value string, ts time.Time, origin string) error {
	var expected int64
	current, err := w.values.FindCurrent(ctx, entityID, field)
	switch {
	case err == nil:
		if !current.UpdatedAt.Before(ts) {
			return sentinel.ErrStale
		}
		if current.Value == value {
			// Same value confirmed later. No new revision, but the
			// timestamp moves forward so an older differing change can
			// no longer land in between.
			return w.values.Touch(ctx, entityID, field, ts)
		}
		expected = current.Revision
	case errors.Is(err, sentinel.ErrNotFound):
		expected = 0
	default:
		return err
	}

	return w.values.Append(ctx, &reconcilemodels.FieldValue{
		EntityID:  entityID,
		FieldName: field,
		Value:     value,
		Source:    id.SourceSystem,
		UpdatedAt: ts,
		UpdatedBy: "sync:" + origin,
	}, expected)
}
