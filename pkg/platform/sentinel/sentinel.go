package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record does not exist in store
// - ErrConflict: write collided with an existing record
// - ErrConcurrentModification: compare-and-swap on updated_at lost a race
// - ErrStale: incoming write carries a timestamp not newer than the stored one
// - ErrInvalidState: record in wrong state for requested operation
// - ErrUnavailable: service or resource temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound               = errors.New("not found")
	ErrConflict               = errors.New("conflict")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrStale                  = errors.New("stale write")
	ErrInvalidState           = errors.New("invalid state")
	ErrUnavailable            = errors.New("unavailable")
)
