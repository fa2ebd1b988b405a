package models

import "errors"

// Business sentinels surfaced unmodified to callers. Each signals a
// configuration mistake or a legitimate business conflict that needs a
// caller-level decision, never a blind retry.
var (
	// ErrUnknownField: the field is not declared in the entity's schema.
	ErrUnknownField = errors.New("unknown field")
	// ErrInvalidSource: candidate source is not a known enum value.
	ErrInvalidSource = errors.New("invalid value source")
	// ErrAlreadyResolved: the conflict already reached a terminal state.
	ErrAlreadyResolved = errors.New("conflict already resolved")
)
