package models

import "errors"

// Business sentinels surfaced unmodified to callers.
var (
	// ErrUnknownWorkflow: no workflow with that name is registered.
	ErrUnknownWorkflow = errors.New("unknown workflow")
	// ErrUnknownStage: the stage is not part of the workflow's chain.
	ErrUnknownStage = errors.New("unknown stage")
	// ErrStageOrderViolation: the transition moves backward without the
	// explicit revert flag.
	ErrStageOrderViolation = errors.New("stage order violation")
)
