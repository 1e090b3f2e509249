package schedule

import "errors"

// Configuration errors surfaced at construction time. Check with errors.Is.
var (
	ErrNoPhases      = errors.New("schedule: warmup, hold and decay steps are all zero")
	ErrBadPhaseRatio = errors.New("schedule: phase ratios must add up to 1")
	ErrBadTotalSteps = errors.New("schedule: total steps must be positive when phase ratios are given")
	ErrBadScale      = errors.New("schedule: rate scale must be positive")
	ErrBadDecayStep  = errors.New("schedule: decay step interval must be positive")

	// ErrUnknownStage indicates a defect in stage decision, not a
	// recoverable runtime condition.
	ErrUnknownStage = errors.New("schedule: undefined stage")
)
