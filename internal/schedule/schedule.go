package schedule

import "math"

// NoLoss is passed to Step by callers that have no loss value for the
// current optimization step. Rate policies that do not track loss ignore
// the argument entirely.
var NoLoss = math.NaN()

// Scheduler computes the learning rate to apply at each optimization step
// and pushes it into the bound optimizer. Implementations are driven by the
// training loop, once per step, from a single goroutine.
type Scheduler interface {
	// Step computes the rate for the current step, applies it to every
	// parameter group of the bound optimizer and returns it.
	Step(loss float64) (float64, error)

	// Rate returns the rate currently applied to the optimizer's first
	// parameter group.
	Rate() float64

	// LastRates returns the per-group rates recorded after the most
	// recent Step call.
	LastRates() []float64
}

// Stage is one of the four segments of a tri-stage schedule.
type Stage int

const (
	StageWarmup Stage = iota
	StageHold
	StageDecay
	StageFinal
)

func (s Stage) String() string {
	switch s {
	case StageWarmup:
		return "warmup"
	case StageHold:
		return "hold"
	case StageDecay:
		return "decay"
	case StageFinal:
		return "final"
	default:
		return "unknown"
	}
}
