package schedule

import (
	"fmt"
	"math"

	"github.com/thyrook/trainsched/internal/optimizer"
)

// ratio sums are checked within this tolerance; the three entries are
// user-written decimal literals and rarely sum to exactly 1.0 in binary.
const ratioSumTolerance = 1e-9

// TriStageConfig holds the construction parameters of a tri-stage schedule.
// InitRateScale, FinalRateScale and PhaseRatio are optional; nil means the
// corresponding absolute values are used instead.
type TriStageConfig struct {
	PeakRate float64 `json:"peak_rate"`

	InitRate      float64  `json:"init_rate"`
	InitRateScale *float64 `json:"init_rate_scale,omitempty"`

	FinalRate      float64  `json:"final_rate"`
	FinalRateScale *float64 `json:"final_rate_scale,omitempty"`

	WarmupSteps int `json:"warmup_steps"`
	HoldSteps   int `json:"hold_steps"`
	DecaySteps  int `json:"decay_steps"`

	// PhaseRatio derives the three phase lengths as fractions of
	// TotalSteps. The fractions must sum to 1.
	PhaseRatio *[3]float64 `json:"phase_ratio,omitempty"`
	TotalSteps int         `json:"total_steps"`
}

// TriStage ramps the rate linearly from an initial value to a peak, holds
// the peak, decays exponentially toward a final value and then stays there.
// Stage transitions are driven only by the step counter; once the final
// stage is reached the rate never changes again.
type TriStage struct {
	binding *optimizer.Binding

	peakRate  float64
	initRate  float64
	finalRate float64

	warmupSteps int
	holdSteps   int
	decaySteps  int

	warmupRate  float64
	decayFactor float64

	currentRate float64
	stepCount   int
	lastRates   []float64
}

// NewTriStage creates a tri-stage schedule bound to an optimizer
func NewTriStage(binding *optimizer.Binding, cfg TriStageConfig) (*TriStage, error) {
	s := &TriStage{
		binding:  binding,
		peakRate: cfg.PeakRate,
	}

	if cfg.InitRateScale != nil {
		if *cfg.InitRateScale <= 0 {
			return nil, fmt.Errorf("init_rate_scale %v: %w", *cfg.InitRateScale, ErrBadScale)
		}
		s.initRate = *cfg.InitRateScale * cfg.PeakRate
	} else {
		s.initRate = cfg.InitRate
	}

	var finalRateScale float64
	if cfg.FinalRateScale != nil {
		if *cfg.FinalRateScale <= 0 {
			return nil, fmt.Errorf("final_rate_scale %v: %w", *cfg.FinalRateScale, ErrBadScale)
		}
		finalRateScale = *cfg.FinalRateScale
		s.finalRate = finalRateScale * cfg.PeakRate
	} else {
		s.finalRate = cfg.FinalRate
		finalRateScale = cfg.FinalRate / cfg.PeakRate
	}

	if cfg.PhaseRatio != nil {
		ratio := *cfg.PhaseRatio
		if cfg.TotalSteps <= 0 {
			return nil, fmt.Errorf("total_steps %d: %w", cfg.TotalSteps, ErrBadTotalSteps)
		}
		sum := ratio[0] + ratio[1] + ratio[2]
		if math.Abs(sum-1) > ratioSumTolerance {
			return nil, fmt.Errorf("phase_ratio sums to %v: %w", sum, ErrBadPhaseRatio)
		}
		s.warmupSteps = int(float64(cfg.TotalSteps) * ratio[0])
		s.holdSteps = int(float64(cfg.TotalSteps) * ratio[1])
		s.decaySteps = int(float64(cfg.TotalSteps) * ratio[2])
	} else {
		s.warmupSteps = cfg.WarmupSteps
		s.holdSteps = cfg.HoldSteps
		s.decaySteps = cfg.DecaySteps
	}

	if s.warmupSteps+s.holdSteps+s.decaySteps <= 0 {
		return nil, ErrNoPhases
	}

	if s.warmupSteps > 0 {
		s.warmupRate = (s.peakRate - s.initRate) / float64(s.warmupSteps)
	}
	if s.decaySteps > 0 {
		if finalRateScale <= 0 {
			return nil, fmt.Errorf("final rate %v with decay steps: %w", s.finalRate, ErrBadScale)
		}
		s.decayFactor = -math.Log(finalRateScale) / float64(s.decaySteps)
	}

	s.currentRate = s.initRate
	return s, nil
}

// decideStage classifies the current step counter into a stage and the step
// offset within that stage. Note the inclusive upper bound of the decay
// window: the step at warmup+hold+decay is the last decay step, not the
// first final step, so the boundary rate comes off the exponential curve.
func (s *TriStage) decideStage() (Stage, int) {
	if s.stepCount < s.warmupSteps {
		return StageWarmup, s.stepCount
	}

	offset := s.warmupSteps
	if s.stepCount < offset+s.holdSteps {
		return StageHold, s.stepCount - offset
	}

	offset += s.holdSteps
	if s.stepCount <= offset+s.decaySteps {
		return StageDecay, s.stepCount - offset
	}

	offset += s.decaySteps
	return StageFinal, s.stepCount - offset
}

// Step computes the rate for the current step, applies it to every
// parameter group and returns it. The loss argument is accepted for
// interface compatibility with loss-tracking schedules and is ignored.
func (s *TriStage) Step(loss float64) (float64, error) {
	_ = loss

	stage, stepsInStage := s.decideStage()
	switch stage {
	case StageWarmup:
		s.currentRate = s.initRate + s.warmupRate*float64(stepsInStage)
	case StageHold:
		s.currentRate = s.peakRate
	case StageDecay:
		s.currentRate = s.peakRate * math.Exp(-s.decayFactor*float64(stepsInStage))
	case StageFinal:
		s.currentRate = s.finalRate
	default:
		return 0, fmt.Errorf("stage %d: %w", stage, ErrUnknownStage)
	}

	s.binding.ApplyRate(s.currentRate)
	s.stepCount++
	s.lastRates = s.binding.Snapshot()

	return s.currentRate, nil
}

// Rate returns the rate currently applied to the optimizer's first
// parameter group
func (s *TriStage) Rate() float64 {
	return s.binding.ReadRate()
}

// LastRates returns a copy of the per-group rates recorded after the most
// recent Step
func (s *TriStage) LastRates() []float64 {
	out := make([]float64, len(s.lastRates))
	copy(out, s.lastRates)
	return out
}

// StepCount returns how many Step calls have been made
func (s *TriStage) StepCount() int {
	return s.stepCount
}

// PhaseSteps returns the resolved warmup, hold and decay lengths
func (s *TriStage) PhaseSteps() (warmup, hold, decay int) {
	return s.warmupSteps, s.holdSteps, s.decaySteps
}
