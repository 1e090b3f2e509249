package schedule

import (
	"fmt"
	"math"

	"github.com/thyrook/trainsched/internal/optimizer"
)

// StepDecay drops the rate by a multiplicative factor every fixed number of
// steps.
type StepDecay struct {
	binding *optimizer.Binding

	baseRate   float64
	decayRate  float64
	decaySteps int

	currentRate float64
	stepCount   int
	lastRates   []float64
}

// NewStepDecay creates a step-decay schedule bound to an optimizer
func NewStepDecay(binding *optimizer.Binding, baseRate, decayRate float64, decaySteps int) (*StepDecay, error) {
	if decaySteps <= 0 {
		return nil, fmt.Errorf("decay steps %d: %w", decaySteps, ErrBadDecayStep)
	}
	return &StepDecay{
		binding:     binding,
		baseRate:    baseRate,
		decayRate:   decayRate,
		decaySteps:  decaySteps,
		currentRate: baseRate,
	}, nil
}

// Step applies the rate for the current step and returns it
func (s *StepDecay) Step(loss float64) (float64, error) {
	_ = loss

	numDecays := s.stepCount / s.decaySteps
	s.currentRate = s.baseRate * math.Pow(s.decayRate, float64(numDecays))

	s.binding.ApplyRate(s.currentRate)
	s.stepCount++
	s.lastRates = s.binding.Snapshot()

	return s.currentRate, nil
}

// Rate returns the rate applied to the optimizer's first parameter group
func (s *StepDecay) Rate() float64 {
	return s.binding.ReadRate()
}

// LastRates returns the per-group rates after the most recent Step
func (s *StepDecay) LastRates() []float64 {
	out := make([]float64, len(s.lastRates))
	copy(out, s.lastRates)
	return out
}

// Exponential decays the rate by a constant factor every step.
type Exponential struct {
	binding *optimizer.Binding

	baseRate  float64
	decayRate float64

	currentRate float64
	stepCount   int
	lastRates   []float64
}

// NewExponential creates an exponential-decay schedule bound to an optimizer
func NewExponential(binding *optimizer.Binding, baseRate, decayRate float64) *Exponential {
	return &Exponential{
		binding:     binding,
		baseRate:    baseRate,
		decayRate:   decayRate,
		currentRate: baseRate,
	}
}

// Step applies the rate for the current step and returns it
func (s *Exponential) Step(loss float64) (float64, error) {
	_ = loss

	s.currentRate = s.baseRate * math.Pow(s.decayRate, float64(s.stepCount))

	s.binding.ApplyRate(s.currentRate)
	s.stepCount++
	s.lastRates = s.binding.Snapshot()

	return s.currentRate, nil
}

// Rate returns the rate applied to the optimizer's first parameter group
func (s *Exponential) Rate() float64 {
	return s.binding.ReadRate()
}

// LastRates returns the per-group rates after the most recent Step
func (s *Exponential) LastRates() []float64 {
	out := make([]float64, len(s.lastRates))
	copy(out, s.lastRates)
	return out
}
