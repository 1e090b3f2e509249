package schedule

import (
	"math"

	"github.com/thyrook/trainsched/internal/optimizer"
)

// CosineAnnealing warms the rate up linearly, then anneals it from the base
// rate down to a minimum along a half cosine over the remaining steps.
type CosineAnnealing struct {
	binding *optimizer.Binding

	baseRate    float64
	minRate     float64
	warmupSteps int
	totalSteps  int

	currentRate float64
	stepCount   int
	lastRates   []float64
}

// NewCosineAnnealing creates a cosine-annealing schedule bound to an optimizer
func NewCosineAnnealing(binding *optimizer.Binding, baseRate, minRate float64, warmupSteps, totalSteps int) *CosineAnnealing {
	return &CosineAnnealing{
		binding:     binding,
		baseRate:    baseRate,
		minRate:     minRate,
		warmupSteps: warmupSteps,
		totalSteps:  totalSteps,
		currentRate: baseRate,
	}
}

func (s *CosineAnnealing) rateAt(step int) float64 {
	if step < s.warmupSteps {
		return s.baseRate * float64(step+1) / float64(s.warmupSteps)
	}

	progress := float64(step-s.warmupSteps) / float64(s.totalSteps-s.warmupSteps)
	if progress > 1.0 {
		progress = 1.0
	}
	cosine := 0.5 * (1.0 + math.Cos(math.Pi*progress))
	return s.minRate + (s.baseRate-s.minRate)*cosine
}

// Step applies the rate for the current step and returns it
func (s *CosineAnnealing) Step(loss float64) (float64, error) {
	_ = loss

	s.currentRate = s.rateAt(s.stepCount)

	s.binding.ApplyRate(s.currentRate)
	s.stepCount++
	s.lastRates = s.binding.Snapshot()

	return s.currentRate, nil
}

// Rate returns the rate applied to the optimizer's first parameter group
func (s *CosineAnnealing) Rate() float64 {
	return s.binding.ReadRate()
}

// LastRates returns the per-group rates after the most recent Step
func (s *CosineAnnealing) LastRates() []float64 {
	out := make([]float64, len(s.lastRates))
	copy(out, s.lastRates)
	return out
}
