package schedule

import (
	"errors"
	"math"
	"testing"

	"github.com/thyrook/trainsched/internal/optimizer"
)

func TestStepDecay(t *testing.T) {
	set := optimizer.NewGroupSet(0)
	s, err := NewStepDecay(optimizer.NewBinding(set), 0.1, 0.1, 2)
	if err != nil {
		t.Fatalf("NewStepDecay failed: %v", err)
	}

	want := []float64{0.1, 0.1, 0.01, 0.01, 0.001, 0.001, 0.0001}
	for i, w := range want {
		rate, err := s.Step(NoLoss)
		if err != nil {
			t.Fatalf("Step failed: %v", err)
		}
		if math.Abs(rate-w) > 1e-12 {
			t.Errorf("step %d: rate = %v; want %v", i, rate, w)
		}
	}

	if s.Rate() != s.LastRates()[0] {
		t.Errorf("Rate() = %v; want %v", s.Rate(), s.LastRates()[0])
	}
}

func TestStepDecayRejectsBadInterval(t *testing.T) {
	for _, steps := range []int{0, -3} {
		set := optimizer.NewGroupSet(0)
		_, err := NewStepDecay(optimizer.NewBinding(set), 0.1, 0.5, steps)
		if err == nil {
			t.Fatalf("decay steps %d: expected error, got nil", steps)
		}
		if !errors.Is(err, ErrBadDecayStep) {
			t.Errorf("decay steps %d: error = %v; want %v", steps, err, ErrBadDecayStep)
		}
	}
}

func TestExponential(t *testing.T) {
	set := optimizer.NewGroupSet(0)
	s := NewExponential(optimizer.NewBinding(set), 0.1, 0.9)

	want := []float64{0.1, 0.09, 0.081, 0.0729, 0.06561}
	for i, w := range want {
		rate, err := s.Step(NoLoss)
		if err != nil {
			t.Fatalf("Step failed: %v", err)
		}
		if math.Abs(rate-w) > 1e-12 {
			t.Errorf("step %d: rate = %v; want %v", i, rate, w)
		}
	}
}
