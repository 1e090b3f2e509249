package training

import (
	"testing"

	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/thyrook/trainsched/internal/optimizer"
	"github.com/thyrook/trainsched/internal/schedule"
)

// quadraticProblem builds the self-contained problem loss = w^2 with w
// starting away from the minimum.
func quadraticProblem(t *testing.T, w0 float64) Problem {
	t.Helper()

	g := gorgonia.NewGraph()
	w := gorgonia.NewScalar(g, tensor.Float64,
		gorgonia.WithName("w"),
		gorgonia.WithValue(w0),
	)

	loss, err := gorgonia.Square(w)
	if err != nil {
		t.Fatalf("Failed to build loss: %v", err)
	}

	return Problem{
		Graph:      g,
		Loss:       loss,
		Learnables: gorgonia.Nodes{w},
	}
}

func newTestSchedule(t *testing.T, group *optimizer.SolverGroup, cfg schedule.TriStageConfig) schedule.Scheduler {
	t.Helper()
	binding := optimizer.NewBinding(optimizer.NewSolverSet(group))
	s, err := schedule.NewTriStage(binding, cfg)
	if err != nil {
		t.Fatalf("Failed to build schedule: %v", err)
	}
	return s
}

func TestTrainerRunStep(t *testing.T) {
	group := optimizer.NewSolverGroup(0.1, optimizer.VanillaFactory(1))
	sched := newTestSchedule(t, group, schedule.TriStageConfig{
		PeakRate:   0.1,
		FinalRate:  0.001,
		HoldSteps:  3,
		DecaySteps: 2,
	})

	trainer, err := NewTrainer(quadraticProblem(t, 3.0), sched, group, Config{Steps: 5})
	if err != nil {
		t.Fatalf("NewTrainer failed: %v", err)
	}
	defer trainer.Close()

	first, err := trainer.RunStep(nil, nil)
	if err != nil {
		t.Fatalf("RunStep failed: %v", err)
	}

	if first.Step != 0 {
		t.Errorf("first step index = %d; want 0", first.Step)
	}
	if first.Loss != 9.0 {
		t.Errorf("first loss = %v; want 9.0 (w=3)", first.Loss)
	}
	// Zero warmup: the first rate is the peak.
	if first.Rate != 0.1 {
		t.Errorf("first rate = %v; want peak 0.1", first.Rate)
	}

	second, err := trainer.RunStep(nil, nil)
	if err != nil {
		t.Fatalf("RunStep failed: %v", err)
	}
	if second.Loss >= first.Loss {
		t.Errorf("loss did not decrease: %v -> %v", first.Loss, second.Loss)
	}
}

func TestTrainerRun(t *testing.T) {
	group := optimizer.NewSolverGroup(0.05, optimizer.VanillaFactory(1))
	sched := newTestSchedule(t, group, schedule.TriStageConfig{
		PeakRate:    0.05,
		FinalRate:   0.005,
		WarmupSteps: 2,
		HoldSteps:   4,
		DecaySteps:  2,
	})

	trainer, err := NewTrainer(quadraticProblem(t, 2.0), sched, group, Config{Steps: 10})
	if err != nil {
		t.Fatalf("NewTrainer failed: %v", err)
	}
	defer trainer.Close()

	if err := trainer.Run(nil); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	metrics := trainer.Metrics()
	if len(metrics) != 10 {
		t.Fatalf("recorded %d steps; want 10", len(metrics))
	}

	// The recorded rate trajectory follows the schedule.
	if metrics[0].Rate != 0 {
		t.Errorf("step 0 rate = %v; want warmup start 0", metrics[0].Rate)
	}
	if metrics[2].Rate != 0.05 {
		t.Errorf("step 2 rate = %v; want peak 0.05", metrics[2].Rate)
	}
	if metrics[9].Rate != 0.005 {
		t.Errorf("step 9 rate = %v; want final 0.005", metrics[9].Rate)
	}

	// The solver group carries the most recently applied rate.
	if group.Rate() != metrics[9].Rate {
		t.Errorf("group rate = %v; want %v", group.Rate(), metrics[9].Rate)
	}

	if metrics[len(metrics)-1].Loss >= metrics[0].Loss {
		t.Errorf("loss did not decrease over the run: %v -> %v",
			metrics[0].Loss, metrics[len(metrics)-1].Loss)
	}
}

func TestTrainerRejectsIncompleteProblem(t *testing.T) {
	group := optimizer.NewSolverGroup(0.1, optimizer.VanillaFactory(1))
	sched := newTestSchedule(t, group, schedule.TriStageConfig{
		PeakRate:  0.1,
		FinalRate: 0.01,
		HoldSteps: 1,
	})

	if _, err := NewTrainer(Problem{}, sched, group, Config{Steps: 1}); err == nil {
		t.Error("Expected error for empty problem")
	}

	p := quadraticProblem(t, 1.0)
	p.Learnables = nil
	if _, err := NewTrainer(p, sched, group, Config{Steps: 1}); err == nil {
		t.Error("Expected error for problem without learnables")
	}
}
