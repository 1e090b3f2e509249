package training

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/thyrook/trainsched/internal/optimizer"
	"github.com/thyrook/trainsched/internal/schedule"
	"github.com/thyrook/trainsched/internal/storage"
)

// Problem describes a gorgonia expression graph to optimize. Input and
// Target may be nil for self-contained graphs.
type Problem struct {
	Graph      *gorgonia.ExprGraph
	Loss       *gorgonia.Node
	Learnables gorgonia.Nodes
	Input      *gorgonia.Node
	Target     *gorgonia.Node
}

// Config holds training loop settings
type Config struct {
	Steps    int
	LogEvery int // log every N steps; 0 disables periodic logging
}

// StepMetrics tracks the outcome of one optimization step
type StepMetrics struct {
	Step     int
	Loss     float64
	Rate     float64
	Duration time.Duration
}

// BatchSource produces one batch per optimization step
type BatchSource interface {
	NextBatch(step int) (input, target tensor.Tensor, err error)
}

// Trainer drives a per-step training loop: each step runs the graph, asks
// the schedule for the next learning rate and applies gradients through the
// solver the schedule has configured.
type Trainer struct {
	problem Problem
	config  Config

	vm    gorgonia.VM
	sched schedule.Scheduler
	group *optimizer.SolverGroup

	logger  *zap.Logger
	rateLog *storage.RateLog

	metrics []StepMetrics
}

// Option configures optional trainer collaborators
type Option func(*Trainer)

// WithLogger sets the logger used for step progress
func WithLogger(logger *zap.Logger) Option {
	return func(t *Trainer) { t.logger = logger }
}

// WithRateLog persists the applied rate for every step
func WithRateLog(log *storage.RateLog) Option {
	return func(t *Trainer) { t.rateLog = log }
}

// NewTrainer creates a trainer for the given problem, schedule and solver
// group. The schedule must be bound to an optimizer that includes the group,
// so that its rate updates reach the solver the trainer steps with.
func NewTrainer(p Problem, sched schedule.Scheduler, group *optimizer.SolverGroup, config Config, opts ...Option) (*Trainer, error) {
	if p.Graph == nil || p.Loss == nil {
		return nil, fmt.Errorf("problem graph and loss are required")
	}
	if len(p.Learnables) == 0 {
		return nil, fmt.Errorf("problem has no learnables")
	}

	if _, err := gorgonia.Grad(p.Loss, p.Learnables...); err != nil {
		return nil, fmt.Errorf("failed to compute gradients: %w", err)
	}

	t := &Trainer{
		problem: p,
		config:  config,
		vm:      gorgonia.NewTapeMachine(p.Graph),
		sched:   sched,
		group:   group,
		logger:  zap.NewNop(),
		metrics: make([]StepMetrics, 0, config.Steps),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t, nil
}

// RunStep performs one optimization step on the given batch. Either tensor
// may be nil when the corresponding problem node is nil.
func (t *Trainer) RunStep(input, target tensor.Tensor) (StepMetrics, error) {
	startTime := time.Now()
	step := len(t.metrics)

	if t.problem.Input != nil {
		if err := gorgonia.Let(t.problem.Input, input); err != nil {
			return StepMetrics{}, fmt.Errorf("failed to set input: %w", err)
		}
	}
	if t.problem.Target != nil {
		if err := gorgonia.Let(t.problem.Target, target); err != nil {
			return StepMetrics{}, fmt.Errorf("failed to set target: %w", err)
		}
	}

	if err := t.vm.RunAll(); err != nil {
		return StepMetrics{}, fmt.Errorf("failed to run forward/backward: %w", err)
	}

	loss, err := scalarLoss(t.problem.Loss)
	if err != nil {
		return StepMetrics{}, err
	}

	// The schedule pushes the new rate into the solver group before the
	// gradients are applied.
	rate, err := t.sched.Step(loss)
	if err != nil {
		return StepMetrics{}, fmt.Errorf("schedule step failed: %w", err)
	}

	valueGrads := make([]gorgonia.ValueGrad, len(t.problem.Learnables))
	for i, n := range t.problem.Learnables {
		valueGrads[i] = n
	}
	if err := t.group.Solver().Step(valueGrads); err != nil {
		return StepMetrics{}, fmt.Errorf("failed to update weights: %w", err)
	}

	t.vm.Reset()

	metrics := StepMetrics{
		Step:     step,
		Loss:     loss,
		Rate:     rate,
		Duration: time.Since(startTime),
	}
	t.metrics = append(t.metrics, metrics)

	if t.rateLog != nil {
		if err := t.rateLog.Append(step, rate, loss); err != nil {
			t.logger.Warn("Failed to persist rate",
				zap.Int("step", step),
				zap.Error(err),
			)
		}
	}

	if t.config.LogEvery > 0 && (step+1)%t.config.LogEvery == 0 {
		t.logger.Info("Training step",
			zap.Int("step", step),
			zap.Float64("loss", loss),
			zap.Float64("rate", rate),
			zap.Duration("duration", metrics.Duration),
		)
	}

	return metrics, nil
}

// Run performs the configured number of steps, pulling one batch per step
// from the source. A nil source is allowed for self-contained problems.
func (t *Trainer) Run(source BatchSource) error {
	for step := 0; step < t.config.Steps; step++ {
		var input, target tensor.Tensor
		if source != nil {
			var err error
			input, target, err = source.NextBatch(step)
			if err != nil {
				return fmt.Errorf("failed to load batch for step %d: %w", step, err)
			}
		}

		if _, err := t.RunStep(input, target); err != nil {
			return fmt.Errorf("step %d failed: %w", step, err)
		}
	}

	return nil
}

// Metrics returns the recorded per-step metrics
func (t *Trainer) Metrics() []StepMetrics {
	return t.metrics
}

// Close releases the underlying virtual machine
func (t *Trainer) Close() error {
	return t.vm.Close()
}

// scalarLoss extracts the scalar loss value from the loss node
func scalarLoss(node *gorgonia.Node) (float64, error) {
	value := node.Value()
	if value == nil {
		return 0, fmt.Errorf("loss value is nil")
	}

	switch v := value.Data().(type) {
	case float64:
		return v, nil
	case []float64:
		if len(v) == 0 {
			return 0, fmt.Errorf("loss value array is empty")
		}
		return v[0], nil
	default:
		return 0, fmt.Errorf("unexpected loss value type: %T", v)
	}
}
