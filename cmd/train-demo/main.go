package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"

	"go.uber.org/zap"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/thyrook/trainsched/internal/optimizer"
	"github.com/thyrook/trainsched/internal/schedule"
	"github.com/thyrook/trainsched/internal/storage"
	"github.com/thyrook/trainsched/internal/training"
)

// fixedBatch feeds the same full batch every step.
type fixedBatch struct {
	x tensor.Tensor
	y tensor.Tensor
}

func (b *fixedBatch) NextBatch(step int) (tensor.Tensor, tensor.Tensor, error) {
	return b.x, b.y, nil
}

func main() {
	// Command-line flags
	samples := flag.Int("samples", 128, "Number of synthetic samples")
	steps := flag.Int("steps", 400, "Number of optimization steps")
	peakRate := flag.Float64("peak", 0.05, "Peak learning rate")
	finalRate := flag.Float64("final", 0.001, "Final learning rate")
	rateLogPath := flag.String("rate-log", "", "Optional path for the bbolt rate history")
	dev := flag.Bool("dev", false, "Development logging")
	seed := flag.Int64("seed", 42, "Random seed for the synthetic data")

	flag.Parse()

	var logger *zap.Logger
	var err error
	if *dev {
		logger, err = zap.NewDevelopmentConfig().Build()
	} else {
		logger, err = zap.NewProductionConfig().Build()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	fmt.Println("Tri-Stage Schedule Training Demo")
	fmt.Println("================================")
	fmt.Println()

	// Synthetic regression data: y = 3x + 2 with noise.
	rng := rand.New(rand.NewSource(*seed))
	xData := make([]float64, *samples)
	yData := make([]float64, *samples)
	for i := range xData {
		x := rng.Float64()*2 - 1
		xData[i] = x
		yData[i] = 3*x + 2 + rng.NormFloat64()*0.05
	}

	g := gorgonia.NewGraph()
	x := gorgonia.NewMatrix(g, tensor.Float64,
		gorgonia.WithShape(*samples, 1), gorgonia.WithName("x"))
	y := gorgonia.NewMatrix(g, tensor.Float64,
		gorgonia.WithShape(*samples, 1), gorgonia.WithName("y"))
	w := gorgonia.NewMatrix(g, tensor.Float64,
		gorgonia.WithShape(1, 1), gorgonia.WithName("w"),
		gorgonia.WithInit(gorgonia.Gaussian(0, 0.1)))
	b := gorgonia.NewScalar(g, tensor.Float64,
		gorgonia.WithName("b"), gorgonia.WithValue(0.0))

	pred := gorgonia.Must(gorgonia.Add(gorgonia.Must(gorgonia.Mul(x, w)), b))
	diff := gorgonia.Must(gorgonia.Sub(pred, y))
	loss := gorgonia.Must(gorgonia.Mean(gorgonia.Must(gorgonia.Square(diff))))

	problem := training.Problem{
		Graph:      g,
		Loss:       loss,
		Learnables: gorgonia.Nodes{w, b},
		Input:      x,
		Target:     y,
	}

	// Phase lengths split the run 10/40/50 with a short constant tail.
	ratio := [3]float64{0.1, 0.4, 0.5}
	group := optimizer.NewSolverGroup(0, optimizer.AdamFactory(*samples, 5.0))
	binding := optimizer.NewBinding(optimizer.NewSolverSet(group))
	sched, err := schedule.NewTriStage(binding, schedule.TriStageConfig{
		PeakRate:   *peakRate,
		FinalRate:  *finalRate,
		PhaseRatio: &ratio,
		TotalSteps: *steps * 9 / 10,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid schedule: %v\n", err)
		os.Exit(1)
	}

	opts := []training.Option{training.WithLogger(logger)}
	if *rateLogPath != "" {
		rateLog, err := storage.NewRateLog(*rateLogPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open rate log: %v\n", err)
			os.Exit(1)
		}
		defer rateLog.Close()
		opts = append(opts, training.WithRateLog(rateLog))
	}

	trainer, err := training.NewTrainer(problem, sched, group,
		training.Config{Steps: *steps, LogEvery: 50}, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create trainer: %v\n", err)
		os.Exit(1)
	}
	defer trainer.Close()

	xT := tensor.New(tensor.WithShape(*samples, 1), tensor.WithBacking(xData))
	yT := tensor.New(tensor.WithShape(*samples, 1), tensor.WithBacking(yData))

	if err := trainer.Run(&fixedBatch{x: xT, y: yT}); err != nil {
		fmt.Fprintf(os.Stderr, "Training failed: %v\n", err)
		os.Exit(1)
	}

	metrics := trainer.Metrics()
	first, last := metrics[0], metrics[len(metrics)-1]
	fmt.Println()
	fmt.Printf("Steps:      %d\n", len(metrics))
	fmt.Printf("Loss:       %.6f -> %.6f\n", first.Loss, last.Loss)
	fmt.Printf("Final rate: %g\n", last.Rate)
	fmt.Printf("Fitted:     w=%v b=%v (true: w=3 b=2)\n", w.Value(), b.Value())
}
