package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/thyrook/trainsched/internal/config"
	"github.com/thyrook/trainsched/internal/optimizer"
	"github.com/thyrook/trainsched/internal/schedule"
)

func main() {
	// Command-line flags
	configPath := flag.String("config", "", "Path to JSON config (flags are ignored when set)")
	peakRate := flag.Float64("peak", 0.001, "Peak learning rate")
	initRate := flag.Float64("init", 0, "Initial learning rate")
	finalRate := flag.Float64("final", 0.00001, "Final learning rate")
	initScale := flag.Float64("init-scale", -1, "Initial rate as a fraction of peak (overrides -init)")
	finalScale := flag.Float64("final-scale", -1, "Final rate as a fraction of peak (overrides -final)")
	warmupSteps := flag.Int("warmup", 0, "Warmup steps")
	holdSteps := flag.Int("hold", 0, "Hold steps")
	decaySteps := flag.Int("decay", 0, "Decay steps")
	phaseRatio := flag.String("ratio", "", "Phase ratio as 'w,h,d' (requires -total)")
	totalSteps := flag.Int("total", 0, "Total steps when -ratio is given")
	extraSteps := flag.Int("extra", 5, "Extra steps to print past the schedule window")
	csv := flag.Bool("csv", false, "CSV output instead of a table")

	flag.Parse()

	set := optimizer.NewGroupSet(0)
	binding := optimizer.NewBinding(set)

	var sched schedule.Scheduler
	var steps int

	if *configPath != "" {
		fileCfg, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		sched, err = fileCfg.Schedule.Build(binding)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid schedule: %v\n", err)
			os.Exit(1)
		}
		steps = previewSteps(sched, fileCfg, *extraSteps)
	} else {
		cfg := schedule.TriStageConfig{
			PeakRate:    *peakRate,
			InitRate:    *initRate,
			FinalRate:   *finalRate,
			WarmupSteps: *warmupSteps,
			HoldSteps:   *holdSteps,
			DecaySteps:  *decaySteps,
			TotalSteps:  *totalSteps,
		}
		if *initScale > 0 {
			cfg.InitRateScale = initScale
		}
		if *finalScale > 0 {
			cfg.FinalRateScale = finalScale
		}
		if *phaseRatio != "" {
			ratio, err := parseRatio(*phaseRatio)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Invalid -ratio: %v\n", err)
				os.Exit(1)
			}
			cfg.PhaseRatio = &ratio
		}

		triStage, err := schedule.NewTriStage(binding, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid schedule: %v\n", err)
			os.Exit(1)
		}
		sched = triStage
		warmup, hold, decay := triStage.PhaseSteps()
		steps = warmup + hold + decay + *extraSteps
	}

	if *csv {
		fmt.Println("step,rate")
	} else {
		if ts, ok := sched.(*schedule.TriStage); ok {
			warmup, hold, decay := ts.PhaseSteps()
			fmt.Printf("Tri-stage schedule: warmup=%d hold=%d decay=%d\n", warmup, hold, decay)
		}
		fmt.Printf("%8s  %-12s\n", "step", "rate")
	}

	for step := 0; step < steps; step++ {
		rate, err := sched.Step(schedule.NoLoss)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Schedule failed at step %d: %v\n", step, err)
			os.Exit(1)
		}
		if *csv {
			fmt.Printf("%d,%g\n", step, rate)
		} else {
			fmt.Printf("%8d  %-12g\n", step, rate)
		}
	}
}

// previewSteps picks how far to print a config-built schedule: the full
// tri-stage window when phase lengths are known, the configured training
// steps otherwise.
func previewSteps(sched schedule.Scheduler, cfg *config.Config, extra int) int {
	if ts, ok := sched.(*schedule.TriStage); ok {
		warmup, hold, decay := ts.PhaseSteps()
		return warmup + hold + decay + extra
	}
	if cfg.Training.Steps > 0 {
		return cfg.Training.Steps
	}
	return cfg.Schedule.TotalSteps + extra
}

// parseRatio parses "0.1,0.4,0.5" into a phase ratio
func parseRatio(s string) ([3]float64, error) {
	var ratio [3]float64
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return ratio, fmt.Errorf("expected 3 comma-separated values, got %d", len(parts))
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return ratio, fmt.Errorf("bad value %q: %w", p, err)
		}
		ratio[i] = v
	}
	return ratio, nil
}
