package optimizer

import (
	"gorgonia.org/gorgonia"
)

// SolverFactory builds a gorgonia solver configured for the given learn rate.
type SolverFactory func(rate float64) gorgonia.Solver

// SolverGroup adapts a gorgonia solver to the ParamGroup interface. Gorgonia
// solvers fix their learn rate at construction, so changing the rate means
// rebuilding the solver; optimizer state held by the old solver (Adam moments
// etc.) is discarded on rebuild, matching how the rest of the training stack
// decays rates.
type SolverGroup struct {
	rate    float64
	factory SolverFactory
	solver  gorgonia.Solver
}

// NewSolverGroup creates a solver-backed parameter group at an initial rate
func NewSolverGroup(rate float64, factory SolverFactory) *SolverGroup {
	return &SolverGroup{
		rate:    rate,
		factory: factory,
		solver:  factory(rate),
	}
}

// Rate returns the learn rate the current solver was built with
func (g *SolverGroup) Rate() float64 {
	return g.rate
}

// SetRate rebuilds the solver if the rate actually changed
func (g *SolverGroup) SetRate(rate float64) {
	if rate == g.rate {
		return
	}
	g.rate = rate
	g.solver = g.factory(rate)
}

// Solver returns the current solver for gradient application
func (g *SolverGroup) Solver() gorgonia.Solver {
	return g.solver
}

// AdamFactory returns a factory producing Adam solvers with the given batch
// size and gradient clip
func AdamFactory(batchSize int, clip float64) SolverFactory {
	return func(rate float64) gorgonia.Solver {
		return gorgonia.NewAdamSolver(
			gorgonia.WithLearnRate(rate),
			gorgonia.WithBatchSize(float64(batchSize)),
			gorgonia.WithClip(clip),
		)
	}
}

// VanillaFactory returns a factory producing plain SGD solvers
func VanillaFactory(batchSize int) SolverFactory {
	return func(rate float64) gorgonia.Solver {
		return gorgonia.NewVanillaSolver(
			gorgonia.WithLearnRate(rate),
			gorgonia.WithBatchSize(float64(batchSize)),
		)
	}
}

// SolverSet is an Optimizer over one or more solver-backed groups.
type SolverSet struct {
	groups []*SolverGroup
}

// NewSolverSet creates a SolverSet from solver groups
func NewSolverSet(groups ...*SolverGroup) *SolverSet {
	return &SolverSet{groups: groups}
}

// ParamGroups returns the groups as the generic interface
func (s *SolverSet) ParamGroups() []ParamGroup {
	out := make([]ParamGroup, len(s.groups))
	for i, g := range s.groups {
		out[i] = g
	}
	return out
}

// Groups returns the concrete solver groups
func (s *SolverSet) Groups() []*SolverGroup {
	return s.groups
}
