package optimizer

// ParamGroup is a subset of an optimizer's parameters that carries its own
// learning rate.
type ParamGroup interface {
	Rate() float64
	SetRate(rate float64)
}

// Optimizer exposes the parameter groups of an optimization process.
type Optimizer interface {
	ParamGroups() []ParamGroup
}

// Binding is the single point of contact between a schedule and an optimizer.
type Binding struct {
	opt Optimizer
}

// NewBinding creates a binding around an optimizer
func NewBinding(opt Optimizer) *Binding {
	return &Binding{opt: opt}
}

// ApplyRate sets the learning rate on every parameter group
func (b *Binding) ApplyRate(rate float64) {
	for _, g := range b.opt.ParamGroups() {
		g.SetRate(rate)
	}
}

// ReadRate returns the learning rate of the first parameter group
func (b *Binding) ReadRate() float64 {
	groups := b.opt.ParamGroups()
	if len(groups) == 0 {
		return 0
	}
	return groups[0].Rate()
}

// Snapshot returns the learning rate of every parameter group, in order
func (b *Binding) Snapshot() []float64 {
	groups := b.opt.ParamGroups()
	rates := make([]float64, len(groups))
	for i, g := range groups {
		rates[i] = g.Rate()
	}
	return rates
}

// group is a plain in-memory parameter group.
type group struct {
	rate float64
}

func (g *group) Rate() float64        { return g.rate }
func (g *group) SetRate(rate float64) { g.rate = rate }

// GroupSet is an in-memory Optimizer with a fixed number of parameter groups.
// It carries no parameters of its own; tools that only need the rate values
// (previews, tests) use it in place of a real solver.
type GroupSet struct {
	groups []ParamGroup
}

// NewGroupSet creates a GroupSet with one group per initial rate
func NewGroupSet(rates ...float64) *GroupSet {
	groups := make([]ParamGroup, len(rates))
	for i, r := range rates {
		groups[i] = &group{rate: r}
	}
	return &GroupSet{groups: groups}
}

// ParamGroups returns the parameter groups
func (s *GroupSet) ParamGroups() []ParamGroup {
	return s.groups
}
