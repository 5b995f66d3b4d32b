package ga

// Params are the GA Optimizer's tuning knobs (spec.md 4.7). Defaults
// match the spec's named constants exactly.
type Params struct {
	PopulationSize int
	Generations    int
	Elitism        int
	TournamentSize int
	CrossoverRate  float64
	MutationRate   float64
	MaxRepairOps   int
	Patience       int
	Seed           int64
	Workers        int
}

// DefaultParams returns the spec.md 4.7 defaults: tournament size 3,
// crossover rate 0.7, mutation rate 0.15 per individual.
func DefaultParams() Params {
	return Params{
		PopulationSize: 20,
		Generations:    50,
		Elitism:        2,
		TournamentSize: 3,
		CrossoverRate:  0.7,
		MutationRate:   0.15,
		MaxRepairOps:   20,
		Patience:       10,
		Workers:        4,
	}
}

// WithDefaults replaces every non-positive field with DefaultParams'
// value; Elitism is replaced only when negative (0 is kept), and Seed is
// never changed.
func (p Params) WithDefaults() Params {
	d := DefaultParams()
	if p.PopulationSize <= 0 {
		p.PopulationSize = d.PopulationSize
	}
	if p.Generations <= 0 {
		p.Generations = d.Generations
	}
	if p.Elitism < 0 {
		p.Elitism = d.Elitism
	}
	if p.TournamentSize <= 0 {
		p.TournamentSize = d.TournamentSize
	}
	if p.CrossoverRate <= 0 {
		p.CrossoverRate = d.CrossoverRate
	}
	if p.MutationRate <= 0 {
		p.MutationRate = d.MutationRate
	}
	if p.MaxRepairOps <= 0 {
		p.MaxRepairOps = d.MaxRepairOps
	}
	if p.Patience <= 0 {
		p.Patience = d.Patience
	}
	if p.Workers <= 0 {
		p.Workers = d.Workers
	}
	return p
}
