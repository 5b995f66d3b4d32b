// Package ga implements the GA Optimizer (spec.md 4.7): it evolves the
// CSP Solver's feasible base solutions on soft objectives while never
// letting a hard invariant lapse - every operator is repair-bound, and
// an individual that can't be repaired within budget is discarded.
package ga

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/schoolforge/timetable-engine/internal/domain"
	"github.com/schoolforge/timetable-engine/internal/evaluator"
	"github.com/schoolforge/timetable-engine/pkg/schederr"
)

// Input bundles one Evolve call's seed population and reference data.
type Input struct {
	Seeds             []domain.Timetable
	Classes           []domain.Class
	Subjects          []domain.Subject
	Teachers          []domain.Teacher
	Rooms             []domain.Room
	TimeSlots         []domain.TimeSlot
	GradeRequirements []domain.GradeSubjectRequirement
	Weights           domain.OptimizationWeights
	Params            Params
	Cache             FitnessCache // optional; defaults to a per-call in-memory cache
}

// Result is Evolve's output: the best individual found plus a short
// run summary.
type Result struct {
	Best           domain.Timetable
	BestScore      float64
	GenerationsRun int
	Stagnated      bool
}

var errNoSeeds = errors.New("ga: no seed solutions supplied")

// Evolve runs the generational loop described in spec.md 4.7: select,
// crossover, mutate, repair, evaluate, and re-form the population with
// elitism, terminating early on stagnation or context cancellation.
func Evolve(ctx context.Context, in Input) (Result, error) {
	if len(in.Seeds) == 0 {
		return Result{}, schederr.Internal("ga.Evolve", errNoSeeds)
	}

	start := time.Now()
	params := in.Params.WithDefaults()
	cache := in.Cache
	if cache == nil {
		cache = newMemoryCache()
	}
	e := newEnv(in.Classes, in.Subjects, in.Teachers, in.TimeSlots)
	rng := rand.New(rand.NewSource(params.Seed))

	pop := buildInitialPopulation(in.Seeds, params.PopulationSize)
	evaluateAll(pop, in, cache, params.Workers)
	sortPopDesc(pop)

	best := pop[0]
	stagnant := 0
	generationsRun := 0

	for gen := 0; gen < params.Generations; gen++ {
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return resultFrom(best, generationsRun, false), schederr.Timeout("ga", time.Since(start).Seconds(), fmt.Sprintf("%d generations run", generationsRun))
			}
			return resultFrom(best, generationsRun, false), schederr.Cancelled("ga")
		default:
		}

		next := nextGeneration(pop, e, rng, params)
		evaluateAll(next, in, cache, params.Workers)
		sortPopDesc(next)
		pop = next
		generationsRun++

		if pop[0].score > best.score+1e-9 {
			best = pop[0]
			stagnant = 0
		} else {
			stagnant++
		}
		if stagnant >= params.Patience {
			return resultFrom(best, generationsRun, true), nil
		}
	}

	return resultFrom(best, generationsRun, false), nil
}

func nextGeneration(pop []individual, e *env, rng *rand.Rand, params Params) []individual {
	next := make([]individual, 0, params.PopulationSize)

	elitism := params.Elitism
	if elitism > len(pop) {
		elitism = len(pop)
	}
	for i := 0; i < elitism; i++ {
		next = append(next, individual{entries: cloneEntries(pop[i].entries)})
	}

	for len(next) < params.PopulationSize {
		parentA := tournamentSelect(pop, rng, params.TournamentSize)

		childEntries := cloneEntries(parentA.entries)
		if rng.Float64() < params.CrossoverRate {
			parentB := tournamentSelect(pop, rng, params.TournamentSize)
			crossed := dayCrossover(parentA, parentB, rng)
			if repair(crossed, e, params.MaxRepairOps) {
				childEntries = crossed
			}
			// repair failed: child stays parent A unchanged, per spec.md 4.7.
		}

		if rng.Float64() < params.MutationRate {
			mutated, changed := mutate(childEntries, e, rng)
			if changed && repair(mutated, e, params.MaxRepairOps) {
				childEntries = mutated
			}
			// unrepairable mutation is discarded; childEntries keeps its
			// pre-mutation value.
		}

		next = append(next, individual{entries: childEntries})
	}
	return next
}

// buildInitialPopulation seeds the population from the CSP's feasible
// base solutions, cycling through them when fewer seeds than
// PopulationSize were supplied.
func buildInitialPopulation(seeds []domain.Timetable, size int) []individual {
	pop := make([]individual, size)
	for i := range pop {
		seed := seeds[i%len(seeds)]
		pop[i] = individual{entries: cloneEntries(seed.Entries)}
	}
	return pop
}

// evaluateAll scores every individual concurrently on a bounded worker
// pool, the same channel-gated goroutine shape as pkg/jobs.Queue,
// since GA fitness evaluation is embarrassingly parallel (spec.md 5).
func evaluateAll(pop []individual, in Input, cache FitnessCache, workers int) {
	if workers < 1 {
		workers = 1
	}
	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	for i := range pop {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			pop[idx].score = scoreIndividual(pop[idx].entries, in, cache)
		}(i)
	}
	wg.Wait()
}

func scoreIndividual(entries []domain.TimetableEntry, in Input, cache FitnessCache) float64 {
	hash := structuralHash(entries)
	if score, ok := cache.Get(hash); ok {
		return score
	}
	result := evaluator.Evaluate(evaluator.Input{
		Timetable:         domain.Timetable{Entries: entries},
		Classes:           in.Classes,
		Subjects:          in.Subjects,
		Teachers:          in.Teachers,
		GradeRequirements: in.GradeRequirements,
		Weights:           in.Weights,
	})
	cache.Put(hash, result.TotalScore)
	return result.TotalScore
}

func sortPopDesc(pop []individual) {
	sort.SliceStable(pop, func(i, j int) bool { return pop[i].score > pop[j].score })
}

func resultFrom(best individual, generations int, stagnated bool) Result {
	t := domain.Timetable{Entries: cloneEntries(best.entries)}
	t.SortEntries()
	return Result{Best: t, BestScore: best.score, GenerationsRun: generations, Stagnated: stagnated}
}
