// Package engine wires the Pre-Validator, Greedy Teacher Assigner, CSP
// Solver, Quality Evaluator, Ranking Service, GA Optimizer, and
// Post-Validator into the two entry points external callers use:
// Generate (spec.md 4 data flow) and Validate (the cheap feasibility-only
// path). It holds no package-level state; an Engine value is built once
// per process and reused concurrently across requests, the same
// dependency-inversion shape as the teacher's ScheduleGeneratorService.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/schoolforge/timetable-engine/internal/advisor"
	"github.com/schoolforge/timetable-engine/internal/csp"
	"github.com/schoolforge/timetable-engine/internal/domain"
	"github.com/schoolforge/timetable-engine/internal/evaluator"
	"github.com/schoolforge/timetable-engine/internal/ga"
	"github.com/schoolforge/timetable-engine/internal/postvalidate"
	"github.com/schoolforge/timetable-engine/internal/ranking"
	"github.com/schoolforge/timetable-engine/pkg/schederr"
)

// SessionStore persists a GA run's best-so-far Timetable under a
// session ID, satisfying the §4.12 persistence contract. Declared here
// rather than importing pkg/cache so the core never depends on Redis.
type SessionStore interface {
	Store(ctx context.Context, sessionID string, generation int, fitness float64, t *domain.Timetable) error
}

// Engine sequences every core phase behind Generate/Validate. Its
// fields are read-only collaborators: safe to share across goroutines,
// all mutable working state is local to one Generate call.
type Engine struct {
	advisor  *advisor.Advisor
	logger   *zap.Logger
	cache    ga.FitnessCache // optional; nil means ga.Evolve falls back to an in-memory cache
	sessions SessionStore    // optional; nil disables best-so-far persistence
	gaParams ga.Params       // optional override; zero value takes ga.DefaultParams
}

// New constructs an Engine. logger, cache, and sessions may be nil.
func New(logger *zap.Logger, cache ga.FitnessCache, sessions SessionStore, gaParams ga.Params) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		advisor:  advisor.New(),
		logger:   logger,
		cache:    cache,
		sessions: sessions,
		gaParams: gaParams,
	}
}

// Generate runs the full pipeline from spec.md's data-flow diagram:
// Pre-Validator gate -> CSP Solver (N base solutions, internally
// pre-assigning teachers) -> Evaluator ranks the base solutions -> GA
// Optimizer evolves them -> Evaluator re-scores the result ->
// Post-Validator verifies the best candidate -> GenerateResponse.
func (e *Engine) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResponse, error) {
	start := time.Now()
	req = req.WithDefaults()

	ctx, cancel := context.WithTimeout(ctx, time.Duration(req.TimeoutSeconds)*time.Second)
	defer cancel()

	feasibility := e.advisor.Advise(req.Classes, req.Subjects, req.Teachers, req.Rooms, req.TimeSlots, req.SubjectRequirements)
	if !feasibility.IsFeasible {
		return nil, schederr.InfeasibleConstraints(
			"pre-validation found the request infeasible before scheduling began",
			issueMessages(feasibility.CriticalIssues),
			feasibility.Suggestions,
		)
	}

	cspResult, err := csp.Solve(ctx, req)
	if err != nil {
		return nil, err
	}

	baseCandidates := e.evaluateAll(cspResult.Solutions, req)
	rankedBase := ranking.RankCandidates(baseCandidates, ranking.Criteria{SortBy: ranking.SortByTotalScore, Descending: true})
	if len(rankedBase) == 0 {
		return nil, schederr.InfeasibleConstraints("no base solution survived evaluation", cspResult.Conflicts, cspResult.Suggestions)
	}

	gaResult, err := ga.Evolve(ctx, ga.Input{
		Seeds:             cspResult.Solutions,
		Classes:           req.Classes,
		Subjects:          req.Subjects,
		Teachers:          req.Teachers,
		Rooms:             req.Rooms,
		TimeSlots:         req.TimeSlots,
		GradeRequirements: req.SubjectRequirements,
		Weights:           req.Weights,
		Params:            e.gaParamsFor(req),
		Cache:             e.cache,
	})
	if err != nil && !schederr.Is(err, schederr.KindCancelled) && !schederr.Is(err, schederr.KindTimeout) {
		return nil, schederr.InfeasibleConstraints("ga optimizer failed: "+err.Error(), cspResult.Conflicts, cspResult.Suggestions)
	}
	if err != nil {
		// Ran out of time mid-evolution: gaResult still carries the best
		// individual seen so far, so degrade gracefully instead of failing
		// the whole request.
		e.logger.Warn("ga optimizer stopped early", zap.Error(err))
	}

	if e.sessions != nil {
		sessionID := uuid.NewString()
		if err := e.sessions.Store(ctx, sessionID, gaResult.GenerationsRun, gaResult.BestScore, &gaResult.Best); err != nil {
			e.logger.Warn("failed to persist ga session progress", zap.String("session_id", sessionID), zap.Error(err))
		}
	}

	gaCandidate := ranking.Candidate{
		Timetable:  gaResult.Best,
		Evaluation: evaluator.Evaluate(evalInput(gaResult.Best, req)),
	}

	final := ranking.RankCandidates(append(append([]ranking.Candidate{}, baseCandidates...), gaCandidate),
		ranking.Criteria{SortBy: ranking.SortByTotalScore, Descending: true})
	final = ranking.TopN(final, req.NumSolutions)
	if len(final) == 0 {
		return nil, schederr.InfeasibleConstraints("no candidate solution survived final ranking", cspResult.Conflicts, cspResult.Suggestions)
	}

	best := final[0]
	report := postvalidate.Validate(postvalidate.Input{
		Timetable:         best.Candidate.Timetable,
		Classes:           req.Classes,
		Subjects:          req.Subjects,
		Teachers:          req.Teachers,
		Rooms:             req.Rooms,
		TimeSlots:         req.TimeSlots,
		GradeRequirements: req.SubjectRequirements,
	})
	if !report.IsValid {
		return nil, schederr.InfeasibleConstraints(
			"post-validation rejected the best candidate: a mandatory check failed",
			report.CriticalViolations,
			report.Suggestions,
		)
	}

	solutions := make([]domain.TimetableSolution, 0, len(final))
	for i, r := range final {
		sol := domain.TimetableSolution{
			Timetable:  r.Candidate.Timetable,
			TotalScore: r.Candidate.Evaluation.TotalScore,
			Feasible:   true,
			Metrics: domain.Metrics{
				ConstraintsSatisfied: 0,
				TotalConstraints:     0,
			},
		}
		if i == 0 {
			sol.Conflicts = report.CriticalViolations
			sol.Metrics.ConstraintsSatisfied = countPassed(report)
			sol.Metrics.TotalConstraints = len(report.Checks)
		}
		solutions = append(solutions, sol)
	}

	conflicts := append(append([]string{}, cspResult.Conflicts...), cspResult.AssignerWarnings...)
	suggestions := append(append(append([]string{}, cspResult.Suggestions...), feasibility.Suggestions...), report.Suggestions...)

	return &domain.GenerateResponse{
		Solutions:             solutions,
		GenerationTimeSeconds: time.Since(start).Seconds(),
		Conflicts:             conflicts,
		Suggestions:           suggestions,
		Diagnostics:           cspResult.Diagnostics,
	}, nil
}

// Validate runs only the Pre-Validator: a cheap feasibility check with
// no scheduling attempt, for callers that want a fast yes/no before
// committing to a full Generate call.
func (e *Engine) Validate(ctx context.Context, req domain.ValidateRequest) (*domain.ValidationResult, error) {
	select {
	case <-ctx.Done():
		return nil, schederr.Cancelled("validate")
	default:
	}

	report := e.advisor.Advise(req.Classes, req.Subjects, req.Teachers, req.Rooms, req.TimeSlots, req.SubjectRequirements)
	conflicts := issueMessages(report.CriticalIssues)
	conflicts = append(conflicts, issueMessages(report.Warnings)...)

	return &domain.ValidationResult{
		Feasible:    report.IsFeasible,
		Conflicts:   conflicts,
		Suggestions: report.Suggestions,
	}, nil
}

func (e *Engine) gaParamsFor(req domain.GenerateRequest) ga.Params {
	p := e.gaParams
	p.Seed = req.Seed
	return p
}

func (e *Engine) evaluateAll(solutions []domain.Timetable, req domain.GenerateRequest) []ranking.Candidate {
	candidates := make([]ranking.Candidate, 0, len(solutions))
	for _, t := range solutions {
		candidates = append(candidates, ranking.Candidate{
			Timetable:  t,
			Evaluation: evaluator.Evaluate(evalInput(t, req)),
		})
	}
	return candidates
}

func evalInput(t domain.Timetable, req domain.GenerateRequest) evaluator.Input {
	return evaluator.Input{
		Timetable:         t,
		Classes:           req.Classes,
		Subjects:          req.Subjects,
		Teachers:          req.Teachers,
		GradeRequirements: req.SubjectRequirements,
		Weights:           req.Weights,
	}
}

func issueMessages(issues []domain.Issue) []string {
	out := make([]string, 0, len(issues))
	for _, iss := range issues {
		out = append(out, fmt.Sprintf("[%s] %s", iss.Severity, iss.Message))
	}
	return out
}

func countPassed(r postvalidate.Report) int {
	n := 0
	for _, outcome := range r.Checks {
		if outcome.Passed {
			n++
		}
	}
	return n
}
