package csp

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/schoolforge/timetable-engine/internal/assigner"
	"github.com/schoolforge/timetable-engine/internal/domain"
	"github.com/schoolforge/timetable-engine/pkg/schederr"
)

// Result is the CSP Solver's output contract (spec.md 4.4).
type Result struct {
	Solutions       []domain.Timetable
	ElapsedSeconds  float64
	Conflicts       []string
	Suggestions     []string
	Diagnostics     *domain.Diagnostics
	AssignerWarnings []string
}

// Solve runs the full pipeline described in spec.md 4.4.1: pre-assign
// teachers (4.3) when requested, build and order the lesson list, then
// backtrack to num_solutions distinct, fully-covered, conflict-free
// timetables. It never mutates its inputs, and is safe to run
// concurrently across independent requests (no package-level state).
func Solve(ctx context.Context, req domain.GenerateRequest) (*Result, error) {
	start := nowFunc()

	var teacherOf map[assigner.PairKey]domain.TeacherID
	var assignerWarnings []string
	if req.EnforceTeacherConsistency {
		assignment, err := assigner.Assign(req.Classes, req.Subjects, req.Teachers, req.SubjectRequirements)
		if err != nil {
			return nil, err
		}
		teacherOf = assignment.TeacherOf
		assignerWarnings = assignment.Warnings
	}

	baseLessons := buildLessons(req.Classes, req.Subjects, req.Teachers, req.SubjectRequirements, teacherOf, req.EnforceTeacherConsistency)

	numSolutions := req.NumSolutions
	if numSolutions <= 0 {
		numSolutions = 1
	}

	var solutions []domain.Timetable
	var conflicts []string
	var diagnostics *domain.Diagnostics

	for i := 0; i < numSolutions; i++ {
		lessons := reorderWithinBands(baseLessons, req.Seed+int64(i))
		entries, warnings, diag, err := solveWithFallback(ctx, req, lessons)
		if err != nil {
			if diag != nil {
				diagnostics = diag
			}
			if i == 0 {
				if ctx.Err() == context.DeadlineExceeded {
					return nil, schederr.Timeout("csp", nowFunc().Sub(start).Seconds(), err.Error())
				}
				if ctx.Err() != nil {
					return nil, schederr.Cancelled("csp")
				}
				return nil, err
			}
			// Later solutions failing is a soft event: we already have at
			// least one feasible timetable to return.
			conflicts = append(conflicts, err.Error())
			break
		}
		assignerWarnings = append(assignerWarnings, warnings...)

		t := domain.Timetable{
			ID:             domain.TimetableID(fmt.Sprintf("solution-%d", i+1)),
			SchoolID:       req.SchoolID,
			AcademicYearID: req.AcademicYearID,
			Status:         domain.StatusDraft,
			Entries:        entries,
		}
		t.SortEntries()
		solutions = append(solutions, t)
	}

	if len(solutions) == 0 {
		return nil, schederr.InfeasibleConstraints(
			"CSP solver produced zero feasible solutions",
			conflicts,
			suggestionsFromDiagnostics(diagnostics),
		)
	}

	return &Result{
		Solutions:        solutions,
		ElapsedSeconds:   nowFunc().Sub(start).Seconds(),
		Conflicts:        conflicts,
		Suggestions:      suggestionsFromDiagnostics(diagnostics),
		Diagnostics:      diagnostics,
		AssignerWarnings: assignerWarnings,
	}, nil
}

func solveWithFallback(ctx context.Context, req domain.GenerateRequest, lessons []Lesson) ([]domain.TimetableEntry, []string, *domain.Diagnostics, error) {
	entries, warnings, failIdx, ok := attemptWithFallback(ctx, req.Classes, req.Subjects, req.Teachers, req.Rooms, req.TimeSlots, lessons)
	if ok {
		return entries, warnings, nil, nil
	}

	diag := buildDiagnostics(lessons, failIdx)
	failingDesc := "unknown lesson"
	if failIdx >= 0 && failIdx < len(lessons) {
		l := lessons[failIdx]
		failingDesc = fmt.Sprintf("class %s subject %s", l.ClassID, l.SubjectID)
	}
	return nil, warnings, diag, schederr.InfeasibleConstraints(
		fmt.Sprintf("could not place every lesson; first unplaceable: %s", failingDesc),
		nil,
		suggestionsFromDiagnostics(diag),
	)
}

func buildDiagnostics(lessons []Lesson, failIdx int) *domain.Diagnostics {
	diag := &domain.Diagnostics{BindingResources: map[string]int{}}
	if failIdx < 0 || failIdx >= len(lessons) {
		return diag
	}
	l := lessons[failIdx]
	diag.EmptyCandidateLessons = append(diag.EmptyCandidateLessons, fmt.Sprintf("%s/%s", l.ClassID, l.SubjectID))
	diag.BindingResources[fmt.Sprintf("teacher:%s", l.TeacherID)]++
	if l.RequiresLab {
		diag.BindingResources["resource:lab_rooms"]++
	}
	diag.TopSuggestions = []string{
		fmt.Sprintf("Review capacity and availability for teacher %s and class %s.", l.TeacherID, l.ClassID),
	}
	return diag
}

func suggestionsFromDiagnostics(diag *domain.Diagnostics) []string {
	if diag == nil {
		return nil
	}
	return diag.TopSuggestions
}

// reorderWithinBands implements spec.md 4.4.5: "Generate num_solutions
// by re-seeding the tie-break PRNG and reordering lessons within
// priority bands." A band is a maximal run of lessons that share lab
// requirement, teacher weekly demand, subject priority, and class grade
// (sortLessons's key without its class-id/subject-id tie-breaks);
// shuffling only within a band preserves those ordering criteria.
func reorderWithinBands(lessons []Lesson, seed int64) []Lesson {
	out := make([]Lesson, len(lessons))
	copy(out, lessons)
	if len(out) < 2 {
		return out
	}

	rng := rand.New(rand.NewSource(seed))
	start := 0
	for i := 1; i <= len(out); i++ {
		if i < len(out) && sameBand(out[i-1], out[i]) {
			continue
		}
		shuffleRange(out[start:i], rng)
		start = i
	}
	return out
}

func sameBand(a, b Lesson) bool {
	return a.RequiresLab == b.RequiresLab &&
		a.TeacherWeeklyDemand == b.TeacherWeeklyDemand &&
		a.SubjectPriority == b.SubjectPriority &&
		a.ClassGrade == b.ClassGrade
}

func shuffleRange(band []Lesson, rng *rand.Rand) {
	for i := len(band) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		band[i], band[j] = band[j], band[i]
	}
}

// nowFunc is a seam so tests can exercise Solve without depending on
// wall-clock time; production always uses time.Now.
var nowFunc = time.Now
