// Package evaluator implements the Quality Evaluator (spec.md 4.5): a
// pure scoring function over a Timetable, producing the weighted
// penalty breakdown the Ranking Service and GA Optimizer both consume.
package evaluator

import (
	"math"
	"sort"

	"github.com/schoolforge/timetable-engine/internal/domain"
)

// PenaltyKind names one of the five soft-objective penalty formulas
// from spec.md 4.5.
type PenaltyKind string

const (
	PenaltyCoverage           PenaltyKind = "coverage"
	PenaltyWorkloadImbalance  PenaltyKind = "workload_imbalance"
	PenaltyStudentGaps        PenaltyKind = "student_gaps"
	PenaltyTimePreferences    PenaltyKind = "time_preferences"
	PenaltyConsecutivePeriods PenaltyKind = "consecutive_periods"
)

// PenaltyItem is one scored penalty kind (spec.md 4.5).
type PenaltyItem struct {
	Kind          PenaltyKind
	RawScore      float64
	Weight        float64
	WeightedScore float64
	Description   string
	Details       map[string]any
}

// Result is the Quality Evaluator's output contract.
type Result struct {
	TotalScore         float64
	CoveragePercentage float64
	BaseScore          float64
	PenaltyBreakdown   []PenaltyItem
}

// Input bundles a Timetable with the reference data its penalty
// formulas need (required demand for coverage, teacher caps for
// consecutive-run and workload scoring).
type Input struct {
	Timetable         domain.Timetable
	Classes           []domain.Class
	Subjects          []domain.Subject
	Teachers          []domain.Teacher
	GradeRequirements []domain.GradeSubjectRequirement
	Weights           domain.OptimizationWeights
}

// Evaluate scores one Timetable per spec.md 4.5. It never mutates its
// input.
func Evaluate(in Input) Result {
	overrides := domain.BuildGradeOverrides(in.GradeRequirements)
	required := requiredEntryCount(in.Classes, in.Subjects, overrides)
	filled := len(in.Timetable.Entries)

	coverageFraction := 1.0
	if required > 0 {
		coverageFraction = float64(filled) / float64(required)
		if coverageFraction > 1 {
			coverageFraction = 1
		}
	}

	w := in.Weights
	items := []PenaltyItem{
		coveragePenalty(in, required, filled, w.Coverage),
		workloadImbalancePenalty(in.Timetable.Entries, in.Teachers, w.WorkloadBalance),
		studentGapsPenalty(in.Timetable.Entries, w.GapMinimization),
		timePreferencesPenalty(in.Timetable.Entries, w.TimePreferences, w.MorningPeriodCutoff),
		consecutivePeriodsPenalty(in.Timetable.Entries, in.Teachers, w.ConsecutivePeriods),
	}

	var weightedSum float64
	for _, item := range items {
		weightedSum += item.WeightedScore
	}

	baseScore := 1000 * coverageFraction
	total := baseScore - weightedSum
	if total < 0 {
		total = 0
	}

	return Result{
		TotalScore:         total,
		CoveragePercentage: coverageFraction * 100,
		BaseScore:          baseScore,
		PenaltyBreakdown:   items,
	}
}

// Summary aggregates a batch evaluation (spec.md 4.5, "Batch evaluation").
type Summary struct {
	Best  float64
	Worst float64
	Mean  float64
	Stdev float64
	Count int
}

// BatchResult is the output of evaluating many timetables together.
type BatchResult struct {
	Evaluations []Result
	Summary     Summary
}

// EvaluateBatch scores every input and summarizes total scores.
func EvaluateBatch(inputs []Input) BatchResult {
	results := make([]Result, len(inputs))
	scores := make([]float64, len(inputs))
	for i, in := range inputs {
		results[i] = Evaluate(in)
		scores[i] = results[i].TotalScore
	}
	return BatchResult{Evaluations: results, Summary: summarize(scores)}
}

func summarize(scores []float64) Summary {
	if len(scores) == 0 {
		return Summary{}
	}
	best, worst := scores[0], scores[0]
	var sum float64
	for _, s := range scores {
		if s > best {
			best = s
		}
		if s < worst {
			worst = s
		}
		sum += s
	}
	mean := sum / float64(len(scores))
	var variance float64
	for _, s := range scores {
		d := s - mean
		variance += d * d
	}
	variance /= float64(len(scores))
	return Summary{Best: best, Worst: worst, Mean: mean, Stdev: math.Sqrt(variance), Count: len(scores)}
}

// requiredEntryCount is the total (class, subject) period demand,
// which equals the expected entry count of a fully-covered timetable
// (spec.md 4.4.6, "Coverage completion").
func requiredEntryCount(classes []domain.Class, subjects []domain.Subject, overrides domain.GradeOverrides) int {
	total := 0
	for _, c := range classes {
		total += domain.RequiredPeriodsForClass(c, subjects, overrides)
	}
	return total
}

// priorityPenalty maps an unfilled slot's priority to its point value
// (spec.md 4.5.1). MANDATORY is treated the same as HIGH since the
// spec names only high/medium/low; an unfilled mandatory slot is, by
// construction, at least as bad as an unfilled high-priority one.
func priorityPenalty(p domain.ConstraintPriority) float64 {
	switch p {
	case domain.PriorityHigh, domain.PriorityMandatory:
		return 10
	case domain.PriorityMedium:
		return 5
	case domain.PriorityLow:
		return 2
	default:
		return 5
	}
}

// coveragePenalty accounts for unfilled slots (spec.md 4.5.1). After a
// successful CSP run required == filled and this is always zero; it
// stays generalized so the evaluator also scores partial/repair-failed
// GA individuals correctly.
func coveragePenalty(in Input, required, filled int, weight float64) PenaltyItem {
	unfilled := required - filled
	if unfilled < 0 {
		unfilled = 0
	}
	raw := float64(unfilled) * priorityPenalty(domain.PriorityMedium)
	return penaltyItem(PenaltyCoverage, raw, weight, "unfilled slots weighted by priority", map[string]any{"unfilled": unfilled})
}

// workloadImbalancePenalty is the population standard deviation of
// per-teacher assignment counts (spec.md 4.5.2); 0 when fewer than two
// teachers are counted. Every listed teacher is counted, even one with no
// assignments, plus any teacher that appears only in entries.
func workloadImbalancePenalty(entries []domain.TimetableEntry, teachers []domain.Teacher, weight float64) PenaltyItem {
	counts := make(map[domain.TeacherID]int)
	for _, t := range teachers {
		counts[t.ID] = 0
	}
	for _, e := range entries {
		counts[e.TeacherID]++
	}
	if len(counts) < 2 {
		return penaltyItem(PenaltyWorkloadImbalance, 0, weight, "teacher workload standard deviation", nil)
	}

	values := make([]float64, 0, len(counts))
	for _, c := range counts {
		values = append(values, float64(c))
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	raw := math.Sqrt(variance)
	return penaltyItem(PenaltyWorkloadImbalance, raw, weight, "teacher workload standard deviation", map[string]any{"teacherCount": len(counts)})
}

// studentGapsPenalty counts intra-day gaps between a class's scheduled
// periods (spec.md 4.5.3), grounded on the teacher's
// calculateGapPenalty day-by-day scan.
func studentGapsPenalty(entries []domain.TimetableEntry, weight float64) PenaltyItem {
	type classDay struct {
		ClassID domain.ClassID
		Day     domain.Day
	}
	periodsByClassDay := make(map[classDay][]int)
	for _, e := range entries {
		key := classDay{e.ClassID, e.Day}
		periodsByClassDay[key] = append(periodsByClassDay[key], e.Period)
	}

	var totalGaps int
	for _, periods := range periodsByClassDay {
		if len(periods) < 2 {
			continue
		}
		sort.Ints(periods)
		for i := 0; i < len(periods)-1; i++ {
			diff := periods[i+1] - periods[i]
			if diff > 1 {
				totalGaps += diff - 1
			}
		}
	}
	return penaltyItem(PenaltyStudentGaps, float64(totalGaps), weight, "intra-day gaps between scheduled periods", map[string]any{"gaps": totalGaps})
}

// timePreferencesPenalty scores each entry against its subject's time
// preferences (spec.md 4.5.4).
func timePreferencesPenalty(entries []domain.TimetableEntry, weight float64, morningCutoff int) PenaltyItem {
	var raw float64
	violations := 0
	for _, e := range entries {
		meta := e.SubjectMeta
		counted := false
		if meta.PreferMorning && e.Period > morningCutoff {
			raw++
			counted = true
		}
		if !counted && len(meta.PreferredPeriods) > 0 {
			if _, ok := meta.PreferredPeriods[e.Period]; !ok {
				raw++
				counted = true
			}
		}
		if _, avoided := meta.AvoidPeriods[e.Period]; avoided {
			raw++
			counted = true
		}
		if counted {
			violations++
		}
	}
	return penaltyItem(PenaltyTimePreferences, raw, weight, "entries violating time preferences", map[string]any{"violatingEntries": violations})
}

// consecutivePeriodsPenalty scans each teacher-day for maximal
// consecutive runs and penalizes any run exceeding the teacher's cap
// (spec.md 4.5.5).
func consecutivePeriodsPenalty(entries []domain.TimetableEntry, teachers []domain.Teacher, weight float64) PenaltyItem {
	maxConsecutive := make(map[domain.TeacherID]int, len(teachers))
	for _, t := range teachers {
		maxConsecutive[t.ID] = t.MaxConsecutivePeriods
	}

	type teacherDay struct {
		TeacherID domain.TeacherID
		Day       domain.Day
	}
	periodsByTeacherDay := make(map[teacherDay][]int)
	for _, e := range entries {
		key := teacherDay{e.TeacherID, e.Day}
		periodsByTeacherDay[key] = append(periodsByTeacherDay[key], e.Period)
	}

	var raw float64
	for key, periods := range periodsByTeacherDay {
		k := maxConsecutive[key.TeacherID]
		if k <= 0 {
			continue
		}
		sort.Ints(periods)
		run := 1
		for i := 1; i < len(periods); i++ {
			if periods[i] == periods[i-1]+1 {
				run++
			} else {
				raw += overflow(run, k)
				run = 1
			}
		}
		raw += overflow(run, k)
	}
	return penaltyItem(PenaltyConsecutivePeriods, raw, weight, "consecutive-period runs exceeding the teacher's cap", nil)
}

func overflow(run, limit int) float64 {
	if run > limit {
		return float64(run - limit)
	}
	return 0
}

func penaltyItem(kind PenaltyKind, raw, weight float64, description string, details map[string]any) PenaltyItem {
	return PenaltyItem{
		Kind:          kind,
		RawScore:      raw,
		Weight:        weight,
		WeightedScore: raw * weight,
		Description:   description,
		Details:       details,
	}
}
