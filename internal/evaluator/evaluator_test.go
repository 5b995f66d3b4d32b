package evaluator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/schoolforge/timetable-engine/internal/domain"
	"github.com/schoolforge/timetable-engine/internal/evaluator"
)

func fullCoverageInput() evaluator.Input {
	classes := []domain.Class{{ID: "c1", Grade: 10, Name: "10A"}}
	subjects := []domain.Subject{{ID: "math", Name: "Mathematics", PeriodsPerWeek: 2}}
	teachers := []domain.Teacher{{ID: "t1", MaxConsecutivePeriods: 3}}
	entries := []domain.TimetableEntry{
		{ClassID: "c1", SubjectID: "math", TeacherID: "t1", Day: domain.Monday, Period: 1},
		{ClassID: "c1", SubjectID: "math", TeacherID: "t1", Day: domain.Tuesday, Period: 1},
	}
	return evaluator.Input{
		Timetable: domain.Timetable{Entries: entries},
		Classes:   classes,
		Subjects:  subjects,
		Teachers:  teachers,
		Weights:   domain.DefaultWeights(),
	}
}

func TestEvaluate_FullCoverageHasZeroCoveragePenalty(t *testing.T) {
	result := evaluator.Evaluate(fullCoverageInput())

	assert.Equal(t, 100.0, result.CoveragePercentage)
	assert.Equal(t, 1000.0, result.BaseScore)
	for _, p := range result.PenaltyBreakdown {
		if p.Kind == evaluator.PenaltyCoverage {
			assert.Equal(t, 0.0, p.RawScore)
		}
	}
}

func TestEvaluate_PartialCoverageScoresBelowFull(t *testing.T) {
	in := fullCoverageInput()
	in.Timetable.Entries = in.Timetable.Entries[:1] // only 1 of 2 required periods placed

	result := evaluator.Evaluate(in)

	assert.InDelta(t, 50.0, result.CoveragePercentage, 0.01)
	assert.Less(t, result.TotalScore, fullScore(t))
}

func fullScore(t *testing.T) float64 {
	t.Helper()
	return evaluator.Evaluate(fullCoverageInput()).TotalScore
}

func TestEvaluate_StudentGapsDetected(t *testing.T) {
	in := fullCoverageInput()
	in.Timetable.Entries = []domain.TimetableEntry{
		{ClassID: "c1", SubjectID: "math", TeacherID: "t1", Day: domain.Monday, Period: 1},
		{ClassID: "c1", SubjectID: "math", TeacherID: "t1", Day: domain.Monday, Period: 4}, // gap of 2
	}

	result := evaluator.Evaluate(in)

	found := false
	for _, p := range result.PenaltyBreakdown {
		if p.Kind == evaluator.PenaltyStudentGaps {
			assert.Equal(t, 2.0, p.RawScore)
			found = true
		}
	}
	assert.True(t, found)
}

func TestEvaluate_ConsecutivePeriodsOverLimit(t *testing.T) {
	classes := []domain.Class{{ID: "c1", Grade: 10, Name: "10A"}}
	subjects := []domain.Subject{{ID: "math", Name: "Mathematics", PeriodsPerWeek: 4}}
	teachers := []domain.Teacher{{ID: "t1", MaxConsecutivePeriods: 2}}
	entries := []domain.TimetableEntry{
		{ClassID: "c1", SubjectID: "math", TeacherID: "t1", Day: domain.Monday, Period: 1},
		{ClassID: "c1", SubjectID: "math", TeacherID: "t1", Day: domain.Monday, Period: 2},
		{ClassID: "c1", SubjectID: "math", TeacherID: "t1", Day: domain.Monday, Period: 3},
		{ClassID: "c1", SubjectID: "math", TeacherID: "t1", Day: domain.Monday, Period: 4},
	}
	in := evaluator.Input{
		Timetable: domain.Timetable{Entries: entries},
		Classes:   classes,
		Subjects:  subjects,
		Teachers:  teachers,
		Weights:   domain.DefaultWeights(),
	}

	result := evaluator.Evaluate(in)

	for _, p := range result.PenaltyBreakdown {
		if p.Kind == evaluator.PenaltyConsecutivePeriods {
			assert.Equal(t, 2.0, p.RawScore) // run of 4 - cap of 2 = 2
		}
	}
}

func TestEvaluateBatch_SummaryStats(t *testing.T) {
	full := fullCoverageInput()
	partial := fullCoverageInput()
	partial.Timetable.Entries = partial.Timetable.Entries[:1]

	batch := evaluator.EvaluateBatch([]evaluator.Input{full, partial})

	assert.Equal(t, 2, batch.Summary.Count)
	assert.GreaterOrEqual(t, batch.Summary.Best, batch.Summary.Worst)
	assert.GreaterOrEqual(t, batch.Summary.Mean, batch.Summary.Worst)
}
