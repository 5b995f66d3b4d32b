package ga_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolforge/timetable-engine/internal/domain"
	"github.com/schoolforge/timetable-engine/internal/evaluator"
	"github.com/schoolforge/timetable-engine/internal/ga"
)

func gridSlots(days []domain.Day, periodsPerDay int) []domain.TimeSlot {
	var slots []domain.TimeSlot
	for _, d := range days {
		for p := 1; p <= periodsPerDay; p++ {
			slots = append(slots, domain.TimeSlot{
				ID:           domain.TimeSlotID(string(d) + string(rune('0'+p))),
				Day:          d,
				PeriodNumber: p,
			})
		}
	}
	return slots
}

func twoClassInput() ga.Input {
	homeA := domain.RoomID("home-a")
	homeB := domain.RoomID("home-b")
	classes := []domain.Class{
		{ID: "ca", Grade: 9, Name: "9A", HomeRoomID: &homeA},
		{ID: "cb", Grade: 9, Name: "9B", HomeRoomID: &homeB},
	}
	subjects := []domain.Subject{
		{ID: "math", Name: "Mathematics", PeriodsPerWeek: 2},
	}
	teachers := []domain.Teacher{
		{ID: "t1", Subjects: map[string]struct{}{"Mathematics": {}}, MaxPeriodsPerWeek: 10, MaxPeriodsPerDay: 5},
		{ID: "t2", Subjects: map[string]struct{}{"Mathematics": {}}, MaxPeriodsPerWeek: 10, MaxPeriodsPerDay: 5},
	}
	slots := gridSlots(domain.Days[:5], 4)

	seed := domain.Timetable{Entries: []domain.TimetableEntry{
		{ClassID: "ca", SubjectID: "math", TeacherID: "t1", RoomID: homeA, Day: domain.Monday, Period: 1, TimeSlotID: "MONDAY1"},
		{ClassID: "ca", SubjectID: "math", TeacherID: "t1", RoomID: homeA, Day: domain.Tuesday, Period: 1, TimeSlotID: "TUESDAY1"},
		{ClassID: "cb", SubjectID: "math", TeacherID: "t2", RoomID: homeB, Day: domain.Monday, Period: 2, TimeSlotID: "MONDAY2"},
		{ClassID: "cb", SubjectID: "math", TeacherID: "t2", RoomID: homeB, Day: domain.Tuesday, Period: 2, TimeSlotID: "TUESDAY2"},
	}}

	return ga.Input{
		Seeds:     []domain.Timetable{seed},
		Classes:   classes,
		Subjects:  subjects,
		Teachers:  teachers,
		TimeSlots: slots,
		Weights:   domain.DefaultWeights(),
		Params: ga.Params{
			PopulationSize: 8,
			Generations:    6,
			Elitism:        1,
			TournamentSize: 3,
			CrossoverRate:  0.7,
			MutationRate:   0.3,
			MaxRepairOps:   15,
			Patience:       10,
			Seed:           42,
			Workers:        2,
		},
	}
}

func seedScore(t *testing.T, in ga.Input) float64 {
	t.Helper()
	return evaluator.Evaluate(evaluator.Input{
		Timetable: in.Seeds[0],
		Classes:   in.Classes,
		Subjects:  in.Subjects,
		Teachers:  in.Teachers,
		Weights:   in.Weights,
	}).TotalScore
}

func TestEvolve_PreservesEntryCountAndNeverRegressesBelowSeed(t *testing.T) {
	in := twoClassInput()
	baseline := seedScore(t, in)

	result, err := ga.Evolve(context.Background(), in)

	require.NoError(t, err)
	assert.Len(t, result.Best.Entries, 4)
	assert.GreaterOrEqual(t, result.BestScore, baseline)
}

func TestEvolve_NoHardConflictsInBestIndividual(t *testing.T) {
	in := twoClassInput()

	result, err := ga.Evolve(context.Background(), in)
	require.NoError(t, err)

	teacherSlot := map[string]bool{}
	classSlot := map[string]bool{}
	for _, e := range result.Best.Entries {
		tk := string(e.TeacherID) + "|" + string(e.Day) + "|" + string(rune('0'+e.Period))
		ck := string(e.ClassID) + "|" + string(e.Day) + "|" + string(rune('0'+e.Period))
		assert.False(t, teacherSlot[tk], "teacher double-booked at %s", tk)
		assert.False(t, classSlot[ck], "class double-booked at %s", ck)
		teacherSlot[tk] = true
		classSlot[ck] = true
	}
}

func TestEvolve_DeterministicGivenSameSeed(t *testing.T) {
	in1 := twoClassInput()
	in2 := twoClassInput()

	r1, err1 := ga.Evolve(context.Background(), in1)
	r2, err2 := ga.Evolve(context.Background(), in2)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, r1.BestScore, r2.BestScore)
	assert.Equal(t, r1.GenerationsRun, r2.GenerationsRun)
	assert.Equal(t, r1.Best.Entries, r2.Best.Entries)
}

func TestEvolve_NoSeedsReturnsError(t *testing.T) {
	in := twoClassInput()
	in.Seeds = nil

	_, err := ga.Evolve(context.Background(), in)

	require.Error(t, err)
}

func TestEvolve_CancelledContextStopsEarly(t *testing.T) {
	in := twoClassInput()
	in.Params.Generations = 1000
	in.Params.Patience = 1000

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := ga.Evolve(ctx, in)

	require.Error(t, err)
	assert.Len(t, result.Best.Entries, 4)
}
