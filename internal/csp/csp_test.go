package csp_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolforge/timetable-engine/internal/csp"
	"github.com/schoolforge/timetable-engine/internal/domain"
)

func TestSolve_TinyFeasibleProducesFullCoverage(t *testing.T) {
	room := domain.RoomID("home-10a")
	classes := []domain.Class{{ID: "c1", Grade: 10, Name: "10A", HomeRoomID: &room}}
	subjects := []domain.Subject{
		{ID: "math", Name: "Mathematics", Code: "MATH", PeriodsPerWeek: 3},
		{ID: "eng", Name: "English", Code: "ENG", PeriodsPerWeek: 2},
	}
	teachers := []domain.Teacher{
		{ID: "t1", Subjects: map[string]struct{}{"Mathematics": {}}, MaxPeriodsPerWeek: 10, MaxPeriodsPerDay: 5},
		{ID: "t2", Subjects: map[string]struct{}{"English": {}}, MaxPeriodsPerWeek: 10, MaxPeriodsPerDay: 5},
	}
	rooms := []domain.Room{{ID: room, Type: domain.RoomClassroom}}
	slots := gridSlotsMulti(domain.Days[:5], 1)

	req := domain.GenerateRequest{
		Classes:                   classes,
		Subjects:                  subjects,
		Teachers:                  teachers,
		Rooms:                     rooms,
		TimeSlots:                 slots,
		NumSolutions:              1,
		EnforceTeacherConsistency: true,
		Seed:                      1,
	}

	result, err := csp.Solve(context.Background(), req)

	require.NoError(t, err)
	require.Len(t, result.Solutions, 1)
	assert.Len(t, result.Solutions[0].Entries, 5) // 3 math + 2 english periods placed
}

func gridSlotsMulti(days []domain.Day, periodsPerDay int) []domain.TimeSlot {
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

func TestSolve_NoConflictsAcrossSharedLabRoom(t *testing.T) {
	roomA := domain.RoomID("home-a")
	roomB := domain.RoomID("home-b")
	classes := []domain.Class{
		{ID: "ca", Grade: 9, Name: "9A", HomeRoomID: &roomA},
		{ID: "cb", Grade: 9, Name: "9B", HomeRoomID: &roomB},
	}
	subjects := []domain.Subject{
		{ID: "sci", Name: "Science", Code: "SCI", PeriodsPerWeek: 2, RequiresLab: true},
	}
	teachers := []domain.Teacher{
		{ID: "t1", Subjects: map[string]struct{}{"Science": {}}, MaxPeriodsPerWeek: 20, MaxPeriodsPerDay: 10},
		{ID: "t2", Subjects: map[string]struct{}{"Science": {}}, MaxPeriodsPerWeek: 20, MaxPeriodsPerDay: 10},
	}
	rooms := []domain.Room{
		{ID: roomA, Type: domain.RoomClassroom},
		{ID: roomB, Type: domain.RoomClassroom},
		{ID: "lab1", Type: domain.RoomLab},
	}
	slots := gridSlotsMulti(domain.Days[:5], 5)

	req := domain.GenerateRequest{
		Classes:                   classes,
		Subjects:                  subjects,
		Teachers:                  teachers,
		Rooms:                     rooms,
		TimeSlots:                 slots,
		NumSolutions:              1,
		EnforceTeacherConsistency: true,
		Seed:                      7,
	}

	result, err := csp.Solve(context.Background(), req)

	require.NoError(t, err)
	require.Len(t, result.Solutions, 1)
	entries := result.Solutions[0].Entries
	assert.Len(t, entries, 4)

	seen := map[string]bool{}
	for _, e := range entries {
		key := string(e.RoomID) + "|" + string(e.Day) + "|" + strconv.Itoa(e.Period)
		assert.False(t, seen[key], "lab room double-booked at %s", key)
		seen[key] = true
	}
}

func TestSolve_InfeasibleDemandReturnsSchedulerError(t *testing.T) {
	classes := []domain.Class{{ID: "c1", Grade: 10, Name: "10A"}}
	subjects := []domain.Subject{{ID: "math", Name: "Mathematics", Code: "MATH", PeriodsPerWeek: 5}}
	teachers := []domain.Teacher{
		{ID: "t1", Subjects: map[string]struct{}{"Mathematics": {}}, MaxPeriodsPerWeek: 2},
	}
	slots := gridSlotsMulti(domain.Days[:5], 5)

	req := domain.GenerateRequest{
		Classes:                   classes,
		Subjects:                  subjects,
		Teachers:                  teachers,
		TimeSlots:                 slots,
		NumSolutions:              1,
		EnforceTeacherConsistency: true,
	}

	_, err := csp.Solve(context.Background(), req)

	require.Error(t, err)
}
