package advisor_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolforge/timetable-engine/internal/advisor"
	"github.com/schoolforge/timetable-engine/internal/domain"
)

func slotsGrid(days int, periodsPerDay int) []domain.TimeSlot {
	var slots []domain.TimeSlot
	for d := 0; d < days; d++ {
		for p := 1; p <= periodsPerDay; p++ {
			slots = append(slots, domain.TimeSlot{
				ID:           domain.TimeSlotID(fmt.Sprintf("%s-%d", domain.Days[d], p)),
				Day:          domain.Days[d],
				PeriodNumber: p,
			})
		}
	}
	return slots
}

func TestAdvisor_InfeasibleTeacherCapacity(t *testing.T) {
	// spec.md 8 scenario 3: 3 classes x Math 5/wk = 15 needed, one
	// teacher capped at 8/week -> deficit of 7.
	math := domain.Subject{ID: "math", Name: "Mathematics", Code: "MATH", PeriodsPerWeek: 5}
	classes := []domain.Class{
		{ID: "c1", Grade: 10, Name: "10A"},
		{ID: "c2", Grade: 10, Name: "10B"},
		{ID: "c3", Grade: 10, Name: "10C"},
	}
	teachers := []domain.Teacher{
		{ID: "t1", Subjects: map[string]struct{}{"Mathematics": {}}, MaxPeriodsPerWeek: 8},
	}
	rooms := []domain.Room{{ID: "r1", Type: domain.RoomClassroom}}
	slots := slotsGrid(5, 5)

	report := advisor.New().Advise(classes, []domain.Subject{math}, teachers, rooms, slots, nil)

	require.False(t, report.IsFeasible)
	require.NotEmpty(t, report.CriticalIssues)
	found := false
	for _, s := range report.Suggestions {
		if strings.Contains(s, "Mathematics") && strings.Contains(s, "7") {
			found = true
		}
	}
	assert.True(t, found, "expected a suggestion naming Mathematics and a deficit of 7, got %v", report.Suggestions)
}

func TestAdvisor_TinyFeasible(t *testing.T) {
	math := domain.Subject{ID: "math", Name: "Mathematics", Code: "MATH", PeriodsPerWeek: 3}
	eng := domain.Subject{ID: "eng", Name: "English", Code: "ENG", PeriodsPerWeek: 2}
	room := domain.RoomID("r1")
	classes := []domain.Class{{ID: "c1", Grade: 10, Name: "10A", StudentCount: 30, HomeRoomID: &room}}
	teachers := []domain.Teacher{
		{ID: "t1", Subjects: map[string]struct{}{"Mathematics": {}}, MaxPeriodsPerWeek: 10},
		{ID: "t2", Subjects: map[string]struct{}{"English": {}}, MaxPeriodsPerWeek: 10},
	}
	rooms := []domain.Room{{ID: room, Type: domain.RoomClassroom}}
	slots := slotsGrid(5, 1)

	report := advisor.New().Advise(classes, []domain.Subject{math, eng}, teachers, rooms, slots, nil)

	assert.True(t, report.IsFeasible)
	assert.Empty(t, report.CriticalIssues)
}

func TestAdvisor_MissingHomeRoomIsCritical(t *testing.T) {
	missing := domain.RoomID("r-missing")
	classes := []domain.Class{{ID: "c1", Grade: 10, Name: "10A", HomeRoomID: &missing}}
	report := advisor.New().Advise(classes, nil, nil, nil, nil, nil)
	require.False(t, report.IsFeasible)
	assertContainsMessage(t, report.CriticalIssues, "home room")
}

func assertContainsMessage(t *testing.T, issues []domain.Issue, substr string) {
	t.Helper()
	for _, i := range issues {
		if strings.Contains(i.Message, substr) {
			return
		}
	}
	t.Fatalf("expected an issue containing %q, got %v", substr, issues)
}
