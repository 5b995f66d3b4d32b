package postvalidate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/schoolforge/timetable-engine/internal/domain"
	"github.com/schoolforge/timetable-engine/internal/postvalidate"
)

func validInput() postvalidate.Input {
	home := domain.RoomID("home-10a")
	classes := []domain.Class{{ID: "c1", Grade: 10, Name: "10A", HomeRoomID: &home}}
	subjects := []domain.Subject{{ID: "math", Name: "Mathematics", PeriodsPerWeek: 2}}
	teachers := []domain.Teacher{{ID: "t1", MaxPeriodsPerWeek: 10, MaxPeriodsPerDay: 5}}
	rooms := []domain.Room{{ID: home, Type: domain.RoomClassroom}}
	slots := []domain.TimeSlot{
		{ID: "mon1", Day: domain.Monday, PeriodNumber: 1},
		{ID: "tue1", Day: domain.Tuesday, PeriodNumber: 1},
	}
	entries := []domain.TimetableEntry{
		{ClassID: "c1", SubjectID: "math", TeacherID: "t1", RoomID: home, Day: domain.Monday, Period: 1},
		{ClassID: "c1", SubjectID: "math", TeacherID: "t1", RoomID: home, Day: domain.Tuesday, Period: 1},
	}
	return postvalidate.Input{
		Timetable: domain.Timetable{Entries: entries},
		Classes:   classes,
		Subjects:  subjects,
		Teachers:  teachers,
		Rooms:     rooms,
		TimeSlots: slots,
	}
}

func TestValidate_FullyCorrectTimetablePasses(t *testing.T) {
	report := postvalidate.Validate(validInput())

	assert.True(t, report.IsValid)
	assert.Equal(t, postvalidate.StatusPass, report.Status)
	assert.Empty(t, report.CriticalViolations)
	for name, outcome := range report.Checks {
		assert.True(t, outcome.Passed, "check %s should pass", name)
	}
}

func TestValidate_MissingEntryFailsCoverage(t *testing.T) {
	in := validInput()
	in.Timetable.Entries = in.Timetable.Entries[:1] // drop Tuesday's entry

	report := postvalidate.Validate(in)

	assert.False(t, report.IsValid)
	assert.Equal(t, postvalidate.StatusFail, report.Status)
	assert.False(t, report.Checks[postvalidate.CheckCoverage].Passed)
	assert.True(t, report.Checks[postvalidate.CheckCoverage].Critical)
	assert.NotEmpty(t, report.CriticalViolations)
}

func TestValidate_TeacherDoubleBookedFailsConflictCheck(t *testing.T) {
	in := validInput()
	in.Timetable.Entries = append(in.Timetable.Entries, domain.TimetableEntry{
		ClassID: "c1", SubjectID: "math", TeacherID: "t1", RoomID: "home-10a",
		Day: domain.Monday, Period: 1,
	})

	report := postvalidate.Validate(in)

	assert.False(t, report.Checks[postvalidate.CheckTeacherConflict].Passed)
}

func TestValidate_MultipleTeachersOnSamePairFailsConsistency(t *testing.T) {
	in := validInput()
	in.Teachers = append(in.Teachers, domain.Teacher{ID: "t2", MaxPeriodsPerWeek: 10})
	in.Timetable.Entries[1].TeacherID = "t2"

	report := postvalidate.Validate(in)

	assert.False(t, report.Checks[postvalidate.CheckTeacherConsist].Passed)
}

func TestValidate_LabSubjectInNonLabRoomFails(t *testing.T) {
	in := validInput()
	in.Subjects[0].RequiresLab = true

	report := postvalidate.Validate(in)

	assert.False(t, report.Checks[postvalidate.CheckLabPlacement].Passed)
}

func TestValidate_NonHomeRoomPlacementIsCriticalInV3Mode(t *testing.T) {
	in := validInput()
	in.Timetable.Entries[0].RoomID = "other-room"

	report := postvalidate.Validate(in)

	outcome := report.Checks[postvalidate.CheckHomeRoomUsage]
	assert.False(t, outcome.Passed)
	assert.True(t, outcome.Critical)
	assert.NotEmpty(t, report.CriticalViolations)
}

func TestValidate_TeacherCapAtLimitPassesAndLargeOverrunIsCritical(t *testing.T) {
	in := validInput()
	in.Teachers[0].MaxPeriodsPerWeek = 2 // 2 entries exactly at cap: no overrun

	report := postvalidate.Validate(in)
	assert.True(t, report.Checks[postvalidate.CheckTeacherCaps].Passed)

	in.Teachers[0].MaxPeriodsPerWeek = 1 // 2 entries vs cap 1: 100% overrun, critical
	report = postvalidate.Validate(in)
	assert.False(t, report.Checks[postvalidate.CheckTeacherCaps].Passed)
	assert.True(t, report.Checks[postvalidate.CheckTeacherCaps].Critical)
}

func TestValidate_SubjectDemandMismatchFails(t *testing.T) {
	in := validInput()
	in.Subjects[0].PeriodsPerWeek = 3 // 2 entries placed, 3 required

	report := postvalidate.Validate(in)

	assert.False(t, report.Checks[postvalidate.CheckSubjectDemand].Passed)
}
