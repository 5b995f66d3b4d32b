// Package postvalidate implements the Post-Validator (spec.md 4.8): the
// final gate a Timetable must clear before it is returned to the
// caller, re-checking every hard invariant the CSP Solver and GA
// Optimizer were supposed to preserve.
package postvalidate

import (
	"fmt"
	"sort"

	"github.com/schoolforge/timetable-engine/internal/domain"
)

// Status is the Post-Validator's overall verdict.
type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
)

// Check names, used as Report.Checks keys (spec.md 4.8).
const (
	CheckCoverage        = "coverage"
	CheckTeacherConflict = "teacher_conflict_free"
	CheckSharedRoom      = "shared_room_conflict_free"
	CheckTeacherConsist  = "teacher_consistency"
	CheckHomeRoomUsage   = "home_room_usage"
	CheckLabPlacement    = "lab_placement"
	CheckSubjectDemand   = "subject_demand_met"
	CheckTeacherCaps     = "teacher_caps"
)

// CheckOutcome records whether one named check passed and whether a
// failure is critical (spec.md 4.8's per-check {passed, critical} pair).
type CheckOutcome struct {
	Passed   bool
	Critical bool
}

// Report is the Post-Validator's output contract.
type Report struct {
	IsValid            bool
	Status             Status
	Checks             map[string]CheckOutcome
	CriticalViolations []string
	Warnings           []string
	Suggestions        []string
}

// Input bundles a Timetable with the reference data every check needs.
type Input struct {
	Timetable         domain.Timetable
	Classes           []domain.Class
	Subjects          []domain.Subject
	Teachers          []domain.Teacher
	Rooms             []domain.Room
	TimeSlots         []domain.TimeSlot
	GradeRequirements []domain.GradeSubjectRequirement
}

type lookups struct {
	classByID    map[domain.ClassID]domain.Class
	subjectByID  map[domain.SubjectID]domain.Subject
	teacherByID  map[domain.TeacherID]domain.Teacher
	roomByID     map[domain.RoomID]domain.Room
	activeSlots  []domain.TimeSlot
	overrides    domain.GradeOverrides
	homeRoomMode bool
	homeRoomIDs  map[domain.RoomID]struct{}
}

func buildLookups(in Input) lookups {
	l := lookups{
		classByID:   make(map[domain.ClassID]domain.Class, len(in.Classes)),
		subjectByID: make(map[domain.SubjectID]domain.Subject, len(in.Subjects)),
		teacherByID: make(map[domain.TeacherID]domain.Teacher, len(in.Teachers)),
		roomByID:    make(map[domain.RoomID]domain.Room, len(in.Rooms)),
		activeSlots: domain.ActiveSlots(in.TimeSlots),
		overrides:   domain.BuildGradeOverrides(in.GradeRequirements),
	}
	for _, c := range in.Classes {
		l.classByID[c.ID] = c
	}
	for _, s := range in.Subjects {
		l.subjectByID[s.ID] = s
	}
	for _, t := range in.Teachers {
		l.teacherByID[t.ID] = t
	}
	for _, r := range in.Rooms {
		l.roomByID[r.ID] = r
	}
	l.homeRoomMode = domain.HomeRoomMode(in.Classes)
	l.homeRoomIDs = domain.HomeRoomSet(in.Classes)
	return l
}

// Validate runs every mandatory check from spec.md 4.8 against one
// Timetable and assembles the final report.
func Validate(in Input) Report {
	l := buildLookups(in)

	report := Report{Checks: make(map[string]CheckOutcome, 8)}

	checks := []func(Input, lookups) (CheckOutcome, []string, []string){
		checkCoverage,
		checkTeacherConflictFree,
		checkSharedRoomConflictFree,
		checkTeacherConsistency,
		checkHomeRoomUsage,
		checkLabPlacement,
		checkSubjectDemandMet,
		checkTeacherCaps,
	}
	names := []string{
		CheckCoverage, CheckTeacherConflict, CheckSharedRoom, CheckTeacherConsist,
		CheckHomeRoomUsage, CheckLabPlacement, CheckSubjectDemand, CheckTeacherCaps,
	}

	for i, fn := range checks {
		outcome, criticals, warnings := fn(in, l)
		report.Checks[names[i]] = outcome
		report.CriticalViolations = append(report.CriticalViolations, criticals...)
		report.Warnings = append(report.Warnings, warnings...)
	}

	report.IsValid = len(report.CriticalViolations) == 0
	if report.IsValid {
		report.Status = StatusPass
	} else {
		report.Status = StatusFail
	}
	report.Suggestions = suggestionsFor(report)
	return report
}

// checkCoverage verifies every class has exactly one entry at every
// active slot (spec.md 4.8, check 1).
func checkCoverage(in Input, l lookups) (CheckOutcome, []string, []string) {
	counts := make(map[classSlot]int)
	for _, e := range in.Timetable.Entries {
		counts[classSlot{e.ClassID, e.Day, e.Period}]++
	}

	var violations []string
	for _, c := range in.Classes {
		for _, slot := range l.activeSlots {
			key := classSlot{c.ID, slot.Day, slot.PeriodNumber}
			switch counts[key] {
			case 1:
				// fine
			case 0:
				violations = append(violations, fmt.Sprintf("coverage: class %s has no entry at %s period %d", c.ID, slot.Day, slot.PeriodNumber))
			default:
				violations = append(violations, fmt.Sprintf("coverage: class %s has %d entries at %s period %d", c.ID, counts[key], slot.Day, slot.PeriodNumber))
			}
		}
	}
	sort.Strings(violations)
	return CheckOutcome{Passed: len(violations) == 0, Critical: true}, violations, nil
}

// checkTeacherConflictFree verifies no teacher is double-booked
// (spec.md 4.8, check 2).
func checkTeacherConflictFree(in Input, l lookups) (CheckOutcome, []string, []string) {
	groups := make(map[teacherSlot][]int)
	for i, e := range in.Timetable.Entries {
		key := teacherSlot{e.TeacherID, e.Day, e.Period}
		groups[key] = append(groups[key], i)
	}
	var violations []string
	for key, idxs := range groups {
		if len(idxs) > 1 {
			violations = append(violations, fmt.Sprintf("teacher conflict: teacher %s double-booked at %s period %d", key.TeacherID, key.Day, key.Period))
		}
	}
	sort.Strings(violations)
	return CheckOutcome{Passed: len(violations) == 0, Critical: true}, violations, nil
}

// checkSharedRoomConflictFree verifies no shared room hosts two
// entries in the same slot (spec.md 4.8, check 3).
func checkSharedRoomConflictFree(in Input, l lookups) (CheckOutcome, []string, []string) {
	groups := make(map[roomSlot][]int)
	for i, e := range in.Timetable.Entries {
		room, ok := l.roomByID[e.RoomID]
		if !ok || !domain.IsSharedRoom(room, l.homeRoomIDs) {
			continue
		}
		key := roomSlot{e.RoomID, e.Day, e.Period}
		groups[key] = append(groups[key], i)
	}
	var violations []string
	for key, idxs := range groups {
		if len(idxs) > 1 {
			violations = append(violations, fmt.Sprintf("shared room conflict: room %s double-booked at %s period %d", key.RoomID, key.Day, key.Period))
		}
	}
	sort.Strings(violations)
	return CheckOutcome{Passed: len(violations) == 0, Critical: true}, violations, nil
}

// checkTeacherConsistency verifies at most one teacher teaches a given
// (class, subject) pair across the whole timetable (spec.md 4.8, check 4).
func checkTeacherConsistency(in Input, l lookups) (CheckOutcome, []string, []string) {
	teachersForPair := make(map[pairKey]map[domain.TeacherID]struct{})
	for _, e := range in.Timetable.Entries {
		key := pairKey{e.ClassID, e.SubjectID}
		if teachersForPair[key] == nil {
			teachersForPair[key] = make(map[domain.TeacherID]struct{})
		}
		teachersForPair[key][e.TeacherID] = struct{}{}
	}
	var violations []string
	for key, teachers := range teachersForPair {
		if len(teachers) > 1 {
			violations = append(violations, fmt.Sprintf("teacher consistency: class %s subject %s is taught by %d different teachers", key.ClassID, key.SubjectID, len(teachers)))
		}
	}
	sort.Strings(violations)
	return CheckOutcome{Passed: len(violations) == 0, Critical: true}, violations, nil
}

// checkHomeRoomUsage verifies non-lab subjects use the class's home
// room - critical in v3.0 (home-room mode), a warning in v2.5 (spec.md
// 4.8, check 5; spec.md 9 Open Questions).
func checkHomeRoomUsage(in Input, l lookups) (CheckOutcome, []string, []string) {
	var violations []string
	for _, e := range in.Timetable.Entries {
		subject, ok := l.subjectByID[e.SubjectID]
		if !ok || subject.RequiresLab {
			continue
		}
		class, ok := l.classByID[e.ClassID]
		if !ok || class.HomeRoomID == nil {
			continue
		}
		if e.RoomID != *class.HomeRoomID {
			violations = append(violations, fmt.Sprintf("home room usage: class %s subject %s placed in %s instead of its home room at %s period %d", e.ClassID, e.SubjectID, e.RoomID, e.Day, e.Period))
		}
	}
	sort.Strings(violations)

	critical := l.homeRoomMode
	outcome := CheckOutcome{Passed: len(violations) == 0, Critical: critical}
	if critical {
		return outcome, violations, nil
	}
	return outcome, nil, violations
}

// checkLabPlacement verifies lab-required subjects sit in LAB-type
// rooms (spec.md 4.8, check 6).
func checkLabPlacement(in Input, l lookups) (CheckOutcome, []string, []string) {
	var violations []string
	for _, e := range in.Timetable.Entries {
		subject, ok := l.subjectByID[e.SubjectID]
		if !ok || !subject.RequiresLab {
			continue
		}
		room, ok := l.roomByID[e.RoomID]
		if !ok || room.Type != domain.RoomLab {
			violations = append(violations, fmt.Sprintf("lab placement: class %s subject %s (requires lab) placed in %s at %s period %d", e.ClassID, e.SubjectID, e.RoomID, e.Day, e.Period))
		}
	}
	sort.Strings(violations)
	return CheckOutcome{Passed: len(violations) == 0, Critical: true}, violations, nil
}

// checkSubjectDemandMet verifies each (class, subject) pair's entry
// count equals its required weekly periods (spec.md 4.8, check 7).
func checkSubjectDemandMet(in Input, l lookups) (CheckOutcome, []string, []string) {
	counts := make(map[pairKey]int)
	for _, e := range in.Timetable.Entries {
		counts[pairKey{e.ClassID, e.SubjectID}]++
	}

	var violations []string
	for _, c := range in.Classes {
		for _, s := range in.Subjects {
			required := l.overrides.PeriodsRequired(c, s)
			actual := counts[pairKey{c.ID, s.ID}]
			if actual != required {
				violations = append(violations, fmt.Sprintf("subject demand: class %s subject %s has %d entries, requires %d", c.ID, s.ID, actual, required))
			}
		}
	}
	sort.Strings(violations)
	return CheckOutcome{Passed: len(violations) == 0, Critical: true}, violations, nil
}

// checkTeacherCaps verifies weekly teacher load stays within
// MaxPeriodsPerWeek, demoting a ≤10% overrun to a warning (spec.md 4.8,
// check 8).
func checkTeacherCaps(in Input, l lookups) (CheckOutcome, []string, []string) {
	counts := make(map[domain.TeacherID]int)
	for _, e := range in.Timetable.Entries {
		counts[e.TeacherID]++
	}

	var criticals, warnings []string
	for teacherID, count := range counts {
		teacher, ok := l.teacherByID[teacherID]
		if !ok || teacher.MaxPeriodsPerWeek <= 0 {
			continue
		}
		if count <= teacher.MaxPeriodsPerWeek {
			continue
		}
		overrunFraction := float64(count-teacher.MaxPeriodsPerWeek) / float64(teacher.MaxPeriodsPerWeek)
		msg := fmt.Sprintf("teacher caps: teacher %s assigned %d periods, cap is %d", teacherID, count, teacher.MaxPeriodsPerWeek)
		if overrunFraction <= 0.10 {
			warnings = append(warnings, msg)
		} else {
			criticals = append(criticals, msg)
		}
	}
	sort.Strings(criticals)
	sort.Strings(warnings)
	return CheckOutcome{Passed: len(criticals) == 0, Critical: len(criticals) > 0}, criticals, warnings
}

func suggestionsFor(r Report) []string {
	var suggestions []string
	if outcome, ok := r.Checks[CheckSubjectDemand]; ok && !outcome.Passed {
		suggestions = append(suggestions, "review greedy teacher assignment and CSP lesson demand for the classes/subjects listed above")
	}
	if outcome, ok := r.Checks[CheckTeacherCaps]; ok && !outcome.Passed {
		suggestions = append(suggestions, "raise the affected teachers' weekly caps or qualify additional teachers for the overloaded subjects")
	}
	if outcome, ok := r.Checks[CheckHomeRoomUsage]; ok && !outcome.Passed {
		suggestions = append(suggestions, "confirm every class has a home room assigned if operating in v3.0 mode")
	}
	return suggestions
}

type classSlot struct {
	ClassID domain.ClassID
	Day     domain.Day
	Period  int
}

type teacherSlot struct {
	TeacherID domain.TeacherID
	Day       domain.Day
	Period    int
}

type roomSlot struct {
	RoomID domain.RoomID
	Day    domain.Day
	Period int
}

type pairKey struct {
	ClassID   domain.ClassID
	SubjectID domain.SubjectID
}
