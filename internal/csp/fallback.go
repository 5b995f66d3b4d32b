package csp

import (
	"context"

	"github.com/schoolforge/timetable-engine/internal/domain"
)

// fallbackBudget bounds how many single-pair re-assignments the solver
// will try before giving up and reporting infeasibility (spec.md 4.4.4,
// "After a fixed fallback budget, report infeasibility").
const fallbackBudget = 3

// attemptWithFallback runs the backtracking search, and on failure
// retries up to fallbackBudget times by re-assigning the worst-failing
// (class, subject) pair to an alternate qualified teacher with spare
// capacity. Returns the final entries, any warnings raised by
// fallback re-assignment, the index of the first lesson the last attempt
// could not place (-1 on success), and whether the attempt ultimately
// succeeded.
func attemptWithFallback(
	ctx context.Context,
	classes []domain.Class,
	subjects []domain.Subject,
	teachers []domain.Teacher,
	rooms []domain.Room,
	slots []domain.TimeSlot,
	lessons []Lesson,
) ([]domain.TimetableEntry, []string, int, bool) {
	var warnings []string
	teachersByID := make(map[domain.TeacherID]domain.Teacher, len(teachers))
	for _, t := range teachers {
		teachersByID[t.ID] = t
	}
	subjectsByID := make(map[domain.SubjectID]domain.Subject, len(subjects))
	for _, s := range subjects {
		subjectsByID[s.ID] = s
	}

	current := lessons
	for attempt := 0; attempt <= fallbackBudget; attempt++ {
		st := newState(classes, subjects, teachers, rooms, slots)
		entries, failIdx, ok := solveOnce(ctx, st, current)
		if ok {
			return entries, warnings, -1, true
		}
		if attempt == fallbackBudget {
			return nil, warnings, failIdx, false
		}

		failing := current[failIdx]
		subject := subjectsByID[failing.SubjectID]
		alt, found := alternateTeacher(failing, subject, teachers, teachersByID, current)
		if !found {
			return nil, warnings, failIdx, false
		}

		warnings = append(warnings, reassignWarning(subject.Name, failing.ClassID, failing.TeacherID, alt))
		current = reassignPair(current, failing.ClassID, failing.SubjectID, alt)
	}
	return nil, warnings, -1, false
}

// alternateTeacher finds a qualified teacher for the failing lesson's
// subject, other than the one currently bound, with enough remaining
// weekly capacity for the whole pair's demand.
func alternateTeacher(
	failing Lesson,
	subject domain.Subject,
	teachers []domain.Teacher,
	teachersByID map[domain.TeacherID]domain.Teacher,
	lessons []Lesson,
) (domain.TeacherID, bool) {
	pairDemand := 0
	for _, l := range lessons {
		if l.ClassID == failing.ClassID && l.SubjectID == failing.SubjectID {
			pairDemand++
		}
	}

	load := make(map[domain.TeacherID]int)
	for _, l := range lessons {
		if l.ClassID == failing.ClassID && l.SubjectID == failing.SubjectID {
			continue
		}
		load[l.TeacherID]++
	}

	var best domain.TeacherID
	bestRemaining := -1
	found := false
	for _, t := range teachers {
		if t.ID == failing.TeacherID {
			continue
		}
		if !t.Qualifies(subject.Name, subject.Code) {
			continue
		}
		remaining := t.MaxPeriodsPerWeek - load[t.ID]
		if remaining < pairDemand {
			continue
		}
		if remaining > bestRemaining || (remaining == bestRemaining && t.ID < best) {
			best = t.ID
			bestRemaining = remaining
			found = true
		}
	}
	return best, found
}

// reassignPair rebuilds the lesson list with every lesson for (class,
// subject) rebound to the new teacher, preserving lesson order.
func reassignPair(lessons []Lesson, classID domain.ClassID, subjectID domain.SubjectID, newTeacher domain.TeacherID) []Lesson {
	out := make([]Lesson, len(lessons))
	for i, l := range lessons {
		if l.ClassID == classID && l.SubjectID == subjectID {
			l.TeacherID = newTeacher
		}
		out[i] = l
	}
	return out
}

func reassignWarning(subject string, classID domain.ClassID, from, to domain.TeacherID) string {
	return "reassigned " + subject + " for class " + string(classID) + " from teacher " + string(from) + " to teacher " + string(to) + " to resolve a scheduling conflict"
}
