package csp

import (
	"context"
	"sort"

	"github.com/schoolforge/timetable-engine/internal/domain"
)

// candidate is one (day, period, room) placement option for a lesson.
type candidate struct {
	day    domain.Day
	period int
	room   domain.RoomID
}

// searchBudget bounds recursive backtracking so a pathological input
// cannot make the solver spin forever; it is generous relative to
// realistic lesson counts (classes x periods/week, normally a few
// hundred) and is checked once per node, not per candidate.
const searchBudget = 200000

// searcher runs one backtracking attempt over a fixed lesson order.
type searcher struct {
	st        *state
	lessons   []Lesson
	nodes     int
	emptyAt   map[int]bool // lesson index -> had zero candidates on the failing path
}

// solveOnce attempts to place every lesson via backtracking search,
// returning the committed entries on success. On failure it returns the
// index of the first lesson it could never place across any ancestor
// state, for diagnostics.
func solveOnce(ctx context.Context, st *state, lessons []Lesson) ([]domain.TimetableEntry, int, bool) {
	s := &searcher{st: st, lessons: lessons, emptyAt: make(map[int]bool)}
	ok := s.place(ctx, 0)
	if !ok {
		return nil, s.firstEmptyIndex(), false
	}
	return st.entries, -1, true
}

func (s *searcher) firstEmptyIndex() int {
	for i := range s.lessons {
		if s.emptyAt[i] {
			return i
		}
	}
	return 0
}

func (s *searcher) place(ctx context.Context, idx int) bool {
	if idx >= len(s.lessons) {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	default:
	}
	s.nodes++
	if s.nodes > searchBudget {
		return false
	}

	lesson := s.lessons[idx]
	candidates := s.candidatesFor(lesson)
	if len(candidates) == 0 {
		s.emptyAt[idx] = true
		return false
	}

	for _, c := range candidates {
		if !s.st.teacherCapsAllow(lesson.TeacherID, c.day) {
			continue
		}
		s.st.place(lesson, c.day, c.period, c.room)
		if s.place(ctx, idx+1) {
			return true
		}
		s.st.undo(lesson, c.day, c.period, c.room)
	}
	s.emptyAt[idx] = true
	return false
}

// candidatesFor enumerates every legal (day, period, room) for one
// lesson and orders them per spec.md 4.4.3.c.
func (s *searcher) candidatesFor(lesson Lesson) []candidate {
	st := s.st
	var out []candidate
	for _, day := range domain.Days {
		for _, slot := range st.slotsByDay[day] {
			period := slot.PeriodNumber
			if st.classSlotFilled[classSlotKey{lesson.ClassID, day, period}] {
				continue
			}
			if st.teacherBusyAt(lesson.TeacherID, day, period) {
				continue
			}
			subject := st.subjectByID[lesson.SubjectID]
			room, ok := st.roomForLesson(subject, lesson.ClassID, day, period)
			if !ok {
				continue
			}
			out = append(out, candidate{day: day, period: period, room: room})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		ci, cj := out[i], out[j]
		if ci.day != cj.day {
			return candidateDayRank(st, lesson, ci.day) < candidateDayRank(st, lesson, cj.day)
		}
		pi, pj := periodRank(lesson, ci.period), periodRank(lesson, cj.period)
		if pi != pj {
			return pi < pj
		}
		// Farthest-from-limit consecutive run wins (smaller resulting
		// run length is farther from the cap).
		ri := st.consecutiveRunAfter(lesson.TeacherID, ci.day, ci.period)
		rj := st.consecutiveRunAfter(lesson.TeacherID, cj.day, cj.period)
		if ri != rj {
			return ri < rj
		}
		return ci.period < cj.period
	})
	return out
}

// candidateDayRank prefers a day with no existing (class, subject)
// entry yet today (spec.md 4.4.3.c, "spread across the week").
func candidateDayRank(st *state, lesson Lesson, day domain.Day) int {
	if st.classSubjectDay[classSubjectDayKey{lesson.ClassID, lesson.SubjectID, day}] {
		return 1
	}
	return 0
}

// periodRank ranks a period by the subject's time preferences: prefer
// earlier periods for morning-preferring or explicitly preferred
// subjects, and push avoided periods to the back.
func periodRank(lesson Lesson, period int) int {
	if _, avoid := lesson.AvoidPeriods[period]; avoid {
		return 1000 + period
	}
	if lesson.PreferMorning {
		return period
	}
	if len(lesson.PreferredPeriods) > 0 {
		if _, preferred := lesson.PreferredPeriods[period]; preferred {
			return period
		}
		return 500 + period
	}
	return period
}
