// Package csp implements the Complete CSP Solver (spec.md 4.4): given a
// lesson list and a fixed set of active time slots, it places every
// lesson with zero teacher/room/class conflicts via backtracking search,
// falling back to a bounded single teacher re-assignment when the
// greedy pre-assignment made the search infeasible.
package csp

import (
	"sort"

	"github.com/schoolforge/timetable-engine/internal/domain"
)

type teacherSlotKey struct {
	TeacherID domain.TeacherID
	Day       domain.Day
	Period    int
}

type roomSlotKey struct {
	RoomID domain.RoomID
	Day    domain.Day
	Period int
}

type classSlotKey struct {
	ClassID domain.ClassID
	Day     domain.Day
	Period  int
}

type teacherDayKey struct {
	TeacherID domain.TeacherID
	Day       domain.Day
}

// state holds the mutable conflict tables described in spec.md 4.4
// ("State" subsection). One state is built per solution attempt and
// discarded afterward - there is no shared mutable state across
// concurrent solution builds.
type state struct {
	activeSlots []domain.TimeSlot
	slotsByDay  map[domain.Day][]domain.TimeSlot

	classByID   map[domain.ClassID]domain.Class
	subjectByID map[domain.SubjectID]domain.Subject
	teacherByID map[domain.TeacherID]domain.Teacher
	roomByID    map[domain.RoomID]domain.Room

	homeRoomMode bool
	homeRoomOf   map[domain.ClassID]domain.RoomID
	labRooms     []domain.RoomID
	classrooms   []domain.RoomID

	teacherBusy     map[teacherSlotKey]bool
	sharedRoomBusy  map[roomSlotKey]bool
	classSlotFilled map[classSlotKey]bool
	teacherDayCount map[teacherDayKey]int
	teacherWeekCnt  map[domain.TeacherID]int
	classSubjectDay map[classSubjectDayKey]bool // (class,subject,day) already placed today

	entries []domain.TimetableEntry
}

type classSubjectDayKey struct {
	ClassID   domain.ClassID
	SubjectID domain.SubjectID
	Day       domain.Day
}

func newState(
	classes []domain.Class,
	subjects []domain.Subject,
	teachers []domain.Teacher,
	rooms []domain.Room,
	slots []domain.TimeSlot,
) *state {
	active := domain.ActiveSlots(slots)
	byDay := make(map[domain.Day][]domain.TimeSlot)
	for _, s := range active {
		byDay[s.Day] = append(byDay[s.Day], s)
	}
	for d := range byDay {
		sort.Slice(byDay[d], func(i, j int) bool { return byDay[d][i].PeriodNumber < byDay[d][j].PeriodNumber })
	}

	classByID := make(map[domain.ClassID]domain.Class, len(classes))
	for _, c := range classes {
		classByID[c.ID] = c
	}
	subjectByID := make(map[domain.SubjectID]domain.Subject, len(subjects))
	for _, s := range subjects {
		subjectByID[s.ID] = s
	}
	teacherByID := make(map[domain.TeacherID]domain.Teacher, len(teachers))
	for _, t := range teachers {
		teacherByID[t.ID] = t
	}
	roomByID := make(map[domain.RoomID]domain.Room, len(rooms))
	var labRooms, classroomRooms []domain.RoomID
	for _, r := range rooms {
		roomByID[r.ID] = r
		switch r.Type {
		case domain.RoomLab:
			labRooms = append(labRooms, r.ID)
		case domain.RoomClassroom:
			classroomRooms = append(classroomRooms, r.ID)
		}
	}
	sort.Slice(labRooms, func(i, j int) bool { return labRooms[i] < labRooms[j] })
	sort.Slice(classroomRooms, func(i, j int) bool { return classroomRooms[i] < classroomRooms[j] })

	homeRoomMode := domain.HomeRoomMode(classes)
	homeRoomOf := make(map[domain.ClassID]domain.RoomID, len(classes))
	if homeRoomMode {
		for _, c := range classes {
			if c.HomeRoomID != nil {
				homeRoomOf[c.ID] = *c.HomeRoomID
			}
		}
	}

	return &state{
		activeSlots:     active,
		slotsByDay:      byDay,
		classByID:       classByID,
		subjectByID:     subjectByID,
		teacherByID:     teacherByID,
		roomByID:        roomByID,
		homeRoomMode:    homeRoomMode,
		homeRoomOf:      homeRoomOf,
		labRooms:        labRooms,
		classrooms:      classroomRooms,
		teacherBusy:     make(map[teacherSlotKey]bool),
		sharedRoomBusy:  make(map[roomSlotKey]bool),
		classSlotFilled: make(map[classSlotKey]bool),
		teacherDayCount: make(map[teacherDayKey]int),
		teacherWeekCnt:  make(map[domain.TeacherID]int),
		classSubjectDay: make(map[classSubjectDayKey]bool),
	}
}

// teacherCapsAllow reports whether placing one more period for this
// teacher on (day, period) respects daily/weekly caps. Consecutive-run
// limits are not checked here: candidatesFor in backtrack.go only uses
// them to order candidate slots, the evaluator scores overruns as a soft
// penalty (4.5.5), and neither the GA repair nor the post-validator
// rejects a timetable for exceeding them.
func (s *state) teacherCapsAllow(teacherID domain.TeacherID, day domain.Day) bool {
	t := s.teacherByID[teacherID]
	if t.MaxPeriodsPerDay > 0 && s.teacherDayCount[teacherDayKey{teacherID, day}] >= t.MaxPeriodsPerDay {
		return false
	}
	if t.MaxPeriodsPerWeek > 0 && s.teacherWeekCnt[teacherID] >= t.MaxPeriodsPerWeek {
		return false
	}
	return true
}

// consecutiveRunAfter returns the length of the consecutive run the
// teacher would have on (day, period) if placed there, used only to
// rank candidate slots (spec.md 4.4.3.c, "farthest from the limit").
func (s *state) consecutiveRunAfter(teacherID domain.TeacherID, day domain.Day, period int) int {
	run := 1
	for p := period - 1; s.teacherBusyAt(teacherID, day, p); p-- {
		run++
	}
	for p := period + 1; s.teacherBusyAt(teacherID, day, p); p++ {
		run++
	}
	return run
}

func (s *state) teacherBusyAt(teacherID domain.TeacherID, day domain.Day, period int) bool {
	return s.teacherBusy[teacherSlotKey{teacherID, day, period}]
}

// roomForLesson resolves the room a lesson must occupy, returning ok =
// false when no compatible room is free at (day, period).
func (s *state) roomForLesson(subject domain.Subject, classID domain.ClassID, day domain.Day, period int) (domain.RoomID, bool) {
	if subject.RequiresLab {
		for _, labID := range s.labRooms {
			if !s.sharedRoomBusy[roomSlotKey{labID, day, period}] {
				return labID, true
			}
		}
		return "", false
	}
	if s.homeRoomMode {
		home, ok := s.homeRoomOf[classID]
		return home, ok
	}
	for _, roomID := range s.classrooms {
		if !s.sharedRoomBusy[roomSlotKey{roomID, day, period}] {
			return roomID, true
		}
	}
	return "", false
}

// isSharedRoom reports whether a room must be tracked for conflicts
// once chosen (spec.md 4.4, "Shared vs. owned rooms").
func (s *state) isSharedRoom(roomID domain.RoomID) bool {
	if s.homeRoomMode {
		for _, home := range s.homeRoomOf {
			if home == roomID {
				return false
			}
		}
	}
	return true
}

// place commits a lesson to a (day, period, room) and records it as a
// TimetableEntry; the caller supplies a pre-validated candidate.
func (s *state) place(lesson Lesson, day domain.Day, period int, roomID domain.RoomID) domain.TimetableEntry {
	s.teacherBusy[teacherSlotKey{lesson.TeacherID, day, period}] = true
	s.classSlotFilled[classSlotKey{lesson.ClassID, day, period}] = true
	s.teacherDayCount[teacherDayKey{lesson.TeacherID, day}]++
	s.teacherWeekCnt[lesson.TeacherID]++
	s.classSubjectDay[classSubjectDayKey{lesson.ClassID, lesson.SubjectID, day}] = true
	if s.isSharedRoom(roomID) {
		s.sharedRoomBusy[roomSlotKey{roomID, day, period}] = true
	}

	entry := domain.TimetableEntry{
		ClassID:     lesson.ClassID,
		SubjectID:   lesson.SubjectID,
		TeacherID:   lesson.TeacherID,
		RoomID:      roomID,
		Day:         day,
		Period:      period,
		SubjectMeta: lesson.subjectMeta(),
		TeacherMeta: lesson.teacherMeta(s.teacherByID[lesson.TeacherID]),
	}
	s.entries = append(s.entries, entry)
	return entry
}

// undo reverses the most recent place call for the given lesson/slot;
// it is the caller's responsibility to call it in exact LIFO order
// with place, as searcher.place in backtrack.go does.
func (s *state) undo(lesson Lesson, day domain.Day, period int, roomID domain.RoomID) {
	delete(s.teacherBusy, teacherSlotKey{lesson.TeacherID, day, period})
	delete(s.classSlotFilled, classSlotKey{lesson.ClassID, day, period})
	s.teacherDayCount[teacherDayKey{lesson.TeacherID, day}]--
	s.teacherWeekCnt[lesson.TeacherID]--
	delete(s.classSubjectDay, classSubjectDayKey{lesson.ClassID, lesson.SubjectID, day})
	if s.isSharedRoom(roomID) {
		delete(s.sharedRoomBusy, roomSlotKey{roomID, day, period})
	}
	s.entries = s.entries[:len(s.entries)-1]
}
