package ga

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

// env bundles the read-only reference data a repaired/mutated genotype
// is checked against. It is built once per Evolve call and shared
// (read-only) across every individual.
type env struct {
	teacherByID  map[domain.TeacherID]domain.Teacher
	classByID    map[domain.ClassID]domain.Class
	subjectByID  map[domain.SubjectID]domain.Subject
	homeRoomOf   map[domain.ClassID]domain.RoomID
	homeRoomMode bool
	activeSlots  []domain.TimeSlot
}

func newEnv(classes []domain.Class, subjects []domain.Subject, teachers []domain.Teacher, slots []domain.TimeSlot) *env {
	e := &env{
		teacherByID: make(map[domain.TeacherID]domain.Teacher, len(teachers)),
		classByID:   make(map[domain.ClassID]domain.Class, len(classes)),
		subjectByID: make(map[domain.SubjectID]domain.Subject, len(subjects)),
		homeRoomOf:  make(map[domain.ClassID]domain.RoomID),
	}
	for _, t := range teachers {
		e.teacherByID[t.ID] = t
	}
	for _, s := range subjects {
		e.subjectByID[s.ID] = s
	}
	for _, c := range classes {
		e.classByID[c.ID] = c
		if c.HomeRoomID != nil {
			e.homeRoomOf[c.ID] = *c.HomeRoomID
		}
	}
	e.homeRoomMode = domain.HomeRoomMode(classes)
	for _, s := range slots {
		if s.Active() {
			e.activeSlots = append(e.activeSlots, s)
		}
	}
	return e
}

// isSharedRoom mirrors internal/csp's rule (spec.md 4.4, "Shared vs.
// owned rooms"): a room is exempt from shared-conflict tracking only
// when it is some class's home room under home-room mode.
func (e *env) isSharedRoom(roomID domain.RoomID) bool {
	if e.homeRoomMode {
		for _, home := range e.homeRoomOf {
			if home == roomID {
				return false
			}
		}
	}
	return true
}

// conflicted returns, for the given genotype, the indices of entries
// participating in a hard-invariant violation: teacher double-booking,
// shared-room double-booking, duplicate class slots, or a teacher's
// daily/weekly cap overrun (spec.md 4.8, checks 2/3/8).
func (e *env) conflicted(entries []domain.TimetableEntry) []int {
	teacherSlot := make(map[teacherSlotKey][]int)
	roomSlot := make(map[roomSlotKey][]int)
	classSlot := make(map[classSlotKey][]int)
	teacherDay := make(map[teacherDayKey][]int)
	teacherWeek := make(map[domain.TeacherID][]int)

	for i, en := range entries {
		tk := teacherSlotKey{en.TeacherID, en.Day, en.Period}
		teacherSlot[tk] = append(teacherSlot[tk], i)

		if e.isSharedRoom(en.RoomID) {
			rk := roomSlotKey{en.RoomID, en.Day, en.Period}
			roomSlot[rk] = append(roomSlot[rk], i)
		}

		ck := classSlotKey{en.ClassID, en.Day, en.Period}
		classSlot[ck] = append(classSlot[ck], i)

		dk := teacherDayKey{en.TeacherID, en.Day}
		teacherDay[dk] = append(teacherDay[dk], i)

		teacherWeek[en.TeacherID] = append(teacherWeek[en.TeacherID], i)
	}

	bad := make(map[int]bool)
	markAll := func(idxs []int) {
		for _, i := range idxs {
			bad[i] = true
		}
	}
	for i, en := range entries {
		if t, ok := e.teacherByID[en.TeacherID]; ok && !t.IsAvailable(en.Day, en.Period) {
			bad[i] = true
		}
	}
	for _, idxs := range teacherSlot {
		if len(idxs) > 1 {
			markAll(idxs)
		}
	}
	for _, idxs := range roomSlot {
		if len(idxs) > 1 {
			markAll(idxs)
		}
	}
	for _, idxs := range classSlot {
		if len(idxs) > 1 {
			markAll(idxs)
		}
	}
	for key, idxs := range teacherDay {
		cap := e.teacherByID[key.TeacherID].MaxPeriodsPerDay
		if cap > 0 && len(idxs) > cap {
			markAll(idxs)
		}
	}
	for teacherID, idxs := range teacherWeek {
		cap := e.teacherByID[teacherID].MaxPeriodsPerWeek
		if cap > 0 && len(idxs) > cap {
			markAll(idxs)
		}
	}

	out := make([]int, 0, len(bad))
	for i := range bad {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// freeClassSlots lists active slots with no existing entry for the
// given class.
func (e *env) freeClassSlots(entries []domain.TimetableEntry, classID domain.ClassID) []domain.TimeSlot {
	occupied := make(map[[2]any]bool)
	for _, en := range entries {
		if en.ClassID == classID {
			occupied[[2]any{en.Day, en.Period}] = true
		}
	}
	var free []domain.TimeSlot
	for _, s := range e.activeSlots {
		if !occupied[[2]any{s.Day, s.PeriodNumber}] {
			free = append(free, s)
		}
	}
	return free
}
