package domain

// GradeOverrides indexes GradeSubjectRequirement by (grade, subject) for
// O(1) lookup from the hot paths in the advisor, assigner, and solver.
type GradeOverrides map[int]map[SubjectID]int

// BuildGradeOverrides indexes a flat requirement list.
func BuildGradeOverrides(reqs []GradeSubjectRequirement) GradeOverrides {
	out := make(GradeOverrides, len(reqs))
	for _, r := range reqs {
		if out[r.Grade] == nil {
			out[r.Grade] = make(map[SubjectID]int)
		}
		out[r.Grade][r.SubjectID] = r.PeriodsPerWeek
	}
	return out
}

// PeriodsRequired resolves the weekly period demand for one (class,
// subject) pair, honoring a grade-level override when present
// (spec.md 3, GradeSubjectRequirement).
func (g GradeOverrides) PeriodsRequired(class Class, subject Subject) int {
	if byGrade, ok := g[class.Grade]; ok {
		if periods, ok := byGrade[subject.ID]; ok {
			return periods
		}
	}
	return subject.PeriodsPerWeek
}

// RequiredPeriodsForClass sums demand across every subject for one class.
func RequiredPeriodsForClass(class Class, subjects []Subject, overrides GradeOverrides) int {
	total := 0
	for _, s := range subjects {
		total += overrides.PeriodsRequired(class, s)
	}
	return total
}

// ActiveSlots filters a TimeSlot list down to non-break slots.
func ActiveSlots(slots []TimeSlot) []TimeSlot {
	out := make([]TimeSlot, 0, len(slots))
	for _, s := range slots {
		if s.Active() {
			out = append(out, s)
		}
	}
	return out
}

// IsSharedRoom reports whether a room must be tracked for cross-class
// conflicts: every non-CLASSROOM type, plus any CLASSROOM that is not
// assigned as a home room (spec.md Glossary, Shared room).
func IsSharedRoom(room Room, homeRoomIDs map[RoomID]struct{}) bool {
	if room.Type != RoomClassroom {
		return true
	}
	_, isHome := homeRoomIDs[room.ID]
	return !isHome
}

// HomeRoomSet collects every class's home room id, when set.
func HomeRoomSet(classes []Class) map[RoomID]struct{} {
	out := make(map[RoomID]struct{}, len(classes))
	for _, c := range classes {
		if c.HomeRoomID != nil {
			out[*c.HomeRoomID] = struct{}{}
		}
	}
	return out
}

// HomeRoomMode reports whether the request is operating in v3.0 mode
// (every class has a home room) versus v2.5 compatibility mode (spec.md
// 9, Open Questions: v3.0 is selected by presence of home_room_id).
func HomeRoomMode(classes []Class) bool {
	if len(classes) == 0 {
		return true
	}
	for _, c := range classes {
		if c.HomeRoomID == nil {
			return false
		}
	}
	return true
}
