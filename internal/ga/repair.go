package ga

import "github.com/schoolforge/timetable-engine/internal/domain"

// repair walks a child genotype and attempts to clear every hard-
// invariant conflict by swapping the (day, period, slot) of one
// conflicting entry with another entry of the same class (spec.md 4.7,
// "Repair"). It mutates entries in place and reports whether every
// conflict was cleared within maxOps swap attempts.
func repair(entries []domain.TimetableEntry, e *env, maxOps int) bool {
	ops := 0
	for {
		bad := e.conflicted(entries)
		if len(bad) == 0 {
			return true
		}
		if ops >= maxOps {
			return false
		}

		resolved := false
		for _, i := range bad {
			for j := range entries {
				if j == i || entries[j].ClassID != entries[i].ClassID {
					continue
				}
				swapSlot(entries, i, j)
				ops++
				if len(e.conflicted(entries)) < len(bad) {
					resolved = true
					break
				}
				swapSlot(entries, i, j) // revert, no improvement
				if ops >= maxOps {
					return false
				}
			}
			if resolved {
				break
			}
		}
		if !resolved {
			return false
		}
	}
}

// swapSlot exchanges the (Day, Period, TimeSlotID) of two entries,
// leaving every other field (subject, teacher, room) bound to its
// original entry.
func swapSlot(entries []domain.TimetableEntry, i, j int) {
	entries[i].Day, entries[j].Day = entries[j].Day, entries[i].Day
	entries[i].Period, entries[j].Period = entries[j].Period, entries[i].Period
	entries[i].TimeSlotID, entries[j].TimeSlotID = entries[j].TimeSlotID, entries[i].TimeSlotID
}
