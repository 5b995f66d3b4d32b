package domain

// EntryMetadata carries every field the GA and evaluator need off a
// TimetableEntry without a further lookup into Subject/Teacher tables.
// Structured, not a free-form map, per spec.md 4.1.
type EntryMetadata struct {
	PreferMorning         bool
	PreferredPeriods      map[int]struct{}
	AvoidPeriods          map[int]struct{}
	MaxConsecutivePeriods int
}

// TimetableEntry is one placed lesson: a (class, subject, teacher, room,
// slot) assignment.
type TimetableEntry struct {
	ID             TimetableEntryID
	TimetableID    TimetableID
	ClassID        ClassID
	SubjectID      SubjectID
	TeacherID      TeacherID
	RoomID         RoomID
	TimeSlotID     TimeSlotID
	Day            Day
	Period         int
	IsFixed        bool
	SubjectMeta    EntryMetadata
	TeacherMeta    EntryMetadata
}

// Timetable is a full weekly schedule for a school/academic year.
type Timetable struct {
	ID             TimetableID
	SchoolID       SchoolID
	AcademicYearID AcademicYearID
	Status         TimetableStatus
	Metadata       map[string]any
	Entries        []TimetableEntry
}

// SortEntries orders entries by (day, period, class) for deterministic
// emission per spec.md 5 (Ordering guarantees).
func (t *Timetable) SortEntries() {
	sortEntries(t.Entries)
}

var dayOrder = map[Day]int{
	Monday: 0, Tuesday: 1, Wednesday: 2, Thursday: 3, Friday: 4, Saturday: 5,
}

func sortEntries(entries []TimetableEntry) {
	// insertion sort is fine here: entry counts are small (classes x
	// active slots per week, typically well under a few hundred) and
	// the comparator must match exactly across parallel solution builds.
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entryLess(entries[j], entries[j-1]); j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

func entryLess(a, b TimetableEntry) bool {
	if dayOrder[a.Day] != dayOrder[b.Day] {
		return dayOrder[a.Day] < dayOrder[b.Day]
	}
	if a.Period != b.Period {
		return a.Period < b.Period
	}
	return a.ClassID < b.ClassID
}

// TimetableBundle is a stored Timetable plus the entities its entries
// reference by ID - everything a consumer (the PDF exporter, a UI)
// needs to render it without a second round-trip to the repositories.
type TimetableBundle struct {
	Timetable Timetable
	Classes   []Class
	Subjects  []Subject
	Teachers  []Teacher
	Rooms     []Room
	TimeSlots []TimeSlot
}
