package ga

import (
	"math/rand"
	"sort"

	"github.com/schoolforge/timetable-engine/internal/domain"
)

// individual is one GA population member: a candidate Timetable's
// entries plus its cached fitness.
type individual struct {
	entries []domain.TimetableEntry
	score   float64
}

func cloneEntries(entries []domain.TimetableEntry) []domain.TimetableEntry {
	out := make([]domain.TimetableEntry, len(entries))
	copy(out, entries)
	return out
}

// tournamentSelect implements spec.md 4.7's "Selection": tournament of
// size t (binary fallback when the population is smaller than t).
func tournamentSelect(pop []individual, rng *rand.Rand, size int) individual {
	if size > len(pop) {
		size = len(pop)
	}
	if size < 2 {
		size = 1
	}
	best := pop[rng.Intn(len(pop))]
	for i := 1; i < size; i++ {
		c := pop[rng.Intn(len(pop))]
		if c.score > best.score {
			best = c
		}
	}
	return best
}

func presentDays(entries []domain.TimetableEntry) []domain.Day {
	seen := make(map[domain.Day]bool)
	var days []domain.Day
	for _, e := range entries {
		if !seen[e.Day] {
			seen[e.Day] = true
			days = append(days, e.Day)
		}
	}
	return days
}

// dayCrossover implements spec.md 4.7's day-slice crossover: a
// non-empty random subset of days is taken wholesale from parent A,
// the rest from parent B. The result is not guaranteed conflict-free;
// callers MUST repair it before acceptance.
func dayCrossover(a, b individual, rng *rand.Rand) []domain.TimetableEntry {
	present := presentDays(a.entries)
	if len(present) == 0 {
		return cloneEntries(a.entries)
	}

	var fromA map[domain.Day]bool
	for {
		fromA = make(map[domain.Day]bool, len(present))
		any := false
		for _, d := range present {
			if rng.Float64() < 0.5 {
				fromA[d] = true
				any = true
			}
		}
		if any {
			break
		}
	}

	var child []domain.TimetableEntry
	for _, en := range a.entries {
		if fromA[en.Day] {
			child = append(child, en)
		}
	}
	for _, en := range b.entries {
		if !fromA[en.Day] {
			child = append(child, en)
		}
	}
	return child
}

const (
	mutateSwapWithinClass = iota
	mutateSwapTeachers
	mutateMoveEntry
)

// mutate applies exactly one of the three spec.md 4.7 mutation
// operators to a clone of entries, returning the mutated genotype and
// whether a change was actually made (an operator can be a no-op if no
// eligible pair/slot exists).
func mutate(entries []domain.TimetableEntry, e *env, rng *rand.Rand) ([]domain.TimetableEntry, bool) {
	out := cloneEntries(entries)
	switch rng.Intn(3) {
	case mutateSwapWithinClass:
		return out, mutateSwapSlotsWithinClass(out, rng)
	case mutateSwapTeachers:
		return out, mutateSwapTeacherPairs(out, e, rng)
	default:
		return out, mutateMoveSingleEntry(out, e, rng)
	}
}

// mutateSwapSlotsWithinClass swaps the (day, period) of two entries
// belonging to the same class. It does not check for teacher/room
// conflicts; any the swap creates are left to the caller's repair pass.
func mutateSwapSlotsWithinClass(entries []domain.TimetableEntry, rng *rand.Rand) bool {
	byClass := groupByClass(entries)
	classes := classKeys(byClass)
	if len(classes) == 0 {
		return false
	}
	classID := classes[rng.Intn(len(classes))]
	idxs := byClass[classID]
	if len(idxs) < 2 {
		return false
	}
	i := idxs[rng.Intn(len(idxs))]
	j := idxs[rng.Intn(len(idxs))]
	for attempts := 0; attempts < 5 && i == j; attempts++ {
		j = idxs[rng.Intn(len(idxs))]
	}
	if i == j {
		return false
	}
	swapSlot(entries, i, j)
	return true
}

// mutateSwapTeacherPairs exchanges the teacher bound to two distinct
// (class, subject) pairs, applied to every entry in each pair so
// teacher consistency is preserved (spec.md 4.7's exchangeable-teacher
// swap).
func mutateSwapTeacherPairs(entries []domain.TimetableEntry, e *env, rng *rand.Rand) bool {
	pairs := groupByPair(entries)
	keys := pairKeys(pairs)
	if len(keys) < 2 {
		return false
	}
	k1 := keys[rng.Intn(len(keys))]
	k2 := keys[rng.Intn(len(keys))]
	for attempts := 0; attempts < 5 && k1 == k2; attempts++ {
		k2 = keys[rng.Intn(len(keys))]
	}
	if k1 == k2 {
		return false
	}

	idxs1, idxs2 := pairs[k1], pairs[k2]
	teacher1 := entries[idxs1[0]].TeacherID
	teacher2 := entries[idxs2[0]].TeacherID
	if teacher1 == teacher2 {
		return false
	}
	t1, ok1 := e.teacherByID[teacher1]
	t2, ok2 := e.teacherByID[teacher2]
	if !ok1 || !ok2 {
		return false
	}
	subject1, ok3 := e.subjectByID[k1.SubjectID]
	subject2, ok4 := e.subjectByID[k2.SubjectID]
	if !ok3 || !ok4 {
		return false
	}
	if !t1.Qualifies(subject2.Name, subject2.Code) || !t2.Qualifies(subject1.Name, subject1.Code) {
		return false
	}

	for _, i := range idxs1 {
		entries[i].TeacherID = teacher2
		entries[i].TeacherMeta = metaFor(t2)
	}
	for _, i := range idxs2 {
		entries[i].TeacherID = teacher1
		entries[i].TeacherMeta = metaFor(t1)
	}
	return true
}

// mutateMoveSingleEntry relocates one entry to another free slot of
// the same class (spec.md 4.7, "Move a single entry").
func mutateMoveSingleEntry(entries []domain.TimetableEntry, e *env, rng *rand.Rand) bool {
	if len(entries) == 0 {
		return false
	}
	i := rng.Intn(len(entries))
	free := e.freeClassSlots(entries, entries[i].ClassID)
	if len(free) == 0 {
		return false
	}
	slot := free[rng.Intn(len(free))]
	entries[i].Day = slot.Day
	entries[i].Period = slot.PeriodNumber
	entries[i].TimeSlotID = slot.ID
	return true
}

func groupByClass(entries []domain.TimetableEntry) map[domain.ClassID][]int {
	out := make(map[domain.ClassID][]int)
	for i, e := range entries {
		out[e.ClassID] = append(out[e.ClassID], i)
	}
	return out
}

// classKeys returns the map's keys sorted, since Go's map iteration
// order is randomized per process and every other stochastic choice in
// this package must stay reproducible given a fixed seed.
func classKeys(m map[domain.ClassID][]int) []domain.ClassID {
	out := make([]domain.ClassID, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type pairKey struct {
	ClassID   domain.ClassID
	SubjectID domain.SubjectID
}

func groupByPair(entries []domain.TimetableEntry) map[pairKey][]int {
	out := make(map[pairKey][]int)
	for i, e := range entries {
		key := pairKey{e.ClassID, e.SubjectID}
		out[key] = append(out[key], i)
	}
	return out
}

// pairKeys returns the map's keys sorted for the same reason as
// classKeys above.
func pairKeys(m map[pairKey][]int) []pairKey {
	out := make([]pairKey, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ClassID != out[j].ClassID {
			return out[i].ClassID < out[j].ClassID
		}
		return out[i].SubjectID < out[j].SubjectID
	})
	return out
}

func metaFor(t domain.Teacher) domain.EntryMetadata {
	return domain.EntryMetadata{MaxConsecutivePeriods: t.MaxConsecutivePeriods}
}
