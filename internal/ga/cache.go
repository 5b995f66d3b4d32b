package ga

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/schoolforge/timetable-engine/internal/domain"
)

// FitnessCache deduplicates evaluator runs across individuals that
// share a structural hash (spec.md 4.7, "Fitness"). The default is an
// in-process map; callers MAY supply one backed by an external store
// (e.g. the Redis-backed session cache of SPEC_FULL.md 4.12) to persist
// fitness across requests.
type FitnessCache interface {
	Get(hash uint64) (float64, bool)
	Put(hash uint64, score float64)
}

// memoryCache is the default FitnessCache: a plain map guarded by a
// mutex, scoped to one Evolve call and discarded when it returns
// (spec.md 5, "Memory": evaluation caches are per-request).
type memoryCache struct {
	mu     sync.Mutex
	scores map[uint64]float64
}

func newMemoryCache() *memoryCache {
	return &memoryCache{scores: make(map[uint64]float64)}
}

func (c *memoryCache) Get(hash uint64) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	score, ok := c.scores[hash]
	return score, ok
}

func (c *memoryCache) Put(hash uint64, score float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scores[hash] = score
}

// structuralHash keys an individual by its (day, period, class) →
// (subject, teacher, room) mapping (spec.md 4.7, "Fitness"). Entries
// are sorted first so two individuals with identical genes in a
// different slice order hash identically.
func structuralHash(entries []domain.TimetableEntry) uint64 {
	sorted := make([]domain.TimetableEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Day != sorted[j].Day {
			return sorted[i].Day < sorted[j].Day
		}
		if sorted[i].Period != sorted[j].Period {
			return sorted[i].Period < sorted[j].Period
		}
		return sorted[i].ClassID < sorted[j].ClassID
	})

	var b strings.Builder
	for _, e := range sorted {
		b.WriteString(string(e.Day))
		b.WriteByte('|')
		b.WriteString(strconv.Itoa(e.Period))
		b.WriteByte('|')
		b.WriteString(string(e.ClassID))
		b.WriteByte(':')
		b.WriteString(string(e.SubjectID))
		b.WriteByte(',')
		b.WriteString(string(e.TeacherID))
		b.WriteByte(',')
		b.WriteString(string(e.RoomID))
		b.WriteByte(';')
	}
	return xxhash.Sum64String(b.String())
}
