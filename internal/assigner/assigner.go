// Package assigner implements the Greedy Teacher Assigner (spec.md 4.3):
// binding exactly one teacher to every (class, subject) pair before any
// scheduling decision, enforcing teacher consistency up front.
package assigner

import (
	"sort"
	"strings"

	"github.com/schoolforge/timetable-engine/internal/domain"
	"github.com/schoolforge/timetable-engine/pkg/schederr"
)

// PairKey identifies one (class, subject) binding target.
type PairKey struct {
	ClassID   domain.ClassID
	SubjectID domain.SubjectID
}

// Assignment is the Greedy Assigner's output contract.
type Assignment struct {
	TeacherOf map[PairKey]domain.TeacherID
	Warnings  []string
}

var mandatoryKeywords = []string{"math", "english", "science", "language"}

type pairDemand struct {
	key     PairKey
	class   domain.Class
	subject domain.Subject
	periods int
	score   float64
}

// Assign runs the deterministic greedy binding algorithm from spec.md
// 4.3.4. It never mutates its inputs.
func Assign(
	classes []domain.Class,
	subjects []domain.Subject,
	teachers []domain.Teacher,
	gradeReqs []domain.GradeSubjectRequirement,
) (*Assignment, error) {
	overrides := domain.BuildGradeOverrides(gradeReqs)
	qualified := buildQualificationMap(subjects, teachers)

	subjectDemand := make(map[domain.SubjectID]int, len(subjects))
	var pairs []pairDemand
	for _, c := range classes {
		for _, s := range subjects {
			periods := overrides.PeriodsRequired(c, s)
			if periods <= 0 {
				continue
			}
			subjectDemand[s.ID] += periods
			pairs = append(pairs, pairDemand{
				key:     PairKey{ClassID: c.ID, SubjectID: s.ID},
				class:   c,
				subject: s,
				periods: periods,
			})
		}
	}

	for i := range pairs {
		pairs[i].score = PriorityScore(pairs[i].subject.Name) + float64(subjectDemand[pairs[i].subject.ID])
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].score != pairs[j].score {
			return pairs[i].score > pairs[j].score
		}
		if pairs[i].key.SubjectID != pairs[j].key.SubjectID {
			return pairs[i].key.SubjectID < pairs[j].key.SubjectID
		}
		return pairs[i].key.ClassID < pairs[j].key.ClassID
	})

	remainingCapacity := make(map[domain.TeacherID]int, len(teachers))
	for _, t := range teachers {
		remainingCapacity[t.ID] = t.MaxPeriodsPerWeek
	}

	result := &Assignment{TeacherOf: make(map[PairKey]domain.TeacherID, len(pairs))}

	for _, pair := range pairs {
		candidates := qualified[pair.subject.ID]
		if len(candidates) == 0 {
			return nil, schederr.NoQualifiedTeacher(pair.subject.Name)
		}

		chosen, ok := pickTeacher(candidates, remainingCapacity, pair.periods)
		if !ok {
			// Relax to any teacher with remaining capacity > 0, by
			// maximum remaining capacity, per spec.md 4.3.4 step 4.
			chosen, ok = pickTeacher(candidates, remainingCapacity, 1)
			if !ok {
				deficit := pair.periods
				for _, id := range candidates {
					deficit -= remainingCapacity[id]
				}
				if deficit < 0 {
					deficit = pair.periods
				}
				return nil, schederr.InsufficientTeacherCapacity(pair.subject.Name, deficit)
			}
			result.Warnings = append(result.Warnings, bestFitWarning(pair.subject.Name, pair.class.Name))
		}

		result.TeacherOf[pair.key] = chosen
		remainingCapacity[chosen] -= pair.periods
	}

	return result, nil
}

func buildQualificationMap(subjects []domain.Subject, teachers []domain.Teacher) map[domain.SubjectID][]domain.TeacherID {
	out := make(map[domain.SubjectID][]domain.TeacherID, len(subjects))
	for _, s := range subjects {
		var ids []domain.TeacherID
		for _, t := range teachers {
			if t.Qualifies(s.Name, s.Code) {
				ids = append(ids, t.ID)
			}
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		out[s.ID] = ids
	}
	return out
}

// PriorityScore implements the mandatory-bonus half of spec.md 4.3.3.
// Exported so the CSP solver's lesson-list ordering (spec.md 4.4.2,
// "subject priority from 4.3 descending") scores subjects identically.
func PriorityScore(subjectName string) float64 {
	lower := strings.ToLower(subjectName)
	for _, kw := range mandatoryKeywords {
		if strings.Contains(lower, kw) {
			return 1000
		}
	}
	return 0
}

// pickTeacher chooses, among candidates with remaining capacity >=
// minPeriods, the one maximizing (max - current load), tie-broken by
// lexicographic teacher id (spec.md 4.3.4 step 4).
func pickTeacher(candidates []domain.TeacherID, remaining map[domain.TeacherID]int, minPeriods int) (domain.TeacherID, bool) {
	var best domain.TeacherID
	bestRemaining := -1
	found := false
	for _, id := range candidates {
		if remaining[id] < minPeriods {
			continue
		}
		if remaining[id] > bestRemaining || (remaining[id] == bestRemaining && id < best) {
			best = id
			bestRemaining = remaining[id]
			found = true
		}
	}
	return best, found
}

func bestFitWarning(subject, class string) string {
	return "assigned " + subject + " for " + class + " to a best-fit teacher over remaining capacity"
}
