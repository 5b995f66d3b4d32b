package csp

import (
	"sort"

	"github.com/schoolforge/timetable-engine/internal/assigner"
	"github.com/schoolforge/timetable-engine/internal/domain"
)

// Lesson is one unit of the flattened lesson list L from spec.md 4.4.2:
// a (class, subject, teacher) tuple repeated periods_needed times.
type Lesson struct {
	ClassID       domain.ClassID
	SubjectID     domain.SubjectID
	TeacherID     domain.TeacherID
	RequiresLab   bool
	PreferMorning bool
	PreferredPeriods map[int]struct{}
	AvoidPeriods     map[int]struct{}
	ClassGrade       int
	SubjectPriority  float64 // from assigner's priority score, 4.3.3
	TeacherWeeklyDemand int
}

func (l Lesson) subjectMeta() domain.EntryMetadata {
	return domain.EntryMetadata{
		PreferMorning:    l.PreferMorning,
		PreferredPeriods: l.PreferredPeriods,
		AvoidPeriods:     l.AvoidPeriods,
	}
}

func (l Lesson) teacherMeta(t domain.Teacher) domain.EntryMetadata {
	return domain.EntryMetadata{MaxConsecutivePeriods: t.MaxConsecutivePeriods}
}

// buildLessons flattens (class, subject) demand into a lesson list and
// orders it per spec.md 4.4.2: lab-required first, then by
// (teacher_weekly_demand descending, subject priority descending, class
// grade ascending).
//
// When enforceTeacherConsistency is false, spec.md 4.4.1 step 1 skips
// the greedy pre-assignment entirely; this implementation then binds
// each individual lesson instance (not the whole pair) to whichever
// qualified teacher has the most remaining capacity at that point,
// so different periods of the same (class, subject) may end up with
// different teachers - a deliberate relaxation of the consistency
// invariant, matching what disabling the flag is for.
func buildLessons(
	classes []domain.Class,
	subjects []domain.Subject,
	teachers []domain.Teacher,
	gradeReqs []domain.GradeSubjectRequirement,
	teacherOf map[assigner.PairKey]domain.TeacherID,
	enforceTeacherConsistency bool,
) []Lesson {
	overrides := domain.BuildGradeOverrides(gradeReqs)

	subjectDemand := make(map[domain.SubjectID]int, len(subjects))
	for _, c := range classes {
		for _, s := range subjects {
			subjectDemand[s.ID] += overrides.PeriodsRequired(c, s)
		}
	}

	var lessons []Lesson
	remaining := make(map[domain.TeacherID]int, len(teachers))
	for _, t := range teachers {
		remaining[t.ID] = t.MaxPeriodsPerWeek
	}

	for _, c := range classes {
		for _, s := range subjects {
			periods := overrides.PeriodsRequired(c, s)
			if periods <= 0 {
				continue
			}

			boundTeacher := teacherOf[assigner.PairKey{ClassID: c.ID, SubjectID: s.ID}]
			for i := 0; i < periods; i++ {
				teacherID := boundTeacher
				if !enforceTeacherConsistency {
					teacherID = pickLeastLoadedQualified(s, teachers, remaining)
					remaining[teacherID]--
				}
				lessons = append(lessons, Lesson{
					ClassID:          c.ID,
					SubjectID:        s.ID,
					TeacherID:        teacherID,
					RequiresLab:      s.RequiresLab,
					PreferMorning:    s.PreferMorning,
					PreferredPeriods: s.PreferredPeriods,
					AvoidPeriods:     s.AvoidPeriods,
					ClassGrade:       c.Grade,
					SubjectPriority:  subjectPriority(s, subjectDemand[s.ID]),
				})
			}
		}
	}

	assignTeacherWeeklyDemand(lessons)
	sortLessons(lessons)
	return lessons
}

// assignTeacherWeeklyDemand back-fills Lesson.TeacherWeeklyDemand from
// the final per-teacher lesson counts, used only for ordering (4.4.2).
func assignTeacherWeeklyDemand(lessons []Lesson) {
	counts := make(map[domain.TeacherID]int, len(lessons))
	for _, l := range lessons {
		counts[l.TeacherID]++
	}
	for i := range lessons {
		lessons[i].TeacherWeeklyDemand = counts[lessons[i].TeacherID]
	}
}

func pickLeastLoadedQualified(subject domain.Subject, teachers []domain.Teacher, remaining map[domain.TeacherID]int) domain.TeacherID {
	var best domain.TeacherID
	bestRemaining := -1
	for _, t := range teachers {
		if !t.Qualifies(subject.Name, subject.Code) {
			continue
		}
		if remaining[t.ID] > bestRemaining || (remaining[t.ID] == bestRemaining && t.ID < best) {
			best = t.ID
			bestRemaining = remaining[t.ID]
		}
	}
	return best
}

func subjectPriority(s domain.Subject, subjectTotalDemand int) float64 {
	return assigner.PriorityScore(s.Name) + float64(subjectTotalDemand)
}

// sortLessons orders the flattened list per spec.md 4.4.2. Stable so
// that repeated periods of the same (class, subject) keep their
// relative order, and so that re-ordering within priority bands (used
// for multi-solution generation) is the only source of variation.
func sortLessons(lessons []Lesson) {
	sort.SliceStable(lessons, func(i, j int) bool {
		a, b := lessons[i], lessons[j]
		if a.RequiresLab != b.RequiresLab {
			return a.RequiresLab
		}
		if a.TeacherWeeklyDemand != b.TeacherWeeklyDemand {
			return a.TeacherWeeklyDemand > b.TeacherWeeklyDemand
		}
		if a.SubjectPriority != b.SubjectPriority {
			return a.SubjectPriority > b.SubjectPriority
		}
		if a.ClassGrade != b.ClassGrade {
			return a.ClassGrade < b.ClassGrade
		}
		if a.ClassID != b.ClassID {
			return a.ClassID < b.ClassID
		}
		return a.SubjectID < b.SubjectID
	})
}
