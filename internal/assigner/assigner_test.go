package assigner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolforge/timetable-engine/internal/assigner"
	"github.com/schoolforge/timetable-engine/internal/domain"
	"github.com/schoolforge/timetable-engine/pkg/schederr"
)

func TestAssign_OneTeacherPerClassSubject(t *testing.T) {
	classes := []domain.Class{{ID: "c1", Grade: 10, Name: "10A"}, {ID: "c2", Grade: 10, Name: "10B"}}
	subjects := []domain.Subject{{ID: "math", Name: "Mathematics", Code: "MATH", PeriodsPerWeek: 4}}
	teachers := []domain.Teacher{
		{ID: "t1", Subjects: map[string]struct{}{"Mathematics": {}}, MaxPeriodsPerWeek: 10},
		{ID: "t2", Subjects: map[string]struct{}{"Mathematics": {}}, MaxPeriodsPerWeek: 10},
	}

	result, err := assigner.Assign(classes, subjects, teachers, nil)

	require.NoError(t, err)
	require.Len(t, result.TeacherOf, 2)
	teacherForC1 := result.TeacherOf[assigner.PairKey{ClassID: "c1", SubjectID: "math"}]
	teacherForC2 := result.TeacherOf[assigner.PairKey{ClassID: "c2", SubjectID: "math"}]
	assert.NotEmpty(t, teacherForC1)
	assert.NotEmpty(t, teacherForC2)
	// load-balanced: with equal starting capacity, the two classes must
	// not be bound to the same teacher when an alternative has spare room.
	assert.NotEqual(t, teacherForC1, teacherForC2)
}

func TestAssign_MandatorySubjectPrioritizedOverElective(t *testing.T) {
	// A single teacher qualified for both an elective and a mandatory
	// subject has only enough capacity for one pair's full demand; the
	// mandatory subject (contains "math") must be processed first and
	// claim the teacher's capacity, leaving none for the elective.
	classes := []domain.Class{{ID: "c1", Grade: 9, Name: "9A"}}
	subjects := []domain.Subject{
		{ID: "art", Name: "Art", Code: "ART", PeriodsPerWeek: 3, IsElective: true},
		{ID: "math", Name: "Mathematics", Code: "MATH", PeriodsPerWeek: 3},
	}
	teachers := []domain.Teacher{
		{ID: "t1", Subjects: map[string]struct{}{"Art": {}, "Mathematics": {}}, MaxPeriodsPerWeek: 3},
	}

	_, err := assigner.Assign(classes, subjects, teachers, nil)

	require.Error(t, err, "t1's entire capacity goes to math, leaving art unassignable")
	assert.True(t, schederr.Is(err, schederr.KindInsufficientTeacherCapacity))
}

func TestAssign_NoQualifiedTeacher(t *testing.T) {
	classes := []domain.Class{{ID: "c1", Grade: 10, Name: "10A"}}
	subjects := []domain.Subject{{ID: "phys", Name: "Physics", Code: "PHYS", PeriodsPerWeek: 4}}

	_, err := assigner.Assign(classes, subjects, nil, nil)

	require.Error(t, err)
	assert.True(t, schederr.Is(err, schederr.KindNoQualifiedTeacher))
}

func TestAssign_InsufficientCapacityReportsDeficit(t *testing.T) {
	classes := []domain.Class{
		{ID: "c1", Grade: 10, Name: "10A"},
		{ID: "c2", Grade: 10, Name: "10B"},
		{ID: "c3", Grade: 10, Name: "10C"},
	}
	subjects := []domain.Subject{{ID: "math", Name: "Mathematics", Code: "MATH", PeriodsPerWeek: 5}}
	teachers := []domain.Teacher{
		{ID: "t1", Subjects: map[string]struct{}{"Mathematics": {}}, MaxPeriodsPerWeek: 8},
	}

	_, err := assigner.Assign(classes, subjects, teachers, nil)

	require.Error(t, err)
	assert.True(t, schederr.Is(err, schederr.KindInsufficientTeacherCapacity))
}

func TestAssign_GradeOverrideChangesDemand(t *testing.T) {
	classes := []domain.Class{{ID: "c1", Grade: 11, Name: "11A"}}
	subjects := []domain.Subject{{ID: "math", Name: "Mathematics", Code: "MATH", PeriodsPerWeek: 4}}
	teachers := []domain.Teacher{
		{ID: "t1", Subjects: map[string]struct{}{"Mathematics": {}}, MaxPeriodsPerWeek: 6},
	}
	overrides := []domain.GradeSubjectRequirement{{Grade: 11, SubjectID: "math", PeriodsPerWeek: 6}}

	result, err := assigner.Assign(classes, subjects, teachers, overrides)

	require.NoError(t, err)
	assert.Equal(t, domain.TeacherID("t1"), result.TeacherOf[assigner.PairKey{ClassID: "c1", SubjectID: "math"}])
}

func TestAssign_Deterministic(t *testing.T) {
	classes := []domain.Class{{ID: "c1", Grade: 10, Name: "10A"}, {ID: "c2", Grade: 10, Name: "10B"}}
	subjects := []domain.Subject{{ID: "eng", Name: "English", Code: "ENG", PeriodsPerWeek: 3}}
	teachers := []domain.Teacher{
		{ID: "tb", Subjects: map[string]struct{}{"English": {}}, MaxPeriodsPerWeek: 10},
		{ID: "ta", Subjects: map[string]struct{}{"English": {}}, MaxPeriodsPerWeek: 10},
	}

	first, err1 := assigner.Assign(classes, subjects, teachers, nil)
	second, err2 := assigner.Assign(classes, subjects, teachers, nil)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, first.TeacherOf, second.TeacherOf)
}
