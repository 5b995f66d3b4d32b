package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolforge/timetable-engine/internal/domain"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestClassRepositoryListBySchool(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	homeRoom := "room-1"
	rows := sqlmock.NewRows([]string{"id", "school_id", "name", "grade", "section", "student_count", "home_room_id"}).
		AddRow("class-1", "school-1", "10A", 10, "A", 30, &homeRoom)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, school_id, name, grade, section, student_count, home_room_id")).
		WithArgs("school-1").
		WillReturnRows(rows)

	classes, err := repo.ListBySchool(context.Background(), domain.SchoolID("school-1"))

	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, domain.ClassID("class-1"), classes[0].ID)
	require.NotNil(t, classes[0].HomeRoomID)
	assert.Equal(t, domain.RoomID("room-1"), *classes[0].HomeRoomID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryListBySchoolDecodesPeriodArrays(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	rows := sqlmock.NewRows([]string{"id", "school_id", "name", "code", "periods_per_week", "requires_lab", "is_elective", "prefer_morning", "preferred_periods", "avoid_periods"}).
		AddRow("subj-1", "school-1", "Math", "MTH", 4, false, false, true, "{1,2}", "{6}")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, school_id, name, code, periods_per_week, requires_lab")).
		WithArgs("school-1").
		WillReturnRows(rows)

	subjects, err := repo.ListBySchool(context.Background(), domain.SchoolID("school-1"))

	require.NoError(t, err)
	require.Len(t, subjects, 1)
	_, preferred := subjects[0].PreferredPeriods[1]
	assert.True(t, preferred)
	_, avoided := subjects[0].AvoidPeriods[6]
	assert.True(t, avoided)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryListBySchoolDecodesAvailability(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "subjects", "max_periods_per_day", "max_periods_per_week", "max_consecutive_periods", "availability"}).
		AddRow("teach-1", "u1", "{Math,Physics}", 6, 24, 3, types.JSONText(`{"MONDAY":[1,2]}`))
	mock.ExpectQuery(regexp.QuoteMeta("FROM teachers t WHERE t.school_id")).
		WithArgs("school-1").
		WillReturnRows(rows)

	teachers, err := repo.ListBySchool(context.Background(), domain.SchoolID("school-1"))

	require.NoError(t, err)
	require.Len(t, teachers, 1)
	assert.True(t, teachers[0].Qualifies("Math", ""))
	assert.False(t, teachers[0].IsAvailable(domain.Monday, 1))
	assert.True(t, teachers[0].IsAvailable(domain.Monday, 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryListBySchool(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	rows := sqlmock.NewRows([]string{"id", "school_id", "name", "type", "capacity", "facilities"}).
		AddRow("room-1", "school-1", "Lab 1", "LAB", 30, "{projector}")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, school_id, name, type, capacity, facilities")).
		WithArgs("school-1").
		WillReturnRows(rows)

	rooms, err := repo.ListBySchool(context.Background(), domain.SchoolID("school-1"))

	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, domain.RoomLab, rooms[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeSlotRepositoryListBySchool(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	rows := sqlmock.NewRows([]string{"id", "day", "period_number", "start_time", "end_time", "is_break"}).
		AddRow("slot-1", "MONDAY", 1, "07:00", "07:45", false)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, day, period_number, start_time, end_time, is_break")).
		WithArgs("school-1").
		WillReturnRows(rows)

	slots, err := repo.ListBySchool(context.Background(), domain.SchoolID("school-1"))

	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.True(t, slots[0].Active())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWeightsRepositoryGetBySchoolFallsBackToDefault(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewWeightsRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM optimization_weights WHERE school_id")).
		WithArgs("school-1").
		WillReturnError(sql.ErrNoRows)

	weights, err := repo.GetBySchool(context.Background(), domain.SchoolID("school-1"))

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultWeights(), weights)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWeightsRepositoryGetBySchoolReturnsStoredOverride(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewWeightsRepository(db)

	rows := sqlmock.NewRows([]string{"workload_balance", "gap_minimization", "time_preferences", "consecutive_periods", "coverage", "morning_period_cutoff"}).
		AddRow(99.0, 15.0, 25.0, 10.0, 1.0, 4)
	mock.ExpectQuery(regexp.QuoteMeta("FROM optimization_weights WHERE school_id")).
		WithArgs("school-1").
		WillReturnRows(rows)

	weights, err := repo.GetBySchool(context.Background(), domain.SchoolID("school-1"))

	require.NoError(t, err)
	assert.Equal(t, 99.0, weights.WorkloadBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcademicYearRepositoryGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	rows := sqlmock.NewRows([]string{"id", "school_id", "name", "valid_from", "valid_to"}).
		AddRow("ay-1", "school-1", "2026", "2026-01-01", "2026-12-31")
	mock.ExpectQuery(regexp.QuoteMeta("FROM academic_years WHERE id")).
		WithArgs("ay-1").
		WillReturnRows(rows)

	year, err := repo.Get(context.Background(), domain.AcademicYearID("ay-1"))

	require.NoError(t, err)
	assert.Equal(t, "2026", year.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRequirementRepositoryListBySchool(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeRequirementRepository(db)

	rows := sqlmock.NewRows([]string{"grade", "subject_id", "periods_per_week"}).
		AddRow(10, "subj-1", 5)
	mock.ExpectQuery(regexp.QuoteMeta("FROM grade_subject_requirements WHERE school_id")).
		WithArgs("school-1").
		WillReturnRows(rows)

	reqs, err := repo.ListBySchool(context.Background(), domain.SchoolID("school-1"))

	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, 5, reqs[0].PeriodsPerWeek)
	assert.NoError(t, mock.ExpectationsWereMet())
}
