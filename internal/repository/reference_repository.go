// Package repository implements the Persistence Adapter (SPEC_FULL.md
// 4.11): one Postgres-backed struct per entity, matching the
// ingestion/egress points named in spec.md 6. The core engine package
// never imports database/sql, sqlx, or lib/pq — these repositories
// implement the narrow loader interfaces declared next to their
// consumers instead.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	"github.com/schoolforge/timetable-engine/internal/domain"
)

// ClassRepository loads the class sections feeding a GenerateRequest.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

type classRow struct {
	ID           string  `db:"id"`
	SchoolID     string  `db:"school_id"`
	Name         string  `db:"name"`
	Grade        int     `db:"grade"`
	Section      string  `db:"section"`
	StudentCount int     `db:"student_count"`
	HomeRoomID   *string `db:"home_room_id"`
}

func (r classRow) toDomain() domain.Class {
	class := domain.Class{
		ID:           domain.ClassID(r.ID),
		SchoolID:     domain.SchoolID(r.SchoolID),
		Name:         r.Name,
		Grade:        r.Grade,
		Section:      r.Section,
		StudentCount: r.StudentCount,
	}
	if r.HomeRoomID != nil {
		room := domain.RoomID(*r.HomeRoomID)
		class.HomeRoomID = &room
	}
	return class
}

// ListBySchool returns every class section for a school.
func (r *ClassRepository) ListBySchool(ctx context.Context, schoolID domain.SchoolID) ([]domain.Class, error) {
	var rows []classRow
	query := `SELECT id, school_id, name, grade, section, student_count, home_room_id
		FROM classes WHERE school_id = $1 ORDER BY grade, section`
	if err := r.db.SelectContext(ctx, &rows, query, string(schoolID)); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	out := make([]domain.Class, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

// SubjectRepository loads the teachable subjects feeding a GenerateRequest.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs a subject repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

type subjectRow struct {
	ID               string         `db:"id"`
	SchoolID         string         `db:"school_id"`
	Name             string         `db:"name"`
	Code             string         `db:"code"`
	PeriodsPerWeek   int            `db:"periods_per_week"`
	RequiresLab      bool           `db:"requires_lab"`
	IsElective       bool           `db:"is_elective"`
	PreferMorning    bool           `db:"prefer_morning"`
	PreferredPeriods pq.Int64Array  `db:"preferred_periods"`
	AvoidPeriods     pq.Int64Array  `db:"avoid_periods"`
}

func (r subjectRow) toDomain() domain.Subject {
	subj := domain.Subject{
		ID:             domain.SubjectID(r.ID),
		SchoolID:       domain.SchoolID(r.SchoolID),
		Name:           r.Name,
		Code:           r.Code,
		PeriodsPerWeek: r.PeriodsPerWeek,
		RequiresLab:    r.RequiresLab,
		IsElective:     r.IsElective,
		PreferMorning:  r.PreferMorning,
	}
	if len(r.PreferredPeriods) > 0 {
		subj.PreferredPeriods = make(map[int]struct{}, len(r.PreferredPeriods))
		for _, p := range r.PreferredPeriods {
			subj.PreferredPeriods[int(p)] = struct{}{}
		}
	}
	if len(r.AvoidPeriods) > 0 {
		subj.AvoidPeriods = make(map[int]struct{}, len(r.AvoidPeriods))
		for _, p := range r.AvoidPeriods {
			subj.AvoidPeriods[int(p)] = struct{}{}
		}
	}
	return subj
}

// ListBySchool returns every subject taught at a school.
func (r *SubjectRepository) ListBySchool(ctx context.Context, schoolID domain.SchoolID) ([]domain.Subject, error) {
	var rows []subjectRow
	query := `SELECT id, school_id, name, code, periods_per_week, requires_lab,
		is_elective, prefer_morning, preferred_periods, avoid_periods
		FROM subjects WHERE school_id = $1 ORDER BY name`
	if err := r.db.SelectContext(ctx, &rows, query, string(schoolID)); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	out := make([]domain.Subject, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

// TeacherRepository loads the instructors feeding a GenerateRequest.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a teacher repository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

type teacherRow struct {
	ID                    string         `db:"id"`
	UserID                string         `db:"user_id"`
	Subjects              pq.StringArray `db:"subjects"`
	MaxPeriodsPerDay      int            `db:"max_periods_per_day"`
	MaxPeriodsPerWeek     int            `db:"max_periods_per_week"`
	MaxConsecutivePeriods int            `db:"max_consecutive_periods"`
	Availability          types.JSONText `db:"availability"`
}

func (r teacherRow) toDomain() (domain.Teacher, error) {
	teacher := domain.Teacher{
		ID:                    domain.TeacherID(r.ID),
		UserID:                r.UserID,
		MaxPeriodsPerDay:      r.MaxPeriodsPerDay,
		MaxPeriodsPerWeek:     r.MaxPeriodsPerWeek,
		MaxConsecutivePeriods: r.MaxConsecutivePeriods,
	}
	teacher.Subjects = make(map[string]struct{}, len(r.Subjects))
	for _, s := range r.Subjects {
		teacher.Subjects[s] = struct{}{}
	}
	if len(r.Availability) > 0 && string(r.Availability) != "null" {
		var raw map[string][]int
		if err := json.Unmarshal(r.Availability, &raw); err != nil {
			return domain.Teacher{}, fmt.Errorf("unmarshal teacher %s availability: %w", r.ID, err)
		}
		teacher.Availability = make(domain.TeacherAvailability, len(raw))
		for day, periods := range raw {
			set := make(map[int]struct{}, len(periods))
			for _, p := range periods {
				set[p] = struct{}{}
			}
			teacher.Availability[domain.Day(day)] = set
		}
	}
	return teacher, nil
}

// ListBySchool returns every teacher qualified to teach at a school.
func (r *TeacherRepository) ListBySchool(ctx context.Context, schoolID domain.SchoolID) ([]domain.Teacher, error) {
	var rows []teacherRow
	query := `SELECT t.id, t.user_id, t.subjects, t.max_periods_per_day,
		t.max_periods_per_week, t.max_consecutive_periods, t.availability
		FROM teachers t WHERE t.school_id = $1 ORDER BY t.user_id`
	if err := r.db.SelectContext(ctx, &rows, query, string(schoolID)); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	out := make([]domain.Teacher, 0, len(rows))
	for _, row := range rows {
		teacher, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, teacher)
	}
	return out, nil
}

// RoomRepository loads the physical rooms feeding a GenerateRequest.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository constructs a room repository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

type roomRow struct {
	ID         string         `db:"id"`
	SchoolID   string         `db:"school_id"`
	Name       string         `db:"name"`
	Type       string         `db:"type"`
	Capacity   int            `db:"capacity"`
	Facilities pq.StringArray `db:"facilities"`
}

func (r roomRow) toDomain() domain.Room {
	room := domain.Room{
		ID:       domain.RoomID(r.ID),
		SchoolID: domain.SchoolID(r.SchoolID),
		Name:     r.Name,
		Type:     domain.RoomType(r.Type),
		Capacity: r.Capacity,
	}
	if len(r.Facilities) > 0 {
		room.Facilities = make(map[string]struct{}, len(r.Facilities))
		for _, f := range r.Facilities {
			room.Facilities[f] = struct{}{}
		}
	}
	return room
}

// ListBySchool returns every room available at a school.
func (r *RoomRepository) ListBySchool(ctx context.Context, schoolID domain.SchoolID) ([]domain.Room, error) {
	var rows []roomRow
	query := `SELECT id, school_id, name, type, capacity, facilities
		FROM rooms WHERE school_id = $1 ORDER BY name`
	if err := r.db.SelectContext(ctx, &rows, query, string(schoolID)); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	out := make([]domain.Room, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

// TimeSlotRepository loads the weekly grid cells feeding a GenerateRequest.
type TimeSlotRepository struct {
	db *sqlx.DB
}

// NewTimeSlotRepository constructs a time slot repository.
func NewTimeSlotRepository(db *sqlx.DB) *TimeSlotRepository {
	return &TimeSlotRepository{db: db}
}

type timeSlotRow struct {
	ID           string `db:"id"`
	Day          string `db:"day"`
	PeriodNumber int    `db:"period_number"`
	StartTime    string `db:"start_time"`
	EndTime      string `db:"end_time"`
	IsBreak      bool   `db:"is_break"`
}

func (r timeSlotRow) toDomain() domain.TimeSlot {
	return domain.TimeSlot{
		ID:           domain.TimeSlotID(r.ID),
		Day:          domain.Day(r.Day),
		PeriodNumber: r.PeriodNumber,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
		IsBreak:      r.IsBreak,
	}
}

// ListBySchool returns every timetable grid cell defined for a school.
func (r *TimeSlotRepository) ListBySchool(ctx context.Context, schoolID domain.SchoolID) ([]domain.TimeSlot, error) {
	var rows []timeSlotRow
	query := `SELECT id, day, period_number, start_time, end_time, is_break
		FROM time_slots WHERE school_id = $1 ORDER BY day, period_number`
	if err := r.db.SelectContext(ctx, &rows, query, string(schoolID)); err != nil {
		return nil, fmt.Errorf("list time slots: %w", err)
	}
	out := make([]domain.TimeSlot, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

// AcademicYearRepository loads the academic year a request is scoped to.
type AcademicYearRepository struct {
	db *sqlx.DB
}

// NewAcademicYearRepository constructs an academic year repository.
func NewAcademicYearRepository(db *sqlx.DB) *AcademicYearRepository {
	return &AcademicYearRepository{db: db}
}

type academicYearRow struct {
	ID        string `db:"id"`
	SchoolID  string `db:"school_id"`
	Name      string `db:"name"`
	ValidFrom string `db:"valid_from"`
	ValidTo   string `db:"valid_to"`
}

func (r academicYearRow) toDomain() domain.AcademicYear {
	return domain.AcademicYear{
		ID:        domain.AcademicYearID(r.ID),
		SchoolID:  domain.SchoolID(r.SchoolID),
		Name:      r.Name,
		ValidFrom: r.ValidFrom,
		ValidTo:   r.ValidTo,
	}
}

// Get returns a single academic year by ID.
func (r *AcademicYearRepository) Get(ctx context.Context, id domain.AcademicYearID) (*domain.AcademicYear, error) {
	var row academicYearRow
	query := `SELECT id, school_id, name, valid_from, valid_to FROM academic_years WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, string(id)); err != nil {
		return nil, fmt.Errorf("get academic year %s: %w", id, err)
	}
	year := row.toDomain()
	return &year, nil
}

// GradeRequirementRepository loads per-grade periods-per-week overrides.
type GradeRequirementRepository struct {
	db *sqlx.DB
}

// NewGradeRequirementRepository constructs a grade requirement repository.
func NewGradeRequirementRepository(db *sqlx.DB) *GradeRequirementRepository {
	return &GradeRequirementRepository{db: db}
}

type gradeRequirementRow struct {
	Grade          int    `db:"grade"`
	SubjectID      string `db:"subject_id"`
	PeriodsPerWeek int    `db:"periods_per_week"`
}

func (r gradeRequirementRow) toDomain() domain.GradeSubjectRequirement {
	return domain.GradeSubjectRequirement{
		Grade:          r.Grade,
		SubjectID:      domain.SubjectID(r.SubjectID),
		PeriodsPerWeek: r.PeriodsPerWeek,
	}
}

// ListBySchool returns every grade-level subject override for a school.
func (r *GradeRequirementRepository) ListBySchool(ctx context.Context, schoolID domain.SchoolID) ([]domain.GradeSubjectRequirement, error) {
	var rows []gradeRequirementRow
	query := `SELECT grade, subject_id, periods_per_week
		FROM grade_subject_requirements WHERE school_id = $1 ORDER BY grade, subject_id`
	if err := r.db.SelectContext(ctx, &rows, query, string(schoolID)); err != nil {
		return nil, fmt.Errorf("list grade requirements: %w", err)
	}
	out := make([]domain.GradeSubjectRequirement, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

// WeightsRepository loads a school's stored optimization weight overrides.
type WeightsRepository struct {
	db *sqlx.DB
}

// NewWeightsRepository constructs a weights repository.
func NewWeightsRepository(db *sqlx.DB) *WeightsRepository {
	return &WeightsRepository{db: db}
}

type weightsRow struct {
	WorkloadBalance     float64 `db:"workload_balance"`
	GapMinimization     float64 `db:"gap_minimization"`
	TimePreferences     float64 `db:"time_preferences"`
	ConsecutivePeriods  float64 `db:"consecutive_periods"`
	Coverage            float64 `db:"coverage"`
	MorningPeriodCutoff int     `db:"morning_period_cutoff"`
}

func (r weightsRow) toDomain() domain.OptimizationWeights {
	return domain.OptimizationWeights{
		WorkloadBalance:     r.WorkloadBalance,
		GapMinimization:     r.GapMinimization,
		TimePreferences:     r.TimePreferences,
		ConsecutivePeriods:  r.ConsecutivePeriods,
		Coverage:            r.Coverage,
		MorningPeriodCutoff: r.MorningPeriodCutoff,
	}
}

// GetBySchool returns a school's stored weight overrides, falling back
// to domain.DefaultWeights when none are configured.
func (r *WeightsRepository) GetBySchool(ctx context.Context, schoolID domain.SchoolID) (domain.OptimizationWeights, error) {
	var row weightsRow
	query := `SELECT workload_balance, gap_minimization, time_preferences,
		consecutive_periods, coverage, morning_period_cutoff
		FROM optimization_weights WHERE school_id = $1`
	err := r.db.GetContext(ctx, &row, query, string(schoolID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DefaultWeights(), nil
		}
		return domain.OptimizationWeights{}, fmt.Errorf("get weights for school %s: %w", schoolID, err)
	}
	return row.toDomain(), nil
}
