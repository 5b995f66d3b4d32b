// Package dto holds the wire shapes for the HTTP API (SPEC_FULL.md
// 4.10) and the conversions to/from internal/domain. No scheduling
// logic lives here — only marshalling and go-playground/validator tags.
package dto

import (
	"github.com/schoolforge/timetable-engine/internal/domain"
)

// ClassInput describes one class section feeding a generate/validate call.
type ClassInput struct {
	ID           string `json:"id" validate:"required"`
	Name         string `json:"name" validate:"required"`
	Grade        int    `json:"grade" validate:"min=1"`
	Section      string `json:"section"`
	StudentCount int    `json:"studentCount" validate:"min=0"`
	HomeRoomID   string `json:"homeRoomId,omitempty"`
}

func (c ClassInput) toDomain() domain.Class {
	class := domain.Class{
		ID:           domain.ClassID(c.ID),
		Name:         c.Name,
		Grade:        c.Grade,
		Section:      c.Section,
		StudentCount: c.StudentCount,
	}
	if c.HomeRoomID != "" {
		room := domain.RoomID(c.HomeRoomID)
		class.HomeRoomID = &room
	}
	return class
}

// SubjectInput describes one teachable subject.
type SubjectInput struct {
	ID               string `json:"id" validate:"required"`
	Name             string `json:"name" validate:"required"`
	Code             string `json:"code"`
	PeriodsPerWeek   int    `json:"periodsPerWeek" validate:"required,min=1,max=10"`
	RequiresLab      bool   `json:"requiresLab"`
	IsElective       bool   `json:"isElective"`
	PreferMorning    bool   `json:"preferMorning"`
	PreferredPeriods []int  `json:"preferredPeriods,omitempty" validate:"omitempty,dive,min=1"`
	AvoidPeriods     []int  `json:"avoidPeriods,omitempty" validate:"omitempty,dive,min=1"`
}

func (s SubjectInput) toDomain() domain.Subject {
	subj := domain.Subject{
		ID:             domain.SubjectID(s.ID),
		Name:           s.Name,
		Code:           s.Code,
		PeriodsPerWeek: s.PeriodsPerWeek,
		RequiresLab:    s.RequiresLab,
		IsElective:     s.IsElective,
		PreferMorning:  s.PreferMorning,
	}
	if len(s.PreferredPeriods) > 0 {
		subj.PreferredPeriods = make(map[int]struct{}, len(s.PreferredPeriods))
		for _, p := range s.PreferredPeriods {
			subj.PreferredPeriods[p] = struct{}{}
		}
	}
	if len(s.AvoidPeriods) > 0 {
		subj.AvoidPeriods = make(map[int]struct{}, len(s.AvoidPeriods))
		for _, p := range s.AvoidPeriods {
			subj.AvoidPeriods[p] = struct{}{}
		}
	}
	return subj
}

// TeacherAvailabilityInput blocks a teacher for one day's periods.
type TeacherAvailabilityInput struct {
	Day     string `json:"day" validate:"required"`
	Periods []int  `json:"blockedPeriods" validate:"omitempty,dive,min=1"`
}

// TeacherInput describes one instructor.
type TeacherInput struct {
	ID                    string                     `json:"id" validate:"required"`
	UserID                string                     `json:"userId"`
	Subjects              []string                   `json:"subjects" validate:"required,min=1"`
	MaxPeriodsPerDay      int                        `json:"maxPeriodsPerDay" validate:"required,min=1"`
	MaxPeriodsPerWeek     int                        `json:"maxPeriodsPerWeek" validate:"required,min=1"`
	MaxConsecutivePeriods int                        `json:"maxConsecutivePeriods" validate:"min=0"`
	Availability          []TeacherAvailabilityInput `json:"availability,omitempty"`
}

func (t TeacherInput) toDomain() domain.Teacher {
	teacher := domain.Teacher{
		ID:                    domain.TeacherID(t.ID),
		UserID:                t.UserID,
		MaxPeriodsPerDay:      t.MaxPeriodsPerDay,
		MaxPeriodsPerWeek:     t.MaxPeriodsPerWeek,
		MaxConsecutivePeriods: t.MaxConsecutivePeriods,
	}
	teacher.Subjects = make(map[string]struct{}, len(t.Subjects))
	for _, s := range t.Subjects {
		teacher.Subjects[s] = struct{}{}
	}
	if len(t.Availability) > 0 {
		teacher.Availability = make(domain.TeacherAvailability, len(t.Availability))
		for _, a := range t.Availability {
			periods := make(map[int]struct{}, len(a.Periods))
			for _, p := range a.Periods {
				periods[p] = struct{}{}
			}
			teacher.Availability[domain.Day(a.Day)] = periods
		}
	}
	return teacher
}

// RoomInput describes one physical room.
type RoomInput struct {
	ID         string   `json:"id" validate:"required"`
	Name       string   `json:"name" validate:"required"`
	Type       string   `json:"type"`
	Capacity   int      `json:"capacity" validate:"min=0"`
	Facilities []string `json:"facilities,omitempty"`
}

func (r RoomInput) toDomain() domain.Room {
	room := domain.Room{
		ID:       domain.RoomID(r.ID),
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

// TimeSlotInput describes one cell of the weekly grid.
type TimeSlotInput struct {
	ID           string `json:"id" validate:"required"`
	Day          string `json:"day" validate:"required"`
	PeriodNumber int    `json:"periodNumber" validate:"required,min=1"`
	StartTime    string `json:"startTime"`
	EndTime      string `json:"endTime"`
	IsBreak      bool   `json:"isBreak"`
}

func (t TimeSlotInput) toDomain() domain.TimeSlot {
	return domain.TimeSlot{
		ID:           domain.TimeSlotID(t.ID),
		Day:          domain.Day(t.Day),
		PeriodNumber: t.PeriodNumber,
		StartTime:    t.StartTime,
		EndTime:      t.EndTime,
		IsBreak:      t.IsBreak,
	}
}

// ConstraintInput describes one named scheduling rule.
type ConstraintInput struct {
	ID         string         `json:"id" validate:"required"`
	Kind       string         `json:"kind" validate:"required"`
	Priority   string         `json:"priority" validate:"required,oneof=MANDATORY HIGH MEDIUM LOW"`
	EntityRef  string         `json:"entityRef"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

func (c ConstraintInput) toDomain() domain.Constraint {
	return domain.Constraint{
		ID:         domain.ConstraintID(c.ID),
		Kind:       c.Kind,
		Priority:   domain.ConstraintPriority(c.Priority),
		EntityRef:  c.EntityRef,
		Parameters: c.Parameters,
	}
}

// GradeRequirementInput overrides a subject's periods-per-week for one grade.
type GradeRequirementInput struct {
	Grade          int    `json:"grade" validate:"min=1"`
	SubjectID      string `json:"subjectId" validate:"required"`
	PeriodsPerWeek int    `json:"periodsPerWeek" validate:"required,min=1"`
}

func (g GradeRequirementInput) toDomain() domain.GradeSubjectRequirement {
	return domain.GradeSubjectRequirement{
		Grade:          g.Grade,
		SubjectID:      domain.SubjectID(g.SubjectID),
		PeriodsPerWeek: g.PeriodsPerWeek,
	}
}

// WeightsInput overrides the default optimization weights (spec.md 6).
type WeightsInput struct {
	WorkloadBalance     *float64 `json:"workloadBalance,omitempty"`
	GapMinimization     *float64 `json:"gapMinimization,omitempty"`
	TimePreferences     *float64 `json:"timePreferences,omitempty"`
	ConsecutivePeriods  *float64 `json:"consecutivePeriods,omitempty"`
	Coverage            *float64 `json:"coverage,omitempty"`
	MorningPeriodCutoff *int     `json:"morningPeriodCutoff,omitempty"`
}

func (w WeightsInput) toDomain() domain.OptimizationWeights {
	weights := domain.DefaultWeights()
	if w.WorkloadBalance != nil {
		weights.WorkloadBalance = *w.WorkloadBalance
	}
	if w.GapMinimization != nil {
		weights.GapMinimization = *w.GapMinimization
	}
	if w.TimePreferences != nil {
		weights.TimePreferences = *w.TimePreferences
	}
	if w.ConsecutivePeriods != nil {
		weights.ConsecutivePeriods = *w.ConsecutivePeriods
	}
	if w.Coverage != nil {
		weights.Coverage = *w.Coverage
	}
	if w.MorningPeriodCutoff != nil {
		weights.MorningPeriodCutoff = *w.MorningPeriodCutoff
	}
	return weights
}

// inputSet is the shared entity payload both generate and validate take.
type inputSet struct {
	Classes             []ClassInput            `json:"classes" validate:"required,min=1,dive"`
	Subjects            []SubjectInput          `json:"subjects" validate:"required,min=1,dive"`
	Teachers            []TeacherInput          `json:"teachers" validate:"required,min=1,dive"`
	TimeSlots           []TimeSlotInput         `json:"timeSlots" validate:"required,min=1,dive"`
	Rooms               []RoomInput             `json:"rooms" validate:"omitempty,dive"`
	Constraints         []ConstraintInput       `json:"constraints,omitempty" validate:"omitempty,dive"`
	SubjectRequirements []GradeRequirementInput `json:"subjectRequirements,omitempty" validate:"omitempty,dive"`
}

func (in inputSet) classes() []domain.Class {
	out := make([]domain.Class, len(in.Classes))
	for i, c := range in.Classes {
		out[i] = c.toDomain()
	}
	return out
}

func (in inputSet) subjects() []domain.Subject {
	out := make([]domain.Subject, len(in.Subjects))
	for i, s := range in.Subjects {
		out[i] = s.toDomain()
	}
	return out
}

func (in inputSet) teachers() []domain.Teacher {
	out := make([]domain.Teacher, len(in.Teachers))
	for i, t := range in.Teachers {
		out[i] = t.toDomain()
	}
	return out
}

func (in inputSet) timeSlots() []domain.TimeSlot {
	out := make([]domain.TimeSlot, len(in.TimeSlots))
	for i, t := range in.TimeSlots {
		out[i] = t.toDomain()
	}
	return out
}

func (in inputSet) rooms() []domain.Room {
	out := make([]domain.Room, len(in.Rooms))
	for i, r := range in.Rooms {
		out[i] = r.toDomain()
	}
	return out
}

func (in inputSet) constraints() []domain.Constraint {
	out := make([]domain.Constraint, len(in.Constraints))
	for i, c := range in.Constraints {
		out[i] = c.toDomain()
	}
	return out
}

func (in inputSet) subjectRequirements() []domain.GradeSubjectRequirement {
	out := make([]domain.GradeSubjectRequirement, len(in.SubjectRequirements))
	for i, r := range in.SubjectRequirements {
		out[i] = r.toDomain()
	}
	return out
}

// GenerateScheduleRequest is the POST /schedules/generate payload.
type GenerateScheduleRequest struct {
	inputSet
	SchoolID                 string        `json:"schoolId" validate:"required"`
	AcademicYearID            string        `json:"academicYearId" validate:"required"`
	Weights                   *WeightsInput `json:"weights,omitempty"`
	NumSolutions              int           `json:"numSolutions,omitempty" validate:"omitempty,min=1,max=10"`
	TimeoutSeconds            int           `json:"timeoutSeconds,omitempty" validate:"omitempty,min=1,max=300"`
	EnforceTeacherConsistency bool          `json:"enforceTeacherConsistency,omitempty"`
	Seed                      int64         `json:"seed,omitempty"`
}

// ToDomain converts the wire payload into the core's GenerateRequest.
func (r GenerateScheduleRequest) ToDomain() domain.GenerateRequest {
	req := domain.GenerateRequest{
		SchoolID:                  domain.SchoolID(r.SchoolID),
		AcademicYearID:             domain.AcademicYearID(r.AcademicYearID),
		Classes:                    r.classes(),
		Subjects:                   r.subjects(),
		Teachers:                   r.teachers(),
		TimeSlots:                  r.timeSlots(),
		Rooms:                      r.rooms(),
		Constraints:                r.constraints(),
		SubjectRequirements:        r.subjectRequirements(),
		NumSolutions:               r.NumSolutions,
		TimeoutSeconds:             r.TimeoutSeconds,
		EnforceTeacherConsistency:  r.EnforceTeacherConsistency,
		Seed:                       r.Seed,
	}
	if r.Weights != nil {
		req.Weights = r.Weights.toDomain()
	} else {
		req.Weights = domain.DefaultWeights()
	}
	return req
}

// ValidateScheduleRequest is the POST /schedules/validate payload.
type ValidateScheduleRequest struct {
	inputSet
}

// ToDomain converts the wire payload into the core's ValidateRequest.
func (r ValidateScheduleRequest) ToDomain() domain.ValidateRequest {
	return domain.ValidateRequest{
		Classes:             r.classes(),
		Subjects:            r.subjects(),
		Teachers:            r.teachers(),
		TimeSlots:           r.timeSlots(),
		Rooms:               r.rooms(),
		Constraints:         r.constraints(),
		SubjectRequirements: r.subjectRequirements(),
	}
}

// TimetableEntryDTO is one placed lesson in the wire response.
type TimetableEntryDTO struct {
	ClassID   string `json:"classId"`
	SubjectID string `json:"subjectId"`
	TeacherID string `json:"teacherId"`
	RoomID    string `json:"roomId"`
	Day       string `json:"day"`
	Period    int    `json:"period"`
}

// MetricsDTO summarizes one solution's constraint satisfaction.
type MetricsDTO struct {
	ConstraintsSatisfied int `json:"constraintsSatisfied"`
	TotalConstraints     int `json:"totalConstraints"`
	Gaps                 int `json:"gaps"`
}

// TimetableSolutionDTO is one ranked candidate in a GenerateScheduleResponse.
type TimetableSolutionDTO struct {
	TimetableID string               `json:"timetableId"`
	Entries     []TimetableEntryDTO  `json:"entries"`
	TotalScore  float64              `json:"totalScore"`
	Feasible    bool                 `json:"feasible"`
	Conflicts   []string             `json:"conflicts,omitempty"`
	Metrics     MetricsDTO           `json:"metrics"`
}

func fromSolution(s domain.TimetableSolution) TimetableSolutionDTO {
	entries := make([]TimetableEntryDTO, len(s.Timetable.Entries))
	for i, e := range s.Timetable.Entries {
		entries[i] = TimetableEntryDTO{
			ClassID:   string(e.ClassID),
			SubjectID: string(e.SubjectID),
			TeacherID: string(e.TeacherID),
			RoomID:    string(e.RoomID),
			Day:       string(e.Day),
			Period:    e.Period,
		}
	}
	return TimetableSolutionDTO{
		TimetableID: string(s.Timetable.ID),
		Entries:     entries,
		TotalScore:  s.TotalScore,
		Feasible:    s.Feasible,
		Conflicts:   s.Conflicts,
		Metrics: MetricsDTO{
			ConstraintsSatisfied: s.Metrics.ConstraintsSatisfied,
			TotalConstraints:     s.Metrics.TotalConstraints,
			Gaps:                 s.Metrics.Gaps,
		},
	}
}

// DiagnosticsDTO carries failure-path bottleneck information.
type DiagnosticsDTO struct {
	EmptyCandidateLessons []string       `json:"emptyCandidateLessons,omitempty"`
	BindingResources      map[string]int `json:"bindingResources,omitempty"`
	TopSuggestions        []string       `json:"topSuggestions,omitempty"`
}

// GenerateScheduleResponse is the POST /schedules/generate response body.
type GenerateScheduleResponse struct {
	Solutions             []TimetableSolutionDTO `json:"solutions"`
	GenerationTimeSeconds float64                 `json:"generationTimeSeconds"`
	Conflicts             []string                `json:"conflicts,omitempty"`
	Suggestions           []string                `json:"suggestions,omitempty"`
	Diagnostics           *DiagnosticsDTO          `json:"diagnostics,omitempty"`
}

// FromDomain converts the core's GenerateResponse into the wire shape.
func FromDomain(resp domain.GenerateResponse) GenerateScheduleResponse {
	solutions := make([]TimetableSolutionDTO, len(resp.Solutions))
	for i, s := range resp.Solutions {
		solutions[i] = fromSolution(s)
	}
	out := GenerateScheduleResponse{
		Solutions:             solutions,
		GenerationTimeSeconds: resp.GenerationTimeSeconds,
		Conflicts:             resp.Conflicts,
		Suggestions:           resp.Suggestions,
	}
	if resp.Diagnostics != nil {
		out.Diagnostics = &DiagnosticsDTO{
			EmptyCandidateLessons: resp.Diagnostics.EmptyCandidateLessons,
			BindingResources:      resp.Diagnostics.BindingResources,
			TopSuggestions:        resp.Diagnostics.TopSuggestions,
		}
	}
	return out
}

// ValidationResultDTO is the POST /schedules/validate response body.
type ValidationResultDTO struct {
	Feasible    bool     `json:"feasible"`
	Conflicts   []string `json:"conflicts,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// ValidationResultFromDomain converts the core's ValidationResult.
func ValidationResultFromDomain(r domain.ValidationResult) ValidationResultDTO {
	return ValidationResultDTO{
		Feasible:    r.Feasible,
		Conflicts:   r.Conflicts,
		Suggestions: r.Suggestions,
	}
}
