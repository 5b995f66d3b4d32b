package dto

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolforge/timetable-engine/internal/domain"
)

func validGenerateRequest() GenerateScheduleRequest {
	return GenerateScheduleRequest{
		SchoolID:       "school-1",
		AcademicYearID: "ay-1",
		inputSet: inputSet{
			Classes: []ClassInput{
				{ID: "class-1", Name: "10A", Grade: 10, StudentCount: 30},
			},
			Subjects: []SubjectInput{
				{ID: "subj-1", Name: "Math", PeriodsPerWeek: 4},
			},
			Teachers: []TeacherInput{
				{ID: "teach-1", Subjects: []string{"Math"}, MaxPeriodsPerDay: 6, MaxPeriodsPerWeek: 24},
			},
			TimeSlots: []TimeSlotInput{
				{ID: "slot-1", Day: "MONDAY", PeriodNumber: 1},
			},
		},
	}
}

func TestGenerateScheduleRequestValidation(t *testing.T) {
	v := validator.New()
	req := validGenerateRequest()
	require.NoError(t, v.Struct(req))
}

func TestGenerateScheduleRequestRejectsMissingClasses(t *testing.T) {
	v := validator.New()
	req := validGenerateRequest()
	req.Classes = nil
	assert.Error(t, v.Struct(req))
}

func TestGenerateScheduleRequestRejectsBadSubjectPeriods(t *testing.T) {
	v := validator.New()
	req := validGenerateRequest()
	req.Subjects[0].PeriodsPerWeek = 0
	assert.Error(t, v.Struct(req))
}

func TestGenerateScheduleRequestToDomainDefaultsWeights(t *testing.T) {
	req := validGenerateRequest()
	domainReq := req.ToDomain()

	assert.Equal(t, domain.DefaultWeights(), domainReq.Weights)
	assert.Equal(t, domain.SchoolID("school-1"), domainReq.SchoolID)
	require.Len(t, domainReq.Classes, 1)
	assert.Equal(t, domain.ClassID("class-1"), domainReq.Classes[0].ID)
	require.Len(t, domainReq.Teachers, 1)
	_, qualified := domainReq.Teachers[0].Subjects["Math"]
	assert.True(t, qualified)
}

func TestGenerateScheduleRequestToDomainAppliesWeightOverride(t *testing.T) {
	req := validGenerateRequest()
	override := 99.0
	req.Weights = &WeightsInput{WorkloadBalance: &override}

	domainReq := req.ToDomain()

	assert.Equal(t, 99.0, domainReq.Weights.WorkloadBalance)
	assert.Equal(t, domain.DefaultWeights().GapMinimization, domainReq.Weights.GapMinimization)
}

func TestClassInputToDomainCarriesHomeRoom(t *testing.T) {
	in := ClassInput{ID: "class-1", Name: "10A", Grade: 10, HomeRoomID: "room-1"}
	class := in.toDomain()
	require.NotNil(t, class.HomeRoomID)
	assert.Equal(t, domain.RoomID("room-1"), *class.HomeRoomID)
}

func TestClassInputToDomainOmitsHomeRoomWhenEmpty(t *testing.T) {
	in := ClassInput{ID: "class-1", Name: "10A", Grade: 10}
	class := in.toDomain()
	assert.Nil(t, class.HomeRoomID)
}

func TestTeacherInputToDomainBuildsAvailability(t *testing.T) {
	in := TeacherInput{
		ID:                "teach-1",
		Subjects:          []string{"Math"},
		MaxPeriodsPerDay:  6,
		MaxPeriodsPerWeek: 24,
		Availability: []TeacherAvailabilityInput{
			{Day: "MONDAY", Periods: []int{1, 2}},
		},
	}
	teacher := in.toDomain()

	assert.False(t, teacher.IsAvailable(domain.Day("MONDAY"), 1))
	assert.True(t, teacher.IsAvailable(domain.Day("MONDAY"), 3))
	assert.True(t, teacher.Qualifies("Math", ""))
}

func TestValidateScheduleRequestToDomain(t *testing.T) {
	req := ValidateScheduleRequest{inputSet: validGenerateRequest().inputSet}
	domainReq := req.ToDomain()
	require.Len(t, domainReq.Classes, 1)
	require.Len(t, domainReq.Subjects, 1)
}

func TestFromDomainConvertsSolutionsAndDiagnostics(t *testing.T) {
	resp := domain.GenerateResponse{
		Solutions: []domain.TimetableSolution{
			{
				Timetable: domain.Timetable{
					ID: "tt-1",
					Entries: []domain.TimetableEntry{
						{ClassID: "class-1", SubjectID: "subj-1", TeacherID: "teach-1", RoomID: "room-1", Day: "MONDAY", Period: 1},
					},
				},
				TotalScore: 87.5,
				Feasible:   true,
			},
		},
		GenerationTimeSeconds: 1.23,
		Diagnostics: &domain.Diagnostics{
			TopSuggestions: []string{"add a teacher"},
		},
	}

	out := FromDomain(resp)

	require.Len(t, out.Solutions, 1)
	assert.Equal(t, "tt-1", out.Solutions[0].TimetableID)
	require.Len(t, out.Solutions[0].Entries, 1)
	assert.Equal(t, "class-1", out.Solutions[0].Entries[0].ClassID)
	require.NotNil(t, out.Diagnostics)
	assert.Equal(t, []string{"add a teacher"}, out.Diagnostics.TopSuggestions)
}

func TestValidationResultFromDomain(t *testing.T) {
	result := domain.ValidationResult{Feasible: false, Conflicts: []string{"no rooms"}}
	out := ValidationResultFromDomain(result)
	assert.False(t, out.Feasible)
	assert.Equal(t, []string{"no rooms"}, out.Conflicts)
}
