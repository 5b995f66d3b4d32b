package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolforge/timetable-engine/internal/domain"
	"github.com/schoolforge/timetable-engine/internal/engine"
	"github.com/schoolforge/timetable-engine/internal/ga"
)

func gridSlots(days []domain.Day, periodsPerDay int) []domain.TimeSlot {
	var slots []domain.TimeSlot
	for _, d := range days {
		for p := 1; p <= periodsPerDay; p++ {
			slots = append(slots, domain.TimeSlot{
				ID:           domain.TimeSlotID(string(d) + string(rune('0'+p))),
				Day:          d,
				PeriodNumber: p,
			})
		}
	}
	return slots
}

func feasibleRequest() domain.GenerateRequest {
	room := domain.RoomID("home-10a")
	classes := []domain.Class{{ID: "c1", Grade: 10, Name: "10A", HomeRoomID: &room}}
	subjects := []domain.Subject{
		{ID: "math", Name: "Mathematics", Code: "MATH", PeriodsPerWeek: 3},
		{ID: "eng", Name: "English", Code: "ENG", PeriodsPerWeek: 2},
	}
	teachers := []domain.Teacher{
		{ID: "t1", Subjects: map[string]struct{}{"Mathematics": {}}, MaxPeriodsPerWeek: 10, MaxPeriodsPerDay: 5},
		{ID: "t2", Subjects: map[string]struct{}{"English": {}}, MaxPeriodsPerWeek: 10, MaxPeriodsPerDay: 5},
	}
	rooms := []domain.Room{{ID: room, Type: domain.RoomClassroom}}
	slots := gridSlots(domain.Days[:5], 5)

	return domain.GenerateRequest{
		Classes:                   classes,
		Subjects:                  subjects,
		Teachers:                  teachers,
		Rooms:                     rooms,
		TimeSlots:                 slots,
		NumSolutions:              2,
		TimeoutSeconds:            30,
		EnforceTeacherConsistency: true,
		Seed:                      3,
	}
}

// testGAParams keeps the GA pass fast and deterministic for tests: a
// handful of generations over a small population is enough to exercise
// the full pipeline without the spec's production defaults.
func testGAParams() ga.Params {
	return ga.Params{
		PopulationSize: 6,
		Generations:    4,
		Elitism:        1,
		TournamentSize: 3,
		CrossoverRate:  0.7,
		MutationRate:   0.3,
		MaxRepairOps:   15,
		Patience:       4,
		Workers:        2,
	}
}

func TestGenerate_FeasibleRequestProducesValidatedSolutions(t *testing.T) {
	e := engine.New(nil, nil, nil, testGAParams())

	resp, err := e.Generate(context.Background(), feasibleRequest())

	require.NoError(t, err)
	require.NotEmpty(t, resp.Solutions)
	assert.LessOrEqual(t, len(resp.Solutions), 2)
	for _, sol := range resp.Solutions {
		assert.Len(t, sol.Timetable.Entries, 5) // 3 math + 2 english periods
		assert.True(t, sol.Feasible)
	}
	assert.Greater(t, resp.GenerationTimeSeconds, 0.0)
}

func TestGenerate_InfeasibleCapacityFailsAtPreValidator(t *testing.T) {
	e := engine.New(nil, nil, nil, testGAParams())
	req := feasibleRequest()
	req.Teachers[0].MaxPeriodsPerWeek = 1 // cannot meet math's 3 periods/week

	_, err := e.Generate(context.Background(), req)

	require.Error(t, err)
}

func TestGenerate_CancelledContextReturnsError(t *testing.T) {
	e := engine.New(nil, nil, nil, testGAParams())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Generate(ctx, feasibleRequest())

	require.Error(t, err)
}

func TestValidate_FeasibleRequestReportsNoConflicts(t *testing.T) {
	e := engine.New(nil, nil, nil, testGAParams())
	req := feasibleRequest()

	result, err := e.Validate(context.Background(), domain.ValidateRequest{
		Classes:             req.Classes,
		Subjects:            req.Subjects,
		Teachers:            req.Teachers,
		TimeSlots:           req.TimeSlots,
		Rooms:               req.Rooms,
		SubjectRequirements: req.SubjectRequirements,
	})

	require.NoError(t, err)
	assert.True(t, result.Feasible)
	assert.Empty(t, result.Conflicts)
}

func TestValidate_InfeasibleRequestReportsConflicts(t *testing.T) {
	e := engine.New(nil, nil, nil, testGAParams())
	req := feasibleRequest()
	req.Teachers[0].MaxPeriodsPerWeek = 1

	result, err := e.Validate(context.Background(), domain.ValidateRequest{
		Classes:             req.Classes,
		Subjects:            req.Subjects,
		Teachers:            req.Teachers,
		TimeSlots:           req.TimeSlots,
		Rooms:               req.Rooms,
		SubjectRequirements: req.SubjectRequirements,
	})

	require.NoError(t, err)
	assert.False(t, result.Feasible)
	assert.NotEmpty(t, result.Conflicts)
}
