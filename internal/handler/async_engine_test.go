package handler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolforge/timetable-engine/internal/domain"
	"github.com/schoolforge/timetable-engine/internal/engine"
	"github.com/schoolforge/timetable-engine/internal/ga"
	"github.com/schoolforge/timetable-engine/pkg/jobs"
	"github.com/schoolforge/timetable-engine/pkg/schederr"
)

func newTestAsyncEngine() *AsyncScheduleEngine {
	var cache ga.FitnessCache
	core := engine.New(nil, cache, nil, ga.Params{})
	return NewAsyncScheduleEngine(core, jobs.QueueConfig{Workers: 1, BufferSize: 1})
}

func TestAsyncScheduleEngineGenerateFailsWhenQueueNotStarted(t *testing.T) {
	a := newTestAsyncEngine()

	_, err := a.Generate(context.Background(), domain.GenerateRequest{})

	require.Error(t, err)
	assert.True(t, schederr.Is(err, schederr.KindInternal))
}

func TestAsyncScheduleEngineGenerateReturnsCancelledOnContextDone(t *testing.T) {
	a := newTestAsyncEngine()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.Start(ctx)
	defer a.Stop()

	reqCtx, reqCancel := context.WithCancel(context.Background())
	reqCancel()

	_, err := a.Generate(reqCtx, domain.GenerateRequest{})

	require.Error(t, err)
	assert.True(t, schederr.Is(err, schederr.KindCancelled))
}

func TestAsyncScheduleEngineValidateDelegatesDirectly(t *testing.T) {
	a := newTestAsyncEngine()

	result, err := a.Validate(context.Background(), domain.ValidateRequest{})

	require.NoError(t, err)
	assert.True(t, result.Feasible)
}
