package handler

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/schoolforge/timetable-engine/internal/domain"
	"github.com/schoolforge/timetable-engine/internal/engine"
	"github.com/schoolforge/timetable-engine/pkg/jobs"
	"github.com/schoolforge/timetable-engine/pkg/schederr"
)

// generateJob is the payload dispatched onto the background worker
// pool; result carries the outcome back to the blocked HTTP handler.
type generateJob struct {
	req    domain.GenerateRequest
	result chan<- generateOutcome
}

type generateOutcome struct {
	resp *domain.GenerateResponse
	err  error
}

// AsyncScheduleEngine runs Engine.Generate on a worker-pool goroutine
// distinct from the request-serving goroutine (spec.md 5's "must
// execute off the request-serving event loop"), while still letting a
// synchronous caller block on the bound request context's deadline.
// Validate is cheap (§4.2) and stays on the request goroutine.
type AsyncScheduleEngine struct {
	queue *jobs.Queue
	inner *engine.Engine
}

// NewAsyncScheduleEngine wraps inner with a bounded worker pool.
func NewAsyncScheduleEngine(inner *engine.Engine, cfg jobs.QueueConfig) *AsyncScheduleEngine {
	a := &AsyncScheduleEngine{inner: inner}
	a.queue = jobs.NewQueue("schedule-generate", a.handle, cfg)
	return a
}

// Start begins running the worker pool. Call once at process start.
func (a *AsyncScheduleEngine) Start(ctx context.Context) {
	a.queue.Start(ctx)
}

// Stop drains and stops the worker pool.
func (a *AsyncScheduleEngine) Stop() {
	a.queue.Stop()
}

func (a *AsyncScheduleEngine) handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(generateJob)
	if !ok {
		return fmt.Errorf("unexpected generate job payload type %T", job.Payload)
	}
	resp, err := a.inner.Generate(ctx, payload.req)
	payload.result <- generateOutcome{resp: resp, err: err}
	return err
}

// Generate enqueues req and blocks until the worker pool produces a
// result or the caller's ctx is done. GenerateRequest.TimeoutSeconds is
// applied by the core inside the worker-side call, not to ctx.
func (a *AsyncScheduleEngine) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResponse, error) {
	resultCh := make(chan generateOutcome, 1)
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    "schedule.generate",
		Payload: generateJob{req: req, result: resultCh},
	}
	if err := a.queue.Enqueue(job); err != nil {
		return nil, schederr.Internal("enqueue generate job", err)
	}

	select {
	case out := <-resultCh:
		return out.resp, out.err
	case <-ctx.Done():
		return nil, schederr.Cancelled("generate")
	}
}

// Validate delegates straight to the inner engine.
func (a *AsyncScheduleEngine) Validate(ctx context.Context, req domain.ValidateRequest) (*domain.ValidationResult, error) {
	return a.inner.Validate(ctx, req)
}
