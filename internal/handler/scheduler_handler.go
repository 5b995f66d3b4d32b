package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/schoolforge/timetable-engine/internal/domain"
	"github.com/schoolforge/timetable-engine/internal/dto"
	"github.com/schoolforge/timetable-engine/pkg/export"
	"github.com/schoolforge/timetable-engine/pkg/response"
	"github.com/schoolforge/timetable-engine/pkg/schederr"
)

// scheduleEngine is the narrow slice of internal/engine.Engine this
// handler depends on, declared next to its consumer per the
// dependency-inversion shape the teacher codebase uses for its
// scheduler service collaborators.
type scheduleEngine interface {
	Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResponse, error)
	Validate(ctx context.Context, req domain.ValidateRequest) (*domain.ValidationResult, error)
}

// timetableExportLoader loads a previously generated timetable plus the
// entities needed to label it, for the export endpoint.
type timetableExportLoader interface {
	LoadForExport(ctx context.Context, timetableID string) (*domain.TimetableBundle, error)
}

// timetableStore persists the winning solution of a Generate call.
// Mirrors the invariant that a Timetable is born in the solver and only
// ever sealed, never mutated, by this layer - saving is a side effect
// on the already-validated result, not a second source of truth.
type timetableStore interface {
	Save(ctx context.Context, t *domain.Timetable, status domain.TimetableStatus) error
}

// SchedulerHandler exposes the scheduling HTTP surface (SPEC_FULL.md
// 4.10): this layer never holds scheduling logic, only marshals wire
// shapes and passes the request context through; the engine applies
// GenerateRequest.TimeoutSeconds.
type SchedulerHandler struct {
	engine    scheduleEngine
	loader    timetableExportLoader
	store     timetableStore
	exporter  *export.PDFExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSchedulerHandler constructs the handler. store may be nil, in
// which case generated solutions are returned but not persisted.
func NewSchedulerHandler(engine scheduleEngine, loader timetableExportLoader, store timetableStore, exporter *export.PDFExporter, logger *zap.Logger) *SchedulerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchedulerHandler{
		engine:    engine,
		loader:    loader,
		store:     store,
		exporter:  exporter,
		validator: validator.New(),
		logger:    logger,
	}
}

// Generate handles POST /schedules/generate.
func (h *SchedulerHandler) Generate(c *gin.Context) {
	var req dto.GenerateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, schederr.Validation("invalid generate payload: "+err.Error()))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, schederr.Validation("invalid generate payload: "+err.Error()))
		return
	}

	result, err := h.engine.Generate(c.Request.Context(), req.ToDomain())
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.store != nil && len(result.Solutions) > 0 {
		best := result.Solutions[0].Timetable
		if err := h.store.Save(c.Request.Context(), &best, domain.StatusDraft); err != nil {
			h.logger.Warn("failed to persist generated timetable", zap.Error(err))
		}
	}

	response.JSON(c, http.StatusOK, dto.FromDomain(*result))
}

// Validate handles POST /schedules/validate.
func (h *SchedulerHandler) Validate(c *gin.Context) {
	var req dto.ValidateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, schederr.Validation("invalid validate payload: "+err.Error()))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, schederr.Validation("invalid validate payload: "+err.Error()))
		return
	}

	result, err := h.engine.Validate(c.Request.Context(), req.ToDomain())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ValidationResultFromDomain(*result))
}

// ExportPDF handles GET /schedules/:id/export.pdf.
func (h *SchedulerHandler) ExportPDF(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.Error(c, schederr.Validation("missing timetable id"))
		return
	}

	bundle, err := h.loader.LoadForExport(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	pdfBytes, err := h.exporter.RenderTimetable(bundle.Timetable, bundle.Classes, bundle.Subjects, bundle.Teachers, bundle.Rooms, bundle.TimeSlots)
	if err != nil {
		response.Error(c, schederr.Internal("pdf export", err))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="timetable-`+id+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}
