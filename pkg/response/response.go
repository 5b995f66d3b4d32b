package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/schoolforge/timetable-engine/pkg/schederr"
)

// Envelope represents the common response contract.
type Envelope struct {
	Data  interface{}            `json:"data,omitempty"`
	Error *schederr.Error        `json:"error,omitempty"`
	Meta  map[string]interface{} `json:"meta,omitempty"`
}

// JSON sends a success response, with optional metadata (e.g. a
// GenerationTimeSeconds/diagnostics block).
func JSON(c *gin.Context, status int, data interface{}, meta ...map[string]interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	envelope := Envelope{Data: data}
	if len(meta) > 0 && meta[0] != nil {
		envelope.Meta = meta[0]
	}
	c.JSON(status, envelope)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data)
}

// Error sends an error response, normalising err to the closed
// schederr taxonomy so every failure path - from the core or this
// layer - renders the same wire shape.
func Error(c *gin.Context, err error) {
	schedErr := schederr.As(err)
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(schedErr.HTTPStatus, Envelope{Error: schedErr})
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
