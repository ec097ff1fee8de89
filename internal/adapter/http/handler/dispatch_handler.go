package handler

import (
	"errors"
	"io"
	"net/http"

	"payhula-webhooks/internal/core/ports"
	"payhula-webhooks/pkg/apperror"
	"payhula-webhooks/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DispatchHandler exposes the internal dispatch trigger.
type DispatchHandler struct {
	dispatchSvc ports.DispatchService
	log         zerolog.Logger
}

// NewDispatchHandler creates a new DispatchHandler.
func NewDispatchHandler(dispatchSvc ports.DispatchService, log zerolog.Logger) *DispatchHandler {
	return &DispatchHandler{dispatchSvc: dispatchSvc, log: log}
}

type dispatchRequest struct {
	DeliveryID string `json:"delivery_id"`
}

// Dispatch handles POST /api/v1/webhooks/dispatch. With a delivery_id it
// processes that single delivery; without one it drains a batch of due
// deliveries.
func (h *DispatchHandler) Dispatch(c *gin.Context) {
	var req dispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, apperror.Validation("invalid request body"))
		return
	}

	var stats *ports.DispatchStats
	var err error
	if req.DeliveryID != "" {
		id, parseErr := uuid.Parse(req.DeliveryID)
		if parseErr != nil {
			response.Error(c, apperror.Validation("invalid delivery_id"))
			return
		}
		stats, err = h.dispatchSvc.DispatchOne(c.Request.Context(), id)
	} else {
		stats, err = h.dispatchSvc.DispatchDue(c.Request.Context())
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"processed":  stats.Processed,
		"successful": stats.Successful,
		"failed":     stats.Failed,
	})
}
