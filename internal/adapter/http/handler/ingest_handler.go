package handler

import (
	"errors"
	"io"
	"net/http"

	"payhula-webhooks/internal/core/ports"
	"payhula-webhooks/pkg/apperror"
	"payhula-webhooks/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// IngestHandler handles inbound payment gateway webhooks.
type IngestHandler struct {
	ingestSvc ports.IngestService
	log       zerolog.Logger
}

// NewIngestHandler creates a new IngestHandler.
func NewIngestHandler(ingestSvc ports.IngestService, log zerolog.Logger) *IngestHandler {
	return &IngestHandler{ingestSvc: ingestSvc, log: log}
}

// Ingest handles POST /api/v1/webhooks/payment/:provider.
// Responses use the bare shape gateways expect, not the platform envelope.
func (h *IngestHandler) Ingest(c *gin.Context) {
	provider := c.Param("provider")

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.GatewayError(c, http.StatusBadRequest, "cannot read request body")
		return
	}

	result, err := h.ingestSvc.Ingest(c.Request.Context(), provider, raw)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.HTTPStatus < http.StatusInternalServerError {
			response.GatewayError(c, appErr.HTTPStatus, appErr.Message)
			return
		}
		h.log.Error().Err(err).Str("provider", provider).Msg("webhook ingest failed")
		response.GatewayError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	switch result.Outcome {
	case ports.IngestNoTransaction:
		response.GatewayOK(c, gin.H{
			"success": true,
			"message": "transaction not found, ignoring",
		})
	case ports.IngestDuplicate:
		response.GatewayOK(c, gin.H{
			"success": true,
			"message": "webhook already processed",
		})
	default:
		response.GatewayOK(c, gin.H{
			"success": true,
			"message": "webhook processed",
			"status":  result.Status,
		})
	}
}
