package handlers

import (
	"net/http"

	"github.com/getmentor/getmentor-sessions/internal/models"
	"github.com/getmentor/getmentor-sessions/internal/services"
	"github.com/gin-gonic/gin"
)

// InternalHandler serves endpoints called by the upstream product, never by participants
type InternalHandler struct {
	requests services.RequestServiceInterface
}

// NewInternalHandler creates a new InternalHandler
func NewInternalHandler(requests services.RequestServiceInterface) *InternalHandler {
	return &InternalHandler{requests: requests}
}

// CreateRequest handles POST /api/v1/internal/requests
func (h *InternalHandler) CreateRequest(c *gin.Context) {
	var payload models.CreateRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}

	request, err := h.requests.CreateRequest(c.Request.Context(), &payload)
	if err != nil {
		respondServiceError(c, err, "Failed to create request")
		return
	}

	c.JSON(http.StatusCreated, request)
}
