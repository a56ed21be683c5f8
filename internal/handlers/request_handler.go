package handlers

import (
	"net/http"

	"github.com/getmentor/getmentor-sessions/internal/middleware"
	"github.com/getmentor/getmentor-sessions/internal/models"
	"github.com/getmentor/getmentor-sessions/internal/services"
	"github.com/gin-gonic/gin"
)

// RequestHandler handles participant-facing mentorship request endpoints
type RequestHandler struct {
	requests  services.RequestServiceInterface
	lifecycle services.RequestLifecycleServiceInterface
	meetings  services.MeetingChannelServiceInterface
}

// NewRequestHandler creates a new RequestHandler
func NewRequestHandler(
	requests services.RequestServiceInterface,
	lifecycle services.RequestLifecycleServiceInterface,
	meetings services.MeetingChannelServiceInterface,
) *RequestHandler {
	return &RequestHandler{
		requests:  requests,
		lifecycle: lifecycle,
		meetings:  meetings,
	}
}

// ListRequests handles GET /api/v1/requests
func (h *RequestHandler) ListRequests(c *gin.Context) {
	participant, ok := requireParticipant(c)
	if !ok {
		return
	}

	role := models.Role(c.Query("role"))
	group := models.RequestGroup(c.Query("group"))

	response, err := h.requests.ListRequests(c.Request.Context(), participant.Actor(), role, group)
	if err != nil {
		respondServiceError(c, err, "Failed to fetch requests")
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetRequest handles GET /api/v1/requests/:id
func (h *RequestHandler) GetRequest(c *gin.Context) {
	participant, ok := requireParticipant(c)
	if !ok {
		return
	}

	request, err := h.requests.GetRequest(c.Request.Context(), participant.Actor(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "Failed to fetch request")
		return
	}

	c.JSON(http.StatusOK, request)
}

// Accept handles POST /api/v1/requests/:id/accept
func (h *RequestHandler) Accept(c *gin.Context) {
	participant, ok := requireParticipant(c)
	if !ok {
		return
	}

	var payload models.AcceptRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}

	request, err := h.lifecycle.Accept(c.Request.Context(), participant.Actor(), c.Param("id"), payload.Slots, payload.ExpectedStatus)
	if err != nil {
		respondServiceError(c, err, "Failed to accept request")
		return
	}

	c.JSON(http.StatusOK, request)
}

// Reject handles POST /api/v1/requests/:id/reject
func (h *RequestHandler) Reject(c *gin.Context) {
	participant, ok := requireParticipant(c)
	if !ok {
		return
	}

	var payload models.TransitionPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}

	request, err := h.lifecycle.Reject(c.Request.Context(), participant.Actor(), c.Param("id"), payload.ExpectedStatus)
	if err != nil {
		respondServiceError(c, err, "Failed to reject request")
		return
	}

	c.JSON(http.StatusOK, request)
}

// PutToReview handles POST /api/v1/requests/:id/review
func (h *RequestHandler) PutToReview(c *gin.Context) {
	participant, ok := requireParticipant(c)
	if !ok {
		return
	}

	var payload models.TransitionPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}

	request, err := h.lifecycle.PutToReview(c.Request.Context(), participant.Actor(), c.Param("id"), payload.ExpectedStatus)
	if err != nil {
		respondServiceError(c, err, "Failed to update request")
		return
	}

	c.JSON(http.StatusOK, request)
}

// Confirm handles POST /api/v1/requests/:id/confirm
// Returns the confirmed request together with the created session
func (h *RequestHandler) Confirm(c *gin.Context) {
	participant, ok := requireParticipant(c)
	if !ok {
		return
	}

	var payload models.ConfirmRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.lifecycle.Confirm(c.Request.Context(), participant.Actor(), c.Param("id"), *payload.SlotIndex, payload.ExpectedStatus)
	if err != nil {
		respondServiceError(c, err, "Failed to confirm request")
		return
	}

	c.JSON(http.StatusOK, result)
}

// SetMeetingLink handles PUT /api/v1/requests/:id/meeting-link
func (h *RequestHandler) SetMeetingLink(c *gin.Context) {
	participant, ok := requireParticipant(c)
	if !ok {
		return
	}

	var payload models.MeetingLinkPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}

	request, err := h.meetings.SetMeetingLink(c.Request.Context(), participant.Actor(), c.Param("id"), payload.URL, payload.CurrentStatus)
	if err != nil {
		respondServiceError(c, err, "Failed to set meeting link")
		return
	}

	c.JSON(http.StatusOK, request)
}

func requireParticipant(c *gin.Context) (*middleware.Participant, bool) {
	participant, err := middleware.GetParticipant(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "unauthorized", "Unauthorized", err)
		return nil, false
	}
	return participant, true
}
