package handlers

import (
	"net/http"
	"time"

	"github.com/getmentor/getmentor-sessions/internal/models"
	"github.com/getmentor/getmentor-sessions/internal/services"
	"github.com/gin-gonic/gin"
)

// SessionHandler handles session endpoints. Every session is rendered with its join state.
type SessionHandler struct {
	sessions services.SessionServiceInterface
	now      func() time.Time
}

// NewSessionHandler creates a new SessionHandler. A nil now uses the wall clock.
func NewSessionHandler(sessions services.SessionServiceInterface, now func() time.Time) *SessionHandler {
	if now == nil {
		now = time.Now
	}
	return &SessionHandler{sessions: sessions, now: now}
}

// ListSessions handles GET /api/v1/sessions
func (h *SessionHandler) ListSessions(c *gin.Context) {
	participant, ok := requireParticipant(c)
	if !ok {
		return
	}

	list, err := h.sessions.ListSessions(c.Request.Context(), participant.Actor(), models.Role(c.Query("role")))
	if err != nil {
		respondServiceError(c, err, "Failed to fetch sessions")
		return
	}

	now := h.now()
	views := make([]models.SessionView, 0, len(list))
	for _, s := range list {
		views = append(views, models.NewSessionView(s, now))
	}

	c.JSON(http.StatusOK, models.SessionsResponse{Sessions: views, Total: len(views)})
}

// GetSession handles GET /api/v1/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	participant, ok := requireParticipant(c)
	if !ok {
		return
	}

	session, err := h.sessions.GetSession(c.Request.Context(), participant.Actor(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "Failed to fetch session")
		return
	}

	c.JSON(http.StatusOK, models.NewSessionView(session, h.now()))
}

// UpdateSession handles PATCH /api/v1/sessions/:id
func (h *SessionHandler) UpdateSession(c *gin.Context) {
	participant, ok := requireParticipant(c)
	if !ok {
		return
	}

	var update models.SessionUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		respondBindError(c, err)
		return
	}

	session, err := h.sessions.UpdateSession(c.Request.Context(), participant.Actor(), c.Param("id"), update)
	if err != nil {
		respondServiceError(c, err, "Failed to update session")
		return
	}

	c.JSON(http.StatusOK, models.NewSessionView(session, h.now()))
}

// AttachFeedback handles PUT /api/v1/sessions/:id/feedback
func (h *SessionHandler) AttachFeedback(c *gin.Context) {
	participant, ok := requireParticipant(c)
	if !ok {
		return
	}

	var payload models.FeedbackPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}

	session, err := h.sessions.AttachFeedback(c.Request.Context(), participant.Actor(), c.Param("id"), payload)
	if err != nil {
		respondServiceError(c, err, "Failed to submit feedback")
		return
	}

	c.JSON(http.StatusOK, models.NewSessionView(session, h.now()))
}
