package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/getmentor/getmentor-sessions/internal/middleware"
	"github.com/getmentor/getmentor-sessions/internal/models"
	"github.com/getmentor/getmentor-sessions/internal/repository"
	"github.com/getmentor/getmentor-sessions/internal/services"
	"github.com/getmentor/getmentor-sessions/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var apiNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

const internalToken = "internal-token"

type apiFixture struct {
	router      *gin.Engine
	mentorToken string
	menteeToken string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	clock := func() time.Time { return apiNow }
	store := repository.NewMemoryStore()
	requests := services.NewRequestService(store, nil, clock)
	lifecycle := services.NewRequestLifecycleService(store, services.NewSessionMaterializer(nil, clock), nil, clock)
	meetings := services.NewMeetingChannelService(store, nil, clock)
	sessions := services.NewSessionService(store, nil, clock)

	tm := jwt.NewTokenManager("test-secret", "test", 1)
	mentorToken, err := tm.GenerateToken("mentor-1", "mentor")
	require.NoError(t, err)
	menteeToken, err := tm.GenerateToken("mentee-1", "mentee")
	require.NoError(t, err)

	requestHandler := NewRequestHandler(requests, lifecycle, meetings)
	sessionHandler := NewSessionHandler(sessions, clock)
	internalHandler := NewInternalHandler(requests)

	router := gin.New()
	api := router.Group("/api/v1")
	api.POST("/internal/requests", middleware.InternalAPIAuthMiddleware(internalToken), internalHandler.CreateRequest)

	participant := api.Group("", middleware.ParticipantSessionMiddleware(tm))
	participant.GET("/requests", requestHandler.ListRequests)
	participant.GET("/requests/:id", requestHandler.GetRequest)
	participant.POST("/requests/:id/accept", requestHandler.Accept)
	participant.POST("/requests/:id/reject", requestHandler.Reject)
	participant.POST("/requests/:id/review", requestHandler.PutToReview)
	participant.POST("/requests/:id/confirm", requestHandler.Confirm)
	participant.PUT("/requests/:id/meeting-link", requestHandler.SetMeetingLink)
	participant.GET("/sessions", sessionHandler.ListSessions)
	participant.GET("/sessions/:id", sessionHandler.GetSession)
	participant.PATCH("/sessions/:id", sessionHandler.UpdateSession)
	participant.PUT("/sessions/:id/feedback", sessionHandler.AttachFeedback)

	return &apiFixture{router: router, mentorToken: mentorToken, menteeToken: menteeToken}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token == internalToken {
		req.Header.Set(middleware.InternalTokenHeader, token)
	} else if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (f *apiFixture) createRequest(t *testing.T, id string) {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/v1/internal/requests", internalToken, gin.H{
		"id":                id,
		"mentorId":          "mentor-1",
		"menteeId":          "mentee-1",
		"serviceId":         "svc-1",
		"serviceName":       "Career consultation",
		"serviceMode":       "online",
		"servicePrice":      40,
		"preferredDateTime": apiNow.Add(48 * time.Hour).Format(time.RFC3339),
		"preferredMode":     "online",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func slotsBody() gin.H {
	return gin.H{
		"expectedStatus": "pending",
		"slots": []gin.H{
			{"slotDate": apiNow.Add(72 * time.Hour).Format(time.RFC3339), "mode": "online"},
			{"slotDate": apiNow.Add(96 * time.Hour).Format(time.RFC3339), "mode": "offline"},
		},
	}
}

func TestAPI_FullFlow(t *testing.T) {
	f := newAPIFixture(t)
	f.createRequest(t, "r1")

	w := f.do(t, http.MethodPost, "/api/v1/requests/r1/accept", f.mentorToken, slotsBody())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	accepted := decode[models.MentorshipRequest](t, w)
	assert.Equal(t, models.StatusAccepted, accepted.Status)
	assert.Len(t, accepted.ProposedSlots, 2)

	w = f.do(t, http.MethodPost, "/api/v1/requests/r1/confirm", f.menteeToken, gin.H{"slotIndex": 1, "expectedStatus": "accepted"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	confirmed := decode[models.ConfirmResult](t, w)
	require.NotNil(t, confirmed.Session)
	assert.Equal(t, models.StatusConfirmed, confirmed.Request.Status)
	assert.Equal(t, models.ModeOffline, confirmed.Session.Mode)

	w = f.do(t, http.MethodPut, "/api/v1/requests/r1/meeting-link", f.mentorToken, gin.H{"url": "https://meet.example/abc", "currentStatus": "confirmed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodGet, "/api/v1/sessions/"+confirmed.Session.ID, f.menteeToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[models.SessionView](t, w)
	assert.Equal(t, models.JoinStateStartsAt, view.JoinState)

	w = f.do(t, http.MethodPatch, "/api/v1/sessions/"+confirmed.Session.ID, f.mentorToken, gin.H{"status": "completed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodPut, "/api/v1/sessions/"+confirmed.Session.ID+"/feedback", f.menteeToken, gin.H{"rating": 5, "comment": "Great session"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodPut, "/api/v1/sessions/"+confirmed.Session.ID+"/feedback", f.mentorToken, gin.H{"rating": 5, "comment": "Great session"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", decode[map[string]any](t, w)["code"])

	w = f.do(t, http.MethodGet, "/api/v1/sessions", f.mentorToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[models.SessionsResponse](t, w).Total)
}

func TestAPI_ErrorMapping(t *testing.T) {
	f := newAPIFixture(t)
	f.createRequest(t, "r1")

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"unknown request", http.MethodGet, "/api/v1/requests/nope", f.mentorToken, nil, http.StatusNotFound, "not_found"},
		{"mentee accepts", http.MethodPost, "/api/v1/requests/r1/accept", f.menteeToken, slotsBody(), http.StatusForbidden, "forbidden"},
		{"stale expected status", http.MethodPost, "/api/v1/requests/r1/reject", f.mentorToken, gin.H{"expectedStatus": "review"}, http.StatusBadRequest, "invalid_transition"},
		{"past slot", http.MethodPost, "/api/v1/requests/r1/accept", f.mentorToken, gin.H{
			"expectedStatus": "pending",
			"slots":          []gin.H{{"slotDate": apiNow.Add(-time.Hour).Format(time.RFC3339), "mode": "online"}},
		}, http.StatusBadRequest, "invalid_slots"},
		{"missing expected status", http.MethodPost, "/api/v1/requests/r1/reject", f.mentorToken, gin.H{}, http.StatusBadRequest, "invalid_input"},
		{"link on pending", http.MethodPut, "/api/v1/requests/r1/meeting-link", f.mentorToken, gin.H{"url": "https://a.example", "currentStatus": "pending"}, http.StatusBadRequest, "invalid_state"},
		{"no token", http.MethodGet, "/api/v1/requests", "", nil, http.StatusUnauthorized, "unauthorized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.wantCode, decode[map[string]any](t, w)["code"])
		})
	}
}

func TestAPI_ListRequestsDefaultsToTokenRole(t *testing.T) {
	f := newAPIFixture(t)
	f.createRequest(t, "r1")

	w := f.do(t, http.MethodGet, "/api/v1/requests", f.menteeToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[models.RequestsResponse](t, w)
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "r1", resp.Requests[0].ID)

	w = f.do(t, http.MethodGet, "/api/v1/requests?group=past", f.menteeToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[models.RequestsResponse](t, w).Total)
}

func TestAPI_CreateRequestRequiresInternalToken(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/internal/requests", f.mentorToken, gin.H{"mentorId": "m"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/internal/requests", internalToken, gin.H{"mentorId": "m"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_input", decode[map[string]any](t, w)["code"])
}
