package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/getmentor/getmentor-sessions/internal/models"
	"github.com/getmentor/getmentor-sessions/pkg/errors"
)

// MemoryStore is an in-process Store used in offline mode and tests.
// All operations are serialized by one mutex; WithinTx stages writes on a copy
// and swaps it in only when fn succeeds.
type MemoryStore struct {
	mu    sync.Mutex
	state *memoryState
}

type memoryState struct {
	requests         map[string]*models.MentorshipRequest
	sessions         map[string]*models.Session
	sessionByRequest map[string]string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemoryState()}
}

func newMemoryState() *memoryState {
	return &memoryState{
		requests:         make(map[string]*models.MentorshipRequest),
		sessions:         make(map[string]*models.Session),
		sessionByRequest: make(map[string]string),
	}
}

func (s *memoryState) clone() *memoryState {
	c := newMemoryState()
	for id, r := range s.requests {
		c.requests[id] = r.Clone()
	}
	for id, sess := range s.sessions {
		c.sessions[id] = sess.Clone()
	}
	for rid, sid := range s.sessionByRequest {
		c.sessionByRequest[rid] = sid
	}
	return c
}

// WithinTx runs fn against a staged copy of the store
func (m *MemoryStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	staged := &memoryTx{state: m.state.clone()}
	if err := fn(staged); err != nil {
		return err
	}
	m.state = staged.state
	return nil
}

// Ping always succeeds
func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (m *MemoryStore) CreateRequest(ctx context.Context, req *models.MentorshipRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.createRequest(req)
}

func (m *MemoryStore) GetRequest(ctx context.Context, id string) (*models.MentorshipRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.getRequest(id)
}

func (m *MemoryStore) ListRequestsByMentor(ctx context.Context, mentorID string, statuses []models.RequestStatus) ([]*models.MentorshipRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.listRequests(func(r *models.MentorshipRequest) bool { return r.MentorID == mentorID }, statuses), nil
}

func (m *MemoryStore) ListRequestsByMentee(ctx context.Context, menteeID string, statuses []models.RequestStatus) ([]*models.MentorshipRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.listRequests(func(r *models.MentorshipRequest) bool { return r.MenteeID == menteeID }, statuses), nil
}

func (m *MemoryStore) TransitionRequest(ctx context.Context, id string, t models.RequestTransition) (*models.MentorshipRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.transitionRequest(id, t)
}

func (m *MemoryStore) UpdateMeetingLink(ctx context.Context, id, link string, at time.Time) (*models.MentorshipRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.updateMeetingLink(id, link, at)
}

func (m *MemoryStore) CreateSession(ctx context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.createSession(s)
}

func (m *MemoryStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.getSession(id)
}

func (m *MemoryStore) GetSessionByRequest(ctx context.Context, requestID string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.getSessionByRequest(requestID)
}

func (m *MemoryStore) ListSessionsByMentor(ctx context.Context, mentorID string) ([]*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.listSessions(func(s *models.Session) bool { return s.MentorID == mentorID }), nil
}

func (m *MemoryStore) ListSessionsByMentee(ctx context.Context, menteeID string) ([]*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.listSessions(func(s *models.Session) bool { return s.MenteeID == menteeID }), nil
}

func (m *MemoryStore) UpdateSession(ctx context.Context, s *models.Session, expected models.SessionStatus) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.updateSession(s, expected)
}

func (m *MemoryStore) SetSessionFeedback(ctx context.Context, id string, f models.Feedback, at time.Time) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.setSessionFeedback(id, f, at)
}

// memoryTx is the staged view handed to WithinTx callbacks. The parent lock is
// held for its whole lifetime, so it does not lock again.
type memoryTx struct {
	state *memoryState
}

func (t *memoryTx) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return fn(t)
}

func (t *memoryTx) Ping(ctx context.Context) error {
	return nil
}

func (t *memoryTx) CreateRequest(ctx context.Context, req *models.MentorshipRequest) error {
	return t.state.createRequest(req)
}

func (t *memoryTx) GetRequest(ctx context.Context, id string) (*models.MentorshipRequest, error) {
	return t.state.getRequest(id)
}

func (t *memoryTx) ListRequestsByMentor(ctx context.Context, mentorID string, statuses []models.RequestStatus) ([]*models.MentorshipRequest, error) {
	return t.state.listRequests(func(r *models.MentorshipRequest) bool { return r.MentorID == mentorID }, statuses), nil
}

func (t *memoryTx) ListRequestsByMentee(ctx context.Context, menteeID string, statuses []models.RequestStatus) ([]*models.MentorshipRequest, error) {
	return t.state.listRequests(func(r *models.MentorshipRequest) bool { return r.MenteeID == menteeID }, statuses), nil
}

func (t *memoryTx) TransitionRequest(ctx context.Context, id string, tr models.RequestTransition) (*models.MentorshipRequest, error) {
	return t.state.transitionRequest(id, tr)
}

func (t *memoryTx) UpdateMeetingLink(ctx context.Context, id, link string, at time.Time) (*models.MentorshipRequest, error) {
	return t.state.updateMeetingLink(id, link, at)
}

func (t *memoryTx) CreateSession(ctx context.Context, s *models.Session) error {
	return t.state.createSession(s)
}

func (t *memoryTx) GetSession(ctx context.Context, id string) (*models.Session, error) {
	return t.state.getSession(id)
}

func (t *memoryTx) GetSessionByRequest(ctx context.Context, requestID string) (*models.Session, error) {
	return t.state.getSessionByRequest(requestID)
}

func (t *memoryTx) ListSessionsByMentor(ctx context.Context, mentorID string) ([]*models.Session, error) {
	return t.state.listSessions(func(s *models.Session) bool { return s.MentorID == mentorID }), nil
}

func (t *memoryTx) ListSessionsByMentee(ctx context.Context, menteeID string) ([]*models.Session, error) {
	return t.state.listSessions(func(s *models.Session) bool { return s.MenteeID == menteeID }), nil
}

func (t *memoryTx) UpdateSession(ctx context.Context, s *models.Session, expected models.SessionStatus) (*models.Session, error) {
	return t.state.updateSession(s, expected)
}

func (t *memoryTx) SetSessionFeedback(ctx context.Context, id string, f models.Feedback, at time.Time) (*models.Session, error) {
	return t.state.setSessionFeedback(id, f, at)
}

func (s *memoryState) createRequest(req *models.MentorshipRequest) error {
	if _, ok := s.requests[req.ID]; ok {
		return errors.ConflictError("request", req.ID)
	}
	s.requests[req.ID] = req.Clone()
	return nil
}

func (s *memoryState) getRequest(id string) (*models.MentorshipRequest, error) {
	r, ok := s.requests[id]
	if !ok {
		return nil, errors.NotFoundError("request", id)
	}
	return r.Clone(), nil
}

func (s *memoryState) listRequests(match func(*models.MentorshipRequest) bool, statuses []models.RequestStatus) []*models.MentorshipRequest {
	allowed := make(map[models.RequestStatus]bool, len(statuses))
	for _, st := range statuses {
		allowed[st] = true
	}

	out := make([]*models.MentorshipRequest, 0)
	for _, r := range s.requests {
		if !match(r) {
			continue
		}
		if len(allowed) > 0 && !allowed[r.Status] {
			continue
		}
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *memoryState) transitionRequest(id string, t models.RequestTransition) (*models.MentorshipRequest, error) {
	r, ok := s.requests[id]
	if !ok {
		return nil, errors.NotFoundError("request", id)
	}
	if r.Status != t.From {
		return nil, errors.ConflictError("request", id)
	}

	next := r.Clone()
	next.Status = t.To
	if t.ProposedSlots != nil {
		next.ProposedSlots = append([]models.ProposedSlot(nil), t.ProposedSlots...)
	}
	if t.Scheduled != nil {
		when := t.Scheduled.SlotDate
		mode := t.Scheduled.Mode
		next.ScheduledDateTime = &when
		next.ScheduledMode = &mode
	}
	next.UpdatedAt = laterOf(t.At, r.UpdatedAt)

	s.requests[id] = next
	return next.Clone(), nil
}

func (s *memoryState) updateMeetingLink(id, link string, at time.Time) (*models.MentorshipRequest, error) {
	r, ok := s.requests[id]
	if !ok {
		return nil, errors.NotFoundError("request", id)
	}
	if !r.Status.AllowsMeetingLink() {
		return nil, errors.InvalidStateError("meeting link requires an accepted or confirmed request")
	}
	if r.MeetingLink != nil && *r.MeetingLink == link {
		return r.Clone(), nil
	}

	next := r.Clone()
	next.MeetingLink = &link
	next.UpdatedAt = laterOf(at, r.UpdatedAt)
	s.requests[id] = next
	return next.Clone(), nil
}

func (s *memoryState) createSession(sess *models.Session) error {
	if _, ok := s.sessions[sess.ID]; ok {
		return errors.ConflictError("session", sess.ID)
	}
	if _, ok := s.sessionByRequest[sess.RequestID]; ok {
		return errors.ConflictError("session for request", sess.RequestID)
	}
	s.sessions[sess.ID] = sess.Clone()
	s.sessionByRequest[sess.RequestID] = sess.ID
	return nil
}

func (s *memoryState) getSession(id string) (*models.Session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, errors.NotFoundError("session", id)
	}
	return sess.Clone(), nil
}

func (s *memoryState) getSessionByRequest(requestID string) (*models.Session, error) {
	id, ok := s.sessionByRequest[requestID]
	if !ok {
		return nil, errors.NotFoundError("session for request", requestID)
	}
	return s.getSession(id)
}

func (s *memoryState) listSessions(match func(*models.Session) bool) []*models.Session {
	out := make([]*models.Session, 0)
	for _, sess := range s.sessions {
		if match(sess) {
			out = append(out, sess.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SessionDate.Equal(out[j].SessionDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].SessionDate.After(out[j].SessionDate)
	})
	return out
}

func (s *memoryState) updateSession(sess *models.Session, expected models.SessionStatus) (*models.Session, error) {
	cur, ok := s.sessions[sess.ID]
	if !ok {
		return nil, errors.NotFoundError("session", sess.ID)
	}
	if cur.Status != expected || cur.Version != sess.Version {
		return nil, errors.ConflictError("session", sess.ID)
	}

	next := cur.Clone()
	next.SessionDate = sess.SessionDate
	next.Mode = sess.Mode
	next.Status = sess.Status
	if sess.DurationMinutes != nil {
		d := *sess.DurationMinutes
		next.DurationMinutes = &d
	} else {
		next.DurationMinutes = nil
	}
	next.Notes = sess.Notes
	next.UpdatedAt = laterOf(sess.UpdatedAt, cur.UpdatedAt)
	next.Version = cur.Version + 1

	s.sessions[sess.ID] = next
	return next.Clone(), nil
}

func (s *memoryState) setSessionFeedback(id string, f models.Feedback, at time.Time) (*models.Session, error) {
	cur, ok := s.sessions[id]
	if !ok {
		return nil, errors.NotFoundError("session", id)
	}
	if cur.Status != models.SessionCompleted {
		return nil, errors.InvalidStateError("feedback requires a completed session")
	}

	next := cur.Clone()
	next.Feedback = (&models.Session{Feedback: &f}).Clone().Feedback
	next.Feedback.SubmittedAt = at
	next.UpdatedAt = laterOf(at, cur.UpdatedAt)
	next.Version = cur.Version + 1

	s.sessions[id] = next
	return next.Clone(), nil
}

func laterOf(a, b time.Time) time.Time {
	if a.Before(b) {
		return b
	}
	return a
}
