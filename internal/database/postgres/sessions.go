package postgres

import (
	"context"
	"time"

	"github.com/getmentor/getmentor-sessions/internal/models"
	"github.com/getmentor/getmentor-sessions/pkg/errors"
	"go.uber.org/zap"
)

// CreateSession inserts a session; sessions.request_id is unique
func (c *Client) CreateSession(ctx context.Context, s *models.Session) (err error) {
	start := time.Now()
	defer func() {
		observe("createSession", start, err, zap.String("session_id", s.ID), zap.String("request_id", s.RequestID))
	}()

	var rating *int
	var comment *string
	var submittedAt *time.Time
	if s.Feedback != nil {
		rating, comment, submittedAt = s.Feedback.Rating, s.Feedback.Comment, &s.Feedback.SubmittedAt
	}

	_, err = c.q.Exec(ctx, `
		INSERT INTO sessions (`+models.SessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		s.ID, s.RequestID, s.MentorID, s.MenteeID, s.ServiceName, s.SessionDate, s.Mode, s.Status,
		s.DurationMinutes, s.Notes, rating, comment, submittedAt, s.CreatedAt, s.UpdatedAt, s.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.ConflictError("session for request", s.RequestID)
		}
		return errors.StorageError("insert session", err)
	}
	return nil
}

// GetSession fetches a session by id
func (c *Client) GetSession(ctx context.Context, id string) (s *models.Session, err error) {
	start := time.Now()
	defer func() { observe("getSession", start, err, zap.String("session_id", id)) }()

	s, err = models.ScanSession(c.q.QueryRow(ctx, `SELECT `+models.SessionColumns+` FROM sessions WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, errors.NotFoundError("session", id)
		}
		return nil, errors.StorageError("get session", err)
	}
	return s, nil
}

// GetSessionByRequest fetches the session materialized from a request
func (c *Client) GetSessionByRequest(ctx context.Context, requestID string) (s *models.Session, err error) {
	start := time.Now()
	defer func() { observe("getSessionByRequest", start, err, zap.String("request_id", requestID)) }()

	s, err = models.ScanSession(c.q.QueryRow(ctx, `SELECT `+models.SessionColumns+` FROM sessions WHERE request_id = $1`, requestID))
	if err != nil {
		if isNoRows(err) {
			return nil, errors.NotFoundError("session for request", requestID)
		}
		return nil, errors.StorageError("get session by request", err)
	}
	return s, nil
}

// ListSessionsByMentor returns the mentor's sessions
func (c *Client) ListSessionsByMentor(ctx context.Context, mentorID string) ([]*models.Session, error) {
	return c.listSessions(ctx, "listSessionsByMentor", `SELECT `+models.SessionColumns+`
		FROM sessions WHERE mentor_id = $1 ORDER BY session_date DESC, id`, mentorID)
}

// ListSessionsByMentee returns the mentee's sessions
func (c *Client) ListSessionsByMentee(ctx context.Context, menteeID string) ([]*models.Session, error) {
	return c.listSessions(ctx, "listSessionsByMentee", `SELECT `+models.SessionColumns+`
		FROM sessions WHERE mentee_id = $1 ORDER BY session_date DESC, id`, menteeID)
}

func (c *Client) listSessions(ctx context.Context, operation, query, participantID string) (out []*models.Session, err error) {
	start := time.Now()
	defer func() { observe(operation, start, err, zap.Int("count", len(out))) }()

	rows, err := c.q.Query(ctx, query, participantID)
	if err != nil {
		return nil, errors.StorageError("list sessions", err)
	}
	defer rows.Close()

	out = make([]*models.Session, 0)
	for rows.Next() {
		s, scanErr := models.ScanSession(rows)
		if scanErr != nil {
			return nil, errors.StorageError("scan session", scanErr)
		}
		out = append(out, s)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.StorageError("iterate sessions", err)
	}
	return out, nil
}

// UpdateSession writes the mutable session fields guarded by the expected status
// and the version s was read at
func (c *Client) UpdateSession(ctx context.Context, s *models.Session, expected models.SessionStatus) (updated *models.Session, err error) {
	start := time.Now()
	defer func() { observe("updateSession", start, err, zap.String("session_id", s.ID)) }()

	row := c.q.QueryRow(ctx, `
		UPDATE sessions
		SET session_date = $3,
			mode = $4,
			status = $5,
			duration_minutes = $6,
			notes = $7,
			updated_at = GREATEST($8, updated_at),
			version = version + 1
		WHERE id = $1 AND status = $2 AND version = $9
		RETURNING `+models.SessionColumns,
		s.ID, expected, s.SessionDate, s.Mode, s.Status, s.DurationMinutes, s.Notes, s.UpdatedAt, s.Version,
	)

	updated, err = models.ScanSession(row)
	if err == nil {
		return updated, nil
	}
	if !isNoRows(err) {
		return nil, errors.StorageError("update session", err)
	}

	found, existsErr := c.exists(ctx, "sessions", s.ID)
	if existsErr != nil {
		return nil, existsErr
	}
	if !found {
		return nil, errors.NotFoundError("session", s.ID)
	}
	return nil, errors.ConflictError("session", s.ID)
}

// SetSessionFeedback stores feedback on a completed session
func (c *Client) SetSessionFeedback(ctx context.Context, id string, f models.Feedback, at time.Time) (updated *models.Session, err error) {
	start := time.Now()
	defer func() { observe("setSessionFeedback", start, err, zap.String("session_id", id)) }()

	row := c.q.QueryRow(ctx, `
		UPDATE sessions
		SET feedback_rating = $2,
			feedback_comment = $3,
			feedback_submitted_at = $4,
			updated_at = GREATEST($4, updated_at),
			version = version + 1
		WHERE id = $1 AND status = 'completed'
		RETURNING `+models.SessionColumns,
		id, f.Rating, f.Comment, at,
	)

	updated, err = models.ScanSession(row)
	if err == nil {
		return updated, nil
	}
	if !isNoRows(err) {
		return nil, errors.StorageError("set session feedback", err)
	}

	found, existsErr := c.exists(ctx, "sessions", id)
	if existsErr != nil {
		return nil, existsErr
	}
	if !found {
		return nil, errors.NotFoundError("session", id)
	}
	return nil, errors.InvalidStateError("feedback requires a completed session")
}
