package postgres

import (
	"context"
	"time"

	"github.com/getmentor/getmentor-sessions/internal/models"
	"github.com/getmentor/getmentor-sessions/pkg/errors"
	"go.uber.org/zap"
)

// CreateRequest inserts a new mentorship request
func (c *Client) CreateRequest(ctx context.Context, req *models.MentorshipRequest) (err error) {
	start := time.Now()
	defer func() { observe("createRequest", start, err, zap.String("request_id", req.ID)) }()

	slots, err := models.EncodeSlots(req.ProposedSlots)
	if err != nil {
		return errors.StorageError("encode proposed slots", err)
	}

	_, err = c.q.Exec(ctx, `
		INSERT INTO mentorship_requests (`+models.RequestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		req.ID, req.MentorID, req.MenteeID, req.ServiceID, req.ServiceName, req.ServiceMode, req.ServicePrice,
		req.PreferredDateTime, req.PreferredMode, slots, req.ScheduledDateTime, req.ScheduledMode,
		req.MeetingLink, req.Status, req.Notes, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.ConflictError("request", req.ID)
		}
		return errors.StorageError("insert request", err)
	}
	return nil
}

// GetRequest fetches a mentorship request by id
func (c *Client) GetRequest(ctx context.Context, id string) (req *models.MentorshipRequest, err error) {
	start := time.Now()
	defer func() { observe("getRequest", start, err, zap.String("request_id", id)) }()

	row := c.q.QueryRow(ctx, `SELECT `+models.RequestColumns+` FROM mentorship_requests WHERE id = $1`, id)
	req, err = models.ScanMentorshipRequest(row)
	if err != nil {
		if isNoRows(err) {
			return nil, errors.NotFoundError("request", id)
		}
		return nil, errors.StorageError("get request", err)
	}
	return req, nil
}

// ListRequestsByMentor returns the mentor's requests in the given statuses
func (c *Client) ListRequestsByMentor(ctx context.Context, mentorID string, statuses []models.RequestStatus) ([]*models.MentorshipRequest, error) {
	return c.listRequests(ctx, "listRequestsByMentor", "mentor_id", mentorID, statuses)
}

// ListRequestsByMentee returns the mentee's requests in the given statuses
func (c *Client) ListRequestsByMentee(ctx context.Context, menteeID string, statuses []models.RequestStatus) ([]*models.MentorshipRequest, error) {
	return c.listRequests(ctx, "listRequestsByMentee", "mentee_id", menteeID, statuses)
}

func (c *Client) listRequests(ctx context.Context, operation, column, participantID string, statuses []models.RequestStatus) (out []*models.MentorshipRequest, err error) {
	start := time.Now()
	defer func() { observe(operation, start, err, zap.Int("count", len(out))) }()

	// column is one of two constants chosen by the callers above
	query := `SELECT ` + models.RequestColumns + ` FROM mentorship_requests WHERE ` + column + ` = $1`
	args := []any{participantID}
	if len(statuses) > 0 {
		names := make([]string, len(statuses))
		for i, s := range statuses {
			names[i] = string(s)
		}
		query += ` AND status = ANY($2)`
		args = append(args, names)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := c.q.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.StorageError("list requests", err)
	}
	defer rows.Close()

	out = make([]*models.MentorshipRequest, 0)
	for rows.Next() {
		req, scanErr := models.ScanMentorshipRequest(rows)
		if scanErr != nil {
			return nil, errors.StorageError("scan request", scanErr)
		}
		out = append(out, req)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.StorageError("iterate requests", err)
	}
	return out, nil
}

// TransitionRequest applies a status change guarded by the expected current status
func (c *Client) TransitionRequest(ctx context.Context, id string, t models.RequestTransition) (req *models.MentorshipRequest, err error) {
	start := time.Now()
	defer func() {
		observe("transitionRequest", start, err,
			zap.String("request_id", id), zap.String("from", string(t.From)), zap.String("to", string(t.To)))
	}()

	var slots []byte
	if t.ProposedSlots != nil {
		if slots, err = models.EncodeSlots(t.ProposedSlots); err != nil {
			return nil, errors.StorageError("encode proposed slots", err)
		}
	}

	var scheduledAt *time.Time
	var scheduledMode *string
	if t.Scheduled != nil {
		at := t.Scheduled.SlotDate
		mode := string(t.Scheduled.Mode)
		scheduledAt, scheduledMode = &at, &mode
	}

	row := c.q.QueryRow(ctx, `
		UPDATE mentorship_requests
		SET status = $3,
			proposed_slots = COALESCE($4::jsonb, proposed_slots),
			scheduled_date_time = COALESCE($5, scheduled_date_time),
			scheduled_mode = COALESCE($6, scheduled_mode),
			updated_at = GREATEST($7, updated_at)
		WHERE id = $1 AND status = $2
		RETURNING `+models.RequestColumns,
		id, t.From, t.To, slots, scheduledAt, scheduledMode, t.At,
	)

	req, err = models.ScanMentorshipRequest(row)
	if err == nil {
		return req, nil
	}
	if !isNoRows(err) {
		return nil, errors.StorageError("transition request", err)
	}

	found, existsErr := c.exists(ctx, "mentorship_requests", id)
	if existsErr != nil {
		return nil, existsErr
	}
	if !found {
		return nil, errors.NotFoundError("request", id)
	}
	return nil, errors.ConflictError("request", id)
}

// UpdateMeetingLink sets the meeting link on an accepted or confirmed request
func (c *Client) UpdateMeetingLink(ctx context.Context, id, link string, at time.Time) (req *models.MentorshipRequest, err error) {
	start := time.Now()
	defer func() { observe("updateMeetingLink", start, err, zap.String("request_id", id)) }()

	row := c.q.QueryRow(ctx, `
		UPDATE mentorship_requests
		SET meeting_link = $2::text,
			updated_at = CASE WHEN meeting_link IS DISTINCT FROM $2::text
				THEN GREATEST($3, updated_at) ELSE updated_at END
		WHERE id = $1 AND status IN ('accepted', 'confirmed')
		RETURNING `+models.RequestColumns,
		id, link, at,
	)

	req, err = models.ScanMentorshipRequest(row)
	if err == nil {
		return req, nil
	}
	if !isNoRows(err) {
		return nil, errors.StorageError("update meeting link", err)
	}

	found, existsErr := c.exists(ctx, "mentorship_requests", id)
	if existsErr != nil {
		return nil, existsErr
	}
	if !found {
		return nil, errors.NotFoundError("request", id)
	}
	return nil, errors.InvalidStateError("meeting link requires an accepted or confirmed request")
}
