package handlers

import (
	"net/http"

	"github.com/getmentor/getmentor-sessions/internal/negotiation"
	"github.com/getmentor/getmentor-sessions/pkg/errors"
	"github.com/gin-gonic/gin"
)

// attachError attaches err to the gin context so the observability middleware
// can include the reason in the request log. c.Error() returns *gin.Error, not
// an error, so errcheck is suppressed.
func attachError(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err) //nolint:errcheck
	}
}

// respondError sends an error JSON response and attaches the error to the gin context
func respondError(c *gin.Context, status int, code, message string, err error) {
	attachError(c, err)
	c.JSON(status, gin.H{"error": message, "code": code})
}

// respondErrorWithDetails sends an error response with an additional details field
func respondErrorWithDetails(c *gin.Context, status int, code, message string, details any, err error) {
	attachError(c, err)
	c.JSON(status, gin.H{"error": message, "code": code, "details": details})
}

// respondServiceError maps a service error onto its HTTP status and error code
func respondServiceError(c *gin.Context, err error, defaultMsg string) {
	var slotErr *negotiation.SlotValidationError
	var transitionErr *errors.TransitionError

	switch {
	case errors.Is(err, errors.ErrNotFound):
		respondError(c, http.StatusNotFound, "not_found", "Not found", err)
	case errors.Is(err, errors.ErrForbidden):
		respondError(c, http.StatusForbidden, "forbidden", "Access denied", err)
	case errors.Is(err, errors.ErrConflict):
		respondErrorWithDetails(c, http.StatusConflict, "conflict",
			"The record was changed concurrently, reload and retry", transitionDetails(err), err)
	case errors.As(err, &transitionErr):
		respondErrorWithDetails(c, http.StatusBadRequest, "invalid_transition",
			"Invalid status transition", gin.H{"expected": transitionErr.Expected, "actual": transitionErr.Actual}, err)
	case errors.As(err, &slotErr):
		respondErrorWithDetails(c, http.StatusBadRequest, "invalid_slots", "Invalid proposed slots", slotErr.Rejections, err)
	case errors.Is(err, errors.ErrIndexOutOfRange):
		respondError(c, http.StatusBadRequest, "index_out_of_range", "Slot index out of range", err)
	case errors.Is(err, errors.ErrInvalidURL):
		respondError(c, http.StatusBadRequest, "invalid_url", "Meeting link must be an absolute URL", err)
	case errors.Is(err, errors.ErrInvalidState):
		respondErrorWithDetails(c, http.StatusBadRequest, "invalid_state", "Operation not allowed in the current state", err.Error(), err)
	case errors.Is(err, errors.ErrInvalidInput):
		respondErrorWithDetails(c, http.StatusBadRequest, "invalid_input", "Invalid request", err.Error(), err)
	default:
		respondError(c, http.StatusInternalServerError, "internal", defaultMsg, err)
	}
}

func transitionDetails(err error) any {
	var te *errors.TransitionError
	if errors.As(err, &te) {
		return gin.H{"expected": te.Expected}
	}
	return nil
}

// respondBindError reports a request body that failed to bind or validate
func respondBindError(c *gin.Context, err error) {
	if details := ParseValidationErrors(err); len(details) > 0 {
		respondErrorWithDetails(c, http.StatusBadRequest, "invalid_input", "Invalid request body", details, err)
		return
	}
	respondError(c, http.StatusBadRequest, "invalid_input", "Invalid request body", err)
}
