// Package negotiation validates and resolves the candidate meeting slots a mentor
// proposes when accepting a request. All functions are pure.
package negotiation

import (
	"fmt"
	"strings"
	"time"

	"github.com/getmentor/getmentor-sessions/internal/models"
	"github.com/getmentor/getmentor-sessions/pkg/errors"
)

// MaxSlots is the maximum number of proposed slots per request
const MaxSlots = 3

// Rejection reasons reported in SlotValidationError
const (
	ReasonUnparsable  = "unparsable timestamp"
	ReasonNotFuture   = "not in the future"
	ReasonInvalidMode = "invalid mode"
	ReasonDuplicate   = "duplicate instant"
	ReasonTooMany     = "exceeds maximum of 3 slots"
	ReasonEmpty       = "at least one slot is required"
)

// SlotRejection describes one rejected input entry. Index is -1 for list-level problems.
type SlotRejection struct {
	Index  int    `json:"index"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

// SlotValidationError lists every rejected entry of a NormalizeSlots call
type SlotValidationError struct {
	Rejections []SlotRejection
}

func (e *SlotValidationError) Error() string {
	parts := make([]string, 0, len(e.Rejections))
	for _, r := range e.Rejections {
		if r.Index < 0 {
			parts = append(parts, r.Reason)
			continue
		}
		parts = append(parts, fmt.Sprintf("slot %d (%q): %s", r.Index, r.Value, r.Reason))
	}
	return "invalid slots: " + strings.Join(parts, "; ")
}

// Is makes the error match errors.ErrInvalidSlots
func (e *SlotValidationError) Is(target error) bool {
	return target == errors.ErrInvalidSlots
}

// NormalizeSlots validates raw slots against now and returns them in input order,
// converted to UTC and truncated to the microsecond.
func NormalizeSlots(raw []models.RawSlot, now time.Time) ([]models.ProposedSlot, error) {
	var rejections []SlotRejection

	if len(raw) == 0 {
		return nil, &SlotValidationError{Rejections: []SlotRejection{{Index: -1, Reason: ReasonEmpty}}}
	}

	seen := make(map[int64]bool, len(raw))
	slots := make([]models.ProposedSlot, 0, len(raw))

	for i, r := range raw {
		if i >= MaxSlots {
			rejections = append(rejections, SlotRejection{Index: i, Value: r.SlotDate, Reason: ReasonTooMany})
			continue
		}

		mode := models.MeetingMode(r.Mode)
		if !mode.IsValid() {
			rejections = append(rejections, SlotRejection{Index: i, Value: r.Mode, Reason: ReasonInvalidMode})
		}

		ts, err := time.Parse(time.RFC3339, strings.TrimSpace(r.SlotDate))
		if err != nil {
			rejections = append(rejections, SlotRejection{Index: i, Value: r.SlotDate, Reason: ReasonUnparsable})
			continue
		}
		// Stored timestamps keep microseconds; the truncated value must still be in the future.
		stored := ts.UTC().Truncate(time.Microsecond)
		if !ts.After(now) || !stored.After(now) {
			rejections = append(rejections, SlotRejection{Index: i, Value: r.SlotDate, Reason: ReasonNotFuture})
			continue
		}
		ts = stored
		if seen[ts.UnixMicro()] {
			rejections = append(rejections, SlotRejection{Index: i, Value: r.SlotDate, Reason: ReasonDuplicate})
			continue
		}
		seen[ts.UnixMicro()] = true

		if mode.IsValid() {
			slots = append(slots, models.ProposedSlot{SlotDate: ts, Mode: mode})
		}
	}

	if len(rejections) > 0 {
		return nil, &SlotValidationError{Rejections: rejections}
	}
	return slots, nil
}

// ResolveSlot returns the slot at index
func ResolveSlot(slots []models.ProposedSlot, index int) (models.ProposedSlot, error) {
	if index < 0 || index >= len(slots) {
		return models.ProposedSlot{}, fmt.Errorf("index %d of %d slots: %w", index, len(slots), errors.ErrIndexOutOfRange)
	}
	return slots[index], nil
}
