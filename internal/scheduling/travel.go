package scheduling

import (
	"time"

	"github.com/croquete1/Fitness-Pro-sub005/internal/models"
)

// BufferConflict reports a committed session that sits too close to the
// candidate interval for the trainer to travel between two different
// locations. Side is "before" when the session ends ahead of the
// candidate and "after" when it starts behind it.
type BufferConflict struct {
	SessionID          int64  `json:"session_id"`
	LocationID         int64  `json:"location_id"`
	Side               string `json:"side"`
	RequiredGapMinutes int    `json:"required_gap_minutes"`
	ActualGapMinutes   int    `json:"actual_gap_minutes"`
}

// CheckTravelBuffers verifies that enough transit time separates the
// candidate interval from the sessions immediately adjacent to it on the
// same day. Only the nearest neighbor on each side matters: the day's
// committed sessions are non-overlapping and were buffer-checked against
// their own neighbors when admitted. The check is skipped on a side where
// either the candidate or the neighbor has no declared location, or where
// both share the same location. travelMinutes maps location id to its
// typical transit time.
func CheckTravelBuffers(
	start, end time.Time,
	locationID *int64,
	daySessions []models.Session,
	travelMinutes map[int64]int,
) []BufferConflict {
	if locationID == nil {
		return nil
	}

	var prev, next *models.Session
	for i := range daySessions {
		s := &daySessions[i]
		if !s.EndsAt().After(start) {
			if prev == nil || s.EndsAt().After(prev.EndsAt()) {
				prev = s
			}
		}
		if !s.StartsAt.Before(end) {
			if next == nil || s.StartsAt.Before(next.StartsAt) {
				next = s
			}
		}
	}

	var conflicts []BufferConflict
	if prev != nil && prev.LocationID != nil && *prev.LocationID != *locationID {
		required := maxMinutes(travelMinutes[*prev.LocationID], travelMinutes[*locationID])
		if start.Before(prev.EndsAt().Add(time.Duration(required) * time.Minute)) {
			conflicts = append(conflicts, BufferConflict{
				SessionID:          prev.ID,
				LocationID:         *prev.LocationID,
				Side:               "before",
				RequiredGapMinutes: required,
				ActualGapMinutes:   DurationMinutes(prev.EndsAt(), start),
			})
		}
	}
	if next != nil && next.LocationID != nil && *next.LocationID != *locationID {
		required := maxMinutes(travelMinutes[*next.LocationID], travelMinutes[*locationID])
		if next.StartsAt.Before(end.Add(time.Duration(required) * time.Minute)) {
			conflicts = append(conflicts, BufferConflict{
				SessionID:          next.ID,
				LocationID:         *next.LocationID,
				Side:               "after",
				RequiredGapMinutes: required,
				ActualGapMinutes:   DurationMinutes(end, next.StartsAt),
			})
		}
	}
	return conflicts
}

func maxMinutes(a, b int) int {
	if a > b {
		return a
	}
	return b
}
