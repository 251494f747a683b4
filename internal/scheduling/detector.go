package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/croquete1/Fitness-Pro-sub005/internal/models"
)

var ErrInvalidRange = errors.New("invalid time range")

// AvailabilityReader is the read projection over the trainer's calendar
// that the detector consults. Implementations must return only sessions
// that can still occupy time (cancelled ones excluded) and must honor
// excludeSessionID so a reschedule can be checked against everything but
// the session being moved.
type AvailabilityReader interface {
	DaySessions(ctx context.Context, trainerID int64, from, to time.Time, excludeSessionID int64) ([]models.Session, error)
	DayOffs(ctx context.Context, trainerID int64, from, to time.Time) ([]models.DayOff, error)
}

type LocationReader interface {
	TravelMinutes(ctx context.Context, locationID int64) (int, error)
}

type DetectInput struct {
	TrainerID        int64
	Start            time.Time
	End              time.Time
	LocationID       *int64
	ExcludeSessionID int64
}

type Conflicts struct {
	Sessions []models.Session `json:"sessions"`
	DayOffs  []models.DayOff  `json:"day_offs"`
	Buffers  []BufferConflict `json:"buffers"`
}

type Result struct {
	HasConflict bool      `json:"has_conflict"`
	Conflicts   Conflicts `json:"conflicts"`
}

// Detector classifies a candidate interval as admissible or in conflict
// with a trainer's committed sessions, day-off blocks and travel buffers.
// It never writes anything, so the same call serves client-facing dry
// runs and the server-side guard at the moment of insertion.
type Detector struct {
	avail AvailabilityReader
	locs  LocationReader
}

func NewDetector(avail AvailabilityReader, locs LocationReader) *Detector {
	return &Detector{avail: avail, locs: locs}
}

func (d *Detector) Detect(ctx context.Context, input DetectInput) (*Result, error) {
	start := input.Start.UTC()
	end := input.End.UTC()
	if !start.Before(end) {
		return nil, ErrInvalidRange
	}

	from, to := Window(start, end)
	sessions, err := d.avail.DaySessions(ctx, input.TrainerID, from, to, input.ExcludeSessionID)
	if err != nil {
		return nil, err
	}
	dayOffs, err := d.avail.DayOffs(ctx, input.TrainerID, from, to)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Conflicts: Conflicts{
			Sessions: []models.Session{},
			DayOffs:  []models.DayOff{},
			Buffers:  []BufferConflict{},
		},
	}

	for _, s := range sessions {
		if Overlaps(start, end, s.StartsAt, s.EndsAt()) {
			result.Conflicts.Sessions = append(result.Conflicts.Sessions, s)
		}
	}

	for _, off := range dayOffs {
		offStart, offEnd, err := DayOffInterval(off)
		if err != nil {
			return nil, err
		}
		if Overlaps(start, end, offStart, offEnd) {
			result.Conflicts.DayOffs = append(result.Conflicts.DayOffs, off)
		}
	}

	if input.LocationID != nil {
		minutes, err := d.loadTravelMinutes(ctx, *input.LocationID, sessions)
		if err != nil {
			return nil, err
		}
		if buffers := CheckTravelBuffers(start, end, input.LocationID, sessions, minutes); buffers != nil {
			result.Conflicts.Buffers = buffers
		}
	}

	result.HasConflict = len(result.Conflicts.Sessions) > 0 ||
		len(result.Conflicts.DayOffs) > 0 ||
		len(result.Conflicts.Buffers) > 0
	return result, nil
}

func (d *Detector) loadTravelMinutes(
	ctx context.Context,
	candidateLocationID int64,
	sessions []models.Session,
) (map[int64]int, error) {
	ids := map[int64]struct{}{candidateLocationID: {}}
	for _, s := range sessions {
		if s.LocationID != nil {
			ids[*s.LocationID] = struct{}{}
		}
	}

	minutes := make(map[int64]int, len(ids))
	for id := range ids {
		m, err := d.locs.TravelMinutes(ctx, id)
		if err != nil {
			return nil, err
		}
		minutes[id] = m
	}
	return minutes, nil
}

// DayOffInterval converts a day-off's calendar date and "HH:MM" clock
// times into absolute UTC instants.
func DayOffInterval(off models.DayOff) (time.Time, time.Time, error) {
	start, err := clockOn(off.Day, off.StartHM)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("day-off %d start time: %w", off.ID, err)
	}
	end, err := clockOn(off.Day, off.EndHM)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("day-off %d end time: %w", off.ID, err)
	}
	return start, end, nil
}

func clockOn(day time.Time, hm string) (time.Time, error) {
	clock, err := time.Parse("15:04", hm)
	if err != nil {
		return time.Time{}, err
	}
	return DayStart(day).
		Add(time.Duration(clock.Hour()) * time.Hour).
		Add(time.Duration(clock.Minute()) * time.Minute), nil
}
