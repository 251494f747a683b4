package repository

import (
	"context"
	"time"

	"github.com/croquete1/Fitness-Pro-sub005/internal/models"
)

// AvailabilityRepository is the read-only projection of a trainer's
// calendar that the conflict detector consumes. It never writes.
type AvailabilityRepository struct {
	db DBTX
}

func NewAvailabilityRepository(db DBTX) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// DaySessions returns the trainer's non-cancelled sessions touching the
// [from, to) window, ordered by start time. When excludeSessionID is
// positive that session is left out, which lets a reschedule be checked
// against everything except the session being moved.
func (r *AvailabilityRepository) DaySessions(
	ctx context.Context,
	trainerID int64,
	from, to time.Time,
	excludeSessionID int64,
) ([]models.Session, error) {
	query := `
		SELECT id, trainer_id, client_id, starts_at, duration_min, location_id, status, notes, created_at, updated_at
		FROM sessions
		WHERE trainer_id = $1
		  AND status <> 'cancelled'
		  AND ($4::bigint <= 0 OR id <> $4)
		  AND starts_at < $3
		  AND (starts_at + (duration_min * INTERVAL '1 minute')) > $2
		ORDER BY starts_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, trainerID, from, to, excludeSessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		var session models.Session
		if err := rows.Scan(
			&session.ID,
			&session.TrainerID,
			&session.ClientID,
			&session.StartsAt,
			&session.DurationMinutes,
			&session.LocationID,
			&session.Status,
			&session.Notes,
			&session.CreatedAt,
			&session.UpdatedAt,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// DayOffs returns the trainer's day-off blocks for every calendar date
// the [from, to) window touches. The bounds are reduced to dates in UTC
// explicitly; a bare ::date cast would use the server session's TimeZone
// and could drop the block on the window's boundary days.
func (r *AvailabilityRepository) DayOffs(
	ctx context.Context,
	trainerID int64,
	from, to time.Time,
) ([]models.DayOff, error) {
	query := `
		SELECT id, trainer_id, day, start_hm, end_hm, reason, created_at
		FROM day_offs
		WHERE trainer_id = $1
		  AND day >= ($2 AT TIME ZONE 'UTC')::date
		  AND day < ($3 AT TIME ZONE 'UTC')::date
		ORDER BY day ASC, start_hm ASC
	`

	rows, err := r.db.Query(ctx, query, trainerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dayOffs := make([]models.DayOff, 0)
	for rows.Next() {
		var off models.DayOff
		if err := rows.Scan(
			&off.ID,
			&off.TrainerID,
			&off.Day,
			&off.StartHM,
			&off.EndHM,
			&off.Reason,
			&off.CreatedAt,
		); err != nil {
			return nil, err
		}
		dayOffs = append(dayOffs, off)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return dayOffs, nil
}
