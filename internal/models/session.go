package models

import "time"

type Session struct {
	ID              int64     `json:"id"`
	TrainerID       int64     `json:"trainer_id"`
	ClientID        int64     `json:"client_id"`
	StartsAt        time.Time `json:"starts_at"`
	DurationMinutes int       `json:"duration_minutes"`
	LocationID      *int64    `json:"location_id"`
	Status          string    `json:"status"`
	Notes           *string   `json:"notes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EndsAt is the exclusive end of the session's time block.
func (s *Session) EndsAt() time.Time {
	return s.StartsAt.Add(time.Duration(s.DurationMinutes) * time.Minute)
}
