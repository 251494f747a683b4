package models

import "time"

// DayOff is a trainer-declared unavailable window on a single calendar
// date. StartHM and EndHM are local clock times in "HH:MM" form.
type DayOff struct {
	ID        int64     `json:"id"`
	TrainerID int64     `json:"trainer_id"`
	Day       time.Time `json:"day"`
	StartHM   string    `json:"start_time"`
	EndHM     string    `json:"end_time"`
	Reason    *string   `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

type Location struct {
	ID            int64     `json:"id"`
	TrainerID     int64     `json:"trainer_id"`
	Name          string    `json:"name"`
	TravelMinutes int       `json:"travel_minutes"`
	CreatedAt     time.Time `json:"created_at"`
}
