package models

import "time"

// SessionRequest is the negotiation artifact between a client asking for a
// time slot and the trainer confirming or adjusting it. SessionID stays nil
// until a session is actually materialized. ProposedStart and ProposedEnd
// are both set or both nil.
type SessionRequest struct {
	ID             int64      `json:"id"`
	SessionID      *int64     `json:"session_id"`
	TrainerID      int64      `json:"trainer_id"`
	ClientID       int64      `json:"client_id"`
	RequestedStart time.Time  `json:"requested_start"`
	RequestedEnd   time.Time  `json:"requested_end"`
	ProposedStart  *time.Time `json:"proposed_start"`
	ProposedEnd    *time.Time `json:"proposed_end"`
	Status         string     `json:"status"`
	Message        *string    `json:"message"`
	TrainerNote    *string    `json:"trainer_note"`
	RescheduleNote *string    `json:"reschedule_note"`
	RespondedAt    *time.Time `json:"responded_at"`
	RespondedBy    *int64     `json:"responded_by"`
	ProposedAt     *time.Time `json:"proposed_at"`
	ProposedBy     *int64     `json:"proposed_by"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
