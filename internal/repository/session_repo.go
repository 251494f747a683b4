package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/croquete1/Fitness-Pro-sub005/internal/models"
)

type CreateSessionInput struct {
	TrainerID       int64
	ClientID        int64
	StartsAt        time.Time
	DurationMinutes int
	LocationID      *int64
	Notes           *string
}

type SessionListFilter struct {
	ActorID   int64
	Role      string
	Status    string
	Timeframe string
}

const sessionColumns = "id, trainer_id, client_id, starts_at, duration_min, location_id, status, notes, created_at, updated_at"

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) scanSession(row interface{ Scan(...any) error }) (*models.Session, error) {
	var session models.Session
	err := row.Scan(
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
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) Create(
	ctx context.Context,
	input CreateSessionInput,
) (*models.Session, error) {
	query := `
		INSERT INTO sessions (trainer_id, client_id, starts_at, duration_min, location_id, status, notes)
		VALUES ($1, $2, $3, $4, $5, 'scheduled', $6)
		RETURNING ` + sessionColumns

	return r.scanSession(r.db.QueryRow(
		ctx,
		query,
		input.TrainerID,
		input.ClientID,
		input.StartsAt,
		input.DurationMinutes,
		input.LocationID,
		input.Notes,
	))
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID int64) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	return r.scanSession(r.db.QueryRow(ctx, query, sessionID))
}

func (r *SessionRepository) GetByIDForUpdate(
	ctx context.Context,
	sessionID int64,
) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1 FOR UPDATE`
	return r.scanSession(r.db.QueryRow(ctx, query, sessionID))
}

func (r *SessionRepository) List(
	ctx context.Context,
	filter SessionListFilter,
) ([]models.Session, error) {
	actorColumn := "client_id"
	if filter.Role == "trainer" {
		actorColumn = "trainer_id"
	}

	args := []any{filter.ActorID}
	whereParts := []string{fmt.Sprintf("%s = $1", actorColumn)}

	if status := strings.TrimSpace(filter.Status); status != "" {
		args = append(args, status)
		whereParts = append(whereParts, fmt.Sprintf("status = $%d", len(args)))
	}

	switch strings.TrimSpace(filter.Timeframe) {
	case "upcoming":
		whereParts = append(
			whereParts,
			"(starts_at + (duration_min * INTERVAL '1 minute')) > NOW()",
		)
	case "past":
		whereParts = append(
			whereParts,
			"(starts_at + (duration_min * INTERVAL '1 minute')) <= NOW()",
		)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM sessions
		WHERE %s
		ORDER BY starts_at ASC, id ASC
	`, sessionColumns, strings.Join(whereParts, " AND "))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		session, err := r.scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

func (r *SessionRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	sessionID int64,
	currentStatus string,
	nextStatus string,
) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + sessionColumns
	return r.scanSession(r.db.QueryRow(ctx, query, sessionID, currentStatus, nextStatus))
}

// UpdateTime moves a session to a new interval. Only the reschedule
// acceptance path calls this, inside the same transaction that flips the
// request's status.
func (r *SessionRepository) UpdateTime(
	ctx context.Context,
	sessionID int64,
	startsAt time.Time,
	durationMinutes int,
) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET starts_at = $2, duration_min = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + sessionColumns
	return r.scanSession(r.db.QueryRow(ctx, query, sessionID, startsAt, durationMinutes))
}
