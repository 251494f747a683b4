package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/croquete1/Fitness-Pro-sub005/internal/models"
)

type CreateRequestInput struct {
	TrainerID      int64
	ClientID       int64
	RequestedStart time.Time
	RequestedEnd   time.Time
	Message        *string
}

type RequestListFilter struct {
	ActorID int64
	Role    string
	Status  string
}

const requestColumns = `id, session_id, trainer_id, client_id, requested_start, requested_end,
		proposed_start, proposed_end, status, message, trainer_note, reschedule_note,
		responded_at, responded_by, proposed_at, proposed_by, created_at, updated_at`

type RequestRepository struct {
	db DBTX
}

func NewRequestRepository(db DBTX) *RequestRepository {
	return &RequestRepository{db: db}
}

func (r *RequestRepository) scanRequest(row interface{ Scan(...any) error }) (*models.SessionRequest, error) {
	var req models.SessionRequest
	err := row.Scan(
		&req.ID,
		&req.SessionID,
		&req.TrainerID,
		&req.ClientID,
		&req.RequestedStart,
		&req.RequestedEnd,
		&req.ProposedStart,
		&req.ProposedEnd,
		&req.Status,
		&req.Message,
		&req.TrainerNote,
		&req.RescheduleNote,
		&req.RespondedAt,
		&req.RespondedBy,
		&req.ProposedAt,
		&req.ProposedBy,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *RequestRepository) Create(
	ctx context.Context,
	input CreateRequestInput,
) (*models.SessionRequest, error) {
	query := `
		INSERT INTO session_requests (trainer_id, client_id, requested_start, requested_end, status, message)
		VALUES ($1, $2, $3, $4, 'pending', $5)
		RETURNING ` + requestColumns

	return r.scanRequest(r.db.QueryRow(
		ctx,
		query,
		input.TrainerID,
		input.ClientID,
		input.RequestedStart,
		input.RequestedEnd,
		input.Message,
	))
}

func (r *RequestRepository) GetByID(ctx context.Context, requestID int64) (*models.SessionRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM session_requests WHERE id = $1`
	return r.scanRequest(r.db.QueryRow(ctx, query, requestID))
}

func (r *RequestRepository) GetByIDForUpdate(
	ctx context.Context,
	requestID int64,
) (*models.SessionRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM session_requests WHERE id = $1 FOR UPDATE`
	return r.scanRequest(r.db.QueryRow(ctx, query, requestID))
}

func (r *RequestRepository) List(
	ctx context.Context,
	filter RequestListFilter,
	limit, offset int,
) ([]models.SessionRequest, error) {
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

	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM session_requests
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, requestColumns, strings.Join(whereParts, " AND "), len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]models.SessionRequest, 0)
	for rows.Next() {
		req, err := r.scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return requests, nil
}

func (r *RequestRepository) Count(ctx context.Context, filter RequestListFilter) (int, error) {
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

	query := fmt.Sprintf(
		`SELECT COUNT(*) FROM session_requests WHERE %s`,
		strings.Join(whereParts, " AND "),
	)

	var total int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// CancelIfPending flips a pending request to cancelled. pgx.ErrNoRows
// means the request was not in the required state.
func (r *RequestRepository) CancelIfPending(
	ctx context.Context,
	requestID int64,
	respondedBy int64,
) (*models.SessionRequest, error) {
	query := `
		UPDATE session_requests
		SET status = 'cancelled', responded_at = NOW(), responded_by = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + requestColumns
	return r.scanRequest(r.db.QueryRow(ctx, query, requestID, respondedBy))
}

// Propose attaches a reschedule proposal. Allowed from pending or a
// previously accepted request.
func (r *RequestRepository) Propose(
	ctx context.Context,
	requestID int64,
	proposedStart, proposedEnd time.Time,
	note *string,
	proposedBy int64,
) (*models.SessionRequest, error) {
	query := `
		UPDATE session_requests
		SET proposed_start = $2, proposed_end = $3, reschedule_note = $4,
		    proposed_at = NOW(), proposed_by = $5, status = 'reschedule_pending', updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'accepted')
		RETURNING ` + requestColumns
	return r.scanRequest(r.db.QueryRow(ctx, query, requestID, proposedStart, proposedEnd, note, proposedBy))
}

// Accept finalizes a request against a materialized session: the agreed
// interval becomes the requested one, the proposal is cleared and the
// session is linked.
func (r *RequestRepository) Accept(
	ctx context.Context,
	requestID int64,
	sessionID int64,
	start, end time.Time,
	respondedBy int64,
) (*models.SessionRequest, error) {
	query := `
		UPDATE session_requests
		SET status = 'accepted', session_id = $2, requested_start = $3, requested_end = $4,
		    proposed_start = NULL, proposed_end = NULL,
		    responded_at = NOW(), responded_by = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + requestColumns
	return r.scanRequest(r.db.QueryRow(ctx, query, requestID, sessionID, start, end, respondedBy))
}

// DeclineReschedule clears the proposal and ends the negotiation round.
func (r *RequestRepository) DeclineReschedule(
	ctx context.Context,
	requestID int64,
	respondedBy int64,
) (*models.SessionRequest, error) {
	query := `
		UPDATE session_requests
		SET status = 'reschedule_declined', proposed_start = NULL, proposed_end = NULL,
		    responded_at = NOW(), responded_by = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'reschedule_pending'
		RETURNING ` + requestColumns
	return r.scanRequest(r.db.QueryRow(ctx, query, requestID, respondedBy))
}
