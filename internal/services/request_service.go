package services

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/croquete1/Fitness-Pro-sub005/internal/models"
	"github.com/croquete1/Fitness-Pro-sub005/internal/notify"
	"github.com/croquete1/Fitness-Pro-sub005/internal/repository"
	"github.com/croquete1/Fitness-Pro-sub005/internal/scheduling"
)

// RequestService drives the session-request state machine:
//
//	pending -> cancelled                 (client cancel)
//	pending -> accepted                  (trainer accept, session materialized)
//	pending|accepted -> reschedule_pending   (trainer propose)
//	reschedule_pending -> accepted       (client accept, session moved)
//	reschedule_pending -> reschedule_declined (client decline)
//
// Every transition locks the request row first; a transition attempted
// from any other state fails with ErrInvalidState and mutates nothing.
type RequestService struct {
	db          DB
	requestRepo *repository.RequestRepository
	detector    *scheduling.Detector
	userRepo    userReader
	notifier    Notifier
}

func NewRequestService(
	db DB,
	requestRepo *repository.RequestRepository,
	availRepo *repository.AvailabilityRepository,
	locationRepo *repository.LocationRepository,
	userRepo userReader,
	notifier Notifier,
) *RequestService {
	return &RequestService{
		db:          db,
		requestRepo: requestRepo,
		detector:    scheduling.NewDetector(availRepo, locationRepo),
		userRepo:    userRepo,
		notifier:    notifier,
	}
}

type CreateRequestInput struct {
	TrainerID int64
	Start     time.Time
	End       time.Time
	Message   *string
}

func (s *RequestService) CreateRequest(
	ctx context.Context,
	clientID int64,
	input CreateRequestInput,
) (*models.SessionRequest, error) {
	if input.TrainerID <= 0 || input.TrainerID == clientID {
		return nil, ErrInvalidInput
	}
	start := input.Start.UTC()
	end := input.End.UTC()
	if !start.Before(end) {
		return nil, scheduling.ErrInvalidRange
	}
	if start.Before(time.Now().UTC().Add(-1 * time.Minute)) {
		return nil, ErrInvalidInput
	}

	trainer, err := s.userRepo.GetByID(ctx, input.TrainerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTrainerNotFound
		}
		return nil, err
	}
	if trainer.Role != "trainer" {
		return nil, ErrTrainerNotFound
	}
	if trainer.Status == "suspended" {
		return nil, ErrTrainerUnavailable
	}

	// Immediate dry run so a client does not file a request for a slot
	// that is already taken. The authoritative check reruns under the
	// trainer's lock when the request is accepted.
	result, err := s.detector.Detect(ctx, scheduling.DetectInput{
		TrainerID: input.TrainerID,
		Start:     start,
		End:       end,
	})
	if err != nil {
		return nil, err
	}
	if result.HasConflict {
		return nil, &ConflictError{Result: result}
	}

	request, err := s.requestRepo.Create(ctx, repository.CreateRequestInput{
		TrainerID:      input.TrainerID,
		ClientID:       clientID,
		RequestedStart: start,
		RequestedEnd:   end,
		Message:        input.Message,
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(request.TrainerID, notify.Event{
		Type:      "request_created",
		RequestID: request.ID,
		Status:    request.Status,
	})
	return request, nil
}

func (s *RequestService) GetRequest(
	ctx context.Context,
	actorID int64,
	role string,
	requestID int64,
) (*models.SessionRequest, error) {
	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !canAccessRequest(role, actorID, request) {
		return nil, ErrForbidden
	}
	return request, nil
}

func (s *RequestService) ListRequests(
	ctx context.Context,
	actorID int64,
	role string,
	status string,
	limit, offset int,
) ([]models.SessionRequest, int, error) {
	filter := repository.RequestListFilter{ActorID: actorID, Role: role, Status: status}
	total, err := s.requestRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	requests, err := s.requestRepo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// Cancel is the client's pending -> cancelled transition.
func (s *RequestService) Cancel(
	ctx context.Context,
	actorID int64,
	role string,
	requestID int64,
) (*models.SessionRequest, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txRequestRepo := repository.NewRequestRepository(tx)
	request, err := txRequestRepo.GetByIDForUpdate(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !isRequestClient(role, actorID, request) {
		return nil, ErrForbidden
	}
	if request.Status != "pending" {
		return nil, ErrInvalidState
	}

	updated, err := txRequestRepo.CancelIfPending(ctx, requestID, actorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidState
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.notifier.Publish(updated.TrainerID, notify.Event{
		Type:      "request_cancelled",
		RequestID: updated.ID,
		Status:    updated.Status,
	})
	return updated, nil
}

// Accept is the trainer's direct pending -> accepted transition: the
// requested interval is conflict-checked under the trainer's lock and
// the session is materialized in the same transaction.
func (s *RequestService) Accept(
	ctx context.Context,
	actorID int64,
	role string,
	requestID int64,
) (*models.SessionRequest, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txRequestRepo := repository.NewRequestRepository(tx)
	request, err := txRequestRepo.GetByIDForUpdate(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !isRequestTrainer(role, actorID, request) {
		return nil, ErrForbidden
	}
	if request.Status != "pending" {
		return nil, ErrInvalidState
	}

	session, err := s.commitInterval(ctx, tx, request, request.RequestedStart, request.RequestedEnd)
	if err != nil {
		return nil, err
	}

	updated, err := txRequestRepo.Accept(
		ctx,
		requestID,
		session.ID,
		request.RequestedStart,
		request.RequestedEnd,
		actorID,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.notifier.Publish(updated.ClientID, notify.Event{
		Type:      "request_accepted",
		RequestID: updated.ID,
		SessionID: session.ID,
		Status:    updated.Status,
	})
	return updated, nil
}

// ProposeReschedule is the trainer's pending|accepted ->
// reschedule_pending transition. No conflict check happens here; the
// authoritative check runs when the client accepts.
func (s *RequestService) ProposeReschedule(
	ctx context.Context,
	actorID int64,
	role string,
	requestID int64,
	proposedStart, proposedEnd time.Time,
	note *string,
) (*models.SessionRequest, error) {
	start := proposedStart.UTC()
	end := proposedEnd.UTC()
	if !start.Before(end) {
		return nil, scheduling.ErrInvalidRange
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txRequestRepo := repository.NewRequestRepository(tx)
	request, err := txRequestRepo.GetByIDForUpdate(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !isRequestTrainer(role, actorID, request) {
		return nil, ErrForbidden
	}
	if request.Status != "pending" && request.Status != "accepted" {
		return nil, ErrInvalidState
	}

	updated, err := txRequestRepo.Propose(ctx, requestID, start, end, note, actorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidState
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.notifier.Publish(updated.ClientID, notify.Event{
		Type:      "reschedule_proposed",
		RequestID: updated.ID,
		Status:    updated.Status,
	})
	return updated, nil
}

// AcceptReschedule is the client's reschedule_pending -> accepted
// transition. The proposed interval is conflict-checked excluding the
// session being moved; on conflict the request is left exactly as it
// was. On success the linked session moves to the proposed interval
// atomically with the status flip. A proposal made before any session
// existed materializes one here.
func (s *RequestService) AcceptReschedule(
	ctx context.Context,
	actorID int64,
	role string,
	requestID int64,
) (*models.SessionRequest, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txRequestRepo := repository.NewRequestRepository(tx)
	request, err := txRequestRepo.GetByIDForUpdate(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !isRequestClient(role, actorID, request) {
		return nil, ErrForbidden
	}
	if request.Status != "reschedule_pending" || request.ProposedStart == nil || request.ProposedEnd == nil {
		return nil, ErrInvalidState
	}

	proposedStart := request.ProposedStart.UTC()
	proposedEnd := request.ProposedEnd.UTC()

	session, err := s.commitInterval(ctx, tx, request, proposedStart, proposedEnd)
	if err != nil {
		return nil, err
	}

	updated, err := txRequestRepo.Accept(ctx, requestID, session.ID, proposedStart, proposedEnd, actorID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.notifier.Publish(updated.TrainerID, notify.Event{
		Type:      "reschedule_accepted",
		RequestID: updated.ID,
		SessionID: session.ID,
		Status:    updated.Status,
	})
	return updated, nil
}

// DeclineReschedule is the client's reschedule_pending ->
// reschedule_declined transition.
func (s *RequestService) DeclineReschedule(
	ctx context.Context,
	actorID int64,
	role string,
	requestID int64,
) (*models.SessionRequest, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txRequestRepo := repository.NewRequestRepository(tx)
	request, err := txRequestRepo.GetByIDForUpdate(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !isRequestClient(role, actorID, request) {
		return nil, ErrForbidden
	}
	if request.Status != "reschedule_pending" {
		return nil, ErrInvalidState
	}

	updated, err := txRequestRepo.DeclineReschedule(ctx, requestID, actorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidState
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.notifier.Publish(updated.TrainerID, notify.Event{
		Type:      "reschedule_declined",
		RequestID: updated.ID,
		Status:    updated.Status,
	})
	return updated, nil
}

// commitInterval takes the trainer's advisory lock, conflict-checks the
// interval and either moves the linked session or materializes a new
// one. Callers hold the request row lock already.
func (s *RequestService) commitInterval(
	ctx context.Context,
	tx pgx.Tx,
	request *models.SessionRequest,
	start, end time.Time,
) (*models.Session, error) {
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", request.TrainerID); err != nil {
		return nil, err
	}

	txSessionRepo := repository.NewSessionRepository(tx)

	var excludeSessionID int64
	var locationID *int64
	var session *models.Session
	if request.SessionID != nil {
		existing, err := txSessionRepo.GetByIDForUpdate(ctx, *request.SessionID)
		if err != nil {
			return nil, err
		}
		excludeSessionID = existing.ID
		locationID = existing.LocationID
		session = existing
	}

	txDetector := scheduling.NewDetector(
		repository.NewAvailabilityRepository(tx),
		repository.NewLocationRepository(tx),
	)
	result, err := txDetector.Detect(ctx, scheduling.DetectInput{
		TrainerID:        request.TrainerID,
		Start:            start,
		End:              end,
		LocationID:       locationID,
		ExcludeSessionID: excludeSessionID,
	})
	if err != nil {
		return nil, err
	}
	if result.HasConflict {
		return nil, &ConflictError{Result: result}
	}

	if session != nil {
		moved, err := txSessionRepo.UpdateTime(ctx, session.ID, start, scheduling.DurationMinutes(start, end))
		if err != nil {
			return nil, mapExclusionViolation(err)
		}
		return moved, nil
	}

	created, err := txSessionRepo.Create(ctx, repository.CreateSessionInput{
		TrainerID:       request.TrainerID,
		ClientID:        request.ClientID,
		StartsAt:        start,
		DurationMinutes: scheduling.DurationMinutes(start, end),
		Notes:           request.Message,
	})
	if err != nil {
		return nil, mapExclusionViolation(err)
	}
	return created, nil
}

func canAccessRequest(role string, actorID int64, request *models.SessionRequest) bool {
	switch role {
	case "client":
		return request.ClientID == actorID
	case "trainer":
		return request.TrainerID == actorID
	case "admin":
		return true
	}
	return false
}

func isRequestClient(role string, actorID int64, request *models.SessionRequest) bool {
	if role == "admin" {
		return true
	}
	return role == "client" && request.ClientID == actorID
}

func isRequestTrainer(role string, actorID int64, request *models.SessionRequest) bool {
	if role == "admin" {
		return true
	}
	return role == "trainer" && request.TrainerID == actorID
}
