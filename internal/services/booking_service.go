package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/croquete1/Fitness-Pro-sub005/internal/models"
	"github.com/croquete1/Fitness-Pro-sub005/internal/notify"
	"github.com/croquete1/Fitness-Pro-sub005/internal/repository"
	"github.com/croquete1/Fitness-Pro-sub005/internal/scheduling"
)

var (
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidState       = errors.New("invalid state")
	ErrTrainerNotFound    = errors.New("trainer not found")
	ErrTrainerUnavailable = errors.New("trainer unavailable")
)

// ConflictError carries the detector's structured result so the HTTP
// layer can render the full conflict list alongside the 409.
type ConflictError struct {
	Result *scheduling.Result
}

func (e *ConflictError) Error() string {
	return "requested time conflicts with the trainer's calendar"
}

// DB is the slice of *pgxpool.Pool the services need. pgxmock's pool
// satisfies it too, which is what the unit tests run against.
type DB interface {
	repository.DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

type userReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type Notifier interface {
	Publish(userID int64, event notify.Event)
}

type BookingService struct {
	db          DB
	sessionRepo *repository.SessionRepository
	detector    *scheduling.Detector
	userRepo    userReader
	notifier    Notifier
}

func NewBookingService(
	db DB,
	sessionRepo *repository.SessionRepository,
	availRepo *repository.AvailabilityRepository,
	locationRepo *repository.LocationRepository,
	userRepo userReader,
	notifier Notifier,
) *BookingService {
	return &BookingService{
		db:          db,
		sessionRepo: sessionRepo,
		detector:    scheduling.NewDetector(availRepo, locationRepo),
		userRepo:    userRepo,
		notifier:    notifier,
	}
}

type BookSessionInput struct {
	TrainerID  int64
	ClientID   int64
	Start      time.Time
	End        time.Time
	LocationID *int64
	Notes      *string
}

// BookSession runs the creation guard: validate the range, take the
// per-trainer advisory lock, run the conflict detector and only then
// insert. The sessions table additionally carries an exclusion
// constraint, so even a writer that bypasses the lock cannot commit an
// overlap.
func (s *BookingService) BookSession(
	ctx context.Context,
	input BookSessionInput,
) (*models.Session, error) {
	if input.TrainerID <= 0 || input.ClientID <= 0 || input.TrainerID == input.ClientID {
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

	if err := s.checkTrainer(ctx, input.TrainerID); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", input.TrainerID); err != nil {
		return nil, err
	}

	txDetector := scheduling.NewDetector(
		repository.NewAvailabilityRepository(tx),
		repository.NewLocationRepository(tx),
	)
	result, err := txDetector.Detect(ctx, scheduling.DetectInput{
		TrainerID:  input.TrainerID,
		Start:      start,
		End:        end,
		LocationID: input.LocationID,
	})
	if err != nil {
		return nil, err
	}
	if result.HasConflict {
		return nil, &ConflictError{Result: result}
	}

	session, err := repository.NewSessionRepository(tx).Create(ctx, repository.CreateSessionInput{
		TrainerID:       input.TrainerID,
		ClientID:        input.ClientID,
		StartsAt:        start,
		DurationMinutes: scheduling.DurationMinutes(start, end),
		LocationID:      input.LocationID,
		Notes:           input.Notes,
	})
	if err != nil {
		return nil, mapExclusionViolation(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.notifier.Publish(input.TrainerID, notify.Event{
		Type:      "session_booked",
		SessionID: session.ID,
		Status:    session.Status,
	})
	return session, nil
}

// CheckAvailability is the client-facing dry run: same detector, no
// lock, no write.
func (s *BookingService) CheckAvailability(
	ctx context.Context,
	trainerID int64,
	start, end time.Time,
	excludeSessionID int64,
) (*scheduling.Result, error) {
	if trainerID <= 0 {
		return nil, ErrInvalidInput
	}
	return s.detector.Detect(ctx, scheduling.DetectInput{
		TrainerID:        trainerID,
		Start:            start,
		End:              end,
		ExcludeSessionID: excludeSessionID,
	})
}

func (s *BookingService) ListSessions(
	ctx context.Context,
	actorID int64,
	role string,
	filter repository.SessionListFilter,
) ([]models.Session, error) {
	return s.sessionRepo.List(ctx, repository.SessionListFilter{
		ActorID:   actorID,
		Role:      role,
		Status:    filter.Status,
		Timeframe: filter.Timeframe,
	})
}

func (s *BookingService) GetSession(
	ctx context.Context,
	actorID int64,
	role string,
	sessionID int64,
) (*models.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !canAccessSession(role, actorID, session) {
		return nil, ErrForbidden
	}
	return session, nil
}

// UpdateStatus moves a session through its lifecycle. Times never change
// here; only an accepted reschedule may move a session.
func (s *BookingService) UpdateStatus(
	ctx context.Context,
	actorID int64,
	role string,
	sessionID int64,
	requestedStatus string,
) (*models.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !canAccessSession(role, actorID, session) {
		return nil, ErrForbidden
	}

	nextStatus, err := normalizeRequestedStatus(requestedStatus)
	if err != nil {
		return nil, err
	}
	if err := validateStatusTransition(role, session, nextStatus); err != nil {
		return nil, err
	}

	updated, err := s.sessionRepo.UpdateStatusIfCurrent(ctx, sessionID, session.Status, nextStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidState
		}
		return nil, err
	}

	counterpart := updated.ClientID
	if role == "client" {
		counterpart = updated.TrainerID
	}
	s.notifier.Publish(counterpart, notify.Event{
		Type:      "session_status_changed",
		SessionID: updated.ID,
		Status:    updated.Status,
	})
	return updated, nil
}

func (s *BookingService) checkTrainer(ctx context.Context, trainerID int64) error {
	trainer, err := s.userRepo.GetByID(ctx, trainerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTrainerNotFound
		}
		return err
	}
	if trainer.Role != "trainer" {
		return ErrTrainerNotFound
	}
	if trainer.Status == "suspended" {
		return ErrTrainerUnavailable
	}
	return nil
}

func canAccessSession(role string, actorID int64, session *models.Session) bool {
	switch role {
	case "client":
		return session.ClientID == actorID
	case "trainer":
		return session.TrainerID == actorID
	case "admin":
		return true
	}
	return false
}

func normalizeRequestedStatus(status string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "done", "complete", "completed":
		return "done", nil
	case "cancel", "cancelled", "canceled":
		return "cancelled", nil
	default:
		return "", ErrInvalidStatus
	}
}

func validateStatusTransition(role string, session *models.Session, nextStatus string) error {
	if session.Status != "scheduled" {
		return ErrInvalidState
	}

	switch nextStatus {
	case "cancelled":
		return nil
	case "done":
		if role != "trainer" && role != "admin" {
			return ErrForbidden
		}
		if session.EndsAt().After(time.Now().UTC()) {
			return ErrInvalidState
		}
		return nil
	default:
		return ErrInvalidStatus
	}
}

// 23P01 is Postgres's exclusion_violation: a concurrent writer won the
// race between our detector read and the insert.
func mapExclusionViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23P01" {
		return &ConflictError{Result: &scheduling.Result{HasConflict: true}}
	}
	return err
}
