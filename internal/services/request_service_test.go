package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"

	"github.com/croquete1/Fitness-Pro-sub005/internal/repository"
)

var requestRowColumns = []string{
	"id", "session_id", "trainer_id", "client_id", "requested_start", "requested_end",
	"proposed_start", "proposed_end", "status", "message", "trainer_note", "reschedule_note",
	"responded_at", "responded_by", "proposed_at", "proposed_by", "created_at", "updated_at",
}

func newRequestService(mock pgxmock.PgxPoolIface, users userReader, notifier Notifier) *RequestService {
	return NewRequestService(
		mock,
		repository.NewRequestRepository(mock),
		repository.NewAvailabilityRepository(mock),
		repository.NewLocationRepository(mock),
		users,
		notifier,
	)
}

// requestRow builds an AddRow argument list for a request in the given
// state. Proposal fields are set only when proposed is non-zero.
func requestRow(id, trainerID, clientID int64, sessionID *int64, status string, requestedStart time.Time, proposed *time.Time) []any {
	now := time.Now().UTC()
	var proposedStart, proposedEnd *time.Time
	if proposed != nil {
		end := proposed.Add(time.Hour)
		proposedStart = proposed
		proposedEnd = &end
	}
	return []any{
		id, sessionID, trainerID, clientID, requestedStart, requestedStart.Add(time.Hour),
		proposedStart, proposedEnd, status, (*string)(nil), (*string)(nil), (*string)(nil),
		(*time.Time)(nil), (*int64)(nil), (*time.Time)(nil), (*int64)(nil), now, now,
	}
}

func TestCreateRequestRejectsImmediateConflict(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	notifier := &stubNotifier{}
	service := newRequestService(mock, activeTrainer(7), notifier)

	start := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Hour)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM sessions`).
		WithArgs(int64(7), pgxmock.AnyArg(), pgxmock.AnyArg(), int64(0)).
		WillReturnRows(pgxmock.NewRows(sessionRowColumns).
			AddRow(int64(4), int64(7), int64(9), start, 60, nil, "scheduled", nil, now, now))
	mock.ExpectQuery(`FROM day_offs`).
		WithArgs(int64(7), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(dayOffRowColumns))

	_, err = service.CreateRequest(context.Background(), 42, CreateRequestInput{
		TrainerID: 7,
		Start:     start,
		End:       start.Add(time.Hour),
	})

	var conflictErr *ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if len(notifier.events) != 0 {
		t.Fatalf("no notification expected, got %+v", notifier.events)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateRequestInsertsPending(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	notifier := &stubNotifier{}
	service := newRequestService(mock, activeTrainer(7), notifier)

	start := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Hour)

	mock.ExpectQuery(`FROM sessions`).
		WithArgs(int64(7), pgxmock.AnyArg(), pgxmock.AnyArg(), int64(0)).
		WillReturnRows(pgxmock.NewRows(sessionRowColumns))
	mock.ExpectQuery(`FROM day_offs`).
		WithArgs(int64(7), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(dayOffRowColumns))
	mock.ExpectQuery(`INSERT INTO session_requests`).
		WithArgs(int64(7), int64(42), start, start.Add(time.Hour), (*string)(nil)).
		WillReturnRows(pgxmock.NewRows(requestRowColumns).
			AddRow(requestRow(301, 7, 42, nil, "pending", start, nil)...))

	request, err := service.CreateRequest(context.Background(), 42, CreateRequestInput{
		TrainerID: 7,
		Start:     start,
		End:       start.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if request.ID != 301 || request.Status != "pending" {
		t.Fatalf("unexpected request: %+v", request)
	}
	if len(notifier.events) != 1 || notifier.events[0].Type != "request_created" {
		t.Fatalf("expected request_created event, got %+v", notifier.events)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAcceptRescheduleRejectsWrongState(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	service := newRequestService(mock, activeTrainer(7), &stubNotifier{})

	start := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM session_requests`).
		WithArgs(int64(301)).
		WillReturnRows(pgxmock.NewRows(requestRowColumns).
			AddRow(requestRow(301, 7, 42, nil, "accepted", start, nil)...))
	mock.ExpectRollback()

	_, err = service.AcceptReschedule(context.Background(), 42, "client", 301)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no mutation may happen on a wrong-state accept: %v", err)
	}
}

func TestAcceptRescheduleRequiresProposalFields(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	service := newRequestService(mock, activeTrainer(7), &stubNotifier{})

	start := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM session_requests`).
		WithArgs(int64(301)).
		WillReturnRows(pgxmock.NewRows(requestRowColumns).
			AddRow(requestRow(301, 7, 42, nil, "reschedule_pending", start, nil)...))
	mock.ExpectRollback()

	_, err = service.AcceptReschedule(context.Background(), 42, "client", 301)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for missing proposal, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAcceptRescheduleForbiddenForOtherClient(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	service := newRequestService(mock, activeTrainer(7), &stubNotifier{})

	start := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Hour)
	proposed := start.Add(2 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM session_requests`).
		WithArgs(int64(301)).
		WillReturnRows(pgxmock.NewRows(requestRowColumns).
			AddRow(requestRow(301, 7, 42, nil, "reschedule_pending", start, &proposed)...))
	mock.ExpectRollback()

	_, err = service.AcceptReschedule(context.Background(), 43, "client", 301)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestAcceptRescheduleConflictLeavesRequestUntouched(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	notifier := &stubNotifier{}
	service := newRequestService(mock, activeTrainer(7), notifier)

	start := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Hour)
	proposed := start.Add(3 * time.Hour)
	sessionID := int64(55)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM session_requests`).
		WithArgs(int64(301)).
		WillReturnRows(pgxmock.NewRows(requestRowColumns).
			AddRow(requestRow(301, 7, 42, &sessionID, "reschedule_pending", start, &proposed)...))
	mock.ExpectExec(`pg_advisory_xact_lock`).
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery(`FROM sessions WHERE id = \$1 FOR UPDATE`).
		WithArgs(sessionID).
		WillReturnRows(pgxmock.NewRows(sessionRowColumns).
			AddRow(sessionID, int64(7), int64(42), start, 60, nil, "scheduled", nil, now, now))
	// Another session already occupies the proposed slot.
	mock.ExpectQuery(`FROM sessions`).
		WithArgs(int64(7), pgxmock.AnyArg(), pgxmock.AnyArg(), sessionID).
		WillReturnRows(pgxmock.NewRows(sessionRowColumns).
			AddRow(int64(56), int64(7), int64(9), proposed.Add(30*time.Minute), 60, nil, "scheduled", nil, now, now))
	mock.ExpectQuery(`FROM day_offs`).
		WithArgs(int64(7), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(dayOffRowColumns))
	mock.ExpectRollback()

	_, err = service.AcceptReschedule(context.Background(), 42, "client", 301)

	var conflictErr *ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if len(conflictErr.Result.Conflicts.Sessions) != 1 || conflictErr.Result.Conflicts.Sessions[0].ID != 56 {
		t.Fatalf("expected conflicting session 56, got %+v", conflictErr.Result.Conflicts)
	}
	if len(notifier.events) != 0 {
		t.Fatalf("no notification expected on conflict, got %+v", notifier.events)
	}
	// No UPDATE was ever expected: a conflicting accept must not touch
	// the session or the request.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAcceptRescheduleMovesSessionAndAcceptsRequest(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	notifier := &stubNotifier{}
	service := newRequestService(mock, activeTrainer(7), notifier)

	start := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Hour)
	proposed := start.Add(3 * time.Hour)
	proposedEnd := proposed.Add(time.Hour)
	sessionID := int64(55)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM session_requests`).
		WithArgs(int64(301)).
		WillReturnRows(pgxmock.NewRows(requestRowColumns).
			AddRow(requestRow(301, 7, 42, &sessionID, "reschedule_pending", start, &proposed)...))
	mock.ExpectExec(`pg_advisory_xact_lock`).
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery(`FROM sessions WHERE id = \$1 FOR UPDATE`).
		WithArgs(sessionID).
		WillReturnRows(pgxmock.NewRows(sessionRowColumns).
			AddRow(sessionID, int64(7), int64(42), start, 60, nil, "scheduled", nil, now, now))
	mock.ExpectQuery(`FROM sessions`).
		WithArgs(int64(7), pgxmock.AnyArg(), pgxmock.AnyArg(), sessionID).
		WillReturnRows(pgxmock.NewRows(sessionRowColumns))
	mock.ExpectQuery(`FROM day_offs`).
		WithArgs(int64(7), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(dayOffRowColumns))
	mock.ExpectQuery(`UPDATE sessions`).
		WithArgs(sessionID, proposed, 60).
		WillReturnRows(pgxmock.NewRows(sessionRowColumns).
			AddRow(sessionID, int64(7), int64(42), proposed, 60, nil, "scheduled", nil, now, now))
	mock.ExpectQuery(`UPDATE session_requests`).
		WithArgs(int64(301), sessionID, proposed, proposedEnd, int64(42)).
		WillReturnRows(pgxmock.NewRows(requestRowColumns).
			AddRow(int64(301), &sessionID, int64(7), int64(42), proposed, proposedEnd,
				(*time.Time)(nil), (*time.Time)(nil), "accepted", (*string)(nil), (*string)(nil), (*string)(nil),
				&now, func() *int64 { v := int64(42); return &v }(), (*time.Time)(nil), (*int64)(nil), now, now))
	mock.ExpectCommit()

	updated, err := service.AcceptReschedule(context.Background(), 42, "client", 301)
	if err != nil {
		t.Fatalf("AcceptReschedule: %v", err)
	}
	if updated.Status != "accepted" {
		t.Fatalf("expected accepted, got %q", updated.Status)
	}
	if updated.ProposedStart != nil || updated.ProposedEnd != nil {
		t.Fatalf("proposal fields must be cleared, got %+v", updated)
	}
	if !updated.RequestedStart.Equal(proposed) {
		t.Fatalf("requested interval must be replaced by the proposal, got %v", updated.RequestedStart)
	}
	if len(notifier.events) != 1 || notifier.events[0].Type != "reschedule_accepted" {
		t.Fatalf("expected reschedule_accepted event, got %+v", notifier.events)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAcceptRescheduleMapsExclusionViolationOnMove(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	notifier := &stubNotifier{}
	service := newRequestService(mock, activeTrainer(7), notifier)

	start := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Hour)
	proposed := start.Add(3 * time.Hour)
	sessionID := int64(55)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM session_requests`).
		WithArgs(int64(301)).
		WillReturnRows(pgxmock.NewRows(requestRowColumns).
			AddRow(requestRow(301, 7, 42, &sessionID, "reschedule_pending", start, &proposed)...))
	mock.ExpectExec(`pg_advisory_xact_lock`).
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery(`FROM sessions WHERE id = \$1 FOR UPDATE`).
		WithArgs(sessionID).
		WillReturnRows(pgxmock.NewRows(sessionRowColumns).
			AddRow(sessionID, int64(7), int64(42), start, 60, nil, "scheduled", nil, now, now))
	mock.ExpectQuery(`FROM sessions`).
		WithArgs(int64(7), pgxmock.AnyArg(), pgxmock.AnyArg(), sessionID).
		WillReturnRows(pgxmock.NewRows(sessionRowColumns))
	mock.ExpectQuery(`FROM day_offs`).
		WithArgs(int64(7), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(dayOffRowColumns))
	// A writer that bypassed the advisory lock committed first; the
	// exclusion constraint rejects the move.
	mock.ExpectQuery(`UPDATE sessions`).
		WithArgs(sessionID, proposed, 60).
		WillReturnError(&pgconn.PgError{Code: "23P01"})
	mock.ExpectRollback()

	_, err = service.AcceptReschedule(context.Background(), 42, "client", 301)

	var conflictErr *ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("expected ConflictError from exclusion violation, got %v", err)
	}
	if len(notifier.events) != 0 {
		t.Fatalf("no notification expected, got %+v", notifier.events)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCancelRejectsNonPendingRequest(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	service := newRequestService(mock, activeTrainer(7), &stubNotifier{})

	start := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM session_requests`).
		WithArgs(int64(301)).
		WillReturnRows(pgxmock.NewRows(requestRowColumns).
			AddRow(requestRow(301, 7, 42, nil, "cancelled", start, nil)...))
	mock.ExpectRollback()

	_, err = service.Cancel(context.Background(), 42, "client", 301)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeclineRescheduleClearsProposal(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	notifier := &stubNotifier{}
	service := newRequestService(mock, activeTrainer(7), notifier)

	start := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Hour)
	proposed := start.Add(2 * time.Hour)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM session_requests`).
		WithArgs(int64(301)).
		WillReturnRows(pgxmock.NewRows(requestRowColumns).
			AddRow(requestRow(301, 7, 42, nil, "reschedule_pending", start, &proposed)...))
	mock.ExpectQuery(`UPDATE session_requests`).
		WithArgs(int64(301), int64(42)).
		WillReturnRows(pgxmock.NewRows(requestRowColumns).
			AddRow(int64(301), (*int64)(nil), int64(7), int64(42), start, start.Add(time.Hour),
				(*time.Time)(nil), (*time.Time)(nil), "reschedule_declined", (*string)(nil), (*string)(nil), (*string)(nil),
				&now, func() *int64 { v := int64(42); return &v }(), (*time.Time)(nil), (*int64)(nil), now, now))
	mock.ExpectCommit()

	updated, err := service.DeclineReschedule(context.Background(), 42, "client", 301)
	if err != nil {
		t.Fatalf("DeclineReschedule: %v", err)
	}
	if updated.Status != "reschedule_declined" || updated.ProposedStart != nil {
		t.Fatalf("unexpected request: %+v", updated)
	}
	if len(notifier.events) != 1 || notifier.events[0].Type != "reschedule_declined" {
		t.Fatalf("expected reschedule_declined event, got %+v", notifier.events)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProposeRescheduleFromAcceptedRequest(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	notifier := &stubNotifier{}
	service := newRequestService(mock, activeTrainer(7), notifier)

	start := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Hour)
	proposed := start.Add(5 * time.Hour)
	proposedEnd := proposed.Add(time.Hour)
	sessionID := int64(55)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM session_requests`).
		WithArgs(int64(301)).
		WillReturnRows(pgxmock.NewRows(requestRowColumns).
			AddRow(requestRow(301, 7, 42, &sessionID, "accepted", start, nil)...))
	mock.ExpectQuery(`UPDATE session_requests`).
		WithArgs(int64(301), proposed, proposedEnd, (*string)(nil), int64(7)).
		WillReturnRows(pgxmock.NewRows(requestRowColumns).
			AddRow(int64(301), &sessionID, int64(7), int64(42), start, start.Add(time.Hour),
				&proposed, &proposedEnd, "reschedule_pending", (*string)(nil), (*string)(nil), (*string)(nil),
				(*time.Time)(nil), (*int64)(nil), &now, func() *int64 { v := int64(7); return &v }(), now, now))
	mock.ExpectCommit()

	updated, err := service.ProposeReschedule(context.Background(), 7, "trainer", 301, proposed, proposedEnd, nil)
	if err != nil {
		t.Fatalf("ProposeReschedule: %v", err)
	}
	if updated.Status != "reschedule_pending" || updated.ProposedStart == nil {
		t.Fatalf("unexpected request: %+v", updated)
	}
	if len(notifier.events) != 1 || notifier.events[0].Type != "reschedule_proposed" {
		t.Fatalf("expected reschedule_proposed event, got %+v", notifier.events)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProposeRescheduleRejectsTerminalStates(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	service := newRequestService(mock, activeTrainer(7), &stubNotifier{})

	start := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM session_requests`).
		WithArgs(int64(301)).
		WillReturnRows(pgxmock.NewRows(requestRowColumns).
			AddRow(requestRow(301, 7, 42, nil, "reschedule_declined", start, nil)...))
	mock.ExpectRollback()

	_, err = service.ProposeReschedule(context.Background(), 7, "trainer", 301, start.Add(time.Hour), start.Add(2*time.Hour), nil)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
