package repository

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
)

var availabilitySessionColumns = []string{
	"id", "trainer_id", "client_id", "starts_at", "duration_min",
	"location_id", "status", "notes", "created_at", "updated_at",
}

var availabilityDayOffColumns = []string{
	"id", "trainer_id", "day", "start_hm", "end_hm", "reason", "created_at",
}

func TestDayOffsReducesBoundsToDatesInUTC(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewAvailabilityRepository(mock)

	from := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	now := time.Now().UTC()

	// The date reduction must be pinned to UTC; a bare ::date cast takes
	// the session TimeZone and a server west of UTC would shift the upper
	// bound back a day, dropping blocks on the window's end day.
	mock.ExpectQuery(`day >= \(\$2 AT TIME ZONE 'UTC'\)::date\s+AND day < \(\$3 AT TIME ZONE 'UTC'\)::date`).
		WithArgs(int64(7), from, to).
		WillReturnRows(pgxmock.NewRows(availabilityDayOffColumns).
			AddRow(int64(17), int64(7), from, "13:00", "14:00", (*string)(nil), now))

	dayOffs, err := repo.DayOffs(context.Background(), 7, from, to)
	if err != nil {
		t.Fatalf("DayOffs: %v", err)
	}
	if len(dayOffs) != 1 || dayOffs[0].StartHM != "13:00" {
		t.Fatalf("unexpected day-offs: %+v", dayOffs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDaySessionsForwardsWindowAndExclusion(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewAvailabilityRepository(mock)

	from := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM sessions`).
		WithArgs(int64(7), from, to, int64(5)).
		WillReturnRows(pgxmock.NewRows(availabilitySessionColumns).
			AddRow(int64(11), int64(7), int64(42), from.Add(9*time.Hour), 60, nil, "scheduled", nil, now, now))

	sessions, err := repo.DaySessions(context.Background(), 7, from, to, 5)
	if err != nil {
		t.Fatalf("DaySessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != 11 {
		t.Fatalf("unexpected sessions: %+v", sessions)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
