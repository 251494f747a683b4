package scheduling

import (
	"testing"
	"time"

	"github.com/croquete1/Fitness-Pro-sub005/internal/models"
)

func locPtr(id int64) *int64 { return &id }

func sessionAt(id int64, start time.Time, minutes int, locationID *int64) models.Session {
	return models.Session{
		ID:              id,
		TrainerID:       7,
		ClientID:        42,
		StartsAt:        start,
		DurationMinutes: minutes,
		LocationID:      locationID,
		Status:          "scheduled",
	}
}

func TestTravelBufferRejectsTightGapBetweenLocations(t *testing.T) {
	// Session ends 10:00 at location 1 (20 min travel); candidate starts
	// 10:10 at location 2 (15 min travel). Needs a 20 minute gap, has 10.
	prev := sessionAt(1, at(9, 0), 60, locPtr(1))
	minutes := map[int64]int{1: 20, 2: 15}

	conflicts := CheckTravelBuffers(at(10, 10), at(11, 10), locPtr(2), []models.Session{prev}, minutes)
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 buffer conflict, got %d", len(conflicts))
	}
	if conflicts[0].SessionID != 1 || conflicts[0].Side != "before" {
		t.Fatalf("unexpected conflict: %+v", conflicts[0])
	}
	if conflicts[0].RequiredGapMinutes != 20 || conflicts[0].ActualGapMinutes != 10 {
		t.Fatalf("expected gap 10/20, got %d/%d",
			conflicts[0].ActualGapMinutes, conflicts[0].RequiredGapMinutes)
	}
}

func TestTravelBufferPassesWithSufficientGap(t *testing.T) {
	prev := sessionAt(1, at(9, 0), 60, locPtr(1))
	minutes := map[int64]int{1: 20, 2: 15}

	conflicts := CheckTravelBuffers(at(10, 20), at(11, 20), locPtr(2), []models.Session{prev}, minutes)
	if len(conflicts) != 0 {
		t.Fatalf("expected no buffer conflicts, got %+v", conflicts)
	}
}

func TestTravelBufferChecksFollowingSession(t *testing.T) {
	next := sessionAt(2, at(12, 0), 60, locPtr(3))
	minutes := map[int64]int{2: 10, 3: 25}

	// Candidate ends 11:45, next starts 12:00 at a different location
	// 25 minutes away.
	conflicts := CheckTravelBuffers(at(10, 45), at(11, 45), locPtr(2), []models.Session{next}, minutes)
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 buffer conflict, got %d", len(conflicts))
	}
	if conflicts[0].Side != "after" || conflicts[0].RequiredGapMinutes != 25 {
		t.Fatalf("unexpected conflict: %+v", conflicts[0])
	}
}

func TestTravelBufferSkipsSameLocation(t *testing.T) {
	prev := sessionAt(1, at(9, 0), 60, locPtr(1))
	minutes := map[int64]int{1: 45}

	conflicts := CheckTravelBuffers(at(10, 0), at(11, 0), locPtr(1), []models.Session{prev}, minutes)
	if len(conflicts) != 0 {
		t.Fatalf("back-to-back at the same location must pass, got %+v", conflicts)
	}
}

func TestTravelBufferSkipsUnsetLocations(t *testing.T) {
	prev := sessionAt(1, at(9, 0), 60, nil)
	minutes := map[int64]int{2: 30}

	if conflicts := CheckTravelBuffers(at(10, 5), at(11, 0), locPtr(2), []models.Session{prev}, minutes); len(conflicts) != 0 {
		t.Fatalf("neighbor without location must be skipped, got %+v", conflicts)
	}
	if conflicts := CheckTravelBuffers(at(10, 5), at(11, 0), nil, []models.Session{prev}, minutes); conflicts != nil {
		t.Fatalf("candidate without location must be skipped, got %+v", conflicts)
	}
}

func TestTravelBufferPicksNearestNeighbors(t *testing.T) {
	sessions := []models.Session{
		sessionAt(1, at(7, 0), 60, locPtr(1)),  // earlier, not adjacent
		sessionAt(2, at(9, 0), 60, locPtr(1)),  // prev
		sessionAt(3, at(13, 0), 60, locPtr(1)), // next
		sessionAt(4, at(15, 0), 60, locPtr(1)), // later, not adjacent
	}
	minutes := map[int64]int{1: 30, 2: 5}

	conflicts := CheckTravelBuffers(at(10, 10), at(12, 50), locPtr(2), sessions, minutes)
	if len(conflicts) != 2 {
		t.Fatalf("expected conflicts on both sides, got %+v", conflicts)
	}
	if conflicts[0].SessionID != 2 || conflicts[1].SessionID != 3 {
		t.Fatalf("expected adjacent sessions 2 and 3, got %+v", conflicts)
	}
}
