package services

import (
	"context"
	"strings"
	"time"

	"github.com/croquete1/Fitness-Pro-sub005/internal/models"
	"github.com/croquete1/Fitness-Pro-sub005/internal/repository"
)

// CalendarService manages the trainer-owned calendar inputs the conflict
// detector reads: day-off blocks and travel locations.
type CalendarService struct {
	dayOffRepo   *repository.DayOffRepository
	locationRepo *repository.LocationRepository
}

func NewCalendarService(
	dayOffRepo *repository.DayOffRepository,
	locationRepo *repository.LocationRepository,
) *CalendarService {
	return &CalendarService{
		dayOffRepo:   dayOffRepo,
		locationRepo: locationRepo,
	}
}

type AddDayOffInput struct {
	Day     time.Time
	StartHM string
	EndHM   string
	Reason  *string
}

func (s *CalendarService) AddDayOff(
	ctx context.Context,
	trainerID int64,
	input AddDayOffInput,
) (*models.DayOff, error) {
	startHM := strings.TrimSpace(input.StartHM)
	endHM := strings.TrimSpace(input.EndHM)
	start, err := time.Parse("15:04", startHM)
	if err != nil {
		return nil, ErrInvalidInput
	}
	end, err := time.Parse("15:04", endHM)
	if err != nil {
		return nil, ErrInvalidInput
	}
	if !start.Before(end) {
		return nil, ErrInvalidInput
	}

	return s.dayOffRepo.Create(ctx, repository.CreateDayOffInput{
		TrainerID: trainerID,
		Day:       input.Day.UTC().Truncate(24 * time.Hour),
		StartHM:   startHM,
		EndHM:     endHM,
		Reason:    input.Reason,
	})
}

func (s *CalendarService) ListDayOffs(ctx context.Context, trainerID int64) ([]models.DayOff, error) {
	return s.dayOffRepo.ListByTrainer(ctx, trainerID)
}

func (s *CalendarService) RemoveDayOff(ctx context.Context, trainerID, dayOffID int64) error {
	return s.dayOffRepo.Delete(ctx, dayOffID, trainerID)
}

func (s *CalendarService) AddLocation(
	ctx context.Context,
	trainerID int64,
	name string,
	travelMinutes int,
) (*models.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || travelMinutes < 0 {
		return nil, ErrInvalidInput
	}
	return s.locationRepo.Create(ctx, trainerID, name, travelMinutes)
}

func (s *CalendarService) ListLocations(ctx context.Context, trainerID int64) ([]models.Location, error) {
	return s.locationRepo.ListByTrainer(ctx, trainerID)
}
