package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/croquete1/Fitness-Pro-sub005/internal/models"
	"github.com/croquete1/Fitness-Pro-sub005/internal/services"
)

type CalendarHandler struct {
	service calendarApplicationService
}

type calendarApplicationService interface {
	AddDayOff(ctx context.Context, trainerID int64, input services.AddDayOffInput) (*models.DayOff, error)
	ListDayOffs(ctx context.Context, trainerID int64) ([]models.DayOff, error)
	RemoveDayOff(ctx context.Context, trainerID, dayOffID int64) error
	AddLocation(ctx context.Context, trainerID int64, name string, travelMinutes int) (*models.Location, error)
	ListLocations(ctx context.Context, trainerID int64) ([]models.Location, error)
}

func NewCalendarHandler(service *services.CalendarService) *CalendarHandler {
	return &CalendarHandler{service: service}
}

type createDayOffRequest struct {
	Day    string  `json:"day"`
	Start  string  `json:"start"`
	End    string  `json:"end"`
	Reason *string `json:"reason"`
}

type createLocationRequest struct {
	Name          string `json:"name"`
	TravelMinutes int    `json:"travel_minutes"`
}

func (h *CalendarHandler) CreateDayOff(c *fiber.Ctx) error {
	trainerID, err := requireTrainer(c)
	if err != nil {
		return err
	}

	var req createDayOffRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body", "code": "INVALID_BODY"})
	}

	day, err := time.Parse("2006-01-02", strings.TrimSpace(req.Day))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "day must be a YYYY-MM-DD date", "code": "INVALID_BODY"})
	}

	dayOff, err := h.service.AddDayOff(c.Context(), trainerID, services.AddDayOffInput{
		Day:     day,
		StartHM: req.Start,
		EndHM:   req.End,
		Reason:  req.Reason,
	})
	if err != nil {
		return mapSchedulingError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"day_off": dayOff})
}

func (h *CalendarHandler) ListDayOffs(c *fiber.Ctx) error {
	trainerID, err := requireTrainer(c)
	if err != nil {
		return err
	}

	dayOffs, err := h.service.ListDayOffs(c.Context(), trainerID)
	if err != nil {
		return mapSchedulingError(c, err)
	}

	return c.JSON(fiber.Map{"day_offs": dayOffs})
}

func (h *CalendarHandler) DeleteDayOff(c *fiber.Ctx) error {
	trainerID, err := requireTrainer(c)
	if err != nil {
		return err
	}

	dayOffID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || dayOffID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid day-off id", "code": "INVALID_BODY"})
	}

	if err := h.service.RemoveDayOff(c.Context(), trainerID, dayOffID); err != nil {
		return mapSchedulingError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CalendarHandler) CreateLocation(c *fiber.Ctx) error {
	trainerID, err := requireTrainer(c)
	if err != nil {
		return err
	}

	var req createLocationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body", "code": "INVALID_BODY"})
	}

	location, err := h.service.AddLocation(c.Context(), trainerID, req.Name, req.TravelMinutes)
	if err != nil {
		return mapSchedulingError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"location": location})
}

func (h *CalendarHandler) ListLocations(c *fiber.Ctx) error {
	trainerID, err := requireTrainer(c)
	if err != nil {
		return err
	}

	locations, err := h.service.ListLocations(c.Context(), trainerID)
	if err != nil {
		return mapSchedulingError(c, err)
	}

	return c.JSON(fiber.Map{"locations": locations})
}

func requireTrainer(c *fiber.Ctx) (int64, error) {
	role, ok := c.Locals("role").(string)
	if !ok || role != "trainer" {
		return 0, c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden", "code": "FORBIDDEN"})
	}

	trainerID, err := parseActorID(c)
	if err != nil {
		return 0, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	return trainerID, nil
}
