package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/croquete1/Fitness-Pro-sub005/internal/models"
	"github.com/croquete1/Fitness-Pro-sub005/internal/repository"
	"github.com/croquete1/Fitness-Pro-sub005/internal/scheduling"
	"github.com/croquete1/Fitness-Pro-sub005/internal/services"
)

type SchedulingHandler struct {
	service schedulingApplicationService
}

type schedulingApplicationService interface {
	BookSession(ctx context.Context, input services.BookSessionInput) (*models.Session, error)
	CheckAvailability(ctx context.Context, trainerID int64, start, end time.Time, excludeSessionID int64) (*scheduling.Result, error)
	ListSessions(ctx context.Context, actorID int64, role string, filter repository.SessionListFilter) ([]models.Session, error)
	GetSession(ctx context.Context, actorID int64, role string, sessionID int64) (*models.Session, error)
	UpdateStatus(ctx context.Context, actorID int64, role string, sessionID int64, requestedStatus string) (*models.Session, error)
}

func NewSchedulingHandler(service *services.BookingService) *SchedulingHandler {
	return &SchedulingHandler{service: service}
}

type createSessionRequest struct {
	TrainerID  int64   `json:"trainer_id"`
	ClientID   int64   `json:"client_id"`
	Start      string  `json:"start"`
	End        string  `json:"end"`
	LocationID *int64  `json:"location_id"`
	Notes      *string `json:"notes"`
}

type updateSessionStatusRequest struct {
	Status string `json:"status"`
}

func (h *SchedulingHandler) GetAvailability(c *fiber.Ctx) error {
	if _, err := parseActorID(c); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	trainerID, err := strconv.ParseInt(c.Query("trainer_id"), 10, 64)
	if err != nil || trainerID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "trainer_id is required", "code": "INVALID_BODY"})
	}

	start, err := time.Parse(time.RFC3339, strings.TrimSpace(c.Query("start")))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "start must be a valid RFC3339 timestamp", "code": "INVALID_BODY"})
	}
	end, err := time.Parse(time.RFC3339, strings.TrimSpace(c.Query("end")))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "end must be a valid RFC3339 timestamp", "code": "INVALID_BODY"})
	}

	var excludeSessionID int64
	if raw := strings.TrimSpace(c.Query("exclude_session_id")); raw != "" {
		excludeSessionID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || excludeSessionID <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid exclude_session_id", "code": "INVALID_BODY"})
		}
	}

	result, err := h.service.CheckAvailability(c.Context(), trainerID, start, end, excludeSessionID)
	if err != nil {
		return mapSchedulingError(c, err)
	}

	return c.JSON(fiber.Map{"availability": result})
}

func (h *SchedulingHandler) CreateSession(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || (role != "client" && role != "admin") {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden", "code": "FORBIDDEN"})
	}

	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body", "code": "INVALID_BODY"})
	}

	// Clients book for themselves; an admin must name the client.
	clientID := actorID
	if role == "admin" {
		if req.ClientID <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "client_id is required", "code": "INVALID_BODY"})
		}
		clientID = req.ClientID
	}

	start, err := time.Parse(time.RFC3339, strings.TrimSpace(req.Start))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "start must be a valid RFC3339 timestamp", "code": "INVALID_BODY"})
	}
	end, err := time.Parse(time.RFC3339, strings.TrimSpace(req.End))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "end must be a valid RFC3339 timestamp", "code": "INVALID_BODY"})
	}

	session, err := h.service.BookSession(c.Context(), services.BookSessionInput{
		TrainerID:  req.TrainerID,
		ClientID:   clientID,
		Start:      start,
		End:        end,
		LocationID: req.LocationID,
		Notes:      req.Notes,
	})
	if err != nil {
		return mapSchedulingError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"session": session})
}

func (h *SchedulingHandler) ListSessions(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || (role != "client" && role != "trainer" && role != "admin") {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden", "code": "FORBIDDEN"})
	}

	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	timeframe := strings.TrimSpace(c.Query("timeframe"))
	if timeframe != "" && timeframe != "upcoming" && timeframe != "past" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "timeframe must be upcoming or past", "code": "INVALID_BODY"})
	}

	sessions, err := h.service.ListSessions(c.Context(), actorID, role, repository.SessionListFilter{
		Status:    strings.TrimSpace(c.Query("status")),
		Timeframe: timeframe,
	})
	if err != nil {
		return mapSchedulingError(c, err)
	}

	return c.JSON(fiber.Map{"sessions": sessions})
}

func (h *SchedulingHandler) GetSession(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || (role != "client" && role != "trainer" && role != "admin") {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden", "code": "FORBIDDEN"})
	}

	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sessionID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || sessionID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id", "code": "INVALID_BODY"})
	}

	session, err := h.service.GetSession(c.Context(), actorID, role, sessionID)
	if err != nil {
		return mapSchedulingError(c, err)
	}

	return c.JSON(fiber.Map{"session": session})
}

func (h *SchedulingHandler) UpdateStatus(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || (role != "client" && role != "trainer" && role != "admin") {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden", "code": "FORBIDDEN"})
	}

	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sessionID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || sessionID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id", "code": "INVALID_BODY"})
	}

	var req updateSessionStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body", "code": "INVALID_BODY"})
	}

	session, err := h.service.UpdateStatus(c.Context(), actorID, role, sessionID, req.Status)
	if err != nil {
		return mapSchedulingError(c, err)
	}

	return c.JSON(fiber.Map{"session": session})
}

var errMissingActor = errors.New("missing actor id")

func parseActorID(c *fiber.Ctx) (int64, error) {
	userIDValue := c.Locals("user_id")
	userIDStr, ok := userIDValue.(string)
	if !ok {
		return 0, errMissingActor
	}
	return strconv.ParseInt(userIDStr, 10, 64)
}

func mapSchedulingError(c *fiber.Ctx, err error) error {
	var conflictErr *services.ConflictError
	switch {
	case errors.As(err, &conflictErr):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":     "Requested time conflicts with the trainer's calendar",
			"code":      "CONFLICT",
			"conflicts": conflictErr.Result.Conflicts,
		})
	case errors.Is(err, scheduling.ErrInvalidRange):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "start must be before end", "code": "INVALID_RANGE"})
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrInvalidStatus):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error(), "code": "INVALID_BODY"})
	case errors.Is(err, services.ErrInvalidState):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error(), "code": "INVALID_STATE"})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden", "code": "FORBIDDEN"})
	case errors.Is(err, services.ErrTrainerNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Trainer not found", "code": "INVALID_TRAINER"})
	case errors.Is(err, services.ErrTrainerUnavailable):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Trainer is not accepting bookings", "code": "TRAINER_UNAVAILABLE"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found", "code": "NOT_FOUND"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process scheduling request"})
	}
}
