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

type RequestHandler struct {
	service requestApplicationService
}

type requestApplicationService interface {
	CreateRequest(ctx context.Context, clientID int64, input services.CreateRequestInput) (*models.SessionRequest, error)
	GetRequest(ctx context.Context, actorID int64, role string, requestID int64) (*models.SessionRequest, error)
	ListRequests(ctx context.Context, actorID int64, role string, status string, limit, offset int) ([]models.SessionRequest, int, error)
	Cancel(ctx context.Context, actorID int64, role string, requestID int64) (*models.SessionRequest, error)
	Accept(ctx context.Context, actorID int64, role string, requestID int64) (*models.SessionRequest, error)
	ProposeReschedule(ctx context.Context, actorID int64, role string, requestID int64, proposedStart, proposedEnd time.Time, note *string) (*models.SessionRequest, error)
	AcceptReschedule(ctx context.Context, actorID int64, role string, requestID int64) (*models.SessionRequest, error)
	DeclineReschedule(ctx context.Context, actorID int64, role string, requestID int64) (*models.SessionRequest, error)
}

func NewRequestHandler(service *services.RequestService) *RequestHandler {
	return &RequestHandler{service: service}
}

type createRequestRequest struct {
	TrainerID int64   `json:"trainer_id"`
	Start     string  `json:"start"`
	End       string  `json:"end"`
	Message   *string `json:"message"`
}

type updateRequestRequest struct {
	Action        string  `json:"action"`
	ProposedStart string  `json:"proposed_start"`
	ProposedEnd   string  `json:"proposed_end"`
	Note          *string `json:"note"`
}

func (h *RequestHandler) CreateRequest(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "client" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden", "code": "FORBIDDEN"})
	}

	clientID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body", "code": "INVALID_BODY"})
	}

	start, err := time.Parse(time.RFC3339, strings.TrimSpace(req.Start))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "start must be a valid RFC3339 timestamp", "code": "INVALID_BODY"})
	}
	end, err := time.Parse(time.RFC3339, strings.TrimSpace(req.End))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "end must be a valid RFC3339 timestamp", "code": "INVALID_BODY"})
	}

	request, err := h.service.CreateRequest(c.Context(), clientID, services.CreateRequestInput{
		TrainerID: req.TrainerID,
		Start:     start,
		End:       end,
		Message:   req.Message,
	})
	if err != nil {
		return mapSchedulingError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"request": request})
}

func (h *RequestHandler) ListRequests(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || (role != "client" && role != "trainer" && role != "admin") {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden", "code": "FORBIDDEN"})
	}

	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	requests, total, err := h.service.ListRequests(
		c.Context(),
		actorID,
		role,
		strings.TrimSpace(c.Query("status")),
		limit,
		(page-1)*limit,
	)
	if err != nil {
		return mapSchedulingError(c, err)
	}

	return c.JSON(fiber.Map{
		"requests":   requests,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func (h *RequestHandler) GetRequest(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || (role != "client" && role != "trainer" && role != "admin") {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden", "code": "FORBIDDEN"})
	}

	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	requestID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || requestID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request id", "code": "INVALID_BODY"})
	}

	request, err := h.service.GetRequest(c.Context(), actorID, role, requestID)
	if err != nil {
		return mapSchedulingError(c, err)
	}

	return c.JSON(fiber.Map{"request": request})
}

// UpdateRequest drives the state machine. The body names the transition:
// cancel, accept, propose_reschedule, accept_reschedule or
// decline_reschedule.
func (h *RequestHandler) UpdateRequest(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || (role != "client" && role != "trainer" && role != "admin") {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden", "code": "FORBIDDEN"})
	}

	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	requestID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || requestID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request id", "code": "INVALID_BODY"})
	}

	var req updateRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body", "code": "INVALID_BODY"})
	}

	var request *models.SessionRequest
	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "cancel":
		request, err = h.service.Cancel(c.Context(), actorID, role, requestID)
	case "accept":
		request, err = h.service.Accept(c.Context(), actorID, role, requestID)
	case "propose_reschedule":
		var start, end time.Time
		start, err = time.Parse(time.RFC3339, strings.TrimSpace(req.ProposedStart))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "proposed_start must be a valid RFC3339 timestamp", "code": "INVALID_BODY"})
		}
		end, err = time.Parse(time.RFC3339, strings.TrimSpace(req.ProposedEnd))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "proposed_end must be a valid RFC3339 timestamp", "code": "INVALID_BODY"})
		}
		request, err = h.service.ProposeReschedule(c.Context(), actorID, role, requestID, start, end, req.Note)
	case "accept_reschedule":
		request, err = h.service.AcceptReschedule(c.Context(), actorID, role, requestID)
	case "decline_reschedule":
		request, err = h.service.DeclineReschedule(c.Context(), actorID, role, requestID)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown action", "code": "INVALID_BODY"})
	}
	if err != nil {
		return mapSchedulingError(c, err)
	}

	return c.JSON(fiber.Map{"request": request})
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
