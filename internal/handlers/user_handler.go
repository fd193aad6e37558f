package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/CounselBack/internal/models"
	"github.com/saeid-a/CounselBack/internal/services"
	"go.uber.org/zap"
)

type userApplicationService interface {
	GetMe(ctx context.Context, requester services.Requester) (*models.User, error)
	ListCounselors(ctx context.Context, specialization string) ([]models.CounselorListing, error)
	GetCounselor(ctx context.Context, counselorID int64) (*models.CounselorListing, error)
	UpdateUser(ctx context.Context, requester services.Requester, userID int64, input services.UpdateUserInput) (*models.User, error)
}

type slotRefresher interface {
	RefreshAll(ctx context.Context, requester services.Requester) (int, error)
}

type UserHandler struct {
	service userApplicationService
	slots   slotRefresher
	logger  *zap.Logger
}

func NewUserHandler(service userApplicationService, slots slotRefresher, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		slots:   slots,
		logger:  nopIfNil(logger),
	}
}

type updateUserRequest struct {
	FirstName      string   `json:"firstName"`
	LastName       string   `json:"lastName"`
	Bio            string   `json:"bio"`
	Specialization string   `json:"specialization"`
	AvailableSlots []string `json:"availableSlots"`
}

func (h *UserHandler) Me(c *fiber.Ctx) error {
	requester, err := parseRequester(c)
	if err != nil {
		return invalidToken(c)
	}

	user, err := h.service.GetMe(c.Context(), requester)
	if err != nil {
		return h.mapUserError(c, err)
	}
	return c.JSON(user)
}

func (h *UserHandler) ListCounselors(c *fiber.Ctx) error {
	counselors, err := h.service.ListCounselors(c.Context(), strings.TrimSpace(c.Query("specialization")))
	if err != nil {
		return internalError(c, h.logger, "Failed to fetch counselors", err)
	}
	return c.JSON(counselors)
}

func (h *UserHandler) GetCounselor(c *fiber.Ctx) error {
	counselorID, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid counselor id"})
	}

	counselor, err := h.service.GetCounselor(c.Context(), counselorID)
	if err != nil {
		return h.mapUserError(c, err)
	}
	return c.JSON(counselor)
}

func (h *UserHandler) UpdateUser(c *fiber.Ctx) error {
	requester, err := parseRequester(c)
	if err != nil {
		return invalidToken(c)
	}

	userID, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user id"})
	}

	var req updateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	if msg := validateUpdateUserRequest(req); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	user, err := h.service.UpdateUser(c.Context(), requester, userID, services.UpdateUserInput{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Bio:            req.Bio,
		Specialization: req.Specialization,
		AvailableSlots: req.AvailableSlots,
	})
	if err != nil {
		return h.mapUserError(c, err)
	}
	return c.JSON(user)
}

func (h *UserHandler) GenerateSlots(c *fiber.Ctx) error {
	requester, err := parseRequester(c)
	if err != nil {
		return invalidToken(c)
	}

	updated, err := h.slots.RefreshAll(c.Context(), requester)
	if err != nil {
		return h.mapUserError(c, err)
	}
	return c.JSON(fiber.Map{
		"msg":     "Slots generated for all counselors",
		"updated": updated,
	})
}

func (h *UserHandler) mapUserError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrCounselorNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Counselor not found"})
	case errors.Is(err, services.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	default:
		return internalError(c, h.logger, "Failed to process user request", err)
	}
}
