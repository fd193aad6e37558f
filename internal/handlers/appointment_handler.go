package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/CounselBack/internal/models"
	"github.com/saeid-a/CounselBack/internal/services"
	"go.uber.org/zap"
)

type appointmentApplicationService interface {
	Book(ctx context.Context, requester services.Requester, input services.BookAppointmentInput) (*models.Appointment, error)
	ListForUser(ctx context.Context, requester services.Requester) ([]models.AppointmentDetail, error)
	Get(ctx context.Context, requester services.Requester, appointmentID int64) (*models.Appointment, error)
	SetStatus(ctx context.Context, requester services.Requester, appointmentID int64, requestedStatus string) (*models.Appointment, error)
}

type AppointmentHandler struct {
	service appointmentApplicationService
	logger  *zap.Logger
}

func NewAppointmentHandler(service appointmentApplicationService, logger *zap.Logger) *AppointmentHandler {
	return &AppointmentHandler{service: service, logger: nopIfNil(logger)}
}

type bookAppointmentRequest struct {
	Counselor int64  `json:"counselor"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Duration  int    `json:"duration"`
	Type      string `json:"type"`
}

type updateAppointmentStatusRequest struct {
	Status string `json:"status"`
}

func (h *AppointmentHandler) Book(c *fiber.Ctx) error {
	requester, err := parseRequester(c)
	if err != nil {
		return invalidToken(c)
	}

	var req bookAppointmentRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	if msg := validateBookAppointmentRequest(req); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	appointment, err := h.service.Book(c.Context(), requester, services.BookAppointmentInput{
		CounselorID:     req.Counselor,
		Date:            req.Date,
		Time:            req.Time,
		DurationMinutes: req.Duration,
		Type:            req.Type,
	})
	if err != nil {
		return h.mapAppointmentError(c, err)
	}
	return c.JSON(appointment)
}

func (h *AppointmentHandler) List(c *fiber.Ctx) error {
	requester, err := parseRequester(c)
	if err != nil {
		return invalidToken(c)
	}

	appointments, err := h.service.ListForUser(c.Context(), requester)
	if err != nil {
		return h.mapAppointmentError(c, err)
	}
	return c.JSON(appointments)
}

func (h *AppointmentHandler) Get(c *fiber.Ctx) error {
	requester, err := parseRequester(c)
	if err != nil {
		return invalidToken(c)
	}

	appointmentID, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid appointment id"})
	}

	appointment, err := h.service.Get(c.Context(), requester, appointmentID)
	if err != nil {
		return h.mapAppointmentError(c, err)
	}
	return c.JSON(appointment)
}

func (h *AppointmentHandler) UpdateStatus(c *fiber.Ctx) error {
	requester, err := parseRequester(c)
	if err != nil {
		return invalidToken(c)
	}

	appointmentID, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid appointment id"})
	}

	var req updateAppointmentStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	appointment, err := h.service.SetStatus(c.Context(), requester, appointmentID, req.Status)
	if err != nil {
		return h.mapAppointmentError(c, err)
	}
	return c.JSON(appointment)
}

func (h *AppointmentHandler) mapAppointmentError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrInvalidStatus):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrConflict):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Time slot already booked"})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidStateTransition):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrCounselorNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Counselor not found"})
	case errors.Is(err, services.ErrAppointmentNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Appointment not found"})
	default:
		return internalError(c, h.logger, "Failed to process appointment request", err)
	}
}
