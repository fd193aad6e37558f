package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/CounselBack/internal/models"
	"github.com/saeid-a/CounselBack/internal/services"
	"go.uber.org/zap"
)

type paymentApplicationService interface {
	CreateChargeIntent(ctx context.Context, requester services.Requester, appointmentID int64, amount float64) (string, error)
	ConfirmPayment(ctx context.Context, requester services.Requester, input services.ConfirmPaymentInput) (*models.Payment, error)
	ListForUser(ctx context.Context, requester services.Requester) ([]models.PaymentDetail, error)
}

type PaymentHandler struct {
	service paymentApplicationService
	logger  *zap.Logger
}

func NewPaymentHandler(service paymentApplicationService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{service: service, logger: nopIfNil(logger)}
}

type paymentIntentRequest struct {
	Appointment int64   `json:"appointment"`
	Amount      float64 `json:"amount"`
}

type confirmPaymentRequest struct {
	Appointment   int64   `json:"appointment"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"paymentMethod"`
	TransactionID string  `json:"transactionId"`
}

func (h *PaymentHandler) CreateIntent(c *fiber.Ctx) error {
	requester, err := parseRequester(c)
	if err != nil {
		return invalidToken(c)
	}

	var req paymentIntentRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	if msg := validatePaymentIntentRequest(req); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	clientSecret, err := h.service.CreateChargeIntent(c.Context(), requester, req.Appointment, req.Amount)
	if err != nil {
		return h.mapPaymentError(c, err)
	}
	return c.JSON(fiber.Map{"clientSecret": clientSecret})
}

func (h *PaymentHandler) Confirm(c *fiber.Ctx) error {
	requester, err := parseRequester(c)
	if err != nil {
		return invalidToken(c)
	}

	var req confirmPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	if msg := validateConfirmPaymentRequest(req); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	payment, err := h.service.ConfirmPayment(c.Context(), requester, services.ConfirmPaymentInput{
		AppointmentID: req.Appointment,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		return h.mapPaymentError(c, err)
	}
	return c.JSON(payment)
}

func (h *PaymentHandler) List(c *fiber.Ctx) error {
	requester, err := parseRequester(c)
	if err != nil {
		return invalidToken(c)
	}

	payments, err := h.service.ListForUser(c.Context(), requester)
	if err != nil {
		return h.mapPaymentError(c, err)
	}
	return c.JSON(payments)
}

func (h *PaymentHandler) mapPaymentError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrAppointmentNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Appointment not found"})
	case errors.Is(err, services.ErrDuplicatePayment):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Transaction already recorded"})
	case errors.Is(err, services.ErrConflict):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Time slot already booked"})
	case errors.Is(err, services.ErrInvalidStateTransition):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrPaymentNotVerified):
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{"error": "Payment could not be verified"})
	case errors.Is(err, services.ErrPaymentsUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Payments are not available"})
	default:
		return internalError(c, h.logger, "Failed to process payment request", err)
	}
}
