package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/CounselBack/internal/models"
	"github.com/saeid-a/CounselBack/internal/payments"
	"github.com/saeid-a/CounselBack/internal/repository"
)

type paymentStore interface {
	RecordConfirmed(ctx context.Context, input repository.ConfirmPaymentInput) (*models.Payment, *models.Appointment, error)
	ListForClient(ctx context.Context, clientID int64) ([]models.PaymentDetail, error)
	ListForCounselor(ctx context.Context, counselorID int64) ([]models.PaymentDetail, error)
}

type PaymentService struct {
	payments     paymentStore
	appointments appointmentReader
	gateway      payments.Gateway
	events       EventPublisher
}

// NewPaymentService builds the payment recorder. A nil gateway disables
// charge creation and confirmation; listing keeps working.
func NewPaymentService(
	paymentStore paymentStore,
	appointments appointmentReader,
	gateway payments.Gateway,
	events EventPublisher,
) *PaymentService {
	return &PaymentService{
		payments:     paymentStore,
		appointments: appointments,
		gateway:      gateway,
		events:       events,
	}
}

type ConfirmPaymentInput struct {
	AppointmentID int64
	Amount        float64
	PaymentMethod string
	TransactionID string
}

func (s *PaymentService) CreateChargeIntent(
	ctx context.Context,
	requester Requester,
	appointmentID int64,
	amount float64,
) (string, error) {
	if amount <= 0 {
		return "", fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if _, err := s.payableAppointment(ctx, requester, appointmentID); err != nil {
		return "", err
	}
	if s.gateway == nil {
		return "", ErrPaymentsUnavailable
	}

	intent, err := s.gateway.CreateChargeIntent(ctx, payments.ToMinorUnits(amount), map[string]string{
		payments.MetadataAppointmentKey: strconv.FormatInt(appointmentID, 10),
	})
	if err != nil {
		return "", fmt.Errorf("create charge intent: %w", err)
	}
	return intent.ClientSecret, nil
}

func (s *PaymentService) ConfirmPayment(
	ctx context.Context,
	requester Requester,
	input ConfirmPaymentInput,
) (*models.Payment, error) {
	input.PaymentMethod = strings.TrimSpace(input.PaymentMethod)
	input.TransactionID = strings.TrimSpace(input.TransactionID)
	switch {
	case input.Amount <= 0:
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	case input.PaymentMethod == "":
		return nil, fmt.Errorf("%w: payment method is required", ErrInvalidInput)
	case input.TransactionID == "":
		return nil, fmt.Errorf("%w: transaction id is required", ErrInvalidInput)
	}

	appointment, err := s.payableAppointment(ctx, requester, input.AppointmentID)
	if err != nil {
		return nil, err
	}
	if err := validateStatusTransition(appointment.Status, models.AppointmentScheduled); err != nil {
		return nil, err
	}
	if s.gateway == nil {
		return nil, ErrPaymentsUnavailable
	}
	if err := s.verifyCharge(ctx, input); err != nil {
		return nil, err
	}

	payment, _, err := s.payments.RecordConfirmed(ctx, repository.ConfirmPaymentInput{
		CreatePaymentInput: repository.CreatePaymentInput{
			AppointmentID: appointment.ID,
			ClientID:      appointment.ClientID,
			CounselorID:   appointment.CounselorID,
			Amount:        input.Amount,
			PaymentMethod: input.PaymentMethod,
			Status:        models.PaymentCompleted,
			TransactionID: input.TransactionID,
		},
		AppointmentStatus: appointment.Status,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateTransaction):
			return nil, ErrDuplicatePayment
		case errors.Is(err, repository.ErrSlotTaken):
			return nil, ErrConflict
		case errors.Is(err, pgx.ErrNoRows):
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}

	publish(s.events, Event{
		Type:          EventPaymentConfirmed,
		AppointmentID: appointment.ID,
		Status:        models.AppointmentScheduled,
		ActorID:       requester.ID,
		Recipients:    []int64{appointment.ClientID, appointment.CounselorID},
	})
	return payment, nil
}

func (s *PaymentService) ListForUser(ctx context.Context, requester Requester) ([]models.PaymentDetail, error) {
	switch requester.Role {
	case models.RoleClient:
		return s.payments.ListForClient(ctx, requester.ID)
	case models.RoleCounselor:
		return s.payments.ListForCounselor(ctx, requester.ID)
	default:
		return nil, ErrForbidden
	}
}

func (s *PaymentService) payableAppointment(
	ctx context.Context,
	requester Requester,
	appointmentID int64,
) (*models.Appointment, error) {
	appointment, err := getAppointment(ctx, s.appointments, appointmentID)
	if err != nil {
		return nil, err
	}
	if appointment.ClientID != requester.ID {
		return nil, ErrForbidden
	}
	return appointment, nil
}

// verifyCharge asks the gateway whether the charge behind the transaction
// id succeeded for this appointment and amount.
func (s *PaymentService) verifyCharge(ctx context.Context, input ConfirmPaymentInput) error {
	charge, err := s.gateway.GetCharge(ctx, input.TransactionID)
	if err != nil {
		if errors.Is(err, payments.ErrChargeNotFound) {
			return ErrPaymentNotVerified
		}
		return fmt.Errorf("get charge: %w", err)
	}

	switch {
	case !charge.Succeeded:
		return fmt.Errorf("%w: charge has not succeeded", ErrPaymentNotVerified)
	case charge.AmountMinor != payments.ToMinorUnits(input.Amount):
		return fmt.Errorf("%w: amount does not match charge", ErrPaymentNotVerified)
	case !strings.EqualFold(charge.Currency, s.gateway.Currency()):
		return fmt.Errorf("%w: charge is in %q", ErrPaymentNotVerified, charge.Currency)
	case charge.Metadata[payments.MetadataAppointmentKey] != strconv.FormatInt(input.AppointmentID, 10):
		return fmt.Errorf("%w: charge belongs to another appointment", ErrPaymentNotVerified)
	}
	return nil
}
