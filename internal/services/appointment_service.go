package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/CounselBack/internal/models"
	"github.com/saeid-a/CounselBack/internal/repository"
)

type appointmentStore interface {
	Create(ctx context.Context, input repository.CreateAppointmentInput) (*models.Appointment, error)
	GetByID(ctx context.Context, appointmentID int64) (*models.Appointment, error)
	HasScheduled(ctx context.Context, counselorID int64, date string, timeLabel string) (bool, error)
	ListForClient(ctx context.Context, clientID int64) ([]models.AppointmentDetail, error)
	ListForCounselor(ctx context.Context, counselorID int64) ([]models.AppointmentDetail, error)
	UpdateStatusIfCurrent(ctx context.Context, appointmentID int64, currentStatus string, nextStatus string) (*models.Appointment, error)
}

type appointmentReader interface {
	GetByID(ctx context.Context, appointmentID int64) (*models.Appointment, error)
}

type userReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// allowedTransitions is the appointment state machine. Completed and
// cancelled are terminal.
var allowedTransitions = map[string]map[string]bool{
	models.AppointmentScheduled: {
		models.AppointmentScheduled: true,
		models.AppointmentCompleted: true,
		models.AppointmentCancelled: true,
	},
}

var appointmentTypes = map[string]struct{}{
	models.AppointmentTypeMentalHealth: {},
	models.AppointmentTypeRelationship: {},
	models.AppointmentTypeCareer:       {},
}

type AppointmentService struct {
	appointments   appointmentStore
	users          userReader
	events         EventPublisher
	meetingBaseURL string
	newToken       func() string
}

func NewAppointmentService(
	appointments appointmentStore,
	users userReader,
	events EventPublisher,
	meetingBaseURL string,
) *AppointmentService {
	return &AppointmentService{
		appointments:   appointments,
		users:          users,
		events:         events,
		meetingBaseURL: strings.TrimRight(meetingBaseURL, "/"),
		newToken:       uuid.NewString,
	}
}

type BookAppointmentInput struct {
	CounselorID     int64
	Date            string
	Time            string
	DurationMinutes int
	Type            string
}

func (s *AppointmentService) Book(
	ctx context.Context,
	requester Requester,
	input BookAppointmentInput,
) (*models.Appointment, error) {
	if requester.Role != models.RoleClient {
		return nil, ErrForbidden
	}

	normalized, err := normalizeBookingInput(input)
	if err != nil {
		return nil, err
	}

	counselor, err := s.users.GetByID(ctx, normalized.CounselorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCounselorNotFound
		}
		return nil, err
	}
	if counselor.Role != models.RoleCounselor {
		return nil, ErrCounselorNotFound
	}

	taken, err := s.appointments.HasScheduled(ctx, normalized.CounselorID, normalized.Date, normalized.Time)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrConflict
	}

	meetingLink := s.meetingBaseURL + "/" + s.newToken()
	appointment, err := s.appointments.Create(ctx, repository.CreateAppointmentInput{
		ClientID:        requester.ID,
		CounselorID:     normalized.CounselorID,
		Date:            normalized.Date,
		Time:            normalized.Time,
		DurationMinutes: normalized.DurationMinutes,
		Type:            normalized.Type,
		MeetingLink:     &meetingLink,
	})
	if err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			return nil, ErrConflict
		}
		return nil, err
	}

	publish(s.events, Event{
		Type:          EventAppointmentBooked,
		AppointmentID: appointment.ID,
		Status:        appointment.Status,
		ActorID:       requester.ID,
		Recipients:    []int64{appointment.ClientID, appointment.CounselorID},
	})
	return appointment, nil
}

func (s *AppointmentService) ListForUser(ctx context.Context, requester Requester) ([]models.AppointmentDetail, error) {
	switch requester.Role {
	case models.RoleClient:
		return s.appointments.ListForClient(ctx, requester.ID)
	case models.RoleCounselor:
		return s.appointments.ListForCounselor(ctx, requester.ID)
	default:
		return nil, ErrForbidden
	}
}

func (s *AppointmentService) Get(ctx context.Context, requester Requester, appointmentID int64) (*models.Appointment, error) {
	appointment, err := s.loadAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !isParticipant(requester, appointment) {
		return nil, ErrForbidden
	}
	return appointment, nil
}

func (s *AppointmentService) SetStatus(
	ctx context.Context,
	requester Requester,
	appointmentID int64,
	requestedStatus string,
) (*models.Appointment, error) {
	appointment, err := s.loadAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !isParticipant(requester, appointment) {
		return nil, ErrForbidden
	}

	nextStatus, err := normalizeRequestedStatus(requestedStatus)
	if err != nil {
		return nil, err
	}
	if err := validateStatusTransition(appointment.Status, nextStatus); err != nil {
		return nil, err
	}

	updated, err := s.appointments.UpdateStatusIfCurrent(ctx, appointmentID, appointment.Status, nextStatus)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, ErrInvalidStateTransition
		case errors.Is(err, repository.ErrSlotTaken):
			return nil, ErrConflict
		}
		return nil, err
	}

	publish(s.events, Event{
		Type:          EventAppointmentStatus,
		AppointmentID: updated.ID,
		Status:        updated.Status,
		ActorID:       requester.ID,
		Recipients:    []int64{updated.ClientID, updated.CounselorID},
	})
	return updated, nil
}

func (s *AppointmentService) loadAppointment(ctx context.Context, appointmentID int64) (*models.Appointment, error) {
	return getAppointment(ctx, s.appointments, appointmentID)
}

func getAppointment(ctx context.Context, reader appointmentReader, appointmentID int64) (*models.Appointment, error) {
	appointment, err := reader.GetByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return appointment, nil
}

func normalizeBookingInput(input BookAppointmentInput) (BookAppointmentInput, error) {
	if input.CounselorID <= 0 {
		return input, fmt.Errorf("%w: counselor is required", ErrInvalidInput)
	}

	date, err := time.Parse(slotDateLayout, strings.TrimSpace(input.Date))
	if err != nil {
		return input, fmt.Errorf("%w: date must use YYYY-MM-DD", ErrInvalidInput)
	}
	input.Date = date.Format(slotDateLayout)

	// Stored as HH:MM; the scheduled-slot index compares the raw text.
	clock, err := time.Parse(slotClockLayout, strings.TrimSpace(input.Time))
	if err != nil {
		return input, fmt.Errorf("%w: time must use HH:MM", ErrInvalidInput)
	}
	input.Time = clock.Format(slotClockLayout)

	if input.DurationMinutes < 0 {
		return input, fmt.Errorf("%w: duration must be positive", ErrInvalidInput)
	}
	if input.DurationMinutes == 0 {
		input.DurationMinutes = models.DefaultAppointmentDuration
	}

	input.Type = strings.ToLower(strings.TrimSpace(input.Type))
	if _, ok := appointmentTypes[input.Type]; !ok {
		return input, fmt.Errorf("%w: type must be mental-health, relationship or career", ErrInvalidInput)
	}
	return input, nil
}

func isParticipant(requester Requester, appointment *models.Appointment) bool {
	return appointment.ClientID == requester.ID || appointment.CounselorID == requester.ID
}

func normalizeRequestedStatus(status string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "schedule", "scheduled":
		return models.AppointmentScheduled, nil
	case "complete", "completed":
		return models.AppointmentCompleted, nil
	case "cancel", "cancelled", "canceled":
		return models.AppointmentCancelled, nil
	default:
		return "", ErrInvalidStatus
	}
}

func validateStatusTransition(current, next string) error {
	if !allowedTransitions[current][next] {
		return ErrInvalidStateTransition
	}
	return nil
}
