package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/CounselBack/internal/models"
	"github.com/saeid-a/CounselBack/internal/repository"
)

type sessionNoteStore interface {
	Create(ctx context.Context, input repository.CreateSessionNoteInput) (*models.SessionNote, error)
	GetByID(ctx context.Context, noteID int64) (*models.SessionNote, error)
	ListByAppointmentID(ctx context.Context, appointmentID int64) ([]models.SessionNote, error)
}

const maxNoteAttachments = 10

type SessionNoteService struct {
	notes        sessionNoteStore
	appointments appointmentReader
	storage      AttachmentStorage
	events       EventPublisher
}

// NewSessionNoteService builds the note log. storage may be nil, in which
// case attachment upload and download are unavailable.
func NewSessionNoteService(
	notes sessionNoteStore,
	appointments appointmentReader,
	storage AttachmentStorage,
	events EventPublisher,
) *SessionNoteService {
	return &SessionNoteService{
		notes:        notes,
		appointments: appointments,
		storage:      storage,
		events:       events,
	}
}

type AppendNoteInput struct {
	AppointmentID int64
	Notes         string
	Attachments   []string
}

func (s *SessionNoteService) Append(
	ctx context.Context,
	requester Requester,
	input AppendNoteInput,
) (*models.SessionNote, error) {
	notes := strings.TrimSpace(input.Notes)
	if notes == "" {
		return nil, fmt.Errorf("%w: notes are required", ErrInvalidInput)
	}
	if len(input.Attachments) > maxNoteAttachments {
		return nil, fmt.Errorf("%w: at most %d attachments", ErrInvalidInput, maxNoteAttachments)
	}
	attachments := make([]string, 0, len(input.Attachments))
	for _, attachment := range input.Attachments {
		attachment = strings.TrimSpace(attachment)
		if attachment == "" {
			return nil, fmt.Errorf("%w: attachment reference is empty", ErrInvalidInput)
		}
		attachments = append(attachments, attachment)
	}

	appointment, err := s.counselorAppointment(ctx, requester, input.AppointmentID)
	if err != nil {
		return nil, err
	}
	for _, attachment := range attachments {
		if !attachmentBelongsTo(attachment, appointment.ID) {
			return nil, fmt.Errorf("%w: attachment %q was not uploaded for this appointment", ErrInvalidInput, attachment)
		}
	}

	note, err := s.notes.Create(ctx, repository.CreateSessionNoteInput{
		AppointmentID: appointment.ID,
		ClientID:      appointment.ClientID,
		CounselorID:   appointment.CounselorID,
		Notes:         notes,
		Attachments:   attachments,
	})
	if err != nil {
		return nil, err
	}

	publish(s.events, Event{
		Type:          EventSessionNoteCreated,
		AppointmentID: appointment.ID,
		ActorID:       requester.ID,
		Recipients:    []int64{appointment.ClientID, appointment.CounselorID},
	})
	return note, nil
}

func (s *SessionNoteService) ListForAppointment(
	ctx context.Context,
	requester Requester,
	appointmentID int64,
) ([]models.SessionNote, error) {
	appointment, err := getAppointment(ctx, s.appointments, appointmentID)
	if err != nil {
		return nil, err
	}
	if !isParticipant(requester, appointment) {
		return nil, ErrForbidden
	}
	return s.notes.ListByAppointmentID(ctx, appointmentID)
}

// UploadAttachment stores a file under the appointment's folder and returns
// the reference to pass as a note attachment.
func (s *SessionNoteService) UploadAttachment(
	ctx context.Context,
	requester Requester,
	appointmentID int64,
	file io.Reader,
	filename string,
) (string, error) {
	if s.storage == nil {
		return "", ErrStorageUnavailable
	}
	if _, err := s.counselorAppointment(ctx, requester, appointmentID); err != nil {
		return "", err
	}

	ref, err := s.storage.Upload(ctx, appointmentID, file, filename)
	if err != nil {
		return "", fmt.Errorf("upload attachment: %w", err)
	}
	return ref, nil
}

// AttachmentURL returns a short-lived link to one of a note's attachments.
func (s *SessionNoteService) AttachmentURL(
	ctx context.Context,
	requester Requester,
	noteID int64,
	index int,
) (string, error) {
	if s.storage == nil {
		return "", ErrStorageUnavailable
	}

	note, err := s.notes.GetByID(ctx, noteID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNoteNotFound
		}
		return "", err
	}
	if note.ClientID != requester.ID && note.CounselorID != requester.ID {
		return "", ErrForbidden
	}
	if index < 0 || index >= len(note.Attachments) {
		return "", ErrNoteNotFound
	}
	ref := note.Attachments[index]
	if !attachmentBelongsTo(ref, note.AppointmentID) {
		return "", ErrForbidden
	}

	signed, err := s.storage.SignedURL(ctx, note.AppointmentID, ref)
	if err != nil {
		return "", fmt.Errorf("sign attachment url: %w", err)
	}
	return signed, nil
}

func (s *SessionNoteService) counselorAppointment(
	ctx context.Context,
	requester Requester,
	appointmentID int64,
) (*models.Appointment, error) {
	appointment, err := getAppointment(ctx, s.appointments, appointmentID)
	if err != nil {
		return nil, err
	}
	if appointment.CounselorID != requester.ID {
		return nil, ErrForbidden
	}
	return appointment, nil
}
