package repository

import (
	"context"

	"github.com/saeid-a/CounselBack/internal/models"
)

type CreateSessionNoteInput struct {
	AppointmentID int64
	ClientID      int64
	CounselorID   int64
	Notes         string
	Attachments   []string
}

type SessionNoteRepository struct {
	db DBTX
}

func NewSessionNoteRepository(db DBTX) *SessionNoteRepository {
	return &SessionNoteRepository{db: db}
}

func (r *SessionNoteRepository) Create(ctx context.Context, input CreateSessionNoteInput) (*models.SessionNote, error) {
	attachments := input.Attachments
	if attachments == nil {
		attachments = []string{}
	}

	query := `
		INSERT INTO session_notes (appointment_id, client_id, counselor_id, notes, attachments)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, appointment_id, client_id, counselor_id, notes, attachments, created_at
	`
	var note models.SessionNote
	err := r.db.QueryRow(ctx, query,
		input.AppointmentID,
		input.ClientID,
		input.CounselorID,
		input.Notes,
		attachments,
	).Scan(
		&note.ID,
		&note.AppointmentID,
		&note.ClientID,
		&note.CounselorID,
		&note.Notes,
		&note.Attachments,
		&note.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &note, nil
}

func (r *SessionNoteRepository) GetByID(ctx context.Context, noteID int64) (*models.SessionNote, error) {
	query := `
		SELECT id, appointment_id, client_id, counselor_id, notes, attachments, created_at
		FROM session_notes
		WHERE id = $1
	`
	var note models.SessionNote
	err := r.db.QueryRow(ctx, query, noteID).Scan(
		&note.ID,
		&note.AppointmentID,
		&note.ClientID,
		&note.CounselorID,
		&note.Notes,
		&note.Attachments,
		&note.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &note, nil
}

// ListByAppointmentID returns the appointment's notes, newest first.
func (r *SessionNoteRepository) ListByAppointmentID(ctx context.Context, appointmentID int64) ([]models.SessionNote, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, appointment_id, client_id, counselor_id, notes, attachments, created_at
		FROM session_notes
		WHERE appointment_id = $1
		ORDER BY created_at DESC, id DESC
	`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := make([]models.SessionNote, 0)
	for rows.Next() {
		var note models.SessionNote
		if err := rows.Scan(
			&note.ID,
			&note.AppointmentID,
			&note.ClientID,
			&note.CounselorID,
			&note.Notes,
			&note.Attachments,
			&note.CreatedAt,
		); err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notes, nil
}
