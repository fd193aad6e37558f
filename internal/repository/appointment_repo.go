package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/saeid-a/CounselBack/internal/models"
)

// ErrSlotTaken is returned when the scheduled-slot unique index rejects an
// insert or status change.
var ErrSlotTaken = errors.New("slot already booked")

const uniqueViolation = "23505"

const appointmentColumns = `id, client_id, counselor_id, date, time, duration_min, type, status,
		meeting_link, created_at, updated_at`

type CreateAppointmentInput struct {
	ClientID        int64
	CounselorID     int64
	Date            string
	Time            string
	DurationMinutes int
	Type            string
	MeetingLink     *string
}

type AppointmentRepository struct {
	db DBTX
}

func NewAppointmentRepository(db DBTX) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

func (r *AppointmentRepository) Create(
	ctx context.Context,
	input CreateAppointmentInput,
) (*models.Appointment, error) {
	query := `
		INSERT INTO appointments (client_id, counselor_id, date, time, duration_min, type, status, meeting_link)
		VALUES ($1, $2, $3, $4, $5, $6, 'scheduled', $7)
		RETURNING ` + appointmentColumns

	appointment, err := scanAppointment(r.db.QueryRow(
		ctx,
		query,
		input.ClientID,
		input.CounselorID,
		input.Date,
		input.Time,
		input.DurationMinutes,
		input.Type,
		input.MeetingLink,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return appointment, nil
}

func (r *AppointmentRepository) GetByID(ctx context.Context, appointmentID int64) (*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	return scanAppointment(r.db.QueryRow(ctx, query, appointmentID))
}

func (r *AppointmentRepository) HasScheduled(
	ctx context.Context,
	counselorID int64,
	date string,
	timeLabel string,
) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM appointments
			WHERE counselor_id = $1
			  AND date = $2
			  AND time = $3
			  AND status = 'scheduled'
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, counselorID, date, timeLabel).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ScheduledSlots maps each counselor to the slots currently held by a
// scheduled appointment.
func (r *AppointmentRepository) ScheduledSlots(
	ctx context.Context,
	counselorIDs []int64,
) (map[int64][]string, error) {
	slots := make(map[int64][]string, len(counselorIDs))
	if len(counselorIDs) == 0 {
		return slots, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT counselor_id, date, time
		FROM appointments
		WHERE counselor_id = ANY($1) AND status = 'scheduled'
		ORDER BY date ASC, time ASC
	`, counselorIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var appointment models.Appointment
		if err := rows.Scan(&appointment.CounselorID, &appointment.Date, &appointment.Time); err != nil {
			return nil, err
		}
		slots[appointment.CounselorID] = append(slots[appointment.CounselorID], appointment.Slot())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return slots, nil
}

// ListForClient returns the client's appointments with the counselor's name
// and specialization attached.
func (r *AppointmentRepository) ListForClient(ctx context.Context, clientID int64) ([]models.AppointmentDetail, error) {
	query := `
		SELECT a.id, a.client_id, a.counselor_id, a.date, a.time, a.duration_min, a.type, a.status,
			   a.meeting_link, a.created_at, a.updated_at,
			   u.id, u.first_name, u.last_name, u.specialization
		FROM appointments a
		JOIN users u ON u.id = a.counselor_id
		WHERE a.client_id = $1
		ORDER BY a.date ASC, a.time ASC, a.id ASC
	`
	return r.listDetails(ctx, query, clientID, func(detail *models.AppointmentDetail, p *models.Participant) {
		detail.Counselor = p
	})
}

// ListForCounselor returns the counselor's appointments with the client's
// name attached.
func (r *AppointmentRepository) ListForCounselor(ctx context.Context, counselorID int64) ([]models.AppointmentDetail, error) {
	query := `
		SELECT a.id, a.client_id, a.counselor_id, a.date, a.time, a.duration_min, a.type, a.status,
			   a.meeting_link, a.created_at, a.updated_at,
			   u.id, u.first_name, u.last_name, NULL::text
		FROM appointments a
		JOIN users u ON u.id = a.client_id
		WHERE a.counselor_id = $1
		ORDER BY a.date ASC, a.time ASC, a.id ASC
	`
	return r.listDetails(ctx, query, counselorID, func(detail *models.AppointmentDetail, p *models.Participant) {
		detail.Client = p
	})
}

func (r *AppointmentRepository) listDetails(
	ctx context.Context,
	query string,
	actorID int64,
	attach func(*models.AppointmentDetail, *models.Participant),
) ([]models.AppointmentDetail, error) {
	rows, err := r.db.Query(ctx, query, actorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := make([]models.AppointmentDetail, 0)
	for rows.Next() {
		var detail models.AppointmentDetail
		var participant models.Participant
		if err := rows.Scan(
			&detail.ID,
			&detail.ClientID,
			&detail.CounselorID,
			&detail.Date,
			&detail.Time,
			&detail.DurationMinutes,
			&detail.Type,
			&detail.Status,
			&detail.MeetingLink,
			&detail.CreatedAt,
			&detail.UpdatedAt,
			&participant.ID,
			&participant.FirstName,
			&participant.LastName,
			&participant.Specialization,
		); err != nil {
			return nil, err
		}
		attach(&detail, &participant)
		details = append(details, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

// UpdateStatusIfCurrent only writes when the stored status still equals
// currentStatus; otherwise it returns pgx.ErrNoRows.
func (r *AppointmentRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	appointmentID int64,
	currentStatus string,
	nextStatus string,
) (*models.Appointment, error) {
	query := `
		UPDATE appointments
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + appointmentColumns
	appointment, err := scanAppointment(r.db.QueryRow(ctx, query, appointmentID, currentStatus, nextStatus))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return appointment, nil
}

func scanAppointment(row pgx.Row) (*models.Appointment, error) {
	var appointment models.Appointment
	err := row.Scan(
		&appointment.ID,
		&appointment.ClientID,
		&appointment.CounselorID,
		&appointment.Date,
		&appointment.Time,
		&appointment.DurationMinutes,
		&appointment.Type,
		&appointment.Status,
		&appointment.MeetingLink,
		&appointment.CreatedAt,
		&appointment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &appointment, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
