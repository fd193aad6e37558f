package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/CounselBack/internal/models"
)

// ErrDuplicateTransaction is returned when a gateway transaction id has
// already been recorded against a payment.
var ErrDuplicateTransaction = errors.New("transaction already recorded")

const paymentColumns = `id, appointment_id, client_id, counselor_id, amount, payment_method, status,
		transaction_id, created_at`

type CreatePaymentInput struct {
	AppointmentID int64
	ClientID      int64
	CounselorID   int64
	Amount        float64
	PaymentMethod string
	Status        string
	TransactionID string
}

// ConfirmPaymentInput records a completed payment and re-affirms the
// appointment. AppointmentStatus is the status the caller observed; the
// appointment write is skipped as a conflict if it changed meanwhile.
type ConfirmPaymentInput struct {
	CreatePaymentInput
	AppointmentStatus string
}

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, input CreatePaymentInput) (*models.Payment, error) {
	query := `
		INSERT INTO payments (appointment_id, client_id, counselor_id, amount, payment_method, status, transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + paymentColumns

	payment, err := scanPayment(r.db.QueryRow(ctx, query,
		input.AppointmentID,
		input.ClientID,
		input.CounselorID,
		input.Amount,
		input.PaymentMethod,
		input.Status,
		input.TransactionID,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateTransaction
		}
		return nil, err
	}
	return payment, nil
}

// RecordConfirmed inserts the payment and sets the appointment back to
// scheduled in a single transaction.
func (r *PaymentRepository) RecordConfirmed(
	ctx context.Context,
	input ConfirmPaymentInput,
) (*models.Payment, *models.Appointment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txPaymentRepo := NewPaymentRepository(tx)
	txAppointmentRepo := NewAppointmentRepository(tx)

	payment, err := txPaymentRepo.Create(ctx, input.CreatePaymentInput)
	if err != nil {
		return nil, nil, err
	}

	appointment, err := txAppointmentRepo.UpdateStatusIfCurrent(
		ctx,
		input.AppointmentID,
		input.AppointmentStatus,
		models.AppointmentScheduled,
	)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return payment, appointment, nil
}

func (r *PaymentRepository) ListForClient(ctx context.Context, clientID int64) ([]models.PaymentDetail, error) {
	query := `
		SELECT p.id, p.appointment_id, p.client_id, p.counselor_id, p.amount, p.payment_method, p.status,
			   p.transaction_id, p.created_at,
			   u.id, u.first_name, u.last_name,
			   a.id, a.date, a.time, a.type
		FROM payments p
		JOIN users u ON u.id = p.counselor_id
		JOIN appointments a ON a.id = p.appointment_id
		WHERE p.client_id = $1
		ORDER BY p.created_at DESC, p.id DESC
	`
	return r.listDetails(ctx, query, clientID, func(detail *models.PaymentDetail, p *models.Participant) {
		detail.Counselor = p
	})
}

func (r *PaymentRepository) ListForCounselor(ctx context.Context, counselorID int64) ([]models.PaymentDetail, error) {
	query := `
		SELECT p.id, p.appointment_id, p.client_id, p.counselor_id, p.amount, p.payment_method, p.status,
			   p.transaction_id, p.created_at,
			   u.id, u.first_name, u.last_name,
			   a.id, a.date, a.time, a.type
		FROM payments p
		JOIN users u ON u.id = p.client_id
		JOIN appointments a ON a.id = p.appointment_id
		WHERE p.counselor_id = $1
		ORDER BY p.created_at DESC, p.id DESC
	`
	return r.listDetails(ctx, query, counselorID, func(detail *models.PaymentDetail, p *models.Participant) {
		detail.Client = p
	})
}

func (r *PaymentRepository) listDetails(
	ctx context.Context,
	query string,
	actorID int64,
	attach func(*models.PaymentDetail, *models.Participant),
) ([]models.PaymentDetail, error) {
	rows, err := r.db.Query(ctx, query, actorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := make([]models.PaymentDetail, 0)
	for rows.Next() {
		var detail models.PaymentDetail
		var participant models.Participant
		var summary models.AppointmentSummary
		if err := rows.Scan(
			&detail.ID,
			&detail.AppointmentID,
			&detail.ClientID,
			&detail.CounselorID,
			&detail.Amount,
			&detail.PaymentMethod,
			&detail.Status,
			&detail.TransactionID,
			&detail.CreatedAt,
			&participant.ID,
			&participant.FirstName,
			&participant.LastName,
			&summary.ID,
			&summary.Date,
			&summary.Time,
			&summary.Type,
		); err != nil {
			return nil, err
		}
		attach(&detail, &participant)
		detail.Appointment = &summary
		details = append(details, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var payment models.Payment
	err := row.Scan(
		&payment.ID,
		&payment.AppointmentID,
		&payment.ClientID,
		&payment.CounselorID,
		&payment.Amount,
		&payment.PaymentMethod,
		&payment.Status,
		&payment.TransactionID,
		&payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}
