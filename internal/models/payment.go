package models

import "time"

const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

type Payment struct {
	ID            int64     `json:"id"`
	AppointmentID int64     `json:"appointment_id"`
	ClientID      int64     `json:"client_id"`
	CounselorID   int64     `json:"counselor_id"`
	Amount        float64   `json:"amount"`
	PaymentMethod string    `json:"payment_method"`
	Status        string    `json:"status"`
	TransactionID string    `json:"transaction_id"`
	CreatedAt     time.Time `json:"created_at"`
}

type AppointmentSummary struct {
	ID   int64  `json:"id"`
	Date string `json:"date"`
	Time string `json:"time"`
	Type string `json:"type"`
}

type PaymentDetail struct {
	Payment
	Client      *Participant        `json:"client,omitempty"`
	Counselor   *Participant        `json:"counselor,omitempty"`
	Appointment *AppointmentSummary `json:"appointment,omitempty"`
}
