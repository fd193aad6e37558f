package models

import "time"

type SessionNote struct {
	ID            int64     `json:"id"`
	AppointmentID int64     `json:"appointment_id"`
	ClientID      int64     `json:"client_id"`
	CounselorID   int64     `json:"counselor_id"`
	Notes         string    `json:"notes"`
	Attachments   []string  `json:"attachments"`
	CreatedAt     time.Time `json:"created_at"`
}
