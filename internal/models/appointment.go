package models

import "time"

const (
	AppointmentScheduled = "scheduled"
	AppointmentCompleted = "completed"
	AppointmentCancelled = "cancelled"
)

const (
	AppointmentTypeMentalHealth = "mental-health"
	AppointmentTypeRelationship = "relationship"
	AppointmentTypeCareer       = "career"
)

const DefaultAppointmentDuration = 60

type Appointment struct {
	ID              int64     `json:"id"`
	ClientID        int64     `json:"client_id"`
	CounselorID     int64     `json:"counselor_id"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	DurationMinutes int       `json:"duration"`
	Type            string    `json:"type"`
	Status          string    `json:"status"`
	MeetingLink     *string   `json:"meeting_link,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Slot returns the appointment's slot in the same form the slot generator
// emits, so booked slots can be subtracted from offered ones.
func (a *Appointment) Slot() string {
	return a.Date + "T" + a.Time + ":00"
}

type Participant struct {
	ID             int64   `json:"id"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Specialization *string `json:"specialization,omitempty"`
}

// AppointmentDetail is an appointment with the counterpart's identity
// attached, as seen by one of its participants.
type AppointmentDetail struct {
	Appointment
	Client    *Participant `json:"client,omitempty"`
	Counselor *Participant `json:"counselor,omitempty"`
}
