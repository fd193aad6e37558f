package services

import "time"

const (
	EventAppointmentBooked  = "appointment.booked"
	EventAppointmentStatus  = "appointment.status_changed"
	EventPaymentConfirmed   = "payment.confirmed"
	EventSessionNoteCreated = "session_note.created"
)

// Event is pushed to both participants of an appointment.
type Event struct {
	Type          string    `json:"type"`
	AppointmentID int64     `json:"appointment_id"`
	Status        string    `json:"status,omitempty"`
	ActorID       int64     `json:"actor_id"`
	Recipients    []int64   `json:"-"`
	Timestamp     time.Time `json:"timestamp"`
}

type EventPublisher interface {
	Publish(event Event)
}

func publish(publisher EventPublisher, event Event) {
	if publisher == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	publisher.Publish(event)
}
