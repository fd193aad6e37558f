package services

import "errors"

var (
	ErrForbidden              = errors.New("forbidden")
	ErrConflict               = errors.New("conflict")
	ErrInvalidStatus          = errors.New("invalid status")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrInvalidInput           = errors.New("invalid input")
	ErrCounselorNotFound      = errors.New("counselor not found")
	ErrUserNotFound           = errors.New("user not found")
	ErrAppointmentNotFound    = errors.New("appointment not found")
	ErrNoteNotFound           = errors.New("session note not found")
	ErrEmailTaken             = errors.New("email already exists")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrDuplicatePayment       = errors.New("transaction already recorded")
	ErrPaymentNotVerified     = errors.New("payment could not be verified")
	ErrPaymentsUnavailable    = errors.New("payment gateway is not configured")
	ErrStorageUnavailable     = errors.New("storage service is not configured")
)

// Requester is the authenticated identity performing an operation.
type Requester struct {
	ID   int64
	Role string
}
