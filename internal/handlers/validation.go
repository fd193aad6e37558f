package handlers

import (
	"strings"
)

var allowedAppointmentTypes = map[string]struct{}{
	"mental-health": {},
	"relationship":  {},
	"career":        {},
}

var allowedRegisterRoles = map[string]struct{}{
	"":          {},
	"client":    {},
	"counselor": {},
}

func validateRegisterRequest(req registerRequest) string {
	if strings.TrimSpace(req.Email) == "" {
		return "email is required"
	}
	if len(req.Password) < 8 {
		return "Password must be at least 8 characters"
	}
	if strings.TrimSpace(req.FirstName) == "" {
		return "firstName is required"
	}
	if strings.TrimSpace(req.LastName) == "" {
		return "lastName is required"
	}
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if _, ok := allowedRegisterRoles[role]; !ok {
		return "role must be one of: client, counselor"
	}
	if role == "counselor" && strings.TrimSpace(req.Specialization) == "" {
		return "specialization is required for counselors"
	}
	return ""
}

func validateUpdateUserRequest(req updateUserRequest) string {
	if req.AvailableSlots != nil {
		for _, slot := range req.AvailableSlots {
			if strings.TrimSpace(slot) == "" {
				return "availableSlots must not contain empty values"
			}
		}
	}
	return ""
}

func validateBookAppointmentRequest(req bookAppointmentRequest) string {
	if req.Counselor <= 0 {
		return "Counselor is required"
	}
	if strings.TrimSpace(req.Date) == "" {
		return "Date is required"
	}
	if strings.TrimSpace(req.Time) == "" {
		return "Time is required"
	}
	if req.Duration < 0 {
		return "duration must not be negative"
	}
	if _, ok := allowedAppointmentTypes[strings.ToLower(strings.TrimSpace(req.Type))]; !ok {
		return "type must be one of: mental-health, relationship, career"
	}
	return ""
}

func validatePaymentIntentRequest(req paymentIntentRequest) string {
	if req.Appointment <= 0 {
		return "Appointment ID is required"
	}
	if req.Amount <= 0 {
		return "Amount is required"
	}
	return ""
}

func validateConfirmPaymentRequest(req confirmPaymentRequest) string {
	if msg := validatePaymentIntentRequest(paymentIntentRequest{Appointment: req.Appointment, Amount: req.Amount}); msg != "" {
		return msg
	}
	if strings.TrimSpace(req.PaymentMethod) == "" {
		return "Payment method is required"
	}
	if strings.TrimSpace(req.TransactionID) == "" {
		return "Transaction ID is required"
	}
	return ""
}

func validateSessionNoteRequest(req sessionNoteRequest) string {
	if req.Appointment <= 0 {
		return "Appointment ID is required"
	}
	if strings.TrimSpace(req.Notes) == "" {
		return "Notes are required"
	}
	for _, attachment := range req.Attachments {
		if strings.TrimSpace(attachment) == "" {
			return "attachments must not contain empty values"
		}
	}
	return ""
}
