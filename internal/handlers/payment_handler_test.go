package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/saeid-a/CounselBack/internal/models"
	"github.com/saeid-a/CounselBack/internal/services"
)

type stubPaymentService struct {
	clientSecret  string
	intentErr     error
	confirmResult *models.Payment
	confirmErr    error
	listResult    []models.PaymentDetail
	listErr       error
	lastRequester services.Requester
	lastAmount    float64
	lastConfirm   services.ConfirmPaymentInput
}

func (s *stubPaymentService) CreateChargeIntent(_ context.Context, requester services.Requester, _ int64, amount float64) (string, error) {
	s.lastRequester = requester
	s.lastAmount = amount
	return s.clientSecret, s.intentErr
}

func (s *stubPaymentService) ConfirmPayment(_ context.Context, requester services.Requester, input services.ConfirmPaymentInput) (*models.Payment, error) {
	s.lastRequester = requester
	s.lastConfirm = input
	return s.confirmResult, s.confirmErr
}

func (s *stubPaymentService) ListForUser(_ context.Context, requester services.Requester) ([]models.PaymentDetail, error) {
	s.lastRequester = requester
	return s.listResult, s.listErr
}

func TestCreatePaymentIntentReturnsClientSecret(t *testing.T) {
	service := &stubPaymentService{clientSecret: "pi_secret"}
	handler := NewPaymentHandler(service, nil)
	app := newAuthedApp("42", "client")
	app.Post("/api/payments/create-payment-intent", handler.CreateIntent)

	resp := doJSON(t, app, http.MethodPost, "/api/payments/create-payment-intent", `{"appointment":3,"amount":80}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var payload map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["clientSecret"] != "pi_secret" {
		t.Fatalf("unexpected payload %v", payload)
	}
	if service.lastAmount != 80 {
		t.Fatalf("expected amount 80, got %v", service.lastAmount)
	}
}

func TestConfirmPaymentValidatesBody(t *testing.T) {
	service := &stubPaymentService{}
	handler := NewPaymentHandler(service, nil)
	app := newAuthedApp("42", "client")
	app.Post("/api/payments/confirm", handler.Confirm)

	resp := doJSON(t, app, http.MethodPost, "/api/payments/confirm", `{"appointment":3,"amount":80,"paymentMethod":"card"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if got := decodeError(t, resp); got != "Transaction ID is required" {
		t.Fatalf("unexpected error %q", got)
	}
}

func TestConfirmPaymentErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "not the client", err: services.ErrForbidden, wantStatus: http.StatusForbidden},
		{name: "unknown appointment", err: services.ErrAppointmentNotFound, wantStatus: http.StatusNotFound},
		{name: "reused transaction", err: services.ErrDuplicatePayment, wantStatus: http.StatusConflict},
		{name: "charge not verified", err: services.ErrPaymentNotVerified, wantStatus: http.StatusPaymentRequired},
		{name: "gateway disabled", err: services.ErrPaymentsUnavailable, wantStatus: http.StatusServiceUnavailable},
		{name: "terminal appointment", err: services.ErrInvalidStateTransition, wantStatus: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewPaymentHandler(&stubPaymentService{confirmErr: tt.err}, nil)
			app := newAuthedApp("42", "client")
			app.Post("/api/payments/confirm", handler.Confirm)

			resp := doJSON(t, app, http.MethodPost, "/api/payments/confirm", `{
				"appointment": 3,
				"amount": 80,
				"paymentMethod": "card",
				"transactionId": "pi_1"
			}`)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, resp.StatusCode)
			}
		})
	}
}

func TestConfirmPaymentReturnsPayment(t *testing.T) {
	service := &stubPaymentService{confirmResult: &models.Payment{ID: 1, Status: models.PaymentCompleted, TransactionID: "pi_1"}}
	handler := NewPaymentHandler(service, nil)
	app := newAuthedApp("42", "client")
	app.Post("/api/payments/confirm", handler.Confirm)

	resp := doJSON(t, app, http.MethodPost, "/api/payments/confirm", `{"appointment":3,"amount":80,"paymentMethod":"card","transactionId":"pi_1"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastConfirm.TransactionID != "pi_1" || service.lastConfirm.AppointmentID != 3 {
		t.Fatalf("unexpected confirm input %+v", service.lastConfirm)
	}
}
