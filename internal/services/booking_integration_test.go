package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/saeid-a/CounselBack/internal/models"
	"github.com/saeid-a/CounselBack/internal/payments"
	"github.com/saeid-a/CounselBack/internal/repository"
)

var (
	testDBOnce sync.Once
	testDBPool *pgxpool.Pool
	testDBErr  error
)

func TestBookingAndPaymentFlow(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)

	clientID := createTestAccount(t, ctx, pool, models.RoleClient)
	counselorID := createTestAccount(t, ctx, pool, models.RoleCounselor)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, clientID, counselorID) })

	appointmentRepo := repository.NewAppointmentRepository(pool)
	appointments := NewAppointmentService(appointmentRepo, repository.NewUserRepository(pool), nil, "https://meet.example.com")
	client := Requester{ID: clientID, Role: models.RoleClient}

	date := testDate()
	booked, err := appointments.Book(ctx, client, BookAppointmentInput{
		CounselorID: counselorID,
		Date:        date,
		Time:        "10:00",
		Type:        models.AppointmentTypeMentalHealth,
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if booked.Status != models.AppointmentScheduled || booked.DurationMinutes != 60 {
		t.Fatalf("unexpected appointment %+v", booked)
	}

	gateway := &stubGateway{charge: &payments.Charge{
		ID:          "pi_integration",
		AmountMinor: 7500,
		Succeeded:   true,
		Metadata:    map[string]string{payments.MetadataAppointmentKey: fmt.Sprint(booked.ID)},
	}}
	paymentService := NewPaymentService(repository.NewPaymentRepository(pool), appointmentRepo, gateway, nil)

	transactionID := fmt.Sprintf("pi_integration_%d", time.Now().UnixNano())
	gateway.charge.ID = transactionID
	payment, err := paymentService.ConfirmPayment(ctx, client, ConfirmPaymentInput{
		AppointmentID: booked.ID,
		Amount:        75,
		PaymentMethod: "card",
		TransactionID: transactionID,
	})
	if err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if payment.Status != models.PaymentCompleted || payment.CounselorID != counselorID {
		t.Fatalf("unexpected payment %+v", payment)
	}

	_, err = paymentService.ConfirmPayment(ctx, client, ConfirmPaymentInput{
		AppointmentID: booked.ID,
		Amount:        75,
		PaymentMethod: "card",
		TransactionID: transactionID,
	})
	if !errors.Is(err, ErrDuplicatePayment) {
		t.Fatalf("expected ErrDuplicatePayment, got %v", err)
	}

	clientPayments, err := paymentService.ListForUser(ctx, client)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(clientPayments) != 1 || clientPayments[0].Appointment == nil || clientPayments[0].Appointment.Date != date {
		t.Fatalf("expected one payment with appointment summary, got %+v", clientPayments)
	}
}

func TestBookingRejectsDoubleBookingAtIndex(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)

	firstClient := createTestAccount(t, ctx, pool, models.RoleClient)
	secondClient := createTestAccount(t, ctx, pool, models.RoleClient)
	counselorID := createTestAccount(t, ctx, pool, models.RoleCounselor)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, firstClient, secondClient, counselorID) })

	repo := repository.NewAppointmentRepository(pool)
	date := testDate()
	input := repository.CreateAppointmentInput{
		ClientID:        firstClient,
		CounselorID:     counselorID,
		Date:            date,
		Time:            "14:00",
		DurationMinutes: 60,
		Type:            models.AppointmentTypeCareer,
	}
	if _, err := repo.Create(ctx, input); err != nil {
		t.Fatalf("first Create: %v", err)
	}

	input.ClientID = secondClient
	if _, err := repo.Create(ctx, input); !errors.Is(err, repository.ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken from unique index, got %v", err)
	}

	service := NewAppointmentService(repo, repository.NewUserRepository(pool), nil, "https://meet.example.com")
	if _, err := service.Book(ctx, Requester{ID: secondClient, Role: models.RoleClient}, BookAppointmentInput{
		CounselorID: counselorID,
		Date:        date,
		Time:        "16:00",
		Type:        models.AppointmentTypeCareer,
	}); err != nil {
		t.Fatalf("different slot should succeed: %v", err)
	}

	booked, err := repo.ScheduledSlots(ctx, []int64{counselorID})
	if err != nil {
		t.Fatalf("ScheduledSlots: %v", err)
	}
	if len(booked[counselorID]) != 2 {
		t.Fatalf("expected 2 booked slots, got %v", booked[counselorID])
	}
}

func TestSessionNotesNewestFirst(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)

	clientID := createTestAccount(t, ctx, pool, models.RoleClient)
	counselorID := createTestAccount(t, ctx, pool, models.RoleCounselor)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, clientID, counselorID) })

	appointmentRepo := repository.NewAppointmentRepository(pool)
	appointment, err := appointmentRepo.Create(ctx, repository.CreateAppointmentInput{
		ClientID:        clientID,
		CounselorID:     counselorID,
		Date:            testDate(),
		Time:            "10:00",
		DurationMinutes: 60,
		Type:            models.AppointmentTypeRelationship,
	})
	if err != nil {
		t.Fatalf("Create appointment: %v", err)
	}

	notes := NewSessionNoteService(repository.NewSessionNoteRepository(pool), appointmentRepo, nil, nil)
	counselor := Requester{ID: counselorID, Role: models.RoleCounselor}
	for _, text := range []string{"intake", "follow-up"} {
		if _, err := notes.Append(ctx, counselor, AppendNoteInput{AppointmentID: appointment.ID, Notes: text}); err != nil {
			t.Fatalf("Append %s: %v", text, err)
		}
	}

	listed, err := notes.ListForAppointment(ctx, Requester{ID: clientID, Role: models.RoleClient}, appointment.ID)
	if err != nil {
		t.Fatalf("ListForAppointment: %v", err)
	}
	if len(listed) != 2 || listed[0].Notes != "follow-up" {
		t.Fatalf("expected newest note first, got %+v", listed)
	}
}

func integrationTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	testDBOnce.Do(func() {
		_ = godotenv.Load(".env")
		_ = godotenv.Load(filepath.Join("..", "..", ".env"))

		dbURL := os.Getenv("DB_URL")
		if dbURL == "" {
			testDBErr = fmt.Errorf("DB_URL is not set")
			return
		}

		cfg, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			testDBErr = err
			return
		}

		testDBPool, testDBErr = pgxpool.NewWithConfig(context.Background(), cfg)
		if testDBErr != nil {
			return
		}
		testDBErr = testDBPool.Ping(context.Background())
	})

	if testDBErr != nil {
		t.Skipf("skipping integration test: %v", testDBErr)
	}
	return testDBPool
}

// testDate picks a far-future date unique to the run so parallel runs do not
// collide on the scheduled-slot index.
func testDate() string {
	offset := int(time.Now().UnixNano() % 3000)
	return time.Date(2040, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset).Format(slotDateLayout)
}

func createTestAccount(t *testing.T, ctx context.Context, pool *pgxpool.Pool, role string) int64 {
	t.Helper()

	user := &models.User{
		FirstName:    "Test",
		LastName:     role,
		Email:        fmt.Sprintf("booking-test-%s-%d@example.com", role, time.Now().UnixNano()),
		PasswordHash: "test-hash",
		Role:         role,
	}
	if role == models.RoleCounselor {
		specialization := "mental-health"
		user.Specialization = &specialization
	}
	if err := repository.NewUserRepository(pool).CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser(%s): %v", role, err)
	}
	return user.ID
}

func cleanupTestUsers(t *testing.T, ctx context.Context, pool *pgxpool.Pool, userIDs ...int64) {
	t.Helper()

	if len(userIDs) == 0 {
		return
	}

	if _, err := pool.Exec(ctx, "DELETE FROM session_notes WHERE client_id = ANY($1) OR counselor_id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup session notes: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM payments WHERE client_id = ANY($1) OR counselor_id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup payments: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM appointments WHERE client_id = ANY($1) OR counselor_id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup appointments: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM users WHERE id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup users: %v", err)
	}
}
