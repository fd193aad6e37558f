package routes

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/saeid-a/CounselBack/internal/config"
	"github.com/saeid-a/CounselBack/internal/handlers"
	"github.com/saeid-a/CounselBack/internal/middleware"
	"github.com/saeid-a/CounselBack/internal/models"
	"github.com/saeid-a/CounselBack/internal/payments"
	"github.com/saeid-a/CounselBack/internal/repository"
	"github.com/saeid-a/CounselBack/internal/services"
	eventws "github.com/saeid-a/CounselBack/internal/websocket"
	"go.uber.org/zap"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool, hub *eventws.Hub, logger *zap.Logger) error {
	userRepo := repository.NewUserRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	sessionNoteRepo := repository.NewSessionNoteRepository(db)

	var gateway payments.Gateway
	if cfg.PaymentsEnabled() {
		gateway = payments.NewStripeGateway(cfg.StripeSecretKey, cfg.PaymentCurrency)
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set, payment endpoints will return 503")
	}
	var storageService services.AttachmentStorage
	if cfg.StorageEnabled() {
		storageService = services.NewSupabaseAttachmentStorage(cfg.SupabaseURL, cfg.SupabaseBucket, cfg.SupabaseServiceKey)
	}

	userService := services.NewUserService(userRepo, appointmentRepo)
	slotService := services.NewSlotService(userRepo)
	appointmentService := services.NewAppointmentService(appointmentRepo, userRepo, hub, cfg.MeetingBaseURL)
	paymentService := services.NewPaymentService(paymentRepo, appointmentRepo, gateway, hub)
	sessionNoteService := services.NewSessionNoteService(sessionNoteRepo, appointmentRepo, storageService, hub)

	authHandler := handlers.NewAuthHandler(userService, cfg.JWTSecret, logger)
	userHandler := handlers.NewUserHandler(userService, slotService, logger)
	appointmentHandler := handlers.NewAppointmentHandler(appointmentService, logger)
	paymentHandler := handlers.NewPaymentHandler(paymentService, logger)
	sessionNoteHandler := handlers.NewSessionNoteHandler(sessionNoteService, logger)
	eventsHandler := handlers.NewEventsHandler(hub, cfg.JWTSecret)

	if err := registerDocsRoutes(app, cfg); err != nil {
		return err
	}

	requireAuth := middleware.AuthRequired(cfg.JWTSecret)
	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	users := api.Group("/users")
	users.Get("/counselors", userHandler.ListCounselors)
	users.Get("/counselors/:id", userHandler.GetCounselor)
	users.Post("/counselors/generate-slots", requireAuth, middleware.RoleRequired(models.RoleAdmin), userHandler.GenerateSlots)
	users.Get("/me", requireAuth, userHandler.Me)
	users.Put("/:id", requireAuth, userHandler.UpdateUser)

	appointments := api.Group("/appointments", requireAuth)
	appointments.Post("", appointmentHandler.Book)
	appointments.Get("", appointmentHandler.List)
	appointments.Get("/:id", appointmentHandler.Get)
	appointments.Put("/:id/status", appointmentHandler.UpdateStatus)

	paymentRoutes := api.Group("/payments", requireAuth)
	paymentRoutes.Post("/create-payment-intent", paymentHandler.CreateIntent)
	paymentRoutes.Post("/confirm", paymentHandler.Confirm)
	paymentRoutes.Get("", paymentHandler.List)

	notes := api.Group("/session-notes", requireAuth)
	notes.Post("", sessionNoteHandler.Create)
	notes.Post("/attachments", sessionNoteHandler.UploadAttachment)
	notes.Get("/appointment/:id", sessionNoteHandler.ListForAppointment)
	notes.Get("/:id/attachments/:index", sessionNoteHandler.AttachmentURL)

	api.Use("/events/ws", eventsHandler.WebSocketAuth)
	api.Get("/events/ws", websocket.New(eventsHandler.HandleWebSocket))

	return nil
}
