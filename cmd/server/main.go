package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/saeid-a/CounselBack/internal/config"
	"github.com/saeid-a/CounselBack/internal/database"
	"github.com/saeid-a/CounselBack/internal/logger"
	"github.com/saeid-a/CounselBack/internal/repository"
	"github.com/saeid-a/CounselBack/internal/routes"
	"github.com/saeid-a/CounselBack/internal/services"
	eventws "github.com/saeid-a/CounselBack/internal/websocket"
	"go.uber.org/zap"
)

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to Database
	if cfg.DBUrl == "" {
		zlog.Fatal("DB_URL is required")
	}
	pool, err := database.Connect(ctx, cfg.DBUrl, zlog)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if cfg.SeedAdmin() {
		userService := services.NewUserService(repository.NewUserRepository(pool), repository.NewAppointmentRepository(pool))
		created, err := userService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminFirstName, cfg.AdminLastName)
		if err != nil {
			zlog.Fatal("failed to seed admin account", zap.Error(err))
		}
		if created {
			zlog.Info("admin account created", zap.String("email", cfg.AdminEmail))
		}
	}

	hub := eventws.NewHub(zlog.Named("events"))
	go hub.Run(ctx)

	// 3. Setup Fiber
	app := fiber.New()

	// Middleware
	app.Use(cors.New())
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})
	if err := routes.RegisterRoutes(app, cfg, pool, hub, zlog); err != nil {
		zlog.Fatal("failed to register routes", zap.Error(err))
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			zlog.Warn("server shutdown", zap.Error(err))
		}
	}()

	// 4. Start Server
	zlog.Info("server starting", zap.String("port", cfg.Port), zap.String("env", cfg.AppEnv))
	if err := app.Listen(":" + cfg.Port); err != nil && !errors.Is(err, context.Canceled) {
		zlog.Fatal("server failed to start", zap.Error(err))
	}
	zlog.Info("server stopped")
}
