package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/CounselBack/internal/models"
	"github.com/saeid-a/CounselBack/internal/services"
	"github.com/saeid-a/CounselBack/pkg/utils"
	"go.uber.org/zap"
)

type accountService interface {
	Register(ctx context.Context, input services.RegisterInput) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
}

type AuthHandler struct {
	service   accountService
	jwtSecret string
	logger    *zap.Logger
}

func NewAuthHandler(service accountService, jwtSecret string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service:   service,
		jwtSecret: jwtSecret,
		logger:    nopIfNil(logger),
	}
}

type registerRequest struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	Role           string `json:"role"`
	Specialization string `json:"specialization"`
	Bio            string `json:"bio"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	if msg := validateRegisterRequest(req); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	user, err := h.service.Register(c.Context(), services.RegisterInput{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Password:       req.Password,
		Role:           req.Role,
		Specialization: req.Specialization,
		Bio:            req.Bio,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidInput):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, services.ErrEmailTaken):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Email already exists"})
		default:
			return internalError(c, h.logger, "Failed to create user", err)
		}
	}

	return h.respondWithToken(c, fiber.StatusCreated, user)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	user, err := h.service.Authenticate(c.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidInput):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid email format"})
		case errors.Is(err, services.ErrInvalidCredentials):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid email or password"})
		default:
			return internalError(c, h.logger, "Failed to lookup user", err)
		}
	}

	return h.respondWithToken(c, fiber.StatusOK, user)
}

func (h *AuthHandler) respondWithToken(c *fiber.Ctx, status int, user *models.User) error {
	token, err := utils.GenerateToken(strconv.FormatInt(user.ID, 10), user.Role, h.jwtSecret)
	if err != nil {
		return internalError(c, h.logger, "Failed to generate token", err)
	}

	return c.Status(status).JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}
