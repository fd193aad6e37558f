package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/CounselBack/internal/services"
	"go.uber.org/zap"
)

// parseRequester reads the identity the auth middleware stored on the
// request.
func parseRequester(c *fiber.Ctx) (services.Requester, error) {
	userIDStr, ok := c.Locals("user_id").(string)
	if !ok {
		return services.Requester{}, strconv.ErrSyntax
	}
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		return services.Requester{}, err
	}
	role, ok := c.Locals("role").(string)
	if !ok {
		return services.Requester{}, strconv.ErrSyntax
	}
	return services.Requester{ID: userID, Role: role}, nil
}

func parseIDParam(c *fiber.Ctx, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func invalidToken(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
}

// internalError logs the cause and answers with a generic message.
func internalError(c *fiber.Ctx, logger *zap.Logger, message string, err error) error {
	logger.Error(message,
		zap.Error(err),
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
	)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": message})
}

func nopIfNil(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
