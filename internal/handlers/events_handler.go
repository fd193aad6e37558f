package handlers

import (
	"errors"
	"strconv"
	"strings"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	eventws "github.com/saeid-a/CounselBack/internal/websocket"
	"github.com/saeid-a/CounselBack/pkg/utils"
)

type EventsHandler struct {
	hub       *eventws.Hub
	jwtSecret string
}

func NewEventsHandler(hub *eventws.Hub, jwtSecret string) *EventsHandler {
	return &EventsHandler{hub: hub, jwtSecret: jwtSecret}
}

// WebSocketAuth accepts the token as a query parameter because browsers
// cannot set headers on a websocket handshake.
func (h *EventsHandler) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}

	claims, err := h.parseWSClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}
	if _, err := strconv.ParseInt(claims.UserID, 10, 64); err != nil {
		return invalidToken(c)
	}

	c.Locals("user_id", claims.UserID)
	c.Locals("role", claims.Role)
	return c.Next()
}

func (h *EventsHandler) HandleWebSocket(conn *websocket.Conn) {
	userIDStr, _ := conn.Locals("user_id").(string)
	userID, _ := strconv.ParseInt(userIDStr, 10, 64)

	client := eventws.NewClient(h.hub, conn, userID)
	if !h.hub.Register(client) {
		_ = conn.Close()
		return
	}
	go client.WritePump()
	client.ReadPump()
}

func (h *EventsHandler) parseWSClaims(c *fiber.Ctx) (*utils.Claims, error) {
	tokenString := strings.TrimSpace(c.Query("token"))
	if tokenString == "" {
		authHeader := strings.TrimSpace(c.Get("Authorization"))
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
	}

	if tokenString == "" {
		return nil, errors.New("missing token")
	}

	return utils.ValidateToken(tokenString, h.jwtSecret)
}
