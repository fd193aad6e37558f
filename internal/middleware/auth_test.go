package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/CounselBack/pkg/utils"
)

const testSecret = "middleware-secret"

func newProtectedApp() *fiber.App {
	app := fiber.New()
	app.Get("/me", AuthRequired(testSecret), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": c.Locals("user_id"), "role": c.Locals("role")})
	})
	app.Post("/admin", AuthRequired(testSecret), RoleRequired("admin"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func request(t *testing.T, app *fiber.App, method, target, authHeader string) int {
	t.Helper()

	req := httptest.NewRequest(method, target, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestAuthRequired(t *testing.T) {
	app := newProtectedApp()
	token, err := utils.GenerateToken("7", "client", testSecret)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	otherToken, err := utils.GenerateToken("7", "client", "other-secret")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing header", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + token, want: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + otherToken, want: http.StatusUnauthorized},
		{name: "valid", header: "Bearer " + token, want: http.StatusOK},
		{name: "lowercase scheme", header: "bearer " + token, want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := request(t, app, http.MethodGet, "/me", tt.header); got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestRoleRequired(t *testing.T) {
	app := newProtectedApp()
	clientToken, _ := utils.GenerateToken("7", "client", testSecret)
	adminToken, _ := utils.GenerateToken("1", "admin", testSecret)

	if got := request(t, app, http.MethodPost, "/admin", "Bearer "+clientToken); got != http.StatusForbidden {
		t.Fatalf("expected 403 for client, got %d", got)
	}
	if got := request(t, app, http.MethodPost, "/admin", "Bearer "+adminToken); got != http.StatusNoContent {
		t.Fatalf("expected 204 for admin, got %d", got)
	}
}
