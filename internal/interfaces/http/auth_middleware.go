package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/agri-dashboard/internal/application/dto"
	"github.com/jhoicas/agri-dashboard/pkg/jwt"
)

// Locals keys y cookie de la sesión del tablero.
const (
	LocalUserID       = "user_id"
	LocalRole         = "role"
	SessionCookieName = "session"
)

// SessionMiddleware verifica la sesión del tablero: token JWT en la cookie
// "session" o en Authorization: Bearer. Con secret vacío no se verifica nada.
func SessionMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return c.Next()
		}
		tokenString := sessionToken(c)
		if tokenString == "" {
			return unauthorized(c, "sesión requerida")
		}
		userID, role, err := jwt.Parse(secret, tokenString)
		if err != nil {
			return unauthorized(c, "sesión inválida o expirada")
		}
		c.Locals(LocalUserID, userID)
		c.Locals(LocalRole, role)
		return c.Next()
	}
}

func sessionToken(c *fiber.Ctx) string {
	if tok := strings.TrimSpace(c.Cookies(SessionCookieName)); tok != "" {
		return tok
	}
	parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.NewErrorResponse(dto.CodeUnauthorized, message, "", time.Now()))
}

// GetUserID devuelve el UserID de la sesión (después de SessionMiddleware).
// Vacío si la verificación de sesión está desactivada.
func GetUserID(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalUserID).(string)
	return s
}

// GetRole devuelve el rol del token de sesión.
func GetRole(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalRole).(string)
	return s
}
