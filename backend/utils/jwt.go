package utils

import (
	"fmt"
	"strings"
	"time"

	"mathboard/backend/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

// GenerateJWTToken signs a token the way the identity provider does. The
// service itself only verifies tokens; this is used by tests and local tooling.
func GenerateJWTToken(userID string, cfg *config.Config) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 72)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// ExtractUserIDFromToken verifies the Authorization header and returns the
// caller's user ID from the "sub" claim, or "user_id" for older tokens.
func ExtractUserIDFromToken(c *fiber.Ctx, cfg *config.Config) (string, error) {
	tokenString := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if tokenString == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "Missing authorization token")
	}
	if len(tokenString) > 7 && strings.EqualFold(tokenString[:7], "bearer ") {
		tokenString = strings.TrimSpace(tokenString[7:])
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})

	if err != nil {
		return "", fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
	}

	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub, nil
	}
	switch id := claims["user_id"].(type) {
	case string:
		if id != "" {
			return id, nil
		}
	case float64:
		return fmt.Sprintf("%d", int64(id)), nil
	}

	return "", fiber.NewError(fiber.StatusUnauthorized, "Invalid user ID in token")
}
