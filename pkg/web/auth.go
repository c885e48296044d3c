package web

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// subjectKey holds the authenticated subject in fiber locals.
const subjectKey = "auth_subject"

// JWTMiddleware validates HS256 bearer tokens signed with secret.
func JWTMiddleware(secret string) fiber.Handler {
	key := []byte(strings.TrimSpace(secret))

	return func(c *fiber.Ctx) error {
		tokenString, err := extractBearerToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return respondError(c, fiber.StatusUnauthorized, CodeUnauthorized, err.Error())
		}

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return key, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			return respondError(c, fiber.StatusUnauthorized, CodeUnauthorized, "invalid token")
		}

		if claims.Subject == "" {
			return respondError(c, fiber.StatusUnauthorized, CodeUnauthorized, "missing subject")
		}

		c.Locals(subjectKey, claims.Subject)
		return c.Next()
	}
}

func extractBearerToken(header string) (string, error) {
	if header == "" {
		return "", errors.New("authorization header required")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("token missing")
	}
	return token, nil
}
