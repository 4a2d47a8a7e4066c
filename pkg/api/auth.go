package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	echo "github.com/labstack/echo/v5"

	"github.com/studymate/orchestrator/pkg/config"
)

// ctxKeyUserID is where the authenticated user id is stashed on the request
// context.
const ctxKeyUserID = "auth_user_id"

// jwtAuth validates the bearer token against the primary secret, falling
// back to the legacy secret during key rotation. With no secret configured
// the middleware is a pass-through.
func jwtAuth(cfg config.AuthConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			if !cfg.Enabled() {
				return next(c)
			}

			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, &AuthError{Detail: "Missing Authorization header"})
			}
			token := strings.TrimPrefix(header, "Bearer ")

			userID, err := verifyToken(token, cfg)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, &AuthError{Detail: "Invalid or expired token"})
			}
			c.Set(ctxKeyUserID, userID)
			return next(c)
		}
	}
}

// verifyToken returns the subject of a valid HS256 token. The primary secret
// is tried first, then the legacy one.
func verifyToken(token string, cfg config.AuthConfig) (string, error) {
	secrets := []string{cfg.JWTSecret}
	if cfg.LegacyJWTSecret != "" {
		secrets = append(secrets, cfg.LegacyJWTSecret)
	}

	var lastErr error
	for _, secret := range secrets {
		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil {
			lastErr = err
			continue
		}
		if uid, ok := claims["uid"].(string); ok && uid != "" {
			return uid, nil
		}
		if sub, ok := claims["sub"].(string); ok && sub != "" {
			return sub, nil
		}
		return "", errors.New("token carries no user id")
	}
	return "", lastErr
}

// forbidden reports whether the authenticated caller may not act as userID.
// Unauthenticated requests (auth disabled) are never forbidden.
func forbidden(c *echo.Context, userID string) bool {
	tokenUser, _ := c.Get(ctxKeyUserID).(string)
	return tokenUser != "" && tokenUser != userID
}
