package middleware // reusable HTTP middleware shared by the route groups

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var errInvalidToken = errors.New("invalid token")

// JWTAuth returns an Echo middleware that validates a Bearer access
// token and injects the token's subject and role claims into the
// request context. The provided secret must match the one used when
// issuing tokens. Handlers behind this middleware read the caller via
// c.Get("user_id") (uint64) and c.Get("role") (string).
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			if err := setIdentity(c, strings.TrimPrefix(auth, "Bearer "), secret); err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
			}
			return next(c)
		}
	}
}

// OptionalJWTAuth is JWTAuth for routes that also serve anonymous
// callers. A missing Authorization header passes through with no
// identity; a present but invalid token is still rejected.
func OptionalJWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if auth == "" {
				return next(c)
			}
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			if err := setIdentity(c, strings.TrimPrefix(auth, "Bearer "), secret); err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
			}
			return next(c)
		}
	}
}

// setIdentity validates the raw token and stores the subject and role
// claims on the context.
func setIdentity(c echo.Context, raw, secret string) error {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, echo.ErrUnauthorized
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return errInvalidToken
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return errInvalidToken
	}

	// JWT numbers decode as float64; normalize the subject to the
	// uint64 id handlers expect.
	sub, ok := claims["sub"].(float64)
	if !ok || sub <= 0 {
		return errInvalidToken
	}
	role, _ := claims["role"].(string)

	c.Set("user_id", uint64(sub))
	c.Set("role", role)
	return nil
}

// UserID reads the authenticated user id stored by JWTAuth. It returns
// 0 when the request is unauthenticated.
func UserID(c echo.Context) uint64 {
	if v, ok := c.Get("user_id").(uint64); ok {
		return v
	}
	return 0
}

// Role reads the authenticated role stored by JWTAuth.
func Role(c echo.Context) string {
	if v, ok := c.Get("role").(string); ok {
		return v
	}
	return ""
}
