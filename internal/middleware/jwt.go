package middleware // reusable HTTP middleware for the ticket API

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5" // parse and validate caller tokens
	"github.com/labstack/echo/v4"
)

// Context keys set by JWTAuth.
const (
	CtxIdentity = "identity" // caller principal from the "sub" claim
	CtxRole     = "role"     // role claim, e.g. "USER" or "ADMIN"
	CtxToken    = "user"     // the parsed *jwt.Token
)

// JWTAuth returns an Echo middleware that validates a Bearer token signed
// with secret and puts the caller's principal and role into the request
// context. Every ticket operation runs as the identity found here.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			// Only HMAC tokens are accepted; anything else is rejected
			// before the key is handed out.
			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			}, jwt.WithExpirationRequired())
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}
			sub, _ := claims["sub"].(string)
			if sub == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token has no subject"})
			}

			c.Set(CtxToken, tok)
			c.Set(CtxIdentity, sub)
			c.Set(CtxRole, claims["role"])
			return next(c)
		}
	}
}
