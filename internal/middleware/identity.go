package middleware

// identity.go holds the helpers that read the caller out of the Echo
// context. Rate limiting and caching fall back to "guest" for anonymous
// requests; handlers use Identity and get false instead.

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Identity returns the authenticated caller's principal.
func Identity(c echo.Context) (string, bool) {
	id, ok := c.Get(CtxIdentity).(string)
	return id, ok && id != ""
}

// userID extracts a caller key for bucketing. It returns "guest" when no
// caller is authenticated.
func userID(c echo.Context) string {
	if id, ok := Identity(c); ok {
		return id
	}
	if tok, ok := c.Get(CtxToken).(*jwt.Token); ok {
		if cl, ok := tok.Claims.(jwt.MapClaims); ok {
			if v, ok := cl["sub"].(string); ok && v != "" {
				return v
			}
		}
	}
	return "guest"
}
