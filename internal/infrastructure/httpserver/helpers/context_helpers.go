package helpers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

func GetUserIDFromContext(c echo.Context) (int64, error) {
	id, ok := GetUserIDRaw(c)
	if !ok {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "invalid user context")
	}
	return id, nil
}

// OptionalUserID returns the authenticated user id, or 0 for anonymous
// requests.
func OptionalUserID(c echo.Context) int64 {
	id, ok := GetUserIDRaw(c)
	if !ok {
		return 0
	}
	return id
}

func GetJWTTokenFromContext(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header format")
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "empty token")
	}
	return token, nil
}

// ClientIdentity derives the rate-limiting identity for a request.
// Authenticated requests are bucketed by user id; anonymous ones by client
// address, preferring the first hop of X-Forwarded-For.
func ClientIdentity(c echo.Context) string {
	if id, ok := GetUserIDRaw(c); ok {
		return "user:" + strconv.FormatInt(id, 10)
	}
	if fwd := c.Request().Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return "ip:" + first
		}
	}
	if addr := c.Request().RemoteAddr; addr != "" {
		host := addr
		if idx := strings.LastIndex(addr, ":"); idx > 0 {
			host = addr[:idx]
		}
		return "ip:" + host
	}
	return "unknown"
}
