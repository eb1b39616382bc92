package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/perchnet/user-service/internal/core/ports"
	"github.com/perchnet/user-service/internal/infrastructure/httpserver/helpers"
)

type JWTMiddleware struct {
	authService ports.AuthService
	logger      *logrus.Logger
}

func NewJWTMiddleware(authService ports.AuthService, logger *logrus.Logger) *JWTMiddleware {
	return &JWTMiddleware{authService: authService, logger: logger}
}

// RequireJWT creates middleware that validates JWT tokens and sets user context
func (m *JWTMiddleware) RequireJWT() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := helpers.GetJWTTokenFromContext(c)
			if err != nil {
				return err
			}

			claims, err := m.authService.VerifyAccessToken(tokenString)
			if err != nil {
				if m.logger != nil {
					m.logger.WithFields(logrus.Fields{"ip": c.RealIP(), "path": c.Request().URL.Path, "error": err.Error()}).Warn("JWT validation failed")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			helpers.SetUserID(c, claims.UserID)
			helpers.SetUsername(c, claims.Username)
			return next(c)
		}
	}
}

// OptionalJWT sets user context when a valid token is present and lets the
// request through either way. It runs globally so the rate limiter can
// bucket authenticated traffic by user id.
func (m *JWTMiddleware) OptionalJWT() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := helpers.GetJWTTokenFromContext(c)
			if err != nil {
				return next(c)
			}
			claims, err := m.authService.VerifyAccessToken(tokenString)
			if err != nil {
				return next(c)
			}
			helpers.SetUserID(c, claims.UserID)
			helpers.SetUsername(c, claims.Username)
			return next(c)
		}
	}
}
