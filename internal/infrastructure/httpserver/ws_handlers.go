package httpserver

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/perchnet/user-service/internal/infrastructure/httpserver/helpers"
	"github.com/perchnet/user-service/internal/infrastructure/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin policy is enforced by the CORS middleware on the rest of
	// the API; the upgrade endpoint accepts any origin here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chatWebsocket upgrades the connection, registers it with the hub and
// keeps cluster presence in step for the connection's lifetime. The token
// may arrive in the Authorization header or, for browser clients, as a
// query parameter.
func (s *Server) chatWebsocket(c echo.Context) error {
	token, err := helpers.GetJWTTokenFromContext(c)
	if err != nil {
		token = c.QueryParam("token")
		if token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
		}
	}

	claims, err := s.authSvc.VerifyAccessToken(token)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := ws.NewClient(claims.UserID, conn, s.hub, s.logger)
	client.Attach()
	if err := s.presence.UserConnected(c.Request().Context(), claims.UserID); err != nil && s.logger != nil {
		s.logger.WithField("user_id", claims.UserID).WithError(err).Warn("failed to record presence on connect")
	}

	go client.WritePump()
	client.ReadPump()

	client.Detach()
	if err := s.presence.UserDisconnected(c.Request().Context(), claims.UserID); err != nil && s.logger != nil {
		s.logger.WithField("user_id", claims.UserID).WithError(err).Warn("failed to record presence on disconnect")
	}
	return nil
}
