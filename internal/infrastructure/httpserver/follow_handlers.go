package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/perchnet/user-service/internal/infrastructure/httpserver/helpers"
)

func (s *Server) followUser(c echo.Context) error {
	targetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user ID")
	}
	followerID, err := helpers.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	if err := s.followService.Follow(c.Request().Context(), targetID, followerID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) unfollowUser(c echo.Context) error {
	targetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user ID")
	}
	followerID, err := helpers.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	if err := s.followService.Unfollow(c.Request().Context(), targetID, followerID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) getPresence(c echo.Context) error {
	targetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user ID")
	}

	connected, err := s.presence.IsConnected(c.Request().Context(), targetID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"user_id": targetID, "connected": connected})
}
