package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/perchnet/user-service/internal/core/domain/user"
	"github.com/perchnet/user-service/internal/infrastructure/httpserver/helpers"
)

func (s *Server) register(c echo.Context) error {
	var req user.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	created, err := s.userService.Register(c.Request().Context(), &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) getOwnProfile(c echo.Context) error {
	userID, err := helpers.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	u, err := s.userService.GetUser(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, u)
}

func (s *Server) updateOwnProfile(c echo.Context) error {
	userID, err := helpers.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	var req user.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	updated, err := s.userService.UpdateProfile(c.Request().Context(), userID, &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

// getPublicProfile serves the cached profile summary. Anonymous viewers get
// the summary alone; authenticated viewers also get the relationship flags.
func (s *Server) getPublicProfile(c echo.Context) error {
	username := c.Param("username")
	if username == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username is required")
	}

	profile, err := s.userService.GetPublicProfile(c.Request().Context(), username, helpers.OptionalUserID(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, profile)
}

func (s *Server) searchUsernames(c echo.Context) error {
	query := c.QueryParam("q")
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	usernames, err := s.userService.SearchUsernames(c.Request().Context(), query, limit, offset)
	if err != nil {
		return httpError(err)
	}
	if usernames == nil {
		usernames = []string{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"usernames": usernames})
}
