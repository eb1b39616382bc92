package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/perchnet/user-service/internal/core/domain/apperror"
)

// httpError maps a service error onto an HTTP response. Unknown errors stay
// opaque to the client.
func httpError(err error) error {
	switch apperror.KindOf(err) {
	case apperror.KindNotFound:
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case apperror.KindConflict:
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case apperror.KindInvalid:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case apperror.KindUnauthorized:
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case apperror.KindUnavailable:
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
