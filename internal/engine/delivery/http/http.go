// Package http contains the echo handlers of the engine API.
package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"market-edge-engine/internal/apperrors"
)

// httpStatus maps the engine error taxonomy to response codes.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, apperrors.ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrOrderRejected), errors.Is(err, apperrors.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrPlatformUnavailable), errors.Is(err, apperrors.ErrEstimationFailed):
		return http.StatusBadGateway
	case errors.Is(err, apperrors.ErrScanTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c echo.Context, err error) error {
	return c.JSON(httpStatus(err), echo.Map{"error": err.Error()})
}
