package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studyroom-reservation/internal/booking"
)

// statusFor maps a booking error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, booking.ErrInvalidInput), errors.Is(err, booking.ErrInvalidDate):
		return http.StatusBadRequest
	case errors.Is(err, booking.ErrSlotTaken), errors.Is(err, booking.ErrQuotaExceeded):
		return http.StatusConflict
	case errors.Is(err, booking.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, booking.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError renders err as {"error": kind, "message": reason}.
func writeError(c echo.Context, err error) error {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	}
	return c.JSON(status, echo.Map{
		"error":   booking.KindName(err),
		"message": booking.Reason(err),
	})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "InvalidInput", "message": msg})
}
