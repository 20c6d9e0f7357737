package handler

import (
	"errors"   // for errors.Is / errors.As comparisons
	"net/http" // HTTP status codes
	"strconv"  // parsing path parameters

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/cinema-booking-engine/internal/lockstore"
	"github.com/iliyamo/cinema-booking-engine/internal/repository"
	"github.com/iliyamo/cinema-booking-engine/internal/service"
)

// writeServiceError maps service and repository errors onto HTTP
// responses.  Contention gets 409 with enough detail to recover,
// expiry gets 410, gateway trouble gets 502, and anything unmapped is a
// plain 500 so internals never leak.
func writeServiceError(c echo.Context, err error) error {
	var conflict *service.SeatConflictError
	if errors.As(err, &conflict) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":         "seats already taken",
			"showtime_id":   conflict.ShowtimeID,
			"seat_unit_ids": conflict.SeatUnitIDs,
		})
	}

	switch {
	case errors.Is(err, repository.ErrShowtimeNotFound),
		errors.Is(err, repository.ErrSeatNotFound),
		errors.Is(err, repository.ErrLockNotFound),
		errors.Is(err, repository.ErrBookingNotFound),
		errors.Is(err, repository.ErrPaymentNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})

	case errors.Is(err, service.ErrEmptySelection),
		errors.Is(err, service.ErrSelectionTooLarge),
		errors.Is(err, service.ErrTicketTypeNotActive),
		errors.Is(err, service.ErrInvalidPaymentMethod),
		errors.Is(err, service.ErrInvalidPromotion),
		errors.Is(err, service.ErrReasonRequired):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})

	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})

	case errors.Is(err, service.ErrDuplicateLockAttempt),
		errors.Is(err, service.ErrPaymentAlreadySettled),
		errors.Is(err, service.ErrNotEligibleForRefund):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})

	case errors.Is(err, service.ErrLockExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": err.Error()})

	case errors.Is(err, service.ErrPaymentInitiationFailed),
		errors.Is(err, service.ErrGatewayRefundFailed),
		errors.Is(err, service.ErrPaymentNotConfirmed):
		return c.JSON(http.StatusBadGateway, echo.Map{"error": err.Error()})

	case errors.Is(err, lockstore.ErrUnavailable):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "lock store unavailable"})
	}

	c.Logger().Errorf("internal error: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id != 0
}
