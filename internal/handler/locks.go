package handler

import (
	"net/http" // HTTP status codes

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/cinema-booking-engine/internal/middleware"
	"github.com/iliyamo/cinema-booking-engine/internal/service"
)

// LockHandler exposes seat lock acquisition, inspection, extension and
// release.  Identity middleware runs first, so every request carries an
// owner key, authenticated or guest.
type LockHandler struct {
	manager *service.LockManager
}

// NewLockHandler constructs a LockHandler.
func NewLockHandler(manager *service.LockManager) *LockHandler {
	if manager == nil {
		panic("nil lock manager passed to NewLockHandler")
	}
	return &LockHandler{manager: manager}
}

// Lock handles POST /v1/showtimes/:id/lock.  The body carries the seat
// selection with a ticket type per seat:
//
//	{"seats": [{"seat_unit_id": 12, "ticket_type_id": 1}, ...]}
//
// On success it returns 201 with the lock token, expiry and a price
// preview.  Losing any seat returns 409 naming every seat that was
// taken.
func (h *LockHandler) Lock(c echo.Context) error {
	owner := middleware.OwnerFrom(c)
	if owner.IsZero() {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	showtimeID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	var body struct {
		Seats []service.SeatSelection `json:"seats"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	handle, err := h.manager.Lock(c.Request().Context(), owner, showtimeID, body.Seats)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, handle)
}

// Active handles GET /v1/showtimes/:id/lock and returns the caller's
// current lock with a fresh price preview, or 404.
func (h *LockHandler) Active(c echo.Context) error {
	owner := middleware.OwnerFrom(c)
	if owner.IsZero() {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	showtimeID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}

	handle, err := h.manager.ActiveLock(c.Request().Context(), owner, showtimeID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, handle)
}

// Extend handles POST /v1/showtimes/:id/lock/extend, pushing the lock
// expiry one full TTL ahead of now.
func (h *LockHandler) Extend(c echo.Context) error {
	owner := middleware.OwnerFrom(c)
	if owner.IsZero() {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	showtimeID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}

	expiresAt, err := h.manager.Extend(c.Request().Context(), owner, showtimeID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"expires_at": expiresAt})
}

// Release handles DELETE /v1/showtimes/:id/lock.  Releasing is
// idempotent: a second call reports zero released seats and still
// succeeds.
func (h *LockHandler) Release(c echo.Context) error {
	owner := middleware.OwnerFrom(c)
	if owner.IsZero() {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	showtimeID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}

	released, err := h.manager.Release(c.Request().Context(), owner, showtimeID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"released_seats": released})
}
