package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/cinema-booking-engine/internal/handler"
	"github.com/iliyamo/cinema-booking-engine/internal/middleware"
)

// Handlers bundles every handler the API mounts.
type Handlers struct {
	Locks        *handler.LockHandler
	Checkout     *handler.CheckoutHandler
	Refunds      *handler.RefundHandler
	Availability *handler.AvailabilityHandler
}

// RegisterRoutes mounts the full API surface on the provided Echo
// instance.  Identity resolution runs on the whole /v1 group, so both
// authenticated users and guests get an owner key; jwtSecret verifies
// presented access tokens.
func RegisterRoutes(e *echo.Echo, h Handlers, jwtSecret string) {
	// Health check sits outside the versioned group so load balancers
	// reach it without identity headers.
	e.GET("/healthz", handler.Health)

	v1 := e.Group("/v1", middleware.ResolveOwner(jwtSecret))

	// Seat availability and the lock lifecycle per showtime.
	v1.GET("/showtimes/:id/seats", h.Availability.Seats)
	v1.POST("/showtimes/:id/lock", h.Locks.Lock)
	v1.GET("/showtimes/:id/lock", h.Locks.Active)
	v1.POST("/showtimes/:id/lock/extend", h.Locks.Extend)
	v1.DELETE("/showtimes/:id/lock", h.Locks.Release)

	// Checkout and payment settlement.
	v1.POST("/checkout", h.Checkout.Checkout)
	v1.POST("/payments/:id/confirm", h.Checkout.Confirm)
	v1.POST("/payments/:id/refund", h.Refunds.Refund)
}
