package handler

import (
	"context"
	"net/http" // HTTP status codes

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/pricing"
)

// ShowtimeCatalog is the slice of the catalog the seat map needs.
type ShowtimeCatalog interface {
	GetShowtime(ctx context.Context, showtimeID uint64) (*model.Showtime, error)
	PriceSnapshot(ctx context.Context) (*pricing.Snapshot, error)
}

// SeatLister lists the seat units of a showtime.
type SeatLister interface {
	ListByShowtime(ctx context.Context, showtimeID uint64) ([]model.SeatUnit, error)
}

// AvailabilityHandler serves the live seat map for a showtime.
// Responses are always read fresh from the database; an AVAILABLE answer
// is advisory and only an acquired lock actually reserves anything, so
// the seat map is deliberately never cached.
type AvailabilityHandler struct {
	catalog ShowtimeCatalog
	seats   SeatLister
}

// NewAvailabilityHandler constructs an AvailabilityHandler.
func NewAvailabilityHandler(catalog ShowtimeCatalog, seats SeatLister) *AvailabilityHandler {
	if catalog == nil || seats == nil {
		panic("nil repository passed to NewAvailabilityHandler")
	}
	return &AvailabilityHandler{catalog: catalog, seats: seats}
}

// Seats handles GET /v1/showtimes/:id/seats.  It returns every seat unit
// of the showtime with row, number, type, current status and a computed
// price preview.  The preview runs the same base-plus-modifiers pipeline
// a lock runs later, minus the ticket-type step (no ticket type has been
// chosen yet), so the number shown here matches the adult price quoted
// at lock time.
func (h *AvailabilityHandler) Seats(c echo.Context) error {
	showtimeID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	ctx := c.Request().Context()

	showtime, err := h.catalog.GetShowtime(ctx, showtimeID)
	if err != nil {
		return writeServiceError(c, err)
	}
	units, err := h.seats.ListByShowtime(ctx, showtimeID)
	if err != nil {
		return writeServiceError(c, err)
	}
	snap, err := h.catalog.PriceSnapshot(ctx)
	if err != nil {
		return writeServiceError(c, err)
	}

	type seatView struct {
		SeatUnitID uint64 `json:"seat_unit_id"`
		RowLabel   string `json:"row_label"`
		SeatNumber uint32 `json:"seat_number"`
		SeatType   string `json:"seat_type"`
		Status     string `json:"status"`
		PriceCents int64  `json:"price_cents"`
	}
	out := make([]seatView, 0, len(units))
	for _, u := range units {
		base, err := snap.SeatBase(u.PriceCents)
		if err != nil {
			return writeServiceError(c, err)
		}
		sc := pricing.SeatContext{
			SeatType: u.SeatType,
			RoomType: showtime.RoomType,
			Format:   showtime.Format,
			StartsAt: showtime.StartsAt,
		}
		out = append(out, seatView{
			SeatUnitID: u.ID,
			RowLabel:   u.RowLabel,
			SeatNumber: u.SeatNumber,
			SeatType:   u.SeatType,
			Status:     string(u.Status),
			PriceCents: pricing.ComputeSeatPrice(base, sc, pricing.TicketStep{}, snap.Modifiers),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"showtime_id": showtime.ID,
		"title":       showtime.Title,
		"starts_at":   showtime.StartsAt,
		"seats":       out,
	})
}
