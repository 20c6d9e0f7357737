package handler

import (
	"net/http" // HTTP status codes

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/cinema-booking-engine/internal/service"
)

// RefundHandler exposes the refund endpoint.
type RefundHandler struct {
	refunds *service.RefundService
}

// NewRefundHandler constructs a RefundHandler.
func NewRefundHandler(refunds *service.RefundService) *RefundHandler {
	if refunds == nil {
		panic("nil refund service passed to NewRefundHandler")
	}
	return &RefundHandler{refunds: refunds}
}

// Refund handles POST /v1/payments/:id/refund.  The body must carry a
// non-empty reason:
//
//	{"reason": "customer request"}
//
// A successful refund cancels the booking and puts its seats back on
// sale; refunding the same payment twice returns 409.
func (h *RefundHandler) Refund(c echo.Context) error {
	paymentID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment id"})
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	result, err := h.refunds.Refund(c.Request().Context(), paymentID, body.Reason)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
