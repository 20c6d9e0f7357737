package handler

import (
	"net/http" // HTTP status codes

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/cinema-booking-engine/internal/middleware"
	"github.com/iliyamo/cinema-booking-engine/internal/service"
)

// CheckoutHandler exposes the checkout and payment confirmation
// endpoints.
type CheckoutHandler struct {
	checkout *service.CheckoutService
}

// NewCheckoutHandler constructs a CheckoutHandler.
func NewCheckoutHandler(checkout *service.CheckoutService) *CheckoutHandler {
	if checkout == nil {
		panic("nil checkout service passed to NewCheckoutHandler")
	}
	return &CheckoutHandler{checkout: checkout}
}

// Checkout handles POST /v1/checkout.  The body carries the lock token,
// the payment method and an optional promotion code:
//
//	{"lock_token": "...", "payment_method": "CARD", "promo_code": "SAVE10"}
//
// A successful checkout consumes the lock and returns 201 with the
// pending booking and its payment; the client then confirms the payment
// with the gateway and calls the confirm endpoint.  If payment
// initiation fails the lock survives and the same token may be retried.
func (h *CheckoutHandler) Checkout(c echo.Context) error {
	owner := middleware.OwnerFrom(c)
	if owner.IsZero() {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		LockToken     string `json:"lock_token"`
		PaymentMethod string `json:"payment_method"`
		PromoCode     string `json:"promo_code"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.LockToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "lock_token is required"})
	}

	conf, err := h.checkout.Checkout(c.Request().Context(), owner, body.LockToken, body.PromoCode, body.PaymentMethod)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, conf)
}

// Confirm handles POST /v1/payments/:id/confirm.  It settles the pending
// payment with the gateway and returns the issued ticket.
func (h *CheckoutHandler) Confirm(c echo.Context) error {
	paymentID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment id"})
	}

	ticket, err := h.checkout.ConfirmPayment(c.Request().Context(), paymentID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, ticket)
}
