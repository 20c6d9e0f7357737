package service

import (
	"errors"
	"fmt"
)

// Contention errors: expected under load, the caller retries with fresh
// state.
var (
	// ErrDuplicateLockAttempt: the owner already holds an active lock on
	// this showtime.  One selection session per owner per showtime.
	ErrDuplicateLockAttempt = errors.New("owner already holds a lock for this showtime")

	// ErrLockExpired: the lock's TTL elapsed, or the reaper reclaimed it
	// mid-checkout.
	ErrLockExpired = errors.New("lock expired")

	// ErrForbidden: the lock exists but belongs to a different owner.
	ErrForbidden = errors.New("lock owned by another session")
)

// Validation errors: rejected before any mutation.
var (
	ErrEmptySelection       = errors.New("no seats selected")
	ErrSelectionTooLarge    = errors.New("selection exceeds the per-lock seat limit")
	ErrTicketTypeNotActive  = errors.New("ticket type not active for this showtime")
	ErrInvalidPaymentMethod = errors.New("unsupported payment method")
	ErrInvalidPromotion     = errors.New("promotion invalid, expired or exhausted")
	ErrReasonRequired       = errors.New("refund reason is required")
)

// External dependency failures: partial local state has been compensated
// before these are returned; callers back off and retry the whole call.
var (
	ErrPaymentInitiationFailed = errors.New("payment initiation failed")
	ErrGatewayRefundFailed     = errors.New("gateway refund failed")
	ErrPaymentNotConfirmed     = errors.New("gateway did not confirm the payment")
)

// Refund eligibility.
var (
	// ErrNotEligibleForRefund covers pending, failed and already refunded
	// payments.
	ErrNotEligibleForRefund = errors.New("payment not eligible for refund")

	// ErrPaymentAlreadySettled: confirmation attempted on a payment that
	// is no longer PENDING.
	ErrPaymentAlreadySettled = errors.New("payment already settled")
)

// SeatConflictError names the exact seats a lock attempt lost, so the
// client can re-pick without re-querying the whole map.
type SeatConflictError struct {
	ShowtimeID  uint64
	SeatUnitIDs []uint64
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seats already taken: %v", e.SeatUnitIDs)
}
