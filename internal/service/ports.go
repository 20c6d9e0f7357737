// Package service contains the engine's orchestrators: the seat lock
// manager, the checkout and refund services.  Each depends on narrow
// interfaces declared here and satisfied by the repository, lockstore,
// gateway and queue packages, so orchestration logic is tested against
// in-memory fakes without a database.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/pricing"
	"github.com/iliyamo/cinema-booking-engine/internal/queue"
)

// TxRunner runs a function as one atomic unit of work against the
// durable store.  Satisfied by *repository.Store.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SeatLockStore is the fast distributed lock store: atomic per-seat
// check-and-set with a TTL.  Satisfied by *lockstore.RedisStore.
type SeatLockStore interface {
	Acquire(ctx context.Context, showtimeID, seatUnitID uint64, token string, ttl time.Duration) error
	Release(ctx context.Context, showtimeID, seatUnitID uint64, token string) error
	Extend(ctx context.Context, showtimeID, seatUnitID uint64, token string, ttl time.Duration) error
}

// SeatUnits is the seat inventory of the durable store.
type SeatUnits interface {
	GetForShowtime(ctx context.Context, showtimeID uint64, unitIDs []uint64) ([]model.SeatUnit, error)
	ListByShowtime(ctx context.Context, showtimeID uint64) ([]model.SeatUnit, error)
	UpdateStatus(ctx context.Context, showtimeID uint64, unitIDs []uint64, from, to model.SeatStatus) (int64, error)
	NotAvailable(ctx context.Context, showtimeID uint64, unitIDs []uint64) ([]uint64, error)
}

// Locks is the durable lock record store.
type Locks interface {
	Create(ctx context.Context, lock *model.Lock) error
	GetByToken(ctx context.Context, token string) (*model.Lock, error)
	ActiveByOwnerAndShowtime(ctx context.Context, ownerKey string, showtimeID uint64, now time.Time) (*model.Lock, error)
	Deactivate(ctx context.Context, lockID uint64) (bool, error)
	ExtendExpiry(ctx context.Context, lockID uint64, expiresAt time.Time) error
	ListExpired(ctx context.Context, now time.Time, limit int) ([]model.Lock, error)
}

// Bookings is the booking store.
type Bookings interface {
	Create(ctx context.Context, b *model.Booking) error
	CreateSeats(ctx context.Context, seats []model.BookingSeat) error
	GetByID(ctx context.Context, bookingID uint64) (*model.Booking, error)
	UpdateStatus(ctx context.Context, bookingID uint64, from, to model.BookingStatus) (bool, error)
	SetTicketCode(ctx context.Context, bookingID uint64, code string) error
	SeatUnitIDs(ctx context.Context, bookingID uint64) ([]uint64, error)
}

// Payments is the payment and refund store.
type Payments interface {
	Create(ctx context.Context, p *model.Payment) error
	GetByID(ctx context.Context, paymentID uint64) (*model.Payment, error)
	MarkSucceeded(ctx context.Context, paymentID uint64, completedAt time.Time) (bool, error)
	MarkRefunded(ctx context.Context, paymentID uint64) (bool, error)
	CreateRefund(ctx context.Context, r *model.Refund) error
}

// Promotions is the promotion store with transactional usage counting.
type Promotions interface {
	GetActiveByCode(ctx context.Context, code string) (*model.Promotion, error)
	CountUsages(ctx context.Context, promotionID uint64) (int, error)
	CountUsagesByOwner(ctx context.Context, promotionID uint64, ownerKey string) (int, error)
	RecordUsage(ctx context.Context, u *model.PromotionUsage) error
}

// Catalog is the read-only collaborator owning showtimes, ticket types
// and pricing configuration.
type Catalog interface {
	GetShowtime(ctx context.Context, showtimeID uint64) (*model.Showtime, error)
	TicketTypes(ctx context.Context, showtimeID uint64) (map[uint64]model.TicketType, error)
	PriceSnapshot(ctx context.Context) (*pricing.Snapshot, error)
}

// PaymentGateway is the external payment capability with its fixed
// contract.  Calls may fail or time out; the engine never retries them
// itself.
type PaymentGateway interface {
	Initiate(ctx context.Context, amountCents int64, currency, method string) (string, error)
	Confirm(ctx context.Context, gatewayRef string) error
	Refund(ctx context.Context, gatewayRef string, amountCents int64) (string, error)
}

// EventPublisher emits booking lifecycle events after commit.  Publish
// failures are logged by implementations and never fail the request.
type EventPublisher interface {
	BookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent)
	BookingRefunded(ctx context.Context, ev queue.BookingRefundedEvent)
}
