package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/iliyamo/cinema-booking-engine/internal/lockstore"
	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/pricing"
	"github.com/iliyamo/cinema-booking-engine/internal/queue"
	"github.com/iliyamo/cinema-booking-engine/internal/repository"
)

// fakeState is the durable store's mutable contents.  fakeDB snapshots
// and restores it around WithTx so rollback behaves like a real
// transaction.
type fakeState struct {
	seats        map[uint64]model.SeatUnit
	locks        map[uint64]model.Lock
	bookings     map[uint64]model.Booking
	bookingSeats map[uint64][]model.BookingSeat
	payments     map[uint64]model.Payment
	refunds      []model.Refund
	usages       []model.PromotionUsage
	nextID       uint64
}

func (s *fakeState) clone() *fakeState {
	c := &fakeState{
		seats:        make(map[uint64]model.SeatUnit, len(s.seats)),
		locks:        make(map[uint64]model.Lock, len(s.locks)),
		bookings:     make(map[uint64]model.Booking, len(s.bookings)),
		bookingSeats: make(map[uint64][]model.BookingSeat, len(s.bookingSeats)),
		payments:     make(map[uint64]model.Payment, len(s.payments)),
		refunds:      append([]model.Refund(nil), s.refunds...),
		usages:       append([]model.PromotionUsage(nil), s.usages...),
		nextID:       s.nextID,
	}
	for k, v := range s.seats {
		c.seats[k] = v
	}
	for k, v := range s.locks {
		v.Seats = append([]model.LockSeat(nil), v.Seats...)
		c.locks[k] = v
	}
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	for k, v := range s.bookingSeats {
		c.bookingSeats[k] = append([]model.BookingSeat(nil), v...)
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	return c
}

// fakeDB satisfies TxRunner, SeatUnits, Locks, Bookings, Payments,
// Promotions and Catalog against in-memory state.  Catalog data is
// read-only configuration and sits outside the transactional snapshot.
// A transaction holds the write lock for its whole unit of work, so
// concurrent callers serialize the way MySQL row locks serialize them.
type fakeDB struct {
	mu sync.RWMutex
	st *fakeState

	showtimes   map[uint64]model.Showtime
	ticketTypes map[uint64]model.TicketType
	snapshot    *pricing.Snapshot
	promos      map[string]model.Promotion

	// fail injects an error into the named method once set.
	fail map[string]error

	// missActiveReads makes the next N ActiveByOwnerAndShowtime calls
	// come back empty, emulating reads that ran before a competing
	// insert committed.
	missActiveReads int
}

// fakeTxKey marks a context as running inside WithTx, so nested calls
// skip locking they already hold.
type fakeTxKey struct{}

func (db *fakeDB) rlock(ctx context.Context) func() {
	if ctx.Value(fakeTxKey{}) != nil {
		return func() {}
	}
	db.mu.RLock()
	return db.mu.RUnlock
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		st: &fakeState{
			seats:        map[uint64]model.SeatUnit{},
			locks:        map[uint64]model.Lock{},
			bookings:     map[uint64]model.Booking{},
			bookingSeats: map[uint64][]model.BookingSeat{},
			payments:     map[uint64]model.Payment{},
		},
		showtimes:   map[uint64]model.Showtime{},
		ticketTypes: map[uint64]model.TicketType{},
		snapshot:    &pricing.Snapshot{BasePriceCents: 10000},
		promos:      map[string]model.Promotion{},
		fail:        map[string]error{},
	}
}

func (db *fakeDB) failOn(method string, err error) { db.fail[method] = err }

func (db *fakeDB) check(method string) error { return db.fail[method] }

func (db *fakeDB) id() uint64 {
	db.st.nextID++
	return db.st.nextID
}

// WithTx snapshots the state and restores it when fn fails, matching the
// rollback semantics of the real store.  A nested call joins the ambient
// unit of work.
func (db *fakeDB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(fakeTxKey{}) != nil {
		return fn(ctx)
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	snap := db.st.clone()
	err := fn(context.WithValue(ctx, fakeTxKey{}, struct{}{}))
	if err != nil {
		db.st = snap
	}
	return err
}

// --- SeatUnits ---

func (db *fakeDB) GetForShowtime(ctx context.Context, showtimeID uint64, unitIDs []uint64) ([]model.SeatUnit, error) {
	defer db.rlock(ctx)()
	if err := db.check("seats.GetForShowtime"); err != nil {
		return nil, err
	}
	var out []model.SeatUnit
	for _, id := range unitIDs {
		u, ok := db.st.seats[id]
		if ok && u.ShowtimeID == showtimeID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (db *fakeDB) ListByShowtime(ctx context.Context, showtimeID uint64) ([]model.SeatUnit, error) {
	defer db.rlock(ctx)()
	var out []model.SeatUnit
	for _, u := range db.st.seats {
		if u.ShowtimeID == showtimeID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (db *fakeDB) UpdateStatus(ctx context.Context, showtimeID uint64, unitIDs []uint64, from, to model.SeatStatus) (int64, error) {
	if err := db.check("seats.UpdateStatus"); err != nil {
		return 0, err
	}
	var n int64
	for _, id := range unitIDs {
		u, ok := db.st.seats[id]
		if ok && u.ShowtimeID == showtimeID && u.Status == from {
			u.Status = to
			db.st.seats[id] = u
			n++
		}
	}
	return n, nil
}

func (db *fakeDB) NotAvailable(ctx context.Context, showtimeID uint64, unitIDs []uint64) ([]uint64, error) {
	defer db.rlock(ctx)()
	var out []uint64
	for _, id := range unitIDs {
		u, ok := db.st.seats[id]
		if !ok || u.ShowtimeID != showtimeID || u.Status != model.SeatAvailable {
			out = append(out, id)
		}
	}
	return out, nil
}

// --- Locks ---

func (db *fakeDB) Create(ctx context.Context, lock *model.Lock) error {
	if err := db.check("locks.Create"); err != nil {
		return err
	}
	// The unique key on active locks per (owner, showtime).
	for _, l := range db.st.locks {
		if l.Active && l.OwnerKey == lock.OwnerKey && l.ShowtimeID == lock.ShowtimeID {
			return repository.ErrDuplicateActiveLock
		}
	}
	lock.ID = db.id()
	lock.Active = true
	l := *lock
	l.Seats = append([]model.LockSeat(nil), lock.Seats...)
	db.st.locks[lock.ID] = l
	return nil
}

func (db *fakeDB) GetByToken(ctx context.Context, token string) (*model.Lock, error) {
	defer db.rlock(ctx)()
	if err := db.check("locks.GetByToken"); err != nil {
		return nil, err
	}
	for _, l := range db.st.locks {
		if l.Token == token {
			out := l
			out.Seats = append([]model.LockSeat(nil), l.Seats...)
			return &out, nil
		}
	}
	return nil, repository.ErrLockNotFound
}

func (db *fakeDB) ActiveByOwnerAndShowtime(ctx context.Context, ownerKey string, showtimeID uint64, now time.Time) (*model.Lock, error) {
	defer db.rlock(ctx)()
	if db.missActiveReads > 0 {
		db.missActiveReads--
		return nil, repository.ErrLockNotFound
	}
	for _, l := range db.st.locks {
		if l.Active && l.OwnerKey == ownerKey && l.ShowtimeID == showtimeID && l.ExpiresAt.After(now) {
			out := l
			out.Seats = append([]model.LockSeat(nil), l.Seats...)
			return &out, nil
		}
	}
	return nil, repository.ErrLockNotFound
}

func (db *fakeDB) Deactivate(ctx context.Context, lockID uint64) (bool, error) {
	if err := db.check("locks.Deactivate"); err != nil {
		return false, err
	}
	l, ok := db.st.locks[lockID]
	if !ok || !l.Active {
		return false, nil
	}
	l.Active = false
	db.st.locks[lockID] = l
	return true, nil
}

func (db *fakeDB) ExtendExpiry(ctx context.Context, lockID uint64, expiresAt time.Time) error {
	if err := db.check("locks.ExtendExpiry"); err != nil {
		return err
	}
	l, ok := db.st.locks[lockID]
	if !ok {
		return repository.ErrLockNotFound
	}
	l.ExpiresAt = expiresAt
	db.st.locks[lockID] = l
	return nil
}

func (db *fakeDB) ListExpired(ctx context.Context, now time.Time, limit int) ([]model.Lock, error) {
	defer db.rlock(ctx)()
	var out []model.Lock
	for _, l := range db.st.locks {
		if l.Active && !l.ExpiresAt.After(now) && len(out) < limit {
			l.Seats = append([]model.LockSeat(nil), l.Seats...)
			out = append(out, l)
		}
	}
	return out, nil
}

// --- Bookings ---

func (db *fakeDB) CreateBooking(ctx context.Context, b *model.Booking) error {
	if err := db.check("bookings.Create"); err != nil {
		return err
	}
	b.ID = db.id()
	db.st.bookings[b.ID] = *b
	return nil
}

func (db *fakeDB) CreateSeats(ctx context.Context, seats []model.BookingSeat) error {
	if err := db.check("bookings.CreateSeats"); err != nil {
		return err
	}
	for _, s := range seats {
		s.ID = db.id()
		db.st.bookingSeats[s.BookingID] = append(db.st.bookingSeats[s.BookingID], s)
	}
	return nil
}

func (db *fakeDB) GetBooking(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	defer db.rlock(ctx)()
	b, ok := db.st.bookings[bookingID]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	return &b, nil
}

func (db *fakeDB) UpdateBookingStatus(ctx context.Context, bookingID uint64, from, to model.BookingStatus) (bool, error) {
	b, ok := db.st.bookings[bookingID]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = to
	db.st.bookings[bookingID] = b
	return true, nil
}

func (db *fakeDB) SetTicketCode(ctx context.Context, bookingID uint64, code string) error {
	b, ok := db.st.bookings[bookingID]
	if !ok {
		return repository.ErrBookingNotFound
	}
	b.TicketCode = &code
	db.st.bookings[bookingID] = b
	return nil
}

func (db *fakeDB) SeatUnitIDs(ctx context.Context, bookingID uint64) ([]uint64, error) {
	defer db.rlock(ctx)()
	var out []uint64
	for _, s := range db.st.bookingSeats[bookingID] {
		out = append(out, s.SeatUnitID)
	}
	return out, nil
}

// --- Payments ---

func (db *fakeDB) CreatePayment(ctx context.Context, p *model.Payment) error {
	if err := db.check("payments.Create"); err != nil {
		return err
	}
	p.ID = db.id()
	db.st.payments[p.ID] = *p
	return nil
}

func (db *fakeDB) GetPayment(ctx context.Context, paymentID uint64) (*model.Payment, error) {
	defer db.rlock(ctx)()
	p, ok := db.st.payments[paymentID]
	if !ok {
		return nil, repository.ErrPaymentNotFound
	}
	return &p, nil
}

func (db *fakeDB) MarkSucceeded(ctx context.Context, paymentID uint64, completedAt time.Time) (bool, error) {
	p, ok := db.st.payments[paymentID]
	if !ok || p.Status != model.PaymentPending {
		return false, nil
	}
	p.Status = model.PaymentSuccess
	p.CompletedAt = &completedAt
	db.st.payments[paymentID] = p
	return true, nil
}

func (db *fakeDB) MarkRefunded(ctx context.Context, paymentID uint64) (bool, error) {
	p, ok := db.st.payments[paymentID]
	if !ok || p.Status != model.PaymentSuccess {
		return false, nil
	}
	p.Status = model.PaymentRefunded
	db.st.payments[paymentID] = p
	return true, nil
}

func (db *fakeDB) CreateRefund(ctx context.Context, r *model.Refund) error {
	if err := db.check("payments.CreateRefund"); err != nil {
		return err
	}
	r.ID = db.id()
	db.st.refunds = append(db.st.refunds, *r)
	return nil
}

// --- Promotions ---

func (db *fakeDB) GetActiveByCode(ctx context.Context, code string) (*model.Promotion, error) {
	defer db.rlock(ctx)()
	p, ok := db.promos[code]
	if !ok || !p.Active {
		return nil, repository.ErrPromotionNotFound
	}
	return &p, nil
}

func (db *fakeDB) CountUsages(ctx context.Context, promotionID uint64) (int, error) {
	defer db.rlock(ctx)()
	n := 0
	for _, u := range db.st.usages {
		if u.PromotionID == promotionID {
			n++
		}
	}
	return n, nil
}

func (db *fakeDB) CountUsagesByOwner(ctx context.Context, promotionID uint64, ownerKey string) (int, error) {
	defer db.rlock(ctx)()
	n := 0
	for _, u := range db.st.usages {
		if u.PromotionID == promotionID && u.OwnerKey == ownerKey {
			n++
		}
	}
	return n, nil
}

func (db *fakeDB) RecordUsage(ctx context.Context, u *model.PromotionUsage) error {
	u.ID = db.id()
	db.st.usages = append(db.st.usages, *u)
	return nil
}

// --- Catalog ---

func (db *fakeDB) GetShowtime(ctx context.Context, showtimeID uint64) (*model.Showtime, error) {
	defer db.rlock(ctx)()
	s, ok := db.showtimes[showtimeID]
	if !ok {
		return nil, repository.ErrShowtimeNotFound
	}
	return &s, nil
}

func (db *fakeDB) TicketTypes(ctx context.Context, showtimeID uint64) (map[uint64]model.TicketType, error) {
	defer db.rlock(ctx)()
	out := map[uint64]model.TicketType{}
	for id, tt := range db.ticketTypes {
		if tt.Active {
			out[id] = tt
		}
	}
	return out, nil
}

func (db *fakeDB) PriceSnapshot(ctx context.Context) (*pricing.Snapshot, error) {
	defer db.rlock(ctx)()
	if err := db.check("catalog.PriceSnapshot"); err != nil {
		return nil, err
	}
	return db.snapshot, nil
}

// bookingsAdapter exposes the fakeDB booking methods under the Bookings
// interface names, which collide with the lock methods on fakeDB itself.
type bookingsAdapter struct{ db *fakeDB }

func (a bookingsAdapter) Create(ctx context.Context, b *model.Booking) error {
	return a.db.CreateBooking(ctx, b)
}
func (a bookingsAdapter) CreateSeats(ctx context.Context, seats []model.BookingSeat) error {
	return a.db.CreateSeats(ctx, seats)
}
func (a bookingsAdapter) GetByID(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	return a.db.GetBooking(ctx, bookingID)
}
func (a bookingsAdapter) UpdateStatus(ctx context.Context, bookingID uint64, from, to model.BookingStatus) (bool, error) {
	return a.db.UpdateBookingStatus(ctx, bookingID, from, to)
}
func (a bookingsAdapter) SetTicketCode(ctx context.Context, bookingID uint64, code string) error {
	return a.db.SetTicketCode(ctx, bookingID, code)
}
func (a bookingsAdapter) SeatUnitIDs(ctx context.Context, bookingID uint64) ([]uint64, error) {
	return a.db.SeatUnitIDs(ctx, bookingID)
}

// paymentsAdapter does the same for the Payments interface.
type paymentsAdapter struct{ db *fakeDB }

func (a paymentsAdapter) Create(ctx context.Context, p *model.Payment) error {
	return a.db.CreatePayment(ctx, p)
}
func (a paymentsAdapter) GetByID(ctx context.Context, paymentID uint64) (*model.Payment, error) {
	return a.db.GetPayment(ctx, paymentID)
}
func (a paymentsAdapter) MarkSucceeded(ctx context.Context, paymentID uint64, completedAt time.Time) (bool, error) {
	return a.db.MarkSucceeded(ctx, paymentID, completedAt)
}
func (a paymentsAdapter) MarkRefunded(ctx context.Context, paymentID uint64) (bool, error) {
	return a.db.MarkRefunded(ctx, paymentID)
}
func (a paymentsAdapter) CreateRefund(ctx context.Context, r *model.Refund) error {
	return a.db.CreateRefund(ctx, r)
}

// fakeLockStore is an in-memory check-and-set store.
type fakeLockStore struct {
	mu          sync.Mutex
	held        map[string]string
	unavailable bool
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{held: map[string]string{}}
}

func storeKey(showtimeID, seatUnitID uint64) string {
	return fmt.Sprintf("%d:%d", showtimeID, seatUnitID)
}

func (s *fakeLockStore) Acquire(ctx context.Context, showtimeID, seatUnitID uint64, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return lockstore.ErrUnavailable
	}
	key := storeKey(showtimeID, seatUnitID)
	if _, ok := s.held[key]; ok {
		return lockstore.ErrSeatTaken
	}
	s.held[key] = token
	return nil
}

func (s *fakeLockStore) Release(ctx context.Context, showtimeID, seatUnitID uint64, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return lockstore.ErrUnavailable
	}
	key := storeKey(showtimeID, seatUnitID)
	if s.held[key] == token {
		delete(s.held, key)
	}
	return nil
}

func (s *fakeLockStore) Extend(ctx context.Context, showtimeID, seatUnitID uint64, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return lockstore.ErrUnavailable
	}
	if s.held[storeKey(showtimeID, seatUnitID)] != token {
		return lockstore.ErrNotHeld
	}
	return nil
}

// fakeGateway approves unless told to fail, and records every call.
type fakeGateway struct {
	initErr    error
	confirmErr error
	refundErr  error
	initiated  int
	confirmed  int
	refunded   int
}

func (g *fakeGateway) Initiate(ctx context.Context, amountCents int64, currency, method string) (string, error) {
	if g.initErr != nil {
		return "", g.initErr
	}
	g.initiated++
	return fmt.Sprintf("pay_%d", g.initiated), nil
}

func (g *fakeGateway) Confirm(ctx context.Context, gatewayRef string) error {
	if g.confirmErr != nil {
		return g.confirmErr
	}
	g.confirmed++
	return nil
}

func (g *fakeGateway) Refund(ctx context.Context, gatewayRef string, amountCents int64) (string, error) {
	if g.refundErr != nil {
		return "", g.refundErr
	}
	g.refunded++
	return fmt.Sprintf("ref_%d", g.refunded), nil
}

// fakePublisher records published events.
type fakePublisher struct {
	confirmed []queue.BookingConfirmedEvent
	refunded  []queue.BookingRefundedEvent
}

func (p *fakePublisher) BookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) {
	p.confirmed = append(p.confirmed, ev)
}

func (p *fakePublisher) BookingRefunded(ctx context.Context, ev queue.BookingRefundedEvent) {
	p.refunded = append(p.refunded, ev)
}

var errBoom = errors.New("boom")

// seedShowtime loads a showtime with four AVAILABLE seats (101-104, 104
// VIP) and two ticket types: 1 = adult at x1.0, 2 = student at -2000.
// Base price is 10000 cents with no modifiers.
func seedShowtime(db *fakeDB, showtimeID uint64, startsAt time.Time) {
	db.showtimes[showtimeID] = model.Showtime{
		ID:       showtimeID,
		RoomID:   1,
		Title:    "Arrival",
		RoomType: "STANDARD",
		Format:   "2D",
		StartsAt: startsAt,
		EndsAt:   startsAt.Add(2 * time.Hour),
		Status:   "SCHEDULED",
	}
	for _, id := range []uint64{101, 102, 103, 104} {
		seatType := "STANDARD"
		if id == 104 {
			seatType = "VIP"
		}
		db.st.seats[id] = model.SeatUnit{
			ID:         id,
			ShowtimeID: showtimeID,
			SeatID:     id,
			RowLabel:   "F",
			SeatNumber: uint32(id - 100),
			SeatType:   seatType,
			Status:     model.SeatAvailable,
		}
	}
	db.ticketTypes[1] = model.TicketType{ID: 1, Name: "adult", Kind: pricing.KindFactor, Value: 10000, Active: true}
	db.ticketTypes[2] = model.TicketType{ID: 2, Name: "student", Kind: pricing.KindAmount, Value: -2000, Active: true}
	db.ticketTypes[3] = model.TicketType{ID: 3, Name: "retired", Kind: pricing.KindFactor, Value: 5000, Active: false}
}
