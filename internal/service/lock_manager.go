package service

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/iliyamo/cinema-booking-engine/internal/clock"
	"github.com/iliyamo/cinema-booking-engine/internal/lockstore"
	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/pricing"
	"github.com/iliyamo/cinema-booking-engine/internal/repository"
)

// reapBatch caps how many expired locks one reaper pass processes.
const reapBatch = 100

// SeatSelection is one requested seat with its chosen ticket type.
type SeatSelection struct {
	SeatUnitID   uint64 `json:"seat_unit_id"`
	TicketTypeID uint64 `json:"ticket_type_id"`
}

// SeatPrice is the per-seat price preview carried on a lock handle.
type SeatPrice struct {
	SeatUnitID   uint64 `json:"seat_unit_id"`
	RowLabel     string `json:"row_label"`
	SeatNumber   uint32 `json:"seat_number"`
	TicketTypeID uint64 `json:"ticket_type_id"`
	PriceCents   int64  `json:"price_cents"`
}

// LockHandle is what a successful acquisition returns to the client: the
// capability token for checkout, the expiry, and a price preview
// computed from the same configuration snapshot checkout will use.
type LockHandle struct {
	Token      string      `json:"lock_token"`
	ShowtimeID uint64      `json:"showtime_id"`
	ExpiresAt  time.Time   `json:"expires_at"`
	Seats      []SeatPrice `json:"seats"`
	TotalCents int64       `json:"total_cents"`
}

// LockManager owns seat lock acquisition, release, extension and expiry
// reaping.  It is the only writer of the fast lock store besides nobody:
// checkout and refund touch the durable store only and leave fast-store
// cleanup to the manager's compensating release.
type LockManager struct {
	tx       TxRunner
	seats    SeatUnits
	locks    Locks
	catalog  Catalog
	store    SeatLockStore
	clk      clock.Clock
	ttl      time.Duration
	maxSeats int
}

// NewLockManager constructs a LockManager.  ttl and maxSeats come from
// deployment configuration, not from this package.
func NewLockManager(tx TxRunner, seats SeatUnits, locks Locks, catalog Catalog, store SeatLockStore, clk clock.Clock, ttl time.Duration, maxSeats int) *LockManager {
	if tx == nil || seats == nil || locks == nil || catalog == nil || store == nil || clk == nil {
		panic("nil dependency passed to NewLockManager")
	}
	return &LockManager{
		tx: tx, seats: seats, locks: locks, catalog: catalog, store: store,
		clk: clk, ttl: ttl, maxSeats: maxSeats,
	}
}

// Lock reserves the selected seats for the owner.  The fast store is the
// arbiter: each seat is claimed there first with an atomic check-and-set,
// then the durable lock record is written and the seat units flipped to
// LOCKED in one transaction.  Any failure after partial acquisition
// releases everything acquired in this call before returning, so a loser
// never leaves residue.
func (m *LockManager) Lock(ctx context.Context, owner model.OwnerKey, showtimeID uint64, selections []SeatSelection) (*LockHandle, error) {
	selections = dedupeSelections(selections)
	if len(selections) == 0 {
		return nil, ErrEmptySelection
	}
	if len(selections) > m.maxSeats {
		return nil, ErrSelectionTooLarge
	}

	showtime, err := m.catalog.GetShowtime(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	now := m.clk.Now()

	// One selection session per owner per showtime.  This early read is
	// only a cheap rejection of the common double-submit; the
	// authoritative check runs again inside the transaction below, where
	// the row lock and the unique key on active locks close the window
	// between two concurrent reads.
	if _, err := m.locks.ActiveByOwnerAndShowtime(ctx, owner.String(), showtimeID, now); err == nil {
		return nil, ErrDuplicateLockAttempt
	} else if !errors.Is(err, repository.ErrLockNotFound) {
		return nil, err
	}

	// Validate seats, ticket types and pricing before touching any store,
	// so validation and configuration errors never need compensation.
	prices, err := m.priceSeats(ctx, showtime, selections)
	if err != nil {
		return nil, err
	}

	token, err := repository.NewToken()
	if err != nil {
		return nil, err
	}

	unitIDs := make([]uint64, 0, len(selections))
	for _, sel := range selections {
		unitIDs = append(unitIDs, sel.SeatUnitID)
	}

	// Claim every seat in the fast store.  Probing all seats before
	// giving up lets a conflict response name every losing seat, not
	// just the first.
	acquired := make([]uint64, 0, len(unitIDs))
	var conflicts []uint64
	for _, id := range unitIDs {
		err := m.store.Acquire(ctx, showtimeID, id, token, m.ttl)
		switch {
		case err == nil:
			acquired = append(acquired, id)
		case errors.Is(err, lockstore.ErrSeatTaken):
			conflicts = append(conflicts, id)
		default:
			m.releaseFast(ctx, showtimeID, acquired, token)
			return nil, err
		}
	}
	if len(conflicts) > 0 {
		m.releaseFast(ctx, showtimeID, acquired, token)
		return nil, &SeatConflictError{ShowtimeID: showtimeID, SeatUnitIDs: conflicts}
	}

	expiresAt := now.Add(m.ttl)
	lock := &model.Lock{
		OwnerKey:   owner.String(),
		ShowtimeID: showtimeID,
		Token:      token,
		ExpiresAt:  expiresAt,
	}
	for _, sel := range selections {
		lock.Seats = append(lock.Seats, model.LockSeat{SeatUnitID: sel.SeatUnitID, TicketTypeID: sel.TicketTypeID})
	}

	// Durable side.  If the seat-status transition comes up short, some
	// unit was not AVAILABLE in the durable store even though its fast
	// entry was free (a stale LOCKED row the reaper has not caught up
	// with yet); treat it as a conflict.
	err = m.tx.WithTx(ctx, func(ctx context.Context) error {
		// Re-check under the transaction: two calls that both passed the
		// early read serialize on this row lock, and the loser sees the
		// winner's insert.  The unique key backs it up for the
		// interleaving where neither row is visible yet.
		if _, err := m.locks.ActiveByOwnerAndShowtime(ctx, owner.String(), showtimeID, now); err == nil {
			return ErrDuplicateLockAttempt
		} else if !errors.Is(err, repository.ErrLockNotFound) {
			return err
		}
		if err := m.locks.Create(ctx, lock); err != nil {
			if errors.Is(err, repository.ErrDuplicateActiveLock) {
				return ErrDuplicateLockAttempt
			}
			return err
		}
		n, err := m.seats.UpdateStatus(ctx, showtimeID, unitIDs, model.SeatAvailable, model.SeatLocked)
		if err != nil {
			return err
		}
		if n != int64(len(unitIDs)) {
			stuck, qerr := m.seats.NotAvailable(ctx, showtimeID, unitIDs)
			if qerr != nil {
				return qerr
			}
			return &SeatConflictError{ShowtimeID: showtimeID, SeatUnitIDs: stuck}
		}
		return nil
	})
	if err != nil {
		// Durable write failed or conflicted: compensate the fast
		// entries so the two stores cannot stay out of sync.
		m.releaseFast(ctx, showtimeID, acquired, token)
		return nil, err
	}

	return &LockHandle{
		Token:      token,
		ShowtimeID: showtimeID,
		ExpiresAt:  expiresAt,
		Seats:      prices,
		TotalCents: sumPrices(prices),
	}, nil
}

// Release deactivates the owner's active lock on a showtime and reverts
// its seats.  It is idempotent: no active lock means nothing to do and
// no error.  Returns how many seats were released.
func (m *LockManager) Release(ctx context.Context, owner model.OwnerKey, showtimeID uint64) (int, error) {
	lock, err := m.locks.ActiveByOwnerAndShowtime(ctx, owner.String(), showtimeID, m.clk.Now())
	if err != nil {
		if errors.Is(err, repository.ErrLockNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if err := m.releaseLock(ctx, lock); err != nil {
		return 0, err
	}
	return len(lock.Seats), nil
}

// ActiveLock returns the owner's current lock on a showtime with a fresh
// price preview, or repository.ErrLockNotFound.
func (m *LockManager) ActiveLock(ctx context.Context, owner model.OwnerKey, showtimeID uint64) (*LockHandle, error) {
	lock, err := m.locks.ActiveByOwnerAndShowtime(ctx, owner.String(), showtimeID, m.clk.Now())
	if err != nil {
		return nil, err
	}
	showtime, err := m.catalog.GetShowtime(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	selections := make([]SeatSelection, 0, len(lock.Seats))
	for _, s := range lock.Seats {
		selections = append(selections, SeatSelection{SeatUnitID: s.SeatUnitID, TicketTypeID: s.TicketTypeID})
	}
	prices, err := m.priceSeats(ctx, showtime, selections)
	if err != nil {
		return nil, err
	}
	return &LockHandle{
		Token:      lock.Token,
		ShowtimeID: showtimeID,
		ExpiresAt:  lock.ExpiresAt,
		Seats:      prices,
		TotalCents: sumPrices(prices),
	}, nil
}

// Extend pushes the owner's active lock expiry to now + TTL.  The fast
// entries are refreshed first: if any of them is already gone the lock
// has effectively expired, the durable side is compensated and
// ErrLockExpired is returned.  Refreshing fast before durable means a
// failure can only leave the fast entries living longer than the durable
// record, which the reaper resolves safely.
func (m *LockManager) Extend(ctx context.Context, owner model.OwnerKey, showtimeID uint64) (time.Time, error) {
	lock, err := m.locks.ActiveByOwnerAndShowtime(ctx, owner.String(), showtimeID, m.clk.Now())
	if err != nil {
		return time.Time{}, err
	}
	newExpiry := m.clk.Now().Add(m.ttl)
	for _, s := range lock.Seats {
		if err := m.store.Extend(ctx, showtimeID, s.SeatUnitID, lock.Token, m.ttl); err != nil {
			if errors.Is(err, lockstore.ErrNotHeld) {
				if relErr := m.releaseLock(ctx, lock); relErr != nil {
					log.Printf("lock-manager: compensating release of lock %d failed: %v", lock.ID, relErr)
				}
				return time.Time{}, ErrLockExpired
			}
			return time.Time{}, err
		}
	}
	err = m.tx.WithTx(ctx, func(ctx context.Context) error {
		return m.locks.ExtendExpiry(ctx, lock.ID, newExpiry)
	})
	if err != nil {
		return time.Time{}, err
	}
	return newExpiry, nil
}

// ReapExpired releases every lock whose TTL elapsed: seats go back to
// AVAILABLE, the record is deactivated, and leftover fast entries are
// cleared.  One broken lock never halts the pass, and concurrent reapers
// are safe because deactivation decides a single winner per lock.
func (m *LockManager) ReapExpired(ctx context.Context) (int, error) {
	expired, err := m.locks.ListExpired(ctx, m.clk.Now(), reapBatch)
	if err != nil {
		return 0, err
	}
	reaped := 0
	for i := range expired {
		if err := m.releaseLock(ctx, &expired[i]); err != nil {
			log.Printf("lock-manager: reaping lock %d failed: %v", expired[i].ID, err)
			continue
		}
		reaped++
	}
	return reaped, nil
}

// releaseLock is the one compensating-release path shared by explicit
// release, extend fallback and the reaper.  Deactivation is the guard:
// only the caller that flips the active flag reverts the seats, so a
// concurrent checkout or second reaper cannot double-revert.
func (m *LockManager) releaseLock(ctx context.Context, lock *model.Lock) error {
	err := m.tx.WithTx(ctx, func(ctx context.Context) error {
		won, err := m.locks.Deactivate(ctx, lock.ID)
		if err != nil {
			return err
		}
		if !won {
			return nil
		}
		_, err = m.seats.UpdateStatus(ctx, lock.ShowtimeID, lock.SeatUnitIDs(), model.SeatLocked, model.SeatAvailable)
		return err
	})
	if err != nil {
		return err
	}
	m.releaseFast(ctx, lock.ShowtimeID, lock.SeatUnitIDs(), lock.Token)
	return nil
}

// releaseFast best-effort clears fast-store entries; entries that already
// expired there are fine.
func (m *LockManager) releaseFast(ctx context.Context, showtimeID uint64, unitIDs []uint64, token string) {
	for _, id := range unitIDs {
		if err := m.store.Release(ctx, showtimeID, id, token); err != nil {
			log.Printf("lock-manager: releasing fast entry %d/%d failed: %v", showtimeID, id, err)
		}
	}
}

// priceSeats validates the selection against the catalog and computes the
// per-seat preview.  Seats must exist, belong to the showtime and not be
// BOOKED; ticket types must be active for the showtime.
func (m *LockManager) priceSeats(ctx context.Context, showtime *model.Showtime, selections []SeatSelection) ([]SeatPrice, error) {
	unitIDs := make([]uint64, 0, len(selections))
	for _, sel := range selections {
		unitIDs = append(unitIDs, sel.SeatUnitID)
	}
	units, err := m.seats.GetForShowtime(ctx, showtime.ID, unitIDs)
	if err != nil {
		return nil, err
	}
	if len(units) != len(unitIDs) {
		return nil, repository.ErrSeatNotFound
	}
	byID := make(map[uint64]model.SeatUnit, len(units))
	var booked []uint64
	for _, u := range units {
		if u.Status == model.SeatBooked {
			booked = append(booked, u.ID)
		}
		byID[u.ID] = u
	}
	if len(booked) > 0 {
		return nil, &SeatConflictError{ShowtimeID: showtime.ID, SeatUnitIDs: booked}
	}

	ticketTypes, err := m.catalog.TicketTypes(ctx, showtime.ID)
	if err != nil {
		return nil, err
	}
	snap, err := m.catalog.PriceSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	prices := make([]SeatPrice, 0, len(selections))
	for _, sel := range selections {
		tt, ok := ticketTypes[sel.TicketTypeID]
		if !ok {
			return nil, ErrTicketTypeNotActive
		}
		unit := byID[sel.SeatUnitID]
		cents, err := priceUnit(snap, showtime, unit, tt)
		if err != nil {
			return nil, err
		}
		prices = append(prices, SeatPrice{
			SeatUnitID:   unit.ID,
			RowLabel:     unit.RowLabel,
			SeatNumber:   unit.SeatNumber,
			TicketTypeID: tt.ID,
			PriceCents:   cents,
		})
	}
	return prices, nil
}

// priceUnit runs the pricing engine for one seat unit.
func priceUnit(snap *pricing.Snapshot, showtime *model.Showtime, unit model.SeatUnit, tt model.TicketType) (int64, error) {
	base, err := snap.SeatBase(unit.PriceCents)
	if err != nil {
		return 0, err
	}
	sc := pricing.SeatContext{
		SeatType: unit.SeatType,
		RoomType: showtime.RoomType,
		Format:   showtime.Format,
		StartsAt: showtime.StartsAt,
	}
	return pricing.ComputeSeatPrice(base, sc, pricing.TicketStep{Kind: tt.Kind, Value: tt.Value}, snap.Modifiers), nil
}

func sumPrices(prices []SeatPrice) int64 {
	var total int64
	for _, p := range prices {
		total += p.PriceCents
	}
	return total
}

// dedupeSelections drops zero and repeated seat IDs, keeping first
// occurrence order, then sorts by seat unit ID so acquisition order is
// deterministic.
func dedupeSelections(selections []SeatSelection) []SeatSelection {
	seen := make(map[uint64]struct{}, len(selections))
	out := make([]SeatSelection, 0, len(selections))
	for _, sel := range selections {
		if sel.SeatUnitID == 0 {
			continue
		}
		if _, ok := seen[sel.SeatUnitID]; ok {
			continue
		}
		seen[sel.SeatUnitID] = struct{}{}
		out = append(out, sel)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeatUnitID < out[j].SeatUnitID })
	return out
}
