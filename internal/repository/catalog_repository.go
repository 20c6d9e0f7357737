package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/pricing"
)

// CatalogRepo is the read-only view onto catalog data the engine needs:
// showtimes, ticket types and the pricing configuration.  Catalog
// management itself lives outside this service; these queries never
// mutate anything.
type CatalogRepo struct {
	store *Store
}

// NewCatalogRepo returns a CatalogRepo bound to the store.
func NewCatalogRepo(store *Store) *CatalogRepo { return &CatalogRepo{store: store} }

// GetShowtime loads one showtime with the room attributes pricing needs.
// ErrShowtimeNotFound when absent.
func (r *CatalogRepo) GetShowtime(ctx context.Context, showtimeID uint64) (*model.Showtime, error) {
	const q = `SELECT st.id, st.room_id, st.title, rm.room_type, st.format, st.starts_at, st.ends_at, st.status
               FROM showtimes st
               JOIN rooms rm ON rm.id = st.room_id
               WHERE st.id = ?`
	var s model.Showtime
	err := r.store.q(ctx).QueryRowContext(ctx, q, showtimeID).Scan(
		&s.ID, &s.RoomID, &s.Title, &s.RoomType, &s.Format, &s.StartsAt, &s.EndsAt, &s.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowtimeNotFound
		}
		return nil, err
	}
	return &s, nil
}

// TicketTypes returns the ticket types active for a showtime, keyed by
// ID.
func (r *CatalogRepo) TicketTypes(ctx context.Context, showtimeID uint64) (map[uint64]model.TicketType, error) {
	const q = `SELECT tt.id, tt.name, tt.kind, tt.value, tt.active
               FROM ticket_types tt
               JOIN showtime_ticket_types stt ON stt.ticket_type_id = tt.id
               WHERE stt.showtime_id = ? AND tt.active = 1`
	rows, err := r.store.q(ctx).QueryContext(ctx, q, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	types := make(map[uint64]model.TicketType)
	for rows.Next() {
		var t model.TicketType
		var active int
		if err := rows.Scan(&t.ID, &t.Name, &t.Kind, &t.Value, &active); err != nil {
			return nil, err
		}
		t.Active = active == 1
		types[t.ID] = t
	}
	return types, rows.Err()
}

// PriceSnapshot assembles the pricing configuration in one read: the
// currently active base price and every active modifier.  The engine
// receives this snapshot explicitly so a mid-request config change can
// never split one operation across two price worlds.  A missing active
// base price is reported lazily via Snapshot.SeatBase, since seat units
// may carry their own override.
func (r *CatalogRepo) PriceSnapshot(ctx context.Context) (*pricing.Snapshot, error) {
	snap := &pricing.Snapshot{}

	const baseQ = `SELECT price_cents FROM base_prices
                   WHERE active = 1 AND effective_from <= UTC_TIMESTAMP()
                     AND (effective_to IS NULL OR effective_to > UTC_TIMESTAMP())
                   ORDER BY effective_from DESC LIMIT 1`
	err := r.store.q(ctx).QueryRowContext(ctx, baseQ).Scan(&snap.BasePriceCents)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	const modQ = `SELECT id, condition_type, condition_value, kind, value, active
                  FROM pricing_modifiers WHERE active = 1 ORDER BY id`
	rows, err := r.store.q(ctx).QueryContext(ctx, modQ)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var m pricing.Modifier
		var active int
		if err := rows.Scan(&m.ID, &m.ConditionType, &m.ConditionValue, &m.Kind, &m.Value, &active); err != nil {
			return nil, err
		}
		m.Active = active == 1
		snap.Modifiers = append(snap.Modifiers, m)
	}
	return snap, rows.Err()
}
