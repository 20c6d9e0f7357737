// Package reaper runs the periodic sweep that returns seats held by
// expired locks to the available pool.  Lock expiry is enforced lazily at
// read time everywhere else; the sweep is what guarantees abandoned
// sessions free their seats even when nobody touches the lock again.
package reaper

import (
	"context"
	"log"
	"time"
)

// LockReaper is the slice of the lock manager the sweep needs.
type LockReaper interface {
	ReapExpired(ctx context.Context) (int, error)
}

// Reaper sweeps expired locks on a fixed interval until its context is
// cancelled.  Multiple instances may run against the same database;
// deactivation inside the manager elects one winner per lock.
type Reaper struct {
	manager  LockReaper
	interval time.Duration
}

// New builds a Reaper.  interval comes from deployment configuration.
func New(manager LockReaper, interval time.Duration) *Reaper {
	return &Reaper{manager: manager, interval: interval}
}

// Start blocks, sweeping once per interval, and returns when ctx is
// cancelled.  Run it in its own goroutine.
func (r *Reaper) Start(ctx context.Context) {
	log.Printf("reaper: sweeping expired locks every %s", r.interval)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("reaper: stopped")
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	n, err := r.manager.ReapExpired(ctx)
	if err != nil {
		log.Printf("reaper: sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("reaper: released %d expired lock(s)", n)
	}
}
