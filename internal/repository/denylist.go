package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryDenylist records revoked token ids in process memory. Entries are
// dropped once the token would have expired anyway, so its size is bounded
// by the number of tokens revoked within one token lifetime.
type MemoryDenylist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryDenylist creates an empty MemoryDenylist.
func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Revoke marks tokenID as revoked until the given time.
func (d *MemoryDenylist) Revoke(_ context.Context, tokenID string, until time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for id, exp := range d.entries {
		if !exp.After(now) {
			delete(d.entries, id)
		}
	}
	if until.After(now) {
		d.entries[tokenID] = until
	}
	return nil
}

// IsRevoked reports whether tokenID is currently revoked.
func (d *MemoryDenylist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	exp, ok := d.entries[tokenID]
	return ok && exp.After(d.now()), nil
}

// Len returns the number of tracked entries, expired or not.
func (d *MemoryDenylist) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}
