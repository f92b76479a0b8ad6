// Package authcache holds the process-local set of chat IDs known to be
// authorized. It is an eventually-consistent mirror of the Group records:
// the store stays authoritative, the cache only makes the common path cheap.
//
// Entries are only ever added between reloads, so a stale-allow cannot occur
// by construction; a freshly authorized group may be missing until the next
// reload or an explicit Add. Reload builds a replacement set and swaps it in
// atomically, so concurrent readers never observe a transiently empty cache.
package authcache

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Lister supplies the authoritative list of authorized chat IDs.
// *store.Store satisfies it.
type Lister interface {
	ListAuthorizedGroupIDs(ctx context.Context) ([]int64, error)
}

// Cache is a concurrency-safe authorized-group set.
type Cache struct {
	mu  sync.RWMutex
	set map[int64]struct{}
	log zerolog.Logger
}

// New returns an empty cache.
func New(log zerolog.Logger) *Cache {
	return &Cache{
		set: make(map[int64]struct{}),
		log: log.With().Str("component", "authcache").Logger(),
	}
}

// Has reports whether the chat is known authorized. O(1), no I/O.
func (c *Cache) Has(chatID int64) bool {
	c.mu.RLock()
	_, ok := c.set[chatID]
	c.mu.RUnlock()
	return ok
}

// Add inserts a chat into the set. Idempotent. Called right after a
// successful activation or override so the group is served without waiting
// for the next reload.
func (c *Cache) Add(chatID int64) {
	c.mu.Lock()
	c.set[chatID] = struct{}{}
	c.mu.Unlock()
}

// Len returns the current membership count.
func (c *Cache) Len() int {
	c.mu.RLock()
	n := len(c.set)
	c.mu.RUnlock()
	return n
}

// Reload repopulates the set from the store. On failure the existing set is
// left untouched and the condition is logged; the cache is never emptied by
// a failed reload. The replacement set is built off-lock and swapped in, so
// readers see either the old or the new membership, never an empty window.
func (c *Cache) Reload(ctx context.Context, lister Lister) error {
	ids, err := lister.ListAuthorizedGroupIDs(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("cache reload failed, keeping previous membership")
		return err
	}

	next := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		next[id] = struct{}{}
	}

	c.mu.Lock()
	c.set = next
	c.mu.Unlock()

	c.log.Info().Int("groups", len(next)).Msg("cache reloaded")
	return nil
}
