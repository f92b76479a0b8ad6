// Package admin implements the admin-capability check: the predicate that
// decides whether a sender may run privileged commands or bypass content
// restrictions. The check never mutates state and fails closed — when the
// live role query errors, the answer is "not an admin".
package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"

	"github.com/coretraderinfo-glitch/trojan-bot/internal/transport"
)

// AnonymousAdminID is the platform's well-known sentinel identity used for
// admins posting anonymously on behalf of the group.
const AnonymousAdminID int64 = 1087968824

// RoleQuerier is the transport capability the checker needs.
type RoleQuerier interface {
	MemberRole(ctx context.Context, chatID, userID int64) (string, error)
}

// Checker answers admin-capability queries, caching live role lookups for a
// short TTL to keep chatty groups from hammering the transport.
type Checker struct {
	owner int64
	roles RoleQuerier
	cache *expirable.LRU[string, bool]
	log   zerolog.Logger
}

// NewChecker constructs a Checker. cacheSize bounds the role cache entries
// and ttl bounds their staleness; a revoked admin keeps the capability for
// at most ttl.
func NewChecker(owner int64, roles RoleQuerier, cacheSize int, ttl time.Duration, log zerolog.Logger) *Checker {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Checker{
		owner: owner,
		roles: roles,
		cache: expirable.NewLRU[string, bool](cacheSize, nil, ttl),
		log:   log.With().Str("component", "admin").Logger(),
	}
}

// IsAdmin reports whether the event's sender holds the admin capability in
// the event's chat context.
//
// The sender qualifies when any of the following hold:
//   - the sender is the configured owner,
//   - the event occurred in a one-to-one context,
//   - the sender is the platform's anonymous-admin sentinel,
//   - a live role query reports administrator or creator.
//
// A failed role query yields false: privilege escalation fails closed.
func (c *Checker) IsAdmin(ctx context.Context, ev *transport.Event) bool {
	if ev.SenderID == 0 {
		return false
	}
	if c.owner != 0 && ev.SenderID == c.owner {
		return true
	}
	if ev.Private() {
		return true
	}
	if ev.SenderID == AnonymousAdminID {
		return true
	}

	key := fmt.Sprintf("%d/%d", ev.ChatID, ev.SenderID)
	if ok, hit := c.cache.Get(key); hit {
		return ok
	}

	role, err := c.roles.MemberRole(ctx, ev.ChatID, ev.SenderID)
	if err != nil {
		// Happens when the relay was kicked or has never seen the user.
		c.log.Warn().Err(err).
			Int64("chat_id", ev.ChatID).
			Int64("user_id", ev.SenderID).
			Msg("role query failed, denying admin capability")
		return false
	}

	isAdmin := role == transport.RoleAdministrator || role == transport.RoleCreator
	c.cache.Add(key, isAdmin)
	return isAdmin
}
