package pipeline

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/coretraderinfo-glitch/trojan-bot/internal/authcache"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/domain"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/metrics"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/repo"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/store"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/transport"
)

// selfServiceRE matches the fixed allowlist of commands that must work even
// in unauthorized groups, so a group can unlock itself. Mentions like
// /activate@SomeBot are accepted.
var selfServiceRE = regexp.MustCompile(`^/(activate|id|unlock|debug|ping)(@[\w]+)?($|\s)`)

// GroupFinder is the store capability the gate needs.
type GroupFinder interface {
	FindGroup(ctx context.Context, chatID int64) (*domain.Group, error)
	Connected() bool
}

// AuthGate is the first pipeline stage: it decides whether the event's group
// is entitled to service.
//
// Decision order: private contexts always pass; self-service commands always
// pass; cache hit passes; otherwise the store is consulted with the
// gateway's bounded timeout. When the store is unreachable the gate fails
// open — freezing every message on a store outage is worse than a temporary
// authorization bypass. An unauthorized answer drops the event silently.
type AuthGate struct {
	cache *authcache.Cache
	store GroupFinder
	warn  *rate.Limiter
	log   zerolog.Logger
}

// NewAuthGate constructs the gate. The internal limiter throttles fail-open
// warnings so a store outage in a busy group does not flood the log.
func NewAuthGate(cache *authcache.Cache, st GroupFinder, log zerolog.Logger) *AuthGate {
	return &AuthGate{
		cache: cache,
		store: st,
		warn:  rate.NewLimiter(rate.Limit(0.2), 1), // one warning per 5s
		log:   log.With().Str("component", "authgate").Logger(),
	}
}

// Name implements Stage.
func (g *AuthGate) Name() string { return "auth" }

// Process implements Stage.
func (g *AuthGate) Process(ctx context.Context, ev *transport.Event) bool {
	if ev.Private() {
		return true
	}

	if selfServiceRE.MatchString(ev.Text) {
		g.log.Info().
			Str("command", firstToken(ev.Text)).
			Int64("chat_id", ev.ChatID).
			Str("chat_title", ev.ChatTitle).
			Int64("user_id", ev.SenderID).
			Msg("self-service command admitted")
		return true
	}

	if g.cache.Has(ev.ChatID) {
		return true
	}

	if !g.store.Connected() {
		g.failOpen(ev, store.ErrUnavailable)
		return true
	}

	grp, err := g.store.FindGroup(ctx, ev.ChatID)
	switch {
	case err == nil && grp.IsAuthorized:
		// Backfill so the next event in this chat skips the store.
		g.cache.Add(ev.ChatID)
		return true
	case err == nil || errors.Is(err, repo.ErrNotFound):
		if strings.HasPrefix(ev.Text, "/") {
			g.log.Info().
				Str("command", firstToken(ev.Text)).
				Int64("chat_id", ev.ChatID).
				Str("chat_title", ev.ChatTitle).
				Msg("command ignored in unauthorized group")
		}
		return false
	default:
		// Store did not answer; availability wins over strict gating.
		g.failOpen(ev, err)
		return true
	}
}

func (g *AuthGate) failOpen(ev *transport.Event, err error) {
	metrics.FailOpenTotal.Inc()
	if g.warn.Allow() {
		g.log.Warn().Err(err).
			Int64("chat_id", ev.ChatID).
			Msg("store unreachable, authorization gate failing open")
	}
}

// firstToken returns the leading whitespace-delimited token of s, for logs.
func firstToken(s string) string {
	if i := strings.IndexByte(s, ' '); i > 0 {
		return s[:i]
	}
	return s
}
