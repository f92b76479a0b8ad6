package pipeline

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/coretraderinfo-glitch/trojan-bot/internal/domain"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/metrics"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/transport"
)

// urlRE matches scheme-prefixed URLs, www-prefixed hosts, and bare domains
// with a known suffix.
var urlRE = regexp.MustCompile(`(https?://\S+)|(www\.\S+)|(\b\w+\.(com|net|org|xyz|info|biz|io|me)\b)`)

// ShieldStore is the store capability the shield needs.
type ShieldStore interface {
	CreateSecurityLog(ctx context.Context, kind string, userID int64, username string, chatID int64, chatTitle, details string) error
	Connected() bool
}

// AdminChecker answers whether the sender may bypass content restrictions.
type AdminChecker interface {
	IsAdmin(ctx context.Context, ev *transport.Event) bool
}

// Deleter is the transport capability the shield needs.
type Deleter interface {
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
}

// ContentShield is the third pipeline stage: it removes link-bearing
// messages from senders without the admin capability, deleting the message
// at the transport boundary and recording a security-log entry. No reply is
// sent — gating logic stays invisible to non-admins.
//
// When the store is disconnected the stage is skipped entirely instead of
// half-executing a deletion it cannot record.
type ContentShield struct {
	store  ShieldStore
	admins AdminChecker
	tr     Deleter
	log    zerolog.Logger
}

// NewContentShield constructs the shield.
func NewContentShield(st ShieldStore, admins AdminChecker, tr Deleter, log zerolog.Logger) *ContentShield {
	return &ContentShield{
		store:  st,
		admins: admins,
		tr:     tr,
		log:    log.With().Str("component", "shield").Logger(),
	}
}

// Name implements Stage.
func (s *ContentShield) Name() string { return "shield" }

// Process implements Stage.
func (s *ContentShield) Process(ctx context.Context, ev *transport.Event) bool {
	if ev.Text == "" {
		return true
	}
	if !s.store.Connected() {
		return true
	}

	link := urlRE.FindString(strings.ToLower(ev.Text))
	if link == "" {
		return true
	}
	if s.admins.IsAdmin(ctx, ev) {
		return true
	}

	if err := s.tr.DeleteMessage(ctx, ev.ChatID, ev.MessageID); err != nil {
		s.log.Error().Err(err).
			Int64("chat_id", ev.ChatID).
			Int64("message_id", ev.MessageID).
			Msg("shield deletion failed")
	}

	if err := s.store.CreateSecurityLog(ctx, domain.SecurityKindLink, ev.SenderID, ev.SenderName, ev.ChatID, ev.ChatTitle, link); err != nil {
		metrics.StoreFailuresTotal.WithLabelValues("security_log").Inc()
		s.log.Error().Err(err).Msg("security log write failed")
	}

	metrics.ShieldDeletionsTotal.WithLabelValues(domain.SecurityKindLink).Inc()
	s.log.Info().
		Int64("user_id", ev.SenderID).
		Int64("chat_id", ev.ChatID).
		Str("link", link).
		Msg("link blocked")
	return false
}
