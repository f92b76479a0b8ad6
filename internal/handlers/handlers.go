// Package handlers implements the non-command feature handlers that consume
// the pipeline's guarantees: document moderation, new-member verification
// alerts, and the promotion notice when the relay gains the admin role.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/coretraderinfo-glitch/trojan-bot/internal/domain"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/metrics"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/repo"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/transport"
)

// SettingStore is the persistence contract this package needs.
type SettingStore interface {
	GetSetting(ctx context.Context, key string) (*domain.Setting, error)
	CreateSecurityLog(ctx context.Context, kind string, userID int64, username string, chatID int64, chatTitle, details string) error
}

// Handler reacts to non-command events.
type Handler struct {
	Store     SettingStore
	Transport transport.Client

	// BannedExtensions lists lowercased file suffixes that are removed on
	// sight (".exe", ".apk", ...).
	BannedExtensions []string

	log zerolog.Logger
}

// New constructs a feature Handler.
func New(st SettingStore, tr transport.Client, bannedExtensions []string, log zerolog.Logger) *Handler {
	return &Handler{
		Store:            st,
		Transport:        tr,
		BannedExtensions: bannedExtensions,
		log:              log.With().Str("component", "handlers").Logger(),
	}
}

// Handle routes the event to the matching feature handler. It returns true
// when the event was consumed by one of them.
func (h *Handler) Handle(ctx context.Context, ev *transport.Event) bool {
	switch {
	case ev.Document != nil:
		h.document(ctx, ev)
		return true
	case len(ev.NewMembers) > 0:
		h.newMembers(ctx, ev)
		return true
	case ev.BotStatus == transport.RoleAdministrator:
		h.promoted(ctx, ev)
		return true
	}
	return false
}

// document removes attachments with a banned extension, alerts the chat,
// and records a MALWARE security-log entry.
func (h *Handler) document(ctx context.Context, ev *transport.Event) {
	name := strings.ToLower(ev.Document.FileName)
	banned := false
	for _, ext := range h.BannedExtensions {
		if ext != "" && strings.HasSuffix(name, ext) {
			banned = true
			break
		}
	}
	if !banned {
		return
	}

	if err := h.Transport.DeleteMessage(ctx, ev.ChatID, ev.MessageID); err != nil {
		h.log.Error().Err(err).
			Int64("chat_id", ev.ChatID).
			Int64("message_id", ev.MessageID).
			Msg("document deletion failed")
	}
	if err := h.Store.CreateSecurityLog(ctx, domain.SecurityKindMalware, ev.SenderID, ev.SenderName, ev.ChatID, ev.ChatTitle, name); err != nil {
		h.log.Error().Err(err).Msg("security log write failed")
	}
	metrics.ShieldDeletionsTotal.WithLabelValues(domain.SecurityKindMalware).Inc()

	h.reply(ctx, ev, fmt.Sprintf("Security alert: blocked file (%s) from %s.", name, senderTag(ev)))
}

// newMembers alerts the configured admin contact that someone joined and
// needs verification. Bots joining are ignored.
func (h *Handler) newMembers(ctx context.Context, ev *transport.Event) {
	tag := "Admins"
	if s, err := h.Store.GetSetting(ctx, domain.SettingAdminContact); err == nil && s.Value != "" {
		tag = s.Value
	} else if err != nil && !errors.Is(err, repo.ErrNotFound) {
		h.log.Warn().Err(err).Msg("admin contact lookup failed")
	}

	for _, m := range ev.NewMembers {
		if m.IsBot {
			continue
		}
		h.reply(ctx, ev, fmt.Sprintf("Alert: %s joined. %s, please verify.", m.Name, tag))
	}
}

// promoted announces that the relay can now enforce moderation.
func (h *Handler) promoted(ctx context.Context, ev *transport.Event) {
	h.reply(ctx, ev, "Relay online. I am now an admin. Use /activate to start.")
}

func (h *Handler) reply(ctx context.Context, ev *transport.Event, text string) {
	if err := h.Transport.SendMessage(ctx, ev.ChatID, text); err != nil {
		h.log.Error().Err(err).Int64("chat_id", ev.ChatID).Msg("reply failed")
	}
}

func senderTag(ev *transport.Event) string {
	if ev.SenderName != "" {
		return "@" + ev.SenderName
	}
	return fmt.Sprintf("%d", ev.SenderID)
}
