// Package commands implements the administrative surface: the slash
// commands the relay answers once an event has cleared the pipeline.
// Privilege enforcement happens here — the admin-capability check for
// admin commands, owner identity equality for owner commands (the license
// service re-checks the latter).
//
// Command failures are reported back to the requester with a short
// diagnostic; reply/transport failures are logged and never escalated.
package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/coretraderinfo-glitch/trojan-bot/internal/authcache"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/domain"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/services"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/store"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/sysutil"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/transport"
)

// Store is the persistence contract the command layer needs.
type Store interface {
	Connected() bool
	FindGroup(ctx context.Context, chatID int64) (*domain.Group, error)
	GetSetting(ctx context.Context, key string) (*domain.Setting, error)
	UpsertSetting(ctx context.Context, key, value string) error
	FindInactiveUsers(ctx context.Context, cutoff time.Time) ([]domain.User, error)
	ListLicensesIssued(ctx context.Context, createdBy int64) ([]domain.License, error)
}

// Licenses is the activation contract the command layer needs.
type Licenses interface {
	Issue(ctx context.Context, requesterID int64) (*domain.License, error)
	Activate(ctx context.Context, chatID int64, chatTitle string, actorID int64, key string) error
	Override(ctx context.Context, chatID int64, chatTitle string, actorID int64) error
}

// AdminChecker answers admin-capability queries.
type AdminChecker interface {
	IsAdmin(ctx context.Context, ev *transport.Event) bool
}

// Handler routes slash commands to their implementations.
type Handler struct {
	Store     Store
	Licenses  Licenses
	Admins    AdminChecker
	Cache     *authcache.Cache
	Transport transport.Client

	// BotID is the relay's own identity, used by the debug audit to check
	// whether the relay holds the administrator role.
	BotID int64

	log zerolog.Logger
}

// New constructs a command Handler.
func New(st Store, lic Licenses, admins AdminChecker, cache *authcache.Cache, tr transport.Client, botID int64, log zerolog.Logger) *Handler {
	return &Handler{
		Store:     st,
		Licenses:  lic,
		Admins:    admins,
		Cache:     cache,
		Transport: tr,
		BotID:     botID,
		log:       log.With().Str("component", "commands").Logger(),
	}
}

// Parse splits a command message into its name (lowercased, bot mention
// stripped) and the remaining argument string. It returns ok=false when the
// text is not a command.
func Parse(text string) (name, args string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	rest := text[1:]
	if rest == "" {
		return "", "", false
	}
	if i := strings.IndexByte(rest, ' '); i >= 0 {
		name, args = rest[:i], strings.TrimSpace(rest[i+1:])
	} else {
		name = rest
	}
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	return strings.ToLower(name), args, name != ""
}

// Dispatch handles the event's command, if any. It returns true when the
// event carried a command this handler owns.
func (h *Handler) Dispatch(ctx context.Context, ev *transport.Event) bool {
	name, args, ok := Parse(ev.Text)
	if !ok {
		return false
	}

	switch name {
	case "ping":
		h.ping(ctx, ev)
	case "id":
		h.identity(ctx, ev)
	case "debug":
		h.debug(ctx, ev)
	case "activate":
		h.activate(ctx, ev, args)
	case "setadmin":
		h.setAdmin(ctx, ev, args)
	case "kick_inactive":
		h.kickInactive(ctx, ev, args)
	case "generate_key":
		h.generateKey(ctx, ev)
	case "unlock":
		h.unlock(ctx, ev)
	default:
		return false
	}
	return true
}

// reply sends a message back to the event's chat, logging transport failures.
func (h *Handler) reply(ctx context.Context, ev *transport.Event, text string) {
	if err := h.Transport.SendMessage(ctx, ev.ChatID, text); err != nil {
		h.log.Error().Err(err).Int64("chat_id", ev.ChatID).Msg("reply failed")
	}
}

// ping answers the liveness check, including store state.
func (h *Handler) ping(ctx context.Context, ev *transport.Event) {
	state := "disconnected"
	if h.Store.Connected() {
		state = "connected"
	}
	h.reply(ctx, ev, fmt.Sprintf("Pong! Relay alive.\n(Store: %s)", state))
}

// identity reports the sender and chat identifiers.
func (h *Handler) identity(ctx context.Context, ev *transport.Event) {
	h.reply(ctx, ev, fmt.Sprintf("User: %d\nChat: %d", ev.SenderID, ev.ChatID))
}

// debug produces the audit report: persisted authorization, cache
// membership, and whether the relay holds the admin role. Admin only.
func (h *Handler) debug(ctx context.Context, ev *transport.Event) {
	if !h.Admins.IsAdmin(ctx, ev) {
		h.reply(ctx, ev, "Admins only.")
		return
	}

	dbAuth := false
	if grp, err := h.Store.FindGroup(ctx, ev.ChatID); err == nil {
		dbAuth = grp.IsAuthorized
	}

	botAdmin := false
	if role, err := h.Transport.MemberRole(ctx, ev.ChatID, h.BotID); err == nil {
		botAdmin = role == transport.RoleAdministrator || role == transport.RoleCreator
	}

	h.reply(ctx, ev, fmt.Sprintf(
		"Audit Report\nDB auth: %s\nCache: %s\nBot admin: %s",
		yesNo(dbAuth), yesNo(h.Cache.Has(ev.ChatID)), yesNo(botAdmin),
	))
}

// activate redeems a license key for the current chat. Admin only.
func (h *Handler) activate(ctx context.Context, ev *transport.Event, key string) {
	if !h.Admins.IsAdmin(ctx, ev) {
		h.reply(ctx, ev, "Admins only.")
		return
	}
	if key == "" {
		h.reply(ctx, ev, "Usage: /activate <KEY>")
		return
	}

	err := h.Licenses.Activate(ctx, ev.ChatID, ev.ChatTitle, ev.SenderID, key)
	switch {
	case err == nil:
		h.reply(ctx, ev, "Group authorized successfully.")
	case errors.Is(err, services.ErrInvalidKey):
		h.reply(ctx, ev, "Invalid key.")
	case errors.Is(err, services.ErrAlreadyRedeemed):
		h.reply(ctx, ev, "Key already redeemed.")
	default:
		h.log.Error().Err(err).Int64("chat_id", ev.ChatID).Msg("activation failed")
		h.reply(ctx, ev, "Activation error, please retry later.")
	}
}

// setAdmin stores the contact tag mentioned in security alerts. Admin only.
func (h *Handler) setAdmin(ctx context.Context, ev *transport.Event, target string) {
	if !h.Admins.IsAdmin(ctx, ev) {
		h.reply(ctx, ev, "Admins only.")
		return
	}
	if target == "" {
		target = "@" + ev.SenderName
	}
	if err := h.Store.UpsertSetting(ctx, domain.SettingAdminContact, target); err != nil {
		h.log.Error().Err(err).Msg("setting upsert failed")
		h.reply(ctx, ev, "Settings error.")
		return
	}
	h.reply(ctx, ev, "Admin contact set to: "+target)
}

// kickInactive sweeps participants idle for more than the given number of
// days: ban then unban, which removes without a permanent ban. Admin only.
func (h *Handler) kickInactive(ctx context.Context, ev *transport.Event, args string) {
	if !h.Admins.IsAdmin(ctx, ev) {
		h.reply(ctx, ev, "Admins only.")
		return
	}
	days, err := strconv.Atoi(args)
	if err != nil || days <= 0 {
		h.reply(ctx, ev, "Usage: /kick_inactive <days>")
		return
	}

	cutoff := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	inactive, err := h.Store.FindInactiveUsers(ctx, cutoff)
	if err != nil {
		h.log.Error().Err(err).Msg("inactive lookup failed")
		h.reply(ctx, ev, "Cleanup error.")
		return
	}
	if len(inactive) == 0 {
		h.reply(ctx, ev, "No inactive users.")
		return
	}

	h.reply(ctx, ev, fmt.Sprintf("Kicking %d inactive users...", len(inactive)))
	for _, u := range inactive {
		if err := h.Transport.BanMember(ctx, ev.ChatID, u.UserID); err != nil {
			h.log.Warn().Err(err).Int64("user_id", u.UserID).Msg("ban failed")
			continue
		}
		if err := h.Transport.UnbanMember(ctx, ev.ChatID, u.UserID); err != nil {
			h.log.Warn().Err(err).Int64("user_id", u.UserID).Msg("unban failed")
		}
	}
	h.reply(ctx, ev, "Cleanup done.")
}

// generateKey issues a fresh license key. Owner only; the license service
// enforces the identity check.
func (h *Handler) generateKey(ctx context.Context, ev *transport.Event) {
	lic, err := h.Licenses.Issue(ctx, ev.SenderID)
	switch {
	case err == nil:
		h.log.Info().Str("key", sysutil.MaskID(lic.Key)).Msg("license issued")
		reply := "New key: " + lic.Key
		if issued, lerr := h.Store.ListLicensesIssued(ctx, ev.SenderID); lerr == nil {
			reply = fmt.Sprintf("%s\n(%d keys issued so far.)", reply, len(issued))
		}
		h.reply(ctx, ev, reply)
	case errors.Is(err, services.ErrPermissionDenied):
		h.reply(ctx, ev, "Owner only.")
	case errors.Is(err, store.ErrUnavailable):
		h.reply(ctx, ev, "Store unavailable, please retry later.")
	default:
		h.log.Error().Err(err).Msg("key issuance failed")
		h.reply(ctx, ev, "Key issuance error.")
	}
}

// unlock authorizes the current chat without consuming a key. Owner only;
// the license service enforces the identity check.
func (h *Handler) unlock(ctx context.Context, ev *transport.Event) {
	err := h.Licenses.Override(ctx, ev.ChatID, ev.ChatTitle, ev.SenderID)
	switch {
	case err == nil:
		h.reply(ctx, ev, "Override: group authorized.")
	case errors.Is(err, services.ErrPermissionDenied):
		h.reply(ctx, ev, "Owner only.")
	default:
		h.log.Error().Err(err).Int64("chat_id", ev.ChatID).Msg("override failed")
		h.reply(ctx, ev, "Override error.")
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
