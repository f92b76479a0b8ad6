// Package services – LicenseService
//
// This file implements the license and activation state machine. A license
// moves ISSUED → REDEEMED exactly once; a group moves UNAUTHORIZED →
// AUTHORIZED. The service is the sole writer of new authorization-cache
// entries outside the periodic reload.
//
// The two persistence writes in Activate (redeem the key, authorize the
// group) are deliberately not a transaction: the gateway stays generic over
// keyed document stores that only offer per-record upserts. A crash between
// the writes burns the key without authorizing the group; the debug command
// surfaces the divergence and the owner can recover with an override. The
// trade-off favors "key is spent" over any chance of silent double use.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/coretraderinfo-glitch/trojan-bot/internal/domain"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/repo"
)

// LicenseStore defines the persistence contract required by LicenseService.
// *store.Store satisfies it.
type LicenseStore interface {
	// CreateLicense persists a fresh, unredeemed license key.
	CreateLicense(ctx context.Context, createdBy int64) (*domain.License, error)

	// FindLicense fetches a license by its key.
	FindLicense(ctx context.Context, key string) (*domain.License, error)

	// RedeemLicense transitions a license to redeemed exactly once; it
	// reports repo.ErrNotFound when the row was already redeemed.
	RedeemLicense(ctx context.Context, id string, redeemedBy, chatID int64, redeemedAt time.Time) error

	// UpsertGroup writes the group record as authorized.
	UpsertGroup(ctx context.Context, chatID int64, name string, authorizedBy int64, authorizedAt time.Time) (*domain.Group, error)
}

// AuthCache is the subset of the authorization cache the service needs.
type AuthCache interface {
	Add(chatID int64)
}

// LicenseService validates and redeems license keys and flips groups to
// authorized. Privilege checks for Activate (admin capability) belong to the
// command layer; owner checks for Issue and Override are enforced here
// because they are identity equality, not a capability query.
type LicenseService struct {
	// Store is the persistence gateway.
	Store LicenseStore
	// Cache receives the chat ID immediately after a successful
	// activation or override.
	Cache AuthCache
	// OwnerID is the configured owner identity. Zero means unconfigured,
	// which denies every owner-only operation.
	OwnerID int64

	// now is a test seam.
	now func() time.Time
}

// NewLicenseService constructs a LicenseService.
func NewLicenseService(store LicenseStore, cache AuthCache, ownerID int64) *LicenseService {
	return &LicenseService{
		Store:   store,
		Cache:   cache,
		OwnerID: ownerID,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Issue generates and persists a new license key. Only the owner identity
// may issue keys; everyone else gets ErrPermissionDenied.
func (s *LicenseService) Issue(ctx context.Context, requesterID int64) (*domain.License, error) {
	if s.OwnerID == 0 || requesterID != s.OwnerID {
		return nil, ErrPermissionDenied
	}
	return s.Store.CreateLicense(ctx, requesterID)
}

// Activate redeems a license key and authorizes the group.
//
// Failure modes:
//   - ErrInvalidKey when no license carries the key,
//   - ErrAlreadyRedeemed when the key was spent (including a concurrent
//     activation racing this one),
//   - the store error otherwise (e.g. store.ErrUnavailable).
//
// Re-activating an already-authorized group with a fresh key succeeds and
// re-stamps the authorization metadata; keys are a one-time resource
// independent of group state.
func (s *LicenseService) Activate(ctx context.Context, chatID int64, chatTitle string, actorID int64, key string) error {
	lic, err := s.Store.FindLicense(ctx, key)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrInvalidKey
		}
		return fmt.Errorf("activate: %w", err)
	}
	if lic.IsRedeemed {
		return ErrAlreadyRedeemed
	}

	now := s.now()
	if err := s.Store.RedeemLicense(ctx, lic.ID, actorID, chatID, now); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			// Lost the race against another activation with the same key.
			return ErrAlreadyRedeemed
		}
		return fmt.Errorf("activate: redeem: %w", err)
	}

	// The key is spent from here on, even if the group write fails.
	if _, err := s.Store.UpsertGroup(ctx, chatID, normalizeTitle(chatTitle), actorID, now); err != nil {
		return fmt.Errorf("activate: authorize group: %w", err)
	}

	s.Cache.Add(chatID)
	return nil
}

// Override unconditionally authorizes the group, bypassing license
// consumption. Owner only.
func (s *LicenseService) Override(ctx context.Context, chatID int64, chatTitle string, actorID int64) error {
	if s.OwnerID == 0 || actorID != s.OwnerID {
		return ErrPermissionDenied
	}
	if _, err := s.Store.UpsertGroup(ctx, chatID, normalizeTitle(chatTitle), actorID, s.now()); err != nil {
		return fmt.Errorf("override: %w", err)
	}
	s.Cache.Add(chatID)
	return nil
}

// normalizeTitle puts chat titles into NFC so the same group always stores
// the same byte sequence regardless of how the platform composed it.
func normalizeTitle(title string) string {
	return norm.NFC.String(title)
}
