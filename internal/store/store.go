// Package store implements the persistence gateway: typed CRUD over the
// relay's record kinds with connect-retry, observable connection state, and
// a per-call operation timeout so a slow database can never stall the event
// pipeline indefinitely.
//
// Every method degrades instead of crashing: when the gateway is not
// connected, or a call exceeds its operation timeout, the method returns
// ErrUnavailable (wrapped) and the caller decides whether to fail open,
// skip, or report. Record-absence is reported as repo.ErrNotFound and is
// never conflated with unavailability.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/coretraderinfo-glitch/trojan-bot/internal/domain"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/repo"
)

// ErrUnavailable reports that the persistent store cannot be reached right
// now: not yet connected, connection lost, or the per-call timeout fired.
var ErrUnavailable = errors.New("store unavailable")

// Options configures the gateway.
type Options struct {
	// Path is the SQLite database file path.
	Path string
	// OpTimeout bounds every live read/write (distinct from connection retry).
	OpTimeout time.Duration
	// ConnectAttempts bounds the connect retry loop.
	ConnectAttempts int
	// ConnectBackoff is the fixed delay between connect attempts.
	ConnectBackoff time.Duration
	// TraceQueries installs the GORM OpenTelemetry plugin when true.
	TraceQueries bool
}

// Store is the persistence gateway. Safe for concurrent use.
type Store struct {
	opts Options
	log  zerolog.Logger

	db        atomic.Pointer[gorm.DB]
	connected atomic.Bool
}

// New constructs a disconnected gateway. Call Connect before use; every
// method fails with ErrUnavailable until the connection is established.
func New(opts Options, log zerolog.Logger) *Store {
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = 2 * time.Second
	}
	if opts.ConnectAttempts <= 0 {
		opts.ConnectAttempts = 10
	}
	if opts.ConnectBackoff <= 0 {
		opts.ConnectBackoff = 5 * time.Second
	}
	return &Store{opts: opts, log: log.With().Str("component", "store").Logger()}
}

// Connect opens the database, retrying with fixed backoff up to the
// configured attempt count, then runs migrations and invokes onConnected.
// It blocks until connected, the attempts are exhausted, or ctx is done.
// The rest of the service keeps running in degraded mode if it fails.
func (s *Store) Connect(ctx context.Context, onConnected func()) error {
	var lastErr error
	for attempt := 1; attempt <= s.opts.ConnectAttempts; attempt++ {
		s.log.Info().Int("attempt", attempt).Msg("connecting to database")

		db, err := s.open()
		if err == nil {
			s.db.Store(db)
			s.connected.Store(true)
			s.log.Info().Msg("database connected")
			if onConnected != nil {
				onConnected()
			}
			return nil
		}

		lastErr = err
		s.log.Error().Err(err).Int("attempt", attempt).Msg("database connection failed")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.opts.ConnectBackoff):
		}
	}
	return fmt.Errorf("connect: attempts exhausted: %w", lastErr)
}

func (s *Store) open() (*gorm.DB, error) {
	db, err := repo.OpenSQLite(s.opts.Path)
	if err != nil {
		return nil, err
	}
	if s.opts.TraceQueries {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return nil, err
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Connected reports whether the gateway currently holds a usable connection.
// Pipeline stages consult this to degrade gracefully.
func (s *Store) Connected() bool { return s.connected.Load() }

// Close tears down the connection and flips the gateway to disconnected.
func (s *Store) Close() error {
	s.connected.Store(false)
	db := s.db.Load()
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	s.log.Warn().Msg("database disconnected")
	return sqlDB.Close()
}

// handle returns the live DB handle or ErrUnavailable.
func (s *Store) handle() (*gorm.DB, error) {
	if !s.connected.Load() {
		return nil, ErrUnavailable
	}
	db := s.db.Load()
	if db == nil {
		return nil, ErrUnavailable
	}
	return db, nil
}

// opCtx derives the bounded per-call context.
func (s *Store) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opts.OpTimeout)
}

// wrap maps timeout and cancellation failures to ErrUnavailable, leaving
// ErrNotFound and genuine data errors untouched.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	return err
}

// FindGroup fetches a group record by chat ID.
func (s *Store) FindGroup(ctx context.Context, chatID int64) (*domain.Group, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	g, err := repo.FindGroup(ctx, db, chatID)
	return g, wrap(err)
}

// UpsertGroup writes a group record as authorized, stamping metadata.
func (s *Store) UpsertGroup(ctx context.Context, chatID int64, name string, authorizedBy int64, authorizedAt time.Time) (*domain.Group, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	g, err := repo.UpsertGroup(ctx, db, chatID, name, authorizedBy, authorizedAt)
	return g, wrap(err)
}

// ListAuthorizedGroupIDs returns the chat IDs of all authorized groups.
func (s *Store) ListAuthorizedGroupIDs(ctx context.Context) ([]int64, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	ids, err := repo.ListAuthorizedGroupIDs(ctx, db)
	return ids, wrap(err)
}

// CreateLicense issues a new license key.
func (s *Store) CreateLicense(ctx context.Context, createdBy int64) (*domain.License, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	l, err := repo.CreateLicense(ctx, db, createdBy)
	return l, wrap(err)
}

// FindLicense fetches a license by key.
func (s *Store) FindLicense(ctx context.Context, key string) (*domain.License, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	l, err := repo.FindLicense(ctx, db, key)
	return l, wrap(err)
}

// RedeemLicense transitions a license to redeemed exactly once.
func (s *Store) RedeemLicense(ctx context.Context, id string, redeemedBy, chatID int64, redeemedAt time.Time) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return wrap(repo.RedeemLicense(ctx, db, id, redeemedBy, chatID, redeemedAt))
}

// ListLicensesIssued returns licenses created by the given identity.
func (s *Store) ListLicensesIssued(ctx context.Context, createdBy int64) ([]domain.License, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	out, err := repo.ListLicensesIssued(ctx, db, createdBy)
	return out, wrap(err)
}

// UpsertUser refreshes a participant activity record.
func (s *Store) UpsertUser(ctx context.Context, userID int64, username string, seenAt time.Time) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return wrap(repo.UpsertUser(ctx, db, userID, username, seenAt))
}

// FindInactiveUsers lists participants idle since before the cutoff.
func (s *Store) FindInactiveUsers(ctx context.Context, cutoff time.Time) ([]domain.User, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	out, err := repo.FindInactiveUsers(ctx, db, cutoff)
	return out, wrap(err)
}

// DeleteInactiveUsers prunes participants idle since before the cutoff.
func (s *Store) DeleteInactiveUsers(ctx context.Context, cutoff time.Time) (int64, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	n, err := repo.DeleteInactiveUsers(ctx, db, cutoff)
	return n, wrap(err)
}

// GetSetting fetches a setting by key.
func (s *Store) GetSetting(ctx context.Context, key string) (*domain.Setting, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	v, err := repo.GetSetting(ctx, db, key)
	return v, wrap(err)
}

// UpsertSetting writes a setting value.
func (s *Store) UpsertSetting(ctx context.Context, key, value string) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return wrap(repo.UpsertSetting(ctx, db, key, value))
}

// CreateSecurityLog records a moderation action.
func (s *Store) CreateSecurityLog(ctx context.Context, kind string, userID int64, username string, chatID int64, chatTitle, details string) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return wrap(repo.CreateSecurityLog(ctx, db, kind, userID, username, chatID, chatTitle, details))
}
