// Command trojan-bot runs the moderated group-messaging relay: the event
// pipeline, the activation state machine, the background jobs, and the
// ops/webhook HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coretraderinfo-glitch/trojan-bot/internal/admin"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/authcache"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/bot"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/commands"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/config"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/handlers"
	httpapi "github.com/coretraderinfo-glitch/trojan-bot/internal/http"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/metrics"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/observability"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/pipeline"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/scheduler"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/services"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/store"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/sysutil"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/transport"
)

// version is stamped by the build (-ldflags "-X main.version=...").
var version = "dev"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	logger := log.With().Str("service", "trojan-bot").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		logger.Fatal().Err(err).Msg("otel setup failed")
	}

	// Foundation: persistence gateway + authorization cache.
	st := store.New(store.Options{
		Path:            cfg.DBPath,
		OpTimeout:       cfg.StoreOpTimeout,
		ConnectAttempts: cfg.ConnectAttempts,
		ConnectBackoff:  cfg.ConnectBackoff,
		TraceQueries:    cfg.OTEL.Enabled,
	}, logger)
	cache := authcache.New(logger)

	// Connect in the background; the relay serves (degraded) while retrying.
	go func() {
		err := st.Connect(ctx, func() {
			if err := cache.Reload(ctx, st); err == nil {
				metrics.AuthCacheSize.Set(float64(cache.Len()))
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("store connection abandoned, running in degraded mode")
		}
	}()

	// Capabilities and services.
	tr := transport.NewHTTPClient(cfg.TransportURL, cfg.TransportTimeout)
	admins := admin.NewChecker(cfg.OwnerID, tr, cfg.AdminCacheSize, cfg.AdminCacheTTL, logger)
	licenses := services.NewLicenseService(st, cache, cfg.OwnerID)

	// The filter pipeline, in its fixed order.
	pipe := pipeline.New(logger,
		pipeline.NewAuthGate(cache, st, logger),
		pipeline.NewActivityRecorder(st, logger),
		pipeline.NewContentShield(st, admins, tr, logger),
	)

	dispatcher := bot.New(
		pipe,
		commands.New(st, licenses, admins, cache, tr, cfg.BotID, logger),
		handlers.New(st, tr, cfg.BannedExtensions, logger),
		logger,
	)

	// Background jobs.
	sched := scheduler.New(logger)
	go sched.RunCacheReload(ctx, cache, st, cfg.CacheReloadInterval)
	go sched.RunPruning(ctx, st, cfg.PruneInitialDelay, cfg.PruneInterval, cfg.PruneThreshold)

	// Ops/webhook server.
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	httpapi.RegisterRoutes(router, cfg.OTEL.ServiceName, dispatcher, st)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
	go func() {
		logger.Info().Str("port", cfg.Port).Msg("ops server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("ops server failed")
			stop()
		}
	}()

	if cfg.OwnerID != 0 {
		logger.Info().Str("version", version).Msg("relay deployed, owner configured")
	} else {
		logger.Warn().Str("version", version).Msg("relay deployed, owner not configured")
	}

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("ops server shutdown failed")
	}
	if err := st.Close(); err != nil {
		logger.Error().Err(err).Msg("store close failed")
	}
	if err := otelShutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("otel shutdown failed")
	}
}
