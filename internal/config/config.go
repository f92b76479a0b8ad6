// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes settings for the
// ops server, logging, the persistence gateway, the pipeline, background
// jobs, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the relay.
type Config struct {
	// Ops server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	GinMode           string        // debug|release|test

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// Identities
	OwnerID int64 // OWNER_ID; 0 disables owner-only commands
	BotID   int64 // BOT_ID; the relay's own platform identity

	// Transport sidecar
	TransportURL     string        // base URL of the chat-transport sidecar
	TransportTimeout time.Duration // per-call ceiling on outbound capability calls

	// Persistence gateway
	DBPath          string        // SQLite path
	StoreOpTimeout  time.Duration // per-call ceiling on live store operations
	ConnectAttempts int           // bounded connect retry count
	ConnectBackoff  time.Duration // fixed delay between connect attempts

	// Moderation
	BannedExtensions []string // lowercased file suffixes removed on sight

	// Background jobs
	CacheReloadInterval time.Duration // authorization cache refresh period
	PruneInitialDelay   time.Duration // delay before the first pruning sweep
	PruneInterval       time.Duration // pruning sweep period
	PruneThreshold      time.Duration // inactivity span before pruning

	// Admin-capability check
	AdminCacheSize int           // role cache entries
	AdminCacheTTL  time.Duration // role cache staleness bound

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables, applies defaults,
// normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Ops server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		// Identities
		OwnerID: getint64("OWNER_ID", 0),
		BotID:   getint64("BOT_ID", 0),

		// Transport sidecar
		TransportURL:     getenv("TRANSPORT_URL", "http://localhost:8081"),
		TransportTimeout: getdur("TRANSPORT_TIMEOUT", 5*time.Second),

		// Persistence gateway
		DBPath:          getenv("DB_PATH", "relay.db"),
		StoreOpTimeout:  getdur("STORE_OP_TIMEOUT", 2*time.Second),
		ConnectAttempts: getint("DB_CONNECT_ATTEMPTS", 10),
		ConnectBackoff:  getdur("DB_CONNECT_BACKOFF", 5*time.Second),

		// Moderation
		BannedExtensions: splitCSV(strings.ToLower(getenv("BANNED_EXTENSIONS",
			".exe,.apk,.scr,.bat,.cmd,.sh,.com,.msi,.jar"))),

		// Background jobs
		CacheReloadInterval: getdur("CACHE_RELOAD_INTERVAL", 5*time.Minute),
		PruneInitialDelay:   getdur("PRUNE_INITIAL_DELAY", time.Minute),
		PruneInterval:       getdur("PRUNE_INTERVAL", 24*time.Hour),
		PruneThreshold:      getdur("PRUNE_THRESHOLD", 90*24*time.Hour),

		// Admin-capability check
		AdminCacheSize: getint("ADMIN_CACHE_SIZE", 1024),
		AdminCacheTTL:  getdur("ADMIN_CACHE_TTL", time.Minute),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "trojan-bot"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if strings.TrimSpace(cfg.TransportURL) == "" {
		return cfg, errors.New("TRANSPORT_URL must not be empty")
	}
	if cfg.StoreOpTimeout <= 0 || cfg.TransportTimeout <= 0 {
		return cfg, errors.New("operation timeouts must be positive durations")
	}
	if cfg.ConnectAttempts < 1 {
		return cfg, errors.New("DB_CONNECT_ATTEMPTS must be >= 1")
	}
	if cfg.ConnectBackoff <= 0 {
		return cfg, errors.New("DB_CONNECT_BACKOFF must be a positive duration")
	}
	if cfg.CacheReloadInterval <= 0 || cfg.PruneInterval <= 0 || cfg.PruneThreshold <= 0 {
		return cfg, errors.New("job intervals must be positive durations")
	}
	if cfg.PruneInitialDelay < 0 {
		return cfg, errors.New("PRUNE_INITIAL_DELAY must be >= 0")
	}
	if cfg.AdminCacheSize < 1 {
		return cfg, errors.New("ADMIN_CACHE_SIZE must be >= 1")
	}
	if cfg.AdminCacheTTL <= 0 {
		return cfg, errors.New("ADMIN_CACHE_TTL must be a positive duration")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getint64(k string, def int64) int64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
