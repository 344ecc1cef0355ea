package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/agriconnect/agriclient/internal/adapter/outbound/advisor"
	"github.com/agriconnect/agriclient/internal/adapter/outbound/authapi"
	"github.com/agriconnect/agriclient/internal/adapter/outbound/netprobe"
	"github.com/agriconnect/agriclient/internal/adapter/outbound/storage"
	"github.com/agriconnect/agriclient/internal/adapter/outbound/verify"
	"github.com/agriconnect/agriclient/internal/config"
	"github.com/agriconnect/agriclient/internal/domain/advisory"
	"github.com/agriconnect/agriclient/internal/domain/cache"
	"github.com/agriconnect/agriclient/internal/domain/session"
	"github.com/agriconnect/agriclient/internal/metrics"
	"github.com/agriconnect/agriclient/internal/port/outbound"
	"github.com/agriconnect/agriclient/internal/service"
)

// app bundles the wired components a command needs. Build one per
// invocation with newApp and release it with close.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	kv      outbound.KeyValueStore
	api     *authapi.Client
	store   *session.Store
	fetcher *cache.Fetcher
	advice  *service.AdvisorService
	guard   *service.SessionGuard

	closers []func()
}

// newApp loads configuration and wires storage, the auth backend
// client, the session store, and the cache-first fetcher. The persisted
// session is restored before the app is handed to the command.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	if used := config.ConfigFileUsed(); used != "" {
		logger.Debug("loaded config file", "path", used)
	}

	a := &app{cfg: cfg, logger: logger}

	if err := a.wireStorage(); err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	a.api = authapi.NewClient(cfg.Backend.URL, cfg.Backend.AnonKey,
		authapi.WithLogger(logger))

	a.store = session.NewStore(a.api, a.kv,
		session.WithLogger(logger),
		session.WithMetrics(m),
		session.WithExpiryBuffer(cfg.ExpiryBufferDuration()),
	)
	a.closers = append(a.closers, a.store.Close)

	probe, err := a.wireProbe()
	if err != nil {
		return nil, err
	}
	a.fetcher = cache.NewFetcher(a.kv, probe,
		cache.WithFetcherLogger(logger),
		cache.WithFetcherMetrics(m),
		cache.WithMaxEntries(cfg.Cache.MaxEntries),
	)

	ai := advisor.NewClient(cfg.AI.ProxyURL, cfg.Backend.AnonKey,
		advisor.WithLogger(logger))
	a.advice = service.NewAdvisorService(ai, a.fetcher, logger)

	a.guard = service.NewSessionGuard(a.store, a.api,
		service.WithGuardLogger(logger),
		service.WithGuardInterval(cfg.GuardIntervalDuration()),
	)

	if _, err := a.store.RestoreSession(ctx); err != nil {
		logger.Debug("no session restored", "error", err)
	}
	return a, nil
}

// close releases held resources in reverse wiring order.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) wireStorage() error {
	backend := a.cfg.Storage.Backend
	switch {
	case backend == "memory":
		a.kv = storage.NewMemoryStore()
	case len(backend) > 7 && backend[:7] == "file://":
		a.kv = storage.NewFileStore(a.cfg.Storage.Path(), a.logger)
	default:
		db, err := storage.NewSQLiteStore(a.cfg.Storage.Path())
		if err != nil {
			return fmt.Errorf("open sqlite store: %w", err)
		}
		a.kv = db
		a.closers = append(a.closers, func() { _ = db.Close() })
	}
	return nil
}

func (a *app) wireProbe() (cache.Probe, error) {
	if offline {
		return cache.StaticProbe(false), nil
	}
	return netprobe.New(a.cfg.Backend.URL, 0)
}

// verifier returns the Twilio Verify client, or an error when the
// credentials are not configured.
func (a *app) verifier() (*verify.Client, error) {
	if !a.cfg.Twilio.Configured() {
		return nil, fmt.Errorf("two-factor codes require twilio credentials in the config")
	}
	return verify.NewClient(
		a.cfg.Twilio.AccountSID,
		a.cfg.Twilio.AuthToken,
		a.cfg.Twilio.VerifyServiceSID,
		verify.WithLogger(a.logger),
	), nil
}

// mustSession returns the current valid session or a sign-in hint.
func (a *app) mustSession(ctx context.Context) (*session.Session, error) {
	sess, err := a.store.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("not signed in, run: agriclient login")
	}
	return sess, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// language parses the --lang flag, defaulting to English.
func language() advisory.Language {
	switch lang {
	case "tw":
		return advisory.LangTwi
	case "ee":
		return advisory.LangEwe
	case "ga":
		return advisory.LangGa
	default:
		return advisory.LangEnglish
	}
}

// cachedTag marks output that came from the device cache rather than a
// live answer.
func cachedTag(fromCache bool) string {
	if fromCache {
		return " (cached)"
	}
	return ""
}
