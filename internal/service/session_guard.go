// Package service wires the domain stores and outbound clients into
// the operations the client's screens call.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/agriconnect/agriclient/internal/domain/session"
)

// DefaultGuardInterval is how often the guard re-validates the session.
const DefaultGuardInterval = 5 * time.Minute

// SessionGuard periodically re-validates that the backend still
// recognizes the locally-held access token (for example after the app
// returns to the foreground). When the backend reports the account
// behind the token as gone, the guard forces a sign-out. Overlapping
// validations share one in-flight check.
type SessionGuard struct {
	store    *session.Store
	api      session.AuthAPI
	logger   *slog.Logger
	interval time.Duration

	flight   singleflight.Group
	stopChan chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// GuardOption configures a SessionGuard.
type GuardOption func(*SessionGuard)

// WithGuardInterval sets the validation interval. Default: 5 minutes.
// A non-positive interval disables the periodic loop; CheckNow still
// works.
func WithGuardInterval(d time.Duration) GuardOption {
	return func(g *SessionGuard) { g.interval = d }
}

// WithGuardLogger sets the logger. Defaults to slog.Default().
func WithGuardLogger(l *slog.Logger) GuardOption {
	return func(g *SessionGuard) { g.logger = l }
}

// NewSessionGuard creates a guard over the given store and auth
// backend.
func NewSessionGuard(store *session.Store, api session.AuthAPI, opts ...GuardOption) *SessionGuard {
	g := &SessionGuard{
		store:    store,
		api:      api,
		logger:   slog.Default(),
		interval: DefaultGuardInterval,
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Start launches the periodic validation goroutine. Call Stop to shut
// it down. The guard is one-shot: once stopped it stays stopped and
// Start becomes a no-op, though CheckNow keeps working.
func (g *SessionGuard) Start(ctx context.Context) {
	if g.interval <= 0 {
		return
	}
	select {
	case <-g.stopChan:
		return
	default:
	}
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		ticker := time.NewTicker(g.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-g.stopChan:
				return
			case <-ticker.C:
				g.CheckNow(ctx)
			}
		}
	}()
}

// Stop stops the validation goroutine and waits for it to exit. Safe
// to call multiple times.
func (g *SessionGuard) Stop() {
	g.once.Do(func() {
		close(g.stopChan)
	})
	g.wg.Wait()
}

// CheckNow validates the current session immediately. Concurrent calls
// share one validation; only the shared one can trigger a sign-out, so
// the store is never signed out twice for the same failure.
func (g *SessionGuard) CheckNow(ctx context.Context) {
	_, _, _ = g.flight.Do("validate", func() (any, error) {
		g.validate(ctx)
		return nil, nil
	})
}

func (g *SessionGuard) validate(ctx context.Context) {
	sess, err := g.store.GetSession(ctx)
	if err != nil || sess == nil {
		// Nothing to validate; refresh failures are the store's business.
		return
	}

	_, err = g.api.Profile(ctx, sess.AccessToken)
	if err == nil {
		return
	}
	if errors.Is(err, session.ErrNetworkUnavailable) {
		g.logger.Debug("session validation skipped, network unavailable")
		return
	}

	var serverErr *session.ServerError
	if errors.As(err, &serverErr) && accountGone(serverErr.Status) {
		g.logger.Warn("backend no longer recognizes session, signing out", "status", serverErr.Status)
		_ = g.store.SignOut(ctx)
	}
}

// accountGone reports whether the profile endpoint's status means the
// account behind the token is missing or revoked.
func accountGone(status int) bool {
	switch status {
	case 401, 403, 404:
		return true
	}
	return false
}
