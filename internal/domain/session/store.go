package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/agriconnect/agriclient/internal/metrics"
	"github.com/agriconnect/agriclient/internal/port/outbound"
)

// StorageKey is the key the store owns in the key-value store. No other
// component writes it.
const StorageKey = "agriconnect.session"

// DefaultExpiryBuffer is the minimum remaining lifetime a session must
// have to be considered valid at read time.
const DefaultExpiryBuffer = time.Second

// AuthAPI is the outbound contract with the authentication backend.
// The store depends only on these operations' shapes, not on any
// vendor SDK.
type AuthAPI interface {
	// PasswordGrant exchanges an email/password pair for a token pair.
	PasswordGrant(ctx context.Context, email, password string) (*AuthPayload, error)

	// SignUp registers a new account. The returned payload may carry no
	// access token when the backend requires email confirmation first.
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*AuthPayload, error)

	// RefreshGrant exchanges a refresh token for a new token pair.
	RefreshGrant(ctx context.Context, refreshToken string) (*AuthPayload, error)

	// Profile fetches the full user record for an access token.
	Profile(ctx context.Context, accessToken string) (*User, error)

	// Revoke invalidates the access token server-side.
	Revoke(ctx context.Context, accessToken string) error

	// AuthorizeURL builds the federated sign-in redirect URL for the
	// given provider.
	AuthorizeURL(provider, redirectTo string) string
}

// Listener receives session snapshots on every auth state transition.
// The snapshot is nil after sign-out. Listeners are invoked with the
// store lock held and must not call back into the store.
type Listener func(*Session)

type listenerEntry struct {
	id int
	fn Listener
}

// Store is the single source of truth for the client's session. It owns
// the persisted session value, validates expiry at read time, refreshes
// silently, and notifies subscribers of every transition in order.
//
// Construct one Store per process and pass it by reference to
// consumers. All methods are safe for concurrent use.
type Store struct {
	api      AuthAPI
	kv       outbound.KeyValueStore
	logger   *slog.Logger
	metrics  *metrics.Metrics
	buffer   time.Duration
	now      func() time.Time
	redirect func(url string) error

	// flight de-duplicates concurrent refreshes: overlapping GetSession
	// calls await the same in-flight exchange.
	flight singleflight.Group

	mu        sync.Mutex
	current   *Session
	listeners []listenerEntry
	nextID    int
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// WithMetrics attaches the metrics bundle. Nil records nothing.
func WithMetrics(m *metrics.Metrics) StoreOption {
	return func(s *Store) { s.metrics = m }
}

// WithExpiryBuffer sets the remaining-lifetime buffer used when
// validating a session at read time. Values under one second are
// raised to one second.
func WithExpiryBuffer(d time.Duration) StoreOption {
	return func(s *Store) { s.buffer = d }
}

// WithClock overrides the wall clock. For tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithRedirectFunc sets the function used to send the user agent to an
// external authorization URL. Hosts without a browsing context can
// leave it unset, in which case SignInWithGoogle returns an error.
func WithRedirectFunc(fn func(url string) error) StoreOption {
	return func(s *Store) { s.redirect = fn }
}

// NewStore creates a session store over the given auth backend and
// key-value storage.
func NewStore(api AuthAPI, kv outbound.KeyValueStore, opts ...StoreOption) *Store {
	s := &Store{
		api:    api,
		kv:     kv,
		logger: slog.Default(),
		buffer: DefaultExpiryBuffer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases all subscriptions. The store must not be used after.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = nil
}

// GetSession returns the current session if it is valid. An expired
// session with a refresh token triggers a silent refresh; overlapping
// callers await the same in-flight exchange. Returns (nil, nil) when no
// session is held.
func (s *Store) GetSession(ctx context.Context) (*Session, error) {
	s.mu.Lock()
	cur := s.current
	s.mu.Unlock()

	if cur.ValidAt(s.now(), s.buffer) {
		return cur, nil
	}
	if cur == nil {
		return nil, nil
	}
	if cur.RefreshToken == "" {
		s.clear(ctx)
		return nil, ErrTokenExpiredUnrefreshable
	}
	return s.refresh(ctx, cur.RefreshToken)
}

// RestoreSession loads the persisted session at process start. A valid
// stored session is confirmed and hydrated; an expired one gets exactly
// one refresh attempt before the store gives up to the empty state.
// Safe to call concurrently with GetSession: writes are sequenced
// through the store lock and the refresh single-flight.
func (s *Store) RestoreSession(ctx context.Context) (*Session, error) {
	raw, ok, err := s.kv.Get(ctx, StorageKey)
	if err != nil {
		s.logger.Warn("failed to read persisted session", "error", err)
	}
	if !ok || raw == "" {
		s.clear(ctx)
		return nil, nil
	}

	var stored Session
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.logger.Warn("persisted session is corrupt, discarding", "error", err)
		s.clear(ctx)
		return nil, nil
	}

	if stored.ValidAt(s.now(), s.buffer) {
		s.setSession(ctx, &stored)
		return s.hydrate(ctx, &stored), nil
	}

	if stored.RefreshToken == "" {
		s.clear(ctx)
		return nil, nil
	}
	sess, err := s.refresh(ctx, stored.RefreshToken)
	if err != nil {
		// One attempt at boot; on any failure the store goes empty
		// rather than holding a session it cannot use.
		s.logger.Warn("failed to refresh persisted session", "error", err)
		s.clear(ctx)
		return nil, err
	}
	return sess, nil
}

// SignIn performs the email/password exchange and installs the
// resulting session. A partially-constructed session is never
// persisted: the store writes only after the payload parsed completely.
func (s *Store) SignIn(ctx context.Context, email, password string) (*Session, error) {
	payload, err := s.api.PasswordGrant(ctx, email, password)
	if err != nil {
		return nil, err
	}
	sess := s.parseSession(payload)
	if sess == nil {
		return nil, &ServerError{Message: "no session returned from backend"}
	}
	s.setSession(ctx, sess)
	return s.hydrate(ctx, sess), nil
}

// SignUp registers a new account. When the backend returns a session it
// is installed and hydrated; when it requires email confirmation first,
// SignUp returns (nil, nil) and the caller signs in after confirming.
func (s *Store) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*Session, error) {
	payload, err := s.api.SignUp(ctx, email, password, metadata)
	if err != nil {
		return nil, err
	}
	sess := s.parseSession(payload)
	if sess == nil {
		return nil, nil
	}
	s.setSession(ctx, sess)
	return s.hydrate(ctx, sess), nil
}

// GoogleAuthURL returns the federated sign-in URL for the given
// post-auth redirect target.
func (s *Store) GoogleAuthURL(redirectTo string) string {
	return s.api.AuthorizeURL("google", redirectTo)
}

// SignInWithGoogle sends the user agent to the Google authorization
// URL. No session is returned here: it materializes later through
// CaptureRedirect once the browser returns.
func (s *Store) SignInWithGoogle(redirectTo string) error {
	if s.redirect == nil {
		return errors.New("google sign-in requires a redirect-capable host")
	}
	return s.redirect(s.GoogleAuthURL(redirectTo))
}

// SignOut revokes the token server-side on a best-effort basis, then
// unconditionally clears local state and notifies subscribers with nil.
func (s *Store) SignOut(ctx context.Context) error {
	s.mu.Lock()
	cur := s.current
	s.mu.Unlock()

	if cur != nil {
		if err := s.api.Revoke(ctx, cur.AccessToken); err != nil {
			s.logger.Warn("failed to revoke session server-side", "error", err)
		}
	}
	s.clear(ctx)
	return nil
}

// OnAuthStateChange registers a listener. It is invoked once
// immediately with the current session and again on every subsequent
// transition. All listeners observe the same ordered sequence of
// transitions, in registration order. The returned function
// unsubscribes.
func (s *Store) OnAuthStateChange(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: fn})
	fn(s.current)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, entry := range s.listeners {
			if entry.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// CaptureRedirect is the one-shot OAuth redirect capturer. It inspects
// the fragment of rawURL for an implicit-grant token; when present it
// installs the (unhydrated) session and returns the URL with the
// fragment stripped, so the host can rewrite its visible location and a
// reload does not re-trigger capture. Without a token it is a no-op and
// returns rawURL unchanged.
//
// Must run before other consumers call GetSession at boot, or a fresh
// token in the fragment is missed.
func (s *Store) CaptureRedirect(ctx context.Context, rawURL string) (*Session, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, rawURL, fmt.Errorf("parse redirect url: %w", err)
	}
	if u.Fragment == "" {
		return nil, rawURL, nil
	}
	values, err := url.ParseQuery(u.Fragment)
	if err != nil || values.Get("access_token") == "" {
		return nil, rawURL, nil
	}

	payload := &AuthPayload{
		AccessToken:  values.Get("access_token"),
		RefreshToken: values.Get("refresh_token"),
		TokenType:    values.Get("token_type"),
	}
	if v := values.Get("expires_in"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			payload.ExpiresIn = n
		}
	}
	if payload.ExpiresIn == 0 {
		// The fragment omitted the lifetime; fall back to the token's
		// own exp claim.
		if claims := ParseTokenClaims(payload.AccessToken); claims != nil && claims.ExpiresAt > 0 {
			payload.ExpiresAt = claims.ExpiresAt
		}
	}

	sess := s.parseSession(payload)
	s.setSession(ctx, sess)
	hydrated := s.hydrate(ctx, sess)

	u.Fragment = ""
	return hydrated, u.String(), nil
}

// refresh exchanges the refresh token for a new session. Concurrent
// callers share one exchange. A transport failure leaves the prior
// session in place for a later attempt; a definitive rejection is
// terminal and clears the store.
func (s *Store) refresh(ctx context.Context, refreshToken string) (*Session, error) {
	v, err, _ := s.flight.Do("refresh", func() (any, error) {
		// The snapshot that led here may predate a refresh that has
		// since completed. Re-read before touching the network: the
		// backend rotates refresh tokens, so replaying a spent one
		// would be rejected and wipe the fresh session.
		s.mu.Lock()
		cur := s.current
		s.mu.Unlock()
		if cur.ValidAt(s.now(), s.buffer) {
			return cur, nil
		}
		token := refreshToken
		if cur != nil && cur.RefreshToken != "" {
			token = cur.RefreshToken
		}

		payload, err := s.api.RefreshGrant(ctx, token)
		if err != nil {
			s.metrics.RecordRefresh(false)
			if errors.Is(err, ErrNetworkUnavailable) {
				return nil, err
			}
			s.clearIfRefreshToken(ctx, token)
			return nil, fmt.Errorf("%w: %v", ErrTokenExpiredUnrefreshable, err)
		}
		sess := s.parseSession(payload)
		if sess == nil {
			s.metrics.RecordRefresh(false)
			s.clearIfRefreshToken(ctx, token)
			return nil, ErrTokenExpiredUnrefreshable
		}
		s.metrics.RecordRefresh(true)
		s.setSession(ctx, sess)
		return s.hydrate(ctx, sess), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// parseSession is ParseSession against the store's clock, so expiry
// stays consistent with the clock used to validate it.
func (s *Store) parseSession(p *AuthPayload) *Session {
	return parseSessionAt(p, s.now())
}

// hydrate completes a token-only session with the full user profile.
// On fetch failure the token-only session is kept rather than
// discarded.
func (s *Store) hydrate(ctx context.Context, sess *Session) *Session {
	if sess.Hydrated() {
		return sess
	}
	profile, err := s.api.Profile(ctx, sess.AccessToken)
	if err != nil || profile == nil {
		s.logger.Warn("unable to hydrate session user", "error", err)
		return sess
	}
	hydrated := sess.WithUser(*profile)
	s.setSession(ctx, hydrated)
	return hydrated
}

// setSession installs a new session: persist first, notify after, both
// under the store lock so no subscriber observes a stale session after
// a newer one has been persisted.
func (s *Store) setSession(ctx context.Context, sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = sess
	data, err := json.Marshal(sess)
	if err != nil {
		s.logger.Error("failed to encode session", "error", err)
	} else if err := s.kv.Set(ctx, StorageKey, string(data)); err != nil {
		s.logger.Warn("failed to persist session", "error", err)
	}
	s.notifyLocked(sess)
}

// clear empties the store: remove the persisted value, drop the
// in-memory session, notify subscribers with nil.
func (s *Store) clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked(ctx)
}

// clearIfRefreshToken empties the store only while it still holds the
// session whose refresh token was just rejected. A newer session
// installed in the meantime survives.
func (s *Store) clearIfRefreshToken(ctx context.Context, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && s.current.RefreshToken != token {
		return
	}
	s.clearLocked(ctx)
}

func (s *Store) clearLocked(ctx context.Context) {
	s.current = nil
	if err := s.kv.Delete(ctx, StorageKey); err != nil {
		s.logger.Warn("failed to remove persisted session", "error", err)
	}
	s.notifyLocked(nil)
}

func (s *Store) notifyLocked(sess *Session) {
	for _, entry := range s.listeners {
		entry.fn(sess)
	}
	if len(s.listeners) > 0 {
		s.metrics.RecordTransition()
	}
}
