package service

import (
	"context"
	"log/slog"

	"github.com/agriconnect/agriclient/internal/adapter/outbound/verify"
	"github.com/agriconnect/agriclient/internal/domain/session"
)

// twoFactorAPI is the slice of the auth backend used for the 2FA flag
// row.
type twoFactorAPI interface {
	SetTwoFactorEnabled(ctx context.Context, accessToken, userID string, enabled bool) error
	TwoFactorEnabled(ctx context.Context, accessToken, userID string) (bool, error)
}

// TwoFactorService combines the email-code verifier with the account's
// 2FA flag. Codes go out through Twilio Verify; the flag lives in the
// backend's users table.
type TwoFactorService struct {
	verifier *verify.Client
	api      twoFactorAPI
	store    *session.Store
	logger   *slog.Logger
}

// NewTwoFactorService creates a TwoFactorService.
func NewTwoFactorService(verifier *verify.Client, api twoFactorAPI, store *session.Store, logger *slog.Logger) *TwoFactorService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TwoFactorService{verifier: verifier, api: api, store: store, logger: logger}
}

// SendCode emails a verification code to the signed-in user.
func (s *TwoFactorService) SendCode(ctx context.Context) error {
	sess, err := s.currentSession(ctx)
	if err != nil {
		return err
	}
	if sess.User.Email == "" {
		return session.ErrNoSession
	}
	_, err = s.verifier.SendCode(ctx, sess.User.Email)
	return err
}

// Enable checks the entered code and, when approved, flips the
// account's 2FA flag on. A wrong code returns (false, nil).
func (s *TwoFactorService) Enable(ctx context.Context, code string) (bool, error) {
	sess, err := s.currentSession(ctx)
	if err != nil {
		return false, err
	}

	approved, err := s.verifier.CheckCode(ctx, sess.User.Email, code)
	if err != nil || !approved {
		return false, err
	}
	if err := s.api.SetTwoFactorEnabled(ctx, sess.AccessToken, sess.User.ID, true); err != nil {
		return false, err
	}
	return true, nil
}

// Enabled reports whether the signed-in user has 2FA enabled. A missing
// row reads as disabled.
func (s *TwoFactorService) Enabled(ctx context.Context) (bool, error) {
	sess, err := s.currentSession(ctx)
	if err != nil {
		return false, err
	}
	return s.api.TwoFactorEnabled(ctx, sess.AccessToken, sess.User.ID)
}

func (s *TwoFactorService) currentSession(ctx context.Context) (*session.Session, error) {
	sess, err := s.store.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, session.ErrNoSession
	}
	return sess, nil
}
