package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dashboard-server/internal/account"
	"dashboard-server/internal/auth/providers"
)

// AccountRecorder stores who signed in. It is satisfied by *account.Service.
type AccountRecorder interface {
	RecordSignIn(ctx context.Context, in account.SignIn) (*account.User, error)
}

type Service struct {
	accounts AccountRecorder
	sessions *SessionManager
	logger   *slog.Logger
}

func NewService(accounts AccountRecorder, sessions *SessionManager, logger *slog.Logger) *Service {
	logger.Debug("Initializing auth service")

	return &Service{
		accounts: accounts,
		sessions: sessions,
		logger:   logger,
	}
}

// CompleteSignIn records the provider profile and issues a session token
// for it.
func (s *Service) CompleteSignIn(ctx context.Context, providerID string, info *providers.OAuthUser) (string, time.Time, error) {
	user, err := s.accounts.RecordSignIn(ctx, account.SignIn{
		Provider:          providerID,
		ProviderAccountID: info.ID,
		Name:              info.Name,
		Email:             info.Email,
		EmailVerified:     info.EmailVerified,
		Image:             info.AvatarURL,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to record sign-in: %w", err)
	}

	sessionUser := User{Name: user.Name, Image: user.Image}
	if user.Email != nil {
		sessionUser.Email = *user.Email
	}

	token, expires, err := s.sessions.Issue(sessionUser, user.ID)
	if err != nil {
		return "", time.Time{}, err
	}

	s.logger.Debug("Session issued",
		"component", "auth_service",
		"provider", providerID,
		"user_id", user.ID,
		"expires", expires)

	return token, expires, nil
}
