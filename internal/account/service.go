package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	apperrors "dashboard-server/internal/shared/errors"

	"github.com/google/uuid"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	logger.Debug("Initializing account service")

	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// RecordSignIn finds the user behind a provider identity, creating and
// linking one on first sign-in. A new identity is attached to an existing
// user with the same email only when the provider verified that email.
func (s *Service) RecordSignIn(ctx context.Context, in SignIn) (*User, error) {
	if in.Provider == "" || in.ProviderAccountID == "" {
		return nil, ErrInvalidSignIn
	}

	logger := s.logger.With(
		"component", "account_service",
		"operation", "record_sign_in",
		"provider", in.Provider,
	)

	user, err := s.recordSignIn(ctx, in, logger)
	if errors.Is(err, ErrDuplicateEmail) {
		// Another first sign-in with this email created its user after our
		// lookup. A second pass finds that user.
		logger.Info("Concurrent sign-in created the user first, retrying")
		user, err = s.recordSignIn(ctx, in, logger)
	}
	return user, err
}

func (s *Service) recordSignIn(ctx context.Context, in SignIn, logger *slog.Logger) (*User, error) {
	profile := User{
		Name:  in.Name,
		Email: optional(in.Email),
		Image: optional(in.Image),
	}

	user, err := s.repo.FindUserByAccount(ctx, in.Provider, in.ProviderAccountID)
	switch {
	case err == nil:
		return s.refreshProfile(ctx, user.ID, profile, logger)
	case !apperrors.Is(err, apperrors.ErrorTypeNotFound):
		return nil, fmt.Errorf("failed to look up linked account: %w", err)
	}

	if in.Email != "" {
		existing, err := s.repo.FindUserByEmail(ctx, in.Email)
		switch {
		case err == nil:
			if !in.EmailVerified {
				logger.Warn("Refusing to link unverified email to existing user", "user_id", existing.ID)
				return nil, ErrAccountNotLinked
			}
			linked, err := s.linkAndReadBack(ctx, in, existing.ID)
			if err != nil {
				return nil, err
			}
			logger.Info("Linked provider account to existing user", "user_id", linked.ID)
			return linked, nil
		case !apperrors.Is(err, apperrors.ErrorTypeNotFound):
			return nil, fmt.Errorf("failed to look up user by email: %w", err)
		}
	}

	profile.ID = uuid.NewString()
	created, err := s.repo.CreateUser(ctx, profile)
	if err != nil {
		return nil, err
	}

	linked, err := s.linkAndReadBack(ctx, in, created.ID)
	if err != nil {
		return nil, err
	}

	if linked.ID != created.ID {
		logger.Warn("Concurrent sign-in linked the account first, discarding duplicate user",
			"user_id", linked.ID,
			"discarded_user_id", created.ID)
		if err := s.repo.DeleteUser(ctx, created.ID); err != nil {
			logger.Error("Failed to delete duplicate user", "user_id", created.ID, "error", err)
		}
		return linked, nil
	}

	logger.Info("Created user on first sign-in", "user_id", created.ID)
	return created, nil
}

func (s *Service) refreshProfile(ctx context.Context, userID string, profile User, logger *slog.Logger) (*User, error) {
	profile.ID = userID
	updated, err := s.repo.UpdateProfile(ctx, profile)
	if errors.Is(err, ErrDuplicateEmail) {
		logger.Warn("Provider email belongs to another user, keeping stored email", "user_id", userID)
		profile.Email = nil
		updated, err = s.repo.UpdateProfile(ctx, profile)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to refresh profile: %w", err)
	}

	logger.Debug("Returning user refreshed profile", "user_id", updated.ID)
	return updated, nil
}

// linkAndReadBack links the identity to userID and returns the user the link
// points at afterwards. That is a different user when a concurrent sign-in
// linked the identity first.
func (s *Service) linkAndReadBack(ctx context.Context, in SignIn, userID string) (*User, error) {
	err := s.repo.LinkAccount(ctx, LinkedAccount{
		Provider:          in.Provider,
		ProviderAccountID: in.ProviderAccountID,
		UserID:            userID,
	})
	if err != nil {
		return nil, err
	}

	user, err := s.repo.FindUserByAccount(ctx, in.Provider, in.ProviderAccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to read back linked account: %w", err)
	}
	return user, nil
}

func (s *Service) CountUsers(ctx context.Context) (int, error) {
	return s.repo.CountUsers(ctx)
}
