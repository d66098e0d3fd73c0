package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	apperrors "dashboard-server/internal/shared/errors"

	"github.com/lib/pq"
)

const uniqueViolation = pq.ErrorCode("23505")

// Repository persists users and their linked provider accounts. Lookups
// return an ErrorTypeNotFound error when nothing matches.
type Repository interface {
	FindUserByAccount(ctx context.Context, provider, providerAccountID string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, user User) (*User, error)
	UpdateProfile(ctx context.Context, user User) (*User, error)
	LinkAccount(ctx context.Context, link LinkedAccount) error
	DeleteUser(ctx context.Context, id string) error
	CountUsers(ctx context.Context) (int, error)
}

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `u.id, u.name, u.email, u.image, u.created_at, u.updated_at`

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var email, image sql.NullString
	if err := row.Scan(&u.ID, &u.Name, &email, &image, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if email.Valid {
		u.Email = &email.String
	}
	if image.Valid {
		u.Image = &image.String
	}
	return &u, nil
}

func (r *PostgresRepository) FindUserByAccount(ctx context.Context, provider, providerAccountID string) (*User, error) {
	logger := slog.With(
		"component", "account_repository",
		"operation", "find_by_account",
		"provider", provider,
	)

	query := `
		SELECT ` + userColumns + `
		FROM users u
		JOIN accounts a ON a.user_id = u.id
		WHERE a.provider = $1 AND a.provider_account_id = $2
	`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, provider, providerAccountID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundf("no user linked to %s account", provider)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	logger.Debug("Found user by linked account", "user_id", user.ID)
	return user, nil
}

func (r *PostgresRepository) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users u
		WHERE lower(u.email) = lower($1)
	`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundf("no user with email")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) CreateUser(ctx context.Context, user User) (*User, error) {
	logger := slog.With("component", "account_repository", "operation", "create_user", "user_id", user.ID)

	query := `
		INSERT INTO users (id, name, email, image)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, email, image, created_at, updated_at
	`

	created, err := scanUser(r.db.QueryRowContext(ctx, query, user.ID, user.Name, user.Email, user.Image))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, fmt.Errorf("failed to create user: %w", ErrDuplicateEmail)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.Info("User created")
	return created, nil
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, user User) (*User, error) {
	query := `
		UPDATE users
		SET name = $2, email = COALESCE($3, email), image = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, email, image, created_at, updated_at
	`

	updated, err := scanUser(r.db.QueryRowContext(ctx, query, user.ID, user.Name, user.Email, user.Image))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundf("user %s not found", user.ID)
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, fmt.Errorf("failed to update user: %w", ErrDuplicateEmail)
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return updated, nil
}

func (r *PostgresRepository) LinkAccount(ctx context.Context, link LinkedAccount) error {
	query := `
		INSERT INTO accounts (provider, provider_account_id, user_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (provider, provider_account_id) DO NOTHING
	`

	if _, err := r.db.ExecContext(ctx, query, link.Provider, link.ProviderAccountID, link.UserID); err != nil {
		return fmt.Errorf("failed to link account: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteUser(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}
