package account

import (
	"context"
	"strings"
	"sync"
	"time"

	apperrors "dashboard-server/internal/shared/errors"
)

// MemoryRepository keeps the directory in process memory. It is used when
// no database is configured and in tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	users    map[string]User
	accounts map[string]LinkedAccount
	now      func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:    make(map[string]User),
		accounts: make(map[string]LinkedAccount),
		now:      time.Now,
	}
}

func accountKey(provider, providerAccountID string) string {
	return provider + ":" + providerAccountID
}

func (r *MemoryRepository) FindUserByAccount(_ context.Context, provider, providerAccountID string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	link, ok := r.accounts[accountKey(provider, providerAccountID)]
	if !ok {
		return nil, apperrors.NotFoundf("no user linked to %s account", provider)
	}

	user, ok := r.users[link.UserID]
	if !ok {
		return nil, apperrors.NotFoundf("user %s not found", link.UserID)
	}
	return &user, nil
}

func (r *MemoryRepository) FindUserByEmail(_ context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Email != nil && strings.EqualFold(*user.Email, email) {
			return &user, nil
		}
	}
	return nil, apperrors.NotFoundf("no user with email")
}

func (r *MemoryRepository) CreateUser(_ context.Context, user User) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.Email != nil {
		for _, existing := range r.users {
			if existing.Email != nil && strings.EqualFold(*existing.Email, *user.Email) {
				return nil, ErrDuplicateEmail
			}
		}
	}

	now := r.now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = user
	return &user, nil
}

func (r *MemoryRepository) UpdateProfile(_ context.Context, user User) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[user.ID]
	if !ok {
		return nil, apperrors.NotFoundf("user %s not found", user.ID)
	}

	if user.Email != nil {
		for id, other := range r.users {
			if id != user.ID && other.Email != nil && strings.EqualFold(*other.Email, *user.Email) {
				return nil, ErrDuplicateEmail
			}
		}
	}

	existing.Name = user.Name
	if user.Email != nil {
		existing.Email = user.Email
	}
	existing.Image = user.Image
	existing.UpdatedAt = r.now()
	r.users[user.ID] = existing
	return &existing, nil
}

func (r *MemoryRepository) LinkAccount(_ context.Context, link LinkedAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := accountKey(link.Provider, link.ProviderAccountID)
	if _, exists := r.accounts[key]; exists {
		return nil
	}

	if link.CreatedAt.IsZero() {
		link.CreatedAt = r.now()
	}
	r.accounts[key] = link
	return nil
}

func (r *MemoryRepository) DeleteUser(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.users, id)
	for key, link := range r.accounts {
		if link.UserID == id {
			delete(r.accounts, key)
		}
	}
	return nil
}

func (r *MemoryRepository) CountUsers(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users), nil
}
