package account

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() (*Service, *MemoryRepository) {
	repo := NewMemoryRepository()
	return NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil))), repo
}

func TestService_RecordSignIn_FirstSignInCreatesUser(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	user, err := svc.RecordSignIn(ctx, SignIn{
		Provider:          "github",
		ProviderAccountID: "42",
		Name:              "Ann",
		Email:             "ann@x.com",
	})
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
	assert.Equal(t, "Ann", user.Name)
	require.NotNil(t, user.Email)
	assert.Equal(t, "ann@x.com", *user.Email)
	assert.Nil(t, user.Image)

	found, err := repo.FindUserByAccount(ctx, "github", "42")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
}

func TestService_RecordSignIn_ReturningUserRefreshesProfile(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first, err := svc.RecordSignIn(ctx, SignIn{Provider: "github", ProviderAccountID: "42", Name: "Ann"})
	require.NoError(t, err)

	second, err := svc.RecordSignIn(ctx, SignIn{
		Provider:          "github",
		ProviderAccountID: "42",
		Name:              "Ann Lee",
		Image:             "https://avatars.example.com/42.png",
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Ann Lee", second.Name)
	require.NotNil(t, second.Image)
	assert.Equal(t, "https://avatars.example.com/42.png", *second.Image)

	count, err := svc.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestService_RecordSignIn_EmailLinking(t *testing.T) {
	ctx := context.Background()

	t.Run("verified email links to existing user", func(t *testing.T) {
		svc, _ := newTestService()
		gh, err := svc.RecordSignIn(ctx, SignIn{Provider: "github", ProviderAccountID: "42", Name: "Ann", Email: "ann@x.com"})
		require.NoError(t, err)

		google, err := svc.RecordSignIn(ctx, SignIn{
			Provider:          "google",
			ProviderAccountID: "g-1",
			Name:              "Ann",
			Email:             "ANN@x.com",
			EmailVerified:     true,
		})
		require.NoError(t, err)
		assert.Equal(t, gh.ID, google.ID)
	})

	t.Run("unverified email is refused", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.RecordSignIn(ctx, SignIn{Provider: "github", ProviderAccountID: "42", Email: "ann@x.com"})
		require.NoError(t, err)

		_, err = svc.RecordSignIn(ctx, SignIn{Provider: "google", ProviderAccountID: "g-1", Email: "ann@x.com"})
		require.ErrorIs(t, err, ErrAccountNotLinked)
	})
}

func TestService_RecordSignIn_RequiresIdentity(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.RecordSignIn(context.Background(), SignIn{Provider: "github"})
	require.ErrorIs(t, err, ErrInvalidSignIn)
}

// racingRepository runs a competing sign-in right before the first
// CreateUser call, the way a second tab finishing the same flow would.
type racingRepository struct {
	*MemoryRepository
	compete func()
	raced   bool
}

func (r *racingRepository) CreateUser(ctx context.Context, user User) (*User, error) {
	if !r.raced {
		r.raced = true
		r.compete()
	}
	return r.MemoryRepository.CreateUser(ctx, user)
}

func TestService_RecordSignIn_ConcurrentFirstSignIn(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		in   SignIn
	}{
		{
			name: "same email",
			in:   SignIn{Provider: "github", ProviderAccountID: "42", Name: "Ann", Email: "ann@x.com"},
		},
		{
			name: "no email",
			in:   SignIn{Provider: "github", ProviderAccountID: "42", Name: "Ann"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &racingRepository{MemoryRepository: NewMemoryRepository()}
			svc := NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))

			var winner *User
			repo.compete = func() {
				var err error
				winner, err = svc.RecordSignIn(ctx, tt.in)
				require.NoError(t, err)
			}

			user, err := svc.RecordSignIn(ctx, tt.in)
			require.NoError(t, err)
			require.NotNil(t, winner)
			assert.Equal(t, winner.ID, user.ID)

			count, err := svc.CountUsers(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, count)

			linked, err := repo.FindUserByAccount(ctx, "github", "42")
			require.NoError(t, err)
			assert.Equal(t, winner.ID, linked.ID)
		})
	}
}

func TestService_RecordSignIn_EmailTakenOnRefresh(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.RecordSignIn(ctx, SignIn{Provider: "github", ProviderAccountID: "1", Name: "Ann", Email: "ann@x.com"})
	require.NoError(t, err)
	bob, err := svc.RecordSignIn(ctx, SignIn{Provider: "github", ProviderAccountID: "2", Name: "Bob", Email: "bob@x.com"})
	require.NoError(t, err)

	refreshed, err := svc.RecordSignIn(ctx, SignIn{Provider: "github", ProviderAccountID: "2", Name: "Bobby", Email: "ANN@x.com"})
	require.NoError(t, err)
	assert.Equal(t, bob.ID, refreshed.ID)
	assert.Equal(t, "Bobby", refreshed.Name)
	require.NotNil(t, refreshed.Email)
	assert.Equal(t, "bob@x.com", *refreshed.Email)
}

func TestMemoryRepository_EmailIsUnique(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.CreateUser(ctx, User{ID: "u1", Email: optional("ann@x.com")})
	require.NoError(t, err)

	_, err = repo.CreateUser(ctx, User{ID: "u2", Email: optional("Ann@X.com")})
	require.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = repo.CreateUser(ctx, User{ID: "u3"})
	require.NoError(t, err)
	_, err = repo.CreateUser(ctx, User{ID: "u4"})
	require.NoError(t, err)

	require.NoError(t, repo.LinkAccount(ctx, LinkedAccount{Provider: "github", ProviderAccountID: "7", UserID: "u3"}))
	require.NoError(t, repo.DeleteUser(ctx, "u3"))

	_, err = repo.FindUserByAccount(ctx, "github", "7")
	assert.ErrorContains(t, err, "no user linked")

	count, err := repo.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
