package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
)

// StateTTL bounds how long a sign-in may take between redirect and callback.
const StateTTL = 10 * time.Minute

var (
	ErrStateMissing  = errors.New("state token is required")
	ErrStateInvalid  = errors.New("invalid or expired state token")
	ErrStateMismatch = errors.New("state token provider mismatch")
)

// StateEntry is what a sign-in remembers until its callback arrives.
type StateEntry struct {
	Provider     string    `json:"provider"`
	CodeVerifier string    `json:"code_verifier"`
	CallbackURL  string    `json:"callback_url"`
	UserAgent    string    `json:"user_agent"`
	CreatedAt    time.Time `json:"created_at"`
}

// StateStore keeps pending sign-ins. Consume must remove the entry so that
// every state token is accepted at most once.
type StateStore interface {
	Save(ctx context.Context, state string, entry StateEntry, ttl time.Duration) error
	Consume(ctx context.Context, state string) (*StateEntry, error)
}

type StateManager struct {
	store StateStore
	now   func() time.Time
}

func NewStateManager(store StateStore) *StateManager {
	return &StateManager{store: store, now: time.Now}
}

// GenerateState creates a state token and PKCE verifier for a new sign-in.
func (sm *StateManager) GenerateState(ctx context.Context, provider, userAgent, callbackURL string) (state, verifier string, err error) {
	logger := slog.With("component", "state_manager", "operation", "generate", "provider", provider)

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("failed to generate state token: %w", err)
	}

	state = base64.RawURLEncoding.EncodeToString(b)
	verifier = oauth2.GenerateVerifier()

	entry := StateEntry{
		Provider:     provider,
		CodeVerifier: verifier,
		CallbackURL:  callbackURL,
		UserAgent:    userAgent,
		CreatedAt:    sm.now(),
	}
	if err := sm.store.Save(ctx, state, entry, StateTTL); err != nil {
		return "", "", fmt.Errorf("failed to store state token: %w", err)
	}

	logger.Debug("OAuth state token generated and stored")
	return state, verifier, nil
}

// ValidateState consumes state and checks it belongs to provider.
func (sm *StateManager) ValidateState(ctx context.Context, state, provider, userAgent string) (*StateEntry, error) {
	logger := slog.With("component", "state_manager", "operation", "validate", "provider", provider)

	if state == "" {
		return nil, ErrStateMissing
	}

	entry, err := sm.store.Consume(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("failed to load state token: %w", err)
	}
	if entry == nil {
		return nil, ErrStateInvalid
	}

	if sm.now().Sub(entry.CreatedAt) > StateTTL {
		logger.Warn("Expired state token", "created_at", entry.CreatedAt)
		return nil, ErrStateInvalid
	}

	if entry.Provider != provider {
		logger.Warn("State token provider mismatch",
			"expected_provider", entry.Provider,
			"received_provider", provider)
		return nil, ErrStateMismatch
	}

	if entry.UserAgent != userAgent {
		logger.Warn("State token user agent mismatch",
			"stored_user_agent", entry.UserAgent,
			"received_user_agent", userAgent)
	}

	return entry, nil
}

// MemoryStateStore is a process-local StateStore.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]memoryState
	now    func() time.Time
}

type memoryState struct {
	entry     StateEntry
	expiresAt time.Time
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{
		states: make(map[string]memoryState),
		now:    time.Now,
	}
}

func (s *MemoryStateStore) Save(_ context.Context, state string, entry StateEntry, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[state] = memoryState{entry: entry, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStateStore) Consume(_ context.Context, state string) (*StateEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[state]
	if !ok {
		return nil, nil
	}
	delete(s.states, state)

	if s.now().After(st.expiresAt) {
		return nil, nil
	}
	return &st.entry, nil
}

// Run removes expired entries every interval until ctx is done.
func (s *MemoryStateStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanupExpired()
		}
	}
}

func (s *MemoryStateStore) cleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	expired := 0
	for state, st := range s.states {
		if now.After(st.expiresAt) {
			delete(s.states, state)
			expired++
		}
	}

	if expired > 0 {
		slog.Debug("Cleaned up expired state tokens",
			"component", "state_store",
			"expired_count", expired,
			"remaining_count", len(s.states))
	}
	return expired
}

// RedisStateStore shares pending sign-ins between server instances.
type RedisStateStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStateStore(client redis.UniversalClient) *RedisStateStore {
	return &RedisStateStore{client: client, prefix: "oauth_state:"}
}

func (s *RedisStateStore) Save(ctx context.Context, state string, entry StateEntry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal state entry: %w", err)
	}
	return s.client.Set(ctx, s.prefix+state, data, ttl).Err()
}

func (s *RedisStateStore) Consume(ctx context.Context, state string) (*StateEntry, error) {
	val, err := s.client.GetDel(ctx, s.prefix+state).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entry StateEntry
	if err := json.Unmarshal(val, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state entry: %w", err)
	}
	return &entry, nil
}
