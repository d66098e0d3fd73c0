package providers

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const testIssuer = "https://accounts.example.com"

func newTestGoogleProvider(t *testing.T, userInfoURL string) (*GoogleProvider, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	verifier := oidc.NewVerifier(testIssuer,
		&oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}},
		&oidc.Config{ClientID: "google-client"})

	p := NewGoogleProvider(Descriptor{
		ID:       "google",
		Name:     "Google",
		ClientID: "google-client",
		Scopes:   []string{"openid", "profile", "email"},
	}, oauth2.Endpoint{}, verifier, userInfoURL)

	return p, key
}

func signIDToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()

	raw, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return raw
}

func TestGoogleProvider_GetUserInfo_IDToken(t *testing.T) {
	p, key := newTestGoogleProvider(t, "")

	raw := signIDToken(t, key, jwt.MapClaims{
		"iss":            testIssuer,
		"aud":            "google-client",
		"sub":            "g-123",
		"email":          "ann@x.com",
		"email_verified": true,
		"name":           "Ann",
		"picture":        "https://lh3.example.com/ann.png",
		"iat":            time.Now().Unix(),
		"exp":            time.Now().Add(time.Hour).Unix(),
	})
	token := (&oauth2.Token{AccessToken: "at"}).WithExtra(map[string]any{"id_token": raw})

	user, err := p.GetUserInfo(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, &OAuthUser{
		ID:            "g-123",
		Email:         "ann@x.com",
		EmailVerified: true,
		Name:          "Ann",
		AvatarURL:     "https://lh3.example.com/ann.png",
	}, user)
}

func TestGoogleProvider_GetUserInfo_RejectsBadIDToken(t *testing.T) {
	p, key := newTestGoogleProvider(t, "")

	tests := []struct {
		name   string
		claims jwt.MapClaims
	}{
		{
			name: "wrong audience",
			claims: jwt.MapClaims{
				"iss": testIssuer, "aud": "someone-else", "sub": "g-123",
				"exp": time.Now().Add(time.Hour).Unix(),
			},
		},
		{
			name: "expired",
			claims: jwt.MapClaims{
				"iss": testIssuer, "aud": "google-client", "sub": "g-123",
				"exp": time.Now().Add(-time.Hour).Unix(),
			},
		},
		{
			name: "wrong issuer",
			claims: jwt.MapClaims{
				"iss": "https://evil.example.com", "aud": "google-client", "sub": "g-123",
				"exp": time.Now().Add(time.Hour).Unix(),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := (&oauth2.Token{AccessToken: "at"}).WithExtra(map[string]any{
				"id_token": signIDToken(t, key, tt.claims),
			})

			_, err := p.GetUserInfo(context.Background(), token)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "verification failed")
		})
	}
}

func TestGoogleProvider_GetUserInfo_UserInfoEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sub":   "g-456",
			"email": "bob@x.com",
			"name":  "Bob",
		})
	}))
	defer srv.Close()

	p, _ := newTestGoogleProvider(t, srv.URL)

	user, err := p.GetUserInfo(context.Background(), &oauth2.Token{AccessToken: "at", TokenType: "Bearer"})
	require.NoError(t, err)
	assert.Equal(t, "g-456", user.ID)
	assert.Equal(t, "bob@x.com", user.Email)
	assert.False(t, user.EmailVerified)
	assert.Empty(t, user.AvatarURL)
}
