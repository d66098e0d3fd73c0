package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", testSecret)
	t.Setenv("SERVER_URL", "https://dash.example.com/")
	t.Setenv("AUTH_PROVIDERS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/login", cfg.Auth.SignInPath)
	assert.Equal(t, "/auth/error", cfg.Auth.ErrorPath)
	assert.Equal(t, []string{ProviderGitHub, ProviderGoogle}, cfg.Auth.Providers)
	assert.Equal(t, 720*time.Hour, cfg.Auth.SessionMaxAge)
	assert.Equal(t, "https://dash.example.com", cfg.Server.URL)
	assert.Equal(t, "https://dash.example.com/api/auth/callback/github", cfg.OAuth.GitHub.RedirectURL)
	assert.Equal(t, "https://dash.example.com/api/auth/callback/google", cfg.OAuth.Google.RedirectURL)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Database.Enabled)
}

func TestLoad_MissingCredentialsAreKept(t *testing.T) {
	t.Setenv("SESSION_SECRET", testSecret)
	t.Setenv("GITHUB_ID", "gh-id")
	t.Setenv("GITHUB_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gh-id", cfg.OAuth.GitHub.ClientID)
	assert.Empty(t, cfg.OAuth.GitHub.ClientSecret)
	assert.False(t, cfg.ProviderConfigured(ProviderGitHub))
}

func TestLoad_SingleProviderVariant(t *testing.T) {
	t.Setenv("SESSION_SECRET", testSecret)
	t.Setenv("AUTH_PROVIDERS", " GitHub , github ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{ProviderGitHub}, cfg.Auth.Providers)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing secret",
			env:     map[string]string{"SESSION_SECRET": ""},
			wantErr: "SESSION_SECRET is required",
		},
		{
			name:    "short secret",
			env:     map[string]string{"SESSION_SECRET": "short"},
			wantErr: "at least 32 characters",
		},
		{
			name:    "unknown provider",
			env:     map[string]string{"SESSION_SECRET": testSecret, "AUTH_PROVIDERS": "github,myspace"},
			wantErr: `unknown provider "myspace"`,
		},
		{
			name:    "relative sign-in path",
			env:     map[string]string{"SESSION_SECRET": testSecret, "AUTH_SIGN_IN_PATH": "login"},
			wantErr: "AUTH_SIGN_IN_PATH must start with /",
		},
		{
			name:    "sign-in path on the dashboard",
			env:     map[string]string{"SESSION_SECRET": testSecret, "AUTH_SIGN_IN_PATH": "/dashboard"},
			wantErr: `AUTH_SIGN_IN_PATH "/dashboard" collides with a built-in route`,
		},
		{
			name:    "error path under the api",
			env:     map[string]string{"SESSION_SECRET": testSecret, "AUTH_ERROR_PATH": "/api/health"},
			wantErr: `AUTH_ERROR_PATH "/api/health" collides with a built-in route`,
		},
		{
			name:    "sign-in path is the root",
			env:     map[string]string{"SESSION_SECRET": testSecret, "AUTH_SIGN_IN_PATH": "/"},
			wantErr: "collides with a built-in route",
		},
		{
			name:    "pattern wildcard in path",
			env:     map[string]string{"SESSION_SECRET": testSecret, "AUTH_ERROR_PATH": "/auth/{code}"},
			wantErr: "AUTH_ERROR_PATH must be a plain path",
		},
		{
			name: "same sign-in and error path",
			env: map[string]string{
				"SESSION_SECRET":    testSecret,
				"AUTH_SIGN_IN_PATH": "/auth",
				"AUTH_ERROR_PATH":   "/auth",
			},
			wantErr: "must differ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_CustomPagePaths(t *testing.T) {
	t.Setenv("SESSION_SECRET", testSecret)
	t.Setenv("AUTH_SIGN_IN_PATH", "/signin")
	t.Setenv("AUTH_ERROR_PATH", "/signin/error")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/signin", cfg.Auth.SignInPath)
	assert.Equal(t, "/signin/error", cfg.Auth.ErrorPath)
}

func TestLoad_ProductionDefaults(t *testing.T) {
	tests := []struct {
		environment string
		production  bool
	}{
		{environment: "production", production: true},
		{environment: "development", production: false},
		{environment: "staging", production: false},
	}

	for _, tt := range tests {
		t.Run(tt.environment, func(t *testing.T) {
			t.Setenv("SESSION_SECRET", testSecret)
			t.Setenv("ENVIRONMENT", tt.environment)

			cfg, err := Load()
			require.NoError(t, err)
			assert.Equal(t, tt.production, cfg.IsProduction())
			assert.Equal(t, tt.production, cfg.Auth.CookieSecure)
			assert.Equal(t, tt.production, cfg.Logging.JSONFormat)
		})
	}
}

func TestConfig_Provider(t *testing.T) {
	cfg := &Config{OAuth: OAuthConfig{
		GitHub: ProviderConfig{ClientID: "a", ClientSecret: "b"},
	}}

	p, ok := cfg.Provider(ProviderGitHub)
	require.True(t, ok)
	assert.Equal(t, "a", p.ClientID)
	assert.True(t, cfg.ProviderConfigured(ProviderGitHub))
	assert.False(t, cfg.ProviderConfigured(ProviderGoogle))

	_, ok = cfg.Provider("gitlab")
	assert.False(t, ok)
}
