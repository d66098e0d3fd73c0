package auth

import (
	"context"
	"fmt"
	"log/slog"

	"dashboard-server/internal/auth/providers"
	"dashboard-server/internal/shared/config"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

// RouteMap names the pages the auth flow sends visitors to.
type RouteMap struct {
	SignInPath string
	ErrorPath  string
}

// Policy is the registered set of identity providers plus the route map.
type Policy struct {
	registry *providers.Registry
	routes   RouteMap
}

// NewPolicy registers the providers named in cfg.Auth.Providers. Providers
// with missing credentials are registered anyway and fail at code exchange.
// ctx bounds background fetches of the Google signing keys.
func NewPolicy(ctx context.Context, cfg *config.Config) (*Policy, error) {
	logger := slog.With("component", "session_policy", "operation", "init")

	var list []providers.OAuthProvider
	for _, id := range cfg.Auth.Providers {
		p, err := newProvider(ctx, cfg, id)
		if err != nil {
			return nil, err
		}

		if !cfg.ProviderConfigured(id) {
			logger.Warn("OAuth provider registered without client credentials", "provider", id)
		}
		list = append(list, p)
	}

	policy, err := NewPolicyFromProviders(RouteMap{
		SignInPath: cfg.Auth.SignInPath,
		ErrorPath:  cfg.Auth.ErrorPath,
	}, list...)
	if err != nil {
		return nil, err
	}

	logger.Info("Session policy configured",
		"providers", cfg.Auth.Providers,
		"sign_in_path", policy.routes.SignInPath,
		"error_path", policy.routes.ErrorPath,
	)
	return policy, nil
}

func NewPolicyFromProviders(routes RouteMap, list ...providers.OAuthProvider) (*Policy, error) {
	registry, err := providers.NewRegistry(list...)
	if err != nil {
		return nil, err
	}
	return &Policy{registry: registry, routes: routes}, nil
}

func newProvider(ctx context.Context, cfg *config.Config, id string) (providers.OAuthProvider, error) {
	pc, ok := cfg.Provider(id)
	if !ok {
		return nil, fmt.Errorf("unknown oauth provider: %s", id)
	}

	d := providers.Descriptor{
		ID:           id,
		ClientID:     pc.ClientID,
		ClientSecret: pc.ClientSecret,
		CallbackURL:  pc.RedirectURL,
		Scopes:       pc.Scopes,
	}

	switch id {
	case config.ProviderGitHub:
		d.Name = "GitHub"
		return providers.NewGitHubProvider(d, github.Endpoint, providers.GitHubAPIURL), nil
	case config.ProviderGoogle:
		d.Name = "Google"
		keySet := oidc.NewRemoteKeySet(ctx, pc.JWKSURL)
		verifier := oidc.NewVerifier(pc.IssuerURL, keySet, &oidc.Config{ClientID: pc.ClientID})
		return providers.NewGoogleProvider(d, google.Endpoint, verifier, providers.GoogleUserInfoURL), nil
	default:
		return nil, fmt.Errorf("unknown oauth provider: %s", id)
	}
}

func (p *Policy) Providers() []providers.OAuthProvider {
	return p.registry.All()
}

func (p *Policy) Provider(id string) (providers.OAuthProvider, bool) {
	return p.registry.Get(id)
}

func (p *Policy) Routes() RouteMap {
	return p.routes
}
