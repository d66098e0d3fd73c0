package providers

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"
)

// Descriptor identifies one OAuth identity provider. It is built once from
// configuration and never changes afterwards.
type Descriptor struct {
	ID           string
	Name         string
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scopes       []string
}

// OAuthUser is the normalized user info returned by all OAuth providers.
type OAuthUser struct {
	ID            string
	Email         string
	EmailVerified bool
	Name          string
	AvatarURL     string
}

// OAuthProvider is the interface that all OAuth providers implement.
type OAuthProvider interface {
	Descriptor() Descriptor
	GetAuthURL(state, codeVerifier string) string
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*oauth2.Token, error)
	GetUserInfo(ctx context.Context, token *oauth2.Token) (*OAuthUser, error)
}

// oauthBase holds the authorization-code plumbing shared by every provider.
type oauthBase struct {
	descriptor Descriptor
	config     *oauth2.Config
}

func newOAuthBase(d Descriptor, endpoint oauth2.Endpoint) oauthBase {
	return oauthBase{
		descriptor: d,
		config: &oauth2.Config{
			ClientID:     d.ClientID,
			ClientSecret: d.ClientSecret,
			RedirectURL:  d.CallbackURL,
			Scopes:       d.Scopes,
			Endpoint:     endpoint,
		},
	}
}

func (b *oauthBase) Descriptor() Descriptor {
	return b.descriptor
}

// GetAuthURL generates the authorization URL carrying state and an S256
// PKCE challenge derived from codeVerifier.
func (b *oauthBase) GetAuthURL(state, codeVerifier string) string {
	return b.config.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(codeVerifier))
}

func (b *oauthBase) ExchangeCode(ctx context.Context, code, codeVerifier string) (*oauth2.Token, error) {
	logger := slog.With("provider", b.descriptor.ID, "operation", "exchange_code")
	logger.Debug("Exchanging authorization code for access token")

	token, err := b.config.Exchange(ctx, code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	logger.Debug("Successfully exchanged code for token")
	return token, nil
}
