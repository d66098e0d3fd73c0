package providers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const GoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

type googleClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

type GoogleProvider struct {
	oauthBase
	verifier    *oidc.IDTokenVerifier
	userInfoURL string
}

// NewGoogleProvider creates a Google provider. ID tokens returned by the
// token endpoint are checked with verifier; userInfoURL is used when the
// token response carries no ID token.
func NewGoogleProvider(d Descriptor, endpoint oauth2.Endpoint, verifier *oidc.IDTokenVerifier, userInfoURL string) *GoogleProvider {
	return &GoogleProvider{
		oauthBase:   newOAuthBase(d, endpoint),
		verifier:    verifier,
		userInfoURL: userInfoURL,
	}
}

func (p *GoogleProvider) GetUserInfo(ctx context.Context, token *oauth2.Token) (*OAuthUser, error) {
	logger := slog.With("provider", "google", "operation", "get_user_info")

	var claims googleClaims
	if rawIDToken, ok := token.Extra("id_token").(string); ok && rawIDToken != "" {
		idToken, err := p.verifier.Verify(ctx, rawIDToken)
		if err != nil {
			return nil, fmt.Errorf("google id_token verification failed: %w", err)
		}
		if err := idToken.Claims(&claims); err != nil {
			return nil, fmt.Errorf("google id_token claims parse failed: %w", err)
		}
		logger.Debug("Verified Google ID token", "issuer", idToken.Issuer)
	} else {
		logger.Debug("No ID token in response, requesting userinfo endpoint")
		client := p.config.Client(ctx, token)
		if err := getJSON(ctx, client, p.userInfoURL, &claims); err != nil {
			return nil, fmt.Errorf("failed to request user info from Google: %w", err)
		}
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("google user info missing subject")
	}

	logger.Debug("Successfully retrieved Google user info",
		"user_id", claims.Subject,
		"has_email", claims.Email != "",
		"email_verified", claims.EmailVerified,
		"has_picture", claims.Picture != "")

	return &OAuthUser{
		ID:            claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
		AvatarURL:     claims.Picture,
	}, nil
}
