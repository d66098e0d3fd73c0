package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
)

const GitHubAPIURL = "https://api.github.com"

type gitHubUserResponse struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

type gitHubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

type GitHubProvider struct {
	oauthBase
	apiURL string
}

// NewGitHubProvider creates a GitHub provider talking to the given OAuth
// endpoint and REST API base URL.
func NewGitHubProvider(d Descriptor, endpoint oauth2.Endpoint, apiURL string) *GitHubProvider {
	return &GitHubProvider{
		oauthBase: newOAuthBase(d, endpoint),
		apiURL:    strings.TrimRight(apiURL, "/"),
	}
}

// GetUserInfo fetches the profile from /user. GitHub omits private emails
// there, so /user/emails is consulted when the profile has none.
func (p *GitHubProvider) GetUserInfo(ctx context.Context, token *oauth2.Token) (*OAuthUser, error) {
	client := p.config.Client(ctx, token)

	logger := slog.With("provider", "github", "operation", "get_user_info")
	logger.Debug("Requesting user info from GitHub API")

	var raw gitHubUserResponse
	if err := getJSON(ctx, client, p.apiURL+"/user", &raw); err != nil {
		return nil, fmt.Errorf("failed to request user info from GitHub: %w", err)
	}

	if raw.ID == 0 {
		return nil, fmt.Errorf("github user info missing user ID")
	}

	// GitHub only lets verified addresses be shown as the public email.
	user := &OAuthUser{
		ID:            strconv.FormatInt(raw.ID, 10),
		Email:         raw.Email,
		EmailVerified: raw.Email != "",
		Name:          raw.Name,
		AvatarURL:     raw.AvatarURL,
	}
	if user.Name == "" {
		user.Name = raw.Login
	}

	if user.Email == "" {
		logger.Debug("GitHub user info missing email, attempting to fetch from emails endpoint")
		if err := p.fetchUserEmail(ctx, client, user); err != nil {
			// A GitHub account without a usable email can still sign in.
			logger.Warn("Failed to fetch GitHub user email", "error", err)
		}
	}

	logger.Debug("Successfully retrieved GitHub user info",
		"user_id", user.ID,
		"has_email", user.Email != "",
		"has_avatar", user.AvatarURL != "")

	return user, nil
}

func (p *GitHubProvider) fetchUserEmail(ctx context.Context, client *http.Client, user *OAuthUser) error {
	var emails []gitHubEmail
	if err := getJSON(ctx, client, p.apiURL+"/user/emails", &emails); err != nil {
		return fmt.Errorf("failed to request emails from GitHub: %w", err)
	}

	for _, email := range emails {
		if email.Primary && email.Verified {
			user.Email = email.Email
			user.EmailVerified = true
			return nil
		}
	}

	for _, email := range emails {
		if email.Verified {
			user.Email = email.Email
			user.EmailVerified = true
			return nil
		}
	}

	return fmt.Errorf("no verified email found among %d addresses", len(emails))
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
