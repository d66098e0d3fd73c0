package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"dashboard-server/internal/account"
	"dashboard-server/internal/auth"
	"dashboard-server/internal/auth/providers"
	"dashboard-server/internal/shared/cookies"
	apperrors "dashboard-server/internal/shared/errors"
	"dashboard-server/internal/shared/response"
)

const exchangeTimeout = 30 * time.Second

// SignInCompleter turns a provider profile into a signed session token.
type SignInCompleter interface {
	CompleteSignIn(ctx context.Context, providerID string, info *providers.OAuthUser) (string, time.Time, error)
}

type OAuthHandler struct {
	policy          *auth.Policy
	states          *auth.StateManager
	signIn          SignInCompleter
	cookies         cookies.Options
	defaultCallback string
}

// NewOAuthHandler serves the sign-in and callback endpoints for every
// registered provider. defaultCallback is where visitors land after
// sign-in when they did not ask for a page.
func NewOAuthHandler(policy *auth.Policy, states *auth.StateManager, signIn SignInCompleter, cookieOpts cookies.Options, defaultCallback string) *OAuthHandler {
	return &OAuthHandler{
		policy:          policy,
		states:          states,
		signIn:          signIn,
		cookies:         cookieOpts,
		defaultCallback: defaultCallback,
	}
}

// HandleSignIn starts the authorization-code flow for {provider}.
func (h *OAuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("provider")
	logger := slog.With("handler", "oauth_sign_in", "provider", id)

	provider, ok := h.policy.Provider(id)
	if !ok {
		response.Error(w, r, logger, apperrors.NotFoundf("oauth provider %q is not registered", id))
		return
	}

	callbackURL := h.defaultCallback
	if raw := r.URL.Query().Get("callbackUrl"); raw != "" {
		if !isSafeCallbackURL(raw) {
			response.Error(w, r, logger, apperrors.Validationf("callbackUrl %q is not a same-origin path", raw))
			return
		}
		callbackURL = raw
	}

	state, verifier, err := h.states.GenerateState(r.Context(), id, r.UserAgent(), callbackURL)
	if err != nil {
		logger.Error("Failed to initialize OAuth flow", "error", err)
		redirectWithError(w, r, h.policy.Routes().ErrorPath, ErrorCodeOAuthSignin)
		return
	}

	logger.Info("Initiating OAuth flow", "callback_url", callbackURL)
	http.Redirect(w, r, provider.GetAuthURL(state, verifier), http.StatusTemporaryRedirect)
}

// HandleCallback finishes the flow: it checks state, exchanges the code,
// records the account and sets the session cookie.
func (h *OAuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("provider")
	query := r.URL.Query()
	code := query.Get("code")
	state := query.Get("state")
	errorParam := query.Get("error")
	errorPath := h.policy.Routes().ErrorPath

	logger := slog.With(
		"handler", "oauth_callback",
		"provider", id,
		"user_agent", r.UserAgent(),
		"ip", r.RemoteAddr,
		"has_code", code != "",
		"has_state", state != "",
	)

	provider, ok := h.policy.Provider(id)
	if !ok {
		response.Error(w, r, logger, apperrors.NotFoundf("oauth provider %q is not registered", id))
		return
	}

	entry, err := h.states.ValidateState(r.Context(), state, id, r.UserAgent())
	if err != nil {
		logger.Warn("OAuth state validation failed", "error", err)
		redirectWithError(w, r, errorPath, ErrorCodeVerification)
		return
	}

	if errorParam != "" {
		logger.Warn("OAuth authorization denied",
			"oauth_error", errorParam,
			"error_description", query.Get("error_description"))
		redirectWithError(w, r, errorPath, ErrorCodeAccessDenied)
		return
	}

	if code == "" {
		logger.Error("OAuth callback missing authorization code")
		redirectWithError(w, r, errorPath, ErrorCodeOAuthCallback)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), exchangeTimeout)
	defer cancel()

	token, err := provider.ExchangeCode(ctx, code, entry.CodeVerifier)
	if err != nil {
		logger.Error("Failed to exchange authorization code", "error", err)
		redirectWithError(w, r, errorPath, ErrorCodeOAuthCallback)
		return
	}

	userInfo, err := provider.GetUserInfo(ctx, token)
	if err != nil {
		logger.Error("Failed to get user info", "error", err)
		redirectWithError(w, r, errorPath, ErrorCodeOAuthCallback)
		return
	}

	userLogger := logger.With("provider_user_id", userInfo.ID, "has_email", userInfo.Email != "")

	sessionToken, expires, err := h.signIn.CompleteSignIn(ctx, id, userInfo)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotLinked) {
			userLogger.Warn("Sign-in refused, email belongs to another account")
			redirectWithError(w, r, errorPath, ErrorCodeAccountNotLinked)
			return
		}
		userLogger.Error("Failed to complete sign-in", "error", err)
		redirectWithError(w, r, errorPath, ErrorCodeCallback)
		return
	}

	cookies.SetSession(w, h.cookies, sessionToken)

	userLogger.Info("OAuth authentication successful",
		"session_expires", expires,
		"redirect", entry.CallbackURL)

	http.Redirect(w, r, entry.CallbackURL, http.StatusTemporaryRedirect)
}
