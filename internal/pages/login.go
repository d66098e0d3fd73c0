package pages

import (
	"log/slog"
	"net/http"
	"net/url"

	"dashboard-server/internal/auth"
	apperrors "dashboard-server/internal/shared/errors"
	"dashboard-server/internal/shared/response"
)

type providerLink struct {
	Name      string
	SignInURL string
}

type loginView struct {
	Error     string
	Providers []providerLink
}

type errorView struct {
	Code       string
	Message    string
	SignInPath string
}

var errorMessages = map[string]string{
	"OAuthSignin":           "Could not start signing in with that provider.",
	"OAuthCallback":         "The provider did not complete the sign-in.",
	"Callback":              "Your account could not be loaded.",
	"AccessDenied":          "Sign-in was cancelled or access was denied.",
	"Verification":          "The sign-in link expired or was already used.",
	"OAuthAccountNotLinked": "This email is already linked to another sign-in method.",
	"Configuration":         "Sign-in is not configured correctly on the server.",
}

const defaultErrorMessage = "Something went wrong while signing in."

func errorMessage(code string) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return defaultErrorMessage
}

// AuthPages serves the sign-in and sign-in error pages.
type AuthPages struct {
	resolver        SessionResolver
	policy          *auth.Policy
	defaultCallback string
}

func NewAuthPages(resolver SessionResolver, policy *auth.Policy, defaultCallback string) *AuthPages {
	return &AuthPages{
		resolver:        resolver,
		policy:          policy,
		defaultCallback: defaultCallback,
	}
}

// HandleLogin lists the registered providers. Visitors who are already
// signed in go straight to the dashboard.
func (p *AuthPages) HandleLogin(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "login_page")

	session, err := p.resolver.GetCurrentSession(r)
	if err != nil {
		response.Error(w, r, logger, apperrors.WrapExternal("session lookup unavailable", err))
		return
	}
	if session != nil {
		redirect(w, p.defaultCallback)
		return
	}

	query := url.Values{}
	if cb := r.URL.Query().Get("callbackUrl"); cb != "" {
		query.Set("callbackUrl", cb)
	}

	view := loginView{}
	if code := r.URL.Query().Get("error"); code != "" {
		view.Error = errorMessage(code)
	}
	for _, provider := range p.policy.Providers() {
		d := provider.Descriptor()
		link := "/api/auth/signin/" + url.PathEscape(d.ID)
		if len(query) > 0 {
			link += "?" + query.Encode()
		}
		view.Providers = append(view.Providers, providerLink{Name: d.Name, SignInURL: link})
	}

	if err := render(w, http.StatusOK, "login.html", view); err != nil {
		response.Error(w, r, logger, apperrors.WrapInternal("failed to render login page", err))
	}
}

// HandleError explains a failed sign-in.
func (p *AuthPages) HandleError(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "auth_error_page")

	code := r.URL.Query().Get("error")
	view := errorView{
		Code:       code,
		Message:    errorMessage(code),
		SignInPath: p.policy.Routes().SignInPath,
	}

	if err := render(w, http.StatusOK, "error.html", view); err != nil {
		response.Error(w, r, logger, apperrors.WrapInternal("failed to render error page", err))
	}
}
