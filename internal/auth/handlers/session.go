package handlers

import (
	"log/slog"
	"mime"
	"net/http"

	"dashboard-server/internal/auth"
	"dashboard-server/internal/shared/cookies"
	apperrors "dashboard-server/internal/shared/errors"
	"dashboard-server/internal/shared/response"
)

// SessionResolver looks up the session of a request. A nil session
// with a nil error means the visitor is signed out.
type SessionResolver interface {
	GetCurrentSession(r *http.Request) (*auth.Session, error)
}

type SessionHandler struct {
	resolver SessionResolver
	policy   *auth.Policy
	cookies  cookies.Options
	baseURL  string
}

func NewSessionHandler(resolver SessionResolver, policy *auth.Policy, cookieOpts cookies.Options, baseURL string) *SessionHandler {
	return &SessionHandler{
		resolver: resolver,
		policy:   policy,
		cookies:  cookieOpts,
		baseURL:  baseURL,
	}
}

// HandleSession returns the current session, or an empty object when
// nobody is signed in.
func (h *SessionHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "session")

	session, err := h.resolver.GetCurrentSession(r)
	if err != nil {
		response.Error(w, r, logger, apperrors.WrapExternal("session lookup unavailable", err))
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	if session == nil {
		response.Success(w, http.StatusOK, struct{}{})
		return
	}
	response.Success(w, http.StatusOK, session)
}

type providerInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	SignInURL   string `json:"signinUrl"`
	CallbackURL string `json:"callbackUrl"`
}

// HandleProviders lists the configured providers keyed by id.
func (h *SessionHandler) HandleProviders(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]providerInfo)
	for _, p := range h.policy.Providers() {
		d := p.Descriptor()
		out[d.ID] = providerInfo{
			ID:          d.ID,
			Name:        d.Name,
			Type:        "oauth",
			SignInURL:   h.baseURL + "/api/auth/signin/" + d.ID,
			CallbackURL: d.CallbackURL,
		}
	}
	response.Success(w, http.StatusOK, out)
}

// HandleSignOut clears the session cookie. Only POST is accepted so that a
// cross-site link or image cannot sign the user out. HTML form posts are
// sent back to the sign-in page, other clients get the URL as JSON.
func (h *SessionHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "sign_out", "ip", r.RemoteAddr)

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		response.Error(w, r, logger, apperrors.MethodNotAllowed(r.Method))
		return
	}

	cookies.ClearSession(w, h.cookies)
	signInPath := h.policy.Routes().SignInPath

	if isFormPost(r) {
		logger.Info("User signed out", "redirect", signInPath)
		http.Redirect(w, r, signInPath, http.StatusSeeOther)
		return
	}

	logger.Info("User signed out")
	response.Success(w, http.StatusOK, map[string]string{"url": signInPath})
}

func isFormPost(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && (mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data")
}
