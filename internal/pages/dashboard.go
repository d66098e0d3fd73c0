package pages

import (
	"log/slog"
	"net/http"

	"dashboard-server/internal/auth"
	apperrors "dashboard-server/internal/shared/errors"
	"dashboard-server/internal/shared/response"
)

// SessionResolver looks up the session of a request. A nil session with a
// nil error means the visitor is signed out.
type SessionResolver interface {
	GetCurrentSession(r *http.Request) (*auth.Session, error)
}

type dashboardView struct {
	Name  string
	Email string
	Image string
}

// DashboardHandler renders the protected page. Signed-out visitors are sent
// to the sign-in page and never see any of its markup.
type DashboardHandler struct {
	resolver SessionResolver
	routes   auth.RouteMap
}

func NewDashboardHandler(resolver SessionResolver, routes auth.RouteMap) *DashboardHandler {
	return &DashboardHandler{resolver: resolver, routes: routes}
}

func (h *DashboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "dashboard")

	session, err := h.resolver.GetCurrentSession(r)
	if err != nil {
		response.Error(w, r, logger, apperrors.WrapExternal("session lookup unavailable", err))
		return
	}

	if session == nil {
		logger.Debug("No session, redirecting to sign-in", "redirect", h.routes.SignInPath)
		redirect(w, h.routes.SignInPath)
		return
	}

	view := dashboardView{
		Name:  session.User.Name,
		Email: session.User.Email,
	}
	if session.User.Image != nil {
		view.Image = *session.User.Image
	}

	if err := render(w, http.StatusOK, "dashboard.html", view); err != nil {
		response.Error(w, r, logger, apperrors.WrapInternal("failed to render dashboard", err))
	}
}
