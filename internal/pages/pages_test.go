package pages

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dashboard-server/internal/auth"
	"dashboard-server/internal/auth/providers"
	"dashboard-server/internal/shared/cookies"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var testRoutes = auth.RouteMap{SignInPath: "/login", ErrorPath: "/auth/error"}

type stubResolver struct {
	session *auth.Session
	err     error
}

func (s stubResolver) GetCurrentSession(*http.Request) (*auth.Session, error) {
	return s.session, s.err
}

func strPtr(s string) *string { return &s }

func serveDashboard(t *testing.T, resolver SessionResolver) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	NewDashboardHandler(resolver, testRoutes).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	return rec
}

func TestDashboard_SessionWithoutImage(t *testing.T) {
	rec := serveDashboard(t, stubResolver{session: &auth.Session{
		User: auth.User{Name: "Ann", Email: "ann@x.com"},
	}})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "Welcome To Dashboard Page, Ann")
	assert.Contains(t, body, "Logged in user email: ann@x.com")
	assert.NotContains(t, body, "<img")
	assert.Contains(t, body, `<form method="post" action="/api/auth/signout">`)
	assert.NotContains(t, body, `href="/api/auth/signout"`)
}

func TestDashboard_EmptyImageIsOmitted(t *testing.T) {
	rec := serveDashboard(t, stubResolver{session: &auth.Session{
		User: auth.User{Name: "Ann", Email: "ann@x.com", Image: strPtr("")},
	}})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<img")
}

func TestDashboard_SessionWithImage(t *testing.T) {
	rec := serveDashboard(t, stubResolver{session: &auth.Session{
		User: auth.User{Name: "Bob", Email: "bob@y.org", Image: strPtr("https://img.example.com/b.png")},
	}})

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Welcome To Dashboard Page, Bob")
	assert.Contains(t, body, "Logged in user email: bob@y.org")
	assert.Contains(t, body, `<img src="https://img.example.com/b.png" width="200" height="200" alt="User profile">`)
}

func TestDashboard_EscapesProfileFields(t *testing.T) {
	rec := serveDashboard(t, stubResolver{session: &auth.Session{
		User: auth.User{Name: "<script>alert(1)</script>", Email: "x@y.z"},
	}})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<script>")
	assert.Contains(t, rec.Body.String(), "&lt;script&gt;")
}

func TestDashboard_NoSessionRedirects(t *testing.T) {
	rec := serveDashboard(t, stubResolver{})

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Empty(t, rec.Body.String())
}

func TestDashboard_ResolverFailure(t *testing.T) {
	rec := serveDashboard(t, stubResolver{err: errors.New("boom")})

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "session lookup unavailable")
	assert.NotContains(t, rec.Body.String(), "Welcome To Dashboard Page")
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestDashboard_WithSessionCookie(t *testing.T) {
	sessions := auth.NewSessionManager(testSecret, time.Hour)
	opts := cookies.Options{SameSite: http.SameSiteLaxMode, MaxAge: time.Hour}
	handler := NewDashboardHandler(auth.NewResolver(sessions, opts), testRoutes)

	token, _, err := sessions.Issue(auth.User{Name: "Ann", Email: "ann@x.com"}, "user-1")
	require.NoError(t, err)

	t.Run("valid cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		req.AddCookie(&http.Cookie{Name: opts.SessionCookieName(), Value: token})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Welcome To Dashboard Page, Ann")
	})

	t.Run("forged cookie", func(t *testing.T) {
		forged, _, err := auth.NewSessionManager("ffffffffffffffffffffffffffffffff", time.Hour).
			Issue(auth.User{Name: "Mallory", Email: "m@evil.example"}, "user-2")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		req.AddCookie(&http.Cookie{Name: opts.SessionCookieName(), Value: forged})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
	})
}

func newTestPages(t *testing.T, resolver SessionResolver) *AuthPages {
	t.Helper()
	gh := providers.NewGitHubProvider(providers.Descriptor{ID: "github", Name: "GitHub"}, oauth2.Endpoint{}, "")
	google := providers.NewGoogleProvider(providers.Descriptor{ID: "google", Name: "Google"}, oauth2.Endpoint{}, nil, "")

	policy, err := auth.NewPolicyFromProviders(testRoutes, gh, google)
	require.NoError(t, err)
	return NewAuthPages(resolver, policy, "/dashboard")
}

func TestLoginPage_ListsProviders(t *testing.T) {
	pages := newTestPages(t, stubResolver{})

	rec := httptest.NewRecorder()
	pages.HandleLogin(rec, httptest.NewRequest(http.MethodGet, "/login?callbackUrl=%2Fdashboard", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `href="/api/auth/signin/github?callbackUrl=%2Fdashboard"`)
	assert.Contains(t, body, "Sign in with GitHub")
	assert.Contains(t, body, "Sign in with Google")
	assert.Less(t, strings.Index(body, "GitHub"), strings.Index(body, "Google"))
}

func TestLoginPage_ShowsError(t *testing.T) {
	pages := newTestPages(t, stubResolver{})

	rec := httptest.NewRecorder()
	pages.HandleLogin(rec, httptest.NewRequest(http.MethodGet, "/login?error=AccessDenied", nil))

	assert.Contains(t, rec.Body.String(), errorMessages["AccessDenied"])
}

func TestLoginPage_SignedInRedirects(t *testing.T) {
	pages := newTestPages(t, stubResolver{session: &auth.Session{User: auth.User{Name: "Ann"}}})

	rec := httptest.NewRecorder()
	pages.HandleLogin(rec, httptest.NewRequest(http.MethodGet, "/login", nil))

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
}

func TestErrorPage(t *testing.T) {
	pages := newTestPages(t, stubResolver{})

	tests := []struct {
		query string
		want  string
	}{
		{"?error=Verification", errorMessages["Verification"]},
		{"?error=OAuthAccountNotLinked", "already linked"},
		{"?error=Unexpected", defaultErrorMessage},
		{"", defaultErrorMessage},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := httptest.NewRecorder()
			pages.HandleError(rec, httptest.NewRequest(http.MethodGet, "/auth/error"+tt.query, nil))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
			assert.Contains(t, rec.Body.String(), `href="/login"`)
		})
	}
}
