package cookies

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"dashboard-server/internal/shared/config"
)

const (
	sessionCookieName = "session_token"
	securePrefix      = "__Secure-"
)

// Options describes how the session cookie is issued.
type Options struct {
	Secure   bool
	SameSite http.SameSite
	Domain   string
	MaxAge   time.Duration
}

func NewOptions(cfg *config.Config) Options {
	return Options{
		Secure:   cfg.Auth.CookieSecure,
		SameSite: parseSameSite(cfg.Auth.CookieSameSite),
		Domain:   extractDomain(cfg.Server.URL),
		MaxAge:   cfg.Auth.SessionMaxAge,
	}
}

// SessionCookieName is prefixed with __Secure- when cookies are HTTPS-only.
func (o Options) SessionCookieName() string {
	if o.Secure {
		return securePrefix + sessionCookieName
	}
	return sessionCookieName
}

func SetSession(w http.ResponseWriter, opts Options, token string) {
	cookie := opts.sessionCookie()
	cookie.Value = token
	cookie.MaxAge = int(opts.MaxAge.Seconds())

	http.SetCookie(w, cookie)
}

func ClearSession(w http.ResponseWriter, opts Options) {
	cookie := opts.sessionCookie()
	cookie.Value = ""
	cookie.MaxAge = -1

	http.SetCookie(w, cookie)
}

// ReadSession returns the raw session token carried by r, if any.
func ReadSession(r *http.Request, opts Options) (string, bool) {
	cookie, err := r.Cookie(opts.SessionCookieName())
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

func (o Options) sessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     o.SessionCookieName(),
		Path:     "/",
		Domain:   o.Domain,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: o.SameSite,
	}
}

func extractDomain(serverURL string) string {
	parsedURL, err := url.Parse(serverURL)
	if err != nil || parsedURL.Host == "" {
		return ""
	}

	host := parsedURL.Hostname()
	if host == "localhost" || host == "127.0.0.1" {
		return ""
	}

	return host
}

func parseSameSite(sameSiteStr string) http.SameSite {
	switch strings.ToLower(sameSiteStr) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
