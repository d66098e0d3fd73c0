package handlers

import (
	"net/http"
	"net/url"
	"strings"
)

// Error codes passed to the error page in the "error" query parameter.
const (
	ErrorCodeOAuthSignin      = "OAuthSignin"
	ErrorCodeOAuthCallback    = "OAuthCallback"
	ErrorCodeCallback         = "Callback"
	ErrorCodeAccessDenied     = "AccessDenied"
	ErrorCodeVerification     = "Verification"
	ErrorCodeAccountNotLinked = "OAuthAccountNotLinked"
)

func redirectWithError(w http.ResponseWriter, r *http.Request, errorPath, code string) {
	http.Redirect(w, r, errorPath+"?error="+url.QueryEscape(code), http.StatusTemporaryRedirect)
}

// isSafeCallbackURL only accepts same-origin absolute paths so that sign-in
// cannot be used as an open redirect.
func isSafeCallbackURL(raw string) bool {
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.ContainsAny(raw, "\\\r\n") {
		return false
	}

	u, err := url.Parse(raw)
	return err == nil && u.Scheme == "" && u.Host == ""
}
