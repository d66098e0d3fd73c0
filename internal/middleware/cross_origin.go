package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"dashboard-server/internal/shared/config"
)

type CrossOriginMiddleware struct {
	*http.CrossOriginProtection
}

// NewCrossOrigin rejects state-changing requests made by other sites, such as
// a hidden form posting to /api/auth/signout. The frontend origin allowed by
// CORS is trusted as well.
func NewCrossOrigin(cfg config.FrontendConfig) *CrossOriginMiddleware {
	logger := slog.With("component", "cross_origin", "operation", "setup")

	protection := http.NewCrossOriginProtection()
	origin := strings.TrimSuffix(cfg.URL, "/")
	if origin != "" {
		if err := protection.AddTrustedOrigin(origin); err != nil {
			logger.Warn("Frontend URL is not a valid origin, not trusting it", "origin", origin, "error", err)
		} else {
			logger.Info("Cross-origin protection configured", "trusted_origin", origin)
		}
	}

	return &CrossOriginMiddleware{protection}
}

func (c *CrossOriginMiddleware) Middleware(h http.Handler) http.Handler {
	return c.Handler(h)
}
