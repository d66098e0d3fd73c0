package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"dashboard-server/internal/shared/response"
)

const pingTimeout = 2 * time.Second

// Pinger is a backing service the server can check on.
type Pinger interface {
	Ping(ctx context.Context) error
}

type UserCounter interface {
	CountUsers(ctx context.Context) (int, error)
}

type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    string            `json:"timestamp"`
	Dependencies map[string]string `json:"dependencies"`
	Users        *int              `json:"users,omitempty"`
}

type dependency struct {
	name   string
	pinger Pinger
}

type HealthHandler struct {
	deps  []dependency
	users UserCounter
}

func NewHealthHandler(users UserCounter) *HealthHandler {
	return &HealthHandler{users: users}
}

// AddDependency registers an optional backing service. Services that are
// not configured should simply not be added.
func (h *HealthHandler) AddDependency(name string, p Pinger) {
	h.deps = append(h.deps, dependency{name: name, pinger: p})
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "health")

	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:       "healthy",
		Timestamp:    time.Now().Format(time.RFC3339),
		Dependencies: make(map[string]string, len(h.deps)),
	}

	for _, dep := range h.deps {
		if err := dep.pinger.Ping(ctx); err != nil {
			logger.Warn("Dependency ping failed", "dependency", dep.name, "error", err)
			resp.Dependencies[dep.name] = "disconnected"
			resp.Status = "degraded"
			continue
		}
		resp.Dependencies[dep.name] = "connected"
	}

	if h.users != nil {
		if count, err := h.users.CountUsers(ctx); err == nil {
			resp.Users = &count
		} else {
			logger.Warn("Failed to count users", "error", err)
		}
	}

	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	response.Success(w, status, resp)
}
