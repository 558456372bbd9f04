package handlers

import (
	"net/http"
	"time"

	"github.com/swiftbasket/api/internal/platform/httpx"
	"github.com/swiftbasket/api/internal/services"
)

// HealthHandlers exposes liveness and readiness probes.
type HealthHandlers struct {
	system services.SystemService
	start  time.Time
}

// NewHealthHandlers constructs the probe handlers. A nil system service makes
// readiness report healthy unconditionally.
func NewHealthHandlers(system services.SystemService) *HealthHandlers {
	return &HealthHandlers{system: system, start: time.Now()}
}

// Healthz reports process liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(h.start).String(),
	})
}

// Readyz checks downstream dependencies before reporting ready.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.system != nil {
		if err := h.system.Health(ctx); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("not_ready", "dependencies unavailable", http.StatusServiceUnavailable))
			return
		}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
