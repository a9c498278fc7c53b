package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/homedeliver/api/internal/service"
)

// Sweeper runs the scheduled-to-placed promotion.
// Satisfied by *service.LifecycleProcessor.
type Sweeper interface {
	RunSweep(ctx context.Context) (*service.SweepResult, error)
}

// LifecycleHandler exposes the on-demand lifecycle sweep.
type LifecycleHandler struct {
	sweeper Sweeper
}

func NewLifecycleHandler(sweeper Sweeper) *LifecycleHandler {
	return &LifecycleHandler{sweeper: sweeper}
}

// RegisterRoutes registers lifecycle endpoints on the given Chi router.
// Expected to be mounted at /lifecycle.
func (h *LifecycleHandler) RegisterRoutes(r chi.Router) {
	r.Post("/sweep", h.Sweep)
}

// Sweep places every due scheduled order. Per-order failures are reported
// in errors with a 200; only a failure to start the run is a 500.
func (h *LifecycleHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.sweeper.RunSweep(r.Context())
	if err != nil {
		writeServiceError(w, "lifecycle sweep", err)
		return
	}
	if result.Errors == nil {
		result.Errors = []string{}
	}
	writeJSON(w, http.StatusOK, result)
}
