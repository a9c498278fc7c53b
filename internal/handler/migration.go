package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/homedeliver/api/internal/middleware"
	"github.com/homedeliver/api/internal/service"
)

// Migrator defines the service methods needed by migration handlers.
// Satisfied by *service.MigrationService.
type Migrator interface {
	GetMigrationCandidates(ctx context.Context) ([]service.MigrationCandidate, error)
	ApplyMigration(ctx context.Context, clientID uuid.UUID, rename *service.DayRename, actor string) (*service.SaveResult, error)
}

// MigrationHandler exposes the legacy order data migration tool.
type MigrationHandler struct {
	svc Migrator
}

func NewMigrationHandler(svc Migrator) *MigrationHandler {
	return &MigrationHandler{svc: svc}
}

// RegisterRoutes registers migration endpoints on the given Chi router.
// Expected to be mounted at /migration.
func (h *MigrationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/candidates", h.Candidates)
	r.Post("/clients/{id}", h.Apply)
}

type applyMigrationRequest struct {
	ReplaceDay *service.DayRename `json:"replace_day"`
}

// Candidates lists clients whose legacy data has not been migrated yet.
func (h *MigrationHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.svc.GetMigrationCandidates(r.Context())
	if err != nil {
		writeServiceError(w, "list migration candidates", err)
		return
	}
	if candidates == nil {
		candidates = []service.MigrationCandidate{}
	}
	writeJSON(w, http.StatusOK, candidates)
}

// Apply migrates one client. The body is optional; replace_day renames an
// invalid delivery day before saving.
func (h *MigrationHandler) Apply(w http.ResponseWriter, r *http.Request) {
	clientID, ok := parseIDParam(w, r, "id", "client")
	if !ok {
		return
	}

	var req applyMigrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.ReplaceDay != nil && (strings.TrimSpace(req.ReplaceDay.BadDay) == "" || strings.TrimSpace(req.ReplaceDay.NewDay) == "") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "replace_day needs bad_day and new_day"})
		return
	}

	result, err := h.svc.ApplyMigration(r.Context(), clientID, req.ReplaceDay, middleware.ActorFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, "apply migration", err)
		return
	}

	writeJSON(w, http.StatusOK, toSaveConfigResponse(clientID, result))
}
