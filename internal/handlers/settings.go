package handlers

import (
	"net/http"

	"github.com/ares-dev-tech/dashboard/httpx"
	"github.com/ares-dev-tech/dashboard/internal/services"
)

// SettingsHandler serves the company parameters as a flat key/value object.
type SettingsHandler struct {
	Svc *services.SettingsService
}

func NewSettingsHandler(svc *services.SettingsService) *SettingsHandler {
	return &SettingsHandler{Svc: svc}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	all, err := h.Svc.All(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, all)
}

// Update: PUT /api/settings with the keys to change; others are kept.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in map[string]string
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	all, err := h.Svc.Set(r.Context(), userID(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, all)
}
