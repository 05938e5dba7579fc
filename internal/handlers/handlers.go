// Package handlers exposes the services as a JSON REST API.
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ares-dev-tech/dashboard/auth"
	"github.com/ares-dev-tech/dashboard/httpx"
	"github.com/ares-dev-tech/dashboard/i18n"
	"github.com/ares-dev-tech/dashboard/internal/log"
	"github.com/ares-dev-tech/dashboard/internal/services"
)

// writeError maps service errors to the JSON error envelope.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.JSONViolations(w, verr.Violations, i18n.TranslateAll(i18n.LangFrom(r.Context()), verr.Violations))
	case errors.Is(err, services.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	case errors.Is(err, services.ErrInvalidCredentials):
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
	case errors.Is(err, httpx.ErrInvalidJSON):
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

// badRequest answers 400 with a single field violation.
func badRequest(w http.ResponseWriter, r *http.Request, field, code string) {
	v := map[string]string{field: code}
	httpx.JSONViolations(w, v, i18n.TranslateAll(i18n.LangFrom(r.Context()), v))
}

// userID is set by auth.RequireAuth on every /api route but auth's own.
func userID(r *http.Request) uint {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}

// idParam parses the {id} route parameter. ok is false after a 404 was written.
func idParam(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return 0, false
	}
	return uint(id), true
}

func listParams(r *http.Request) services.ListParams {
	limit, offset := httpx.Pagination(r)
	return services.ListParams{Limit: limit, Offset: offset, Query: strings.TrimSpace(r.URL.Query().Get("q"))}
}

func toPage[T, V any](p services.Page[T], conv func(*T) V) httpx.Page[V] {
	items := make([]V, len(p.Items))
	for i := range p.Items {
		items[i] = conv(&p.Items[i])
	}
	return httpx.Page[V]{Items: items, Total: p.Total, Limit: p.Limit, Offset: p.Offset}
}

func same[T any](v *T) T { return *v }
