package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ares-dev-tech/dashboard/httpx"
	"github.com/ares-dev-tech/dashboard/internal/analytics"
	"github.com/ares-dev-tech/dashboard/internal/services"
)

const (
	defaultEvolutionSteps = 12
	defaultUpcomingDays   = 30
)

type DashboardHandler struct {
	Svc *services.DashboardService
	Now func() time.Time
}

func NewDashboardHandler(svc *services.DashboardService, now func() time.Time) *DashboardHandler {
	if now == nil {
		now = time.Now
	}
	return &DashboardHandler{Svc: svc, Now: now}
}

// Summary: GET /api/dashboard?start=&end=
// Bounds are YYYY-MM-DD or YYYY-MM; the default is the current month.
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	win, err := analytics.ParseWindow(q.Get("start"), q.Get("end"), h.Now())
	if err != nil {
		badRequest(w, r, "window", "invalid_window")
		return
	}
	s, err := h.Svc.Summary(r.Context(), userID(r), win)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, s)
}

// Evolution: GET /api/evolution?granularity=month&steps=12&end=2025-03
func (h *DashboardHandler) Evolution(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	g, err := analytics.ParseGranularity(q.Get("granularity"))
	if err != nil {
		badRequest(w, r, "granularity", "invalid_granularity")
		return
	}
	steps := defaultEvolutionSteps
	if v := q.Get("steps"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			badRequest(w, r, "steps", "invalid_steps")
			return
		}
		steps = n
	}
	anchor := h.Now()
	if v := q.Get("end"); v != "" {
		anchor, err = analytics.ParseDate(v, false)
		if err != nil {
			badRequest(w, r, "end", "invalid_date")
			return
		}
	}
	ev, err := h.Svc.Evolution(r.Context(), userID(r), g, anchor, steps)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ev)
}

// Upcoming: GET /api/recurrences/upcoming?days=30, starting today.
func (h *DashboardHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	days := defaultUpcomingDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			badRequest(w, r, "days", "out_of_range")
			return
		}
		days = n
	}
	up, err := h.Svc.Upcoming(r.Context(), userID(r), h.Now(), days)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, up)
}
