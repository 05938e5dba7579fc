package handlers

import (
	"net/http"

	"github.com/ares-dev-tech/dashboard/httpx"
	"github.com/ares-dev-tech/dashboard/internal/models"
	"github.com/ares-dev-tech/dashboard/internal/services"
)

type ChargeHandler struct {
	Svc *services.ChargeService
}

func NewChargeHandler(svc *services.ChargeService) *ChargeHandler {
	return &ChargeHandler{Svc: svc}
}

type chargeView struct {
	*models.Charge
	Label  string `json:"label"`
	Linked bool   `json:"linked"`
}

func newChargeView(c *models.Charge) chargeView {
	return chargeView{Charge: c, Label: c.Label(), Linked: c.SaleID != nil || c.ClientID != nil || c.ArticleID != nil}
}

func (h *ChargeHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.Svc.List(r.Context(), userID(r), listParams(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPage(page, newChargeView))
}

func (h *ChargeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	c, err := h.Svc.Get(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newChargeView(c))
}

func (h *ChargeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.ChargeInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.Svc.Create(r.Context(), userID(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, newChargeView(c))
}

func (h *ChargeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in services.ChargeInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.Svc.Update(r.Context(), userID(r), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newChargeView(c))
}

func (h *ChargeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Delete(r.Context(), userID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
