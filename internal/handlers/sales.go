package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/ares-dev-tech/dashboard/httpx"
	"github.com/ares-dev-tech/dashboard/internal/models"
	"github.com/ares-dev-tech/dashboard/internal/services"
)

type SaleHandler struct {
	Svc *services.SaleService
}

func NewSaleHandler(svc *services.SaleService) *SaleHandler {
	return &SaleHandler{Svc: svc}
}

type saleView struct {
	*models.Sale
	TotalHT  decimal.Decimal `json:"total_ht"`
	TotalVAT decimal.Decimal `json:"total_tva"`
	TotalTTC decimal.Decimal `json:"total_ttc"`
}

func newSaleView(s *models.Sale) saleView {
	if s.Items == nil {
		s.Items = []models.SaleItem{}
	}
	return saleView{Sale: s, TotalHT: s.TotalHT(), TotalVAT: s.TotalVAT(), TotalTTC: s.TotalTTC()}
}

// List: GET /api/sales?q=&limit=&offset=, newest first.
func (h *SaleHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.Svc.List(r.Context(), userID(r), listParams(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPage(page, newSaleView))
}

func (h *SaleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	s, err := h.Svc.Get(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newSaleView(s))
}

func (h *SaleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.SaleInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	s, err := h.Svc.Create(r.Context(), userID(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, newSaleView(s))
}

func (h *SaleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in services.SaleInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	s, err := h.Svc.Update(r.Context(), userID(r), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newSaleView(s))
}

// SetStatus: PATCH /api/sales/{id}/status {"status":"paid","paid_at":"2025-03-02"}
func (h *SaleHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in struct {
		Status string `json:"status"`
		PaidAt string `json:"paid_at"`
	}
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	s, err := h.Svc.SetStatus(r.Context(), userID(r), id, in.Status, in.PaidAt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newSaleView(s))
}

func (h *SaleHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
