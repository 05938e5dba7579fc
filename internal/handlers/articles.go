package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/ares-dev-tech/dashboard/httpx"
	"github.com/ares-dev-tech/dashboard/internal/models"
	"github.com/ares-dev-tech/dashboard/internal/services"
)

type ArticleHandler struct {
	Svc *services.ArticleService
}

func NewArticleHandler(svc *services.ArticleService) *ArticleHandler {
	return &ArticleHandler{Svc: svc}
}

// articleView adds the unit label and the price with the article's own VAT.
type articleView struct {
	*models.Article
	Unit         string           `json:"unit"`
	PriceWithVAT *decimal.Decimal `json:"price_ttc,omitempty"`
}

func newArticleView(a *models.Article) articleView {
	v := articleView{Article: a, Unit: a.Unit()}
	if a.VATRate != nil {
		p := a.PriceWithVAT(*a.VATRate)
		v.PriceWithVAT = &p
	}
	return v
}

func (h *ArticleHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.Svc.List(r.Context(), userID(r), listParams(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPage(page, newArticleView))
}

func (h *ArticleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	a, err := h.Svc.Get(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newArticleView(a))
}

func (h *ArticleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.ArticleInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.Svc.Create(r.Context(), userID(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, newArticleView(a))
}

func (h *ArticleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in services.ArticleInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.Svc.Update(r.Context(), userID(r), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newArticleView(a))
}

func (h *ArticleHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
