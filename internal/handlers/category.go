package handlers

import (
	"net/http"
)

func (h *Handlers) handleGetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Category.ListCategories(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	respondOK(w, categories)
}

func (h *Handlers) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := urlParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	category, err := h.Category.GetCategory(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	respondOK(w, category)
}

func (h *Handlers) handleRandomCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.Category.RandomCategory(r.Context(), r.URL.Query().Get("difficulty"))
	if err != nil {
		respondError(w, err)
		return
	}

	respondOK(w, category)
}
