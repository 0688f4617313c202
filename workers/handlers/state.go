package handlers

import (
	"net/http"
)

// prev. bridge implementation compatibility
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	responseJSON(w, &APIResponse{
		Status: "ok",
	}, http.StatusOK)
}

func (h *Handler) Chains(w http.ResponseWriter, r *http.Request) {
	responseJSON(w, h.reg.All(), http.StatusOK)
}

func (h *Handler) Pools(w http.ResponseWriter, r *http.Request) {
	responseJSON(w, h.engine.Pools(), http.StatusOK)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	responseJSON(w, h.agg.Stats(), http.StatusOK)
}
