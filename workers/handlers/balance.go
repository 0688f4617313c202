package handlers

import (
	"log"
	"net/http"
)

type APIBalanceResponse struct {
	Status  string  `json:"status"`
	Balance float64 `json:"balance"`
}

// HomeBalance reports the custodian wallet balance on the home ledger, in
// whole KALD.
func (h *Handler) HomeBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.home.Balance()
	if err != nil {
		log.Printf("Error getting home wallet balance: %s", err.Error())
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "Cannot read home wallet balance",
		}, http.StatusInternalServerError)
		return
	}

	responseJSON(w, &APIBalanceResponse{Status: "ok", Balance: balance}, http.StatusOK)
}
