package handlers

import (
	"math/big"
	"net/http"
)

func (h *Handler) AddLiquidity(w http.ResponseWriter, r *http.Request) {
	h.liquidity(w, r, true)
}

func (h *Handler) RemoveLiquidity(w http.ResponseWriter, r *http.Request) {
	h.liquidity(w, r, false)
}

func (h *Handler) liquidity(w http.ResponseWriter, r *http.Request, deposit bool) {
	var req LiquidityRequest
	if !readJSON(w, r, &req) {
		return
	}

	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok {
		responseJSON(w, &APIResponse{
			Status:  "error",
			Field:   "amount",
			Message: "Amount is not a decimal integer",
		}, http.StatusBadRequest)
		return
	}

	var err error
	if deposit {
		err = h.engine.AddLiquidity(req.Chain, req.Asset, amount, req.ProviderID)
	} else {
		err = h.engine.RemoveLiquidity(req.Chain, req.Asset, amount, req.ProviderID)
	}
	if err != nil {
		responseError(w, err)
		return
	}

	responseJSON(w, &APIResponse{Status: "ok"}, http.StatusOK)
}
