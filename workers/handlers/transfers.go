package handlers

import (
	"encoding/json"
	"io"
	"log"
	"math/big"
	"net/http"

	ethav "github.com/KOREAN139/ethereum-address-validator"
	"github.com/go-chi/chi"

	"gokaldbridge/types"
)

func (h *Handler) Initiate(w http.ResponseWriter, r *http.Request) {
	var req InitiateRequest
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

	// reject malformed addresses before touching the engine
	if !h.validAddress(w, req.SourceChain, req.FromAddress, "fromAddress") {
		return
	}
	if !h.validAddress(w, req.DestChain, req.ToAddress, "toAddress") {
		return
	}

	t, err := h.engine.Initiate(req.SourceChain, req.DestChain, req.FromAddress, req.ToAddress, amount, req.Asset, req.Signature)
	if err != nil {
		responseError(w, err)
		return
	}

	responseJSON(w, &APITransferResponse{Status: "ok", Transfer: t}, http.StatusOK)
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if !readJSON(w, r, &req) {
		return
	}

	if err := h.engine.Confirm(chi.URLParam(r, "id"), req.SourceTxHash, req.Confirmations); err != nil {
		responseError(w, err)
		return
	}

	responseJSON(w, &APIResponse{Status: "ok"}, http.StatusOK)
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	var req CompleteRequest
	if !readJSON(w, r, &req) {
		return
	}

	if err := h.engine.CompleteFromExternalProof(chi.URLParam(r, "id"), req.DestTxHash); err != nil {
		responseError(w, err)
		return
	}

	responseJSON(w, &APIResponse{Status: "ok"}, http.StatusOK)
}

func (h *Handler) PendingTransfers(w http.ResponseWriter, r *http.Request) {
	responseJSON(w, h.engine.ListPendingTransfers(), http.StatusOK)
}

func (h *Handler) FailedTransfers(w http.ResponseWriter, r *http.Request) {
	failed, err := h.engine.ListTransfersByStatus(types.StatusFailed)
	if err != nil {
		responseJSON(w, nil, http.StatusInternalServerError)
		return
	}

	responseJSON(w, failed, http.StatusOK)
}

func readJSON(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("Error reading request body: %s", err.Error())
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "Error reading request body",
		}, http.StatusBadRequest)
		return false
	}

	if err := json.Unmarshal(body, out); err != nil {
		log.Printf("Error unmarshalling request body: %s\n", err.Error())
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "Cannot unmarshal input JSON",
		}, http.StatusBadRequest)
		return false
	}

	return true
}

// validAddress checks address shape per chain family: EVM addresses against
// the checksum validator, home-ledger addresses against the node wallet.
func (h *Handler) validAddress(w http.ResponseWriter, chainID int, address, fieldName string) bool {
	desc, err := h.reg.Describe(chainID)
	if err != nil {
		// unknown chains are rejected by the engine with the proper error
		return true
	}

	switch desc.Family {
	case types.FAMILY_EVM:
		if err := ethav.Validate(address); err != nil {
			log.Printf("Error validating address '%s': %s\n", address, err.Error())
			responseJSON(w, &APIResponse{
				Status:  "error",
				Field:   fieldName,
				Message: "No EVM address or invalid address provided",
			}, http.StatusBadRequest)
			return false
		}
	case types.FAMILY_HOME:
		valid, err := h.home.ValidateAddress(address)
		if err != nil {
			log.Printf("Error validating address '%s': %s\n", address, err.Error())
			responseJSON(w, &APIResponse{
				Status:  "error",
				Message: "Cannot validate home-ledger address",
			}, http.StatusInternalServerError)
			return false
		}
		if !valid {
			responseJSON(w, &APIResponse{
				Status:  "error",
				Field:   fieldName,
				Message: "No home-ledger address or invalid address provided",
			}, http.StatusBadRequest)
			return false
		}
	}
	return true
}
