package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"gokaldbridge/types"
)

func responseJSON(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

// responseError maps bridge errors onto HTTP codes and the offending field.
func responseError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	field := ""

	switch {
	case errors.Is(err, types.ErrUnsupportedChain):
		code, field = http.StatusBadRequest, "chain"
	case errors.Is(err, types.ErrAmountOutOfRange):
		code, field = http.StatusBadRequest, "amount"
	case errors.Is(err, types.ErrInvalidSignature):
		code, field = http.StatusBadRequest, "signature"
	case errors.Is(err, types.ErrInsufficientLiquidity):
		code, field = http.StatusConflict, "amount"
	case errors.Is(err, types.ErrPoolNotFound):
		code, field = http.StatusNotFound, "asset"
	case errors.Is(err, types.ErrTransferNotFound):
		code = http.StatusNotFound
	case errors.Is(err, types.ErrNotPending):
		code = http.StatusConflict
	}

	responseJSON(w, &APIResponse{
		Status:  "error",
		Field:   field,
		Message: err.Error(),
	}, code)
}
