package handlers

import "gokaldbridge/types"

type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
}

type APITransferResponse struct {
	Status   string                `json:"status"`
	Transfer *types.BridgeTransfer `json:"transfer"`
}

type InitiateRequest struct {
	SourceChain int    `json:"sourceChain"`
	DestChain   int    `json:"destChain"`
	FromAddress string `json:"fromAddress"`
	ToAddress   string `json:"toAddress"`
	Amount      string `json:"amount"` // base units, decimal string
	Asset       string `json:"asset"`
	Signature   string `json:"signature"`
}

type ConfirmRequest struct {
	SourceTxHash  string `json:"sourceTxHash"`
	Confirmations int    `json:"confirmations"`
}

type CompleteRequest struct {
	DestTxHash string `json:"destTxHash"`
}

type LiquidityRequest struct {
	Chain      int    `json:"chain"`
	Asset      string `json:"asset"`
	Amount     string `json:"amount"`
	ProviderID string `json:"providerId"`
}
