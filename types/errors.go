package types

import "errors"

// Bridge errors, returned synchronously to the caller of the operation
// that detected them.
var (
	ErrUnsupportedChain      = errors.New("chain not supported")
	ErrAmountOutOfRange      = errors.New("amount outside configured transfer bounds")
	ErrInvalidSignature      = errors.New("invalid transfer signature")
	ErrInsufficientLiquidity = errors.New("insufficient available liquidity")
	ErrNotPending            = errors.New("illegal transfer state transition")
	ErrPoolNotFound          = errors.New("liquidity pool not found")
	ErrTransferNotFound      = errors.New("transfer not found")
)
