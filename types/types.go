package types

import (
	"math/big"
)

// it is assumed Kaldera mainnet is id 0
// Eth mainnet id 1, BNB id 56, etc.

type ChainFamily string

const (
	FAMILY_HOME ChainFamily = "home"
	FAMILY_EVM  ChainFamily = "evm"
)

// ChainDescriptor is the static identity of a supported network.
// Immutable after registry construction.
type ChainDescriptor struct {
	ID                    int
	Name                  string
	Family                ChainFamily
	NativeSymbol          string
	BlockIntervalSec      int
	BridgeContract        string // wKALD token address on EVM chains, empty on home
	RequiredConfirmations int
	TimeoutBlocks         int
	RPCList               []string
	Testnet               bool
}

type TransferStatus string

const (
	StatusPending   TransferStatus = "pending"   // source intent accepted, liquidity reserved
	StatusConfirmed TransferStatus = "confirmed" // reached required source confirmations
	StatusCompleted TransferStatus = "completed" // destination credited
	StatusFailed    TransferStatus = "failed"    // destination execution failed, needs manual remediation
	StatusRefunded  TransferStatus = "refunded"  // timed out while pending, reservation released
)

// Terminal reports whether no further transitions are permitted.
func (s TransferStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusRefunded
}

// AllStatuses in lifecycle order, used by storage to enumerate record sets.
var AllStatuses = []TransferStatus{
	StatusPending, StatusConfirmed, StatusCompleted, StatusFailed, StatusRefunded,
}

// BridgeTransfer is the transactional record of one value movement.
// Amounts are in base units of the asset (1e8 for KALD/wKALD).
type BridgeTransfer struct {
	ID            string
	Status        TransferStatus
	SourceChain   int
	DestChain     int
	SourceAddress string
	DestAddress   string
	Asset         string
	Amount        *big.Int // gross amount reserved on the source side
	Fee           *big.Int // bridge fee, fixed at initiation
	SourceTxHash  string
	DestTxHash    string // filled when destination transaction is executed

	Confirmations         int
	RequiredConfirmations int

	TsCreated       int64
	TsCompleted     int64
	TimeoutDeadline int64  // unix seconds
	TimeoutHeight   uint64 // source chain height, 0 when unknown

	Signature string // authorization proof over the canonical transfer tuple
	Message   string // messages that help to track processing/errors
}

// NetAmount is what the destination side receives (gross minus fee).
func (t *BridgeTransfer) NetAmount() *big.Int {
	return new(big.Int).Sub(t.Amount, t.Fee)
}

// PoolKey identifies one liquidity pool.
type PoolKey struct {
	Chain int
	Asset string
}

// LiquidityPool is a point-in-time snapshot of one (chain, asset) pool.
// UtilizationRate is always derived from the other two fields.
type LiquidityPool struct {
	Chain              int
	Asset              string
	TotalLiquidity     *big.Int
	AvailableLiquidity *big.Int
	UtilizationRate    float64
	LastUpdated        int64
}

// SettlementStatistics is a derived aggregate over terminal transfers,
// never a source of truth for transfer state.
type SettlementStatistics struct {
	TransferCount      int
	CompletedCount     int
	FailedCount        int
	RefundedCount      int
	TotalVolume        *big.Int
	TotalFees          *big.Int
	MeanLatencySeconds float64
	SuccessRate        float64
	ActivePools        int
	AggregateLiquidity *big.Int
	TsUpdated          int64
}
