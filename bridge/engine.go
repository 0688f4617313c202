package bridge

import (
	"errors"
	"fmt"
	"log"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"gokaldbridge/pool"
	"gokaldbridge/registry"
	"gokaldbridge/signer"
	"gokaldbridge/types"
)

// Store is the durable record collaborator. Terminal transfers are never
// deleted from it, only moved between status sets.
type Store interface {
	SaveTransfer(t *types.BridgeTransfer) error
	UpdateTransferStatus(t *types.BridgeTransfer, prev types.TransferStatus) error
	FindTransfer(id string) (*types.BridgeTransfer, error)
	FindTransfersByStatus(status types.TransferStatus) ([]*types.BridgeTransfer, error)
	SavePool(p types.LiquidityPool) error
	LoadPools() ([]types.LiquidityPool, error)
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// HeightSource reads current external chain heights for timeout bookkeeping.
type HeightSource interface {
	Height(chain types.ChainDescriptor) (uint64, error)
}

// Executor performs the destination-side value movement of a confirmed
// transfer and returns the destination transaction reference.
type Executor interface {
	Execute(t *types.BridgeTransfer) (string, error)
}

type Options struct {
	FeePercentage     int
	MinTransferAmount *big.Int
	MaxTransferAmount *big.Int
}

// Engine owns the transfer lifecycle and the active in-memory index. The
// index holds pending and confirmed transfers only; terminal records live in
// the store.
type Engine struct {
	reg      *registry.Registry
	pools    *pool.Manager
	store    Store
	verifier signer.Verifier
	clock    Clock
	heights  HeightSource // optional
	exec     Executor
	opts     Options

	mu     sync.RWMutex
	active map[string]*types.BridgeTransfer
}

func New(reg *registry.Registry, pools *pool.Manager, store Store, verifier signer.Verifier, clock Clock, heights HeightSource, exec Executor, opts Options) (*Engine, error) {
	if clock == nil {
		clock = SystemClock{}
	}

	e := &Engine{
		reg:      reg,
		pools:    pools,
		store:    store,
		verifier: verifier,
		clock:    clock,
		heights:  heights,
		exec:     exec,
		opts:     opts,
		active:   make(map[string]*types.BridgeTransfer),
	}

	persisted, err := store.LoadPools()
	if err != nil {
		return nil, fmt.Errorf("restoring pools: %w", err)
	}
	for _, p := range persisted {
		pools.Restore(p)
	}

	for _, status := range []types.TransferStatus{types.StatusPending, types.StatusConfirmed} {
		transfers, err := store.FindTransfersByStatus(status)
		if err != nil {
			return nil, fmt.Errorf("restoring active transfers: %w", err)
		}
		for _, t := range transfers {
			e.active[t.ID] = t
		}
	}

	return e, nil
}

// CanonicalMessage is the byte string a transfer authorization signs.
func CanonicalMessage(sourceChain, destChain int, fromAddr, toAddr string, amount *big.Int, asset string) []byte {
	return []byte(fmt.Sprintf("kaldbridge:%d:%d:%s:%s:%s:%s", sourceChain, destChain, fromAddr, toAddr, amount.String(), asset))
}

// Initiate validates a transfer intent and reserves source liquidity.
// Reservation is the last step: a failure in any earlier check leaves no
// side effects anywhere.
func (e *Engine) Initiate(sourceChain, destChain int, fromAddr, toAddr string, amount *big.Int, asset, signature string) (*types.BridgeTransfer, error) {
	src, err := e.reg.Describe(sourceChain)
	if err != nil {
		return nil, err
	}
	if _, err := e.reg.Describe(destChain); err != nil {
		return nil, err
	}

	if amount == nil || amount.Sign() <= 0 {
		return nil, types.ErrAmountOutOfRange
	}
	if e.opts.MinTransferAmount != nil && amount.Cmp(e.opts.MinTransferAmount) < 0 {
		return nil, types.ErrAmountOutOfRange
	}
	if e.opts.MaxTransferAmount != nil && amount.Cmp(e.opts.MaxTransferAmount) > 0 {
		return nil, types.ErrAmountOutOfRange
	}

	if !e.verifier.Verify(CanonicalMessage(sourceChain, destChain, fromAddr, toAddr, amount, asset), signature, fromAddr) {
		return nil, types.ErrInvalidSignature
	}

	if err := e.pools.Reserve(sourceChain, asset, amount); err != nil {
		return nil, err
	}

	now := e.clock.Now()
	fee := new(big.Int).Mul(amount, big.NewInt(int64(e.opts.FeePercentage)))
	fee.Div(fee, big.NewInt(100))

	t := &types.BridgeTransfer{
		ID:                    uuid.New().String(),
		Status:                types.StatusPending,
		SourceChain:           sourceChain,
		DestChain:             destChain,
		SourceAddress:         fromAddr,
		DestAddress:           toAddr,
		Asset:                 asset,
		Amount:                new(big.Int).Set(amount),
		Fee:                   fee,
		RequiredConfirmations: src.RequiredConfirmations,
		TsCreated:             now.Unix(),
		TimeoutDeadline:       now.Unix() + int64(src.BlockIntervalSec)*int64(src.TimeoutBlocks),
		Signature:             signature,
	}

	if e.heights != nil {
		if h, err := e.heights.Height(src); err == nil {
			t.TimeoutHeight = h + uint64(src.TimeoutBlocks)
		} else {
			log.Printf("Cannot read height of chain %d, wall-clock timeout only: %v", sourceChain, err)
		}
	}

	if err := e.store.SaveTransfer(t); err != nil {
		// roll the reservation back, the record never existed
		if rerr := e.pools.Release(sourceChain, asset, amount); rerr != nil {
			log.Printf("Error releasing reservation for unsaved transfer: %v", rerr)
		}
		return nil, fmt.Errorf("persisting transfer: %w", err)
	}

	e.mu.Lock()
	e.active[t.ID] = t
	snapshot := *t
	e.mu.Unlock()

	e.savePoolSnapshot(sourceChain, asset)
	log.Printf("Initiated transfer %s: %s %s from %d:%s to %d:%s (fee %s)",
		t.ID, amount, asset, sourceChain, fromAddr, destChain, toAddr, fee)

	return &snapshot, nil
}

// Confirm records the source-side confirmation count. Crossing the required
// threshold moves the transfer to confirmed and triggers destination
// execution.
func (e *Engine) Confirm(transferID, sourceTxRef string, confirmations int) error {
	e.mu.Lock()
	t, ok := e.active[transferID]
	if !ok {
		e.mu.Unlock()
		return e.missing(transferID)
	}
	if t.Status != types.StatusPending {
		e.mu.Unlock()
		return types.ErrNotPending
	}

	if sourceTxRef != "" {
		t.SourceTxHash = sourceTxRef
	}
	if confirmations > t.Confirmations {
		t.Confirmations = confirmations
	}
	crossed := t.Confirmations >= t.RequiredConfirmations
	if crossed {
		t.Status = types.StatusConfirmed
	}
	snapshot := *t
	e.mu.Unlock()

	if err := e.store.UpdateTransferStatus(&snapshot, types.StatusPending); err != nil {
		// roll the status back so the caller can retry the confirmation
		if crossed {
			e.mu.Lock()
			if t.Status == types.StatusConfirmed {
				t.Status = types.StatusPending
			}
			e.mu.Unlock()
		}
		log.Printf("Error saving updated transfer %s: %v", transferID, err)
		return fmt.Errorf("persisting transfer: %w", err)
	}

	if !crossed {
		return nil
	}

	// destination execution failure is a state, not a caller error:
	// the transfer parks in failed for manual remediation
	destTx, err := e.exec.Execute(t)
	if err != nil {
		log.Printf("Destination execution failed for transfer %s: %v", transferID, err)
		if ferr := e.transition(t, types.StatusFailed, types.StatusConfirmed, "", fmt.Sprintf("destination execution failed: %v", err)); ferr != nil {
			log.Printf("Error marking transfer %s failed: %v", transferID, ferr)
		}
		return nil
	}

	return e.transition(t, types.StatusCompleted, types.StatusConfirmed, destTx, "")
}

// CompleteFromExternalProof lets a relayer finish a transfer with proof of
// destination-side completion. Same terminal effects as execution success.
func (e *Engine) CompleteFromExternalProof(transferID, destTxRef string) error {
	e.mu.RLock()
	t, ok := e.active[transferID]
	e.mu.RUnlock()
	if !ok {
		return e.missing(transferID)
	}

	return e.transition(t, types.StatusCompleted, "", destTxRef, "completed via external relayer proof")
}

// ExpireTimedOut refunds every pending transfer past its deadline and returns
// how many were refunded. Pool locks are only held inside the individual
// release, never across the scan. Per-item failures are logged and retried on
// the next cycle.
func (e *Engine) ExpireTimedOut(now time.Time) int {
	type candidate struct {
		t        *types.BridgeTransfer
		chain    int
		deadline int64
		height   uint64
	}

	e.mu.RLock()
	candidates := make([]candidate, 0, len(e.active))
	for _, t := range e.active {
		if t.Status != types.StatusPending {
			// confirmed transfers are not subject to timeout, funds are
			// already committed
			continue
		}
		candidates = append(candidates, candidate{t: t, chain: t.SourceChain, deadline: t.TimeoutDeadline, height: t.TimeoutHeight})
	}
	e.mu.RUnlock()

	// one height read per source chain per scan, best effort
	heights := make(map[int]uint64)
	if e.heights != nil {
		seen := make(map[int]bool)
		for _, c := range candidates {
			if c.height == 0 || seen[c.chain] {
				continue
			}
			seen[c.chain] = true
			desc, err := e.reg.Describe(c.chain)
			if err != nil {
				continue
			}
			h, err := e.heights.Height(desc)
			if err != nil {
				log.Printf("Cannot read height of chain %d: %v", c.chain, err)
				continue
			}
			heights[c.chain] = h
		}
	}

	count := 0
	for _, c := range candidates {
		expired := c.deadline > 0 && now.Unix() > c.deadline
		if !expired && c.height > 0 {
			if h, ok := heights[c.chain]; ok && h > c.height {
				expired = true
			}
		}
		if !expired {
			continue
		}

		err := e.transition(c.t, types.StatusRefunded, types.StatusPending, "", "timed out waiting for source confirmations")
		if err != nil {
			if !errors.Is(err, types.ErrNotPending) {
				log.Printf("Error refunding timed out transfer %s: %v", c.t.ID, err)
			}
			continue
		}
		count++
	}
	return count
}

// transition applies a terminal state change exactly once. require narrows
// the legal source state; empty means any non-terminal state.
func (e *Engine) transition(t *types.BridgeTransfer, to types.TransferStatus, require types.TransferStatus, destTxRef, msg string) error {
	e.mu.Lock()
	if t.Status.Terminal() {
		e.mu.Unlock()
		return types.ErrNotPending
	}
	if require != "" && t.Status != require {
		e.mu.Unlock()
		return types.ErrNotPending
	}

	prev := t.Status
	t.Status = to
	if msg != "" {
		appendMessage(t, msg)
	}
	if to == types.StatusCompleted {
		t.DestTxHash = destTxRef
		t.TsCompleted = e.clock.Now().Unix()
	}
	delete(e.active, t.ID)
	snapshot := *t
	e.mu.Unlock()

	switch to {
	case types.StatusCompleted:
		if err := e.pools.Credit(t.DestChain, t.Asset, t.NetAmount()); err != nil {
			log.Printf("Error crediting destination pool for transfer %s: %v", t.ID, err)
		}
		e.savePoolSnapshot(t.DestChain, t.Asset)
		log.Printf("Transfer %s completed, destination tx %s", t.ID, destTxRef)
	case types.StatusRefunded:
		if err := e.pools.Release(t.SourceChain, t.Asset, t.Amount); err != nil {
			log.Printf("Error releasing reservation for transfer %s: %v", t.ID, err)
		}
		e.savePoolSnapshot(t.SourceChain, t.Asset)
		log.Printf("Transfer %s refunded, reservation released", t.ID)
	case types.StatusFailed:
		// no automatic fund movement, flagged for manual remediation
		log.Printf("Transfer %s failed, requires operator remediation", t.ID)
	}

	if err := e.store.UpdateTransferStatus(&snapshot, prev); err != nil {
		log.Printf("Error saving transfer %s in state %s: %v", t.ID, to, err)
		return fmt.Errorf("persisting transfer: %w", err)
	}
	return nil
}

// AddLiquidity deposits provider funds into a pool.
func (e *Engine) AddLiquidity(chain int, asset string, amount *big.Int, providerID string) error {
	if _, err := e.reg.Describe(chain); err != nil {
		return err
	}
	if err := e.pools.Deposit(chain, asset, amount); err != nil {
		return err
	}
	e.savePoolSnapshot(chain, asset)
	log.Printf("Provider %s deposited %s %s into pool %d", providerID, amount, asset, chain)
	return nil
}

// RemoveLiquidity withdraws provider funds, only from uncommitted liquidity.
func (e *Engine) RemoveLiquidity(chain int, asset string, amount *big.Int, providerID string) error {
	if _, err := e.reg.Describe(chain); err != nil {
		return err
	}
	if err := e.pools.Withdraw(chain, asset, amount); err != nil {
		return err
	}
	e.savePoolSnapshot(chain, asset)
	log.Printf("Provider %s withdrew %s %s from pool %d", providerID, amount, asset, chain)
	return nil
}

// ListPendingTransfers returns copies of the pending transfers ordered by
// creation time.
func (e *Engine) ListPendingTransfers() []types.BridgeTransfer {
	e.mu.RLock()
	out := make([]types.BridgeTransfer, 0, len(e.active))
	for _, t := range e.active {
		if t.Status == types.StatusPending {
			out = append(out, *t)
		}
	}
	e.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].TsCreated < out[j].TsCreated })
	return out
}

// ListTransfersByStatus reads one status set from the store, used by the
// operator endpoints for terminal records.
func (e *Engine) ListTransfersByStatus(status types.TransferStatus) ([]*types.BridgeTransfer, error) {
	return e.store.FindTransfersByStatus(status)
}

// Pools returns snapshots of every liquidity pool.
func (e *Engine) Pools() []types.LiquidityPool {
	return e.pools.Snapshot()
}

func (e *Engine) missing(transferID string) error {
	rec, err := e.store.FindTransfer(transferID)
	if err != nil {
		return fmt.Errorf("looking up transfer: %w", err)
	}
	if rec == nil {
		return types.ErrTransferNotFound
	}
	// present in the store but not active: already terminal
	return types.ErrNotPending
}

// snapshot persistence is best effort, the in-process manager stays
// authoritative
func (e *Engine) savePoolSnapshot(chain int, asset string) {
	p, err := e.pools.Get(chain, asset)
	if err != nil {
		return
	}
	if err := e.store.SavePool(p); err != nil {
		log.Printf("Error persisting pool %d/%s snapshot: %v", chain, asset, err)
	}
}

func appendMessage(t *types.BridgeTransfer, msg string) {
	if t.Message == "" {
		t.Message = msg
	} else {
		t.Message += "; " + msg
	}
}
