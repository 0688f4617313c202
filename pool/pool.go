package pool

import (
	"log"
	"math/big"
	"sort"
	"sync"
	"time"

	"gokaldbridge/types"
)

// Manager owns every (chain, asset) liquidity pool. Mutations on the same key
// are serialized by a per-pool mutex; operations on different keys do not
// block each other. The outer lock only guards the map itself.
type Manager struct {
	mu    sync.RWMutex
	pools map[types.PoolKey]*entry
}

type entry struct {
	mu        sync.Mutex
	total     *big.Int
	available *big.Int
	updated   int64
}

func NewManager() *Manager {
	return &Manager{pools: make(map[types.PoolKey]*entry)}
}

func (m *Manager) getOrCreate(key types.PoolKey) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.pools[key]
	if !ok {
		e = &entry{total: big.NewInt(0), available: big.NewInt(0)}
		m.pools[key] = e
	}
	return e
}

func (m *Manager) lookup(key types.PoolKey) *entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pools[key]
}

// Deposit increases both totals. Creates the pool on first use.
func (m *Manager) Deposit(chain int, asset string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return types.ErrAmountOutOfRange
	}

	e := m.getOrCreate(types.PoolKey{Chain: chain, Asset: asset})
	e.mu.Lock()
	defer e.mu.Unlock()

	e.total.Add(e.total, amount)
	e.available.Add(e.available, amount)
	e.updated = time.Now().Unix()
	return nil
}

// Withdraw decreases both totals, only from uncommitted liquidity.
func (m *Manager) Withdraw(chain int, asset string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return types.ErrAmountOutOfRange
	}

	e := m.lookup(types.PoolKey{Chain: chain, Asset: asset})
	if e == nil {
		return types.ErrPoolNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if amount.Cmp(e.available) > 0 {
		return types.ErrInsufficientLiquidity
	}
	e.total.Sub(e.total, amount)
	e.available.Sub(e.available, amount)
	e.updated = time.Now().Unix()
	return nil
}

// Reserve earmarks available liquidity for an in-flight outbound transfer.
// Total stays unchanged.
func (m *Manager) Reserve(chain int, asset string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return types.ErrAmountOutOfRange
	}

	e := m.lookup(types.PoolKey{Chain: chain, Asset: asset})
	if e == nil {
		return types.ErrPoolNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if amount.Cmp(e.available) > 0 {
		return types.ErrInsufficientLiquidity
	}
	e.available.Sub(e.available, amount)
	e.updated = time.Now().Unix()
	return nil
}

// Release returns a reservation after refund/timeout. Available can never
// exceed total; a violation means an accounting bug, so it is clamped and
// logged rather than surfaced to the caller.
func (m *Manager) Release(chain int, asset string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return types.ErrAmountOutOfRange
	}

	e := m.lookup(types.PoolKey{Chain: chain, Asset: asset})
	if e == nil {
		return types.ErrPoolNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.available.Add(e.available, amount)
	if e.available.Cmp(e.total) > 0 {
		log.Printf("pool %d/%s: release pushed available %s above total %s, clamping", chain, asset, e.available, e.total)
		e.available.Set(e.total)
	}
	e.updated = time.Now().Unix()
	return nil
}

// Credit adds arriving funds to both totals. Creates the pool on first use.
func (m *Manager) Credit(chain int, asset string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return types.ErrAmountOutOfRange
	}

	e := m.getOrCreate(types.PoolKey{Chain: chain, Asset: asset})
	e.mu.Lock()
	defer e.mu.Unlock()

	e.total.Add(e.total, amount)
	e.available.Add(e.available, amount)
	e.updated = time.Now().Unix()
	return nil
}

// Restore seeds a pool from a persisted snapshot at startup.
func (m *Manager) Restore(p types.LiquidityPool) {
	e := m.getOrCreate(types.PoolKey{Chain: p.Chain, Asset: p.Asset})
	e.mu.Lock()
	defer e.mu.Unlock()

	if p.TotalLiquidity != nil {
		e.total.Set(p.TotalLiquidity)
	}
	if p.AvailableLiquidity != nil {
		e.available.Set(p.AvailableLiquidity)
	}
	e.updated = p.LastUpdated
}

// Get returns a snapshot of one pool.
func (m *Manager) Get(chain int, asset string) (types.LiquidityPool, error) {
	e := m.lookup(types.PoolKey{Chain: chain, Asset: asset})
	if e == nil {
		return types.LiquidityPool{}, types.ErrPoolNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot(chain, asset), nil
}

// Snapshot returns snapshots of every pool, ordered by (chain, asset).
func (m *Manager) Snapshot() []types.LiquidityPool {
	m.mu.RLock()
	keys := make([]types.PoolKey, 0, len(m.pools))
	for k := range m.pools {
		keys = append(keys, k)
	}
	m.mu.RUnlock()

	out := make([]types.LiquidityPool, 0, len(keys))
	for _, k := range keys {
		if p, err := m.Get(k.Chain, k.Asset); err == nil {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Chain != out[j].Chain {
			return out[i].Chain < out[j].Chain
		}
		return out[i].Asset < out[j].Asset
	})
	return out
}

// caller holds e.mu
func (e *entry) snapshot(chain int, asset string) types.LiquidityPool {
	p := types.LiquidityPool{
		Chain:              chain,
		Asset:              asset,
		TotalLiquidity:     new(big.Int).Set(e.total),
		AvailableLiquidity: new(big.Int).Set(e.available),
		LastUpdated:        e.updated,
	}
	if e.total.Sign() > 0 {
		avail, _ := new(big.Float).Quo(new(big.Float).SetInt(e.available), new(big.Float).SetInt(e.total)).Float64()
		p.UtilizationRate = 1.0 - avail
	}
	return p
}
