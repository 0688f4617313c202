package bridge

import (
	"fmt"
	"math/big"
	"sync"

	"gokaldbridge/pool"
	"gokaldbridge/types"
)

// Aggregator derives operational metrics from terminal transfers and pool
// snapshots. It is a read-only observer: a recompute failure is reported to
// the caller for logging and retried next period, it never touches transfer
// state.
type Aggregator struct {
	store Store
	pools *pool.Manager
	clock Clock

	mu    sync.RWMutex
	stats types.SettlementStatistics
}

func NewAggregator(store Store, pools *pool.Manager, clock Clock) *Aggregator {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Aggregator{
		store: store,
		pools: pools,
		clock: clock,
		stats: emptyStats(),
	}
}

func emptyStats() types.SettlementStatistics {
	return types.SettlementStatistics{
		TotalVolume:        big.NewInt(0),
		TotalFees:          big.NewInt(0),
		AggregateLiquidity: big.NewInt(0),
	}
}

// Recompute rebuilds the aggregate from every terminal transfer in the store.
func (a *Aggregator) Recompute() error {
	stats := emptyStats()
	var latencySum int64

	for _, status := range []types.TransferStatus{types.StatusCompleted, types.StatusFailed, types.StatusRefunded} {
		transfers, err := a.store.FindTransfersByStatus(status)
		if err != nil {
			return fmt.Errorf("scanning %s transfers: %w", status, err)
		}

		switch status {
		case types.StatusCompleted:
			stats.CompletedCount = len(transfers)
			for _, t := range transfers {
				if t.Amount != nil {
					stats.TotalVolume.Add(stats.TotalVolume, t.Amount)
				}
				if t.Fee != nil {
					stats.TotalFees.Add(stats.TotalFees, t.Fee)
				}
				if t.TsCompleted >= t.TsCreated {
					latencySum += t.TsCompleted - t.TsCreated
				}
			}
		case types.StatusFailed:
			stats.FailedCount = len(transfers)
		case types.StatusRefunded:
			stats.RefundedCount = len(transfers)
		}
	}

	stats.TransferCount = stats.CompletedCount + stats.FailedCount + stats.RefundedCount
	if stats.TransferCount > 0 {
		stats.SuccessRate = float64(stats.CompletedCount) / float64(stats.TransferCount)
	}
	if stats.CompletedCount > 0 {
		stats.MeanLatencySeconds = float64(latencySum) / float64(stats.CompletedCount)
	}

	for _, p := range a.pools.Snapshot() {
		if p.TotalLiquidity == nil || p.TotalLiquidity.Sign() == 0 {
			continue
		}
		stats.ActivePools++
		stats.AggregateLiquidity.Add(stats.AggregateLiquidity, p.TotalLiquidity)
	}

	stats.TsUpdated = a.clock.Now().Unix()

	a.mu.Lock()
	a.stats = stats
	a.mu.Unlock()
	return nil
}

// Stats returns the last computed aggregate.
func (a *Aggregator) Stats() types.SettlementStatistics {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stats
}
