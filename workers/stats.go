package workers

import (
	"log"
	"time"

	"go.uber.org/atomic"
)

type recomputer interface {
	Recompute() error
}

// StatsWorker refreshes settlement statistics on a fixed period. A failed
// refresh is logged and retried on the next tick, never surfaced to the
// transfer path.
type StatsWorker struct {
	agg      recomputer
	interval time.Duration
	running  atomic.Bool
	done     chan struct{}
}

func NewStatsWorker(agg recomputer, interval time.Duration) *StatsWorker {
	return &StatsWorker{agg: agg, interval: interval}
}

func (w *StatsWorker) Start() {
	if !w.running.CompareAndSwap(false, true) {
		return
	}
	w.done = make(chan struct{})
	go w.loop(w.done)
	log.Print("Statistics worker started")
}

func (w *StatsWorker) Stop() {
	if w.running.CompareAndSwap(true, false) {
		close(w.done)
		log.Print("Statistics worker stopped")
	}
}

func (w *StatsWorker) loop(done chan struct{}) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := w.agg.Recompute(); err != nil {
				log.Printf("Error refreshing settlement statistics: %v", err)
			}
		}
	}
}
