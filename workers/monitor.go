package workers

import (
	"log"
	"time"

	"go.uber.org/atomic"
)

type expirer interface {
	ExpireTimedOut(now time.Time) int
}

// Monitor periodically refunds pending transfers past their timeout. It is
// restartable: Start after Stop spins up a fresh loop.
type Monitor struct {
	engine   expirer
	interval time.Duration
	running  atomic.Bool
	done     chan struct{}
}

func NewMonitor(engine expirer, interval time.Duration) *Monitor {
	return &Monitor{engine: engine, interval: interval}
}

func (m *Monitor) Start() {
	if !m.running.CompareAndSwap(false, true) {
		return
	}
	m.done = make(chan struct{})
	go m.loop(m.done)
	log.Print("Confirmation monitor started")
}

func (m *Monitor) Stop() {
	if m.running.CompareAndSwap(true, false) {
		close(m.done)
		log.Print("Confirmation monitor stopped")
	}
}

func (m *Monitor) loop(done chan struct{}) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if n := m.engine.ExpireTimedOut(time.Now()); n > 0 {
				log.Printf("Refunded %d timed out transfers", n)
			}
		}
	}
}
