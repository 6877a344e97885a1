package bridge

import (
	"context"
	"sync"
	"time"

	"orderbridge/pkg/metrics"
)

const defaultPollInterval = 5 * time.Second

// Poller runs the fetch -> classify -> diff -> notify cycle on a fixed
// interval. Cycles never overlap: the loop consumes ticks inline, so a tick
// that fires mid-cycle waits for the cycle to finish.
type Poller struct {
	source   OrderSource
	notifier *Notifier
	archiver Archiver
	filter   Filter
	interval time.Duration
	logger   Logger

	mu       sync.Mutex
	seen     map[string]struct{}
	snapshot []ClassifiedOrder

	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Start launches the poll loop. Starting an already-running poller is a
// no-op. The first cycle runs immediately, before the first tick.
func (p *Poller) Start(ctx context.Context) {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	if p.running {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true

	go p.run(loopCtx)
}

// Stop prevents any further cycles from starting and waits for an in-flight
// cycle to exit. A fetch result arriving after Stop is discarded.
func (p *Poller) Stop() {
	p.runMu.Lock()
	if !p.running {
		p.runMu.Unlock()
		return
	}
	p.cancel()
	done := p.done
	p.running = false
	p.runMu.Unlock()

	<-done
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	p.Cycle(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Cycle(ctx)
		}
	}
}

// Cycle executes one fetch -> classify -> diff -> notify pass. It is also
// the manual-refresh entry point; the seen-set mutex serializes a manual
// refresh racing a timer cycle. A failed fetch notifies and leaves the seen
// set untouched, so the next successful cycle diffs against the last good
// baseline.
func (p *Poller) Cycle(ctx context.Context) {
	start := time.Now()
	metrics.PollCyclesTotal.Inc()

	orders, _, err := p.source.FetchOrders(ctx, p.filter)
	if ctx.Err() != nil {
		// Stopped while the fetch was in flight; discard the result.
		return
	}
	metrics.FetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PollCyclesFailed.Inc()
		p.logger.Error("poll cycle failed: %v", err)
		p.notifier.Add("Order fetch failed", err.Error(), KindError, "")
		return
	}
	metrics.OrdersFetchedTotal.Add(float64(len(orders)))

	newOrders := p.Ingest(orders, time.Now())

	if p.archiver != nil && len(orders) > 0 {
		if err := p.archiver.UpsertOrders(ctx, orders); err != nil {
			p.logger.Error("archiving orders: %v", err)
		}
	}

	p.logger.Debug("poll cycle done: %d orders, %d new", len(orders), len(newOrders))
}

// Ingest diffs a polled batch against the seen set, replaces the baseline
// wholesale and notifies per new order.
func (p *Poller) Ingest(orders []Order, now time.Time) []Order {
	p.mu.Lock()
	newOrders, ids := Diff(p.seen, orders)
	p.seen = ids
	p.snapshot = ClassifyAll(orders, now)
	p.mu.Unlock()

	p.notifyNew(newOrders)
	return newOrders
}

// Push feeds orders arriving over the webhook. Unlike a poll cycle a pushed
// batch is partial, so the seen set grows by union instead of being replaced
// and the snapshot keeps entries the push did not mention.
func (p *Poller) Push(orders []Order, now time.Time) []Order {
	p.mu.Lock()
	newOrders, ids := Diff(p.seen, orders)
	for id := range ids {
		p.seen[id] = struct{}{}
	}
	p.snapshot = mergeSnapshot(p.snapshot, ClassifyAll(orders, now))
	p.mu.Unlock()

	p.notifyNew(newOrders)
	return newOrders
}

func (p *Poller) notifyNew(newOrders []Order) {
	for _, o := range newOrders {
		metrics.OrdersNewTotal.Inc()
		p.notifier.Add("New order", "Order "+o.ResolvedID()+" received", KindSuccess, o.ResolvedID())
	}
}

// mergeSnapshot overlays pushed entries onto the existing snapshot, matching
// by resolved id; unmatched pushes are appended.
func mergeSnapshot(existing, pushed []ClassifiedOrder) []ClassifiedOrder {
	index := make(map[string]int, len(existing))
	for i, co := range existing {
		index[co.Order.ResolvedID()] = i
	}
	for _, co := range pushed {
		if i, ok := index[co.Order.ResolvedID()]; ok {
			existing[i] = co
		} else {
			existing = append(existing, co)
		}
	}
	return existing
}

// Snapshot returns the classified result of the most recent cycle.
func (p *Poller) Snapshot() []ClassifiedOrder {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ClassifiedOrder, len(p.snapshot))
	copy(out, p.snapshot)
	return out
}

// Running reports whether the poll loop is active.
func (p *Poller) Running() bool {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	return p.running
}

// Interval returns the configured poll period.
func (p *Poller) Interval() time.Duration {
	return p.interval
}
