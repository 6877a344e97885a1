package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeSource plays back a scripted sequence of fetch results. The last step
// repeats once the script is exhausted.
type fakeSource struct {
	mu    sync.Mutex
	steps []fetchStep
	calls int
}

type fetchStep struct {
	orders []Order
	err    error
}

func (f *fakeSource) FetchOrders(ctx context.Context, _ Filter) ([]Order, *PageMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	if i >= len(f.steps) {
		i = len(f.steps) - 1
	}
	f.calls++
	step := f.steps[i]
	return step.orders, nil, step.err
}

func (f *fakeSource) FetchOrder(ctx context.Context, id string) (*Order, error) {
	return nil, ErrNotFound
}

func (f *fakeSource) UpdateStatus(ctx context.Context, id, status string) (*Order, error) {
	return nil, ErrNotFound
}

func newTestPoller(t *testing.T, source OrderSource, n *Notifier) *Poller {
	t.Helper()
	p, err := NewPollerBuilder().
		WithSource(source).
		WithNotifier(n).
		WithInterval(time.Hour).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return p
}

func newOrderEvents(events []Event) []Event {
	var out []Event
	for _, e := range events {
		if e.Kind == KindSuccess {
			out = append(out, e)
		}
	}
	return out
}

func TestPollerDetectsNewOrders(t *testing.T) {
	source := &fakeSource{steps: []fetchStep{
		{orders: []Order{{OrderID: "5", Status: "pending"}}},
		{orders: []Order{{OrderID: "5", Status: "pending"}, {OrderID: "6", Status: "pending"}}},
	}}
	notifier := NewNotifier(nil)
	p := newTestPoller(t, source, notifier)
	ctx := context.Background()

	p.Cycle(ctx)
	first := newOrderEvents(notifier.List())
	if len(first) != 1 || first[0].OrderID != "5" {
		t.Fatalf("after first cycle: %v, want one notification for order 5", first)
	}

	p.Cycle(ctx)
	second := newOrderEvents(notifier.List())
	if len(second) != 2 {
		t.Fatalf("after second cycle: %d new-order notifications, want 2", len(second))
	}
	if second[0].OrderID != "6" {
		t.Errorf("second cycle notified %q, want exactly order 6", second[0].OrderID)
	}
}

func TestPollerFailedCyclePreservesBaseline(t *testing.T) {
	source := &fakeSource{steps: []fetchStep{
		{orders: []Order{{OrderID: "5", Status: "pending"}}},
		{err: &OpError{Op: "FetchOrders", Err: ErrUpstreamUnavailable}},
		{orders: []Order{{OrderID: "5", Status: "pending"}, {OrderID: "6", Status: "pending"}}},
	}}
	notifier := NewNotifier(nil)
	p := newTestPoller(t, source, notifier)
	ctx := context.Background()

	p.Cycle(ctx)
	p.Cycle(ctx)

	events := notifier.List()
	if len(events) == 0 || events[0].Kind != KindError {
		t.Fatal("failed cycle should add an error notification")
	}

	p.Cycle(ctx)
	newOrders := newOrderEvents(notifier.List())
	if len(newOrders) != 2 {
		t.Fatalf("got %d new-order notifications, want 2", len(newOrders))
	}
	if newOrders[0].OrderID != "6" {
		t.Errorf("cycle after failure notified %q, want only order 6 (baseline kept)", newOrders[0].OrderID)
	}
}

func TestPollerDiscardsResultAfterStop(t *testing.T) {
	source := &fakeSource{steps: []fetchStep{
		{orders: []Order{{OrderID: "5", Status: "pending"}}},
	}}
	notifier := NewNotifier(nil)
	p := newTestPoller(t, source, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Cycle(ctx)

	if len(notifier.List()) != 0 {
		t.Error("result arriving after stop must be discarded")
	}
	if len(p.Snapshot()) != 0 {
		t.Error("snapshot must stay empty when a cycle is discarded")
	}
}

func TestPollerStartStop(t *testing.T) {
	source := &fakeSource{steps: []fetchStep{
		{orders: []Order{{OrderID: "5", Status: "pending"}}},
	}}
	notifier := NewNotifier(nil)
	p := newTestPoller(t, source, notifier)

	p.Start(context.Background())
	if !p.Running() {
		t.Fatal("poller should report running after Start")
	}
	p.Start(context.Background()) // second Start is a no-op
	p.Stop()
	if p.Running() {
		t.Fatal("poller should report stopped after Stop")
	}
	p.Stop() // second Stop is a no-op

	// The immediate first cycle must have run exactly once despite the
	// duplicate Start.
	source.mu.Lock()
	calls := source.calls
	source.mu.Unlock()
	if calls != 1 {
		t.Errorf("source fetched %d times, want 1", calls)
	}
}

func TestPollerPushUnionsSeenSet(t *testing.T) {
	source := &fakeSource{steps: []fetchStep{
		{orders: []Order{{OrderID: "1", Status: "pending"}, {OrderID: "2", Status: "pending"}}},
	}}
	notifier := NewNotifier(nil)
	p := newTestPoller(t, source, notifier)
	ctx := context.Background()

	p.Cycle(ctx)
	now := time.Now()

	pushed := p.Push([]Order{{OrderID: "3", Status: "pending"}}, now)
	if len(pushed) != 1 || pushed[0].ResolvedID() != "3" {
		t.Fatalf("Push returned %v, want order 3", pushed)
	}

	// A partial push must not wipe the polled baseline.
	if again := p.Push([]Order{{OrderID: "1", Status: "accepted"}}, now); len(again) != 0 {
		t.Errorf("re-pushed known order counted as new: %v", again)
	}

	if got := len(p.Snapshot()); got != 3 {
		t.Errorf("snapshot has %d entries after push, want 3", got)
	}
}

func TestPollerBuilderRequiresSource(t *testing.T) {
	_, err := NewPollerBuilder().Build()
	if err == nil {
		t.Fatal("Build without source should return error")
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("got %T, want *ConfigError", err)
	}
}
