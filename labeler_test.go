package tabcounter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"pkt.systems/tabcounter/schema"
)

type memoryProvider struct {
	mu       sync.Mutex
	tabs     []schema.TabID
	active   schema.TabID
	fetches  int
	rendered map[schema.TabID]string
}

func newMemoryProvider(active schema.TabID, tabs ...schema.TabID) *memoryProvider {
	return &memoryProvider{tabs: tabs, active: active, rendered: map[schema.TabID]string{}}
}

func (p *memoryProvider) FetchOrderedTabs(context.Context, schema.Scope) ([]schema.TabID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetches++
	return append([]schema.TabID(nil), p.tabs...), nil
}

func (p *memoryProvider) QueryActiveTab(context.Context) (schema.TabID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == "" {
		return "", schema.ErrNoActiveTab
	}
	return p.active, nil
}

func (p *memoryProvider) Clear(_ context.Context, id schema.TabID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.rendered, id)
	return nil
}

func (p *memoryProvider) Apply(_ context.Context, id schema.TabID, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rendered[id] = text
	return nil
}

func (p *memoryProvider) snapshot() (map[schema.TabID]string, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[schema.TabID]string, len(p.rendered))
	for id, text := range p.rendered {
		out[id] = text
	}
	return out, p.fetches
}

func (p *memoryProvider) set(active schema.TabID, tabs ...schema.TabID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = active
	p.tabs = tabs
}

func startLabeler(t *testing.T, provider *memoryProvider, deps LabelerDeps, opts ...LabelerOption) Labeler {
	t.Helper()
	deps.Provider = provider
	labeler, err := New(schema.LabelerConfig{}, deps, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := labeler.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = labeler.Stop(ctx)
	})
	return labeler
}

func waitForFetches(t *testing.T, labeler Labeler, provider *memoryProvider, min int) map[schema.TabID]string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		rendered, fetches := provider.snapshot()
		if fetches >= min {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			err := labeler.WaitIdle(ctx)
			cancel()
			if err != nil {
				t.Fatalf("WaitIdle: %v", err)
			}
			rendered, _ = provider.snapshot()
			return rendered
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected %d fetches, got %d (rendered %v)", min, fetches, rendered)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewRequiresProvider(t *testing.T) {
	if _, err := New(schema.LabelerConfig{}, LabelerDeps{}); err == nil {
		t.Fatalf("expected provider error")
	}
}

func TestLabelerInitialRefresh(t *testing.T) {
	provider := newMemoryProvider("C", "A", "B", "C", "D", "E")
	labeler := startLabeler(t, provider, LabelerDeps{ProviderName: "test"}, WithInitialRefresh())

	got := waitForFetches(t, labeler, provider, 1)
	want := map[schema.TabID]string{"B": "1", "A": "2", "D": "1", "E": "2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("rendered labels mismatch (-want +got):\n%s", diff)
	}
}

func TestLabelerRefreshesOnQualifyingNotification(t *testing.T) {
	provider := newMemoryProvider("C", "A", "B", "C", "D", "E")
	labeler := startLabeler(t, provider, LabelerDeps{}, WithInitialRefresh())
	waitForFetches(t, labeler, provider, 1)

	provider.set("C", "A", "B", "D", "C", "E")
	labeler.Publish(schema.Notification{Source: "test", Type: schema.NotifyTabMoved})

	got := waitForFetches(t, labeler, provider, 2)
	want := map[schema.TabID]string{"D": "1", "B": "2", "A": "3", "E": "1"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("rendered labels mismatch (-want +got):\n%s", diff)
	}
}

func TestLabelerUnrelatedNotificationsDoNotCrowdOutMoves(t *testing.T) {
	provider := newMemoryProvider("C", "A", "B", "C", "D", "E")
	labeler := startLabeler(t, provider, LabelerDeps{}, WithInitialRefresh(), WithBusDepth(2))
	waitForFetches(t, labeler, provider, 1)

	provider.set("C", "A", "B", "D", "C", "E")
	for i := 0; i < 20; i++ {
		labeler.Publish(schema.Notification{Source: "test", Type: "tab-mousedown"})
		labeler.Publish(schema.Notification{Source: "test", Type: "scrolled"})
	}
	labeler.Publish(schema.Notification{Source: "test", Type: schema.NotifyTabMoved})

	got := waitForFetches(t, labeler, provider, 2)
	want := map[schema.TabID]string{"D": "1", "B": "2", "A": "3", "E": "1"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("rendered labels mismatch (-want +got):\n%s", diff)
	}
}

func TestLabelerSourcePublishes(t *testing.T) {
	provider := newMemoryProvider("A", "A", "B")
	source := func(ctx context.Context, publish func(schema.Notification)) error {
		publish(schema.Notification{Source: "test", Type: schema.NotifyReady})
		<-ctx.Done()
		return nil
	}
	labeler := startLabeler(t, provider, LabelerDeps{Sources: []Source{source}})

	got := waitForFetches(t, labeler, provider, 1)
	if diff := cmp.Diff(map[schema.TabID]string{"B": "1"}, got); diff != "" {
		t.Fatalf("rendered labels mismatch (-want +got):\n%s", diff)
	}
}

func TestLabelerWaitReturnsSourceError(t *testing.T) {
	provider := newMemoryProvider("A", "A")
	boom := errors.New("relay closed")
	source := func(context.Context, func(schema.Notification)) error { return boom }
	labeler := startLabeler(t, provider, LabelerDeps{Sources: []Source{source}})

	done := make(chan error, 1)
	go func() { done <- labeler.Wait() }()
	select {
	case err := <-done:
		if !errors.Is(err, boom) {
			t.Fatalf("expected source error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Wait did not return")
	}
}

func TestLabelerStartTwiceRejected(t *testing.T) {
	provider := newMemoryProvider("A", "A")
	labeler := startLabeler(t, provider, LabelerDeps{})
	if err := labeler.Start(context.Background()); err == nil {
		t.Fatalf("expected second Start to fail")
	}
}

func TestLabelerWaitReturnsOnStop(t *testing.T) {
	provider := newMemoryProvider("A", "A")
	labeler := startLabeler(t, provider, LabelerDeps{})
	done := make(chan error, 1)
	go func() { done <- labeler.Wait() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := labeler.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Wait: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Wait did not return after Stop")
	}
}

func TestWaitBeforeStart(t *testing.T) {
	labeler, err := New(schema.LabelerConfig{}, LabelerDeps{Provider: newMemoryProvider("A", "A")})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := labeler.Wait(); err == nil {
		t.Fatalf("expected error before Start")
	}
	if err := labeler.Stop(context.Background()); err != nil {
		t.Fatalf("Stop before Start: %v", err)
	}
}
