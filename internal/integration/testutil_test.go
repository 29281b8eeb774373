package integration_test

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"go.lsp.dev/jsonrpc2"

	"pkt.systems/tabcounter"
	"pkt.systems/tabcounter/internal/nativemsg"
	"pkt.systems/tabcounter/internal/treeprovider"
	"pkt.systems/tabcounter/schema"
)

func requireLong(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}

// browserSim stands in for the relay extension plus Tree Style Tab: it owns
// the tab order, the active tab and the rendered badges.
type browserSim struct {
	mu       sync.Mutex
	order    []int64
	active   int64
	badges   map[int64]string
	failTabs map[int64]bool
	conn     jsonrpc2.Conn
}

func (b *browserSim) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	switch req.Method() {
	case treeprovider.MethodTabsQuery:
		b.mu.Lock()
		active := b.active
		b.mu.Unlock()
		if active == 0 {
			return reply(ctx, []any{}, nil)
		}
		return reply(ctx, []map[string]int64{{"id": active, "windowId": 1}}, nil)
	case treeprovider.MethodSend:
		var params struct {
			Message struct {
				Type     string `json:"type"`
				Tab      int64  `json:"tab"`
				Contents string `json:"contents"`
			} `json:"message"`
		}
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return reply(ctx, nil, err)
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		switch params.Message.Type {
		case "get-light-tree":
			tree := make([]map[string]int64, 0, len(b.order))
			for _, id := range b.order {
				tree = append(tree, map[string]int64{"id": id})
			}
			return reply(ctx, tree, nil)
		case "set-extra-contents":
			if b.failTabs[params.Message.Tab] {
				return reply(ctx, nil, errors.New("tab is gone"))
			}
			if params.Message.Contents == "" {
				delete(b.badges, params.Message.Tab)
			} else {
				b.badges[params.Message.Tab] = params.Message.Contents
			}
		}
		return reply(ctx, true, nil)
	default:
		return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
	}
}

func (b *browserSim) setOrder(active int64, order ...int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active = active
	b.order = order
}

func (b *browserSim) setFail(id int64, fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failTabs[id] = fail
}

// badgeLabels maps tab ids to label text for comparison.
func (b *browserSim) badgeLabels() map[int64]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[int64]string, len(b.badges))
	for id, markup := range b.badges {
		for label := 1; label <= 100; label++ {
			if markup == treeprovider.BadgeMarkup(strconv.Itoa(label)) {
				out[id] = strconv.Itoa(label)
				break
			}
		}
		if _, ok := out[id]; !ok {
			out[id] = markup
		}
	}
	return out
}

func (b *browserSim) notify(t *testing.T, method string, params any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.conn.Notify(ctx, method, params); err != nil {
		t.Fatalf("notify %s: %v", method, err)
	}
}

type rig struct {
	sim     *browserSim
	labeler tabcounter.Labeler
}

func newRig(t *testing.T, cfg schema.LabelerConfig, active int64, order ...int64) *rig {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hostEnd, browserEnd := net.Pipe()
	sim := &browserSim{
		order:    order,
		active:   active,
		badges:   map[int64]string{},
		failTabs: map[int64]bool{},
	}
	sim.conn = jsonrpc2.NewConn(nativemsg.NewStream(browserEnd))
	sim.conn.Go(ctx, sim.handle)
	t.Cleanup(func() { _ = sim.conn.Close() })

	conn := jsonrpc2.NewConn(nativemsg.NewStream(hostEnd))
	t.Cleanup(func() { _ = conn.Close() })
	client := treeprovider.New(conn, treeprovider.Config{})
	labeler, err := tabcounter.New(cfg, tabcounter.LabelerDeps{
		Provider:     client,
		ProviderName: treeprovider.ProviderName,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	conn.Go(ctx, client.Handler(ctx, labeler.Publish))
	if err := labeler.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer stopCancel()
		_ = labeler.Stop(stopCtx)
	})
	return &rig{sim: sim, labeler: labeler}
}

// converge waits until the rendered badges equal want, letting refreshes
// triggered by notifications drain in between checks.
func (r *rig) converge(t *testing.T, want map[int64]string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_ = r.labeler.WaitIdle(ctx)
		cancel()
		got := r.sim.badgeLabels()
		if maps.Equal(want, got) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("badges did not converge\nwant %v\ngot  %v", want, got)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
