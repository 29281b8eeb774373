package core

import (
	"context"
	"fmt"
	"sync"

	"pkt.systems/tabcounter/schema"
)

type call struct {
	Op   string
	Tab  schema.TabID
	Text string
}

func (c call) String() string {
	if c.Op == "apply" {
		return fmt.Sprintf("apply %s=%s", c.Tab, c.Text)
	}
	return fmt.Sprintf("%s %s", c.Op, c.Tab)
}

type fakeProvider struct {
	mu       sync.Mutex
	tabs     []schema.TabID
	active   schema.TabID
	fetchErr error
	queryErr error
	failOn   map[schema.TabID]error
	calls    []call
	rendered map[schema.TabID]string
}

func newFakeProvider(active schema.TabID, tabs ...schema.TabID) *fakeProvider {
	return &fakeProvider{
		tabs:     tabs,
		active:   active,
		failOn:   map[schema.TabID]error{},
		rendered: map[schema.TabID]string{},
	}
}

func (p *fakeProvider) FetchOrderedTabs(_ context.Context, _ schema.Scope) ([]schema.TabID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call{Op: "fetch"})
	if p.fetchErr != nil {
		return nil, p.fetchErr
	}
	return append([]schema.TabID(nil), p.tabs...), nil
}

func (p *fakeProvider) QueryActiveTab(_ context.Context) (schema.TabID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call{Op: "query"})
	if p.queryErr != nil {
		return "", p.queryErr
	}
	if p.active == "" {
		return "", schema.ErrNoActiveTab
	}
	return p.active, nil
}

func (p *fakeProvider) Clear(_ context.Context, id schema.TabID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call{Op: "clear", Tab: id})
	if err := p.failOn[id]; err != nil {
		return err
	}
	delete(p.rendered, id)
	return nil
}

func (p *fakeProvider) Apply(_ context.Context, id schema.TabID, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call{Op: "apply", Tab: id, Text: text})
	if err := p.failOn[id]; err != nil {
		return err
	}
	p.rendered[id] = text
	return nil
}

func (p *fakeProvider) takeCalls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.calls))
	for _, c := range p.calls {
		out = append(out, c.String())
	}
	p.calls = nil
	return out
}

func (p *fakeProvider) setActive(id schema.TabID) {
	p.mu.Lock()
	p.active = id
	p.mu.Unlock()
}

func tabIDs(names ...string) []schema.TabID {
	out := make([]schema.TabID, 0, len(names))
	for _, name := range names {
		out = append(out, schema.TabID(name))
	}
	return out
}
