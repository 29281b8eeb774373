package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"

	"pkt.systems/pslog"
	"pkt.systems/tabcounter/internal/logx"
	"pkt.systems/tabcounter/schema"
)

// Refresher recomputes and renders labels from live provider state.
// It owns the previously applied assignment; callers must not run Refresh
// concurrently (the scheduler serializes it).
type Refresher struct {
	cfg      schema.LabelerConfig
	provider TreeProvider
	renderer *LabelRenderer
	logger   pslog.Logger
	previous schema.Assignment
	// stale is set until a refresh fully succeeds, and again after one fails
	// part-way through rendering. touched holds every tab a failed render may
	// have left a badge on.
	stale   bool
	touched map[schema.TabID]struct{}
	seq     atomic.Uint64
}

// NewRefresher constructs a Refresher with an empty previous assignment.
func NewRefresher(cfg schema.LabelerConfig, deps RefresherDeps) (*Refresher, error) {
	normalized, err := schema.NormalizeLabelerConfig(cfg)
	if err != nil {
		return nil, err
	}
	if deps.Provider == nil {
		return nil, errors.New("tree provider is required")
	}
	if deps.Renderer == nil {
		deps.Renderer = NewLabelRenderer(deps.Provider, normalized.RenderConcurrency)
	}
	return &Refresher{
		cfg:      normalized,
		provider: deps.Provider,
		renderer: deps.Renderer,
		logger:   deps.Logger,
		previous: schema.Assignment{},
		stale:    true,
	}, nil
}

// Previous returns a copy of the last successfully applied assignment.
func (r *Refresher) Previous() schema.Assignment {
	return r.previous.Clone()
}

// Refresh runs one label refresh. A missing active tab is a no-op and returns
// nil. Any provider error aborts the refresh and leaves the previous
// assignment untouched.
func (r *Refresher) Refresh(ctx context.Context) error {
	seq := r.seq.Add(1)
	base := r.logger
	if base == nil {
		base = pslog.Ctx(ctx)
	}
	log := logx.WithRefresh(base, seq)
	ctx = pslog.ContextWithLogger(ctx, log)
	if r.cfg.RefreshTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.RefreshTimeout)
		defer cancel()
	}

	active, err := r.provider.QueryActiveTab(ctx)
	if errors.Is(err, schema.ErrNoActiveTab) {
		log.Debug("refresh skipped", "reason", "no active tab")
		return nil
	}
	if err != nil {
		return fmt.Errorf("query active tab: %w", err)
	}
	log = logx.WithTab(log, active)
	ctx = pslog.ContextWithLogger(ctx, log)

	// A label left on the active tab by an aborted refresh is not in previous.
	// A labeled active tab is cleared by the diff instead, so when it is missing
	// from the fetched tree its badge stays until a refresh finds it again.
	if _, labeled := r.previous[active]; r.stale && !labeled {
		if err := r.renderer.ClearTab(ctx, active); err != nil {
			return err
		}
	}

	tabs, err := r.provider.FetchOrderedTabs(ctx, r.cfg.Scope)
	if err != nil {
		return fmt.Errorf("fetch tabs: %w", err)
	}
	window, ok := SelectWindow(tabs, active, r.cfg.Radius)
	if !ok {
		log.Debug("refresh skipped", "reason", schema.ErrActiveTabMissing.Error(), "tabs", len(tabs))
		return nil
	}
	plan := r.plan(window)
	if err := r.renderer.Execute(ctx, plan); err != nil {
		r.markTouched(plan)
		r.stale = true
		return err
	}
	r.previous = plan.Next
	r.stale = false
	r.touched = nil
	log.Debug("refresh applied", "tabs", len(tabs), "before", len(window.Before), "after", len(window.After), "cleared", len(plan.Clear), "set", len(plan.Set))
	return nil
}

// plan diffs against previous, or rebuilds every badge after a failed render
// left the rendered state unknown.
func (r *Refresher) plan(window Window) Plan {
	if !r.stale {
		return Diff(r.previous, window)
	}
	plan := Diff(nil, window)
	for id := range r.previous {
		if _, ok := plan.Next[id]; !ok {
			plan.Clear = append(plan.Clear, id)
		}
	}
	for id := range r.touched {
		_, next := plan.Next[id]
		_, prev := r.previous[id]
		if !next && !prev {
			plan.Clear = append(plan.Clear, id)
		}
	}
	slices.Sort(plan.Clear)
	return plan
}

func (r *Refresher) markTouched(plan Plan) {
	if r.touched == nil {
		r.touched = make(map[schema.TabID]struct{}, len(plan.Next)+len(plan.Clear))
	}
	for _, id := range plan.Clear {
		r.touched[id] = struct{}{}
	}
	for id := range plan.Next {
		r.touched[id] = struct{}{}
	}
}
