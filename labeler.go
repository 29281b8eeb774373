package tabcounter

import (
	"context"
	"errors"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/tabcounter/core"
	"pkt.systems/tabcounter/internal/bridge"
	"pkt.systems/tabcounter/internal/eventbus"
	"pkt.systems/tabcounter/internal/logx"
	"pkt.systems/tabcounter/internal/scheduler"
	"pkt.systems/tabcounter/schema"
)

// Labeler keeps relative tab labels in sync with a tree provider.
type Labeler interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
	// Publish feeds a provider notification into the labeler.
	Publish(n schema.Notification)
	// Refresh requests a refresh without a notification.
	Refresh()
	// WaitIdle blocks until no refresh is running or pending.
	WaitIdle(ctx context.Context) error
}

// Source delivers provider notifications until ctx is done or the source
// fails. A nil return ends the source without stopping the labeler.
type Source func(ctx context.Context, publish func(schema.Notification)) error

// LabelerDeps captures dependencies required to build the labeler.
type LabelerDeps struct {
	Provider core.TreeProvider
	// ProviderName annotates log lines, e.g. "tst" or "cdp".
	ProviderName string
	Sources      []Source
}

// LabelerOption toggles labeler behavior.
type LabelerOption func(*labelerOptions)

type labelerOptions struct {
	initialRefresh bool
	busDepth       int
}

// WithInitialRefresh refreshes once right after Start.
func WithInitialRefresh() LabelerOption {
	return func(o *labelerOptions) { o.initialRefresh = true }
}

// WithBusDepth sets the notification buffer depth.
func WithBusDepth(depth int) LabelerOption {
	return func(o *labelerOptions) { o.busDepth = depth }
}

// New constructs a labeler around the provider.
func New(cfg schema.LabelerConfig, deps LabelerDeps, opts ...LabelerOption) (Labeler, error) {
	options := labelerOptions{busDepth: eventbus.DefaultDepth}
	for _, opt := range opts {
		opt(&options)
	}
	if deps.Provider == nil {
		return nil, errors.New("tree provider is required")
	}
	normalized, err := schema.NormalizeLabelerConfig(cfg)
	if err != nil {
		return nil, err
	}
	refresher, err := core.NewRefresher(normalized, core.RefresherDeps{Provider: deps.Provider})
	if err != nil {
		return nil, err
	}
	return &compositeLabeler{
		cfg:       normalized,
		options:   options,
		provider:  deps.ProviderName,
		sources:   deps.Sources,
		refresher: refresher,
	}, nil
}

type compositeLabeler struct {
	cfg       schema.LabelerConfig
	options   labelerOptions
	provider  string
	sources   []Source
	refresher *core.Refresher

	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	bus       *eventbus.Bus
	scheduler *scheduler.Scheduler
	errCh     chan error
	done      chan struct{}
	started   bool
	logger    pslog.Logger
}

func (l *compositeLabeler) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		pslog.Ctx(ctx).Warn("labeler start rejected", "reason", "already started")
		return errors.New("labeler already started")
	}
	if l.provider != "" {
		ctx = logx.ContextWithProviderLogger(ctx, l.provider)
	}
	l.ctx, l.cancel = context.WithCancel(ctx)
	l.logger = pslog.Ctx(l.ctx)
	l.bus = eventbus.NewFiltered(l.logger, l.options.busDepth, bridge.Qualifies)
	l.scheduler = scheduler.New(l.ctx, l.refresher.Refresh)
	l.errCh = make(chan error, len(l.sources)+1)
	l.done = make(chan struct{})
	l.started = true
	events, unsubscribe := l.bus.Subscribe()
	l.mu.Unlock()

	log := l.logger
	log.Info(
		"labeler start",
		"radius", l.cfg.Radius,
		"scope", l.cfg.Scope,
		"render_concurrency", l.cfg.RenderConcurrency,
		"refresh_timeout", l.cfg.RefreshTimeout,
		"sources", len(l.sources),
	)

	go func() {
		defer close(l.done)
		defer unsubscribe()
		bridge.Run(l.ctx, events, l.scheduler.Trigger)
	}()
	for i, source := range l.sources {
		if source == nil {
			continue
		}
		go func(i int, source Source) {
			if err := source(l.ctx, l.bus.Publish); err != nil && l.ctx.Err() == nil {
				log.Error("notification source failed", "source", i, "err", err)
				l.errCh <- err
			}
		}(i, source)
	}
	if l.options.initialRefresh {
		l.scheduler.Trigger()
	}
	return nil
}

func (l *compositeLabeler) Publish(n schema.Notification) {
	l.mu.Lock()
	bus := l.bus
	l.mu.Unlock()
	if bus == nil {
		return
	}
	bus.Publish(n)
}

func (l *compositeLabeler) Refresh() {
	l.mu.Lock()
	sched := l.scheduler
	l.mu.Unlock()
	if sched == nil {
		return
	}
	sched.Trigger()
}

func (l *compositeLabeler) WaitIdle(ctx context.Context) error {
	l.mu.Lock()
	sched := l.scheduler
	l.mu.Unlock()
	if sched == nil {
		return nil
	}
	return sched.WaitIdle(ctx)
}

func (l *compositeLabeler) Wait() error {
	l.mu.Lock()
	ctx := l.ctx
	errCh := l.errCh
	started := l.started
	l.mu.Unlock()
	if !started {
		return errors.New("labeler not started")
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			pslog.Ctx(ctx).Error("labeler stopped", "err", err)
			_ = l.Stop(context.Background())
			return err
		}
		return nil
	}
}

func (l *compositeLabeler) Stop(ctx context.Context) error {
	l.mu.Lock()
	cancel := l.cancel
	started := l.started
	log := l.logger
	bus := l.bus
	sched := l.scheduler
	done := l.done
	l.mu.Unlock()
	if !started {
		return nil
	}
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	log.Info("labeler stop requested")
	if sched != nil {
		sched.Close()
	}
	if cancel != nil {
		cancel()
	}
	if bus != nil {
		bus.Close()
	}
	if ctx == nil {
		log.Info("labeler stop completed")
		return nil
	}
	select {
	case <-ctx.Done():
		log.Warn("labeler stop timed out", "err", ctx.Err())
		return ctx.Err()
	case <-done:
	}
	if sched != nil {
		if err := sched.WaitIdle(ctx); err != nil {
			log.Warn("labeler stop timed out", "err", err)
			return err
		}
	}
	log.Info("labeler stopped")
	return nil
}
