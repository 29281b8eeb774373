// Package cdpprovider labels Chrome tabs over the DevTools protocol.
//
// Chrome has no tab tree, so the ordered sequence is the page targets in
// Target.getTargets order and the active tab is the first page whose
// document is visible. Badges are rendered into the page itself and as a
// "[N] " title prefix.
package cdpprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"pkt.systems/pslog"
	"pkt.systems/tabcounter/internal/logx"
	"pkt.systems/tabcounter/schema"
)

// ProviderName labels log lines and notifications from this provider.
const ProviderName = "cdp"

// DefaultPollInterval is how often activation is polled.
const DefaultPollInterval = time.Second

// Config configures a Provider.
type Config struct {
	// URL is a DevTools websocket URL of a running browser. Empty launches one.
	URL          string
	Headless     bool
	PollInterval time.Duration
}

type tabHandle struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Provider implements core.TreeProvider against a Chrome instance.
type Provider struct {
	browserCtx context.Context
	self       target.ID
	owned      bool
	release    func()
	poll       time.Duration
	log        pslog.Logger

	mu   sync.Mutex
	tabs map[target.ID]tabHandle
}

// Open connects to (or launches) a browser. The returned provider keeps an
// internal tab of its own which is never labeled.
func Open(ctx context.Context, cfg Config) (*Provider, error) {
	log := logx.WithProvider(ctx, ProviderName)
	var allocCtx context.Context
	var allocCancel context.CancelFunc
	owned := cfg.URL == ""
	if owned {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", cfg.Headless),
			chromedp.Flag("disable-gpu", cfg.Headless),
		)
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, opts...)
	} else {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, cfg.URL)
	}
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx, target.SetDiscoverTargets(true)); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	p := &Provider{
		browserCtx: browserCtx,
		self:       chromedp.FromContext(browserCtx).Target.TargetID,
		owned:      owned,
		release: func() {
			browserCancel()
			allocCancel()
		},
		poll: poll,
		log:  log,
		tabs: make(map[target.ID]tabHandle),
	}
	log.Info("browser connected", "launched", owned, "self", string(p.self))
	return p, nil
}

// Close shuts the browser down when it was launched by Open. Canceling a
// chromedp tab context closes the tab, so an attached browser is left alone.
func (p *Provider) Close() {
	if !p.owned {
		return
	}
	p.mu.Lock()
	for id, tab := range p.tabs {
		tab.cancel()
		delete(p.tabs, id)
	}
	p.mu.Unlock()
	p.release()
}

func isLabelable(info *target.Info, self target.ID) bool {
	return info != nil && info.Type == "page" && info.TargetID != self
}

func (p *Provider) pages(ctx context.Context) ([]target.ID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	infos, err := chromedp.Targets(p.browserCtx)
	if err != nil {
		return nil, err
	}
	ids := make([]target.ID, 0, len(infos))
	for _, info := range infos {
		if isLabelable(info, p.self) {
			ids = append(ids, info.TargetID)
		}
	}
	return ids, nil
}

func (p *Provider) tab(id target.ID) context.Context {
	p.mu.Lock()
	defer p.mu.Unlock()
	if tab, ok := p.tabs[id]; ok {
		return tab.ctx
	}
	ctx, cancel := chromedp.NewContext(p.browserCtx, chromedp.WithTargetID(id))
	p.tabs[id] = tabHandle{ctx: ctx, cancel: cancel}
	return ctx
}

func (p *Provider) forget(id target.ID) {
	p.mu.Lock()
	tab, ok := p.tabs[id]
	delete(p.tabs, id)
	p.mu.Unlock()
	if ok {
		// The target is already gone; this only releases the session.
		go tab.cancel()
	}
}

// eval runs expr in a tab, bounded by ctx.
func (p *Provider) eval(ctx context.Context, id target.ID, expr string, res any) error {
	tabCtx := p.tab(id)
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(tabCtx, chromedp.Evaluate(expr, res))
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FetchOrderedTabs returns page targets in browser order. Scope is ignored;
// the DevTools protocol has no window notion.
func (p *Provider) FetchOrderedTabs(ctx context.Context, _ schema.Scope) ([]schema.TabID, error) {
	ids, err := p.pages(ctx)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	out := make([]schema.TabID, 0, len(ids))
	for _, id := range ids {
		out = append(out, schema.TabID(id))
	}
	return out, nil
}

// QueryActiveTab returns the first page whose document is visible.
func (p *Provider) QueryActiveTab(ctx context.Context) (schema.TabID, error) {
	ids, err := p.pages(ctx)
	if err != nil {
		return "", fmt.Errorf("list targets: %w", err)
	}
	for _, id := range ids {
		var state string
		if err := p.eval(ctx, id, `document.visibilityState`, &state); err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			p.log.Trace("visibility probe failed", "tab", string(id), "err", err)
			continue
		}
		if state == "visible" {
			return schema.TabID(id), nil
		}
	}
	return "", schema.ErrNoActiveTab
}

// Clear removes the badge from a tab.
func (p *Provider) Clear(ctx context.Context, id schema.TabID) error {
	return p.render(ctx, id, "")
}

// Apply renders text as the tab's badge.
func (p *Provider) Apply(ctx context.Context, id schema.TabID, text string) error {
	return p.render(ctx, id, text)
}

func (p *Provider) render(ctx context.Context, id schema.TabID, text string) error {
	if id == "" {
		return fmt.Errorf("%w: empty tab id", schema.ErrInvalidRequest)
	}
	script, err := badgeScript(text)
	if err != nil {
		return err
	}
	var ok bool
	if err := p.eval(ctx, target.ID(id), script, &ok); err != nil {
		return fmt.Errorf("render badge: %w", err)
	}
	if !ok {
		return schema.ErrTabNotFound
	}
	return nil
}

const badgeTemplate = `(() => {
  const id = %[1]q;
  const text = %[2]s;
  const prefix = /^\[\d+\] /;
  let el = document.getElementById(id);
  const title = document.title.replace(prefix, "");
  if (text === "") {
    if (el) el.remove();
    document.title = title;
    return true;
  }
  if (!el) {
    el = document.createElement("small");
    el.id = id;
    el.setAttribute("part", id);
    el.style.cssText = "position:fixed;top:.2em;left:.2em;z-index:2147483647;background:purple;color:white;font:x-small monospace;padding:.1em;pointer-events:none";
    (document.body || document.documentElement).appendChild(el);
  }
  el.textContent = text;
  document.title = "[" + text + "] " + title;
  return true;
})()`

func badgeScript(text string) (string, error) {
	literal, err := json.Marshal(text)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(badgeTemplate, schema.BadgePart, literal), nil
}

// Watch publishes tab lifecycle and activation notifications until ctx is
// done. Target creation and destruction arrive as events; activation is
// polled because the protocol does not report it.
func (p *Provider) Watch(ctx context.Context, publish func(schema.Notification)) error {
	chromedp.ListenBrowser(p.browserCtx, func(ev any) {
		switch ev := ev.(type) {
		case *target.EventTargetCreated:
			if isLabelable(ev.TargetInfo, p.self) {
				publish(schema.Notification{Source: ProviderName, Type: schema.NotifyTabAttached})
			}
		case *target.EventTargetDestroyed:
			p.forget(ev.TargetID)
			publish(schema.Notification{Source: ProviderName, Type: schema.NotifyTabDetached})
		}
	})
	publish(schema.Notification{Source: ProviderName, Type: schema.NotifyReady})

	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()
	var last schema.TabID
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.browserCtx.Done():
			return errors.New("browser connection closed")
		case <-ticker.C:
		}
		active, err := p.QueryActiveTab(ctx)
		if err != nil && !errors.Is(err, schema.ErrNoActiveTab) {
			p.log.Debug("activation poll failed", "err", err)
			continue
		}
		if active != last {
			last = active
			publish(schema.Notification{Source: ProviderName, Type: schema.NotifyTabActivated})
		}
	}
}
