package core

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"pkt.systems/pslog"
	"pkt.systems/tabcounter/internal/logx"
	"pkt.systems/tabcounter/schema"
)

// LabelRenderer turns plans into clear/apply requests on a TreeProvider.
type LabelRenderer struct {
	provider    TreeProvider
	concurrency int
}

// NewLabelRenderer constructs a renderer. concurrency bounds the in-flight
// requests of one phase; values <= 1 render sequentially.
func NewLabelRenderer(provider TreeProvider, concurrency int) *LabelRenderer {
	if concurrency < 1 {
		concurrency = 1
	}
	return &LabelRenderer{provider: provider, concurrency: concurrency}
}

// Text formats a label for display.
func (r *LabelRenderer) Text(label schema.Label) string {
	return LabelText(label)
}

// LabelText is the decimal badge text for label.
func LabelText(label schema.Label) string {
	return strconv.Itoa(int(label))
}

// ClearTab removes the label from a single tab.
func (r *LabelRenderer) ClearTab(ctx context.Context, id schema.TabID) error {
	logx.WithTab(pslog.Ctx(ctx), id).Trace("label clear")
	if err := r.provider.Clear(ctx, id); err != nil {
		return fmt.Errorf("clear tab %s: %w", id, err)
	}
	return nil
}

// ApplyLabel renders label on a single tab.
func (r *LabelRenderer) ApplyLabel(ctx context.Context, id schema.TabID, label schema.Label) error {
	logx.WithTab(pslog.Ctx(ctx), id).Trace("label apply", "label", int(label))
	if err := r.provider.Apply(ctx, id, r.Text(label)); err != nil {
		return fmt.Errorf("apply label %d to tab %s: %w", label, id, err)
	}
	return nil
}

// Execute runs every clear of the plan, then every set. Operations within a
// phase do not cancel each other; the set phase is skipped when a clear failed.
func (r *LabelRenderer) Execute(ctx context.Context, plan Plan) error {
	if err := r.phase(len(plan.Clear), func(i int) error {
		return r.ClearTab(ctx, plan.Clear[i])
	}); err != nil {
		return err
	}
	return r.phase(len(plan.Set), func(i int) error {
		update := plan.Set[i]
		return r.ApplyLabel(ctx, update.Tab, update.Label)
	})
}

func (r *LabelRenderer) phase(n int, op func(i int) error) error {
	if n == 0 {
		return nil
	}
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i := 0; i < n; i++ {
		g.Go(func() error { return op(i) })
	}
	return g.Wait()
}
