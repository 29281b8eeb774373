package core

import (
	"context"

	"pkt.systems/tabcounter/schema"
)

// TreeProvider is the external tab-tree component labels are rendered through.
type TreeProvider interface {
	// FetchOrderedTabs returns the flattened, ordered tabs visible in scope.
	FetchOrderedTabs(ctx context.Context, scope schema.Scope) ([]schema.TabID, error)
	// QueryActiveTab returns the active tab of the current window or
	// schema.ErrNoActiveTab.
	QueryActiveTab(ctx context.Context) (schema.TabID, error)
	// Clear removes any rendered label from the tab.
	Clear(ctx context.Context, id schema.TabID) error
	// Apply renders text as the tab's label.
	Apply(ctx context.Context, id schema.TabID, text string) error
}
