package core

import "pkt.systems/pslog"

// RefresherDeps captures dependencies for a Refresher.
type RefresherDeps struct {
	Provider TreeProvider
	Renderer *LabelRenderer
	// Logger defaults to the logger carried by the refresh context.
	Logger pslog.Logger
}
