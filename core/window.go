package core

import "pkt.systems/tabcounter/schema"

// Window is the labeled neighborhood around the active tab.
// Both sides are ordered nearest-first.
type Window struct {
	Before []schema.TabID
	After  []schema.TabID
}

// SelectWindow picks up to radius tabs on each side of active. It returns
// false when active is not part of tabs. A radius <= 0 uses
// schema.DefaultWindowRadius; larger radii are capped at schema.MaxWindowRadius.
func SelectWindow(tabs []schema.TabID, active schema.TabID, radius int) (Window, bool) {
	if radius <= 0 {
		radius = schema.DefaultWindowRadius
	}
	radius = min(radius, schema.MaxWindowRadius)
	idx := -1
	for i, id := range tabs {
		if id == active {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Window{}, false
	}
	w := Window{
		Before: make([]schema.TabID, 0, min(radius, idx)),
		After:  make([]schema.TabID, 0, min(radius, len(tabs)-idx-1)),
	}
	for i := idx - 1; i >= 0 && len(w.Before) < radius; i-- {
		if tabs[i] == active {
			continue
		}
		w.Before = append(w.Before, tabs[i])
	}
	for i := idx + 1; i < len(tabs) && len(w.After) < radius; i++ {
		if tabs[i] == active {
			continue
		}
		w.After = append(w.After, tabs[i])
	}
	return w, true
}
