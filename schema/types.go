package schema

// TabID identifies a tab for its lifetime within a window.
type TabID string

// Label is the distance of a tab from the active tab. Always positive.
type Label int

// Scope selects which windows a tree fetch covers.
type Scope string

// ScopeAll covers every window the provider knows about.
const ScopeAll Scope = "*"

// Assignment maps each labeled tab to its distance from the active tab.
// The active tab never appears as a key.
type Assignment map[TabID]Label

// Clone returns an independent copy of the assignment.
func (a Assignment) Clone() Assignment {
	out := make(Assignment, len(a))
	for id, label := range a {
		out[id] = label
	}
	return out
}

// LabelUpdate requests a label to be rendered on a tab.
type LabelUpdate struct {
	Tab   TabID
	Label Label
}
