package core

import (
	"slices"

	"pkt.systems/tabcounter/schema"
)

// Plan is the outcome of diffing a window against the previous assignment.
type Plan struct {
	Next  schema.Assignment
	Clear []schema.TabID
	Set   []schema.LabelUpdate
}

// Empty reports whether the plan has no render operations.
func (p Plan) Empty() bool {
	return len(p.Clear) == 0 && len(p.Set) == 0
}

// Assign labels Before[i] and After[i] with i+1. Both sides share the same
// numbering range. A tab listed more than once keeps its nearest label.
func Assign(w Window) schema.Assignment {
	out := make(schema.Assignment, len(w.Before)+len(w.After))
	assignSide(out, w.Before)
	assignSide(out, w.After)
	return out
}

func assignSide(out schema.Assignment, side []schema.TabID) {
	for i, id := range side {
		label := schema.Label(i + 1)
		if current, ok := out[id]; ok && current <= label {
			continue
		}
		out[id] = label
	}
}

// Diff computes the next assignment for w and the minimal render operations
// that turn previous into it. Clear is sorted; Set follows window order.
func Diff(previous schema.Assignment, w Window) Plan {
	next := Assign(w)
	plan := Plan{Next: next}
	for id := range previous {
		if _, ok := next[id]; !ok {
			plan.Clear = append(plan.Clear, id)
		}
	}
	slices.Sort(plan.Clear)
	seen := make(map[schema.TabID]struct{}, len(next))
	for _, side := range [][]schema.TabID{w.Before, w.After} {
		for _, id := range side {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			label := next[id]
			if prev, ok := previous[id]; ok && prev == label {
				continue
			}
			plan.Set = append(plan.Set, schema.LabelUpdate{Tab: id, Label: label})
		}
	}
	return plan
}
