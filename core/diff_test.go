package core

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pkt.systems/tabcounter/schema"
)

func TestAssignSharesNumberingAcrossSides(t *testing.T) {
	w, _ := SelectWindow(tabIDs("A", "B", "C", "D", "E"), "C", 50)
	got := Assign(w)
	want := schema.Assignment{"B": 1, "A": 2, "D": 1, "E": 2}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("assignment mismatch (-want +got):\n%s", diff)
	}
	if _, ok := got["C"]; ok {
		t.Fatalf("active tab must not be labeled")
	}
}

func TestAssignKeepsNearestLabelForRepeatedTab(t *testing.T) {
	got := Assign(Window{Before: tabIDs("X", "B"), After: tabIDs("D", "E", "X")})
	if got["X"] != 1 {
		t.Fatalf("expected repeated tab to keep nearest label 1, got %d", got["X"])
	}
}

func TestDiffFromEmpty(t *testing.T) {
	w, _ := SelectWindow(tabIDs("A", "B", "C", "D", "E"), "C", 50)
	plan := Diff(schema.Assignment{}, w)
	if len(plan.Clear) != 0 {
		t.Fatalf("expected no clears, got %v", plan.Clear)
	}
	want := []schema.LabelUpdate{{Tab: "B", Label: 1}, {Tab: "A", Label: 2}, {Tab: "D", Label: 1}, {Tab: "E", Label: 2}}
	if diff := cmp.Diff(want, plan.Set); diff != "" {
		t.Fatalf("set mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffIsIdempotent(t *testing.T) {
	w, _ := SelectWindow(tabIDs("A", "B", "C", "D", "E"), "C", 50)
	first := Diff(schema.Assignment{}, w)
	second := Diff(first.Next, w)
	if !second.Empty() {
		t.Fatalf("expected empty second plan, got clear=%v set=%v", second.Clear, second.Set)
	}
	if diff := cmp.Diff(first.Next, second.Next); diff != "" {
		t.Fatalf("assignment changed (-first +second):\n%s", diff)
	}
}

func TestDiffActiveMovesRight(t *testing.T) {
	tabs := tabIDs("A", "B", "C", "D", "E")
	w1, _ := SelectWindow(tabs, "C", 50)
	prev := Diff(schema.Assignment{}, w1).Next

	w2, _ := SelectWindow(tabs, "D", 50)
	plan := Diff(prev, w2)

	wantNext := schema.Assignment{"C": 1, "B": 2, "A": 3, "E": 1}
	if diff := cmp.Diff(wantNext, plan.Next); diff != "" {
		t.Fatalf("next mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(tabIDs("D"), plan.Clear); diff != "" {
		t.Fatalf("clear mismatch (-want +got):\n%s", diff)
	}
	wantSet := []schema.LabelUpdate{{Tab: "C", Label: 1}, {Tab: "B", Label: 2}, {Tab: "A", Label: 3}, {Tab: "E", Label: 1}}
	if diff := cmp.Diff(wantSet, plan.Set); diff != "" {
		t.Fatalf("set mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffSkipsUnchangedLabels(t *testing.T) {
	prev := schema.Assignment{"B": 1, "A": 2, "D": 1, "E": 2}
	// F is appended after E; nothing else moves.
	w, _ := SelectWindow(tabIDs("A", "B", "C", "D", "E", "F"), "C", 50)
	plan := Diff(prev, w)
	if len(plan.Clear) != 0 {
		t.Fatalf("expected no clears, got %v", plan.Clear)
	}
	if diff := cmp.Diff([]schema.LabelUpdate{{Tab: "F", Label: 3}}, plan.Set); diff != "" {
		t.Fatalf("set mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffPartitionProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 300; iter++ {
		n := 1 + rng.Intn(40)
		tabs := make([]schema.TabID, n)
		for i := range tabs {
			tabs[i] = schema.TabID(fmt.Sprintf("t%d", rng.Intn(60)))
		}
		prev := schema.Assignment{}
		for i := 0; i < rng.Intn(30); i++ {
			prev[schema.TabID(fmt.Sprintf("t%d", rng.Intn(60)))] = schema.Label(1 + rng.Intn(10))
		}
		active := tabs[rng.Intn(n)]
		w, ok := SelectWindow(tabs, active, 1+rng.Intn(20))
		if !ok {
			t.Fatalf("iteration %d: active not found", iter)
		}
		plan := Diff(prev, w)

		cleared := map[schema.TabID]bool{}
		for _, id := range plan.Clear {
			cleared[id] = true
			if _, ok := prev[id]; !ok {
				t.Fatalf("iteration %d: cleared %s which had no label", iter, id)
			}
			if _, ok := plan.Next[id]; ok {
				t.Fatalf("iteration %d: cleared %s which is still labeled", iter, id)
			}
		}
		set := map[schema.TabID]bool{}
		for _, update := range plan.Set {
			if set[update.Tab] {
				t.Fatalf("iteration %d: %s set twice", iter, update.Tab)
			}
			set[update.Tab] = true
			if cleared[update.Tab] {
				t.Fatalf("iteration %d: %s both cleared and set", iter, update.Tab)
			}
			if plan.Next[update.Tab] != update.Label {
				t.Fatalf("iteration %d: set %s=%d disagrees with next %d", iter, update.Tab, update.Label, plan.Next[update.Tab])
			}
			if old, ok := prev[update.Tab]; ok && old == update.Label {
				t.Fatalf("iteration %d: re-emitted unchanged label for %s", iter, update.Tab)
			}
		}
		for id := range prev {
			if _, ok := plan.Next[id]; !ok && !cleared[id] {
				t.Fatalf("iteration %d: %s dropped without clear", iter, id)
			}
		}
		for id, label := range plan.Next {
			if label <= 0 {
				t.Fatalf("iteration %d: non-positive label %d for %s", iter, label, id)
			}
			if id == active {
				t.Fatalf("iteration %d: active tab labeled", iter)
			}
			if old, ok := prev[id]; (!ok || old != label) && !set[id] {
				t.Fatalf("iteration %d: changed label for %s not set", iter, id)
			}
		}
	}
}
