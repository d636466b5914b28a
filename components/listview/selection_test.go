package listview

import (
	"errors"
	"testing"
)

func TestSelectionSelectPageIsIdempotent(t *testing.T) {
	set := NewSelectionSet()
	set.SelectPage([]string{"a", "b"})
	set.SelectPage([]string{"b", "c", ""})
	snap := set.Snapshot()
	if len(snap.Selected) != 3 {
		t.Fatalf("expected 3 selected ids, got %v", snap.Selected)
	}
	if snap.Selected[0] != "a" || snap.Selected[2] != "c" {
		t.Fatalf("expected insertion order, got %v", snap.Selected)
	}
}

func TestSelectionDeselectPageClearsSelectAll(t *testing.T) {
	set := NewSelectionSet()
	set.SelectAll()
	set.DeselectPage([]string{"x"})
	snap := set.Snapshot()
	if snap.SelectAll {
		t.Fatalf("expected select all to be cleared")
	}
	if set.Has("x") {
		t.Fatalf("expected x to be absent")
	}
}

func TestSelectionDeselectPageRemovesIDs(t *testing.T) {
	set := NewSelectionSet()
	set.SelectPage([]string{"a", "b", "c"})
	set.DeselectPage([]string{"b", "zzz"})
	all, ids := set.Targets()
	if all {
		t.Fatalf("expected explicit targets")
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "c" {
		t.Fatalf("unexpected targets %v", ids)
	}
}

func TestSelectionTargetsPrefersSelectAll(t *testing.T) {
	set := NewSelectionSet()
	set.SelectPage([]string{"a"})
	set.SelectAll()
	all, ids := set.Targets()
	if !all || ids != nil {
		t.Fatalf("expected all=true without ids, got %v %v", all, ids)
	}
	if !set.Has("anything") {
		t.Fatalf("expected select all to cover every id")
	}
}

func TestSelectionApply(t *testing.T) {
	set := NewSelectionSet()
	if err := set.Apply(ActionSelectPage, []string{"a"}); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if err := set.Apply(ActionDeselectAll, nil); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if snap := set.Snapshot(); len(snap.Selected) != 0 || snap.SelectAll {
		t.Fatalf("expected empty selection, got %+v", snap)
	}
	if err := set.Apply("toggle", nil); !errors.Is(err, errUnknownSelectionAction) {
		t.Fatalf("expected unknown action error, got %v", err)
	}
}
