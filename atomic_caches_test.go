package headlessterm

import "testing"

func TestAtomicCachesCursorRoundTrip(t *testing.T) {
	c := NewAtomicCaches()

	if _, _, ok := c.GetCursor(); ok {
		t.Fatal("expected ok=false before first store")
	}

	c.StoreCursor(3, 7)
	row, col, ok := c.GetCursor()
	if !ok {
		t.Fatal("expected ok=true after store")
	}
	if row != 3 || col != 7 {
		t.Errorf("expected (3, 7), got (%d, %d)", row, col)
	}
}

func TestAtomicCachesSelectionClear(t *testing.T) {
	c := NewAtomicCaches()

	c.StoreSelection(true, Position{Row: 1, Col: 2}, Position{Row: 3, Col: 4})
	info, ok := c.GetSelection()
	if !ok {
		t.Fatal("expected ok=true after store")
	}
	if info.StartRow != 1 || info.StartCol != 2 || info.EndRow != 3 || info.EndCol != 4 {
		t.Errorf("unexpected selection info: %+v", info)
	}

	c.StoreSelection(false, Position{}, Position{})
	if _, ok := c.GetSelection(); ok {
		t.Error("expected ok=false after clearing")
	}
}

func TestAtomicCachesScrollRoundTrip(t *testing.T) {
	c := NewAtomicCaches()

	c.StoreScroll(10, 1000, 1024)
	info, ok := c.GetScroll()
	if !ok {
		t.Fatal("expected ok=true after store")
	}
	if info.DisplayOffset != 10 || info.ScrollbackSize != 1000 || info.TotalLines != 1024 {
		t.Errorf("unexpected scroll info: %+v", info)
	}
}

func TestAtomicCachesCheckAndClearRace(t *testing.T) {
	c := NewAtomicCaches()

	c.MarkDirty()
	if !c.IsDirty() {
		t.Fatal("expected dirty after MarkDirty")
	}

	seen := c.IsDirty()

	// A write races in "during render", after the caller observed
	// dirty=true but before CheckAndClear runs.
	c.MarkDirty()

	c.CheckAndClear(seen)
	if !c.IsDirty() {
		t.Error("expected dirty flag to remain set: a write raced in during render and must not be dropped")
	}
}

func TestAtomicCachesCheckAndClearNoRace(t *testing.T) {
	c := NewAtomicCaches()

	c.MarkDirty()
	seen := c.IsDirty()
	c.CheckAndClear(seen)

	if c.IsDirty() {
		t.Error("expected dirty flag cleared when nothing raced in")
	}
}

func TestAtomicCachesActive(t *testing.T) {
	c := NewAtomicCaches()

	if c.Active() {
		t.Error("expected inactive by default")
	}
	c.SetActive(true)
	if !c.Active() {
		t.Error("expected active after SetActive(true)")
	}
}
