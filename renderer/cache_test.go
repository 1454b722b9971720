package renderer

import (
	"image"
	"image/color"
	"testing"

	headlessterm "github.com/duskterm/engine"
)

// noOverlay is an applyOverlay callback for tests that never expect it to
// run (overlayKey == 0 always returns the L2 base untouched).
func noOverlay(base *image.RGBA) *image.RGBA { return base }

func TestRenderCacheHitsL1OnRepeatedKey(t *testing.T) {
	c := NewRenderCache(DefaultCacheConfig())

	calls := 0
	rasterizeBase := func() *image.RGBA {
		calls++
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}

	c.Get(42, 7, rasterizeBase, func(base *image.RGBA) *image.RGBA { return base })
	c.Get(42, 7, rasterizeBase, func(base *image.RGBA) *image.RGBA { return base })

	if calls != 1 {
		t.Errorf("expected rasterizeBase called once, got %d", calls)
	}
	stats := c.Stats()
	if stats.HitsL1 != 1 || stats.Misses != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestRenderCacheL2HitWhenOverlayKeyZero(t *testing.T) {
	c := NewRenderCache(DefaultCacheConfig())

	calls := 0
	rasterizeBase := func() *image.RGBA {
		calls++
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}

	// First call, with a nonzero overlay key, establishes L1
	// (contentKey, 3) and L2 (contentKey) entries.
	c.Get(100, 3, rasterizeBase, func(base *image.RGBA) *image.RGBA { return base })
	// A different overlay key misses L1 but a zero-overlay lookup of the
	// same content key should still hit L2.
	c.Get(100, 0, rasterizeBase, noOverlay)

	if calls != 1 {
		t.Errorf("expected a single rasterizeBase call, got %d", calls)
	}
}

func TestRenderCacheL2HitAvoidsRasterizeEvenWithOverlay(t *testing.T) {
	c := NewRenderCache(DefaultCacheConfig())

	baseCalls, overlayCalls := 0, 0
	rasterizeBase := func() *image.RGBA {
		baseCalls++
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}
	applyOverlay := func(base *image.RGBA) *image.RGBA {
		overlayCalls++
		return base
	}

	// Plain render with no overlay populates L2.
	c.Get(200, 0, rasterizeBase, noOverlay)
	// A cursor lands on the same row content (e.g. the cursor blinking
	// onto a row it wasn't on before): L1 misses (different overlayKey)
	// but L2 must still satisfy the base image so only compositing work
	// happens, never a full rasterize.
	c.Get(200, 9, rasterizeBase, applyOverlay)

	if baseCalls != 1 {
		t.Errorf("expected rasterizeBase called exactly once (from the L2 population), got %d", baseCalls)
	}
	if overlayCalls != 1 {
		t.Errorf("expected applyOverlay called exactly once for the overlay variant, got %d", overlayCalls)
	}
	stats := c.Stats()
	if stats.HitsL2 != 1 {
		t.Errorf("expected the overlay lookup to register as an L2 hit, got stats %+v", stats)
	}
}

func TestRenderCacheOverlayDoesNotMutateL2Base(t *testing.T) {
	c := NewRenderCache(DefaultCacheConfig())

	rasterizeBase := func() *image.RGBA {
		img := image.NewRGBA(image.Rect(0, 0, 1, 1))
		img.Set(0, 0, color.RGBA{R: 1, A: 255})
		return img
	}
	applyOverlay := func(base *image.RGBA) *image.RGBA {
		out := cloneRGBA(base)
		out.Set(0, 0, color.RGBA{R: 99, A: 255})
		return out
	}

	c.Get(300, 0, rasterizeBase, noOverlay)
	overlaid := c.Get(300, 5, rasterizeBase, applyOverlay)
	plain := c.Get(300, 0, rasterizeBase, noOverlay)

	if r, _, _, _ := plain.At(0, 0).RGBA(); uint8(r>>8) != 1 {
		t.Errorf("expected the L2 base to remain unmutated by the overlay variant, got R=%d", uint8(r>>8))
	}
	if r, _, _, _ := overlaid.At(0, 0).RGBA(); uint8(r>>8) != 99 {
		t.Errorf("expected the overlay variant to carry the overlay's pixel, got R=%d", uint8(r>>8))
	}
}

func TestRenderCacheMissOnDifferentOverlay(t *testing.T) {
	c := NewRenderCache(DefaultCacheConfig())

	calls := 0
	applyOverlay := func(base *image.RGBA) *image.RGBA {
		calls++
		return base
	}
	rasterizeBase := func() *image.RGBA { return image.NewRGBA(image.Rect(0, 0, 1, 1)) }

	c.Get(1, 1, rasterizeBase, applyOverlay)
	c.Get(1, 2, rasterizeBase, applyOverlay)

	if calls != 2 {
		t.Errorf("expected two distinct overlay keys to both composite, got %d calls", calls)
	}
}

func TestRenderCacheEvictsOldestWhenOverCapacity(t *testing.T) {
	c := NewRenderCache(CacheConfig{MaxEntries: 2, EvictionBatch: 1})

	rasterizeBase := func() *image.RGBA { return image.NewRGBA(image.Rect(0, 0, 1, 1)) }

	c.Get(1, 0, rasterizeBase, noOverlay)
	c.Get(2, 0, rasterizeBase, noOverlay)
	c.Get(3, 0, rasterizeBase, noOverlay)

	stats := c.Stats()
	if stats.Evicted == 0 {
		t.Error("expected at least one eviction once MaxEntries was exceeded")
	}
}

func TestHashRowStableForIdenticalContent(t *testing.T) {
	row := func() headlessterm.GridRow {
		return headlessterm.GridRow{Cells: []headlessterm.Cell{
			{Char: 'a', Fg: color.RGBA{R: 255, A: 255}, Bg: color.RGBA{A: 255}},
			{Char: 'b', Fg: color.RGBA{R: 255, A: 255}, Bg: color.RGBA{A: 255}},
		}}
	}

	if HashRow(row()) != HashRow(row()) {
		t.Error("expected identical rows to hash identically")
	}
}

func TestHashRowDiffersOnContentChange(t *testing.T) {
	a := headlessterm.GridRow{Cells: []headlessterm.Cell{{Char: 'a'}}}
	b := headlessterm.GridRow{Cells: []headlessterm.Cell{{Char: 'b'}}}

	if HashRow(a) == HashRow(b) {
		t.Error("expected different row content to hash differently")
	}
}

func TestHashOverlayZeroWhenNothingActive(t *testing.T) {
	if got := HashOverlay(0, false, 0, 0, false, 0, 0, false); got != 0 {
		t.Errorf("expected 0 for an inactive overlay, got %d", got)
	}
}

func TestHashOverlayNonZeroWhenCursorVisible(t *testing.T) {
	if got := HashOverlay(5, true, 0, 0, false, 0, 0, false); got == 0 {
		t.Error("expected a non-zero overlay hash when the cursor is visible on this row")
	}
}
