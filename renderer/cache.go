// Package renderer turns a headlessterm GridView into drawable pixels for
// a GPU-backed host, with a three-level cache that avoids re-rasterizing
// unchanged rows every frame.
package renderer

import (
	"image"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	headlessterm "github.com/duskterm/engine"
)

// CacheConfig configures RenderCache eviction behavior. Mirrors the shape
// of keystorm's linecache.Config (MaxCachedLines/EvictionBatchSize),
// renamed to this package's row-of-a-terminal-grid domain.
type CacheConfig struct {
	// MaxEntries bounds how many rasterized rows each cache level keeps.
	MaxEntries int
	// EvictionBatch is how many entries are evicted once MaxEntries is
	// exceeded, so eviction doesn't happen on every single insert.
	EvictionBatch int
}

// DefaultCacheConfig returns sane defaults for a single terminal's row
// cache; a host running many terminals should size this down per pane.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{MaxEntries: 4096, EvictionBatch: 256}
}

// cachedRow is one rasterized row, keyed by content (L2) or content+
// overlay (L1).
type cachedRow struct {
	img        *image.RGBA
	contentKey uint64
	overlayKey uint64
	lastAccess time.Time
}

// RenderCache is the three-level row cache spec.md's Renderer module
// describes:
//   - L1: keyed by (row content hash, overlay hash) -- a full hit needs no
//     rasterization work at all, even with a cursor or selection overlay
//     on the row.
//   - L2: keyed by row content hash alone -- a hit still needs overlay
//     compositing (cheap: a handful of cell-width blits) but skips glyph
//     shaping/drawing.
//   - L3: no cache at all, full rasterization via Rasterizer.RasterizeRow.
//
// Grounded on keystorm's linecache.Cache: RWMutex-guarded maps,
// LastAccess-ordered eviction, and atomic hit/miss/eviction counters
// read without taking the lock, adapted from editor text lines to
// terminal grid rows and from one cache level to two plus a fallback.
type RenderCache struct {
	mu sync.RWMutex

	config CacheConfig
	l1     map[[2]uint64]*cachedRow // (contentKey, overlayKey) -> row
	l2     map[uint64]*cachedRow    // contentKey -> row (no overlay)

	hitsL1   atomic.Uint64
	hitsL2   atomic.Uint64
	misses   atomic.Uint64
	evicted  atomic.Uint64
}

// NewRenderCache constructs an empty cache.
func NewRenderCache(config CacheConfig) *RenderCache {
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultCacheConfig().MaxEntries
	}
	if config.EvictionBatch <= 0 {
		config.EvictionBatch = DefaultCacheConfig().EvictionBatch
	}
	return &RenderCache{
		config: config,
		l1:     make(map[[2]uint64]*cachedRow),
		l2:     make(map[uint64]*cachedRow),
	}
}

// Get returns a cached rasterized row, computing and storing it via
// rasterizeBase/applyOverlay otherwise. overlayKey should be zero when the
// row has no cursor/selection/search-highlight overlay.
//
// Per Algorithm R step 6, an L1 miss always consults L2 by content hash
// before falling back to a full rasterize: a row that's been painted
// before with different (or no) overlay already has its glyph-shaped base
// image in L2, so repainting it under a new overlay (cursor blink,
// selection drag, search match -- the common case this exists for) only
// needs applyOverlay's cheap compositing, not rasterizeBase's full glyph
// pass. rasterizeBase is called only on a true double-miss.
func (c *RenderCache) Get(contentKey, overlayKey uint64, rasterizeBase func() *image.RGBA, applyOverlay func(base *image.RGBA) *image.RGBA) *image.RGBA {
	l1key := [2]uint64{contentKey, overlayKey}

	c.mu.RLock()
	if row, ok := c.l1[l1key]; ok {
		c.mu.RUnlock()
		c.mu.Lock()
		row.lastAccess = time.Now()
		c.mu.Unlock()
		c.hitsL1.Add(1)
		return row.img
	}
	l2row, l2ok := c.l2[contentKey]
	c.mu.RUnlock()

	var base *image.RGBA
	if l2ok {
		c.mu.Lock()
		l2row.lastAccess = time.Now()
		c.mu.Unlock()
		c.hitsL2.Add(1)
		base = l2row.img
	} else {
		c.misses.Add(1)
		base = rasterizeBase()

		l2entry := &cachedRow{img: base, contentKey: contentKey, lastAccess: time.Now()}
		c.mu.Lock()
		c.l2[contentKey] = l2entry
		c.evictIfNeededLocked()
		c.mu.Unlock()
	}

	img := base
	if overlayKey != 0 {
		img = applyOverlay(base)
	}

	entry := &cachedRow{img: img, contentKey: contentKey, overlayKey: overlayKey, lastAccess: time.Now()}
	c.mu.Lock()
	c.l1[l1key] = entry
	c.evictIfNeededLocked()
	c.mu.Unlock()

	return img
}

// evictIfNeededLocked drops the least-recently-used entries once either
// level exceeds config.MaxEntries. Caller must hold c.mu for writing.
func (c *RenderCache) evictIfNeededLocked() {
	if len(c.l1) > c.config.MaxEntries {
		type keyed struct {
			key    [2]uint64
			access time.Time
		}
		entries := make([]keyed, 0, len(c.l1))
		for k, v := range c.l1 {
			entries = append(entries, keyed{k, v.lastAccess})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].access.Before(entries[j].access) })

		toEvict := len(c.l1) - c.config.MaxEntries + c.config.EvictionBatch
		if toEvict > len(entries) {
			toEvict = len(entries)
		}
		for i := 0; i < toEvict; i++ {
			delete(c.l1, entries[i].key)
			c.evicted.Add(1)
		}
	}

	if len(c.l2) > c.config.MaxEntries {
		type keyed struct {
			key    uint64
			access time.Time
		}
		entries := make([]keyed, 0, len(c.l2))
		for k, v := range c.l2 {
			entries = append(entries, keyed{k, v.lastAccess})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].access.Before(entries[j].access) })

		toEvict := len(c.l2) - c.config.MaxEntries + c.config.EvictionBatch
		if toEvict > len(entries) {
			toEvict = len(entries)
		}
		for i := 0; i < toEvict; i++ {
			delete(c.l2, entries[i].key)
			c.evicted.Add(1)
		}
	}
}

// InvalidateAll drops every cached row, used when the font or palette
// changes and every prior rasterization is stale.
func (c *RenderCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.l1 = make(map[[2]uint64]*cachedRow)
	c.l2 = make(map[uint64]*cachedRow)
}

// CacheStats reports hit/miss/eviction counters for diagnostics.
type CacheStats struct {
	HitsL1, HitsL2, Misses, Evicted uint64
	HitRate                         float64
}

// Stats returns a snapshot of the cache's hit/miss counters. Read
// without taking the lock, matching keystorm's atomic-stats pattern.
func (c *RenderCache) Stats() CacheStats {
	hitsL1 := c.hitsL1.Load()
	hitsL2 := c.hitsL2.Load()
	misses := c.misses.Load()
	evicted := c.evicted.Load()

	total := hitsL1 + hitsL2 + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hitsL1+hitsL2) / float64(total)
	}
	return CacheStats{HitsL1: hitsL1, HitsL2: hitsL2, Misses: misses, Evicted: evicted, HitRate: hitRate}
}

// HashRow computes an FNV-1a content hash over a row's visible cells
// (rune, colors, flags) -- the key L1/L2 index by. Two rows with
// identical text and styling hash identically regardless of which
// GridRow instance produced them, which is what makes cache hits
// possible across frames where nothing in that row actually changed.
func HashRow(row headlessterm.GridRow) uint64 {
	var h uint64 = 14695981039346656037
	mix := func(b byte) {
		h ^= uint64(b)
		h *= 1099511628211
	}
	mixRune := func(r rune) {
		mix(byte(r))
		mix(byte(r >> 8))
		mix(byte(r >> 16))
		mix(byte(r >> 24))
	}

	for _, cell := range row.Cells {
		mixRune(cell.Char)
		mix(byte(cell.Flags))
		mix(byte(cell.Flags >> 8))
		if cell.Fg != nil {
			r, g, b, a := cell.Fg.RGBA()
			mix(byte(r >> 8))
			mix(byte(g >> 8))
			mix(byte(b >> 8))
			mix(byte(a >> 8))
		}
		if cell.Bg != nil {
			r, g, b, a := cell.Bg.RGBA()
			mix(byte(r >> 8))
			mix(byte(g >> 8))
			mix(byte(b >> 8))
			mix(byte(a >> 8))
		}
	}
	if row.Wrapped {
		mix(1)
	}
	return h
}

// HashOverlay computes a hash for row-level overlay state (cursor
// column, selection span, search-match highlight) that participates in
// L1's key but not L2's. overlayKey == 0 means "no overlay", which is
// what lets a plain row satisfy from L2 on its first overlay-free hit.
func HashOverlay(cursorCol int, cursorVisible bool, selStart, selEnd int, selActive bool, matchStart, matchEnd int, matchActive bool) uint64 {
	if !cursorVisible && !selActive && !matchActive {
		return 0
	}
	var h uint64 = 14695981039346656037
	mix := func(v int) {
		h ^= uint64(int64(v))
		h *= 1099511628211
	}
	if cursorVisible {
		mix(cursorCol + 1)
	}
	if selActive {
		mix(selStart + 1000003)
		mix(selEnd + 1000003)
	}
	if matchActive {
		mix(matchStart + 2000003)
		mix(matchEnd + 2000003)
	}
	return h
}
