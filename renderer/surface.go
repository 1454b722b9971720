package renderer

import (
	"image"
	"sync"
	"time"

	headlessterm "github.com/duskterm/engine"
)

// surfaceEntry is one terminal's composited frame buffer plus when it was
// last requested by a host compositor.
type surfaceEntry struct {
	img        *image.RGBA
	lastRender time.Time
}

// SurfaceCache holds the latest composited *image.RGBA per terminal, as
// handed to Put (the renderer sizes frames the same way the teacher's
// Screenshot does: cols*cellWidth x rows*cellHeight); it stores the
// caller's image and neither allocates nor reuses buffers. Entries a
// host stops requesting are swept on Sweep, keyed by last-render
// timestamp rather than an LRU count, since "a pane nobody has drawn in
// N seconds" (a closed tab, a minimized window) is the eviction signal
// spec.md's hazard note calls for -- not cache pressure.
type SurfaceCache struct {
	mu      sync.Mutex
	entries map[headlessterm.TerminalId]*surfaceEntry
}

// NewSurfaceCache constructs an empty SurfaceCache.
func NewSurfaceCache() *SurfaceCache {
	return &SurfaceCache{entries: make(map[headlessterm.TerminalId]*surfaceEntry)}
}

// Put records id's freshly rendered frame as the current surface,
// replacing any previous one and refreshing its last-render time.
func (s *SurfaceCache) Put(id headlessterm.TerminalId, img *image.RGBA) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = &surfaceEntry{img: img, lastRender: time.Now()}
}

// Get returns the last surface recorded for id, if any.
func (s *SurfaceCache) Get(id headlessterm.TerminalId) (*image.RGBA, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	return e.img, true
}

// Sweep removes every surface whose last Put is older than evictAfter,
// returning the evicted ids so a host can also release any GPU-side
// texture it mirrored from them.
func (s *SurfaceCache) Sweep(evictAfter time.Duration) []headlessterm.TerminalId {
	cutoff := time.Now().Add(-evictAfter)

	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []headlessterm.TerminalId
	for id, e := range s.entries {
		if e.lastRender.Before(cutoff) {
			evicted = append(evicted, id)
			delete(s.entries, id)
		}
	}
	return evicted
}

// Remove immediately drops id's surface, so a host closing a terminal
// need not hold its frame buffer until the next Sweep.
func (s *SurfaceCache) Remove(id headlessterm.TerminalId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}
