package headlessterm

import "sync/atomic"

// AtomicCaches is a per-terminal set of lock-free snapshot slots, written
// once per frame by the render thread (after it has already taken the
// Terminal lock for StateSnapshot/ResetDamage) and read by any host
// thread without locking anything. Per §9's hazards:
//   - a validity bit never shares a word with a coordinate payload, so a
//     concurrent writer can't tear a "valid" bit into a real column bit;
//   - scrollback/total-line counts are full-width int64s, never packed
//     into u16 (the 65k-line truncation hazard named in §9).
type AtomicCaches struct {
	// cursor packs (row, col) into the low/high 32 bits of one word; a
	// disjoint validity flag guards against reading before first write.
	cursorValid atomic.Bool
	cursor      atomic.Uint64

	// selection mirrors the same valid/payload split, one pair per
	// endpoint, plus the selection kind.
	selectionValid atomic.Bool
	selStartRow    atomic.Int32
	selStartCol    atomic.Int32
	selEndRow      atomic.Int32
	selEndCol      atomic.Int32

	// scroll info: display offset, current scrollback size, and total
	// line count, each a full-width atomic so the §9 truncation hazard
	// can't recur.
	scrollValid       atomic.Bool
	displayOffset     atomic.Int64
	scrollbackSize    atomic.Int64
	totalLines        atomic.Int64

	active atomic.Bool

	// dirtyGen counts MarkDirty calls, seenGen is the generation IsDirty
	// last observed, and cleanGen is the generation CheckAndClear last
	// cleared up to; the caches are dirty while dirtyGen != cleanGen.
	dirtyGen atomic.Uint64
	seenGen  atomic.Uint64
	cleanGen atomic.Uint64
}

// NewAtomicCaches returns a zero-valued AtomicCaches; all Get* calls
// return ok=false until the first Store.
func NewAtomicCaches() *AtomicCaches {
	return &AtomicCaches{}
}

// CursorInfo is the out-struct §4.5's pool_get_cursor fills.
type CursorInfo struct {
	Row, Col      int32
	DisplayOffset int64
}

// StoreCursor records the cursor position with Release semantics so any
// reader using Acquire sees a consistent (row, col) pair, never a torn
// mix of an old row and a new col.
func (c *AtomicCaches) StoreCursor(row, col int32) {
	c.cursor.Store(uint64(uint32(row)) | uint64(uint32(col))<<32)
	c.cursorValid.Store(true)
}

// GetCursor performs an Acquire-ordered lock-free read. ok is false if
// no frame has been rendered yet.
func (c *AtomicCaches) GetCursor() (row, col int32, ok bool) {
	if !c.cursorValid.Load() {
		return 0, 0, false
	}
	v := c.cursor.Load()
	return int32(uint32(v)), int32(uint32(v >> 32)), true
}

// SelectionInfo is the out-struct for pool_get_selection_range.
type SelectionInfo struct {
	StartRow, StartCol int32
	EndRow, EndCol     int32
}

// StoreSelection records the active selection range, or clears validity
// if active is false.
func (c *AtomicCaches) StoreSelection(active bool, start, end Position) {
	if !active {
		c.selectionValid.Store(false)
		return
	}
	c.selStartRow.Store(int32(start.Row))
	c.selStartCol.Store(int32(start.Col))
	c.selEndRow.Store(int32(end.Row))
	c.selEndCol.Store(int32(end.Col))
	c.selectionValid.Store(true)
}

// GetSelection is the lock-free read counterpart of StoreSelection.
func (c *AtomicCaches) GetSelection() (info SelectionInfo, ok bool) {
	if !c.selectionValid.Load() {
		return SelectionInfo{}, false
	}
	return SelectionInfo{
		StartRow: c.selStartRow.Load(),
		StartCol: c.selStartCol.Load(),
		EndRow:   c.selEndRow.Load(),
		EndCol:   c.selEndCol.Load(),
	}, true
}

// ScrollInfo is the out-struct for pool_get_scroll_info.
type ScrollInfo struct {
	DisplayOffset  int64
	ScrollbackSize int64
	TotalLines     int64
}

// StoreScroll records viewport scroll state with full-width integers.
func (c *AtomicCaches) StoreScroll(displayOffset, scrollbackSize, totalLines int64) {
	c.displayOffset.Store(displayOffset)
	c.scrollbackSize.Store(scrollbackSize)
	c.totalLines.Store(totalLines)
	c.scrollValid.Store(true)
}

// GetScroll is the lock-free read counterpart of StoreScroll.
func (c *AtomicCaches) GetScroll() (info ScrollInfo, ok bool) {
	if !c.scrollValid.Load() {
		return ScrollInfo{}, false
	}
	return ScrollInfo{
		DisplayOffset:  c.displayOffset.Load(),
		ScrollbackSize: c.scrollbackSize.Load(),
		TotalLines:     c.totalLines.Load(),
	}, true
}

// SetActive records whether this terminal is the host's currently
// focused/visible one -- informs eviction policy in SurfaceCache.
func (c *AtomicCaches) SetActive(active bool) { c.active.Store(active) }

// Active reports the last-stored active flag.
func (c *AtomicCaches) Active() bool { return c.active.Load() }

// MarkDirty advances the dirty generation with AcqRel semantics (via
// atomic.Uint64, which Go implements with a full fence on both Add and
// Load): any Grid mutation sequenced before MarkDirty is visible to a
// render thread's IsDirty check immediately after.
func (c *AtomicCaches) MarkDirty() { c.dirtyGen.Add(1) }

// IsDirty reports whether a mutation has been marked since the last
// CheckAndClear, and records the generation it observed so a following
// CheckAndClear clears only up to that point.
func (c *AtomicCaches) IsDirty() bool {
	g := c.dirtyGen.Load()
	c.seenGen.Store(g)
	return g != c.cleanGen.Load()
}

// CheckAndClear implements Algorithm R step 9: it clears the dirty flag
// only up to the generation the caller observed in IsDirty before
// rendering (seenDirty) -- if a new write raced in during rendering and
// marked the caches again, its newer generation leaves them dirty so the
// next tick re-renders instead of silently dropping the write.
func (c *AtomicCaches) CheckAndClear(seenDirty bool) {
	if seenDirty {
		c.cleanGen.Store(c.seenGen.Load())
	}
}
