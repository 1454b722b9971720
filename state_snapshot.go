package headlessterm

// TerminalStateSnapshot is the value type §4.1's state_snapshot() returns:
// everything a renderer needs, copied out from under the Terminal lock so
// painting can happen without holding it. It intentionally duplicates
// nothing expensive -- GridView already does its own O(rows*cols) copy.
type TerminalStateSnapshot struct {
	Grid          GridView
	Cursor        Cursor
	DisplayOffset int
	Selection     Selection
	Search        SearchSnapshot
	Title         string
	AlternateScreen bool
	RowDamage     []bool
}

// SearchSnapshot is the read-only view of SearchState exposed in a
// TerminalStateSnapshot.
type SearchSnapshot struct {
	Pattern string
	Matches []MatchRange
	Focused int
}

// StateSnapshot copies the terminal's render-relevant state under lock.
// Per §4.1/§9, a render must pair the snapshot with ResetDamage inside the
// same lock acquisition, which RenderSnapshot and TryRenderSnapshot do --
// this method does not clear damage itself, so repeated calls without a reset
// keep returning the same damaged rows.
func (t *Terminal) StateSnapshot() TerminalStateSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateSnapshotLocked()
}

// RenderSnapshot is the single-lock-acquisition combination of
// StateSnapshot and ResetDamage that Algorithm R requires: taking the
// snapshot and clearing damage as two separate calls would let a write
// land in between and have its damage erased without ever being seen by
// a renderer (the TOCTOU hazard named in §9). It blocks on t.mu, so it's
// meant for single-threaded or test use; TerminalPool.Render uses the
// non-blocking TryRenderSnapshot instead, per §5's try_lock rule.
func (t *Terminal) RenderSnapshot() TerminalStateSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap := t.stateSnapshotLocked()
	t.resetDamageLocked()
	return snap
}

// TryRenderSnapshot is RenderSnapshot's non-blocking counterpart, required
// by §5's "render thread ... uses try_lock; never blocks" rule: a render
// must never stall behind a concurrent write, so it attempts t.mu via
// TryLock and reports ok=false instead of waiting. TerminalPool.Render is
// the only intended caller.
func (t *Terminal) TryRenderSnapshot() (snap TerminalStateSnapshot, ok bool) {
	if !t.mu.TryLock() {
		return TerminalStateSnapshot{}, false
	}
	defer t.mu.Unlock()
	snap = t.stateSnapshotLocked()
	t.resetDamageLocked()
	return snap, true
}

// stateSnapshotLocked is StateSnapshot for callers already holding t.mu.
func (t *Terminal) stateSnapshotLocked() TerminalStateSnapshot {
	rowDamage := make([]bool, t.rows)
	for row := 0; row < t.rows; row++ {
		rowDamage[row] = t.activeBuffer.RowDamaged(row)
	}

	return TerminalStateSnapshot{
		Grid:            t.viewLocked(),
		Cursor:          *t.cursor,
		DisplayOffset:   t.activeBuffer.DisplayOffset(),
		Selection:       t.selection,
		Search:          t.searchSnapshotLocked(),
		Title:           t.title,
		AlternateScreen: t.activeBuffer == t.alternateBuffer,
		RowDamage:       rowDamage,
	}
}
