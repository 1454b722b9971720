package headlessterm

// markRowDamaged flags a single row as damaged. Out-of-range rows are
// ignored, matching the rest of Buffer's bounds-checking style.
func (b *Buffer) markRowDamaged(row int) {
	if row < 0 || row >= len(b.rowDamage) {
		return
	}
	b.rowDamage[row] = true
}

// markRowsDamaged flags every row in [top, bottom) as damaged.
func (b *Buffer) markRowsDamaged(top, bottom int) {
	if top < 0 {
		top = 0
	}
	if bottom > len(b.rowDamage) {
		bottom = len(b.rowDamage)
	}
	for row := top; row < bottom; row++ {
		b.rowDamage[row] = true
	}
}

// markAllRowsDamaged flags every row as damaged, used after a reflow.
func (b *Buffer) markAllRowsDamaged() {
	for row := range b.rowDamage {
		b.rowDamage[row] = true
	}
}

// RowDamaged returns true if row was mutated since the last ResetDamage call.
func (b *Buffer) RowDamaged(row int) bool {
	if row < 0 || row >= len(b.rowDamage) {
		return false
	}
	return b.rowDamage[row]
}

// ResetDamage clears row-level damage. Callers must hold whatever lock
// guards the buffer; it is intended to be invoked back-to-back with
// StateSnapshot from inside the same Terminal lock acquisition (see
// Terminal.StateSnapshot / Terminal.ResetDamage).
func (b *Buffer) ResetDamage() {
	for row := range b.rowDamage {
		b.rowDamage[row] = false
	}
}

// DisplayOffset returns how many rows the viewport is scrolled up from the
// live bottom. Always within [0, ScrollbackLen()].
func (b *Buffer) DisplayOffset() int {
	return b.displayOffset
}

// SetDisplayOffset sets the viewport scroll position, clamped to
// [0, ScrollbackLen()]. Does not touch any cell; callers that need the
// viewport repainted must mark the relevant rows damaged themselves
// (Terminal.Scroll does this via the pool's dirty flag, not row damage,
// since no cell actually changed).
func (b *Buffer) SetDisplayOffset(offset int) {
	maxOffset := b.ScrollbackLen()
	if offset < 0 {
		offset = 0
	}
	if offset > maxOffset {
		offset = maxOffset
	}
	b.displayOffset = offset
}

// GridRow is one row of a GridView: a copied slice of cells plus whether
// the row came from scrollback or the live grid.
type GridRow struct {
	Cells       []Cell
	Wrapped     bool
	Scrollback  bool
}

// GridView is an immutable, pull-based snapshot of exactly the rows
// currently visible given a display offset. Producing it costs
// O(rows*cols), never O(scrollback*cols) -- see Buffer.View.
type GridView struct {
	Rows          int
	Cols          int
	DisplayOffset int
	Lines         []GridRow
}

// View copies exactly `rows` rows of the buffer as currently scrolled,
// windowed per the absolute-range formula: when displayOffset rows are
// scrolled back from the live bottom, the returned window covers
// [liveBottom-rows-displayOffset+1, liveBottom-displayOffset] in absolute
// terms, substituting scrollback lines for any row that falls before the
// live grid's row 0.
//
// rows is normally the buffer's own Rows(), but a caller may request a
// smaller viewport (e.g. a host window showing fewer rows than the PTY
// grid was sized for).
func (b *Buffer) View(rows int) GridView {
	if rows <= 0 || rows > b.rows {
		rows = b.rows
	}

	offset := b.displayOffset
	view := GridView{
		Rows:          rows,
		Cols:          b.cols,
		DisplayOffset: offset,
		Lines:         make([]GridRow, rows),
	}

	scrollbackLen := b.ScrollbackLen()

	// top is the live-grid row the view starts at; a negative top reaches
	// back into scrollback (-1 is the newest scrollback line).
	top := b.rows - rows - offset

	// rowsFromScrollback is how many of the requested rows, counting from
	// the top of the view, must come from scrollback given the offset.
	rowsFromScrollback := -top
	if rowsFromScrollback < 0 {
		rowsFromScrollback = 0
	}
	if rowsFromScrollback > rows {
		rowsFromScrollback = rows
	}

	for i := 0; i < rowsFromScrollback; i++ {
		// Oldest-needed scrollback index, walking forward.
		idx := scrollbackLen + top + i
		cells := b.ScrollbackLine(idx)
		cp := make([]Cell, b.cols)
		copy(cp, cells)
		view.Lines[i] = GridRow{Cells: cp, Scrollback: true}
	}

	liveRowsNeeded := rows - rowsFromScrollback
	liveStart := top + rowsFromScrollback
	for i := 0; i < liveRowsNeeded; i++ {
		row := liveStart + i
		cp := make([]Cell, b.cols)
		if row >= 0 && row < b.rows {
			copy(cp, b.cells[row])
		} else {
			for j := range cp {
				cp[j] = NewCell()
			}
		}
		wrapped := row >= 0 && row < b.rows && b.wrapped[row]
		view.Lines[rowsFromScrollback+i] = GridRow{Cells: cp, Wrapped: wrapped}
	}

	return view
}

// Text returns the row's content as a string, collapsing wide-char
// spacers and empty cells to spaces, the same convention Buffer.LineContent
// uses for the live grid.
func (r GridRow) Text() string {
	runes := make([]rune, 0, len(r.Cells))
	for _, cell := range r.Cells {
		if cell.IsWideSpacer() {
			continue
		}
		ch := cell.Char
		if ch == 0 {
			ch = ' '
		}
		runes = append(runes, ch)
	}
	return string(runes)
}

// View produces a GridView of the active buffer at the terminal's own
// row count. Acquires the read lock; callers that already hold the
// Terminal's lock (e.g. the pool's render path) should instead call
// viewLocked.
func (t *Terminal) View() GridView {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.viewLocked()
}

// viewLocked is the lock-free-of-its-own-locking counterpart of View,
// used by callers (stateSnapshotLocked) that already hold t.mu.
func (t *Terminal) viewLocked() GridView {
	return t.activeBuffer.View(t.rows)
}

// Scroll adjusts the viewport's display offset by delta rows (positive
// scrolls toward older scrollback, negative toward the live bottom).
// Unlike the ANSI-driven scroll region, this never mutates a cell -- it
// only moves the window GridView reads from. It marks the terminal dirty
// through its dirty tracker (TerminalPool's per-entry AtomicCaches, when
// one is installed) so the next render repaints the shifted viewport.
func (t *Terminal) Scroll(delta int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.activeBuffer.SetDisplayOffset(t.activeBuffer.DisplayOffset() + delta)
	t.markDirtyLocked()
}

// DisplayOffset returns the active buffer's current viewport scroll
// position.
func (t *Terminal) DisplayOffset() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.activeBuffer.DisplayOffset()
}

// ResetDamage clears row damage on the active buffer. Must be called in
// the same lock acquisition as the StateSnapshot it follows (see §9's
// TOCTOU note in the design notes): if a write lands between the two,
// the pool's AtomicDirtyFlag re-check (not this method) is what keeps
// the write from being silently dropped.
func (t *Terminal) ResetDamage() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.activeBuffer.ResetDamage()
}

// resetDamageLocked is ResetDamage for callers that already hold t.mu.
func (t *Terminal) resetDamageLocked() {
	t.activeBuffer.ResetDamage()
}
