package headlessterm

// MatchRange is a search hit spanning [Start, End) in absolute grid
// coordinates -- negative rows address scrollback, matching the
// convention Terminal.SearchScrollback already uses.
type MatchRange struct {
	Start Position
	End   Position
}

// SearchState holds a compiled (here: literal-substring) search pattern,
// the ordered matches found for it, and which one is currently focused.
// Its matches are recomputed against current content whenever a row it
// covers is marked damaged, since the text under a match may have changed.
type SearchState struct {
	pattern string
	matches []MatchRange
	focused int
	active  bool
}

// searchSnapshotLocked copies the current SearchState; callers must hold
// t.mu.
func (t *Terminal) searchSnapshotLocked() SearchSnapshot {
	if !t.search.active {
		return SearchSnapshot{}
	}
	matches := make([]MatchRange, len(t.search.matches))
	copy(matches, t.search.matches)
	return SearchSnapshot{
		Pattern: t.search.pattern,
		Matches: matches,
		Focused: t.search.focused,
	}
}

// SearchSet compiles pattern (a literal substring, case-sensitive) and
// searches the live screen plus scrollback, focusing the first match.
// An empty pattern clears the search, equivalent to SearchClear.
func (t *Terminal) SearchSet(pattern string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if pattern == "" {
		t.search = SearchState{}
		return
	}

	t.search = SearchState{
		pattern: pattern,
		active:  true,
	}
	t.recomputeSearchLocked()
}

// recomputeSearchLocked rebuilds the match list against current content.
// Must be called with t.mu held.
func (t *Terminal) recomputeSearchLocked() {
	if !t.search.active {
		return
	}

	pattern := t.search.pattern
	patternRunes := []rune(pattern)
	var matches []MatchRange

	scrollbackLen := t.primaryBuffer.ScrollbackLen()
	if t.activeBuffer == t.primaryBuffer {
		for i := 0; i < scrollbackLen; i++ {
			line := t.primaryBuffer.ScrollbackLine(i)
			if line == nil {
				continue
			}
			row := GridRow{Cells: line}
			matches = append(matches, findMatchesInRow(row.Text(), patternRunes, -(scrollbackLen-i))...)
		}
	}

	for row := 0; row < t.rows; row++ {
		line := t.activeBuffer.LineContent(row)
		matches = append(matches, findMatchesInRow(line, patternRunes, row)...)
	}

	t.search.matches = matches
	if t.search.focused >= len(matches) {
		t.search.focused = 0
	}
}

// findMatchesInRow finds all occurrences of pattern within line, tagging
// hits with the given absolute row.
func findMatchesInRow(line string, pattern []rune, row int) []MatchRange {
	if len(pattern) == 0 {
		return nil
	}
	lineRunes := []rune(line)
	var matches []MatchRange
	for col := 0; col <= len(lineRunes)-len(pattern); col++ {
		if runesEqual(lineRunes[col:col+len(pattern)], pattern) {
			matches = append(matches, MatchRange{
				Start: Position{Row: row, Col: col},
				End:   Position{Row: row, Col: col + len(pattern)},
			})
		}
	}
	return matches
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// SearchNext advances focus to the next match, wrapping around.
// No-op if there is no active search or no matches.
func (t *Terminal) SearchNext() (MatchRange, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.search.active || len(t.search.matches) == 0 {
		return MatchRange{}, false
	}
	t.search.focused = (t.search.focused + 1) % len(t.search.matches)
	return t.search.matches[t.search.focused], true
}

// SearchPrev moves focus to the previous match, wrapping around.
func (t *Terminal) SearchPrev() (MatchRange, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.search.active || len(t.search.matches) == 0 {
		return MatchRange{}, false
	}
	t.search.focused = (t.search.focused - 1 + len(t.search.matches)) % len(t.search.matches)
	return t.search.matches[t.search.focused], true
}

// SearchClear discards the active search pattern and matches.
func (t *Terminal) SearchClear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.search = SearchState{}
}

// invalidateSearchIfDamaged recomputes matches when damaged rows might
// have changed the text they matched against. Called by write paths
// after mutation, mirroring how the teacher's dirty-tracking is updated
// inline with each mutating Buffer call.
func (t *Terminal) invalidateSearchIfDamaged() {
	if !t.search.active {
		return
	}
	for row := 0; row < t.rows; row++ {
		if t.activeBuffer.RowDamaged(row) {
			t.recomputeSearchLocked()
			return
		}
	}
}
