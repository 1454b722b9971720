package headlessterm

import "testing"

func TestSearchSetFindsMatchesOnScreen(t *testing.T) {
	term := New(WithSize(24, 80))
	term.WriteString("find the needle in the haystack")

	term.SearchSet("needle")

	match, ok := term.SearchNext()
	if !ok {
		t.Fatal("expected a match for 'needle'")
	}
	if match.Start.Row != 0 || match.Start.Col != 9 {
		t.Errorf("expected match at (0, 9), got (%d, %d)", match.Start.Row, match.Start.Col)
	}
}

func TestSearchSetEmptyPatternClears(t *testing.T) {
	term := New(WithSize(24, 80))
	term.WriteString("abcabc")
	term.SearchSet("abc")

	term.SearchSet("")

	if _, ok := term.SearchNext(); ok {
		t.Error("expected an empty pattern to clear the active search")
	}
}

func TestSearchNextWrapsAround(t *testing.T) {
	term := New(WithSize(24, 80))
	term.WriteString("aXaXa")
	term.SearchSet("a")

	first, ok := term.SearchNext()
	if !ok {
		t.Fatal("expected at least one match")
	}
	var last MatchRange
	for i := 0; i < 2; i++ {
		last, ok = term.SearchNext()
		if !ok {
			t.Fatal("expected SearchNext to keep succeeding")
		}
	}
	wrapped, ok := term.SearchNext()
	if !ok {
		t.Fatal("expected SearchNext to wrap around")
	}
	if wrapped != first {
		t.Errorf("expected wrap-around to return to the first match %+v, got %+v (last was %+v)", first, wrapped, last)
	}
}

func TestSearchPrevMovesBackward(t *testing.T) {
	term := New(WithSize(24, 80))
	term.WriteString("a.a.a")
	term.SearchSet("a")

	firstNext, _ := term.SearchNext()
	secondNext, _ := term.SearchNext()

	back, ok := term.SearchPrev()
	if !ok {
		t.Fatal("expected SearchPrev to succeed")
	}
	if back != firstNext {
		t.Errorf("expected SearchPrev to return to %+v, got %+v (came from %+v)", firstNext, back, secondNext)
	}
}

func TestSearchClearDiscardsState(t *testing.T) {
	term := New(WithSize(24, 80))
	term.WriteString("target")
	term.SearchSet("target")

	term.SearchClear()

	if _, ok := term.SearchNext(); ok {
		t.Error("expected SearchClear to discard the active search")
	}
}

func TestSearchInvalidatedByRowDamage(t *testing.T) {
	term := New(WithSize(24, 80))
	term.WriteString("oldtext")
	term.SearchSet("oldtext")

	if _, ok := term.SearchNext(); !ok {
		t.Fatal("expected initial match before the row changes")
	}

	term.WriteString("\x1b[H\x1b[2K") // move home, clear the line
	term.WriteString("newtext")

	if _, ok := term.SearchNext(); ok {
		t.Error("expected damage-based invalidation to drop the stale match for text that no longer exists")
	}
}
