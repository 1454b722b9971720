package headlessterm

import "testing"

func TestGridRowText(t *testing.T) {
	term := New(WithSize(24, 80))
	term.WriteString("hello")

	view := term.View()
	if got := view.Lines[0].Text(); got != "hello" {
		t.Errorf("expected 'hello', got %q", got)
	}
}

func TestViewWindowsScrollbackAboveLiveRows(t *testing.T) {
	storage := &testScrollback{lines: make([][]Cell, 0)}
	storage.SetMaxLines(100)
	term := New(WithSize(3, 10), WithScrollback(storage))
	for i := 0; i < 10; i++ {
		term.WriteString("line\r\n")
	}

	term.Scroll(5)
	view := term.View()
	if view.DisplayOffset != 5 {
		t.Errorf("expected DisplayOffset 5, got %d", view.DisplayOffset)
	}
	if len(view.Lines) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(view.Lines))
	}
}

func TestResetDamageClearsRowDamage(t *testing.T) {
	term := New(WithSize(24, 80))
	term.WriteString("x")

	if !term.StateSnapshot().RowDamage[0] {
		t.Fatal("expected row 0 damaged before reset")
	}
	term.ResetDamage()
	if term.StateSnapshot().RowDamage[0] {
		t.Error("expected ResetDamage to clear row damage")
	}
}

func TestScrollClampsToScrollbackLen(t *testing.T) {
	term := New(WithSize(3, 10))
	term.WriteString("only one line\r\n")

	term.Scroll(1000)
	if got := term.DisplayOffset(); got != term.ScrollbackLen() {
		t.Errorf("expected DisplayOffset clamped to ScrollbackLen()=%d, got %d", term.ScrollbackLen(), got)
	}

	term.Scroll(-1000)
	if got := term.DisplayOffset(); got != 0 {
		t.Errorf("expected DisplayOffset clamped to 0, got %d", got)
	}
}
