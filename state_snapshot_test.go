package headlessterm

import "testing"

func TestStateSnapshotDoesNotClearDamage(t *testing.T) {
	term := New(WithSize(24, 80))
	term.WriteString("x")

	first := term.StateSnapshot()
	if !first.RowDamage[0] {
		t.Fatal("expected row 0 to be damaged after a write")
	}

	second := term.StateSnapshot()
	if !second.RowDamage[0] {
		t.Error("expected StateSnapshot alone to leave damage untouched for a subsequent call")
	}
}

func TestRenderSnapshotClearsDamage(t *testing.T) {
	term := New(WithSize(24, 80))
	term.WriteString("x")

	snap := term.RenderSnapshot()
	if !snap.RowDamage[0] {
		t.Fatal("expected the snapshot itself to report the damage that triggered it")
	}

	after := term.StateSnapshot()
	if after.RowDamage[0] {
		t.Error("expected RenderSnapshot to clear damage atomically with the snapshot it returned")
	}
}

func TestRenderSnapshotCopiesCursorAndGrid(t *testing.T) {
	term := New(WithSize(24, 80))
	term.WriteString("abc")

	snap := term.RenderSnapshot()
	if snap.Cursor.Col != 3 {
		t.Errorf("expected cursor col 3, got %d", snap.Cursor.Col)
	}
	if got := snap.Grid.Lines[0].Text(); got != "abc" {
		t.Errorf("expected row 0 to read 'abc', got %q", got)
	}
}
