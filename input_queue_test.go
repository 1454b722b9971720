package headlessterm

import "testing"

func TestSPSCQueuePushPop(t *testing.T) {
	q := newSPSCQueue(4)

	if !q.tryPush(inputOp{kind: opScroll, delta: 1}) {
		t.Fatal("expected push to succeed on empty queue")
	}
	op, ok := q.tryPop()
	if !ok {
		t.Fatal("expected pop to succeed")
	}
	if op.kind != opScroll || op.delta != 1 {
		t.Errorf("unexpected op: %+v", op)
	}

	if _, ok := q.tryPop(); ok {
		t.Error("expected pop on empty queue to fail")
	}
}

func TestSPSCQueueCapacityRoundsUpToPowerOfTwo(t *testing.T) {
	q := newSPSCQueue(3)
	if len(q.buf) != 4 {
		t.Errorf("expected capacity rounded up to 4, got %d", len(q.buf))
	}
}

func TestSPSCQueueFullReturnsFalse(t *testing.T) {
	q := newSPSCQueue(2)

	if !q.tryPush(inputOp{kind: opScroll, delta: 1}) {
		t.Fatal("expected first push to succeed")
	}
	if !q.tryPush(inputOp{kind: opScroll, delta: 2}) {
		t.Fatal("expected second push to succeed")
	}
	if q.tryPush(inputOp{kind: opScroll, delta: 3}) {
		t.Error("expected push on full queue to fail")
	}
}

func TestSPSCQueueFIFOOrder(t *testing.T) {
	q := newSPSCQueue(8)

	for i := 0; i < 5; i++ {
		if !q.tryPush(inputOp{kind: opScroll, delta: i}) {
			t.Fatalf("expected push %d to succeed", i)
		}
	}
	for i := 0; i < 5; i++ {
		op, ok := q.tryPop()
		if !ok {
			t.Fatalf("expected pop %d to succeed", i)
		}
		if op.delta != i {
			t.Errorf("expected delta %d, got %d", i, op.delta)
		}
	}
}

func TestPoolInputAsyncTerminalNotFound(t *testing.T) {
	p := NewTerminalPool()
	defer p.CloseAll()

	if err := p.InputAsync(TerminalId(999), []byte("x")); err != ErrTerminalNotFound {
		t.Errorf("expected ErrTerminalNotFound, got %v", err)
	}
}

func TestPoolResizeAsyncInvalidDimensions(t *testing.T) {
	p := NewTerminalPool()
	defer p.CloseAll()

	id, err := p.Open(24, 80, WithHeadlessOpen())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := p.ResizeAsync(id, 0, 80); err != ErrInvalidDimensions {
		t.Errorf("expected ErrInvalidDimensions, got %v", err)
	}
}
