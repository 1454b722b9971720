package headlessterm

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// TerminalId is the opaque handle a host (and eventually the capi
// boundary) uses to address one pooled terminal. Deliberately a plain
// scalar, not a pointer or struct, so it crosses a C ABI as a single
// integer -- the same shape as the teacher's wasm int ids, generalized
// off js.Value plumbing.
type TerminalId int64

// EventCallback receives fanned-out events for any terminal in the
// pool. Only one callback is active at a time; SetEventCallback
// replaces it.
type EventCallback func(TerminalId, TerminalEvent)

// terminalEntry bundles everything a pool slot owns: the Terminal
// itself, its PTY-backed shell (nil for terminals opened without a
// shell via WithHeadlessOpen), the lock-free caches a renderer reads
// without taking t.mu, and the SPSC queue host input is funneled
// through before a single consumer goroutine applies it.
type terminalEntry struct {
	id     TerminalId
	term   *Terminal
	shell  *shellProcess
	caches *AtomicCaches
	input  *spscQueue
	cancel context.CancelFunc

	// lastSnap caches the most recent Render result so a tick with no
	// damage returns it without repeating the O(rows*cols) GridView
	// copy -- the "no-op render is free" invariant.
	snapMu   sync.RWMutex
	lastSnap TerminalStateSnapshot
}

// PoolOption configures a TerminalPool at construction.
type PoolOption func(*TerminalPool)

// WithInputQueueCapacity overrides the default per-terminal SPSC queue
// capacity (rounded up to the next power of two).
func WithInputQueueCapacity(n int) PoolOption {
	return func(p *TerminalPool) { p.queueCapacity = n }
}

// WithPoolEventCallback installs the fan-out callback at construction
// time, equivalent to calling SetEventCallback immediately after.
func WithPoolEventCallback(cb EventCallback) PoolOption {
	return func(p *TerminalPool) { p.setEventCallback(cb) }
}

const defaultQueueCapacity = 256

// TerminalPool owns the lifecycle of every headless terminal backing a
// GPU-accelerated multi-window host: it spawns the PTY and reader
// goroutine behind each Open, applies queued host input from a single
// consumer goroutine per terminal, and exposes lock-free Get* reads
// plus the Render entry point (Algorithm R) a compositor drives once
// per frame. Modeled on the teacher's wasm/main.go global registry
// (map[int]*terminalInstance + nextTerminalID), generalized from a
// single js global to an arbitrary number of concurrently owned pools.
type TerminalPool struct {
	mu      sync.RWMutex
	entries map[TerminalId]*terminalEntry
	nextID  atomic.Int64

	queueCapacity int

	eventCbMu sync.RWMutex
	eventCb   EventCallback

	group    *errgroup.Group
	groupCtx context.Context
	cancel   context.CancelFunc

	closed atomic.Bool
}

// NewTerminalPool constructs an empty pool. Callers must call CloseAll
// when done to terminate every spawned shell and join their reader
// goroutines.
func NewTerminalPool(opts ...PoolOption) *TerminalPool {
	ctx, cancel := context.WithCancel(context.Background())
	group, groupCtx := errgroup.WithContext(ctx)

	p := &TerminalPool{
		entries:       make(map[TerminalId]*terminalEntry),
		queueCapacity: defaultQueueCapacity,
		group:         group,
		groupCtx:      groupCtx,
		cancel:        cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// OpenOption configures a single Open call.
type OpenOption func(*openConfig)

type openConfig struct {
	shell      ShellSpec
	headless   bool
	termOpts   []Option
}

// WithShellSpec overrides the default shell spawned behind the new
// terminal's PTY.
func WithShellSpec(spec ShellSpec) OpenOption {
	return func(c *openConfig) { c.shell = spec }
}

// WithHeadlessOpen skips PTY/shell spawn entirely -- the returned
// terminal's Write must be driven by the caller, exactly like a bare
// headlessterm.New. Useful for tests and for replaying recorded
// sessions through the pool's render/query surface.
func WithHeadlessOpen() OpenOption {
	return func(c *openConfig) { c.headless = true }
}

// WithTerminalOptions passes through additional Options to the
// underlying Terminal constructor (e.g. WithScrollback, WithSixel).
func WithTerminalOptions(opts ...Option) OpenOption {
	return func(c *openConfig) { c.termOpts = append(c.termOpts, opts...) }
}

// Open creates a new pooled terminal of the given size, spawning a PTY
// and shell (unless WithHeadlessOpen is given) and starting its reader
// goroutine. The returned id is valid until the matching Close.
func (p *TerminalPool) Open(rows, cols int, opts ...OpenOption) (TerminalId, error) {
	if rows <= 0 || cols <= 0 {
		return 0, ErrInvalidDimensions
	}
	if p.closed.Load() {
		return 0, ErrTerminalNotFound
	}

	cfg := openConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	id := TerminalId(p.nextID.Add(1))
	caches := NewAtomicCaches()

	termOpts := append([]Option{WithSize(rows, cols)}, cfg.termOpts...)
	term := New(termOpts...)

	term.SetDirtyTracker(caches)

	entry := &terminalEntry{
		id:     id,
		term:   term,
		caches: caches,
		input:  newSPSCQueue(p.queueCapacity),
	}

	if !cfg.headless {
		shell, err := spawnShell(cfg.shell, rows, cols)
		if err != nil {
			return 0, err
		}
		entry.shell = shell
	}

	ctx, cancel := context.WithCancel(p.groupCtx)
	entry.cancel = cancel

	p.mu.Lock()
	p.entries[id] = entry
	p.mu.Unlock()

	p.syncCaches(entry)

	if entry.shell != nil {
		p.group.Go(func() error {
			ptyReader(ctx, id, term, entry.shell, func(exited TerminalId) {
				p.emitEvent(exited, TerminalEvent{Kind: EventExited})
			})
			return nil
		})
	}

	p.group.Go(func() error {
		p.consumeInput(ctx, entry)
		return nil
	})

	log.Debug().Int64("terminal", int64(id)).Int("rows", rows).Int("cols", cols).Msg("terminal opened")
	return id, nil
}

// Close tears down one terminal: kills its shell, cancels its reader
// and consumer goroutines, and removes it from the pool. It does not
// block for the goroutines to observe cancellation; call CloseAll at
// shutdown to join everything.
func (p *TerminalPool) Close(id TerminalId) error {
	p.mu.Lock()
	entry, ok := p.entries[id]
	if ok {
		delete(p.entries, id)
	}
	p.mu.Unlock()
	if !ok {
		return ErrTerminalNotFound
	}

	entry.cancel()
	if entry.shell != nil {
		_ = entry.shell.close()
	}
	return nil
}

// CloseAll shuts down every terminal in the pool and joins all reader and
// consumer goroutines before returning.
func (p *TerminalPool) CloseAll() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}

	p.mu.Lock()
	ids := make([]TerminalId, 0, len(p.entries))
	for id := range p.entries {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	for _, id := range ids {
		_ = p.Close(id)
	}

	p.cancel()
	return p.group.Wait()
}

func (p *TerminalPool) lookup(id TerminalId) (*terminalEntry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.entries[id]
	return entry, ok
}

// WithTerminal runs fn with the terminal's full API. It takes no lock
// around fn: each Terminal method locks t.mu itself, so several calls
// made inside fn are not atomic with respect to other callers. Use for
// operations with no Get*/Async fast path (e.g. one-off queries added
// later without pool plumbing).
func (p *TerminalPool) WithTerminal(id TerminalId, fn func(*Terminal)) error {
	entry, ok := p.lookup(id)
	if !ok {
		return ErrTerminalNotFound
	}
	fn(entry.term)
	return nil
}

// TryWithTerminal is WithTerminal's non-blocking counterpart: callers
// on a latency-sensitive path (e.g. an input handler that must not
// stall a frame) get ErrTerminalBusy instead of blocking on a
// concurrent Render.
func (p *TerminalPool) TryWithTerminal(id TerminalId, fn func(*Terminal)) error {
	entry, ok := p.lookup(id)
	if !ok {
		return ErrTerminalNotFound
	}
	if !entry.term.mu.TryLock() {
		return ErrTerminalBusy
	}
	defer entry.term.mu.Unlock()
	fn(entry.term)
	return nil
}

// Render implements Algorithm R: it snapshots render-relevant state and
// clears row damage in one lock acquisition (Terminal.TryRenderSnapshot),
// republishes the lock-free caches a compositor reads every frame
// without touching t.mu, and then re-checks the dirty flag so a write
// that raced in during the snapshot is never silently dropped (step 9
// of the algorithm, backed by AtomicCaches.CheckAndClear clearing only
// the dirty generation IsDirty observed). Per §5, the render thread must never block behind
// a writer: on contention this returns the last published snapshot
// together with ErrTerminalBusy rather than waiting for t.mu, so a busy
// terminal just skips a frame instead of stalling the caller.
func (p *TerminalPool) Render(id TerminalId) (TerminalStateSnapshot, error) {
	entry, ok := p.lookup(id)
	if !ok {
		return TerminalStateSnapshot{}, ErrTerminalNotFound
	}

	if !entry.caches.IsDirty() {
		entry.snapMu.RLock()
		snap := entry.lastSnap
		entry.snapMu.RUnlock()
		return snap, nil
	}

	snap, ok := entry.term.TryRenderSnapshot()
	if !ok {
		entry.snapMu.RLock()
		last := entry.lastSnap
		entry.snapMu.RUnlock()
		return last, ErrTerminalBusy
	}

	p.publishCaches(entry, snap)
	entry.caches.CheckAndClear(true)

	entry.snapMu.Lock()
	entry.lastSnap = snap
	entry.snapMu.Unlock()

	return snap, nil
}

// syncCaches publishes the current terminal state into AtomicCaches and
// the cached last snapshot once at Open time, so a Get*/Render call
// before the first dirty write still sees valid (if empty) data instead
// of ok=false.
func (p *TerminalPool) syncCaches(entry *terminalEntry) {
	snap := entry.term.StateSnapshot()
	p.publishCaches(entry, snap)
	entry.snapMu.Lock()
	entry.lastSnap = snap
	entry.snapMu.Unlock()
}

func (p *TerminalPool) publishCaches(entry *terminalEntry, snap TerminalStateSnapshot) {
	entry.caches.StoreCursor(int32(snap.Cursor.Row), int32(snap.Cursor.Col))
	entry.caches.StoreSelection(snap.Selection.Active, snap.Selection.Start, snap.Selection.End)
	entry.caches.StoreScroll(
		int64(snap.DisplayOffset),
		int64(entry.term.ScrollbackLen()),
		int64(entry.term.ScrollbackLen()+entry.term.Rows()),
	)
}

// GetCursor is a lock-free read of the cursor position as of the last
// Render or syncCaches.
func (p *TerminalPool) GetCursor(id TerminalId) (CursorInfo, error) {
	entry, ok := p.lookup(id)
	if !ok {
		return CursorInfo{}, ErrTerminalNotFound
	}
	row, col, valid := entry.caches.GetCursor()
	if !valid {
		return CursorInfo{}, ErrTerminalBusy
	}
	return CursorInfo{Row: row, Col: col}, nil
}

// GetSelection is a lock-free read of the selection range as of the
// last Render.
func (p *TerminalPool) GetSelection(id TerminalId) (SelectionInfo, bool, error) {
	entry, ok := p.lookup(id)
	if !ok {
		return SelectionInfo{}, false, ErrTerminalNotFound
	}
	info, valid := entry.caches.GetSelection()
	return info, valid, nil
}

// GetScrollInfo is a lock-free read of the viewport scroll position and
// scrollback size as of the last Render.
func (p *TerminalPool) GetScrollInfo(id TerminalId) (ScrollInfo, error) {
	entry, ok := p.lookup(id)
	if !ok {
		return ScrollInfo{}, ErrTerminalNotFound
	}
	info, valid := entry.caches.GetScroll()
	if !valid {
		return ScrollInfo{}, ErrTerminalBusy
	}
	return info, nil
}

// GetTitle takes the terminal's read lock -- unlike the other Get*
// calls, a title change is rare and its string payload doesn't pack
// into an atomic word, so it is read directly rather than cached. Hosts
// that want a lock-free title should instead watch for
// EventTitleChanged via SetEventCallback.
func (p *TerminalPool) GetTitle(id TerminalId) (string, error) {
	entry, ok := p.lookup(id)
	if !ok {
		return "", ErrTerminalNotFound
	}
	return entry.term.Title(), nil
}

// SetEventCallback installs the single callback events from every
// pooled terminal fan out to. Passing nil disables fan-out.
func (p *TerminalPool) SetEventCallback(cb EventCallback) {
	p.setEventCallback(cb)
}

func (p *TerminalPool) setEventCallback(cb EventCallback) {
	p.eventCbMu.Lock()
	p.eventCb = cb
	p.eventCbMu.Unlock()
}

func (p *TerminalPool) emitEvent(id TerminalId, ev TerminalEvent) {
	p.eventCbMu.RLock()
	cb := p.eventCb
	p.eventCbMu.RUnlock()
	if cb != nil {
		cb(id, ev)
	}
}

// PollEvents drains and fans out every terminal's pending event ring to
// the installed callback. A host that doesn't want a background
// callback can instead call this once per frame from its own event
// loop.
func (p *TerminalPool) PollEvents() {
	p.mu.RLock()
	entries := make([]*terminalEntry, 0, len(p.entries))
	for _, e := range p.entries {
		entries = append(entries, e)
	}
	p.mu.RUnlock()

	for _, entry := range entries {
		for _, ev := range entry.term.DrainEvents() {
			p.emitEvent(entry.id, ev)
		}
	}
}
