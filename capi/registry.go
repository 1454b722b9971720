// Package main implements the cgo C ABI boundary spec.md §4.5 describes:
// opaque pool/terminal handles, scalar getters for cursor/selection/
// scroll state, and a C function-pointer event callback. It is a direct
// retarget of the teacher's wasm/main.go + wasm/handlers.go global
// registry and callback-adapter shape from syscall/js to cgo //export,
// generalized from one js global object to any number of pools a host
// process creates.
package main

import "C"

import (
	"sync"
	"unsafe"

	headlessterm "github.com/duskterm/engine"
)

// poolEntry bundles a TerminalPool with the last rendered snapshot per
// terminal, so row-text/content getters (which need the GridView, not
// just the lock-free AtomicCaches scalars) have something to read
// without forcing every getter to call Pool.Render itself.
type poolEntry struct {
	pool *headlessterm.TerminalPool

	mu    sync.RWMutex
	snaps map[headlessterm.TerminalId]headlessterm.TerminalStateSnapshot

	cbMu     sync.Mutex
	eventCb  C.terminal_event_cb
	userData unsafe.Pointer
}

// registry is the global handle table: C.uintptr_t handle -> poolEntry.
// Grounded directly on wasm/main.go's `var terminals = make(map[int]
// *terminalInstance)` + `nextTerminalID`, widened from a single
// js-global-backed map to a handle table any number of cgo callers can
// address concurrently.
var (
	registryMu  sync.RWMutex
	registry    = make(map[C.uintptr_t]*poolEntry)
	nextHandle  C.uintptr_t = 1
)

func registerPool(p *headlessterm.TerminalPool) C.uintptr_t {
	registryMu.Lock()
	defer registryMu.Unlock()
	h := nextHandle
	nextHandle++
	registry[h] = &poolEntry{
		pool:  p,
		snaps: make(map[headlessterm.TerminalId]headlessterm.TerminalStateSnapshot),
	}
	return h
}

func lookupPool(handle C.uintptr_t) (*poolEntry, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	e, ok := registry[handle]
	return e, ok
}

func unregisterPool(handle C.uintptr_t) (*poolEntry, bool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	e, ok := registry[handle]
	if ok {
		delete(registry, handle)
	}
	return e, ok
}

func (e *poolEntry) storeSnapshot(id headlessterm.TerminalId, snap headlessterm.TerminalStateSnapshot) {
	e.mu.Lock()
	e.snaps[id] = snap
	e.mu.Unlock()
}

func (e *poolEntry) loadSnapshot(id headlessterm.TerminalId) (headlessterm.TerminalStateSnapshot, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	snap, ok := e.snaps[id]
	return snap, ok
}

func (e *poolEntry) dropSnapshot(id headlessterm.TerminalId) {
	e.mu.Lock()
	delete(e.snaps, id)
	e.mu.Unlock()
}
