package renderer

import (
	"image"
	"testing"
	"time"

	headlessterm "github.com/duskterm/engine"
)

func TestSurfaceCachePutGet(t *testing.T) {
	s := NewSurfaceCache()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))

	s.Put(1, img)
	got, ok := s.Get(1)
	if !ok {
		t.Fatal("expected Get to find the surface just Put")
	}
	if got != img {
		t.Error("expected Get to return the exact image stored")
	}
}

func TestSurfaceCacheGetMissingID(t *testing.T) {
	s := NewSurfaceCache()
	if _, ok := s.Get(99); ok {
		t.Error("expected Get on an unknown id to fail")
	}
}

func TestSurfaceCacheSweepEvictsStaleByTime(t *testing.T) {
	s := NewSurfaceCache()
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	s.Put(headlessterm.TerminalId(1), img)

	time.Sleep(5 * time.Millisecond)

	evicted := s.Sweep(time.Millisecond)
	if len(evicted) != 1 || evicted[0] != headlessterm.TerminalId(1) {
		t.Errorf("expected id 1 to be swept, got %v", evicted)
	}
	if _, ok := s.Get(1); ok {
		t.Error("expected swept surface to be gone")
	}
}

func TestSurfaceCacheSweepKeepsFreshEntries(t *testing.T) {
	s := NewSurfaceCache()
	s.Put(headlessterm.TerminalId(1), image.NewRGBA(image.Rect(0, 0, 1, 1)))

	evicted := s.Sweep(time.Hour)
	if len(evicted) != 0 {
		t.Errorf("expected no eviction for a fresh entry, got %v", evicted)
	}
	if _, ok := s.Get(1); !ok {
		t.Error("expected fresh entry to survive Sweep")
	}
}

func TestSurfaceCacheRemove(t *testing.T) {
	s := NewSurfaceCache()
	s.Put(headlessterm.TerminalId(1), image.NewRGBA(image.Rect(0, 0, 1, 1)))
	s.Remove(1)
	if _, ok := s.Get(1); ok {
		t.Error("expected Remove to drop the surface immediately")
	}
}
