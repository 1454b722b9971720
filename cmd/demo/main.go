// Command demo drives one pooled, PTY-backed terminal end to end: open it
// running a short shell command, poll events until the shell exits, run
// Algorithm R once, and rasterize the result through the renderer package
// to a PNG. It exists
// to exercise the Pool/PTY/renderer path the same way the teacher's
// examples/ directory exercised the bare Terminal type directly.
package main

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"time"

	headlessterm "github.com/duskterm/engine"
	"github.com/duskterm/engine/renderer"
)

func main() {
	pool := headlessterm.NewTerminalPool()
	defer pool.CloseAll()

	id, err := pool.Open(24, 80, headlessterm.WithShellSpec(headlessterm.ShellSpec{
		Command: "/bin/sh",
		Args:    []string{"-c", "printf 'hello from duskterm\\n'; echo $((21*2))"},
	}))
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := waitForExit(ctx, pool, id); err != nil {
		fmt.Fprintln(os.Stderr, "wait:", err)
	}

	snap, err := pool.Render(id)
	if err != nil {
		fmt.Fprintln(os.Stderr, "render:", err)
		os.Exit(1)
	}

	fmt.Println("=== rendered content ===")
	for _, row := range snap.Grid.Lines {
		if text := row.Text(); text != "" {
			fmt.Println(text)
		}
	}

	cursor, err := pool.GetCursor(id)
	if err == nil {
		fmt.Printf("cursor: row=%d col=%d\n", cursor.Row, cursor.Col)
	}

	r := renderer.NewRenderer(renderer.DefaultConfig(), renderer.DefaultCacheConfig())
	img := r.RenderFrame(snap, renderer.Overlay{})

	f, err := os.Create("demo.png")
	if err != nil {
		fmt.Fprintln(os.Stderr, "create:", err)
		os.Exit(1)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		fmt.Fprintln(os.Stderr, "encode:", err)
		os.Exit(1)
	}
	fmt.Println("saved demo.png")
}

// waitForExit polls PollEvents until the terminal's shell reports
// EventExited or ctx is done, standing in for a host's own event loop.
func waitForExit(ctx context.Context, pool *headlessterm.TerminalPool, id headlessterm.TerminalId) error {
	exited := make(chan struct{})
	pool.SetEventCallback(func(evID headlessterm.TerminalId, ev headlessterm.TerminalEvent) {
		if evID == id && ev.Kind == headlessterm.EventExited {
			select {
			case exited <- struct{}{}:
			default:
			}
		}
	})

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-exited:
			return nil
		case <-ticker.C:
			pool.PollEvents()
		}
	}
}
