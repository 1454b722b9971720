package headlessterm

import (
	"runtime"
	"testing"
	"time"
)

func TestSpawnShellInvalidDimensions(t *testing.T) {
	if _, err := spawnShell(ShellSpec{}, 0, 80); err != ErrInvalidDimensions {
		t.Errorf("expected ErrInvalidDimensions, got %v", err)
	}
}

func TestSpawnShellRunsCommandAndExits(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("PTYs are POSIX-only")
	}

	shell, err := spawnShell(ShellSpec{Command: "/bin/sh", Args: []string{"-c", "echo ready; exit 0"}}, 10, 40)
	if err != nil {
		t.Fatalf("spawnShell failed: %v", err)
	}
	defer shell.close()

	buf := make([]byte, 256)
	deadline := time.Now().Add(2 * time.Second)
	var total string
	for time.Now().Before(deadline) {
		n, err := shell.ptmx.Read(buf)
		if n > 0 {
			total += string(buf[:n])
		}
		if err != nil {
			break
		}
		if len(total) > 0 {
			break
		}
	}
	if total == "" {
		t.Fatal("expected to read some output from the spawned shell")
	}
}

func TestShellProcessWriteAfterCloseFails(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("PTYs are POSIX-only")
	}

	shell, err := spawnShell(ShellSpec{Command: "/bin/sh"}, 10, 40)
	if err != nil {
		t.Fatalf("spawnShell failed: %v", err)
	}
	if err := shell.close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if _, err := shell.write([]byte("x")); err != ErrPTYClosed {
		t.Errorf("expected ErrPTYClosed after close, got %v", err)
	}
}

func TestShellProcessCloseIsIdempotent(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("PTYs are POSIX-only")
	}

	shell, err := spawnShell(ShellSpec{Command: "/bin/sh"}, 10, 40)
	if err != nil {
		t.Fatalf("spawnShell failed: %v", err)
	}
	if err := shell.close(); err != nil {
		t.Fatalf("first close failed: %v", err)
	}
	if err := shell.close(); err != nil {
		t.Errorf("expected second close to be a no-op, got %v", err)
	}
}
