package headlessterm

import (
	"context"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/creack/pty"
	"github.com/rs/zerolog/log"
)

// shellProcess owns the PTY master/slave pair and the shell subprocess
// backing one Terminal. A Terminal constructed bare via New (no pool)
// has a nil shell and expects the host to call Write directly; a
// Terminal opened through TerminalPool.Open has one unless
// WithHeadlessOpen was given.
type shellProcess struct {
	cmd    *exec.Cmd
	ptmx   *os.File
	exited atomic.Bool

	closeOnce sync.Once
	done      chan struct{}
}

// ShellSpec describes the subprocess a pool should spawn behind a PTY.
// Zero value spawns $SHELL (falling back to /bin/sh) with no arguments.
type ShellSpec struct {
	// Command is the executable to run. Empty means $SHELL or /bin/sh.
	Command string
	// Args are passed to Command.
	Args []string
	// Env, when non-nil, replaces the inherited environment entirely.
	// When nil, the spawned process inherits os.Environ() plus TERM.
	Env []string
	// Dir sets the subprocess working directory; empty means inherit.
	Dir string
}

func defaultShell() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}

// spawnShell starts spec's command behind a new PTY sized rows x cols,
// wiring its stdout/stderr/stdin to the PTY master. The returned
// shellProcess's ptmx must be pumped into a Terminal by ptyReader.
func spawnShell(spec ShellSpec, rows, cols int) (*shellProcess, error) {
	if rows <= 0 || cols <= 0 {
		return nil, ErrInvalidDimensions
	}

	command := spec.Command
	if command == "" {
		command = defaultShell()
	}

	cmd := exec.Command(command, spec.Args...)
	if spec.Env != nil {
		cmd.Env = spec.Env
	} else {
		cmd.Env = append(os.Environ(), "TERM=xterm-256color")
	}
	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
	if err != nil {
		return nil, err
	}

	return &shellProcess{
		cmd:  cmd,
		ptmx: ptmx,
		done: make(chan struct{}),
	}, nil
}

// resize informs the kernel PTY of a new size. Safe to call concurrently
// with ptyReader's Read loop.
func (s *shellProcess) resize(rows, cols int) error {
	if rows <= 0 || cols <= 0 {
		return ErrInvalidDimensions
	}
	return pty.Setsize(s.ptmx, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
}

// write sends host input to the shell's stdin via the PTY master.
func (s *shellProcess) write(data []byte) (int, error) {
	if s.exited.Load() {
		return 0, ErrPTYClosed
	}
	return s.ptmx.Write(data)
}

// close terminates the subprocess and releases the PTY master. Safe to
// call multiple times and concurrently with ptyReader.
func (s *shellProcess) close() error {
	var err error
	s.closeOnce.Do(func() {
		s.exited.Store(true)
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		err = s.ptmx.Close()
		close(s.done)
	})
	return err
}

// ptyReader owns the read side of the PTY: it feeds everything the
// shell produces into term.Write, and calls onExit exactly once when
// the shell's side of the PTY is closed (normal exit or killed). It
// replaces the teacher's assumption that "someone else feeds Write()"
// with a goroutine that owns the pump, generalized so a pool can run
// many of these concurrently, one per terminal.
//
// onExit runs on the reader goroutine; it must not block.
func ptyReader(ctx context.Context, id TerminalId, term *Terminal, shell *shellProcess, onExit func(TerminalId)) {
	buf := make([]byte, 32*1024)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := shell.ptmx.Read(buf)
		if n > 0 {
			// term.Write marks the pool's dirty flag itself, atomically
			// with the mutation, via the tracker wired at Open time.
			term.Write(buf[:n])
		}
		if err != nil {
			shell.exited.Store(true)
			log.Debug().Int64("terminal", int64(id)).Err(err).Msg("pty read loop exiting")
			term.mu.Lock()
			term.feedEvent(TerminalEvent{Kind: EventExited})
			term.mu.Unlock()
			if onExit != nil {
				onExit(id)
			}
			return
		}
	}
}
