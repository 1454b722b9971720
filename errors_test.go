package headlessterm

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeForMapsSentinels(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorCode
	}{
		{nil, ErrSuccess},
		{ErrTerminalNotFound, ErrNotFound},
		{ErrTerminalBusy, ErrBusy},
		{ErrPTYClosed, ErrWriteClosed},
		{ErrInvalidDimensions, ErrInvalidConfig},
		{errors.New("unrelated"), ErrRenderError},
	}
	for _, c := range cases {
		if got := CodeFor(c.err); got != c.want {
			t.Errorf("CodeFor(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestCodeForUnwrapsWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("open pty: %w", ErrTerminalBusy)
	if got := CodeFor(wrapped); got != ErrBusy {
		t.Errorf("expected wrapped ErrTerminalBusy to map to ErrBusy, got %v", got)
	}
}
