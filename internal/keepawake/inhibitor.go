package keepawake

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	apperrors "github.com/stagehand/remote/internal/errors"
)

// processAdapter holds the inhibitor by keeping a helper process running.
type processAdapter struct {
	name string
	args []string
	// configure adjusts the command before start, e.g. to tie it to our
	// lifetime.
	configure func(*exec.Cmd)
	// stop asks the helper to exit. Defaults to SIGTERM.
	stop    func(*os.Process) error
	execCmd func(name string, args ...string) *exec.Cmd
}

func (a *processAdapter) Acquire(ctx context.Context) (Handle, error) {
	execCmd := a.execCmd
	if execCmd == nil {
		execCmd = exec.Command
	}
	cmd := execCmd(a.name, a.args...)
	if a.configure != nil {
		a.configure(cmd)
	}

	if err := cmd.Start(); err != nil {
		var ex *exec.Error
		if errors.As(err, &ex) || errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.Wrap(apperrors.CodeKeepAwakeUnsupported, a.name+" is unavailable", err)
		}
		return nil, apperrors.Wrap(apperrors.CodeKeepAwakeAcquireFailed, "failed to start "+a.name, err)
	}

	stop := a.stop
	if stop == nil {
		stop = func(p *os.Process) error { return p.Signal(syscall.SIGTERM) }
	}
	h := &processHandle{cmd: cmd, stop: stop, done: make(chan struct{})}
	go h.wait()
	return h, nil
}

type processHandle struct {
	cmd  *exec.Cmd
	stop func(*os.Process) error

	mu       sync.Mutex
	done     chan struct{}
	err      error
	released bool
	once     sync.Once
}

func (h *processHandle) wait() {
	err := h.cmd.Wait()

	h.mu.Lock()
	if h.released {
		err = nil
	}
	h.err = err
	h.mu.Unlock()

	close(h.done)
}

func (h *processHandle) Done() <-chan struct{} { return h.done }

func (h *processHandle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Release stops the helper and waits for exit. If ctx ends first the helper is
// killed.
func (h *processHandle) Release(ctx context.Context) error {
	if h.cmd == nil || h.cmd.Process == nil {
		return nil
	}

	h.once.Do(func() {
		h.mu.Lock()
		h.released = true
		h.mu.Unlock()
		_ = h.stop(h.cmd.Process)
	})

	select {
	case <-ctx.Done():
		_ = h.cmd.Process.Kill()
		select {
		case <-h.done:
		case <-time.After(200 * time.Millisecond):
		}
		return fmt.Errorf("release timed out waiting for %s exit: %w", h.cmd.Path, ctx.Err())
	case <-h.done:
		return nil
	}
}
