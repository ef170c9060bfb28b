// Package proc manages the external decoder and fetcher processes that
// perform actual audio output and remote streaming. A Session wraps one
// spawned process with graceful stop, suspend/continue and natural-exit
// detection; a Pipeline composes a fetcher and a decoder session.
package proc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/mediahub/internal/mtypes"
)

var (
	// ErrNotStarted is returned when an operation requires a running process.
	ErrNotStarted = errors.New("session not started")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("session already started")

	// ErrNotPausable is returned for suspend/continue on a session that
	// is not an active single local process.
	ErrNotPausable = errors.New("session cannot be paused in its current state")
)

// DefaultGrace is the wait after a terminate signal before escalating
// to a forced kill.
const DefaultGrace = 2 * time.Second

// Session wraps one spawned external process. All state transitions are
// confined to the session itself; the caller observes exits through
// Done and ExitReason.
type Session struct {
	name string
	args []string

	cmd    *exec.Cmd
	cancel context.CancelFunc

	mu            sync.Mutex
	state         mtypes.SessionState
	stopRequested bool
	reason        mtypes.ExitReason
	waitErr       error

	stdin  io.Reader
	stdout io.Writer

	done chan struct{}
}

// NewSession creates a session for the given command. The process is not
// spawned until Start is called.
func NewSession(name string, args ...string) *Session {
	return &Session{
		name:  name,
		args:  args,
		state: mtypes.SessionStarting,
		done:  make(chan struct{}),
	}
}

// SetStdin connects the process's standard input. Must be called
// before Start.
func (s *Session) SetStdin(r io.Reader) { s.stdin = r }

// SetStdout connects the process's standard output. Must be called
// before Start.
func (s *Session) SetStdout(w io.Writer) { s.stdout = w }

// prepare builds the exec.Cmd. Caller holds s.mu.
func (s *Session) prepare(ctx context.Context) {
	if s.cmd != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.cmd = exec.CommandContext(ctx, s.name, s.args...)
	s.cmd.Stdin = s.stdin
	s.cmd.Stdout = s.stdout
	// Let the escalation in Stop decide when to kill; the default
	// CommandContext behavior would kill immediately on cancel.
	s.cmd.Cancel = func() error {
		return s.cmd.Process.Signal(syscall.SIGTERM)
	}
}

// Start spawns the process and begins watching for its exit.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != mtypes.SessionStarting {
		return ErrAlreadyStarted
	}
	s.prepare(ctx)

	if err := s.cmd.Start(); err != nil {
		s.state = mtypes.SessionStopped
		close(s.done)
		return fmt.Errorf("failed to start %s: %w", s.name, err)
	}

	s.state = mtypes.SessionActive
	log.Debug("Process started", "cmd", s.name, "pid", s.cmd.Process.Pid)

	go s.watch()
	return nil
}

// watch waits for the process to exit and records the exit reason.
func (s *Session) watch() {
	err := s.cmd.Wait()
	s.cancel()

	s.mu.Lock()
	s.waitErr = err
	if s.stopRequested {
		s.reason = mtypes.ExitRequested
	} else {
		s.reason = mtypes.ExitNatural
	}
	s.state = mtypes.SessionStopped
	reason := s.reason
	s.mu.Unlock()

	if err != nil && reason == mtypes.ExitNatural {
		log.Debug("Process exited with error", "cmd", s.name, "err", err)
	} else {
		log.Debug("Process exited", "cmd", s.name, "reason", reason)
	}
	close(s.done)
}

// Done is closed once the process has exited (or Start failed).
func (s *Session) Done() <-chan struct{} { return s.done }

// ExitReason reports why the session ended. Only meaningful after Done
// is closed.
func (s *Session) ExitReason() mtypes.ExitReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Err returns the process wait error, if any. Only meaningful after
// Done is closed; a clean zero exit yields nil.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waitErr
}

// State returns the session's lifecycle state.
func (s *Session) State() mtypes.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stop terminates the process: terminate signal, wait up to grace, then
// forced kill. It is idempotent and a no-op on a session that never
// started or has already stopped.
func (s *Session) Stop(grace time.Duration) error {
	s.mu.Lock()
	if s.cmd == nil || s.cmd.Process == nil {
		// Never started. Mark stopped so Done observers are released.
		if s.state == mtypes.SessionStarting {
			s.state = mtypes.SessionStopped
			s.stopRequested = true
			s.reason = mtypes.ExitRequested
			close(s.done)
		}
		s.mu.Unlock()
		return nil
	}
	if s.state == mtypes.SessionStopped {
		s.mu.Unlock()
		return nil
	}
	alreadyStopping := s.state == mtypes.SessionStopping
	s.stopRequested = true
	s.state = mtypes.SessionStopping
	proc := s.cmd.Process
	s.mu.Unlock()

	if alreadyStopping {
		<-s.done
		return nil
	}

	// A paused process never handles SIGTERM; continue it first.
	_ = proc.Signal(syscall.SIGCONT)
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		// Process already gone.
		<-s.done
		return nil
	}

	select {
	case <-s.done:
	case <-time.After(grace):
		log.Warn("Process ignored terminate signal, killing", "cmd", s.name)
		_ = proc.Kill()
		<-s.done
	}
	return nil
}

// Pause suspends the process. Valid only while the session is active.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != mtypes.SessionActive || s.cmd == nil || s.cmd.Process == nil {
		return ErrNotPausable
	}
	if err := s.cmd.Process.Signal(syscall.SIGSTOP); err != nil {
		return fmt.Errorf("failed to suspend %s: %w", s.name, err)
	}
	s.state = mtypes.SessionPaused
	return nil
}

// Resume continues a paused process.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != mtypes.SessionPaused || s.cmd == nil || s.cmd.Process == nil {
		return ErrNotPausable
	}
	if err := s.cmd.Process.Signal(syscall.SIGCONT); err != nil {
		return fmt.Errorf("failed to continue %s: %w", s.name, err)
	}
	s.state = mtypes.SessionActive
	return nil
}
