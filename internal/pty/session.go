package pty

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/charmbracelet/log"
	ptylib "github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// Package-level logger
var logger *log.Logger

func init() {
	logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "pty",
	})
}

// SetLogLevel sets the logging level for the pty package.
func SetLogLevel(level log.Level) {
	logger.SetLevel(level)
}

// Session represents one live PTY session and its associated resources.
// The child process is a session leader whose process group id equals its
// pid, so group signals reach the whole job.
type Session struct {
	ID  string
	Cmd *exec.Cmd
	Pty *os.File // master endpoint; owned by the session until Teardown

	mu     sync.Mutex
	closed bool

	exited  chan struct{} // closed by the reaper after the single Wait
	waitErr error         // written by the reaper before exited is closed
}

// Write delivers data to the child's terminal input via the master endpoint.
func (s *Session) Write(data []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, io.ErrClosedPipe
	}
	return s.Pty.Write(data)
}

// Resize applies new window geometry to the master endpoint and notifies the
// child's process group with SIGWINCH. Callers treat failures as advisory.
func (s *Session) Resize(cols, rows int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return io.ErrClosedPipe
	}
	if err := ptylib.Setsize(s.Pty, &ptylib.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	}); err != nil {
		return err
	}
	return s.signalGroup(unix.SIGWINCH)
}

// InheritSize copies the window geometry of tty (usually the bridge's own
// controlling terminal) onto the session and notifies the child's group.
func (s *Session) InheritSize(tty *os.File) error {
	ws, err := ptylib.GetsizeFull(tty)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return io.ErrClosedPipe
	}
	if err := ptylib.Setsize(s.Pty, ws); err != nil {
		return err
	}
	return s.signalGroup(unix.SIGWINCH)
}

// Interrupt forwards an interrupt to the child's process group, leaving the
// child's own signal handling to decide how to react.
func (s *Session) Interrupt() {
	if err := s.signalGroup(unix.SIGINT); err != nil {
		logger.Debug("interrupt not delivered", "id", s.ID, "error", err)
	}
}

// signalGroup signals the child's process group. The child was started with
// Setsid, so the group id is the child's pid.
func (s *Session) signalGroup(sig unix.Signal) error {
	if s.Cmd == nil || s.Cmd.Process == nil {
		return errors.New("no child process")
	}
	return unix.Kill(-s.Cmd.Process.Pid, sig)
}

// Alive reports whether the child process has not yet been reaped.
func (s *Session) Alive() bool {
	select {
	case <-s.exited:
		return false
	default:
		return true
	}
}

// Done returns a channel closed once the child has exited and been reaped.
func (s *Session) Done() <-chan struct{} {
	return s.exited
}

// ExitCode returns the child's exit code, or -1 if the child is still
// running or was killed by a signal.
func (s *Session) ExitCode() int {
	select {
	case <-s.exited:
	default:
		return -1
	}
	if s.waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(s.waitErr, &exitErr) {
			return exitErr.ExitCode()
		}
		return -1
	}
	return 0
}
