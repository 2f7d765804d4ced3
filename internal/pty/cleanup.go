package pty

import (
	"errors"
	"os"
	"syscall"
	"time"
)

// killGrace is how long Teardown waits for the child to honor SIGTERM
// before force-killing it.
const killGrace = 5 * time.Second

// Teardown releases the session: the master endpoint is closed exactly once,
// the child is asked to terminate gracefully, and the reaper is waited on so
// the child is reaped exactly once. Safe to call repeatedly, including after
// the child has already exited on its own.
func (s *Session) Teardown() {
	s.mu.Lock()
	first := !s.closed
	if first {
		s.closed = true
		if s.Pty != nil {
			if err := s.Pty.Close(); err != nil {
				logger.Debug("master close failed", "id", s.ID, "error", err)
			}
		}
	}
	s.mu.Unlock()

	if s.Cmd != nil && s.Cmd.Process != nil && s.Alive() {
		if err := s.Cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
			logger.Debug("terminate request failed", "id", s.ID, "error", err)
		}
	}

	select {
	case <-s.exited:
	case <-time.After(killGrace):
		if s.Cmd != nil && s.Cmd.Process != nil {
			if err := s.Cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
				logger.Warn("kill failed", "id", s.ID, "error", err)
			}
		}
		<-s.exited
	}

	if first {
		logger.Debug("session torn down", "id", s.ID, "code", s.ExitCode())
	}
}
