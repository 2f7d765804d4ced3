package bridge

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/arturogj92/codeagentswarm/internal/pty"
)

// Package-level logger
var logger *log.Logger

func init() {
	logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "bridge",
	})
}

// SetLogLevel sets the logging level for the bridge package.
func SetLogLevel(level log.Level) {
	logger.SetLevel(level)
}

// Default tuning for the multiplex loop.
const (
	DefaultChunkSize    = 1024
	DefaultPollInterval = 100 * time.Millisecond
)

// Terminal is the slice of a PTY session the input path drives: raw bytes go
// to Write, intercepted resize messages to Resize.
type Terminal interface {
	io.Writer
	Resize(cols, rows int) error
}

// Options tune the multiplex loop. Zero values use the defaults.
type Options struct {
	// ChunkSize bounds each read on either source.
	ChunkSize int
	// PollInterval bounds the readiness wait so child liveness is
	// re-checked even when neither source is ready.
	PollInterval time.Duration
}

// Bridge multiplexes one PTY session between an input and an output stream,
// normally the process's own stdin and stdout.
type Bridge struct {
	sess  *pty.Session
	in    *os.File
	out   *os.File
	chunk int
	poll  time.Duration
}

// New builds a Bridge for sess. The caller keeps ownership of in and out;
// the session is torn down by Run.
func New(sess *pty.Session, in, out *os.File, opts Options) *Bridge {
	chunk := opts.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Bridge{sess: sess, in: in, out: out, chunk: chunk, poll: poll}
}

// Run drives the multiplex loop until the child exits, the input device
// fails, or the child's terminal stream ends, then tears the session down.
// Stream errors end the session but are not fatal to the process; they are
// returned so the caller can report them.
func (b *Bridge) Run() error {
	defer b.sess.Teardown()

	// When the bridge itself is attached to a terminal, hand keystrokes
	// through unbuffered and mirror the outer window geometry.
	inFd := int(b.in.Fd())
	onTTY := term.IsTerminal(inFd)
	if onTTY {
		state, err := term.MakeRaw(inFd)
		if err != nil {
			logger.Warn("raw mode unavailable", "error", err)
		} else {
			defer func() {
				if err := term.Restore(inFd, state); err != nil {
					logger.Warn("failed to restore terminal", "error", err)
				}
			}()
		}
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	var winch chan os.Signal
	if onTTY {
		winch = make(chan os.Signal, 1)
		signal.Notify(winch, unix.SIGWINCH)
		defer signal.Stop(winch)
		winch <- unix.SIGWINCH // initial size sync
	}

	masterFd := int(b.sess.Pty.Fd())
	fds := []unix.PollFd{
		{Fd: int32(inFd), Events: unix.POLLIN},
		{Fd: int32(masterFd), Events: unix.POLLIN},
	}
	timeout := int(b.poll.Milliseconds())
	buf := make([]byte, b.chunk)

	var streamErr error
	for b.sess.Alive() {
		select {
		case <-interrupt:
			logger.Debug("forwarding interrupt to child")
			b.sess.Interrupt()
		case <-winch:
			if err := b.sess.InheritSize(b.in); err != nil {
				logger.Debug("window size sync failed", "error", err)
			}
		default:
		}

		fds[0].Revents, fds[1].Revents = 0, 0
		n, err := unix.Poll(fds, timeout)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			streamErr = fmt.Errorf("poll: %w", err)
			break
		}
		if n == 0 {
			continue
		}

		if fds[0].Revents&(unix.POLLIN|unix.POLLERR) != 0 {
			n, err := unix.Read(inFd, buf)
			if err != nil {
				if err == unix.EINTR {
					continue
				}
				streamErr = fmt.Errorf("read input: %w", err)
				break
			}
			// An empty read here means "no data yet", not EOF; input
			// EOF does not end the session.
			if n > 0 {
				if err := routeInput(buf[:n], b.sess); err != nil {
					streamErr = fmt.Errorf("write to terminal: %w", err)
					break
				}
			}
		} else if fds[0].Revents&unix.POLLHUP != 0 {
			// Input side hung up with nothing left to read. The session
			// stays alive, but polling the dead descriptor would spin;
			// a negative fd tells poll to skip it.
			fds[0].Fd = -1
		}

		if fds[1].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			ok, err := b.pump(masterFd, buf)
			if err != nil {
				streamErr = err
				break
			}
			if !ok {
				break
			}
		}
	}

	// The child may have exited with output still queued on the master.
	b.drain(masterFd, buf)

	return streamErr
}

// routeInput routes one chunk of bridge input: resize control messages are
// applied to the terminal, everything else is forwarded verbatim. Malformed
// control messages and failed resizes are dropped without effect.
func routeInput(data []byte, t Terminal) error {
	if IsResize(data) {
		cols, rows, err := ParseResize(data)
		if err != nil {
			logger.Debug("dropping control message", "error", err)
			return nil
		}
		if err := t.Resize(cols, rows); err != nil {
			logger.Debug("resize not applied", "cols", cols, "rows", rows, "error", err)
		} else {
			logger.Debug("resized", "cols", cols, "rows", rows)
		}
		return nil
	}
	_, err := t.Write(data)
	return err
}

// pump moves one chunk from the master endpoint to the bridge output.
// It reports ok=false when the child's terminal stream has ended.
func (b *Bridge) pump(masterFd int, buf []byte) (ok bool, err error) {
	n, rerr := unix.Read(masterFd, buf)
	if n > 0 {
		if _, werr := b.out.Write(buf[:n]); werr != nil {
			return false, fmt.Errorf("write output: %w", werr)
		}
	}
	if rerr != nil || n == 0 {
		// EIO is the normal Linux end-of-stream once the slave side
		// is gone; anything here ends the session.
		return false, nil
	}
	return true, nil
}

// drain forwards any output still buffered on the master after the loop has
// stopped, so short-lived children round-trip their final bytes.
func (b *Bridge) drain(masterFd int, buf []byte) {
	fds := []unix.PollFd{{Fd: int32(masterFd), Events: unix.POLLIN}}
	for {
		fds[0].Revents = 0
		n, err := unix.Poll(fds, 0)
		if err != nil || n == 0 || fds[0].Revents&unix.POLLIN == 0 {
			return
		}
		n, err = unix.Read(masterFd, buf)
		if n > 0 {
			if _, werr := b.out.Write(buf[:n]); werr != nil {
				return
			}
		}
		if err != nil || n == 0 {
			return
		}
	}
}
