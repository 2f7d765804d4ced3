package pty

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	ptylib "github.com/creack/pty"
	"github.com/google/uuid"
)

// Default terminal capability advertised to the child.
const (
	DefaultTerm      = "xterm-256color"
	DefaultColorTerm = "truecolor"
)

// Options describe the child to spawn.
type Options struct {
	// Shell is the path of the shell binary. Required.
	Shell string
	// Dir is the working directory for the child. Required.
	Dir string
	// Command is an optional single command string. When non-empty the
	// shell is invoked as `<shell> -l -c "<command>"` and exits once the
	// command completes; otherwise it runs as an interactive login shell.
	Command string
	// Term and ColorTerm override the advertised terminal capability.
	// Empty values fall back to DefaultTerm / DefaultColorTerm.
	Term      string
	ColorTerm string
	// Cols and Rows set the initial window geometry. Both must be positive
	// to take effect; otherwise the device default is kept.
	Cols int
	Rows int
}

// Spawn allocates a PTY pair and starts the shell with stdin, stdout and
// stderr bound to the slave endpoint, in a new session with the slave as
// controlling terminal. The slave descriptor is closed in this process once
// the child holds it. On failure no partially-started session remains.
func Spawn(opts Options) (*Session, error) {
	if opts.Shell == "" {
		return nil, errors.New("no shell specified")
	}
	if opts.Dir == "" {
		return nil, errors.New("no working directory specified")
	}

	argv := loginArgv(opts.Shell, opts.Command)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = opts.Dir
	cmd.Env = sessionEnv(os.Environ(), opts)

	// ptylib.Start applies Setsid+Setctty and closes the slave in this
	// process after the fork.
	var ptmx *os.File
	var err error
	if opts.Cols > 0 && opts.Rows > 0 {
		ptmx, err = ptylib.StartWithSize(cmd, &ptylib.Winsize{
			Rows: uint16(opts.Rows),
			Cols: uint16(opts.Cols),
		})
	} else {
		ptmx, err = ptylib.Start(cmd)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to start PTY session: %w", err)
	}

	sess := &Session{
		ID:     uuid.New().String(),
		Cmd:    cmd,
		Pty:    ptmx,
		exited: make(chan struct{}),
	}

	// The reaper performs the one and only Wait on the child.
	go func() {
		sess.waitErr = cmd.Wait()
		close(sess.exited)
		logger.Debug("child exited", "id", sess.ID, "code", sess.ExitCode())
	}()

	logger.Debug("spawned session",
		"id", sess.ID,
		"shell", opts.Shell,
		"dir", opts.Dir,
		"pid", cmd.Process.Pid,
		"oneshot", opts.Command != "",
	)
	return sess, nil
}

// loginArgv builds the child argv. A non-empty command string turns the
// invocation into a login shell running that single command.
func loginArgv(shell, command string) []string {
	if command != "" {
		return []string{shell, "-l", "-c", command}
	}
	return []string{shell, "-l"}
}

// sessionEnv snapshots the inherited environment with the terminal
// capability and working-directory overrides applied.
func sessionEnv(base []string, opts Options) []string {
	term := opts.Term
	if term == "" {
		term = DefaultTerm
	}
	colorTerm := opts.ColorTerm
	if colorTerm == "" {
		colorTerm = DefaultColorTerm
	}

	overrides := map[string]string{
		"TERM":      term,
		"COLORTERM": colorTerm,
		"PWD":       opts.Dir,
	}

	env := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		name, _, ok := strings.Cut(kv, "=")
		if ok {
			if _, replaced := overrides[name]; replaced {
				continue
			}
		}
		env = append(env, kv)
	}
	for _, name := range []string{"TERM", "COLORTERM", "PWD"} {
		env = append(env, name+"="+overrides[name])
	}
	return env
}
