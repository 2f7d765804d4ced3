// Package main implements ptybridge, a bridge between an interactive shell
// running inside a real pseudo-terminal and the stdio of this process. A
// remote or embedding caller can drive a full terminal session (cursor
// control, color, window resizing) through plain byte streams.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/arturogj92/codeagentswarm/internal/bridge"
	"github.com/arturogj92/codeagentswarm/internal/config"
	"github.com/arturogj92/codeagentswarm/internal/pty"
)

// Version information (set by the release pipeline)
var version = "dev"

// Command-line flags
var (
	configPath string
	debugMode  bool
	initCols   int
	initRows   int
)

var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	Prefix:          "ptybridge",
})

func main() {
	rootCmd := &cobra.Command{
		Use:   "ptybridge <shell-path> <working-directory> [command-words...]",
		Short: "Bridge a shell in a real PTY to stdin/stdout",
		Long: `ptybridge runs a login shell (or a single command) inside a real
pseudo-terminal and wires the terminal to this process's standard streams.

Raw bytes on stdin go to the shell's terminal input; terminal output comes
back on stdout, unmodified and unbuffered. A line starting with the literal
prefix ###RESIZE### followed by "<columns>,<rows>" is consumed as a window
resize request instead of being forwarded.

Pass "auto" as the shell path to autodetect a shell ($SHELL, then /bin/bash,
/bin/zsh, /bin/sh).`,
		Example: `  # Interactive login shell in the home directory
  ptybridge /bin/bash "$HOME"

  # One-shot command (the shell exits when the command finishes)
  ptybridge /bin/sh /tmp echo hi

  # Resize the session from the controlling side
  printf '###RESIZE###120,40\n' > ptybridge-stdin`,
		Version:       version,
		Args:          cobra.MinimumNArgs(2),
		RunE:          runBridge,
		SilenceErrors: true,
	}

	rootCmd.Flags().StringVar(&configPath, "config", "", "Path to config file (default: XDG config dir)")
	rootCmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.Flags().IntVar(&initCols, "cols", 0, "Initial terminal columns (0 = device default)")
	rootCmd.Flags().IntVar(&initRows, "rows", 0, "Initial terminal rows (0 = device default)")

	if err := rootCmd.Execute(); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func runBridge(cmd *cobra.Command, args []string) error {
	// Arguments are valid past this point; later failures are not usage
	// errors.
	cmd.SilenceUsage = true

	if debugMode {
		logger.SetLevel(log.DebugLevel)
		pty.SetLogLevel(log.DebugLevel)
		bridge.SetLogLevel(log.DebugLevel)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Warn("ignoring config file", "error", err)
		cfg = config.Default()
	}

	shell := args[0]
	if shell == "auto" {
		shell, err = pty.DetectShell()
		if err != nil {
			return err
		}
		logger.Debug("autodetected shell", "shell", shell)
	}

	cols, rows := cfg.Terminal.Cols, cfg.Terminal.Rows
	if initCols > 0 {
		cols = initCols
	}
	if initRows > 0 {
		rows = initRows
	}

	sess, err := pty.Spawn(pty.Options{
		Shell:     shell,
		Dir:       args[1],
		Command:   strings.Join(args[2:], " "),
		Term:      cfg.Terminal.Term,
		ColorTerm: cfg.Terminal.ColorTerm,
		Cols:      cols,
		Rows:      rows,
	})
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	br := bridge.New(sess, os.Stdin, os.Stdout, bridge.Options{
		ChunkSize:    cfg.Bridge.ChunkSize,
		PollInterval: time.Duration(cfg.Bridge.PollIntervalMs) * time.Millisecond,
	})

	// Stream errors end the session but are not a program failure; the
	// session is already torn down when Run returns.
	if err := br.Run(); err != nil {
		logger.Warn("session ended", "error", err)
	}
	return nil
}
