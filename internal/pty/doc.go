// Package pty manages the lifecycle of a single PTY session: allocating the
// terminal device pair, spawning a login shell (or a one-shot command) bound
// to the slave side, propagating window-size changes and signals to the
// child's process group, and tearing the session down exactly once.
package pty
