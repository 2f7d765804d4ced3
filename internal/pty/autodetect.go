package pty

import (
	"fmt"
	"os"
)

// shellCandidates are tried in order when $SHELL is unset or unusable.
var shellCandidates = []string{
	"/bin/bash",
	"/bin/zsh",
	"/bin/sh",
}

// DetectShell finds an available shell: $SHELL first, then the well-known
// candidates. Returns an error if none of them is executable.
func DetectShell() (string, error) {
	if shell := os.Getenv("SHELL"); shell != "" && isExecutable(shell) {
		return shell, nil
	}
	for _, candidate := range shellCandidates {
		if isExecutable(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no shell found: checked $SHELL and %v", shellCandidates)
}

// isExecutable reports whether path is a regular file with an execute bit.
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode()&0111 != 0
}
