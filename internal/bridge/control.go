package bridge

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ResizePrefix is the literal sentinel marking an in-band resize control
// message on the bridge's input stream. Messages carrying it are consumed by
// the bridge and never forwarded to the child's terminal.
const ResizePrefix = "###RESIZE###"

// ErrBadControl reports a malformed resize control message. The bridge
// swallows it: the message is dropped without effect and without forwarding.
var ErrBadControl = errors.New("malformed resize control message")

// IsResize reports whether an input chunk starts with the resize sentinel.
func IsResize(data []byte) bool {
	return bytes.HasPrefix(data, []byte(ResizePrefix))
}

// ParseResize decodes a `###RESIZE###<columns>,<rows>` message. The payload
// is trimmed of surrounding whitespace and must be two positive base-10
// integers separated by a comma.
func ParseResize(data []byte) (cols, rows int, err error) {
	if !IsResize(data) {
		return 0, 0, fmt.Errorf("%w: missing sentinel prefix", ErrBadControl)
	}
	payload := strings.TrimSpace(string(data[len(ResizePrefix):]))
	first, second, ok := strings.Cut(payload, ",")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadControl, payload)
	}
	cols, err = strconv.Atoi(strings.TrimSpace(first))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadControl, payload)
	}
	rows, err = strconv.Atoi(strings.TrimSpace(second))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadControl, payload)
	}
	if strings.Contains(second, ",") || cols <= 0 || rows <= 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadControl, payload)
	}
	return cols, rows, nil
}
