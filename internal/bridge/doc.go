// Package bridge moves bytes between the process's stdio and the master
// endpoint of a PTY session. A single readiness-polled loop drives both
// directions, intercepts in-band resize control messages so they never reach
// the child as terminal input, and forwards interrupts to the child's
// process group.
package bridge
