// Package congestion contains code required to set and read the congestion
// control algorithm of a TCP socket. This code currently only works on Linux
// systems.
package congestion

import (
	"errors"
	"syscall"
)

// ErrNoSupport indicates that this system does not support TCP_CONGESTION.
var ErrNoSupport = errors.New("TCP_CONGESTION not supported")

// Set sets the congestion control algorithm for |rc|.
func Set(rc syscall.RawConn, cc string) error {
	var sockErr error
	err := rc.Control(func(fd uintptr) {
		sockErr = set(fd, cc)
	})
	if err != nil {
		return err
	}
	return sockErr
}

// Get returns the congestion control algorithm for |rc|.
func Get(rc syscall.RawConn) (string, error) {
	var (
		cc      string
		sockErr error
	)
	err := rc.Control(func(fd uintptr) {
		cc, sockErr = get(fd)
	})
	if err != nil {
		return "", err
	}
	return cc, sockErr
}
