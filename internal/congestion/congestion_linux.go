package congestion

import (
	"strings"

	"golang.org/x/sys/unix"
)

func set(fd uintptr, cc string) error {
	return unix.SetsockoptString(int(fd), unix.IPPROTO_TCP, unix.TCP_CONGESTION, cc)
}

func get(fd uintptr) (string, error) {
	cc, err := unix.GetsockoptString(int(fd), unix.IPPROTO_TCP, unix.TCP_CONGESTION)
	if err != nil {
		return "", err
	}
	// The kernel returns a NUL-padded buffer.
	return strings.TrimRight(cc, "\x00"), nil
}
