//go:build !linux
// +build !linux

package congestion

func set(uintptr, string) error {
	return ErrNoSupport
}

func get(uintptr) (string, error) {
	return "", ErrNoSupport
}
