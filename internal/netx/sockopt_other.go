//go:build !unix

package netx

func setReuseAddr(uintptr) error {
	return nil
}
