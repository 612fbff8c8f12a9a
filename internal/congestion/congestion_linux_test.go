package congestion

import (
	"net"
	"os"
	"strings"
	"syscall"
	"testing"

	"github.com/m-lab/go/rtx"
)

func rawConn(t *testing.T) (syscall.RawConn, func()) {
	tcpl, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	rtx.Must(err, "cannot create test listener")
	rc, err := tcpl.SyscallConn()
	if err != nil {
		t.Fatalf("cannot get raw conn: %v", err)
	}
	return rc, func() { tcpl.Close() }
}

func TestGet(t *testing.T) {
	rc, cleanup := rawConn(t)
	defer cleanup()

	cc, err := Get(rc)
	if err != nil {
		t.Errorf("cannot get the socket's cc: %v", err)
	}
	if cc == "" {
		t.Errorf("empty cc returned")
	}
}

func TestSet(t *testing.T) {
	// Get a list of the available cc algorithms in the environment.
	content, err := os.ReadFile("/proc/sys/net/ipv4/tcp_allowed_congestion_control")
	if err != nil {
		t.Skip("cannot read list of available cc algorithm, skipping test")
	}

	rc, cleanup := rawConn(t)
	defer cleanup()

	ccList := strings.Fields(string(content))
	for _, cc := range ccList {
		t.Logf("testing cc %s", cc)
		err = Set(rc, cc)
		if err != nil {
			t.Fatalf("cannot set the socket's cc: %v", err)
		}
		actual, err := Get(rc)
		if err != nil {
			t.Fatalf("cannot get the socket's cc: %v", err)
		}
		if actual != cc {
			t.Errorf("the cc hasn't been set (found: %s, expected: %s)", actual, cc)
		}
	}
}

func TestSet_Invalid(t *testing.T) {
	rc, cleanup := rawConn(t)
	defer cleanup()

	if err := Set(rc, "not-a-real-cc"); err == nil {
		t.Errorf("expected error for an unknown cc, got nil")
	}
}
