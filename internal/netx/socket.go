package netx

import (
	"context"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/m-lab/txbench/internal/congestion"
	"github.com/m-lab/txbench/pkg/txbench/model"
)

// ListenConfig returns a net.ListenConfig that sets SO_REUSEADDR on the
// socket before binding, so that a restarted server can rebind its fixed
// port immediately.
func ListenConfig() *net.ListenConfig {
	return &net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = setReuseAddr(fd)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}
}

// ListenTCP binds a TCP listener on addr.
func ListenTCP(ctx context.Context, addr string) (*Listener, error) {
	l, err := ListenConfig().Listen(ctx, model.ProtocolStream.Network(), addr)
	if err != nil {
		return nil, err
	}
	return NewListener(l.(*net.TCPListener)), nil
}

// ListenUDP binds a UDP socket on addr.
func ListenUDP(ctx context.Context, addr string) (*net.UDPConn, error) {
	pc, err := ListenConfig().ListenPacket(ctx, model.ProtocolDatagram.Network(), addr)
	if err != nil {
		return nil, err
	}
	return pc.(*net.UDPConn), nil
}

// NewDialer returns a net.Dialer with the given timeout. If cc is not
// empty, the congestion control algorithm is set on TCP sockets before
// connecting.
func NewDialer(timeout time.Duration, cc string) *net.Dialer {
	d := &net.Dialer{Timeout: timeout}
	if cc == "" {
		return d
	}
	d.Control = func(network, address string, c syscall.RawConn) error {
		// network is "tcp4" or "tcp6" for stream sockets.
		if !strings.HasPrefix(network, model.ProtocolStream.Network()) {
			return nil
		}
		return congestion.Set(c, cc)
	}
	return d
}
