package netx

import (
	"net"
	"time"
)

// Listener is a TCPListener. Connections accepted by this listener record
// their accept time and count the bytes read and written.
type Listener struct {
	*net.TCPListener
}

// NewListener returns a netx.Listener.
func NewListener(l *net.TCPListener) *Listener {
	return &Listener{
		TCPListener: l,
	}
}

// Accept accepts a connection and returns a *netx.Conn which includes the
// connection's "accept time".
func (ln *Listener) Accept() (net.Conn, error) {
	tc, err := ln.AcceptTCP()
	if err != nil {
		return nil, err
	}
	// The "accept time" is recorded immediately after AcceptTCP.
	acceptTime := time.Now()
	return &Conn{
		Conn:       tc,
		acceptTime: acceptTime,
	}, nil
}
