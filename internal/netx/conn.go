package netx

import (
	"errors"
	"net"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/m-lab/txbench/internal/congestion"
)

// ErrNoRawConn is returned when the connection does not expose its raw socket.
var ErrNoRawConn = errors.New("connection does not expose a raw socket")

// ConnInfo provides operations on a net.Conn's underlying socket.
type ConnInfo interface {
	ByteCounters() (uint64, uint64)
	AcceptTime() time.Time
	CC() (string, error)
	SetCC(string) error
}

// ToConnInfo is a helper function to convert a net.Conn into a netx.ConnInfo.
// It panics if netConn does not contain a type supporting ConnInfo.
func ToConnInfo(netConn net.Conn) ConnInfo {
	switch t := netConn.(type) {
	case *Conn:
		return t
	default:
		panic("unsupported connection type")
	}
}

// Conn is an extended net.Conn that stores its accept time and counters for
// read/written bytes.
type Conn struct {
	net.Conn

	acceptTime   time.Time
	bytesRead    atomic.Uint64
	bytesWritten atomic.Uint64
}

// Read reads from the underlying net.Conn and updates the read bytes counter.
func (c *Conn) Read(b []byte) (int, error) {
	n, err := c.Conn.Read(b)
	c.bytesRead.Add(uint64(n))
	return n, err
}

// Write writes to the underlying net.Conn and updates the written bytes counter.
func (c *Conn) Write(b []byte) (int, error) {
	n, err := c.Conn.Write(b)
	c.bytesWritten.Add(uint64(n))
	return n, err
}

// ByteCounters returns the read and written byte counters, in this order.
func (c *Conn) ByteCounters() (uint64, uint64) {
	return c.bytesRead.Load(), c.bytesWritten.Load()
}

// AcceptTime returns this connection's accept time.
func (c *Conn) AcceptTime() time.Time {
	return c.acceptTime
}

// SetCC sets the congestion control algorithm on the underlying socket.
func (c *Conn) SetCC(cc string) error {
	rc, err := c.rawConn()
	if err != nil {
		return err
	}
	return congestion.Set(rc, cc)
}

// CC returns the congestion control algorithm of the underlying socket.
func (c *Conn) CC() (string, error) {
	rc, err := c.rawConn()
	if err != nil {
		return "", err
	}
	return congestion.Get(rc)
}

func (c *Conn) rawConn() (syscall.RawConn, error) {
	sc, ok := c.Conn.(syscall.Conn)
	if !ok {
		return nil, ErrNoRawConn
	}
	return sc.SyscallConn()
}
