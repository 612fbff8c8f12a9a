package client

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/m-lab/txbench/internal/netx"
	"github.com/m-lab/txbench/pkg/txbench/model"
	"github.com/m-lab/txbench/pkg/txbench/spec"
)

// ErrNotOpen is returned by Transact when the transactor has not been opened.
var ErrNotOpen = errors.New("transactor is not open")

// Transactor performs timed request/echo transactions against one server.
type Transactor interface {
	Protocol() model.Protocol
	// Addr is the server address.
	Addr() string
	// Open prepares any state shared across transactions.
	Open(ctx context.Context) error
	// Transact sends payload and waits for the echo. It returns the elapsed
	// time and the echoed bytes, which are valid until the next call.
	Transact(ctx context.Context, payload []byte) (time.Duration, []byte, error)
	Close() error
}

// StreamClient opens a new TCP connection for every transaction. The timed
// interval covers connect, send, receive and close.
//
// The echo is read with a single Read call. This matches the measured
// exchange for small payloads on loopback or LAN paths, but it is not a
// reliable read loop: an echo split across segments is reported as a
// mismatch.
type StreamClient struct {
	addr    string
	timeout time.Duration
	dialer  *net.Dialer
	buf     []byte
}

// NewStreamClient returns a StreamClient for the server at addr.
func NewStreamClient(addr string, config Config) *StreamClient {
	return &StreamClient{
		addr:    addr,
		timeout: config.Timeout,
		dialer:  netx.NewDialer(config.Timeout, config.CongestionControl),
		buf:     make([]byte, spec.ReadBufferSize),
	}
}

// Protocol returns model.ProtocolStream.
func (c *StreamClient) Protocol() model.Protocol {
	return model.ProtocolStream
}

// Addr returns the server address.
func (c *StreamClient) Addr() string {
	return c.addr
}

// Open is a no-op: stream transactions do not share a connection.
func (c *StreamClient) Open(context.Context) error {
	return nil
}

// Transact runs a single connect/send/receive/close transaction.
func (c *StreamClient) Transact(ctx context.Context, payload []byte) (time.Duration, []byte, error) {
	start := time.Now()
	deadline := start.Add(c.timeout)

	d := *c.dialer
	d.Deadline = deadline
	conn, err := d.DialContext(ctx, c.Protocol().Network(), c.addr)
	if err != nil {
		return 0, nil, err
	}
	tc := conn.(*net.TCPConn)
	// Small payloads must not be delayed by Nagle's algorithm.
	if err = tc.SetNoDelay(true); err != nil {
		tc.Close()
		return 0, nil, err
	}
	if err = tc.SetDeadline(deadline); err != nil {
		tc.Close()
		return 0, nil, err
	}

	_, err = tc.Write(payload)
	if err != nil {
		tc.Close()
		return 0, nil, err
	}
	n, err := tc.Read(c.buf)
	if err != nil {
		tc.Close()
		return 0, nil, err
	}
	err = tc.Close()
	elapsed := time.Since(start)
	if err != nil {
		return 0, nil, err
	}
	return elapsed, c.buf[:n], nil
}

// Close is a no-op.
func (c *StreamClient) Close() error {
	return nil
}

// DatagramClient uses a single UDP socket until a transaction fails. The
// timed interval covers send and receive only.
//
// After a failure the socket is replaced by one bound to a different
// ephemeral port, so that a late echo of the failed transaction lands on a
// closed port instead of being read as the next transaction's echo.
type DatagramClient struct {
	addr    string
	timeout time.Duration
	dialer  *net.Dialer
	buf     []byte

	conn net.Conn
	// stale is set when a transaction failed and conn may still receive
	// its echo.
	stale bool
}

// NewDatagramClient returns a DatagramClient for the server at addr.
func NewDatagramClient(addr string, config Config) *DatagramClient {
	return &DatagramClient{
		addr:    addr,
		timeout: config.Timeout,
		dialer:  netx.NewDialer(config.Timeout, ""),
		buf:     make([]byte, spec.ReadBufferSize),
	}
}

// Protocol returns model.ProtocolDatagram.
func (c *DatagramClient) Protocol() model.Protocol {
	return model.ProtocolDatagram
}

// Addr returns the server address.
func (c *DatagramClient) Addr() string {
	return c.addr
}

// Open creates the UDP socket. No packet is exchanged.
func (c *DatagramClient) Open(ctx context.Context) error {
	conn, err := c.dialer.DialContext(ctx, c.Protocol().Network(), c.addr)
	if err != nil {
		return err
	}
	c.conn = conn
	return nil
}

// LocalAddr returns the address of the current socket, or nil if the client
// is not open.
func (c *DatagramClient) LocalAddr() net.Addr {
	if c.conn == nil {
		return nil
	}
	return c.conn.LocalAddr()
}

// Transact sends one datagram and waits for its echo.
func (c *DatagramClient) Transact(ctx context.Context, payload []byte) (time.Duration, []byte, error) {
	if c.conn == nil {
		return 0, nil, ErrNotOpen
	}
	if c.stale {
		if err := c.reopen(ctx); err != nil {
			return 0, nil, err
		}
	}

	start := time.Now()
	err := c.conn.SetDeadline(start.Add(c.timeout))
	if err != nil {
		return 0, nil, err
	}
	_, err = c.conn.Write(payload)
	if err != nil {
		c.stale = true
		return 0, nil, err
	}
	n, err := c.conn.Read(c.buf)
	elapsed := time.Since(start)
	if err != nil {
		c.stale = true
		return 0, nil, err
	}
	return elapsed, c.buf[:n], nil
}

// reopen replaces the socket. The new one is dialed before the old one is
// closed, so the kernel cannot hand out the same local port.
func (c *DatagramClient) reopen(ctx context.Context) error {
	old := c.conn
	if err := c.Open(ctx); err != nil {
		return err
	}
	old.Close()
	c.stale = false
	return nil
}

// Close closes the UDP socket.
func (c *DatagramClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
