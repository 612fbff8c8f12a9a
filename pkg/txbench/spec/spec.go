package spec

import "time"

const (
	// DefaultHost is the default bind/target host.
	DefaultHost = "127.0.0.1"

	// StreamPort is the TCP port used by the stream echo server.
	StreamPort = 57211
	// DatagramPort is the UDP port used by the datagram echo server.
	DatagramPort = 57212

	// DefaultPayloadSize is the default payload size in bytes. A small
	// payload makes the handshake cost dominate the stream transaction.
	DefaultPayloadSize = 32
	// MaxPayloadSize is the largest payload that fits in a single IPv4 UDP
	// datagram.
	MaxPayloadSize = 65507
	// DefaultRepeat is the default number of transactions per protocol.
	DefaultRepeat = 400

	// ReadBufferSize is the size of the single read performed by servers and
	// clients.
	ReadBufferSize = 65536

	// TransactionTimeout bounds connect, send and receive of a transaction.
	TransactionTimeout = 2 * time.Second
	// Pacing is the delay between the end of a transaction and the start of
	// the next one.
	Pacing = 1 * time.Millisecond
	// ReadinessTimeout is the maximum time to wait for both servers to be
	// bound before measuring.
	ReadinessTimeout = 300 * time.Millisecond

	// Datatype is the datatype name used for archival data files.
	Datatype = "txbench"
)
