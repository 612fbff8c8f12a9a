package model

import (
	"fmt"
	"time"
)

// Protocol identifies the transport under measurement.
type Protocol string

const (
	// ProtocolStream is the connection-oriented transport (TCP).
	ProtocolStream = Protocol("stream")
	// ProtocolDatagram is the connectionless transport (UDP).
	ProtocolDatagram = Protocol("datagram")
)

// Network returns the network name to use with the net package.
func (p Protocol) Network() string {
	switch p {
	case ProtocolStream:
		return "tcp"
	case ProtocolDatagram:
		return "udp"
	default:
		panic(fmt.Sprintf("invalid protocol: %s", string(p)))
	}
}

// Label is the human-readable label used in summaries.
func (p Protocol) Label() string {
	switch p {
	case ProtocolStream:
		return "TCP per-transaction"
	case ProtocolDatagram:
		return "UDP per-transaction"
	default:
		return string(p)
	}
}

// Transaction is a single successful request/echo exchange.
type Transaction struct {
	Protocol Protocol
	// Index is the transaction's ordinal within the run, starting at 0.
	Index int
	// Duration is the measured wall-clock duration of the transaction.
	Duration time.Duration
}

// FailureCause classifies why a transaction failed.
type FailureCause string

const (
	CauseTimeout    = FailureCause("timeout")
	CauseConnection = FailureCause("connection")
	CauseMismatch   = FailureCause("mismatch")
)

// Failure is a transaction that did not produce a valid sample.
type Failure struct {
	Protocol Protocol
	Index    int
	Cause    FailureCause
	// Err is the underlying error. It is not archived.
	Err error `json:"-" bigquery:"-"`
	// Message is Err's text, kept for archival.
	Message string
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s transaction #%d failed (%s): %v", f.Protocol,
		f.Index, f.Cause, f.Err)
}

// Unwrap returns the underlying error.
func (f Failure) Unwrap() error {
	return f.Err
}
