package client

import (
	"fmt"
	"time"
)

// Policy decides what happens to the measurement loop when a transaction
// fails.
type Policy string

const (
	// PolicyAbort stops the loop at the first failed transaction.
	PolicyAbort = Policy("abort")
	// PolicySkip drops the failed sample and continues with the next
	// transaction.
	PolicySkip = Policy("skip")
)

// Policies lists the valid Policy values.
var Policies = []string{string(PolicyAbort), string(PolicySkip)}

// ParsePolicy converts s to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyAbort, PolicySkip:
		return Policy(s), nil
	default:
		return "", fmt.Errorf("invalid failure policy %q", s)
	}
}

// Config is the configuration for a measurement loop.
type Config struct {
	// Repeat is the number of transactions to run.
	Repeat int

	// Timeout bounds each transaction, connection setup included.
	Timeout time.Duration

	// Pacing is the delay between the end of a transaction and the start of
	// the next one.
	Pacing time.Duration

	// Policy is the failure policy.
	Policy Policy

	// CongestionControl is the congestion control algorithm to set on stream
	// sockets. If empty, the system default is used.
	CongestionControl string

	// Emitter is the interface used to emit the results of the test. It can
	// be overridden to provide a custom output.
	Emitter Emitter
}
