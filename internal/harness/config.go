package harness

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/m-lab/txbench/pkg/client"
	"github.com/m-lab/txbench/pkg/txbench/spec"
)

// Config is the configuration of a run. It is built once, validated, and
// then passed by value to every component.
type Config struct {
	// Host is the bind address of the local servers and the target of the
	// clients.
	Host string
	// StreamPort and DatagramPort are the server ports. With LocalServers,
	// zero picks a free port.
	StreamPort   int
	DatagramPort int

	// PayloadSize is the payload length in bytes.
	PayloadSize int
	// Repeat is the number of transactions per protocol.
	Repeat int

	Timeout          time.Duration
	Pacing           time.Duration
	ReadinessTimeout time.Duration

	Policy            client.Policy
	CongestionControl string

	// LocalServers starts both echo servers in-process. When false, the
	// clients measure against servers already running on Host.
	LocalServers bool

	Emitter client.Emitter
}

// DefaultConfig returns a Config with the default values.
func DefaultConfig() Config {
	return Config{
		Host:             spec.DefaultHost,
		StreamPort:       spec.StreamPort,
		DatagramPort:     spec.DatagramPort,
		PayloadSize:      spec.DefaultPayloadSize,
		Repeat:           spec.DefaultRepeat,
		Timeout:          spec.TransactionTimeout,
		Pacing:           spec.Pacing,
		ReadinessTimeout: spec.ReadinessTimeout,
		Policy:           client.PolicyAbort,
		LocalServers:     true,
	}
}

// ErrInvalidConfig is wrapped by all the errors returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: empty host", ErrInvalidConfig)
	}
	if !validHost(c.Host) {
		return fmt.Errorf("%w: host %q is neither an IP address nor a host name",
			ErrInvalidConfig, c.Host)
	}
	if c.PayloadSize < 1 || c.PayloadSize > spec.MaxPayloadSize {
		return fmt.Errorf("%w: payload size must be in [1, %d], got %d",
			ErrInvalidConfig, spec.MaxPayloadSize, c.PayloadSize)
	}
	if c.Repeat < 1 {
		return fmt.Errorf("%w: repeat must be at least 1, got %d",
			ErrInvalidConfig, c.Repeat)
	}
	minPort := 1
	if c.LocalServers {
		minPort = 0
	}
	for _, p := range []int{c.StreamPort, c.DatagramPort} {
		if p < minPort || p > 65535 {
			return fmt.Errorf("%w: invalid port %d", ErrInvalidConfig, p)
		}
	}
	if c.StreamPort != 0 && c.StreamPort == c.DatagramPort {
		return fmt.Errorf("%w: stream and datagram ports must differ",
			ErrInvalidConfig)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	if c.Pacing < 0 {
		return fmt.Errorf("%w: pacing must not be negative", ErrInvalidConfig)
	}
	if c.LocalServers && c.ReadinessTimeout <= 0 {
		return fmt.Errorf("%w: readiness timeout must be positive", ErrInvalidConfig)
	}
	if _, err := client.ParsePolicy(string(c.Policy)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// validHost reports whether h is an IP address (IPv6 zones allowed) or a
// syntactically valid host name. The last label of a host name must start
// with a letter, so malformed dotted quads are rejected.
func validHost(h string) bool {
	ip, _, _ := strings.Cut(h, "%")
	if net.ParseIP(ip) != nil {
		return strings.Contains(ip, ":") || ip == h
	}
	if len(h) > 253 {
		return false
	}
	labels := strings.Split(strings.TrimSuffix(h, "."), ".")
	for _, l := range labels {
		if len(l) == 0 || len(l) > 63 || l[0] == '-' || l[len(l)-1] == '-' {
			return false
		}
		for _, r := range l {
			if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-') {
				return false
			}
		}
	}
	last := labels[len(labels)-1]
	return last[0] >= 'a' && last[0] <= 'z' || last[0] >= 'A' && last[0] <= 'Z'
}

// StreamAddr returns the configured stream server address.
func (c Config) StreamAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.StreamPort))
}

// DatagramAddr returns the configured datagram server address.
func (c Config) DatagramAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.DatagramPort))
}

func (c Config) clientConfig() client.Config {
	return client.Config{
		Repeat:            c.Repeat,
		Timeout:           c.Timeout,
		Pacing:            c.Pacing,
		Policy:            c.Policy,
		CongestionControl: c.CongestionControl,
		Emitter:           c.Emitter,
	}
}
