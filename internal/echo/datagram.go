package echo

import (
	"context"
	"net"

	"github.com/charmbracelet/log"
	"github.com/m-lab/txbench/internal/metrics"
	"github.com/m-lab/txbench/internal/netx"
	"github.com/m-lab/txbench/pkg/txbench/model"
	"github.com/m-lab/txbench/pkg/txbench/spec"
)

var datagramLabel = string(model.ProtocolDatagram)

// DatagramServer sends every non-empty datagram it receives back to its
// sender.
type DatagramServer struct {
	addr    string
	bufSize int

	conn  *net.UDPConn
	ready chan struct{}
}

// NewDatagramServer returns a DatagramServer that will bind to addr.
func NewDatagramServer(addr string) *DatagramServer {
	return &DatagramServer{
		addr:    addr,
		bufSize: spec.ReadBufferSize,
		ready:   make(chan struct{}),
	}
}

// Listen binds the UDP socket and closes the Ready channel.
func (s *DatagramServer) Listen(ctx context.Context) error {
	conn, err := netx.ListenUDP(ctx, s.addr)
	if err != nil {
		return err
	}
	s.conn = conn
	close(s.ready)
	log.Info("Datagram echo server listening", "addr", conn.LocalAddr())
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *DatagramServer) Addr() net.Addr {
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// Ready is closed once the socket is bound.
func (s *DatagramServer) Ready() <-chan struct{} {
	return s.ready
}

// Serve is the main packet processing loop. It runs until ctx is canceled.
func (s *DatagramServer) Serve(ctx context.Context) error {
	if s.conn == nil {
		return ErrNotListening
	}
	stop := context.AfterFunc(ctx, func() {
		s.conn.Close()
	})
	defer stop()

	buf := make([]byte, s.bufSize)
	for {
		n, addr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if closed(ctx, err) {
				log.Info("Datagram echo server stopped", "addr", s.conn.LocalAddr())
				return nil
			}
			log.Debug("error while reading UDP packet", "err", err)
			metrics.EchoErrors.WithLabelValues(datagramLabel).Inc()
			continue
		}
		if n == 0 {
			continue
		}
		metrics.EchoRequests.WithLabelValues(datagramLabel).Inc()
		_, err = s.conn.WriteToUDP(buf[:n], addr)
		if err != nil {
			log.Debug("error while writing UDP packet", "addr", addr, "err", err)
			metrics.EchoErrors.WithLabelValues(datagramLabel).Inc()
			continue
		}
		metrics.EchoBytes.WithLabelValues(datagramLabel).Add(float64(n))
	}
}
