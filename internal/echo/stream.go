package echo

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/m-lab/txbench/internal/metrics"
	"github.com/m-lab/txbench/internal/netx"
	"github.com/m-lab/txbench/pkg/txbench/model"
	"github.com/m-lab/txbench/pkg/txbench/spec"
)

var streamLabel = string(model.ProtocolStream)

// StreamServer accepts connections and, for each one, reads a single
// payload, writes it back and closes the connection.
type StreamServer struct {
	// CongestionControl, if set, is applied to every accepted connection
	// before the echo is written.
	CongestionControl string

	addr    string
	bufSize int

	ln    *netx.Listener
	ready chan struct{}
	conns sync.WaitGroup
}

// NewStreamServer returns a StreamServer that will bind to addr.
func NewStreamServer(addr string) *StreamServer {
	return &StreamServer{
		addr:    addr,
		bufSize: spec.ReadBufferSize,
		ready:   make(chan struct{}),
	}
}

// Listen binds the TCP listener and closes the Ready channel.
func (s *StreamServer) Listen(ctx context.Context) error {
	ln, err := netx.ListenTCP(ctx, s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	close(s.ready)
	log.Info("Stream echo server listening", "addr", ln.Addr())
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *StreamServer) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Ready is closed once the listener is bound.
func (s *StreamServer) Ready() <-chan struct{} {
	return s.ready
}

// Serve accepts connections until ctx is canceled. Each connection is
// handled in its own goroutine; Serve waits for in-flight connections before
// returning.
func (s *StreamServer) Serve(ctx context.Context) error {
	if s.ln == nil {
		return ErrNotListening
	}
	stop := context.AfterFunc(ctx, func() {
		s.ln.Close()
	})
	defer stop()
	defer s.conns.Wait()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if closed(ctx, err) {
				log.Info("Stream echo server stopped", "addr", s.ln.Addr())
				return nil
			}
			// Errors such as EMFILE or ECONNABORTED only affect one pending
			// connection.
			log.Debug("accept failed", "err", err)
			metrics.EchoErrors.WithLabelValues(streamLabel).Inc()
			time.Sleep(5 * time.Millisecond)
			continue
		}
		metrics.EchoRequests.WithLabelValues(streamLabel).Inc()
		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handle(ctx, conn)
		}()
	}
}

// handle reads once from conn and, if any bytes were read, writes exactly
// those bytes back.
func (s *StreamServer) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	// Unblock the read on shutdown.
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	defer stop()

	ci := netx.ToConnInfo(conn)
	if s.CongestionControl != "" {
		if err := ci.SetCC(s.CongestionControl); err != nil {
			log.Debug("cannot set congestion control", "remote", conn.RemoteAddr(),
				"cc", s.CongestionControl, "err", err)
		}
	}

	buf := make([]byte, s.bufSize)
	n, err := conn.Read(buf)
	if n == 0 {
		if err != nil && !closed(ctx, err) && !isEOF(err) {
			log.Debug("read failed", "remote", conn.RemoteAddr(), "err", err)
			metrics.EchoErrors.WithLabelValues(streamLabel).Inc()
		}
		return
	}
	_, err = conn.Write(buf[:n])
	if err != nil {
		log.Debug("write failed", "remote", conn.RemoteAddr(), "err", err)
		metrics.EchoErrors.WithLabelValues(streamLabel).Inc()
		return
	}
	metrics.EchoBytes.WithLabelValues(streamLabel).Add(float64(n))

	if log.GetLevel() <= log.DebugLevel {
		read, written := ci.ByteCounters()
		cc, err := ci.CC()
		if err != nil {
			cc = "unknown"
		}
		log.Debug("echoed", "remote", conn.RemoteAddr(), "read", read,
			"written", written, "cc", cc, "elapsed", time.Since(ci.AcceptTime()))
	}
}
