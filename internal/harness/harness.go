// Package harness runs the stream and datagram measurements one after the
// other against a pair of echo servers, and reports the results.
package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/m-lab/txbench/internal/echo"
	"github.com/m-lab/txbench/pkg/client"
	"github.com/m-lab/txbench/pkg/stats"
	"github.com/m-lab/txbench/pkg/txbench/model"
)

// ErrNotReady is returned when the servers are not bound within the
// readiness timeout.
var ErrNotReady = errors.New("echo servers not ready")

// Result is the outcome of a run.
type Result struct {
	// ID uniquely identifies the run.
	ID          string
	Config      Config
	StartTime   time.Time
	EndTime     time.Time
	PayloadSize int

	// Stream and Datagram are nil if the corresponding loop never started.
	Stream   *model.Result
	Datagram *model.Result
}

// Run starts the local echo servers (if configured), waits until both are
// bound, and measures the stream and then the datagram transactions. The
// servers are stopped before Run returns.
//
// On error, the returned Result holds whatever was measured before the
// failure.
func Run(ctx context.Context, config Config) (*Result, error) {
	result := &Result{
		ID:          uuid.NewString(),
		Config:      config,
		StartTime:   time.Now(),
		PayloadSize: config.PayloadSize,
	}
	if err := config.Validate(); err != nil {
		return result, err
	}
	defer func() {
		result.EndTime = time.Now()
	}()

	streamAddr, datagramAddr := config.StreamAddr(), config.DatagramAddr()
	if config.LocalServers {
		srv := &servers{
			stream:   echo.NewStreamServer(streamAddr),
			datagram: echo.NewDatagramServer(datagramAddr),
		}
		srv.stream.CongestionControl = config.CongestionControl
		err := srv.start(ctx, config.ReadinessTimeout)
		defer srv.stop()
		if err != nil {
			return result, err
		}
		streamAddr = srv.stream.Addr().String()
		datagramAddr = srv.datagram.Addr().String()
	}

	payload := bytes.Repeat([]byte("A"), config.PayloadSize)
	cc := config.clientConfig()

	// The two loops never overlap, so that one protocol's traffic cannot
	// perturb the other's latency.
	var err error
	log.Info("Measuring stream transactions", "server", streamAddr, "repeat", config.Repeat)
	result.Stream, err = client.Measure(ctx, client.NewStreamClient(streamAddr, cc), payload, cc)
	if err != nil {
		return result, fmt.Errorf("stream measurement failed: %w", err)
	}
	log.Info("Measuring datagram transactions", "server", datagramAddr, "repeat", config.Repeat)
	result.Datagram, err = client.Measure(ctx, client.NewDatagramClient(datagramAddr, cc), payload, cc)
	if err != nil {
		return result, fmt.Errorf("datagram measurement failed: %w", err)
	}
	return result, nil
}

// servers owns the lifetime of the two echo servers.
type servers struct {
	stream   *echo.StreamServer
	datagram *echo.DatagramServer

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// start binds and serves both servers concurrently and waits until both are
// ready, one fails to bind, or readiness times out.
func (s *servers) start(ctx context.Context, readiness time.Duration) error {
	srvCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	all := []echo.Server{s.stream, s.datagram}
	errc := make(chan error, len(all))
	for _, srv := range all {
		s.wg.Add(1)
		go func(srv echo.Server) {
			defer s.wg.Done()
			if err := srv.Listen(srvCtx); err != nil {
				errc <- err
				return
			}
			if err := srv.Serve(srvCtx); err != nil {
				log.Error("echo server stopped", "err", err)
			}
		}(srv)
	}

	timer := time.NewTimer(readiness)
	defer timer.Stop()
	for _, srv := range all {
		select {
		case <-srv.Ready():
			continue
		default:
		}
		select {
		case <-srv.Ready():
		case err := <-errc:
			return fmt.Errorf("cannot start echo server: %w", err)
		case <-timer.C:
			return fmt.Errorf("%w after %v", ErrNotReady, readiness)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// stop cancels both servers and waits for them to release their sockets.
func (s *servers) stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
}

// Report emits the summary of each protocol whose loop completed, followed
// by its failure count. A loop that was aborted or interrupted is left out,
// so Report is also meaningful for a Result returned with an error.
func Report(result *Result, emitter client.Emitter) {
	for _, r := range []*model.Result{result.Stream, result.Datagram} {
		if !completed(r, result.Config) {
			continue
		}
		label := r.Protocol.Label()
		summary, err := stats.Summarize(r.Durations)
		if err != nil {
			emitter.OnError(label, err)
		} else {
			emitter.OnSummary(label, summary)
		}
		emitter.OnFailures(label, len(r.Failures), r.Attempted)
	}
}

// completed reports whether r holds every transaction of its loop.
func completed(r *model.Result, config Config) bool {
	if r == nil || r.Attempted < config.Repeat {
		return false
	}
	return config.Policy == client.PolicySkip || len(r.Failures) == 0
}

// Archive converts result to its archival form.
func Archive(result *Result) *model.ArchivalData {
	data := model.NewArchivalData(result.ID)
	data.Host = result.Config.Host
	data.PayloadSize = result.PayloadSize
	data.Repeat = result.Config.Repeat
	data.Policy = string(result.Config.Policy)
	data.StartTime = result.StartTime
	data.EndTime = result.EndTime
	data.Stream = archive(result.Stream, model.ProtocolStream)
	data.Datagram = archive(result.Datagram, model.ProtocolDatagram)
	return data
}

func archive(r *model.Result, proto model.Protocol) model.ProtocolResult {
	if r == nil {
		return model.ProtocolResult{Protocol: string(proto)}
	}
	var summary model.Summary
	if s, err := stats.Summarize(r.Durations); err == nil {
		summary = s.Model()
	}
	return r.Archive(summary)
}
