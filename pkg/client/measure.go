package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/m-lab/go/memoryless"
	"github.com/m-lab/txbench/internal/metrics"
	"github.com/m-lab/txbench/pkg/txbench/model"
)

var (
	// ErrEchoMismatch is returned when the echoed bytes differ from the
	// payload.
	ErrEchoMismatch = errors.New("echo does not match payload")
	// ErrAborted wraps the failure that stopped a loop under PolicyAbort.
	ErrAborted = errors.New("measurement aborted")
	// ErrInvalidRepeat is returned when Repeat is less than one.
	ErrInvalidRepeat = errors.New("repeat count must be at least 1")
)

// Measure runs config.Repeat sequential transactions through t. Each
// transaction starts after the previous one completed and config.Pacing
// elapsed.
//
// Under PolicySkip, failed transactions are recorded in Result.Failures and
// the loop continues. Under PolicyAbort, the loop stops at the first failure
// and the returned error wraps both ErrAborted and the model.Failure. The
// returned Result is never nil.
func Measure(ctx context.Context, t Transactor, payload []byte, config Config) (*model.Result, error) {
	proto := t.Protocol()
	result := &model.Result{
		Protocol:  proto,
		Durations: make([]time.Duration, 0, max(config.Repeat, 0)),
	}
	if config.Repeat < 1 {
		return result, ErrInvalidRepeat
	}
	emitter := config.Emitter
	if emitter == nil {
		emitter = discard{}
	}

	emitter.OnStart(proto, t.Addr())
	if err := t.Open(ctx); err != nil {
		return result, fmt.Errorf("cannot open %s transactor: %w", proto, err)
	}
	defer t.Close()

	histogram := metrics.TransactionDuration.WithLabelValues(string(proto))
	for i := 0; i < config.Repeat; i++ {
		if i > 0 {
			if err := pace(ctx, config.Pacing); err != nil {
				return result, err
			}
		}
		result.Attempted++

		elapsed, echo, err := t.Transact(ctx, payload)
		if err == nil && !bytes.Equal(echo, payload) {
			err = fmt.Errorf("%w: sent %d bytes, received %d", ErrEchoMismatch,
				len(payload), len(echo))
		}
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			f := model.Failure{
				Protocol: proto,
				Index:    i,
				Cause:    classify(err),
				Err:      err,
			}
			result.Failures = append(result.Failures, f)
			metrics.TransactionFailures.WithLabelValues(string(proto), string(f.Cause)).Inc()
			log.Warn("transaction failed", "protocol", proto, "index", i,
				"cause", f.Cause, "err", err)
			emitter.OnFailure(f)
			if config.Policy != PolicySkip {
				return result, fmt.Errorf("%w: %w", ErrAborted, f)
			}
			continue
		}

		result.Durations = append(result.Durations, elapsed)
		histogram.Observe(elapsed.Seconds())
		emitter.OnTransaction(model.Transaction{
			Protocol: proto,
			Index:    i,
			Duration: elapsed,
		})
	}
	emitter.OnComplete(proto, result)
	return result, nil
}

// pace waits for d or until ctx is done. The timer starts when pace is
// called, i.e. after the previous transaction completed.
func pace(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer, err := memoryless.NewTimer(memoryless.Config{
		Expected: d,
		Min:      d,
		Max:      d,
	})
	if err != nil {
		return err
	}
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// classify maps a transaction error to a FailureCause.
func classify(err error) model.FailureCause {
	if errors.Is(err, ErrEchoMismatch) {
		return model.CauseMismatch
	}
	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return model.CauseTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return model.CauseTimeout
	}
	return model.CauseConnection
}
