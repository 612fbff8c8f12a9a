package client

import (
	"fmt"

	"github.com/m-lab/txbench/pkg/stats"
	"github.com/m-lab/txbench/pkg/txbench/model"
)

// Emitter is an interface for emitting results.
type Emitter interface {
	// OnStart is called when a measurement loop starts.
	OnStart(proto model.Protocol, server string)
	// OnTransaction is called after each successful transaction.
	OnTransaction(tx model.Transaction)
	// OnFailure is called after each failed transaction.
	OnFailure(f model.Failure)
	// OnComplete is called when a measurement loop completes all its
	// transactions.
	OnComplete(proto model.Protocol, result *model.Result)
	// OnSummary is called with the summary of a protocol's durations.
	OnSummary(label string, summary stats.Summary)
	// OnFailures is called with the number of failed transactions.
	OnFailures(label string, failed, attempted int)
	// OnError is called on errors that prevent a summary.
	OnError(label string, err error)
	// OnDebug is called to print debug information.
	OnDebug(msg string)
}

// HumanReadable prints human-readable output to stdout.
// It can be configured to include debug output, too.
type HumanReadable struct {
	Debug bool
}

// OnStart prints the protocol and server address.
func (e HumanReadable) OnStart(proto model.Protocol, server string) {
	e.OnDebug(fmt.Sprintf("starting %s transactions (server: %s)", proto, server))
}

// OnTransaction prints each duration in debug mode only.
func (e HumanReadable) OnTransaction(tx model.Transaction) {
	e.OnDebug(fmt.Sprintf("%s #%d: %v", tx.Protocol, tx.Index, tx.Duration))
}

// OnFailure prints the failed transaction.
func (HumanReadable) OnFailure(f model.Failure) {
	fmt.Printf("%s transaction #%d failed (%s): %v\n", f.Protocol, f.Index,
		f.Cause, f.Err)
}

// OnComplete is called when a measurement loop completes.
func (e HumanReadable) OnComplete(proto model.Protocol, result *model.Result) {
	e.OnDebug(fmt.Sprintf("%s complete: %d samples, %d failures", proto,
		len(result.Durations), len(result.Failures)))
}

// OnSummary prints the summary line.
func (HumanReadable) OnSummary(label string, summary stats.Summary) {
	fmt.Println(summary.Line(label))
}

// OnFailures prints the failure count if there were any failures.
func (HumanReadable) OnFailures(label string, failed, attempted int) {
	if failed == 0 {
		return
	}
	fmt.Printf("%s: failed=%d of %d\n", label, failed, attempted)
}

// OnError prints errors.
func (HumanReadable) OnError(label string, err error) {
	fmt.Printf("%s: %v\n", label, err)
}

// OnDebug is called to print debug information.
func (e HumanReadable) OnDebug(msg string) {
	if e.Debug {
		fmt.Printf("DEBUG: %s\n", msg)
	}
}

// discard is the Emitter used when none is configured.
type discard struct{}

func (discard) OnStart(model.Protocol, string)           {}
func (discard) OnTransaction(model.Transaction)          {}
func (discard) OnFailure(model.Failure)                  {}
func (discard) OnComplete(model.Protocol, *model.Result) {}
func (discard) OnSummary(string, stats.Summary)          {}
func (discard) OnFailures(string, int, int)              {}
func (discard) OnError(string, error)                    {}
func (discard) OnDebug(string)                           {}

// Checks that HumanReadable implements Emitter.
var _ Emitter = &HumanReadable{}
