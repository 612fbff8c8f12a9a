package model

import (
	"time"

	"github.com/m-lab/txbench/pkg/version"
)

// Result is the outcome of one client's measurement loop.
type Result struct {
	Protocol Protocol
	// Durations holds one entry per successful transaction, in creation
	// order.
	Durations []time.Duration
	// Failures holds one entry per failed transaction, in creation order.
	Failures []Failure
	// Attempted is the number of transactions started.
	Attempted int
}

// Summary mirrors stats.Summary in archival form.
type Summary struct {
	// Mean, Median and StdDev are in seconds.
	Mean   float64
	Median float64
	StdDev float64
	Count  int
}

// ProtocolResult is the archival form of a Result.
type ProtocolResult struct {
	Protocol string
	// DurationsNs are the measured durations in nanoseconds, in creation
	// order.
	DurationsNs []int64
	Failures    []Failure
	Attempted   int
	// Summary has Count == 0 if no transaction succeeded.
	Summary Summary
}

// ArchivalData is the archival data format for a txbench run.
type ArchivalData struct {
	// GitShortCommit is the Git commit (short form) of the running code.
	GitShortCommit string
	// Version is the symbolic version (if any) of the running code.
	Version string
	// ID is the unique identifier for this run.
	ID string

	Host        string
	PayloadSize int
	Repeat      int
	Policy      string

	// StartTime is the time the first server was started.
	StartTime time.Time
	// EndTime is the time the last client finished.
	EndTime time.Time

	Stream   ProtocolResult
	Datagram ProtocolResult
}

// NewArchivalData returns an ArchivalData with the build metadata set.
func NewArchivalData(id string) *ArchivalData {
	return &ArchivalData{
		GitShortCommit: version.GitShortCommit,
		Version:        version.Version,
		ID:             id,
	}
}

// Archive converts a Result to its archival form.
func (r *Result) Archive(summary Summary) ProtocolResult {
	ns := make([]int64, len(r.Durations))
	for i, d := range r.Durations {
		ns[i] = d.Nanoseconds()
	}
	failures := make([]Failure, len(r.Failures))
	for i, f := range r.Failures {
		if f.Err != nil {
			f.Message = f.Err.Error()
		}
		failures[i] = f
	}
	return ProtocolResult{
		Protocol:    string(r.Protocol),
		DurationsNs: ns,
		Failures:    failures,
		Attempted:   r.Attempted,
		Summary:     summary,
	}
}
