// Package stats reduces sequences of transaction durations to descriptive
// statistics.
package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/m-lab/txbench/pkg/txbench/model"
)

// ErrEmpty is returned when summarizing an empty sequence.
var ErrEmpty = errors.New("cannot summarize an empty sequence")

// Summary holds the descriptive statistics of a duration sequence. Mean,
// Median and StdDev are expressed in seconds.
type Summary struct {
	Mean   float64
	Median float64
	// StdDev is the population standard deviation (divisor N).
	StdDev float64
	Count  int
}

// Summarize computes mean, median and population standard deviation of
// durations. The input is not modified. The result does not depend on the
// order of the input.
func Summarize(durations []time.Duration) (Summary, error) {
	n := len(durations)
	if n == 0 {
		return Summary{}, ErrEmpty
	}

	sorted := make([]time.Duration, n)
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	// Integer nanoseconds sum exactly, so the mean is independent of order.
	var sum int64
	for _, d := range sorted {
		sum += int64(d)
	}
	meanNs := float64(sum) / float64(n)

	var median float64
	if n%2 == 1 {
		median = float64(sorted[n/2])
	} else {
		median = (float64(sorted[n/2-1]) + float64(sorted[n/2])) / 2
	}

	var sq float64
	for _, d := range sorted {
		delta := float64(d) - meanNs
		sq += delta * delta
	}
	std := math.Sqrt(sq / float64(n))

	return Summary{
		Mean:   meanNs / float64(time.Second),
		Median: median / float64(time.Second),
		StdDev: std / float64(time.Second),
		Count:  n,
	}, nil
}

// Line formats the summary as a single human-readable line.
func (s Summary) Line(label string) string {
	return fmt.Sprintf("%s: mean=%.6e s, median=%.6e s, std=%.6e s, n=%d",
		label, s.Mean, s.Median, s.StdDev, s.Count)
}

// Model converts the summary to its archival form.
func (s Summary) Model() model.Summary {
	return model.Summary{
		Mean:   s.Mean,
		Median: s.Median,
		StdDev: s.StdDev,
		Count:  s.Count,
	}
}

// Quantile returns the q-quantile (0 <= q <= 1) of durations, linearly
// interpolating between closest ranks. It returns ErrEmpty for an empty
// sequence.
func Quantile(durations []time.Duration, q float64) (time.Duration, error) {
	n := len(durations)
	if n == 0 {
		return 0, ErrEmpty
	}
	if q < 0 || q > 1 {
		return 0, fmt.Errorf("invalid quantile %v", q)
	}
	sorted := make([]time.Duration, n)
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	v := float64(sorted[lo]) + frac*float64(sorted[hi]-sorted[lo])
	return time.Duration(math.Round(v)), nil
}
