// Package render draws a text comparison of the stream and datagram
// duration sequences: a box plot on a shared axis and a mean±std bar chart.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/m-lab/txbench/pkg/stats"
)

const width = 50

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Width(22)
	boxStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	axisStyle  = lipgloss.NewStyle().Faint(true)
)

// Series is a labeled duration sequence.
type Series struct {
	Label     string
	Durations []time.Duration
}

type box struct {
	min, p25, median, p75, max time.Duration
}

func newBox(d []time.Duration) (box, error) {
	var (
		b   box
		err error
	)
	for _, q := range []struct {
		dst *time.Duration
		q   float64
	}{
		{&b.min, 0}, {&b.p25, 0.25}, {&b.median, 0.5}, {&b.p75, 0.75}, {&b.max, 1},
	} {
		*q.dst, err = stats.Quantile(d, q.q)
		if err != nil {
			return box{}, err
		}
	}
	return b, nil
}

// Comparison writes both charts for the given series to w.
func Comparison(w io.Writer, payloadSize int, series ...Series) error {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf(
		"Per-Transaction RTT (echo), payload=%d bytes", payloadSize)))
	sb.WriteString("\n")
	sb.WriteString(boxPlot(series))
	sb.WriteString("\n")
	sb.WriteString(titleStyle.Render("Per-Transaction Mean ± Std"))
	sb.WriteString("\n")
	sb.WriteString(meanStd(series))
	_, err := io.WriteString(w, sb.String())
	return err
}

// boxPlot draws min/p25/median/p75/max of each series on a shared axis.
func boxPlot(series []Series) string {
	var lo, hi time.Duration
	boxes := make([]*box, len(series))
	first := true
	for i, s := range series {
		b, err := newBox(s.Durations)
		if err != nil {
			continue
		}
		boxes[i] = &b
		if first || b.min < lo {
			lo = b.min
		}
		if first || b.max > hi {
			hi = b.max
		}
		first = false
	}

	var sb strings.Builder
	for i, s := range series {
		sb.WriteString(labelStyle.Render(s.Label))
		b := boxes[i]
		if b == nil {
			sb.WriteString("(no samples)\n")
			continue
		}
		col := func(d time.Duration) int { return scale(d, lo, hi) }
		row := []rune(strings.Repeat(" ", width))
		for c := col(b.min); c <= col(b.max); c++ {
			row[c] = '─'
		}
		for c := col(b.p25); c <= col(b.p75); c++ {
			row[c] = '█'
		}
		row[col(b.min)] = '├'
		row[col(b.max)] = '┤'
		row[col(b.median)] = '┃'
		sb.WriteString(boxStyle.Render(string(row)))
		sb.WriteString("\n")
	}
	sb.WriteString(labelStyle.Render(""))
	sb.WriteString(axisStyle.Render(axis(lo, hi)))
	sb.WriteString("\n")
	return sb.String()
}

// meanStd draws a bar per series proportional to its mean, with the
// standard deviation as a whisker.
func meanStd(series []Series) string {
	summaries := make([]*stats.Summary, len(series))
	var top float64
	for i, s := range series {
		sum, err := stats.Summarize(s.Durations)
		if err != nil {
			continue
		}
		summaries[i] = &sum
		if v := sum.Mean + sum.StdDev; v > top {
			top = v
		}
	}

	var sb strings.Builder
	for i, s := range series {
		sb.WriteString(labelStyle.Render(s.Label))
		sum := summaries[i]
		if sum == nil {
			sb.WriteString("(no samples)\n")
			continue
		}
		bar := cells(sum.Mean, top)
		whiskerLo := cells(sum.Mean-sum.StdDev, top)
		whiskerHi := cells(sum.Mean+sum.StdDev, top)
		row := []rune(strings.Repeat(" ", width+1))
		for c := 0; c < bar; c++ {
			row[c] = '▇'
		}
		for c := whiskerLo; c <= whiskerHi; c++ {
			if row[c] == ' ' {
				row[c] = '─'
			}
		}
		row[whiskerHi] = '┤'
		sb.WriteString(barStyle.Render(string(row)))
		sb.WriteString(fmt.Sprintf(" %.3e ± %.3e s\n", sum.Mean, sum.StdDev))
	}
	return sb.String()
}

// scale maps d in [lo, hi] to a column in [0, width-1].
func scale(d, lo, hi time.Duration) int {
	if hi <= lo {
		return 0
	}
	return int(float64(d-lo) / float64(hi-lo) * float64(width-1))
}

// cells maps v in [0, top] to a number of cells in [0, width].
func cells(v, top float64) int {
	if top <= 0 || v <= 0 {
		return 0
	}
	c := int(v / top * float64(width))
	if c > width {
		c = width
	}
	return c
}

func axis(lo, hi time.Duration) string {
	left := lo.String()
	right := hi.String()
	pad := width - len(left) - len(right)
	if pad < 1 {
		pad = 1
	}
	return left + strings.Repeat(" ", pad) + right
}
