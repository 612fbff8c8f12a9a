package metrics

import (
	"testing"

	"github.com/m-lab/go/prometheusx/promtest"
)

func TestLintMetrics(t *testing.T) {
	TransactionDuration.WithLabelValues("x")
	TransactionFailures.WithLabelValues("x", "x")
	EchoRequests.WithLabelValues("x")
	EchoErrors.WithLabelValues("x")
	EchoBytes.WithLabelValues("x")
	promtest.LintMetrics(t)
}
