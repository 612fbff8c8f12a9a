// Package metrics defines the Prometheus metrics exported by txbench.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransactionDuration is the duration of successful client transactions.
	TransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "txbench_transaction_duration_seconds",
			Help: "Duration of successful request/echo transactions.",
			// 10us to ~2.6s.
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 19),
		},
		[]string{"protocol"},
	)

	// TransactionFailures counts failed client transactions.
	TransactionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txbench_transaction_failures_total",
			Help: "Number of failed request/echo transactions.",
		},
		[]string{"protocol", "cause"},
	)

	// EchoRequests counts connections or datagrams received by the echo
	// servers.
	EchoRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txbench_echo_requests_total",
			Help: "Number of requests received by the echo servers.",
		},
		[]string{"protocol"},
	)

	// EchoErrors counts per-request errors on the echo servers.
	EchoErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txbench_echo_errors_total",
			Help: "Number of per-request errors on the echo servers.",
		},
		[]string{"protocol"},
	)

	// EchoBytes counts the bytes echoed back by the servers.
	EchoBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txbench_echo_bytes_total",
			Help: "Number of bytes echoed back by the echo servers.",
		},
		[]string{"protocol"},
	)
)
