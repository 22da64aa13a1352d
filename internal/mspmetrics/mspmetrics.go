// Package mspmetrics exposes Prometheus-style counters for every protocol
// operation, in the same style pkg/nspkt uses VictoriaMetrics/metrics for
// its packet listener: a handful of package-level counters registered by
// name, with a WritePrometheus export for a debug HTTP endpoint.
package mspmetrics

import (
	"io"

	"github.com/VictoriaMetrics/metrics"
)

// Recorder tracks call/error/byte counters for one protocol, e.g. "java",
// "legacy", "netty", "beta", "query", "bedrock", "lan".
type Recorder struct {
	proto string
}

// ForProtocol returns a Recorder scoped to the given protocol label.
func ForProtocol(proto string) Recorder {
	return Recorder{proto: proto}
}

// Call records one attempted operation.
func (r Recorder) Call() {
	metrics.GetOrCreateCounter(`msp_calls_total{proto="` + r.proto + `"}`).Inc()
}

// Error records one failed operation.
func (r Recorder) Error() {
	metrics.GetOrCreateCounter(`msp_errors_total{proto="` + r.proto + `"}`).Inc()
}

// BytesSent adds n to the protocol's sent-byte counter.
func (r Recorder) BytesSent(n int) {
	metrics.GetOrCreateCounter(`msp_bytes_sent_total{proto="` + r.proto + `"}`).Add(n)
}

// BytesReceived adds n to the protocol's received-byte counter.
func (r Recorder) BytesReceived(n int) {
	metrics.GetOrCreateCounter(`msp_bytes_received_total{proto="` + r.proto + `"}`).Add(n)
}

// Latency records a round-trip latency sample in milliseconds.
func (r Recorder) Latency(ms float64) {
	metrics.GetOrCreateHistogram(`msp_latency_milliseconds{proto="` + r.proto + `"}`).Update(ms)
}

// WritePrometheus writes every registered msp_* metric to w, for a debug
// HTTP endpoint to expose.
func WritePrometheus(w io.Writer) {
	metrics.WritePrometheus(w, true)
}
