// Package metrics provides Prometheus instrumentation for the transcode
// cache and media delivery path.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RunningTranscodes tracks the running-retention list occupancy.
	RunningTranscodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sonora_running_transcodes",
		Help: "Current number of entries in the running-transcode retention list.",
	})

	// CompletedTranscodes tracks the completed-retention list occupancy.
	CompletedTranscodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sonora_completed_transcodes",
		Help: "Current number of entries in the completed-transcode retention list.",
	})

	// TranscodeStartsTotal counts every successful getOrCreate that
	// actually spawned a new child process (cache misses, not shares).
	TranscodeStartsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sonora_transcode_starts_total",
		Help: "Total number of transcode child processes spawned.",
	})

	// BytesServedTotal counts bytes written to clients by the File Sender
	// and Chunked Tailer combined, by delivery mode.
	BytesServedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sonora_bytes_served_total",
		Help: "Total bytes served to clients, by delivery mode (direct/transcoded).",
	}, []string{"mode"})

	// RequestsTotal counts dispatch outcomes by HTTP status code.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sonora_media_requests_total",
		Help: "Total media requests handled, by resulting HTTP status.",
	}, []string{"status"})
)

// RecordBytesServed adds n bytes to the BytesServedTotal counter for mode.
func RecordBytesServed(mode string, n int64) {
	if n <= 0 {
		return
	}
	BytesServedTotal.WithLabelValues(mode).Add(float64(n))
}

// RecordRequest increments RequestsTotal for the given HTTP status code.
func RecordRequest(status string) {
	RequestsTotal.WithLabelValues(status).Inc()
}

// SetRetentionOccupancy updates the two retention-list gauges from the
// current lengths of the running and completed lists.
func SetRetentionOccupancy(running, completed int) {
	RunningTranscodes.Set(float64(running))
	CompletedTranscodes.Set(float64(completed))
}

// Handler returns the Prometheus exposition HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
