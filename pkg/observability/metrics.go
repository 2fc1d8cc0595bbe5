package observability

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

var (
	registerOnce sync.Once

	clientRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thingset",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "ThingSet requests by operation and response status class.",
		},
		[]string{"backend", "op", "status_class"},
	)
	clientDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "thingset",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Time from send to decoded response, including path lookups.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"backend", "op"},
	)
	receiveTimeouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thingset",
			Subsystem: "client",
			Name:      "receive_timeouts_total",
			Help:      "Requests that got no response within the receive timeout.",
		},
		[]string{"backend"},
	)
	queueDrops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thingset",
			Subsystem: "transport",
			Name:      "queue_dropped_total",
			Help:      "Messages evicted from a full receive queue.",
		},
		[]string{"backend"},
	)
	pathLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thingset",
			Subsystem: "client",
			Name:      "path_lookups_total",
			Help:      "Path resolutions by result (cached, fetched, failed).",
		},
		[]string{"backend", "result"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(clientRequests, clientDuration, receiveTimeouts, queueDrops, pathLookups)
	})
}

func RecordRequest(backend, op, statusClass string, duration time.Duration) {
	RegisterMetrics()
	clientRequests.WithLabelValues(backend, op, statusClass).Inc()
	clientDuration.WithLabelValues(backend, op).Observe(duration.Seconds())
}

func RecordReceiveTimeout(backend string) {
	RegisterMetrics()
	receiveTimeouts.WithLabelValues(backend).Inc()
}

func RecordQueueDrop(backend string) {
	RegisterMetrics()
	queueDrops.WithLabelValues(backend).Inc()
}

func RecordPathLookup(backend, result string) {
	RegisterMetrics()
	pathLookups.WithLabelValues(backend, result).Inc()
}

// WriteMetrics writes the thingset_ families of the default registry in the
// prometheus text format. A one-shot CLI run has no scrape window, so this is
// how its counters get out.
func WriteMetrics(w io.Writer) error {
	RegisterMetrics()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "thingset_") {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
