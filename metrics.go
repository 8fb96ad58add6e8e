package godbf

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds the Prometheus collectors updated by a Codec. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	recordsTotal      *prometheus.CounterVec
	fieldsDegraded    *prometheus.CounterVec
}

// NewMetrics creates the codec collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		operationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dbf_codec_operations_total",
				Help: "Total number of table decode and encode operations",
			},
			[]string{"operation", "status"},
		),
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dbf_codec_operation_duration_seconds",
				Help:    "Table decode and encode duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		recordsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dbf_codec_records_total",
				Help: "Records seen while decoding, by outcome",
			},
			[]string{"outcome"},
		),
		fieldsDegraded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dbf_codec_fields_degraded_total",
				Help: "Fields that could not be converted faithfully, by type code",
			},
			[]string{"type"},
		),
	}
}

func (m *Metrics) observe(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := statusSuccess
	if err != nil {
		status = statusError
	}
	m.operationsTotal.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) observeDecode(start time.Time, err error) { m.observe("decode", start, err) }
func (m *Metrics) observeEncode(start time.Time, err error) { m.observe("encode", start, err) }

func (m *Metrics) recordsDecoded(active, deleted int) {
	if m == nil {
		return
	}
	m.recordsTotal.WithLabelValues("active").Add(float64(active))
	m.recordsTotal.WithLabelValues("deleted").Add(float64(deleted))
}

func (m *Metrics) recordsTruncated(n int) {
	if m == nil {
		return
	}
	m.recordsTotal.WithLabelValues("truncated").Add(float64(n))
}

func (m *Metrics) fieldDegraded(typ byte) {
	if m == nil {
		return
	}
	m.fieldsDegraded.WithLabelValues(string(rune(typ))).Inc()
}
