// Package metrics holds the Prometheus collectors for persistence and operations.
// Collectors live on a private registry; there is no HTTP endpoint, the CLI
// dumps the text exposition format on request.
package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Persist results.
const (
	PersistOK            = "ok"
	PersistQuotaFallback = "quota_fallback"
	PersistError         = "error"
)

// Operation results.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultInvalid  = "invalid"
	ResultError    = "error"
)

// Metrics groups every collector. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	persistTotal    *prometheus.CounterVec
	snapshotBytes   *prometheus.GaugeVec
	initializeTotal *prometheus.CounterVec
	operationsTotal *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		persistTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subsync_persist_total",
			Help: "Snapshot persist attempts by result.",
		}, []string{"result"}),
		snapshotBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "subsync_snapshot_bytes",
			Help: "Size of the last persisted snapshot by encoding.",
		}, []string{"encoding"}),
		initializeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subsync_initialize_total",
			Help: "Database initializations by snapshot source.",
		}, []string{"source"}),
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subsync_operations_total",
			Help: "Repository and CLI operations by name and result.",
		}, []string{"operation", "result"}),
	}

	m.registry.MustRegister(
		m.persistTotal,
		m.snapshotBytes,
		m.initializeTotal,
		m.operationsTotal,
	)
	return m
}

// Registry exposes the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObservePersist(result string) {
	if m == nil {
		return
	}
	m.persistTotal.WithLabelValues(result).Inc()
}

// ObserveSnapshot records the raw and compressed size of the last snapshot.
func (m *Metrics) ObserveSnapshot(raw, compressed int) {
	if m == nil {
		return
	}
	m.snapshotBytes.WithLabelValues("raw").Set(float64(raw))
	m.snapshotBytes.WithLabelValues("compressed").Set(float64(compressed))
}

func (m *Metrics) ObserveInitialize(source string) {
	if m == nil {
		return
	}
	m.initializeTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveOperation(operation, result string) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, result).Inc()
}

// WriteText writes every gathered metric family in the Prometheus text format.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to write metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
