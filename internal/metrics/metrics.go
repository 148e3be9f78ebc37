// Package metrics records residual computations as Prometheus metrics for
// batch jobs. Metrics live on a private registry and are exported through
// the node-exporter textfile collector rather than a listener.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/pulsar/internal/residuals"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "pulsar"

// Recorder collects residual metrics.
type Recorder struct {
	reg *prometheus.Registry

	ComputationsTotal   *prometheus.CounterVec
	ComputationDuration *prometheus.HistogramVec
	LastChi2            *prometheus.GaugeVec
	LastReducedChi2     *prometheus.GaugeVec
	LastTOAs            *prometheus.GaugeVec
	LastWeightedRMS     *prometheus.GaugeVec
}

// NewRecorder creates a recorder on its own registry.
func NewRecorder(namespace string) *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		reg: reg,

		ComputationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "residual_computations_total",
				Help:      "Residual computations by model and status",
			},
			[]string{"model", "status"},
		),

		ComputationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "residual_computation_duration_seconds",
				Help:      "Residual computation duration in seconds",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"model"},
		),

		LastChi2: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "residual_chi2",
				Help:      "Chi-squared of the last successful computation",
			},
			[]string{"model"},
		),

		LastReducedChi2: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "residual_reduced_chi2",
				Help:      "Reduced chi-squared of the last successful computation",
			},
			[]string{"model"},
		),

		LastTOAs: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "residual_toas",
				Help:      "TOA count of the last successful computation",
			},
			[]string{"model"},
		),

		LastWeightedRMS: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "residual_weighted_rms_seconds",
				Help:      "Weighted RMS residual of the last successful computation",
			},
			[]string{"model"},
		),
	}
}

// Registry returns the recorder's registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

// Observe records a successful computation summarized by s.
func (r *Recorder) Observe(s residuals.Summary, d time.Duration) {
	r.ComputationsTotal.WithLabelValues(s.Model, "ok").Inc()
	r.ComputationDuration.WithLabelValues(s.Model).Observe(d.Seconds())
	r.LastChi2.WithLabelValues(s.Model).Set(s.Chi2)
	r.LastReducedChi2.WithLabelValues(s.Model).Set(s.ReducedChi2)
	r.LastTOAs.WithLabelValues(s.Model).Set(float64(s.TOAs))
	r.LastWeightedRMS.WithLabelValues(s.Model).Set(s.WeightedRMS)
}

// ObserveError records a failed computation.
func (r *Recorder) ObserveError(model string, d time.Duration) {
	r.ComputationsTotal.WithLabelValues(model, "error").Inc()
	r.ComputationDuration.WithLabelValues(model).Observe(d.Seconds())
}

// WriteTextfile writes every metric to path in the text exposition format,
// atomically, for the node-exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
