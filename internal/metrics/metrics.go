// Package metrics exposes prometheus counters for classification results
// and frame failures.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/teslashibe/blurry-classifier/pkg/blur"
)

// Recorder holds the service metrics on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	classifications *prometheus.CounterVec
	variance        *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	archived        prometheus.Counter
}

// New creates a recorder with Go runtime and process collectors attached.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blurry_classifications_total",
			Help: "Frames classified, by model and result.",
		}, []string{"model", "result"}),
		variance: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "blurry_laplacian_variance",
			Help:    "Laplacian variance of classified frames.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 12),
		}, []string{"model"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blurry_frame_errors_total",
			Help: "Frames that failed, by stage.",
		}, []string{"stage"}),
		archived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blurry_frames_archived_total",
			Help: "Blurry frames written to the archive.",
		}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.classifications,
		r.variance,
		r.errors,
		r.archived,
	)
	return r
}

// ObserveResult records one scored frame.
func (r *Recorder) ObserveResult(model string, res *blur.Result) {
	result := "sharp"
	if res.Blurry {
		result = "blurry"
	}
	r.classifications.WithLabelValues(model, result).Inc()
	r.variance.WithLabelValues(model).Observe(res.Score)
}

// ObserveError records one failed frame.
func (r *Recorder) ObserveError(stage string, _ error) {
	r.errors.WithLabelValues(stage).Inc()
}

// ObserveArchived records one archived frame.
func (r *Recorder) ObserveArchived() {
	r.archived.Inc()
}

// Handler serves the registry in the prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

var _ blur.Observer = (*Recorder)(nil)
