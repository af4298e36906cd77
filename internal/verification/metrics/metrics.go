package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification pipeline.
type Metrics struct {
	// Final outcomes by status
	Outcomes *prometheus.CounterVec

	// Per-field comparison verdicts
	FieldVerdicts *prometheus.CounterVec

	// Which strategy produced each extracted field
	ExtractionMethods *prometheus.CounterVec

	// Text acquisition latency by resulting quality
	AcquisitionLatency *prometheus.HistogramVec

	// Documents whose text came from OCR instead of a native text layer
	OCRFallbacks prometheus.Counter

	// Full pipeline latency, acquisition included
	PipelineLatency prometheus.Histogram
}

// New creates a new Metrics instance with all verification metrics registered.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on reg. Tests pass a fresh registry.
func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "certverify_verification_outcomes_total",
			Help: "Total verification outcomes by status",
		}, []string{"status"}), // status: MATCH, PARTIAL_MATCH, MISMATCH

		FieldVerdicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "certverify_field_verdicts_total",
			Help: "Total field comparison verdicts by field and verdict",
		}, []string{"field", "verdict"}),

		ExtractionMethods: f.NewCounterVec(prometheus.CounterOpts{
			Name: "certverify_extraction_methods_total",
			Help: "Total extracted fields by field and extraction method",
		}, []string{"field", "method"}),

		AcquisitionLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "certverify_text_acquisition_duration_seconds",
			Help:    "Duration of document text acquisition by resulting quality",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"quality"}),

		OCRFallbacks: f.NewCounter(prometheus.CounterOpts{
			Name: "certverify_ocr_fallbacks_total",
			Help: "Total documents whose text was read with OCR",
		}),

		PipelineLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "certverify_pipeline_duration_seconds",
			Help:    "Duration of a full verification run",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

// IncrementOutcome records a verification outcome.
func (m *Metrics) IncrementOutcome(status string) {
	if m != nil {
		m.Outcomes.WithLabelValues(status).Inc()
	}
}

// IncrementVerdict records one field comparison.
func (m *Metrics) IncrementVerdict(field, verdict string) {
	if m != nil {
		m.FieldVerdicts.WithLabelValues(field, verdict).Inc()
	}
}

// IncrementMethod records the strategy that produced a field.
func (m *Metrics) IncrementMethod(field, method string) {
	if m != nil {
		m.ExtractionMethods.WithLabelValues(field, method).Inc()
	}
}

// ObserveAcquisition records how long text acquisition took.
func (m *Metrics) ObserveAcquisition(quality string, d time.Duration) {
	if m != nil {
		m.AcquisitionLatency.WithLabelValues(quality).Observe(d.Seconds())
	}
}

// IncrementOCRFallback records a document read with OCR.
func (m *Metrics) IncrementOCRFallback() {
	if m != nil {
		m.OCRFallbacks.Inc()
	}
}

// ObservePipeline records the total run duration.
func (m *Metrics) ObservePipeline(d time.Duration) {
	if m != nil {
		m.PipelineLatency.Observe(d.Seconds())
	}
}
