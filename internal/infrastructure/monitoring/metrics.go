package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/GriffinCanCode/fgpipe/internal/shared/types"
)

// Metrics holds all Prometheus metrics. It implements manager.Observer.
type Metrics struct {
	registry *prometheus.Registry

	// Input metrics
	InputsAccepted prometheus.Counter
	InputsRejected prometheus.Counter

	// Worker metrics
	ArgsSent      *prometheus.CounterVec
	WorkerResults *prometheus.CounterVec
	SoftRetries   *prometheus.CounterVec
	WorkerExits   *prometheus.CounterVec
	WorkersActive prometheus.Gauge

	// Pipeline metrics
	Outcomes        *prometheus.CounterVec
	FinalizeLatency prometheus.Histogram
	RetriesPerInput prometheus.Histogram
	InFlight        prometheus.Gauge

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time
}

// NewMetrics creates a metrics collector on its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		InputsAccepted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fgpipe_inputs_accepted_total",
				Help: "Total number of inputs accepted into the pipeline",
			},
		),
		InputsRejected: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fgpipe_inputs_rejected_total",
				Help: "Total number of malformed input lines",
			},
		),

		ArgsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fgpipe_worker_dispatched_total",
				Help: "Total number of arguments sent to a worker",
			},
			[]string{"worker"},
		),
		WorkerResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fgpipe_worker_results_total",
				Help: "Total number of results received from a worker",
			},
			[]string{"worker", "status"},
		),
		SoftRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fgpipe_worker_retries_total",
				Help: "Total number of soft failures retried",
			},
			[]string{"worker"},
		),
		WorkerExits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fgpipe_worker_exits_total",
				Help: "Total number of workers that closed their result channel",
			},
			[]string{"worker"},
		),
		WorkersActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "fgpipe_workers_active",
				Help: "Number of workers still answering",
			},
		),

		Outcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fgpipe_finalized_total",
				Help: "Total number of inputs finalized",
			},
			[]string{"result"},
		),
		FinalizeLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fgpipe_finalize_latency_seconds",
				Help:    "Time from accepting an input to emitting its result",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),
		RetriesPerInput: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fgpipe_retries_per_input",
				Help:    "Retransmissions needed per finalized input",
				Buckets: []float64{0, 1, 2, 3, 5, 8},
			},
		),
		InFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "fgpipe_buffer_depth",
				Help: "Number of accepted inputs not yet finalized",
			},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "fgpipe_uptime_seconds",
			Help: "Seconds since the manager started",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)
	m.WorkersActive.Set(types.WorkerCount)
	return m
}

// Registry returns the registry holding every metric
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// InputAccepted records an accepted input
func (m *Metrics) InputAccepted() {
	m.InputsAccepted.Inc()
}

// InputRejected records a malformed input line
func (m *Metrics) InputRejected() {
	m.InputsRejected.Inc()
}

// Dispatched records an argument sent to role
func (m *Metrics) Dispatched(role types.Role) {
	m.ArgsSent.WithLabelValues(role.String()).Inc()
}

// ResultReceived records a result from role
func (m *Metrics) ResultReceived(role types.Role, status types.Status) {
	m.WorkerResults.WithLabelValues(role.String(), status.String()).Inc()
}

// Retried records a soft failure being retried
func (m *Metrics) Retried(role types.Role) {
	m.SoftRetries.WithLabelValues(role.String()).Inc()
}

// WorkerExited records a worker closing its result channel
func (m *Metrics) WorkerExited(role types.Role) {
	m.WorkerExits.WithLabelValues(role.String()).Inc()
	m.WorkersActive.Dec()
}

// Finalized records an emitted result
func (m *Metrics) Finalized(ok bool, retries int, latency time.Duration) {
	result := "success"
	if !ok {
		result = "failure"
	}
	m.Outcomes.WithLabelValues(result).Inc()
	m.FinalizeLatency.Observe(latency.Seconds())
	m.RetriesPerInput.Observe(float64(retries))
}

// BufferDepth records the number of unfinalized inputs
func (m *Metrics) BufferDepth(n int) {
	m.InFlight.Set(float64(n))
}
