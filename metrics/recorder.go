// Package metrics exposes the control loop on a Prometheus registry.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"equipment_monitor/health"
	"equipment_monitor/monitor"
)

// Recorder exports the control loop state as Prometheus metrics.
type Recorder struct {
	iterations prometheus.Counter
	tiers      *prometheus.CounterVec
	faults     *prometheus.CounterVec
	relayCuts  prometheus.Counter
	tier       prometheus.Gauge
	relay      prometheus.Gauge
	values     *prometheus.GaugeVec
	duration   prometheus.Histogram

	mu   sync.RWMutex
	last Status
}

// Status is the outcome of the latest iteration, served as JSON by the router.
type Status struct {
	Sequence     uint64   `json:"sequence"`
	TimestampMs  int64    `json:"timestamp_ms"`
	Tier         string   `json:"tier"`
	RelayEngaged bool     `json:"relay_engaged"`
	Reasons      []string `json:"reasons,omitempty"`
	Faults       []string `json:"faults,omitempty"`
}

// NewRecorder creates the collectors and registers them on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "monitor_iterations_total",
			Help: "Control loop iterations completed.",
		}),
		tiers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "monitor_tier_total",
			Help: "Iterations per resulting severity tier.",
		}, []string{"tier"}),
		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "monitor_sensor_faults_total",
			Help: "Samples flagged invalid by the sensor drivers.",
		}, []string{"sensor"}),
		relayCuts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "monitor_relay_cuts_total",
			Help: "Relay cut transitions. At most one per run.",
		}),
		tier: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "monitor_tier",
			Help: "Current severity tier (0 normal, 1 warning, 2 critical).",
		}),
		relay: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "monitor_relay_engaged",
			Help: "1 while the equipment relay is energized.",
		}),
		values: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "monitor_sensor_value",
			Help: "Last sample value per sensor.",
		}, []string{"sensor"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "monitor_iteration_duration_seconds",
			Help:    "Time spent sampling, classifying, actuating and emitting.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}
	r.relay.Set(1)
	r.last = Status{Tier: health.Normal.String(), RelayEngaged: true}

	reg.MustRegister(r.iterations, r.tiers, r.faults, r.relayCuts, r.tier, r.relay, r.values, r.duration)
	return r
}

// ObserveIteration records one completed iteration.
func (r *Recorder) ObserveIteration(it monitor.Iteration) {
	r.iterations.Inc()
	r.tiers.WithLabelValues(it.Health.Tier.String()).Inc()
	r.tier.Set(float64(it.Health.Tier))
	if it.Health.RelayEngaged {
		r.relay.Set(1)
	} else {
		r.relay.Set(0)
	}
	if it.Transition.RelayCut {
		r.relayCuts.Inc()
	}
	for _, f := range it.Assessment.Faults {
		r.faults.WithLabelValues(f.Kind.String()).Inc()
	}
	for _, s := range it.Snapshot.Samples() {
		if s.Valid {
			r.values.WithLabelValues(s.Kind.String()).Set(s.Value)
		}
	}
	r.duration.Observe(it.Duration.Seconds())

	st := Status{
		Sequence:     it.Sequence,
		TimestampMs:  it.TimestampMs,
		Tier:         it.Health.Tier.String(),
		RelayEngaged: it.Health.RelayEngaged,
	}
	for _, reason := range it.Assessment.Reasons {
		st.Reasons = append(st.Reasons, reason.String())
	}
	for _, f := range it.Assessment.Faults {
		st.Faults = append(st.Faults, f.Kind.String()+": "+f.Fault)
	}
	r.mu.Lock()
	r.last = st
	r.mu.Unlock()
}

// Status returns the outcome of the latest iteration.
func (r *Recorder) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

var _ monitor.Observer = (*Recorder)(nil)
