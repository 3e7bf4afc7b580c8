package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the radio relay.
type Metrics struct {
	registry           *prometheus.Registry
	requestsTotal      prometheus.Counter
	errorsTotal        prometheus.Counter
	launchesTotal      *prometheus.CounterVec
	launchFailures     *prometheus.CounterVec
	forcedKills        *prometheus.CounterVec
	rotationsTotal     *prometheus.CounterVec
	filesServed        *prometheus.CounterVec
	activeTranscoders  prometheus.Gauge
	runningSupervisors prometheus.Gauge
}

// New creates and registers the relay's metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hls_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hls_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	launchesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "radio_transcoder_launches_total",
		Help: "Transcoder processes started",
	}, []string{"channel", "quality"})
	launchFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "radio_transcoder_launch_failures_total",
		Help: "Transcoder launch attempts that failed",
	}, []string{"channel", "quality"})
	forcedKills := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "radio_transcoder_forced_kills_total",
		Help: "Transcoders that ignored SIGTERM and were killed",
	}, []string{"channel", "quality"})
	rotationsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "radio_rotations_total",
		Help: "Completed passes through all quality profiles",
	}, []string{"channel"})
	filesServed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "radio_stream_files_served_total",
		Help: "Playlists and segments served from transcoder output",
	}, []string{"channel", "quality", "kind"})
	activeTranscoders := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "radio_active_transcoders",
		Help: "Transcoder processes currently streaming",
	})
	runningSupervisors := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "radio_supervisors_running",
		Help: "Channel supervisors that have not stopped or failed",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		launchesTotal,
		launchFailures,
		forcedKills,
		rotationsTotal,
		filesServed,
		activeTranscoders,
		runningSupervisors,
	)

	return &Metrics{
		registry:           registry,
		requestsTotal:      requestsTotal,
		errorsTotal:        errorsTotal,
		launchesTotal:      launchesTotal,
		launchFailures:     launchFailures,
		forcedKills:        forcedKills,
		rotationsTotal:     rotationsTotal,
		filesServed:        filesServed,
		activeTranscoders:  activeTranscoders,
		runningSupervisors: runningSupervisors,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// IncLaunches counts a transcoder started for (channel, quality).
func (m *Metrics) IncLaunches(channel, quality string) {
	m.launchesTotal.WithLabelValues(channel, quality).Inc()
}

// IncLaunchFailures counts a failed launch attempt.
func (m *Metrics) IncLaunchFailures(channel, quality string) {
	m.launchFailures.WithLabelValues(channel, quality).Inc()
}

// IncForcedKills counts a transcoder that had to be killed after the stop timeout.
func (m *Metrics) IncForcedKills(channel, quality string) {
	m.forcedKills.WithLabelValues(channel, quality).Inc()
}

// IncRotations counts a completed pass over every quality of channel.
func (m *Metrics) IncRotations(channel string) {
	m.rotationsTotal.WithLabelValues(channel).Inc()
}

// IncFilesServed counts a stream file served; kind is "playlist" or "segment".
func (m *Metrics) IncFilesServed(channel, quality, kind string) {
	m.filesServed.WithLabelValues(channel, quality, kind).Inc()
}

// SetActiveTranscoders sets the active transcoders gauge.
func (m *Metrics) SetActiveTranscoders(n int) {
	m.activeTranscoders.Set(float64(n))
}

// SetRunningSupervisors sets the running supervisors gauge.
func (m *Metrics) SetRunningSupervisors(n int) {
	m.runningSupervisors.Set(float64(n))
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		h.ServeHTTP(w, r)
	})
}
