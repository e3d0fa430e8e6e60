package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all uploader metrics
type Metrics struct {
	// Scheduler cycle counters
	Cycles         atomic.Uint64
	FramesCaptured atomic.Uint64
	CaptureErrors  atomic.Uint64
	FramesDropped  atomic.Uint64 // wrong pixel format

	// Delivery
	UploadsOK        atomic.Uint64
	UploadErrors     atomic.Uint64
	UploadBytes      atomic.Uint64
	UploadLatencyMs  atomic.Uint64 // last successful cycle, capture to response
	TelemetryOK      atomic.Uint64
	TelemetryErrors  atomic.Uint64
	VoltageMillivolt atomic.Int64 // last sampled supply voltage

	// Camera hardware
	ProbeAttempts     atomic.Uint64 // driver init calls
	ProbeFailures     atomic.Uint64 // probes where every profile failed
	CameraInitialized atomic.Uint64 // 0 = no, 1 = yes

	// Network
	Connected atomic.Uint64 // 0 = offline, 1 = online

	// Prometheus collectors
	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) gauge(name, help string, value func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "cam_uploader",
			Name:      name,
			Help:      help,
		},
		value,
	))
}

func (m *Metrics) counter(name, help string, v *atomic.Uint64) {
	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Namespace: "cam_uploader",
			Name:      name,
			Help:      help,
		},
		func() float64 { return float64(v.Load()) },
	))
}

// registerPrometheusMetrics registers all metrics with Prometheus
func (m *Metrics) registerPrometheusMetrics() {
	m.counter("cycles_total", "Capture cycles started", &m.Cycles)
	m.counter("frames_captured_total", "Frames obtained from the camera", &m.FramesCaptured)
	m.counter("capture_errors_total", "Cycles where the camera produced no frame", &m.CaptureErrors)
	m.counter("frames_dropped_total", "Frames dropped for an unexpected pixel format", &m.FramesDropped)

	m.counter("uploads_total", "Images delivered with a 2xx response", &m.UploadsOK)
	m.counter("upload_errors_total", "Image deliveries that failed", &m.UploadErrors)
	m.counter("upload_bytes_total", "JPEG bytes delivered", &m.UploadBytes)
	m.gauge("upload_latency_ms", "Duration of the last successful cycle in milliseconds",
		func() float64 { return float64(m.UploadLatencyMs.Load()) })

	m.counter("telemetry_total", "Voltage reports delivered", &m.TelemetryOK)
	m.counter("telemetry_errors_total", "Voltage samples or reports that failed", &m.TelemetryErrors)
	m.gauge("supply_voltage_mv", "Last sampled supply voltage in millivolts",
		func() float64 { return float64(m.VoltageMillivolt.Load()) })

	m.counter("camera_probe_attempts_total", "Camera driver init attempts", &m.ProbeAttempts)
	m.counter("camera_probe_failures_total", "Probes where every board profile failed", &m.ProbeFailures)
	m.gauge("camera_initialized", "Camera initialized (0=no, 1=yes)",
		func() float64 { return float64(m.CameraInitialized.Load()) })

	m.gauge("network_connected", "Network reachable (0=offline, 1=online)",
		func() float64 { return float64(m.Connected.Load()) })
}

// ObserveUpload records one successful image delivery.
func (m *Metrics) ObserveUpload(bytes int, cycleStart time.Time) {
	m.UploadsOK.Add(1)
	m.UploadBytes.Add(uint64(bytes))
	m.UploadLatencyMs.Store(uint64(time.Since(cycleStart).Milliseconds()))
}

// SetFlag stores a boolean gauge.
func SetFlag(v *atomic.Uint64, on bool) {
	if on {
		v.Store(1)
	} else {
		v.Store(0)
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
