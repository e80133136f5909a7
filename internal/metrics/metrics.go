// Package metrics exposes agent counters in Prometheus format. A nil
// *Recorder is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Recorder owns one registry and the agent's collectors.
type Recorder struct {
	registry *prometheus.Registry

	framesWritten   prometheus.Counter
	captureDuration prometheus.Histogram
	captureFailures *prometheus.CounterVec
	acquireAttempts *prometheus.CounterVec
	rotations       *prometheus.CounterVec
	boosted         prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		framesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cctv_frames_written_total",
			Help: "Frames written to the session directory",
		}),
		captureDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cctv_capture_duration_seconds",
			Help:    "Time to resolve, capture, encode and write one frame",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2, 5},
		}),
		captureFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cctv_capture_failures_total",
			Help: "Capture iterations that ended the session",
		}, []string{"stage"}),
		acquireAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cctv_acquire_attempts_total",
			Help: "Surface acquisition attempts",
		}, []string{"result"}), // ok | transient | fatal
		rotations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cctv_rotations_total",
			Help: "Session directories compacted into archives",
		}, []string{"result"}), // ok | failed
		boosted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cctv_boosted_processes",
			Help: "Processes raised in the last booster pass",
		}),
	}
	r.registry.MustRegister(
		r.framesWritten, r.captureDuration, r.captureFailures,
		r.acquireAttempts, r.rotations, r.boosted,
	)
	return r
}

func (r *Recorder) FrameWritten(elapsed time.Duration) {
	if r == nil {
		return
	}
	r.framesWritten.Inc()
	r.captureDuration.Observe(elapsed.Seconds())
}

func (r *Recorder) CaptureFailed(stage string) {
	if r == nil {
		return
	}
	r.captureFailures.WithLabelValues(stage).Inc()
}

func (r *Recorder) AcquireAttempt(result string) {
	if r == nil {
		return
	}
	r.acquireAttempts.WithLabelValues(result).Inc()
}

func (r *Recorder) Rotation(ok bool) {
	if r == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	r.rotations.WithLabelValues(result).Inc()
}

func (r *Recorder) Boosted(n int) {
	if r == nil {
		return
	}
	r.boosted.Set(float64(n))
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve listens on addr until ctx is done. Listener failures are logged,
// never fatal to the agent.
func (r *Recorder) Serve(ctx context.Context, addr string, log *logrus.Entry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", addr).Info("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Warn("Metrics listener stopped")
	}
}
