// Package metrics exposes client-side Prometheus counters: poll, send and
// acknowledgement outcomes, cache reconciliation sources and API latency.
// All methods are safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	polls      *prometheus.CounterVec
	sends      *prometheus.CounterVec
	acks       *prometheus.CounterVec
	reconciles *prometheus.CounterVec
	requests   *prometheus.HistogramVec
}

// New registers the client collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		polls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bottlemail_polls_total",
			Help: "Delivery poll cycles by outcome.",
		}, []string{"outcome"}),
		sends: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bottlemail_sends_total",
			Help: "Letter send attempts by outcome.",
		}, []string{"outcome"}),
		acks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bottlemail_acks_total",
			Help: "Letter open acknowledgements by outcome.",
		}, []string{"outcome"}),
		reconciles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bottlemail_reconcile_total",
			Help: "Local/remote reconciliations by resource and winning source.",
		}, []string{"resource", "source"}),
		requests: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bottlemail_api_request_duration_seconds",
			Help:    "Latency of letter server API calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "status"}),
	}
}

func (m *Metrics) Poll(outcome string) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Send(outcome string) {
	if m == nil {
		return
	}
	m.sends.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Ack(outcome string) {
	if m == nil {
		return
	}
	m.acks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Reconcile(resource, source string) {
	if m == nil {
		return
	}
	m.reconciles.WithLabelValues(resource, source).Inc()
}

// ObserveRequest records an API call. status is the HTTP status code, or 0
// when no response arrived.
func (m *Metrics) ObserveRequest(method string, status int, start time.Time) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.requests.WithLabelValues(method, label).Observe(time.Since(start).Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve runs a metrics endpoint at addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
