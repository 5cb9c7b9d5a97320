package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace       = "sensorspace"
	shutdownTimeout = 5 * time.Second
	readTimeout     = 10 * time.Second
	healthTimeout   = 2 * time.Second
)

// HealthFunc reports whether the process can do useful work.
type HealthFunc func(ctx context.Context) error

// AllHealthy combines checks into one HealthFunc that runs every
// non-nil check and joins their errors.
func AllHealthy(checks ...HealthFunc) HealthFunc {
	return func(ctx context.Context) error {
		var errs []error
		for _, check := range checks {
			if check == nil {
				continue
			}
			if err := check(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

// Metrics holds the ingest collectors on a private registry.
//
// All recording methods are safe on a nil *Metrics, so callers can leave
// metrics disabled without branching.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	received       prometheus.Counter
	rejected       prometheus.Counter
	stored         prometheus.Counter
	storeErrors    prometheus.Counter
	reconnects     prometheus.Counter
	exportUpdates  prometheus.Counter
	handleDuration prometheus.Histogram
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "readings_received_total",
			Help: "Payloads handed to the ingest pipeline.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "readings_rejected_total",
			Help: "Payloads that failed decoding or validation.",
		}),
		stored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "readings_stored_total",
			Help: "Readings posted to the store.",
		}),
		storeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "store_errors_total",
			Help: "Readings the store failed to accept after its retry.",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "store_reconnects_total",
			Help: "Posts that succeeded only after the store reconnected.",
		}),
		exportUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "export_updates_total",
			Help: "Successful time-series updates issued by the export table.",
		}),
		handleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "ingest_duration_seconds",
			Help:    "Time to decode, store and export one payload.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	m.registry.MustRegister(
		m.received,
		m.rejected,
		m.stored,
		m.storeErrors,
		m.reconnects,
		m.exportUpdates,
		m.handleDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Received counts one inbound payload.
func (m *Metrics) Received() {
	if m != nil {
		m.received.Inc()
	}
}

// Rejected counts one payload dropped by decoding or validation.
func (m *Metrics) Rejected() {
	if m != nil {
		m.rejected.Inc()
	}
}

// Stored counts one stored reading. reconnected marks a post that went
// through only after the store reconnected.
func (m *Metrics) Stored(reconnected bool) {
	if m == nil {
		return
	}
	m.stored.Inc()
	if reconnected {
		m.reconnects.Inc()
	}
}

// StoreFailed counts one reading the store rejected.
func (m *Metrics) StoreFailed() {
	if m != nil {
		m.storeErrors.Inc()
	}
}

// Exported adds n successful export updates.
func (m *Metrics) Exported(n int) {
	if m != nil && n > 0 {
		m.exportUpdates.Add(float64(n))
	}
}

// ObserveHandle records the duration of one pipeline pass.
func (m *Metrics) ObserveHandle(d time.Duration) {
	if m != nil {
		m.handleDuration.Observe(d.Seconds())
	}
}

// Handler returns the /metrics handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Router returns the HTTP routes: GET /metrics and GET /health.
// A nil health always reports healthy.
func (m *Metrics) Router(health HealthFunc) *mux.Router {
	router := mux.NewRouter()
	router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/health", handleHealth(health)).Methods(http.MethodGet)
	return router
}

func handleHealth(health HealthFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()
			if err := health(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				fmt.Fprintf(w, "unhealthy: %v\n", err)
				return
			}
		}
		fmt.Fprintln(w, "ok")
	}
}

// Serve exposes the Router on addr until ctx ends.
//
// Parameters:
//   - ctx: Serving stops, with a graceful shutdown, when ctx is done
//   - addr: Listen address, e.g. ":2112"
//   - health: Backs GET /health; may be nil
//
// Returns:
//   - error: listen failures; nil after a clean shutdown
func (m *Metrics) Serve(ctx context.Context, addr string, health HealthFunc) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listen on %s: %w", addr, err)
	}
	return m.serve(ctx, ln, health)
}

func (m *Metrics) serve(ctx context.Context, ln net.Listener, health HealthFunc) error {
	srv := &http.Server{Handler: m.Router(health), ReadHeaderTimeout: readTimeout}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
