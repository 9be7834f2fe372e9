package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/romvault/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const healthTimeout = 500 * time.Millisecond

// HealthFunc reports whether the service dependencies are reachable.
type HealthFunc func(context.Context) error

// BootstrapServer starts the metrics server in the background and returns it
// so the caller can shut it down.
func BootstrapServer(addr string, g prometheus.Gatherer, health HealthFunc, l logging.Logger) *http.Server {
	ms := NewServer(addr, g, health)

	go func() {
		l.Info(context.Background(), "metrics listening", "addr", addr)
		if err := ms.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error(context.Background(), "metrics server error", "error", err)
		}
	}()

	return ms
}

func NewServer(addr string, g prometheus.Gatherer, health HealthFunc) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      newMux(g, health),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
}

func newMux(g prometheus.Gatherer, health HealthFunc) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := health(ctx); err != nil {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
