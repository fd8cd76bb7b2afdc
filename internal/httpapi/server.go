// Package httpapi implements the engine's admin HTTP surface: health check,
// Prometheus metrics, and a read-only gauge snapshot for operators.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// GaugeSnapshotter is satisfied by *statsd.Aggregator.
type GaugeSnapshotter interface {
	GaugesSnapshot() map[string]float64
}

// Server is the gorilla/mux-routed admin HTTP surface: health check,
// Prometheus metrics, and a read-only gauge snapshot.
type Server struct {
	addr string
	http *http.Server
	log  logrus.FieldLogger
}

// New builds an admin server bound to addr. Pass an empty addr to build a
// Server whose Run is a no-op (the feature is disabled).
func New(addr string, agg GaugeSnapshotter, reg *prometheus.Registry, log logrus.FieldLogger) *Server {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", healthHandler).Methods(http.MethodGet)
	router.HandleFunc("/debug/gauges", gaugesHandler(agg)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return &Server{
		addr: addr,
		http: &http.Server{Addr: addr, Handler: router},
		log:  log,
	}
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func gaugesHandler(agg GaugeSnapshotter) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(agg.GaugesSnapshot())
	}
}

// Run starts listening and serving until the process shuts it down via
// Shutdown, or returns immediately if no address was configured.
func (s *Server) Run() error {
	if s.addr == "" {
		return nil
	}
	s.log.WithField("address", s.addr).Info("httpapi: admin server listening")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the admin server, closing its listener and any open
// connections immediately.
func (s *Server) Shutdown() error {
	if s.addr == "" {
		return nil
	}
	return s.http.Close()
}
