package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ellieayla/logstash-output-loginsight/pkg/log"
)

// Server serves /metrics on its own listener.
type Server struct {
	srv    *http.Server
	logger log.Logger
}

// NewServer creates a metrics server listening on addr.
func NewServer(addr string, logger log.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start serves in the background until Shutdown is called.
func (s *Server) Start() {
	go func() {
		s.logger.Info("metrics server listening", log.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server failed", log.Err(err))
		}
	}()
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
