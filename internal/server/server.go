// Package server exposes a replica's queue status over HTTP, the way the
// teacher's internal/server ran a query endpoint alongside its background
// merger — here the background loop is internal/worker, and the endpoint
// serves queue.Status instead of query results.
package server

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/harshithgowdakt/mtqueue/internal/queue"
)

// Server is the replica's status/metrics HTTP server.
type Server struct {
	addr    string
	handler *StatusHandler
	log     *logrus.Entry
}

// NewServer creates a new server for q, listening on addr.
func NewServer(q *queue.Queue, addr string, log *logrus.Entry) *Server {
	return &Server{
		addr:    addr,
		handler: NewStatusHandler(q),
		log:     log.WithField("component", "server"),
	}
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handler.HandleStatus)
	mux.HandleFunc("/entries", s.handler.HandleEntries)
	mux.HandleFunc("/ping", s.handler.HandlePing)
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    s.addr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	s.log.WithField("addr", s.addr).Info("status server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
