// Package server exposes a read-only HTTP inspector over decoded
// directory metadata. It is local debug tooling: no authentication, no
// mutation of the stores it reads.
package server

import (
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// Config holds server configuration.
type Config struct {
	Addr string
}

// New creates a configured *http.Server with all routes registered.
func New(cfg Config) *http.Server {
	r := mux.NewRouter()
	r.Use(loggingMiddleware)
	// versioned API root
	v1 := r.PathPrefix("/v1").Subrouter()

	RegisterMetadataHandlers(v1)
	RegisterRecordHandlers(v1)

	return &http.Server{Addr: cfg.Addr, Handler: r}
}

// Run starts the HTTP server and blocks.
func Run(cfg Config) error {
	srv := New(cfg)
	log.Infof("metadata inspector listening on %s", cfg.Addr)
	return srv.ListenAndServe()
}

// logging middleware to trace requests and response status
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
}

func (l *loggingResponseWriter) WriteHeader(code int) {
	l.status = code
	l.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lrw := &loggingResponseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Debugf("%d %s %s", lrw.status, r.Method, r.URL.String())
	})
}
