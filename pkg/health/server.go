// Package health runs the relay's HTTP surface: liveness and readiness
// probes plus any routes other components mount (the websocket hub).
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/tabletalk-io/tabletalk/pkg/logger"
)

// Check reports whether one dependency is ready. A nil error means ready.
type Check func() error

type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	checks     map[string]Check
	mu         sync.RWMutex
}

func NewServer(addr string) *Server {
	mux := http.NewServeMux()
	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		mux:    mux,
		checks: make(map[string]Check),
	}
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	return s
}

// Handle mounts an extra route on the relay server.
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, handler)
}

// RegisterCheck adds a named readiness check.
func (s *Server) RegisterCheck(name string, check Check) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = check
}

// Start begins serving in the background. Errors other than a clean
// shutdown are logged.
func (s *Server) Start() {
	go func() {
		logger.InfoCF("health", "Relay HTTP server listening", map[string]interface{}{
			"addr": s.httpServer.Addr,
		})
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorCF("health", "Relay HTTP server failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	checks := make(map[string]Check, len(s.checks))
	for name, check := range s.checks {
		checks[name] = check
	}
	s.mu.RUnlock()

	failures := make(map[string]string)
	for name, check := range checks {
		if err := check(); err != nil {
			failures[name] = err.Error()
		}
	}

	if len(failures) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":   "not ready",
			"failures": failures,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
	})
}

func writeJSON(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.DebugCF("health", "Failed to write response", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// Addr is the configured listen address, for logs and the chat client.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// ListenAddr formats host and port into a listen address.
func ListenAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
