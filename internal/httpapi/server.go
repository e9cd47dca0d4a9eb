// Package httpapi exposes the bridge over HTTP: the Chatwoot webhook
// endpoint, session lifecycle management, per-session Chatwoot bindings,
// and a WebSocket feed of transport events.
package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Handler registers a group of routes on the server mux.
type Handler interface {
	RegisterRoutes(mux *http.ServeMux)
}

// Server is the HTTP front of the bridge.
type Server struct {
	addr     string
	log      *slog.Logger
	handlers []Handler

	mux        *http.ServeMux
	httpServer *http.Server
}

// NewServer creates a server hosting the given handler groups.
func NewServer(addr string, log *slog.Logger, handlers ...Handler) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{addr: addr, log: log, handlers: handlers}
}

// BuildMux creates and caches the mux with all routes registered.
func (s *Server) BuildMux() *http.ServeMux {
	if s.mux != nil {
		return s.mux
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	for _, h := range s.handlers {
		h.RegisterRoutes(mux)
	}

	s.mux = mux
	return mux
}

// Start listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.BuildMux(),
	}

	s.log.Info("http api starting", "addr", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http api: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
