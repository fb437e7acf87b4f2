package web

import (
	"context"
	"io/fs"
	"log"
	"net/http"
	"time"

	"github.com/yuewuo/AutoLock/internal/lock"
)

// Server wraps the HTTP server and handlers.
type Server struct {
	addr     string
	handlers *Handlers
}

// NewServer creates a server configured for the given address and dependencies.
func NewServer(addr string, ctrl *lock.Controller, broadcaster *StatusBroadcaster, steps StepSizes) *Server {
	subFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		log.Fatalf("web: failed to sub static fs: %v", err)
	}

	return &Server{
		addr:     addr,
		handlers: NewHandlers(ctrl, broadcaster, steps, subFS),
	}
}

// Mux returns an http.Handler with all routes registered.
func (s *Server) Mux() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /status", s.handlers.HandleStatus)
	mux.HandleFunc("GET /status/stream", s.handlers.HandleStatusStream)
	mux.HandleFunc("POST /step", s.handlers.HandleStep)
	mux.HandleFunc("POST /set_center", s.handlers.HandleSetCenter)
	mux.HandleFunc("POST /set_lock", s.handlers.HandleSetLock)
	mux.HandleFunc("POST /set_unlock", s.handlers.HandleSetUnlock)
	mux.HandleFunc("POST /lock", s.handlers.HandleLock)
	mux.HandleFunc("POST /unlock", s.handlers.HandleUnlock)
	mux.HandleFunc("POST /mode", s.handlers.HandleMode)
	mux.HandleFunc("GET /{$}", s.handlers.ServeIndex) // exact match for root only

	return withCORS(mux)
}

// withCORS adds permissive CORS headers and answers preflight
// requests, so the control page can be served from elsewhere during
// development (same behavior as the device firmware).
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	log.Printf("web server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, s.Mux())
}

// Run starts the server and blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Mux()}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("web server listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
