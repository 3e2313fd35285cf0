package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"restronaut/internal/config"
	"restronaut/internal/logging"
)

// maxRequestBytes caps ingress bodies.
const maxRequestBytes = 10 << 20

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  *Daemon
	ingress config.Ingress
	now     func() time.Time

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.API.Bind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:    bind,
		logger:  logger,
		daemon:  d,
		ingress: cfg.Ingress,
		now:     time.Now,
	}
	if cfg.API.APIKey == "" {
		logging.WarnWithContext(srv.log(), "api key not configured; ingress endpoints are open", "api_unauthenticated",
			logging.String(logging.FieldErrorHint, "set api.api_key or RESTRONAUT_API_KEY"),
			logging.String(logging.FieldImpact, "anyone who can reach the bind address can drop files"),
		)
	}

	srv.server = &http.Server{
		Handler:           authMiddleware(cfg.API.APIKey, srv.routes()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/notifications/test", s.handleTestNotification)
	mux.HandleFunc("POST /api/order", s.handleOrder)
	mux.HandleFunc("POST /api/order/curbside", s.handleCurbside)
	mux.HandleFunc("POST /misc/create-file", s.handleCreateFile)
	return mux
}

func (s *apiServer) listen() error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// serve blocks until ctx is cancelled, then shuts the server down.
func (s *apiServer) serve(ctx context.Context) error {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener == nil {
		return errors.New("api server not listening")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.log().Warn("api server shutdown incomplete", logging.Error(err))
	}
	return nil
}

func (s *apiServer) address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status())
}

func (s *apiServer) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	sent, message, err := s.daemon.TestNotification(r.Context())
	if err != nil {
		s.writeJSON(w, http.StatusBadGateway, map[string]any{"sent": false, "message": message, "error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"sent": sent, "message": message})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return logging.NewComponentLogger(s.logger, "api-server")
	}
	return logging.NewNop()
}
