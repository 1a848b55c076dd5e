// Package server exposes the session controller over HTTP: a websocket per
// viewer plus a health endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xkilldash9x/autopilot/internal/config"
	"github.com/xkilldash9x/autopilot/internal/registry"
)

// Controller is the session surface the server drives.
type Controller interface {
	Connect(userID string, sender registry.Sender)
	Disconnect(userID string, sender registry.Sender)
	Start(userID string) error
	Stop(userID string)
}

const shutdownTimeout = 30 * time.Second

// Server hosts the control plane.
type Server struct {
	cfg      config.ServerConfig
	ctrl     Controller
	auth     *Authenticator
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	wg      sync.WaitGroup
}

// New builds a server. The JWT secret must be configured.
func New(cfg config.ServerConfig, ctrl Controller, logger *zap.Logger) (*Server, error) {
	auth, err := NewAuthenticator(cfg.JWTSecret)
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:     cfg,
		ctrl:    ctrl,
		auth:    auth,
		logger:  logger.Named("server"),
		clients: make(map[*client]struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return s, nil
}

// originChecker allows the listed origins, any origin for "*", and falls
// back to the same-origin rule when the list is empty.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/healthz"))
	r.Use(s.requestLogger)

	r.Group(func(r chi.Router) {
		r.Use(s.auth.requireUser)
		r.Get("/ws", s.handleWS)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("Request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Failed to upgrade websocket", zap.Error(err))
		return
	}
	c := &client{
		id:     uuid.NewString(),
		userID: userID,
		conn:   conn,
		server: s,
		send:   make(chan []byte, sendBufferSize),
	}
	c.logger = s.logger.With(zap.String("user_id", userID), zap.String("client_id", c.id))

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.wg.Add(2)

	c.logger.Info("Viewer connected")
	s.ctrl.Connect(userID, c)

	go func() {
		defer s.wg.Done()
		c.writePump()
	}()
	go func() {
		defer s.wg.Done()
		c.readPump()
	}()
}

func (s *Server) forget(c *client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	c.logger.Info("Viewer disconnected")
}

// CloseClients drops every viewer connection and waits for their pumps.
func (s *Server) CloseClients(ctx context.Context) error {
	s.mu.Lock()
	for c := range s.clients {
		c.conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Control plane listening", zap.String("address", s.cfg.Addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down control plane")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := httpServer.Shutdown(shutdownCtx)
	if cerr := s.CloseClients(shutdownCtx); err == nil {
		err = cerr
	}
	<-errCh
	return err
}
