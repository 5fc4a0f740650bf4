package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"mercator-hq/windowlimit/pkg/config"
)

// ShutdownHook runs after the listener has drained.
type ShutdownHook func(ctx context.Context) error

// Server serves a handler until its context is cancelled.
type Server struct {
	config     config.ServerConfig
	handler    http.Handler
	logger     *slog.Logger
	httpServer *http.Server

	mu           sync.RWMutex
	listener     net.Listener
	hooks        []ShutdownHook
	isRunning    bool
	shutdownOnce sync.Once
}

// New creates a server for handler. cfg.ListenAddress may use port 0.
func New(cfg config.ServerConfig, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:  cfg,
		handler: handler,
		logger:  logger.With("component", "server"),
	}
}

// OnShutdown registers a hook. Hooks run in registration order.
func (s *Server) OnShutdown(hook ShutdownHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// Start listens and blocks until ctx is cancelled or serving fails, then
// shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}

	s.listener = ln
	s.httpServer = &http.Server{
		Handler:        s.handler,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "address", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.WithoutCancel(ctx))
	case err := <-errChan:
		_ = s.Shutdown(context.WithoutCancel(ctx))
		return err
	}
}

// Shutdown drains the listener and runs the shutdown hooks, all bounded by
// the configured shutdown timeout. It is safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.RLock()
		running := s.isRunning
		hooks := append([]ShutdownHook(nil), s.hooks...)
		s.mu.RUnlock()
		if !running {
			return
		}

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		if s.config.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
			defer cancel()
		}

		var errs []error
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
		}
		for _, hook := range hooks {
			if err := hook(ctx); err != nil {
				s.logger.Error("shutdown hook failed", "error", err)
				errs = append(errs, err)
			}
		}
		shutdownErr = errors.Join(errs...)

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("server stopped")
	})

	return shutdownErr
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// IsRunning returns true while the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
