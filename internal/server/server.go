// Package server implements the relay server: it admits connections into the
// registry and runs one session per admitted connection.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

// Server owns the registry and spawns sessions for accepted connections from
// any transport.
type Server struct {
	cfg     Config
	log     *slog.Logger
	reg     *Registry
	metrics *Metrics
	origins *originPolicy

	wg sync.WaitGroup
}

// New creates a Server with an empty registry.
func New(cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = sanitizeConfig(cfg)
	metrics := NewMetrics()
	return &Server{
		cfg:     cfg,
		log:     logger,
		reg:     NewRegistry(logger, metrics),
		metrics: metrics,
		origins: newOriginPolicy(cfg.AllowedOrigins, logger),
	}
}

// Registry returns the server's client registry.
func (s *Server) Registry() *Registry {
	return s.reg
}

// Accept registers c and starts its session. When the registry is full the
// connection is told so and closed before Accept returns; the registry is not
// touched.
func (s *Server) Accept(c LineConn) {
	id, err := s.reg.Register(c)
	if err != nil {
		_ = c.Send(msgServerFull)
		_ = c.Close()
		s.metrics.connectionRejected()
		s.log.Info("client.rejected", "addr", c.RemoteAddr(), "reason", err)
		return
	}

	if err := c.Send(fmt.Sprintf(msgWelcomeID, id)); err != nil {
		s.log.Debug("client.welcome_failed", "id", id, "err", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		newSession(s, c).run()
	}()
}

// ListenAndServe listens on the configured TCP port and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Port)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Port, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done or ln is closed. It closes
// ln on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.log.Info("server.listening", "addr", ln.Addr().String(), "capacity", MaxClients)

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	defer func() { _ = ln.Close() }()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			s.log.Error("server.accept", "err", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}
		s.log.Debug("server.accepted", "addr", conn.RemoteAddr().String())
		s.Accept(NewTCPConn(conn, s.cfg.MaxMessageSize, s.cfg.WriteTimeout))
	}
}

// Shutdown disconnects every client and waits for their sessions to finish,
// or until the timeout is reached.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.log.Info("server.shutdown.start")

	closed := s.reg.CloseAll()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("server.shutdown.complete", "closed", closed)
		return nil
	case <-time.After(timeout):
		s.log.Warn("server.shutdown.timeout", "closed", closed)
		return context.DeadlineExceeded
	}
}
