package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
)

// MCPEndpointPath is where the MCP streamable HTTP transport is mounted.
const MCPEndpointPath = "/mcp"

// Config configures an AppointmentServer.
type Config struct {
	Addr string

	// CORSOrigins lists allowed origins; "*" or empty allows all.
	CORSOrigins []string

	// MCPServer, when set, is exposed at MCPEndpointPath.
	MCPServer *mcpserver.MCPServer

	Version string
	Logger  *slog.Logger
}

// AppointmentServer is the public HTTP listener: the appointment
// endpoints, health probes and the optional MCP endpoint.
type AppointmentServer struct {
	sc      *ServerContext
	health  *HealthChecker
	handler http.Handler
	addr    string
	logger  *slog.Logger

	mu         sync.Mutex
	httpServer *http.Server
}

// NewAppointmentServer builds the routes and middleware stack.
func NewAppointmentServer(sc *ServerContext, cfg Config) (*AppointmentServer, error) {
	if sc == nil {
		return nil, errors.New("server context is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = sc.Logger()
	}

	s := &AppointmentServer{
		sc:     sc,
		health: NewHealthChecker(sc, cfg.Version),
		addr:   cfg.Addr,
		logger: logger.With("component", "http"),
	}

	mux := http.NewServeMux()
	NewAppointmentHandlers(sc).Register(mux)
	s.health.RegisterHealthEndpoints(mux)
	if cfg.MCPServer != nil {
		mux.Handle(MCPEndpointPath, mcpserver.NewStreamableHTTPServer(cfg.MCPServer,
			mcpserver.WithEndpointPath(MCPEndpointPath),
		))
	}

	s.handler = chain(mux,
		RecoveryMiddleware(s.logger),
		RequestIDMiddleware,
		CORSMiddleware(cfg.CORSOrigins),
		AccessLogMiddleware(s.logger, sc.Metrics()),
	)
	return s, nil
}

// Handler returns the fully wrapped handler.
func (s *AppointmentServer) Handler() http.Handler {
	return s.handler
}

// Health returns the server's health checker.
func (s *AppointmentServer) Health() *HealthChecker {
	return s.health
}

// Addr returns the configured listen address.
func (s *AppointmentServer) Addr() string {
	return s.addr
}

// Start listens on the configured address and serves until Shutdown.
func (s *AppointmentServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown. It returns nil after a clean shutdown.
func (s *AppointmentServer) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.sc.Context() },
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	s.logger.Info("starting appointments server", "addr", ln.Addr().String())
	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown marks the server not ready, cancels the server context and
// waits for in-flight requests.
func (s *AppointmentServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	var err error
	if srv != nil {
		s.logger.Info("shutting down appointments server")
		err = srv.Shutdown(ctx)
	}
	_ = s.sc.Shutdown()
	return err
}
