package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"harvest-hq/gateway/pkg/config"
	"harvest-hq/gateway/pkg/history"
	"harvest-hq/gateway/pkg/proxy"
	"harvest-hq/gateway/pkg/proxy/backend"
	"harvest-hq/gateway/pkg/proxy/handlers"
	"harvest-hq/gateway/pkg/proxy/middleware"
	"harvest-hq/gateway/pkg/proxy/types"
	"harvest-hq/gateway/pkg/telemetry/health"
	"harvest-hq/gateway/pkg/telemetry/metrics"
	"harvest-hq/gateway/pkg/telemetry/tracing"
)

// Route paths served by the gateway.
const (
	RouteChat     = "/api/chat"
	RouteGenerate = "/api/generate"
	RouteHistory  = "/api/history"
	RouteVersion  = "/version"
)

// Dependencies are the components the server routes requests to. Metrics,
// Tracer and Health are optional.
type Dependencies struct {
	Forwarder handlers.Forwarder
	Store     history.Store
	Health    *health.Checker
	Metrics   *metrics.Collector
	Tracer    *tracing.Tracer
	Version   health.VersionInfo
}

// Server is the gateway's HTTP server.
type Server struct {
	config       *config.Config
	deps         Dependencies
	httpServer   *http.Server
	listener     net.Listener
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a server for cfg. Only the server, history query and
// telemetry sections are read.
func NewServer(cfg *config.Config, deps Dependencies) *Server {
	return &Server{
		config:       cfg,
		deps:         deps,
		shutdownChan: make(chan struct{}),
	}
}

// Start listens on the configured address and serves until ctx is
// cancelled, SIGINT or SIGTERM arrives, or RequestShutdown is called.
// In-flight requests, including open streams, get ShutdownTimeout to
// finish.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	srvCfg := s.config.Server
	ln, err := net.Listen("tcp", srvCfg.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", srvCfg.ListenAddress, err)
	}

	s.listener = ln
	s.httpServer = &http.Server{
		Handler:        s.Handler(),
		ReadTimeout:    srvCfg.ReadTimeout,
		WriteTimeout:   srvCfg.WriteTimeout,
		IdleTimeout:    srvCfg.IdleTimeout,
		MaxHeaderBytes: srvCfg.MaxHeaderBytes,
	}
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting gateway server", "address", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
	case err := <-errChan:
		s.setRunning(false)
		return err
	case <-s.shutdownChan:
		slog.Info("shutdown requested")
	}
	return s.Shutdown(context.Background())
}

// RequestShutdown asks a running Start to return.
func (s *Server) RequestShutdown() {
	select {
	case <-s.shutdownChan:
	default:
		close(s.shutdownChan)
	}
}

// Shutdown stops accepting connections and waits for in-flight requests
// up to ShutdownTimeout. It is safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.RLock()
		running := s.isRunning
		s.mu.RUnlock()
		if !running {
			return
		}

		timeout := s.config.Server.ShutdownTimeout
		slog.Info("initiating graceful shutdown", "timeout", timeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.setRunning(false)
		slog.Info("gateway server stopped")
	})

	return shutdownErr
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *Server) setRunning(running bool) {
	s.mu.Lock()
	s.isRunning = running
	s.mu.Unlock()
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// setupRoutes mounts every route with its per-route middleware and wraps
// the mux in the shared chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()
	srvCfg := s.config.Server
	tel := s.config.Telemetry

	chatHandler := handlers.NewChatHandler(s.deps.Forwarder, backend.EndpointChat, srvCfg.MaxRequestBodySize)
	generateHandler := handlers.NewChatHandler(s.deps.Forwarder, backend.EndpointGenerate, srvCfg.MaxRequestBodySize)

	// Chat routes stream for as long as the model generates, so no timeout.
	mux.Handle(RouteChat, s.instrument(RouteChat, chatHandler))
	mux.Handle(RouteGenerate, s.instrument(RouteGenerate, generateHandler))

	if s.deps.Store != nil {
		historyHandler := handlers.NewHistoryHandler(s.deps.Store, s.config.History.Query)
		mux.Handle(RouteHistory, s.instrument(RouteHistory,
			middleware.TimeoutMiddleware(srvCfg.RequestTimeout)(historyHandler)))
	}

	if tel.Health.Enabled && s.deps.Health != nil {
		mux.Handle(tel.Health.LivenessPath, s.deps.Health.LivenessHandler())
		mux.Handle(tel.Health.ReadinessPath, s.deps.Health.ReadinessHandler())
	}
	v := s.deps.Version
	mux.Handle(RouteVersion, health.VersionHandler(v.Version, v.Commit, v.BuildTime))

	if tel.Metrics.Enabled && s.deps.Metrics != nil {
		mux.Handle(tel.Metrics.Path, s.deps.Metrics.Handler())
	}

	mux.HandleFunc("/", notFound)

	var handler http.Handler = mux
	handler = middleware.CORSMiddleware(srvCfg.CORS)(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.RecoveryMiddleware(handler)
	return handler
}

// instrument adds metrics and tracing for one API route.
func (s *Server) instrument(route string, h http.Handler) http.Handler {
	if s.deps.Tracer != nil {
		h = s.deps.Tracer.Middleware(route)(h)
	}
	if s.deps.Metrics != nil {
		h = middleware.MetricsMiddleware(s.deps.Metrics, route)(h)
	}
	return h
}

func notFound(w http.ResponseWriter, r *http.Request) {
	errResp := types.NewErrorResponse(http.StatusNotFound,
		fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path),
		types.ErrorTypeInvalidRequest, "")
	_ = proxy.WriteErrorResponse(w, errResp)
}
