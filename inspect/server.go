package inspect

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/svckit/component"
	"github.com/kbukum/svckit/config"
	"github.com/kbukum/svckit/di"
	"github.com/kbukum/svckit/logger"
)

// Source is the container view the server reports on. *di.Container
// implements it.
type Source interface {
	ID() string
	Registrations() []di.RegistrationInfo
	Resolved() []di.ResolvedEntry
}

// Info identifies the service in responses.
type Info struct {
	Service     string `json:"service"`
	Version     string `json:"version,omitempty"`
	Environment string `json:"environment,omitempty"`
}

// Server is the diagnostics HTTP server.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	source     Source
	info       Info
	log        *logger.Logger

	mu       sync.Mutex
	listener net.Listener
}

// New creates a server for source. Nothing is bound until InitializeAsync.
func New(cfg config.InspectConfig, source Source, info Info, log *logger.Logger) *Server {
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	log = log.WithComponent("inspect")

	s := &Server{
		engine: gin.New(),
		source: source,
		info:   info,
		log:    log,
	}
	s.engine.Use(recovery(log), requestID(), requestLogger(log))
	s.routes()

	h2s := &http2.Server{
		MaxConcurrentStreams: 250,
		IdleTimeout:          120 * time.Second,
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Address(),
		Handler:           h2c.NewHandler(s.engine, h2s),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// IsInitialized reports whether the server is listening.
func (s *Server) IsInitialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener != nil
}

// InitializeAsync binds the listener and starts serving in the background.
// It returns once the port is bound.
func (s *Server) InitializeAsync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("inspector failed to bind %s: %w", s.httpServer.Addr, err)
	}
	s.listener = listener

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("Inspector error", logger.Fields(logger.FieldError, err.Error()))
		}
	}()

	s.log.Info("Inspector started", logger.Fields("addr", listener.Addr().String()))
	return nil
}

// DisposeAsync shuts the server down gracefully, bounded by ctx.
func (s *Server) DisposeAsync(ctx context.Context) error {
	s.mu.Lock()
	listening := s.listener != nil
	s.listener = nil
	s.mu.Unlock()
	if !listening {
		return nil
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("inspector shutdown error: %w", err)
	}
	s.log.Info("Inspector shut down")
	return nil
}

// Addr returns the bound address while listening, else the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Health reports whether the inspector is serving.
func (s *Server) Health(ctx context.Context) component.Health {
	h := component.Health{Name: "inspector", Status: component.StatusHealthy}
	if !s.IsInitialized() {
		h.Status = component.StatusDegraded
		h.Message = "not listening"
	}
	return h
}

// Describe reports the inspector in the startup summary.
func (s *Server) Describe() component.Description {
	addr := s.Addr()
	port := 0
	if _, p, err := net.SplitHostPort(addr); err == nil {
		port, _ = strconv.Atoi(p)
	}
	return component.Description{
		Name:    "Inspector",
		Type:    "server",
		Details: "http://" + addr + "/registrations",
		Port:    port,
	}
}
