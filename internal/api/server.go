package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/danghamo/posture/internal/api/handlers"
	"github.com/danghamo/posture/internal/api/middleware"
	"github.com/danghamo/posture/pkg/logger"
	"github.com/danghamo/posture/pkg/redisx"
	"github.com/danghamo/posture/pkg/sse"
)

// PipelineView is what the server reads from the posture pipeline
type PipelineView interface {
	handlers.OverlaySources
	handlers.PipelineStats
}

// Dependencies are the components the server exposes. Ingress, Events and
// Redis are optional.
type Dependencies struct {
	Pipeline PipelineView
	Ingress  handlers.IngressStats
	Events   *Events
	Redis    *redisx.Client
}

// Server represents the HTTP server
type Server struct {
	httpServer     *http.Server
	logger         *logger.Logger
	redisClient    *redisx.Client
	mux            *http.ServeMux
	statusHandler  *handlers.StatusHandler
	overlayStream  *handlers.OverlayStream
	sseBroadcaster *sse.Broadcaster
	config         ServerConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Addr             string        `json:"addr"` // host:port
	ReadTimeout      time.Duration `json:"read_timeout"`
	WriteTimeout     time.Duration `json:"write_timeout"`
	IdleTimeout      time.Duration `json:"idle_timeout"`
	StatusRatePerSec float64       `json:"status_rate_per_sec"`
	StatusRateBurst  int           `json:"status_rate_burst"`
}

// NewServer creates a new HTTP server. Alert events on deps.Events are
// forwarded to stream clients.
func NewServer(config ServerConfig, deps Dependencies, log *logger.Logger) (*Server, error) {
	if deps.Pipeline == nil {
		return nil, fmt.Errorf("server requires a pipeline")
	}

	mux := http.NewServeMux()
	apiLogger := log.WithComponent("api")

	sseBroadcaster := sse.NewBroadcaster(apiLogger)

	if deps.Events != nil {
		if err := deps.Events.ForwardToSSE(sseBroadcaster); err != nil {
			sseBroadcaster.Close()
			return nil, err
		}
	}

	server := &Server{
		httpServer: &http.Server{
			Addr:        config.Addr,
			Handler:     mux,
			ReadTimeout: config.ReadTimeout,
			// Streams stay open; a write deadline would cut them
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
		logger:         apiLogger,
		redisClient:    deps.Redis,
		mux:            mux,
		statusHandler:  handlers.NewStatusHandler(deps.Pipeline, deps.Ingress, sseBroadcaster),
		overlayStream:  handlers.NewOverlayStream(deps.Pipeline, sseBroadcaster),
		sseBroadcaster: sseBroadcaster,
		config:         config,
	}

	server.setupRoutes()
	server.setupMiddleware()

	return server, nil
}

// setupRoutes configures the server routes
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/health", s.healthCheckHandler)

	var status http.Handler = http.HandlerFunc(s.statusHandler.HandleStatus)
	if s.config.StatusRatePerSec > 0 {
		status = middleware.RateLimit(s.logger, s.config.StatusRatePerSec, s.config.StatusRateBurst)(status)
	}
	s.mux.Handle("/api/v1/status", status)

	// SSE endpoint for alert and overlay updates
	s.mux.HandleFunc("/api/v1/stream/overlay", s.sseBroadcaster.HandleSSE)
}

// setupMiddleware applies middleware to all routes
func (s *Server) setupMiddleware() {
	middlewareChain := middleware.Chain(
		middleware.Recovery(s.logger),
		middleware.CORS(),
		middleware.Logging(s.logger),
	)

	s.httpServer.Handler = middlewareChain(s.mux)
}

// Handler returns the routed handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves HTTP until ctx is done, then shuts down
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("address", s.httpServer.Addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		s.Shutdown()
		return err
	}

	return s.Shutdown()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	s.logger.Info("Shutting down HTTP server")

	s.overlayStream.Close()

	// Close client connections before the listener
	s.logger.Debug("Closing SSE broadcaster")
	s.sseBroadcaster.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("Server shutdown error", zap.Error(err))
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

type healthCheck struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type healthResponse struct {
	Status string                 `json:"status"`
	Checks map[string]healthCheck `json:"checks"`
}

// healthCheckHandler handles health check requests
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "healthy", Checks: map[string]healthCheck{}}
	code := http.StatusOK

	if s.redisClient != nil {
		if err := s.redisClient.HealthCheck(r.Context()); err != nil {
			s.logger.Error("Redis health check failed", zap.Error(err))
			resp.Status = "unhealthy"
			resp.Checks["redis"] = healthCheck{Status: "down", Error: err.Error()}
			code = http.StatusServiceUnavailable
		} else {
			resp.Checks["redis"] = healthCheck{Status: "up"}
		}
	}

	resp.Checks["stream"] = healthCheck{Status: "up"}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(resp)
}
