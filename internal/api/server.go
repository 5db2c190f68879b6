package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/recurring-ledger/internal/api/handlers"
	"github.com/eshaffer321/recurring-ledger/internal/api/middleware"
	"github.com/eshaffer321/recurring-ledger/internal/application/tracker"
	"github.com/eshaffer321/recurring-ledger/internal/domain/detector"
)

// Config holds API server configuration.
type Config struct {
	Host           string
	Port           int
	AllowedOrigins []string
	Mode           string // gin mode: release, debug or test

	// Detection holds the defaults used when /api/detect omits its params.
	Detection detector.Options
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:           8085,
		AllowedOrigins: middleware.DefaultCORSConfig().AllowedOrigins,
		Mode:           gin.ReleaseMode,
		Detection:      detector.Options{MinOccurrences: 3, LookbackMonths: 12},
	}
}

// Server is the HTTP API server.
type Server struct {
	config     Config
	router     *gin.Engine
	httpServer *http.Server
	logger     *slog.Logger
	tracker    *tracker.Tracker
}

// NewServer creates a new API server.
func NewServer(cfg Config, t *tracker.Tracker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	s := &Server{
		config:  cfg,
		router:  gin.New(),
		logger:  logger,
		tracker: t,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.Logging(s.logger, "/health"))
	s.router.Use(middleware.CORS(middleware.CORSConfig{AllowedOrigins: s.config.AllowedOrigins}))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	s.router.GET("/health", handlers.NewHealthHandler().Check)

	base := handlers.NewBase(s.tracker, s.logger)
	servicesHandler := handlers.NewServicesHandler(base)
	paymentsHandler := handlers.NewPaymentsHandler(base)
	detectionHandler := handlers.NewDetectionHandler(base, s.config.Detection)
	transactionsHandler := handlers.NewTransactionsHandler(base)
	categoriesHandler := handlers.NewCategoriesHandler(base)

	api := s.router.Group("/api", middleware.RequireUser())
	{
		api.GET("/detect", detectionHandler.Detect)

		api.POST("/services/confirm", detectionHandler.Confirm)
		api.POST("/services/recalculate", servicesHandler.Recalculate)
		api.POST("/services", servicesHandler.Create)
		api.GET("/services", servicesHandler.List)
		api.GET("/services/:id", servicesHandler.Get)
		api.PATCH("/services/:id", servicesHandler.Update)
		api.DELETE("/services/:id", servicesHandler.Delete)
		api.GET("/services/:id/payments", paymentsHandler.ListForService)
		api.POST("/services/:id/payments", paymentsHandler.Link)

		api.DELETE("/payments/:id", paymentsHandler.Unlink)
		api.GET("/payments/upcoming", paymentsHandler.Upcoming)
		api.GET("/payments/month/:year/:month", paymentsHandler.Month)

		api.POST("/transactions", transactionsHandler.Import)
		api.GET("/transactions", transactionsHandler.List)
		api.GET("/transactions/:id/matches", transactionsHandler.Matches)

		api.POST("/categories", categoriesHandler.Upsert)
		api.GET("/categories", categoriesHandler.List)
	}
}

// Router returns the HTTP handler, for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server. It blocks until the server is shut down.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "address", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
