// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/property-portfolio/internal/config"
	apperrors "github.com/property-portfolio/internal/errors"
	"github.com/property-portfolio/internal/logging"
	"github.com/property-portfolio/internal/models"
	"github.com/property-portfolio/internal/query"
	"github.com/property-portfolio/internal/service"
)

// Service interfaces for dependency injection and testing

// PortfolioServiceInterface defines the portfolio operations the API needs.
type PortfolioServiceInterface interface {
	List(ctx context.Context) ([]*models.Portfolio, error)
	Get(ctx context.Context, id int64) (*models.Portfolio, error)
	Create(ctx context.Context, changes service.PortfolioChanges) (*models.Portfolio, error)
	Update(ctx context.Context, id int64, changes service.PortfolioChanges, partial bool) (*models.Portfolio, error)
	Delete(ctx context.Context, id int64) error
}

// PropertyServiceInterface defines the property operations the API needs.
type PropertyServiceInterface interface {
	List(ctx context.Context, q *query.PropertyQuery) (*service.PropertyPage, error)
	Get(ctx context.Context, id int64) (*models.Property, error)
	Create(ctx context.Context, changes service.PropertyChanges) (*models.Property, error)
	Update(ctx context.Context, id int64, changes service.PropertyChanges, partial bool) (*models.Property, error)
	Delete(ctx context.Context, id int64) error
}

// HealthChecker reports whether the database is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP API server.
type Server struct {
	router           http.Handler
	httpServer       *http.Server
	portfolioService PortfolioServiceInterface
	propertyService  PropertyServiceInterface
	health           HealthChecker
	throttle         Throttle
	clients          *ClientIPResolver
	logger           *logging.Logger
	config           *config.Config
	pageOptions      query.PageOptions
}

// NewServer creates a new API server instance. A nil throttle disables
// request throttling.
func NewServer(
	cfg *config.Config,
	portfolioService PortfolioServiceInterface,
	propertyService PropertyServiceInterface,
	health HealthChecker,
	throttle Throttle,
	logger *logging.Logger,
) *Server {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	s := &Server{
		portfolioService: portfolioService,
		propertyService:  propertyService,
		health:           health,
		throttle:         throttle,
		logger:           logger,
		config:           cfg,
		pageOptions: query.PageOptions{
			DefaultPageSize: cfg.Pagination.PageSize,
			MaxPageSize:     cfg.Pagination.MaxPageSize,
		},
	}

	clients, err := NewClientIPResolver(cfg.Security.TrustedProxies)
	if err != nil {
		logger.WithError(err).Warn("Ignoring trusted proxies, X-Forwarded-For will not be honored")
		clients = &ClientIPResolver{}
	}
	s.clients = clients

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, apperrors.NewRouteNotFoundError(r.URL.Path))
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, apperrors.NewMethodNotAllowedError(r.Method))
	})

	s.setupRoutes(router)

	// Outer middleware also covers unmatched routes and CORS preflights.
	var handler http.Handler = router
	handler = AllowedHostsMiddleware(s.config.Security.AllowedHosts)(handler)
	handler = RecoveryMiddleware(handler)
	handler = LoggingMiddleware(s.logger, s.clients.ClientIP)(handler)
	handler = NewCORS(s.config.Security.CORSAllowedOrigins, s.config.Security.Debug).Handler(handler)
	s.router = handler

	s.httpServer = &http.Server{
		Addr:         s.config.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}
}

// setupRoutes configures all API routes. Every resource path is served with
// and without a trailing slash.
func (s *Server) setupRoutes(router *mux.Router) {
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	if s.throttle != nil {
		api.Use(RateLimitMiddleware(s.throttle, s.clients.ClientIP))
	}

	// Portfolio endpoints
	api.HandleFunc("/portfolios{slash:/?}", s.handleListPortfolios).Methods(http.MethodGet)
	api.HandleFunc("/portfolios{slash:/?}", s.handleCreatePortfolio).Methods(http.MethodPost)
	api.HandleFunc("/portfolios/{id:[0-9]+}{slash:/?}", s.handleGetPortfolio).Methods(http.MethodGet)
	api.HandleFunc("/portfolios/{id:[0-9]+}{slash:/?}", s.handleUpdatePortfolio).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/portfolios/{id:[0-9]+}{slash:/?}", s.handleDeletePortfolio).Methods(http.MethodDelete)

	// Property endpoints
	api.HandleFunc("/properties{slash:/?}", s.handleListProperties).Methods(http.MethodGet)
	api.HandleFunc("/properties{slash:/?}", s.handleCreateProperty).Methods(http.MethodPost)
	api.HandleFunc("/properties/{id:[0-9]+}{slash:/?}", s.handleGetProperty).Methods(http.MethodGet)
	api.HandleFunc("/properties/{id:[0-9]+}{slash:/?}", s.handleUpdateProperty).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/properties/{id:[0-9]+}{slash:/?}", s.handleDeleteProperty).Methods(http.MethodDelete)
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server...")
	return s.httpServer.Shutdown(ctx)
}
