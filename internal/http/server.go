// Package http provides the API server: router setup, middleware chain and
// the OCPI route surface.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authHTTP "github.com/allisson/ocpi-hub/internal/auth/http"
	authService "github.com/allisson/ocpi-hub/internal/auth/service"
	authorizationHTTP "github.com/allisson/ocpi-hub/internal/authorization/http"
	commandsHTTP "github.com/allisson/ocpi-hub/internal/commands/http"
	"github.com/allisson/ocpi-hub/internal/config"
	credentialsHTTP "github.com/allisson/ocpi-hub/internal/credentials/http"
	credentialsUseCase "github.com/allisson/ocpi-hub/internal/credentials/usecase"
	"github.com/allisson/ocpi-hub/internal/metrics"
	modulesHTTP "github.com/allisson/ocpi-hub/internal/modules/http"
)

// Server is the main API server.
type Server struct {
	db     *sql.DB
	host   string
	port   int
	logger *slog.Logger
	router *gin.Engine
	server *http.Server
}

// NewServer creates a new API server. db may be nil when the hub runs on the
// in-memory object store.
func NewServer(db *sql.DB, host string, port int, logger *slog.Logger) *Server {
	return &Server{
		db:     db,
		host:   host,
		port:   port,
		logger: logger,
	}
}

// RouterConfig carries everything SetupRouter needs to build the route
// surface.
type RouterConfig struct {
	Config             *config.Config
	TokenStore         *authService.TokenStore
	Negotiator         *credentialsUseCase.Negotiator
	MetricsProvider    *metrics.Provider
	VersionsHandler    *credentialsHTTP.VersionsHandler
	CredentialsHandler *credentialsHTTP.CredentialsHandler
	ModuleHandler      *modulesHTTP.ModuleHandler
	CommandHandler     *commandsHTTP.CommandHandler
	AuthorizeHandler   *authorizationHTTP.AuthorizeHandler
}

// SetupRouter builds the gin router with the full middleware chain and OCPI
// route surface.
//
// Route layout:
//   - /health, /ready                      unauthenticated probes
//   - /ocpi/versions, /ocpi/emsp/2.2.1     version discovery (token required)
//   - /ocpi/emsp/2.2.1/credentials         registration handshake (token required)
//   - /ocpi/emsp/2.2.1/...                 everything else requires a completed
//     registration on top of a valid token
func (s *Server) SetupRouter(rc RouterConfig) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(
		rc.Config.CORSEnabled,
		rc.Config.CORSAllowOrigins,
		s.logger,
	); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if rc.MetricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(
			rc.MetricsProvider.MeterProvider(),
			rc.Config.MetricsNamespace,
		))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	authenticated := router.Group(
		"/ocpi",
		authHTTP.AuthenticationMiddleware(rc.TokenStore, s.logger),
	)

	// Version discovery is available to any party holding a valid token,
	// registered or not; peers need it to complete the handshake.
	authenticated.GET("/versions", rc.VersionsHandler.ListHandler)
	authenticated.GET("/emsp/2.2.1", rc.VersionsHandler.DetailsHandler)

	credentials := authenticated.Group("/emsp/2.2.1/credentials")
	{
		credentials.GET("", rc.CredentialsHandler.GetHandler)
		credentials.POST("", rc.CredentialsHandler.RegisterHandler)
		credentials.PUT("", rc.CredentialsHandler.UpdateHandler)
		credentials.DELETE("", rc.CredentialsHandler.DeleteHandler)
	}

	registered := authenticated.Group(
		"/emsp/2.2.1",
		credentialsHTTP.RequireRegisteredMiddleware(rc.Negotiator, s.logger),
	)

	commands := registered.Group("/commands")
	if rc.Config.RateLimitEnabled {
		commands.Use(authHTTP.RateLimitMiddleware(
			rc.Config.RateLimitRequestsPerSec,
			rc.Config.RateLimitBurst,
			s.logger,
		))
	}
	{
		commands.POST("/:type", rc.CommandHandler.SendHandler)
		commands.POST("/:type/:command_id", rc.CommandHandler.CallbackHandler)
		commands.GET("/:type/:command_id", rc.CommandHandler.StatusHandler)
	}

	registered.POST("/tokens/:token_uid/authorize", rc.AuthorizeHandler.AuthorizeHandler)

	modules := registered.Group("/:module")
	{
		modules.GET("", rc.ModuleHandler.ListHandler)
		modules.POST("", rc.ModuleHandler.CreateHandler)
		modules.GET("/:country_code/:party_id/:id", rc.ModuleHandler.GetHandler)
		modules.PUT("/:country_code/:party_id/:id", rc.ModuleHandler.PutHandler)
		modules.PATCH("/:country_code/:party_id/:id", rc.ModuleHandler.PatchHandler)
		modules.DELETE("/:country_code/:party_id/:id", rc.ModuleHandler.DeleteHandler)
	}

	s.router = router
}

// GetHandler returns the configured router for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start starts the API server.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.host, s.port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the hub can serve traffic. With SQL storage
// configured the database must answer a ping; the in-memory store is always
// ready.
func (s *Server) readinessHandler(c *gin.Context) {
	components := gin.H{}

	if s.db == nil {
		components["storage"] = "memory"
		c.JSON(http.StatusOK, gin.H{"status": "ready", "components": components})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		components["database"] = "error"
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "components": components})
		return
	}

	components["database"] = "ok"
	c.JSON(http.StatusOK, gin.H{"status": "ready", "components": components})
}
