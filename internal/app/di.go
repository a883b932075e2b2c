// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	authDomain "github.com/allisson/ocpi-hub/internal/auth/domain"
	authService "github.com/allisson/ocpi-hub/internal/auth/service"
	authorizationHTTP "github.com/allisson/ocpi-hub/internal/authorization/http"
	authorizationUseCase "github.com/allisson/ocpi-hub/internal/authorization/usecase"
	commandsHTTP "github.com/allisson/ocpi-hub/internal/commands/http"
	commandsUseCase "github.com/allisson/ocpi-hub/internal/commands/usecase"
	"github.com/allisson/ocpi-hub/internal/config"
	credentialsHTTP "github.com/allisson/ocpi-hub/internal/credentials/http"
	credentialsUseCase "github.com/allisson/ocpi-hub/internal/credentials/usecase"
	"github.com/allisson/ocpi-hub/internal/database"
	"github.com/allisson/ocpi-hub/internal/http"
	"github.com/allisson/ocpi-hub/internal/metrics"
	modulesHTTP "github.com/allisson/ocpi-hub/internal/modules/http"
	modulesRepository "github.com/allisson/ocpi-hub/internal/modules/repository"
	modulesUseCase "github.com/allisson/ocpi-hub/internal/modules/usecase"
	"github.com/allisson/ocpi-hub/internal/transport"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger *slog.Logger
	db     *sql.DB

	// Managers
	txManager database.TxManager

	// Repositories
	moduleRepo modulesUseCase.Repository

	// Use Cases and services
	moduleUseCase   modulesUseCase.UseCase
	tokenStore      *authService.TokenStore
	transportClient transport.Client
	negotiator      *credentialsUseCase.Negotiator
	dispatcher      commandsUseCase.Dispatcher
	engine          *authorizationUseCase.Engine

	// Observability
	metricsProvider *metrics.Provider
	metricsRecorder metrics.Recorder

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                  sync.Mutex
	loggerInit          sync.Once
	dbInit              sync.Once
	txManagerInit       sync.Once
	moduleRepoInit      sync.Once
	moduleUseCaseInit   sync.Once
	tokenStoreInit      sync.Once
	transportClientInit sync.Once
	negotiatorInit      sync.Once
	dispatcherInit      sync.Once
	engineInit          sync.Once
	metricsProviderInit sync.Once
	metricsRecorderInit sync.Once
	httpServerInit      sync.Once
	metricsServerInit   sync.Once
	initErrors          map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection. It returns nil without error when the
// hub is configured for the in-memory object store (empty DB_DRIVER).
func (c *Container) DB() (*sql.DB, error) {
	var err error
	c.dbInit.Do(func() {
		c.db, err = c.initDB()
		if err != nil {
			c.initErrors["db"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
// It requires a database connection to be initialized first.
func (c *Container) TxManager() (database.TxManager, error) {
	var err error
	c.txManagerInit.Do(func() {
		c.txManager, err = c.initTxManager()
		if err != nil {
			c.initErrors["txManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// ModuleRepository returns the module object repository instance, selected by
// the configured database driver.
func (c *Container) ModuleRepository() (modulesUseCase.Repository, error) {
	var err error
	c.moduleRepoInit.Do(func() {
		c.moduleRepo, err = c.initModuleRepository()
		if err != nil {
			c.initErrors["moduleRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["moduleRepo"]; exists {
		return nil, storedErr
	}
	return c.moduleRepo, nil
}

// ModuleUseCase returns the module object use case instance.
func (c *Container) ModuleUseCase() (modulesUseCase.UseCase, error) {
	var err error
	c.moduleUseCaseInit.Do(func() {
		c.moduleUseCase, err = c.initModuleUseCase()
		if err != nil {
			c.initErrors["moduleUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["moduleUseCase"]; exists {
		return nil, storedErr
	}
	return c.moduleUseCase, nil
}

// TokenStore returns the authentication token store, seeded from configuration.
func (c *Container) TokenStore() (*authService.TokenStore, error) {
	var err error
	c.tokenStoreInit.Do(func() {
		c.tokenStore, err = c.initTokenStore()
		if err != nil {
			c.initErrors["tokenStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenStore"]; exists {
		return nil, storedErr
	}
	return c.tokenStore, nil
}

// TransportClient returns the HTTP client used for outbound calls to peers.
func (c *Container) TransportClient() transport.Client {
	c.transportClientInit.Do(func() {
		c.transportClient = transport.NewHTTPClient(c.config.PeerRequestTimeout)
	})
	return c.transportClient
}

// Negotiator returns the credential negotiator instance.
func (c *Container) Negotiator() (*credentialsUseCase.Negotiator, error) {
	var err error
	c.negotiatorInit.Do(func() {
		c.negotiator, err = c.initNegotiator()
		if err != nil {
			c.initErrors["negotiator"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["negotiator"]; exists {
		return nil, storedErr
	}
	return c.negotiator, nil
}

// Dispatcher returns the command dispatcher instance.
func (c *Container) Dispatcher() (commandsUseCase.Dispatcher, error) {
	var err error
	c.dispatcherInit.Do(func() {
		c.dispatcher, err = c.initDispatcher()
		if err != nil {
			c.initErrors["dispatcher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["dispatcher"]; exists {
		return nil, storedErr
	}
	return c.dispatcher, nil
}

// AuthorizationEngine returns the token authorization engine instance.
func (c *Container) AuthorizationEngine() (*authorizationUseCase.Engine, error) {
	var err error
	c.engineInit.Do(func() {
		c.engine, err = c.initAuthorizationEngine()
		if err != nil {
			c.initErrors["engine"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["engine"]; exists {
		return nil, storedErr
	}
	return c.engine, nil
}

// MetricsProvider returns the metrics provider instance. It returns nil
// without error when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		c.metricsProvider, err = c.initMetricsProvider()
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// MetricsRecorder returns the business metrics recorder. It is a no-op
// recorder when metrics are disabled.
func (c *Container) MetricsRecorder() (metrics.Recorder, error) {
	var err error
	c.metricsRecorderInit.Do(func() {
		c.metricsRecorder, err = c.initMetricsRecorder()
		if err != nil {
			c.initErrors["metricsRecorder"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsRecorder"]; exists {
		return nil, storedErr
	}
	return c.metricsRecorder, nil
}

// HTTPServer returns the HTTP server instance.
func (c *Container) HTTPServer() (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics HTTP server instance. It returns nil
// without error when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		c.metricsServer, err = c.initMetricsServer()
		if err != nil {
			c.initErrors["metricsServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	// Shutdown HTTP servers if initialized
	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}
	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	// Stop the dispatcher so command timeout watchers drain before storage
	// goes away
	if c.dispatcher != nil {
		c.dispatcher.Stop()
	}

	// Close database connection if initialized
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	// Flush the metrics pipeline last
	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	// Return combined errors if any occurred
	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	if c.config.DBDriver == "" {
		return nil, nil
	}

	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initTxManager creates the transaction manager using the database connection.
func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	if db == nil {
		return nil, fmt.Errorf("transaction manager requires a SQL database driver")
	}
	return database.NewTxManager(db), nil
}

// initModuleRepository creates the module object repository instance.
func (c *Container) initModuleRepository() (modulesUseCase.Repository, error) {
	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "":
		return modulesRepository.NewMemoryModuleRepository(), nil
	case "mysql", "postgres":
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for module repository: %w", err)
		}
		txManager, err := c.TxManager()
		if err != nil {
			return nil, fmt.Errorf("failed to get tx manager for module repository: %w", err)
		}
		if c.config.DBDriver == "mysql" {
			return modulesRepository.NewMySQLModuleRepository(db, txManager), nil
		}
		return modulesRepository.NewPostgreSQLModuleRepository(db, txManager), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initModuleUseCase creates the module object use case with all its dependencies.
func (c *Container) initModuleUseCase() (modulesUseCase.UseCase, error) {
	repo, err := c.ModuleRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get module repository for module use case: %w", err)
	}

	recorder, err := c.MetricsRecorder()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics recorder for module use case: %w", err)
	}

	useCase := modulesUseCase.NewModuleUseCase(repo, c.config.ListDefaultLimit, c.config.ListMaxLimit)
	return modulesUseCase.NewUseCaseWithMetrics(useCase, recorder), nil
}

// initTokenStore creates the token store and seeds it from configuration.
func (c *Container) initTokenStore() (*authService.TokenStore, error) {
	store := authService.NewTokenStore()

	for _, token := range c.config.TokensA {
		if _, err := store.Add(authDomain.TokenA, token); err != nil {
			return nil, fmt.Errorf("failed to seed token A: %w", err)
		}
	}
	for _, token := range c.config.TokensC {
		if _, err := store.Add(authDomain.TokenC, token); err != nil {
			return nil, fmt.Errorf("failed to seed token C: %w", err)
		}
	}

	return store, nil
}

// initNegotiator creates the credential negotiator with all its dependencies.
func (c *Container) initNegotiator() (*credentialsUseCase.Negotiator, error) {
	tokenStore, err := c.TokenStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get token store for negotiator: %w", err)
	}

	moduleUseCase, err := c.ModuleUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get module use case for negotiator: %w", err)
	}

	return credentialsUseCase.NewNegotiator(
		c.TransportClient(),
		tokenStore,
		moduleUseCase,
		c.config,
		c.Logger(),
	), nil
}

// initDispatcher creates the command dispatcher with all its dependencies.
func (c *Container) initDispatcher() (commandsUseCase.Dispatcher, error) {
	negotiator, err := c.Negotiator()
	if err != nil {
		return nil, fmt.Errorf("failed to get negotiator for dispatcher: %w", err)
	}

	moduleUseCase, err := c.ModuleUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get module use case for dispatcher: %w", err)
	}

	recorder, err := c.MetricsRecorder()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics recorder for dispatcher: %w", err)
	}

	dispatcher := commandsUseCase.NewDispatcher(
		c.TransportClient(),
		negotiator,
		moduleUseCase,
		c.config,
		c.Logger(),
	)
	return commandsUseCase.NewDispatcherWithMetrics(dispatcher, recorder), nil
}

// initAuthorizationEngine creates the token authorization engine. Business
// token data is consulted first, the raw token store acts as the fallback.
func (c *Container) initAuthorizationEngine() (*authorizationUseCase.Engine, error) {
	tokenStore, err := c.TokenStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get token store for authorization engine: %w", err)
	}

	moduleUseCase, err := c.ModuleUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get module use case for authorization engine: %w", err)
	}

	return authorizationUseCase.NewEngine(
		c.Logger(),
		authorizationUseCase.NewContractPolicy(moduleUseCase, c.config.CountryCode, c.config.PartyID),
		authorizationUseCase.NewTokenStorePolicy(tokenStore),
	), nil
}

// initMetricsProvider creates the metrics provider when metrics are enabled.
func (c *Container) initMetricsProvider() (*metrics.Provider, error) {
	if !c.config.MetricsEnabled {
		return nil, nil
	}

	provider, err := metrics.NewProvider(c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics provider: %w", err)
	}
	return provider, nil
}

// initMetricsRecorder creates the business metrics recorder.
func (c *Container) initMetricsRecorder() (metrics.Recorder, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for recorder: %w", err)
	}
	if provider == nil {
		return metrics.NewNoOpRecorder(), nil
	}

	recorder, err := metrics.NewRecorder(provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics recorder: %w", err)
	}
	return recorder, nil
}

// initHTTPServer creates the HTTP server with all its dependencies.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	tokenStore, err := c.TokenStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get token store for http server: %w", err)
	}

	moduleUseCase, err := c.ModuleUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get module use case for http server: %w", err)
	}

	negotiator, err := c.Negotiator()
	if err != nil {
		return nil, fmt.Errorf("failed to get negotiator for http server: %w", err)
	}

	dispatcher, err := c.Dispatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to get dispatcher for http server: %w", err)
	}

	engine, err := c.AuthorizationEngine()
	if err != nil {
		return nil, fmt.Errorf("failed to get authorization engine for http server: %w", err)
	}

	metricsProvider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, logger)
	server.SetupRouter(http.RouterConfig{
		Config:             c.config,
		TokenStore:         tokenStore,
		Negotiator:         negotiator,
		MetricsProvider:    metricsProvider,
		VersionsHandler:    credentialsHTTP.NewVersionsHandler(c.config, logger),
		CredentialsHandler: credentialsHTTP.NewCredentialsHandler(negotiator, logger),
		ModuleHandler:      modulesHTTP.NewModuleHandler(moduleUseCase, c.config.ListDefaultLimit, c.config.ListMaxLimit, logger),
		CommandHandler:     commandsHTTP.NewCommandHandler(dispatcher, logger),
		AuthorizeHandler:   authorizationHTTP.NewAuthorizeHandler(engine, logger),
	})

	return server, nil
}

// initMetricsServer creates the metrics HTTP server when metrics are enabled.
func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	if !c.config.MetricsEnabled {
		return nil, nil
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}

	return http.NewMetricsServer(
		c.config.ServerHost,
		c.config.MetricsPort,
		c.Logger(),
		provider,
	), nil
}
