package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authDomain "github.com/allisson/ocpi-hub/internal/auth/domain"
	authService "github.com/allisson/ocpi-hub/internal/auth/service"
	authorizationHTTP "github.com/allisson/ocpi-hub/internal/authorization/http"
	authorizationUseCase "github.com/allisson/ocpi-hub/internal/authorization/usecase"
	commandsHTTP "github.com/allisson/ocpi-hub/internal/commands/http"
	commandsUseCase "github.com/allisson/ocpi-hub/internal/commands/usecase"
	"github.com/allisson/ocpi-hub/internal/config"
	credentialsHTTP "github.com/allisson/ocpi-hub/internal/credentials/http"
	credentialsUseCase "github.com/allisson/ocpi-hub/internal/credentials/usecase"
	"github.com/allisson/ocpi-hub/internal/metrics"
	modulesHTTP "github.com/allisson/ocpi-hub/internal/modules/http"
	modulesRepository "github.com/allisson/ocpi-hub/internal/modules/repository"
	modulesUseCase "github.com/allisson/ocpi-hub/internal/modules/usecase"
	"github.com/allisson/ocpi-hub/internal/transport"
)

// TestMain sets Gin to test mode for all tests in this package.
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// createTestServer creates a test server with a discarding logger.
func createTestServer() *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(nil, "localhost", 0, logger)
}

func testConfig() *config.Config {
	return &config.Config{
		BaseURL:                 "http://emsp.example.com",
		CountryCode:             "NL",
		PartyID:                 "EXA",
		PartyName:               "Example EMSP",
		CommandTimeout:          30 * time.Second,
		ListDefaultLimit:        50,
		ListMaxLimit:            200,
		RateLimitEnabled:        true,
		RateLimitRequestsPerSec: 100,
		RateLimitBurst:          100,
		MetricsNamespace:        "test_ocpi",
	}
}

// setupFullServer wires a server with the complete route surface on in-memory
// backends, seeding registrationToken as a Token A.
func setupFullServer(t *testing.T, registrationToken string) *Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig()

	tokenStore := authService.NewTokenStore()
	if registrationToken != "" {
		_, err := tokenStore.Add(authDomain.TokenA, registrationToken)
		require.NoError(t, err)
	}

	moduleStore := modulesUseCase.NewModuleUseCase(modulesRepository.NewMemoryModuleRepository(), 50, 200)
	client := transport.NewHTTPClient(time.Second)
	negotiator := credentialsUseCase.NewNegotiator(client, tokenStore, moduleStore, cfg, logger)
	dispatcher := commandsUseCase.NewDispatcher(client, negotiator, moduleStore, cfg, logger)
	t.Cleanup(dispatcher.Stop)
	engine := authorizationUseCase.NewEngine(
		logger,
		authorizationUseCase.NewContractPolicy(moduleStore, cfg.CountryCode, cfg.PartyID),
		authorizationUseCase.NewTokenStorePolicy(tokenStore),
	)

	server := createTestServer()
	server.SetupRouter(RouterConfig{
		Config:             cfg,
		TokenStore:         tokenStore,
		Negotiator:         negotiator,
		VersionsHandler:    credentialsHTTP.NewVersionsHandler(cfg, logger),
		CredentialsHandler: credentialsHTTP.NewCredentialsHandler(negotiator, logger),
		ModuleHandler:      modulesHTTP.NewModuleHandler(moduleStore, 50, 200, logger),
		CommandHandler:     commandsHTTP.NewCommandHandler(dispatcher, logger),
		AuthorizeHandler:   authorizationHTTP.NewAuthorizeHandler(engine, logger),
	})
	return server
}

// TestHealthHandler tests the health check endpoint handler.
func TestHealthHandler(t *testing.T) {
	server := createTestServer()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	server.healthHandler(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "healthy", response["status"])
}

// TestReadinessHandler_MemoryStore tests readiness without SQL storage.
func TestReadinessHandler_MemoryStore(t *testing.T) {
	server := createTestServer()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)

	server.readinessHandler(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "ready", response["status"])

	components, ok := response["components"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "memory", components["storage"])
}

// TestReadinessHandler_Database tests readiness against the database ping.
func TestReadinessHandler_Database(t *testing.T) {
	t.Run("Ready_PingSucceeds", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectPing()

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		server := NewServer(db, "localhost", 0, logger)

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)

		server.readinessHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotReady_PingFails", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectPing().WillReturnError(context.DeadlineExceeded)

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		server := NewServer(db, "localhost", 0, logger)

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)

		server.readinessHandler(c)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "not_ready", response["status"])

		components, ok := response["components"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "error", components["database"])
	})
}

// TestCustomLoggerMiddleware tests the custom logging middleware.
func TestCustomLoggerMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := gin.New()
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(logger))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "test"})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "test", response["message"])
}

// TestRecoveryMiddleware tests Gin's built-in recovery middleware.
func TestRecoveryMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(CustomLoggerMiddleware(logger))
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/panic", nil)

	// Should not panic - Recovery middleware catches it
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// TestRequestIDMiddleware_HeaderPresent verifies X-Request-Id header is present in response.
func TestRequestIDMiddleware_HeaderPresent(t *testing.T) {
	router := gin.New()
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "test"})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	requestID := w.Header().Get("X-Request-Id")
	assert.NotEmpty(t, requestID, "X-Request-Id header should be present")

	parsedUUID, err := uuid.Parse(requestID)
	require.NoError(t, err, "X-Request-Id should be a valid UUID")
	assert.NotEqual(t, uuid.Nil, parsedUUID, "X-Request-Id should not be nil UUID")
}

// TestRouter_FullSurface exercises the assembled router end to end.
func TestRouter_FullSurface(t *testing.T) {
	server := setupFullServer(t, "registration-token")
	handler := server.GetHandler()

	do := func(method, path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Token "+token)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	t.Run("HealthEndpoint", func(t *testing.T) {
		w := do(http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("ReadyEndpoint", func(t *testing.T) {
		w := do(http.MethodGet, "/ready", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Versions_RequiresToken", func(t *testing.T) {
		w := do(http.MethodGet, "/ocpi/versions", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Versions_WithToken", func(t *testing.T) {
		w := do(http.MethodGet, "/ocpi/versions", "registration-token")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"2.2.1"`)
	})

	t.Run("VersionDetails_WithToken", func(t *testing.T) {
		w := do(http.MethodGet, "/ocpi/emsp/2.2.1", "registration-token")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"credentials"`)
	})

	t.Run("Credentials_NoRegistrationRequired", func(t *testing.T) {
		w := do(http.MethodGet, "/ocpi/emsp/2.2.1/credentials", "registration-token")
		// The handler refuses because no handshake happened, but the request
		// passes authentication and routing.
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Modules_RequireRegistration", func(t *testing.T) {
		w := do(http.MethodGet, "/ocpi/emsp/2.2.1/locations", "registration-token")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Commands_RequireRegistration", func(t *testing.T) {
		w := do(http.MethodGet, "/ocpi/emsp/2.2.1/commands/START_SESSION/some-id", "registration-token")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Authorize_RequiresRegistration", func(t *testing.T) {
		w := do(http.MethodPost, "/ocpi/emsp/2.2.1/tokens/DEADBEEF/authorize", "registration-token")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("NoMetricsEndpoint", func(t *testing.T) {
		w := do(http.MethodGet, "/metrics", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("NotFoundEndpoint", func(t *testing.T) {
		w := do(http.MethodGet, "/nonexistent", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

// TestServer_ShutdownGracefully tests graceful server shutdown.
func TestServer_ShutdownGracefully(t *testing.T) {
	server := createTestServer()
	server.router = gin.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = ctx

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(context.Background()); err != nil {
			errChan <- err
		}
	}()

	// Give server time to start
	time.Sleep(100 * time.Millisecond)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	err := server.Shutdown(shutdownCtx)
	assert.NoError(t, err)

	select {
	case err := <-errChan:
		t.Fatalf("server startup failed: %v", err)
	default:
	}
}

// TestMetricsServer_Endpoints tests the metrics server endpoints.
func TestMetricsServer_Endpoints(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	provider, err := metrics.NewProvider("test_ocpi")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	metricsServer := NewMetricsServer("localhost", 0, logger, provider)
	require.NotNil(t, metricsServer)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	metricsServer.GetHandler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
}
