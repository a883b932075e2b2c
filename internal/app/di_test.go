package app

import (
	"context"
	"testing"
	"time"

	"github.com/allisson/ocpi-hub/internal/config"
)

func memoryConfig() *config.Config {
	return &config.Config{
		LogLevel:           "info",
		ServerHost:         "localhost",
		ServerPort:         8080,
		BaseURL:            "http://localhost:8080",
		CountryCode:        "NL",
		PartyID:            "EMS",
		PartyName:          "Test Hub",
		CommandTimeout:     30 * time.Second,
		PeerRequestTimeout: 15 * time.Second,
		ListDefaultLimit:   50,
		ListMaxLimit:       200,
		TokensA:            []string{"token-a-1"},
		TokensC:            []string{"token-c-1"},
	}
}

// TestNewContainer verifies that a new container can be created with a valid configuration.
func TestNewContainer(t *testing.T) {
	cfg := memoryConfig()

	container := NewContainer(cfg)

	if container == nil {
		t.Fatal("expected non-nil container")
	}

	if container.Config() != cfg {
		t.Error("container config does not match provided config")
	}
}

// TestContainerLogger verifies that the logger can be retrieved from the container.
func TestContainerLogger(t *testing.T) {
	cfg := &config.Config{
		LogLevel: "debug",
	}

	container := NewContainer(cfg)
	logger := container.Logger()

	if logger == nil {
		t.Fatal("expected non-nil logger")
	}

	// Calling Logger() again should return the same instance (singleton)
	logger2 := container.Logger()
	if logger != logger2 {
		t.Error("expected same logger instance on multiple calls")
	}
}

// TestContainerLoggerDefaultLevel verifies that logger defaults to info level.
func TestContainerLoggerDefaultLevel(t *testing.T) {
	cfg := &config.Config{
		LogLevel: "invalid",
	}

	container := NewContainer(cfg)
	logger := container.Logger()

	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
}

// TestContainerMemoryMode verifies the wiring of the full component graph when
// no database driver is configured.
func TestContainerMemoryMode(t *testing.T) {
	container := NewContainer(memoryConfig())

	db, err := container.DB()
	if err != nil {
		t.Fatalf("unexpected error from DB(): %v", err)
	}
	if db != nil {
		t.Error("expected nil database in memory mode")
	}

	if _, err := container.TxManager(); err == nil {
		t.Error("expected error from TxManager() in memory mode")
	}

	tokenStore, err := container.TokenStore()
	if err != nil {
		t.Fatalf("unexpected error from TokenStore(): %v", err)
	}
	if !tokenStore.Validate("token-a-1") {
		t.Error("expected seeded token A to validate")
	}
	if !tokenStore.Validate("token-c-1") {
		t.Error("expected seeded token C to validate")
	}

	if _, err := container.ModuleUseCase(); err != nil {
		t.Fatalf("unexpected error from ModuleUseCase(): %v", err)
	}
	if _, err := container.Negotiator(); err != nil {
		t.Fatalf("unexpected error from Negotiator(): %v", err)
	}
	if _, err := container.Dispatcher(); err != nil {
		t.Fatalf("unexpected error from Dispatcher(): %v", err)
	}
	if _, err := container.AuthorizationEngine(); err != nil {
		t.Fatalf("unexpected error from AuthorizationEngine(): %v", err)
	}

	server, err := container.HTTPServer()
	if err != nil {
		t.Fatalf("unexpected error from HTTPServer(): %v", err)
	}
	if server == nil {
		t.Fatal("expected non-nil http server")
	}
	if server.GetHandler() == nil {
		t.Error("expected router to be configured")
	}

	if err := container.Shutdown(context.TODO()); err != nil {
		t.Errorf("unexpected error during shutdown: %v", err)
	}
}

// TestContainerMetricsDisabled verifies that metrics components degrade to
// no-ops when metrics are disabled.
func TestContainerMetricsDisabled(t *testing.T) {
	container := NewContainer(memoryConfig())

	provider, err := container.MetricsProvider()
	if err != nil {
		t.Fatalf("unexpected error from MetricsProvider(): %v", err)
	}
	if provider != nil {
		t.Error("expected nil metrics provider when metrics are disabled")
	}

	recorder, err := container.MetricsRecorder()
	if err != nil {
		t.Fatalf("unexpected error from MetricsRecorder(): %v", err)
	}
	if recorder == nil {
		t.Error("expected no-op metrics recorder when metrics are disabled")
	}

	metricsServer, err := container.MetricsServer()
	if err != nil {
		t.Fatalf("unexpected error from MetricsServer(): %v", err)
	}
	if metricsServer != nil {
		t.Error("expected nil metrics server when metrics are disabled")
	}
}

// TestContainerMetricsEnabled verifies that the metrics pipeline is built when
// metrics are enabled.
func TestContainerMetricsEnabled(t *testing.T) {
	cfg := memoryConfig()
	cfg.MetricsEnabled = true
	cfg.MetricsNamespace = "test_ocpi"
	cfg.MetricsPort = 9090

	container := NewContainer(cfg)

	provider, err := container.MetricsProvider()
	if err != nil {
		t.Fatalf("unexpected error from MetricsProvider(): %v", err)
	}
	if provider == nil {
		t.Fatal("expected non-nil metrics provider")
	}

	metricsServer, err := container.MetricsServer()
	if err != nil {
		t.Fatalf("unexpected error from MetricsServer(): %v", err)
	}
	if metricsServer == nil {
		t.Fatal("expected non-nil metrics server")
	}

	if err := container.Shutdown(context.TODO()); err != nil {
		t.Errorf("unexpected error during shutdown: %v", err)
	}
}

// TestContainerInitializationErrors verifies that initialization errors are properly handled.
func TestContainerInitializationErrors(t *testing.T) {
	// Create a container with invalid database configuration
	cfg := &config.Config{
		DBDriver:           "invalid_driver",
		DBConnectionString: "",
	}

	container := NewContainer(cfg)

	// Attempting to get DB should return an error
	_, err := container.DB()
	if err == nil {
		t.Error("expected error when connecting with invalid config")
	}

	// Attempting to get DB again should return the same error
	_, err2 := container.DB()
	if err2 == nil {
		t.Error("expected error on second call to DB()")
	}

	// The module repository rejects drivers it has no implementation for
	if _, err := container.ModuleRepository(); err == nil {
		t.Error("expected error from ModuleRepository() with invalid driver")
	}
}

// TestContainerLazyInitialization verifies that components are only initialized when accessed.
func TestContainerLazyInitialization(t *testing.T) {
	cfg := &config.Config{
		LogLevel: "info",
	}

	container := NewContainer(cfg)

	// At this point, no components should be initialized
	if container.logger != nil {
		t.Error("expected logger to be nil before first access")
	}

	// Access logger
	logger := container.Logger()
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}

	// Now logger should be initialized
	if container.logger == nil {
		t.Error("expected logger to be initialized after access")
	}
}

// TestContainerShutdown verifies that the shutdown method can be called safely.
func TestContainerShutdown(t *testing.T) {
	cfg := &config.Config{
		LogLevel: "info",
	}

	container := NewContainer(cfg)

	// Shutdown should not fail even if no components are initialized
	if err := container.Shutdown(context.TODO()); err != nil {
		t.Errorf("unexpected error during shutdown: %v", err)
	}
}
