package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"signal-engine/config"
	"signal-engine/internal/api"
	"signal-engine/internal/auth"
	"signal-engine/internal/cache"
	"signal-engine/internal/database"
	"signal-engine/internal/engine"
	"signal-engine/internal/events"
	"signal-engine/internal/logging"
	"signal-engine/internal/messaging"
	"signal-engine/internal/vault"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(&logging.Config{
		Level:       cfg.LoggingConfig.Level,
		Output:      cfg.LoggingConfig.Output,
		JSONFormat:  cfg.LoggingConfig.JSONFormat,
		IncludeFile: cfg.LoggingConfig.IncludeFile,
		Component:   "main",
	})
	logging.SetDefault(logger)
	logger.Info("Structured logging initialized")

	// Secrets from Vault override file and environment values
	if cfg.VaultConfig.Enabled {
		loadSecrets(cfg, logger)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", "error", err)
	}

	engineCfg, err := cfg.EngineConfig.ToEngineConfig()
	if err != nil {
		logger.Fatal("Invalid engine configuration", "error", err)
	}

	// Initialize event bus
	eventBus := events.NewEventBus()
	logger.Info("Event bus initialized")

	// Forward evaluation events to NATS (optional)
	var forwarder *messaging.Forwarder
	if cfg.NATSConfig.Enabled {
		forwarder, err = messaging.NewForwarder(cfg.NATSConfig)
		if err != nil {
			logger.Fatal("Failed to connect to NATS", "error", err)
		}
		forwarder.Attach(eventBus)
	}

	opts := []engine.Option{
		engine.WithPublisher(eventBus),
		engine.WithLogger(logging.WithComponent("engine")),
	}

	// Level cache (optional, degrades to recomputation)
	var cacheService *cache.CacheService
	var levelCache *cache.LevelCache
	if cfg.RedisConfig.Enabled {
		cacheService, err = cache.NewCacheService(cfg.RedisConfig)
		if err != nil {
			logger.Fatal("Failed to initialize cache", "error", err)
		}
		levelCache = cache.NewLevelCache(cacheService, cfg.RedisConfig.LevelTTL)
		opts = append(opts, engine.WithLevelCache(levelCache))
	}

	// Evaluation history (optional)
	var db *database.DB
	var repo *database.Repository
	if cfg.DatabaseConfig.Enabled {
		db, repo = setupHistory(cfg.DatabaseConfig, eventBus, logger)
	}

	eng, err := engine.New(engineCfg, opts...)
	if err != nil {
		logger.Fatal("Failed to create engine", "error", err)
	}
	logger.Info("Engine initialized",
		"pivot_method", engineCfg.Levels.Method,
		"required_bars", engineCfg.RequiredBars(),
		"workers", engineCfg.Workers,
	)

	deps := api.Dependencies{Engine: eng, EventBus: eventBus}
	if repo != nil {
		deps.History = repo
	}
	if cacheService != nil {
		deps.Cache = cacheService
		deps.Levels = levelCache
	}
	if cfg.AuthConfig.Enabled {
		deps.Auth = auth.NewJWTManager(cfg.AuthConfig.JWTSecret, cfg.AuthConfig.Issuer, 24*time.Hour)
		logger.Info("API authentication enabled", "issuer", cfg.AuthConfig.Issuer)
	}

	server := api.NewServer(cfg.ServerConfig, deps)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Web server failed", "error", err)
		}
	}()

	logger.Info("Signal engine started", "host", cfg.ServerConfig.Host, "port", cfg.ServerConfig.Port)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")

	// Graceful shutdown
	timeout := time.Duration(cfg.ServerConfig.ShutdownTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down web server", "error", err)
	}
	if cacheService != nil {
		if err := cacheService.Close(); err != nil {
			logger.Warn("Error closing cache", "error", err)
		}
	}
	if forwarder != nil {
		if err := forwarder.Close(); err != nil {
			logger.Warn("Error draining NATS connection", "error", err)
		}
	}
	if db != nil {
		db.Close()
	}

	logger.Info("Shutdown complete")
}

// loadSecrets reads service credentials from Vault into cfg
func loadSecrets(cfg *config.Config, logger *logging.Logger) {
	client, err := vault.NewClient(cfg.VaultConfig)
	if err != nil {
		logger.Fatal("Failed to initialize vault client", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Health(ctx); err != nil {
		logger.Fatal("Vault is not available", "error", err)
	}
	if err := client.Apply(ctx, cfg); err != nil {
		logger.Fatal("Failed to load secrets from vault", "error", err)
	}
}

// setupHistory connects PostgreSQL, migrates, and records every evaluation
// published on the bus
func setupHistory(cfg config.DatabaseConfig, eventBus *events.EventBus, logger *logging.Logger) (*database.DB, *database.Repository) {
	db, err := database.NewDB(database.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		Database: cfg.Database,
		SSLMode:  cfg.SSLMode,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.RunMigrations(ctx); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	repo := database.NewRepository(db)
	recorder := repo.Recorder(5 * time.Second)
	eventBus.Subscribe(events.EventSignalGenerated, recorder)
	eventBus.Subscribe(events.EventSignalHold, recorder)

	return db, repo
}
