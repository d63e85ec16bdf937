package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"web3loc/internal/api"
	"web3loc/internal/config"
	"web3loc/internal/database"
	"web3loc/internal/discovery"
	"web3loc/internal/explorer"
	"web3loc/internal/scanner"
	"web3loc/internal/service"
	"web3loc/internal/worker"

	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := initLogger()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting Web3.LOC Contract Discovery Service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger.Info("Configuration loaded",
		zap.Int("server_port", cfg.Server.Port),
		zap.String("db_host", cfg.Database.Host),
		zap.Strings("chains", cfg.ChainNames()))

	// Connect to database
	db, err := database.Connect(database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	// Run migrations
	migrationPath := "internal/database/migrations/001_schema.sql"
	if err := database.RunMigrations(db, migrationPath); err != nil {
		logger.Warn("Failed to run migrations (may already be applied)", zap.Error(err))
	} else {
		logger.Info("Database migrations applied successfully")
	}

	// Initialize explorer clients for each configured chain
	fetchers := make(map[string]scanner.Fetcher)
	candidates := make(map[string][]string)
	for name, chainCfg := range cfg.Chains {
		client, err := explorer.NewClient(chainCfg, cfg.Scan.HTTPTimeout, logger.Named("explorer"))
		if err != nil {
			logger.Fatal("Failed to create explorer client",
				zap.String("chain", name),
				zap.Error(err))
		}
		fetchers[name] = client
		candidates[name] = chainCfg.CandidateAddresses
	}

	// Initialize discovery pipeline
	orchestrator := discovery.NewOrchestrator(fetchers, candidates, logger)
	discoveryService := service.NewDiscoveryService(orchestrator, db, logger)

	logger.Info("Services initialized")

	// Probe explorer reachability; failures are logged but not fatal, a chain
	// can recover before its first scheduled scan.
	probeCtx, probeCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := orchestrator.VerifyConnectivity(probeCtx); err != nil {
		logger.Warn("Some explorers are unreachable", zap.Error(err))
	}
	probeCancel()

	// Initialize API handlers
	apiHandler := api.NewHandler(db, discoveryService, logger)
	router := api.SetupRouter(apiHandler, logger)

	// Create HTTP server
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server",
			zap.String("addr", serverAddr))
		serverErrors <- httpServer.ListenAndServe()
	}()

	// Start background scheduler when an interval is configured
	var workerManager *worker.Manager
	if cfg.Scan.Interval > 0 {
		workerManager = worker.NewManager(discoveryService, cfg.Scan.Interval, cfg.Scan.LimitPerChain, logger)
		workerManager.Start()
		logger.Info("Discovery scheduler started",
			zap.Duration("interval", cfg.Scan.Interval))
	} else {
		logger.Info("Discovery scheduler disabled, runs are API-triggered only")
	}

	logger.Info("Service initialized successfully",
		zap.String("status", "ready"),
		zap.Int("port", cfg.Server.Port))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Wait for interrupt signal or server error
	select {
	case err := <-serverErrors:
		logger.Fatal("HTTP server error", zap.Error(err))
	case sig := <-quit:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	}

	logger.Info("Shutting down service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Stop the scheduler first so no new discovery cycle starts mid-shutdown
	if workerManager != nil {
		if err := workerManager.Shutdown(10 * time.Second); err != nil {
			logger.Error("Scheduler shutdown error", zap.Error(err))
		}
	}

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
		httpServer.Close()
	} else {
		logger.Info("HTTP server stopped gracefully")
	}

	logger.Info("Service stopped successfully")
}

func initLogger() (*zap.Logger, error) {
	env := os.Getenv("ENV")
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
