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

	"market-edge-engine/internal/engine/config"
	delivery "market-edge-engine/internal/engine/delivery/http"
	_ "market-edge-engine/internal/engine/docs"
	"market-edge-engine/internal/engine/repository"
	"market-edge-engine/internal/engine/service"
	"market-edge-engine/pkg/logger"
	"market-edge-engine/pkg/postgres"
	"market-edge-engine/pkg/redis"
	"market-edge-engine/pkg/telegram"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	swagger "github.com/swaggo/echo-swagger"
	"google.golang.org/genai"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the engine service",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting Engine Service", logger.Field("name", cfg.App.Name))

	// Initialize database
	postgresCfg := postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}
	db, err := postgres.NewDB(postgresCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		defer sqlDB.Close()
	}

	// Initialize Redis
	redisCfg := redis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}
	redisClient, err := redis.NewClient(redisCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize Redis", logger.ErrorField(err))
	}
	defer redisClient.Close()
	lockManager := redis.NewLockManager(redisClient)

	// Initialize Gemini client
	genAiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.Gemini.APIKey,
	})
	if err != nil {
		appLogger.Fatal("Failed to initialize Gemini client", logger.ErrorField(err))
	}

	// Initialize Telegram notifier
	var notifier telegram.Notifier = telegram.NoopNotifier{}
	if cfg.Telegram.BotToken != "" {
		notifier, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			appLogger.Fatal("Failed to initialize Telegram notifier", logger.ErrorField(err))
		}
	}

	// Initialize repositories
	marketRepo := repository.NewMarketRepository(db.DB)
	snapshotRepo := repository.NewMarketSnapshotRepository(db.DB)
	estimateRepo := repository.NewAIEstimateRepository(db.DB)
	recommendationRepo := repository.NewRecommendationRepository(db.DB)
	scanJobRepo := repository.NewScanJobRepository(db.DB)
	tradeRepo := repository.NewTradeRepository(db.DB)
	settingsRepo := repository.NewEngineSettingsRepository(db.DB)

	researchRepo := repository.NewResearchRepository(cfg.Research, appLogger)
	estimatorRepo, err := repository.NewGeminiEstimatorRepository(cfg, appLogger, genAiClient, researchRepo)
	if err != nil {
		appLogger.Fatal("Failed to initialize estimator", logger.ErrorField(err))
	}
	sources := []repository.MarketSourceRepository{
		repository.NewPolymarketRepository(cfg.Polymarket, appLogger),
		repository.NewKalshiRepository(cfg.Kalshi, appLogger),
	}
	tradeGateway := repository.NewPaperTradeGateway(marketRepo, snapshotRepo, settingsRepo, appLogger)

	// Initialize services
	settingsSvc := service.NewSettingsService(settingsRepo, appLogger)
	recommendationSvc := service.NewRecommendationService(
		marketRepo, snapshotRepo, estimateRepo, recommendationRepo,
		estimatorRepo, lockManager, notifier, appLogger,
	)
	scanSvc := service.NewScanService(
		cfg.Scanner, scanJobRepo, marketRepo, snapshotRepo, sources,
		settingsSvc, recommendationSvc, lockManager, appLogger,
	)
	performanceSvc := service.NewPerformanceService(recommendationRepo, tradeRepo, appLogger)
	tradeSvc := service.NewTradeService(tradeRepo, marketRepo, recommendationRepo, tradeGateway, appLogger)
	marketSvc := service.NewMarketService(marketRepo, snapshotRepo, estimateRepo, appLogger)

	schedulerSvc := service.NewSchedulerService(scanSvc, settingsSvc, recommendationSvc, marketRepo, sources, appLogger)
	if err := schedulerSvc.Start(); err != nil {
		appLogger.Fatal("Failed to start scheduler", logger.ErrorField(err))
	}
	defer schedulerSvc.Stop()

	// Initialize Echo server
	e := echo.New()
	e.HideBanner = true

	// Initialize handlers and routes
	apiV1 := e.Group("/api/v1")

	scanHandler := delivery.NewScanHandler(scanSvc, appLogger)
	scanHandler.RegisterRoutes(apiV1.Group("/scan"))

	recommendationHandler := delivery.NewRecommendationHandler(recommendationSvc, appLogger)
	recommendationHandler.RegisterRoutes(apiV1.Group("/recommendations"))

	marketHandler := delivery.NewMarketHandler(marketSvc, appLogger)
	marketHandler.RegisterRoutes(apiV1.Group("/markets"))

	tradeHandler := delivery.NewTradeHandler(tradeSvc, appLogger)
	tradeHandler.RegisterRoutes(apiV1.Group("/trades"))

	performanceHandler := delivery.NewPerformanceHandler(performanceSvc, appLogger)
	performanceHandler.RegisterRoutes(apiV1.Group("/performance"))

	settingsHandler := delivery.NewSettingsHandler(settingsSvc, appLogger)
	settingsHandler.RegisterRoutes(apiV1.Group("/settings"))

	e.GET("/swagger/*", swagger.WrapHandler)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.API.Port)
		appLogger.Info("HTTP server starting", logger.Field("address", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed to start", logger.ErrorField(err))
			stop() // trigger shutdown
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	appLogger.Info("Shutting down server...")

	// Gracefully shutdown the server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	appLogger.Info("Server exiting")
}

// @title Market Edge Engine API
// @version 1.0
// @description Decision engine for binary prediction markets.
// @BasePath /api/v1
func main() {
	rootCmd := &cobra.Command{Use: "engine-service"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing engine-service CLI: %s\n", err)
		os.Exit(1)
	}
}
