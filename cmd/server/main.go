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

	"github.com/gin-gonic/gin"
	"github.com/nutriscan-backend/internal/config"
	"github.com/nutriscan-backend/internal/handler"
	"github.com/nutriscan-backend/internal/logging"
	"github.com/nutriscan-backend/internal/metrics"
	"github.com/nutriscan-backend/internal/middleware"
	"github.com/nutriscan-backend/internal/models"
	"github.com/nutriscan-backend/internal/predictor"
	"github.com/nutriscan-backend/internal/repository"
	"github.com/nutriscan-backend/internal/service"
	"github.com/nutriscan-backend/internal/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Build info (injected at build time via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logging.Init(cfg.Log.Dir); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}

	metrics.Init(cfg.Metrics.Prefix)

	// Set Gin mode
	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize Redis
	rdb := initRedis(cfg)

	// Auto migrate database
	if err := autoMigrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Initialize blob store
	ctx := context.Background()
	blobs, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize blob storage: %v", err)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	analysisRepo := repository.NewAnalysisRepository(db)
	sessions := repository.NewSessionStore(rdb, time.Duration(cfg.Session.TTLSeconds)*time.Second)

	// Initialize services
	authService := service.NewAuthService(userRepo, sessions, cfg.Session.Secret)
	predictionClient := predictor.NewClient(cfg.Predictor)
	analysisService := service.NewAnalysisService(analysisRepo, blobs, predictionClient)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, cfg.Session)
	analysisHandler := handler.NewAnalysisHandler(analysisService)
	imageHandler := handler.NewImageHandler(analysisService)

	// Create Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLoggerMiddleware())
	router.Use(middleware.MetricsMiddleware())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"version":    Version,
			"commit":     Commit,
			"build_time": BuildTime,
			"time":       time.Now().Unix(),
		})
	})

	// Prometheus endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	root := router.Group("/")
	{
		authMiddleware := middleware.AuthMiddleware(authService, cfg.Session.CookieName)
		authHandler.RegisterRoutes(root, authMiddleware)
		analysisHandler.RegisterRoutes(root, authMiddleware)
		imageHandler.RegisterRoutes(root, authMiddleware)
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		logging.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Server forced to shutdown: %v", err)
	}

	if err := rdb.Close(); err != nil {
		logging.Error("Failed to close Redis: %v", err)
	}

	logging.Info("Server exited")
}

func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	logLevel := gormlogger.Warn
	if cfg.Server.Mode == "debug" {
		logLevel = gormlogger.Info
	}

	return gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.FoodImage{},
		&models.Analysis{},
	)
}
