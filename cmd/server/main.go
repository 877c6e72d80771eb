package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sd-owens/YelpCamp/internal/adapter/cache/redis"
	"github.com/sd-owens/YelpCamp/internal/adapter/email"
	"github.com/sd-owens/YelpCamp/internal/adapter/geocoder"
	"github.com/sd-owens/YelpCamp/internal/adapter/messaging/nats"
	mongoAdapter "github.com/sd-owens/YelpCamp/internal/adapter/mongo"
	"github.com/sd-owens/YelpCamp/internal/adapter/storage/s3"
	"github.com/sd-owens/YelpCamp/internal/config"
	"github.com/sd-owens/YelpCamp/internal/platform/logger"
	"github.com/sd-owens/YelpCamp/internal/platform/metrics"
	"github.com/sd-owens/YelpCamp/internal/platform/tracer"
	"github.com/sd-owens/YelpCamp/internal/usecase"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	configPath := "config.yaml"
	if cp := os.Getenv("CONFIG_PATH"); cp != "" {
		configPath = cp
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.NewLogger()
	defer appLogger.Sync()

	appLogger.Info("Configuration loaded",
		zap.String("app_name", cfg.App.Name),
		zap.String("mongo_database", cfg.Mongo.Database),
	)

	tp := tracer.InitTracer(cfg.App.Name, cfg.Tracing.OTLPEndpoint, appLogger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Failed to shut down tracer provider", zap.Error(err))
		}
	}()

	mongoClient, err := mongoAdapter.NewMongoDBConnection(&cfg.Mongo)
	if err != nil {
		appLogger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			appLogger.Error("Failed to disconnect MongoDB", zap.Error(err))
		}
	}()
	appLogger.Info("Successfully connected to MongoDB")

	indexCtx, indexCancel := context.WithTimeout(context.Background(), 10*time.Second)
	userRepo, err := mongoAdapter.NewUserMongoRepository(indexCtx, mongoClient, cfg.Mongo.Database)
	indexCancel()
	if err != nil {
		appLogger.Fatal("Failed to initialize user repository", zap.Error(err))
	}
	campgroundRepo := mongoAdapter.NewCampgroundMongoRepository(mongoClient, cfg.Mongo.Database)
	commentRepo := mongoAdapter.NewCommentMongoRepository(mongoClient, cfg.Mongo.Database)

	redisClient, err := redis.NewRedisClient(&cfg.Redis, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	cacheRepo := redis.NewRedisCacheRepository(redisClient, appLogger)

	publisher, err := nats.NewPublisher(cfg.NATS.URL, appLogger, cfg.App.Name)
	if err != nil {
		appLogger.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer publisher.Close()

	storage, err := s3.NewS3Storage(&cfg.S3, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize S3 storage", zap.Error(err))
	}

	sender := email.NewSMTPSender(&cfg.SMTP, appLogger)
	resolver := geocoder.NewHTTPGeocoder(&cfg.Geocoder, appLogger)

	mm := metrics.NewMetricsManager(cfg.App.Name)

	authUC := usecase.NewAuthUsecase(userRepo, cacheRepo, cfg.App.JWTSecret, cfg.App.SessionTTL, cfg.App.AdminSignupCode, appLogger)
	resetUC := usecase.NewPasswordResetUsecase(userRepo, sender, authUC, publisher, mm, cfg.App.BaseURL, appLogger)
	campgroundUC := usecase.NewCampgroundUsecase(campgroundRepo, userRepo, resolver, storage, sender, publisher, cacheRepo, mm, appLogger)
	commentUC := usecase.NewCommentUsecase(commentRepo, campgroundRepo, publisher, mm, appLogger)
	_ = resetUC
	_ = campgroundUC
	_ = commentUC
	appLogger.Info("Use cases initialized")

	if cfg.Metrics.Port != "" {
		go func() {
			if err := metrics.StartMetricsServer(cfg.Metrics.Port, appLogger, mm.Registry); err != nil {
				appLogger.Error("Metrics server stopped", zap.Error(err))
			}
		}()
	}

	appLogger.Info("Service setup complete")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	appLogger.Info("Shutting down", zap.String("signal", sig.String()))
}
