package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"store_service/config"
	"store_service/internal/delivery"
	grpcHandler "store_service/internal/delivery/grpc"
	"store_service/internal/domain"
	"store_service/internal/events"
	"store_service/internal/middleware"
	"store_service/internal/repository"
	"store_service/internal/usecase"
	"store_service/pkg/db"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
)

func main() {
	logger := setupLogger("info")

	cfg := config.LoadConfig(logger)

	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warnf("Invalid log level '%s' in config, using default 'info'. Error: %v", cfg.LogLevel, err)
	} else {
		logger.SetLevel(logLevel)
	}
	logger.Info("Starting Store Service...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Connecting to database...")
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Errorf("Error closing database connection: %v", err)
		} else {
			logger.Info("Database connection closed.")
		}
	}()
	logger.Info("Database connection established successfully.")

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, database); err != nil {
			logger.Fatalf("Failed to apply schema: %v", err)
		}
		logger.Info("Database schema is up to date.")
	}

	var publisher domain.EventPublisher = events.NewLogPublisher(logger)
	if cfg.RedisURL != "" {
		redisClient, err := events.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		publisher = events.NewRedisPublisher(redisClient, cfg.EventsChannel, logger)
		logger.Infof("Publishing order events to Redis channel '%s'", cfg.EventsChannel)
	}

	tx := repository.NewTransactor(database, logger)
	categoryRepo := repository.NewPostgresCategoryRepository(database, logger)
	productRepo := repository.NewPostgresProductRepository(database, logger)
	cartRepo := repository.NewPostgresCartRepository(database, logger)
	orderRepo := repository.NewPostgresOrderRepository(database, logger)
	userRepo := repository.NewPostgresUserRepository(database, logger)

	orderUseCase := usecase.NewOrderUseCase(tx, orderRepo, cartRepo, productRepo, publisher, cfg.TaxRateDecimal(), logger)

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger)
	go limiter.Run(ctx, time.Minute)

	if logLevel != logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	router := delivery.NewRouter(delivery.RouterDeps{
		Log:            logger,
		AuthMode:       cfg.AuthMode,
		JWTSecret:      cfg.JWTSecret,
		TrustedProxies: cfg.TrustedProxies,
		Limiter:        limiter,
		DB:             database,
		Categories:     usecase.NewCategoryUseCase(categoryRepo, logger),
		Products:       usecase.NewProductUseCase(productRepo, categoryRepo, logger),
		Carts:          usecase.NewCartUseCase(tx, cartRepo, productRepo, cfg.CartTTL, logger),
		Orders:         orderUseCase,
		Accounts:       usecase.NewAccountUseCase(tx, userRepo, cartRepo, cfg.CartTTL, logger),
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
	}).Handler(router)

	httpServer := &http.Server{
		Addr:              cfg.HTTPPort,
		Handler:           corsHandler,
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	grpcServer, healthServer := grpcHandler.NewServer(orderUseCase, logger)
	lis, err := net.Listen("tcp", cfg.GrpcPort)
	if err != nil {
		logger.Fatalf("Failed to listen on port %s: %v", cfg.GrpcPort, err)
	}

	go func() {
		logger.Infof("gRPC server listening on %s", cfg.GrpcPort)
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.Fatalf("Failed to serve gRPC: %v", err)
		}
		logger.Info("gRPC server stopped serving.")
	}()

	go func() {
		logger.Infof("HTTP server listening on %s", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to serve HTTP: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Warn("Shutdown signal received...")

	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("HTTP server forced to shut down: %v", err)
	} else {
		logger.Info("HTTP server gracefully stopped.")
	}

	logger.Info("Attempting graceful shutdown of gRPC server...")
	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
		logger.Info("gRPC server gracefully stopped.")
	case <-shutdownCtx.Done():
		grpcServer.Stop()
		logger.Warn("gRPC server did not stop in time and was stopped forcefully.")
	}

	logger.Info("Store Service shut down gracefully.")
}

func setupLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logger.Warnf("Invalid log level '%s', using default 'info'. Error: %v", level, err)
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	return logger
}
