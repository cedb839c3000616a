// FitStack Bookings Service
//
// This is the main entry point for the booking and payment reconciliation
// service. It wires up all dependencies and starts the HTTP server.
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fitstack/fitstack-bookings/config"
	"github.com/fitstack/fitstack-bookings/internal/adapters/mercadopago"
	"github.com/fitstack/fitstack-bookings/internal/adapters/postgres"
	"github.com/fitstack/fitstack-bookings/internal/adapters/rabbitmq"
	"github.com/fitstack/fitstack-bookings/internal/api"
	"github.com/fitstack/fitstack-bookings/internal/auth"
	"github.com/fitstack/fitstack-bookings/internal/core/ports"
	"github.com/fitstack/fitstack-bookings/internal/core/service"
	"github.com/fitstack/fitstack-bookings/internal/platform/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	zlog, err := logger.New(cfg.Server.GinMode != "release")
	if err != nil {
		log.Fatalf("Logger error: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	zlog.Info("starting fitstack-bookings",
		zap.String("port", cfg.Server.Port))

	// Infrastructure
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		zlog.Fatal("database open failed", zap.Error(err))
	}
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	var publisher ports.EventPublisher = rabbitmq.Noop{}
	if cfg.Broker.URL != "" {
		p, err := rabbitmq.NewPublisher(cfg.Broker.URL, zlog)
		if err != nil {
			zlog.Warn("broker unavailable, events disabled", zap.Error(err))
		} else {
			defer p.Close()
			publisher = p
		}
	}

	bookingRepo := postgres.NewBookingRepository(db)
	userRepo := postgres.NewUserRepository(db)
	gateway := mercadopago.NewAdapter(cfg.Provider.AccessToken)
	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// Services
	bookingSvc := service.NewBookingService(bookingRepo, zlog)
	paymentSvc := service.NewPaymentService(bookingRepo, gateway, cfg.Provider.ReturnURL, zlog)
	reconcileSvc := service.NewReconcileService(bookingRepo, rdb, publisher, zlog)
	authSvc := service.NewAuthService(userRepo, rdb, issuer, zlog)

	// API
	handler := api.NewHandler(bookingSvc, paymentSvc, reconcileSvc, authSvc)
	router := api.SetupRouter(handler, issuer, cfg.Server.GinMode)

	serverAddr := fmt.Sprintf(":%s", cfg.Server.Port)
	go func() {
		zlog.Info("server listening", zap.String("addr", serverAddr))
		if err := router.Run(serverAddr); err != nil {
			zlog.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down server")
}

// validateConfig checks that required configuration values are set.
func validateConfig(cfg *config.Config) error {
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("FITSTACK_AUTH_JWT_SECRET is required")
	}
	if cfg.Provider.AccessToken == "" {
		log.Println("Warning: FITSTACK_PROVIDER_ACCESS_TOKEN not set")
	}
	return nil
}
