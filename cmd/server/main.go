package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"parking_pay_echo/internal/config"
	"parking_pay_echo/internal/handlers"
	appmw "parking_pay_echo/internal/middleware"
	"parking_pay_echo/internal/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Context cancelled on interrupt, shared by the sweeper and shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional Redis cache for the settlement account lookup
	var cache *services.RedisCache
	if cfg.RedisURL != "" {
		cache, err = services.NewRedisCache(cfg.RedisURL, logger)
		if err != nil {
			logger.Warn("Redis unavailable, settlement account caching disabled", zap.Error(err))
		} else {
			defer cache.Close()
		}
	}

	// Core services
	catalog := services.NewCatalogService(cfg.MainBackendURL)
	store := services.NewConfirmationStore(cfg.SessionTTL, logger)
	relay := services.NewRelay(logger)
	confirmations := services.NewConfirmationService(store, relay, logger)
	sessions := services.NewSessionService(
		catalog, store, cache,
		cfg.DefaultAmount, cfg.UseDynamicFee, cfg.DefaultBankCode, cfg.AccountCacheTTL,
		logger,
	)

	// Background eviction sweep
	go store.Run(ctx, cfg.SweepInterval)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = appmw.JSONErrorHandler

	// Middleware
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	// Initialize handlers
	paymentHandler := handlers.NewPaymentHandler(sessions, store)
	posHandler := handlers.NewPosHandler(catalog, confirmations)
	webhookHandler := handlers.NewWebhookHandler(store, confirmations)
	eventsHandler := handlers.NewEventsHandler(relay)

	// Payment routes
	e.GET("/api/pay/:lockId", paymentHandler.GetPaymentInfo)
	e.GET("/api/pay/:lockId/status", paymentHandler.GetSessionStatus)

	// POS routes
	e.GET("/api/pos/locker/:lockId", posHandler.GetLocker)
	e.GET("/api/pos/search", posHandler.SearchLockers)
	e.POST("/api/pos/confirm-payment", posHandler.ConfirmPayment)

	// Bank webhook and real-time channel
	e.POST("/api/webhook/sepay", webhookHandler.HandleSepay)
	e.GET("/api/events", eventsHandler.Stream)

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":    "OK",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	// Start server
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server stopped unexpectedly", zap.Error(err))
		}
	}()
	logger.Info("Server started", zap.String("port", cfg.Port), zap.String("main_backend", cfg.MainBackendURL))

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}
	relay.Close()
}
