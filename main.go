// File: notifyhub/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notifyhub/config"
	"notifyhub/cron"
	"notifyhub/database"
	deliveryRepoPkg "notifyhub/database/repository/delivery"
	notificationRepoPkg "notifyhub/database/repository/notification"
	preferenceRepoPkg "notifyhub/database/repository/preference"
	reminderRepoPkg "notifyhub/database/repository/reminder"
	"notifyhub/handlers"
	"notifyhub/middleware"
	"notifyhub/routes"
	"notifyhub/services/email"
	"notifyhub/services/notification"
	"notifyhub/services/push"
	"notifyhub/services/ratelimit"
	"notifyhub/services/realtime"
	"notifyhub/services/resilience"
	"notifyhub/services/scanner"
	"notifyhub/services/scheduler"
	"notifyhub/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	zap.ReplaceGlobals(logger)

	database.InitDB()
	utils.InitCache()
	utils.InitRateLimitCache()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	// repositories.
	notificationRepo := notificationRepoPkg.NewMongoNotificationRepo()
	reminderRepo := reminderRepoPkg.NewMongoReminderRepo()
	preferenceRepo := preferenceRepoPkg.NewMongoPreferenceRepo()
	deliveryRepo := deliveryRepoPkg.NewMongoDeliveryLogRepo()

	// rate limiting: distributed fixed-window counters in Redis.
	limiter := ratelimit.NewLimiter(ratelimit.NewRedisCounterStore(utils.GetRateLimitClient()), logger)
	limits := ratelimit.NewRegistry(limiter,
		ratelimit.Policy{
			Name:    ratelimit.ActionCreate,
			Window:  config.AppConfig.CreateRateWindow,
			Ceiling: config.AppConfig.CreateRateCeiling,
		},
		ratelimit.Policy{
			Name:    ratelimit.ActionBroadcast,
			Window:  config.AppConfig.BroadcastRateWindow,
			Ceiling: config.AppConfig.BroadcastRateCeiling,
		},
		ratelimit.Policy{
			Name:    ratelimit.ActionUpgrade,
			Window:  config.AppConfig.WSRateWindow,
			Ceiling: config.AppConfig.WSRateCeiling,
		},
	)

	// resilience: retry policy plus per-dependency circuit breakers.
	retryCfg := resilience.RetryConfig{
		MaxAttempts: config.AppConfig.RetryMaxAttempts,
		BaseDelay:   config.AppConfig.RetryBaseDelay,
		MaxDelay:    config.AppConfig.RetryMaxDelay,
		Multiplier:  config.AppConfig.RetryMultiplier,
		Jitter:      config.AppConfig.RetryJitter,
	}
	breakerCfg := resilience.BreakerConfig{
		FailureThreshold:  config.AppConfig.BreakerFailureThreshold,
		RecoveryTimeout:   config.AppConfig.BreakerRecoveryTimeout,
		SuccessesRequired: config.AppConfig.BreakerSuccessesRequired,
	}
	registry := resilience.NewRegistry(logger, retryCfg, breakerCfg)
	registry.Register(resilience.DepEmail, breakerCfg)
	registry.Register(resilience.DepPush, breakerCfg)
	registry.Register(resilience.DepScan, breakerCfg)

	// connection coordinator.
	hub := realtime.NewHub(logger, config.AppConfig.ConnIdleTimeout, config.AppConfig.HeartbeatInterval)
	hubStop := make(chan struct{})
	go hub.Run(hubStop)

	// delivery channels.
	sender := email.NewSMTPSender()
	var pusher push.Pusher
	if config.AppConfig.FirebaseServiceAccountKeyPath != "" {
		utils.FirebaseInit()
		pusher = push.NewFCMPusher(utils.FCMClient)
	}

	// services.
	notificationService := &notification.DefaultService{
		Notifications: notificationRepo,
		Preferences:   preferenceRepo,
		Reminders:     reminderRepo,
		Deliveries:    deliveryRepo,
		Hub:           hub,
		Email:         sender,
		Pusher:        pusher,
		Resilience:    registry,
		Limits:        limits,
		Logger:        logger,
	}

	sweeper := scheduler.NewSweeper(
		reminderRepo,
		notificationRepo,
		preferenceRepo,
		deliveryRepo,
		hub,
		sender,
		pusher,
		registry,
		config.AppConfig.SweepBatchSize,
		logger,
	)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	cron.InitReminderWorker(workerCtx, sweeper, config.AppConfig.SweepInterval, logger)

	utils.StartHealthMonitor(
		[]*redis.Client{utils.GetCacheClient(), utils.GetRateLimitClient()},
		database.MongoClient,
		hub.Total,
		registry.States,
	)

	// handlers and routes.
	notificationHandler := handlers.NewNotificationHandler(notificationService, logger)
	preferenceHandler := handlers.NewPreferenceHandler(notificationService)
	wsHandler := handlers.NewWSHandler(hub, limits, logger)
	var scanHandler *handlers.ScanHandler
	if config.AppConfig.ScanAPIURL != "" {
		scanHandler = handlers.NewScanHandler(scanner.NewScanner(config.AppConfig.ScanAPIURL, registry, logger))
	}
	routes.RegisterRoutes(router, notificationHandler, preferenceHandler, wsHandler, scanHandler)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	stopWorker()
	close(hubStop)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
