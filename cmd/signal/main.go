package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"telesignal/internal/core/ports"
	"telesignal/internal/core/services"
	handlers "telesignal/internal/handlers/http"
	"telesignal/internal/infrastructure/events"
	"telesignal/internal/infrastructure/middleware"
	"telesignal/internal/infrastructure/monitoring"
	"telesignal/internal/infrastructure/repositories"
	wsignal "telesignal/internal/infrastructure/signal"
	"telesignal/pkg/config"
	"telesignal/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// .env is optional; real deployments configure through yaml + env.
	_ = godotenv.Load()

	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error
	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("could not build logger: %v", err)
	}
	defer zapLogger.Sync()
	sugar := zapLogger.Sugar()

	repos, err := repositories.New(cfg, sugar)
	if err != nil {
		sugar.Fatalw("failed to initialize repositories", "error", err)
	}

	var publisher ports.EventPublisher = events.NoopPublisher{}
	if cfg.Redis.Enabled {
		redisPublisher, err := events.NewRedisPublisher(
			cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize,
			cfg.Redis.Channel, sugar,
		)
		if err != nil {
			sugar.Fatalw("failed to connect to redis", "error", err)
		}
		defer redisPublisher.Close()
		publisher = redisPublisher
	}

	authService := services.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)
	guard, err := services.NewAccessGuard(repos.Appointments, cfg.Guard.CacheSize, sugar)
	if err != nil {
		sugar.Fatalw("failed to initialize access guard", "error", err)
	}
	chatService := services.NewChatPersistenceService(repos.ChatMessages, sugar)

	var collector *monitoring.Collector
	if cfg.Monitoring.PrometheusEnabled {
		collector = monitoring.NewCollector(prometheus.DefaultRegisterer)
	}

	registry := wsignal.NewRegistry()
	signalServer := wsignal.NewServer(registry, guard, authService, chatService, collector, cfg, sugar)

	callService := services.NewCallLifecycleService(repos.Appointments, guard, signalServer, publisher, sugar)
	callHandler := handlers.NewCallHandler(callService, chatService, sugar)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/ws/video-call/:roomToken", signalServer.HandleVideoCall)
	router.GET("/ws/call-invite/:appointmentID", signalServer.HandleCallInvite)
	router.GET("/ws/chat/:appointmentID", signalServer.HandleChat)

	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware(authService))
	callHandler.RegisterRoutes(api)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		sugar.Infow("starting signaling server", "address", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalw("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sugar.Infow("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		sugar.Errorw("forced shutdown", "error", err)
	}
}
