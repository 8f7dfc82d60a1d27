package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"superstory-server/internal/config"
	ws "superstory-server/internal/delivery/websocket"
	"superstory-server/internal/handler"
	"superstory-server/internal/messaging"
	"superstory-server/internal/service"
	"superstory-server/internal/session"
	"superstory-server/internal/vapi"
	"superstory-server/shared/database"
	sharedLogger "superstory-server/shared/logger"
	sharedMessaging "superstory-server/shared/messaging"
	sharedMiddleware "superstory-server/shared/middleware"

	rateli "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

const (
	connectRetries    = 30
	connectRetryDelay = 3 * time.Second
	sessionRetention  = 6 * time.Hour
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := sharedLogger.New(sharedLogger.Config{
		Level:       cfg.LogLevel,
		Encoding:    cfg.LogEncoding,
		ServiceName: "superstory-server",
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)
	cfg.LogSummary(logger)

	defaultUserID := uuid.MustParse(cfg.DefaultUserID)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- External Connections ---
	pgPool, err := database.SetupPostgres(rootCtx, database.PoolConfig{
		DSN:         cfg.GetDSN(),
		MaxConns:    cfg.DBMaxConns,
		IdleTimeout: cfg.DBIdleTimeout,
		MaxRetries:  connectRetries,
		RetryDelay:  connectRetryDelay,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pgPool.Close()

	if err := database.NewMigrator(pgPool, logger).Up(); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}

	redisClient, err := database.SetupRedis(rootCtx, database.RedisConfig{
		Addr:       cfg.RedisAddr,
		Password:   cfg.RedisPassword,
		DB:         cfg.RedisDB,
		MaxRetries: connectRetries,
		RetryDelay: connectRetryDelay,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	mqConn, err := sharedMessaging.Connect(rootCtx, cfg.RabbitMQURL, connectRetries, connectRetryDelay, logger)
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer mqConn.Close()

	publishChannel, err := mqConn.Channel()
	if err != nil {
		logger.Fatal("Failed to open RabbitMQ channel for publishing", zap.Error(err))
	}
	defer publishChannel.Close()

	// --- Dependency Injection ---
	storyRepo := database.NewPgStoryRepository(pgPool, logger)
	callLocks := database.NewRedisCallLockRepository(redisClient, logger)

	vapiClient := vapi.NewClient(vapi.ClientConfig{
		BaseURL:    cfg.VapiAPIURL,
		PrivateKey: cfg.VapiPrivateKey,
		Timeout:    cfg.VapiTimeout,
	}, logger)
	fetcherCfg := vapi.FetcherConfig{
		MaxAttempts:  cfg.FetchMaxAttempts,
		InitialDelay: cfg.FetchInitialDelay,
		WaitAfterEnd: cfg.FetchWaitAfterEnd,
	}
	fetcher := vapi.NewFetcher(vapiClient, fetcherCfg, logger)
	// Запуск не должен обрываться раньше, чем опрос исчерпает попытки
	pipelineTimeout := service.RunTimeout(fetcherCfg.Budget(cfg.VapiTimeout))
	logger.Info("Pipeline run timeout computed", zap.Duration("timeout", pipelineTimeout))
	pipeline := service.NewCallCompletionPipeline(fetcher, storyRepo, defaultUserID, logger)

	aiClient, err := service.NewAIClient(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create AI client", zap.Error(err))
	}
	chatService := service.NewChatService(aiClient, logger)

	publisher, err := sharedMessaging.NewRabbitMQSessionPublisher(publishChannel, cfg.SessionEndedQueue, logger)
	if err != nil {
		logger.Fatal("Failed to create session event publisher", zap.Error(err))
	}

	sessions := session.NewManager(256, logger)
	hub := ws.NewHub(originChecker(cfg.AllowedOrigins), logger)
	dispatcher := service.NewSessionDispatcher(hub, publisher, ws.SessionTopic, logger)

	consumer := messaging.NewSessionEndedConsumer(mqConn, pipeline, callLocks, messaging.ConsumerConfig{
		QueueName:       cfg.SessionEndedQueue,
		LockTTL:         cfg.CallLockTTL,
		PipelineTimeout: pipelineTimeout,
	}, logger)

	// --- Background workers ---
	go hub.Run(rootCtx)
	go dispatcher.Run(rootCtx, sessions.Transitions())
	go sessions.RunJanitor(rootCtx, time.Hour, sessionRetention)
	go func() {
		logger.Info("Starting SessionEndedConsumer...")
		if err := consumer.StartConsuming(); err != nil {
			logger.Error("SessionEndedConsumer stopped with error", zap.Error(err))
		} else {
			logger.Info("SessionEndedConsumer stopped gracefully")
		}
	}()

	// --- HTTP Server Setup (Gin) ---
	gin.SetMode(gin.ReleaseMode)
	if cfg.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(sharedMiddleware.GinZapLogger(logger))
	router.Use(gin.Recovery())

	p := ginprometheus.NewPrometheus("gin")

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	chatRateLimit := rateli.RateLimiter(
		rateli.RedisStore(&rateli.RedisOptions{
			RedisClient: redisClient,
			Rate:        cfg.ChatRateWindow,
			Limit:       cfg.ChatRateLimit,
		}),
		&rateli.Options{
			ErrorHandler: func(c *gin.Context, info rateli.Info) {
				logger.Warn("Chat rate limit exceeded", zap.String("clientIP", c.ClientIP()), zap.Time("resetTime", info.ResetTime))
				c.String(http.StatusTooManyRequests, "Too many requests. Try again in "+time.Until(info.ResetTime).Round(time.Second).String())
			},
			KeyFunc: func(c *gin.Context) string {
				return c.ClientIP()
			},
		},
	)

	h := handler.NewHandler(handler.Deps{
		Chat:      chatService,
		Pipeline:  pipeline,
		Stories:   storyRepo,
		Locks:     callLocks,
		LockTTL:   cfg.CallLockTTL,
		Sessions:  sessions,
		WebSocket: hub,
		Logger:    logger,
	})
	h.RegisterRoutes(router, chatRateLimit)

	// Prometheus middleware и /metrics после регистрации роутов
	p.Use(router)

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// Ручной запуск конвейера ждет опрос Vapi
		WriteTimeout: pipelineTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP Server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	<-rootCtx.Done()
	logger.Info("Shutting down server...")

	sessions.Close()
	if err := consumer.Stop(); err != nil {
		logger.Error("Error stopping SessionEndedConsumer", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}

// originChecker проверяет Origin websocket-подключений по списку CORS.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || (len(allowed) == 1 && allowed[0] == "*") {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
