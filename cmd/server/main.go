// Package main runs the invitations HTTP server with the realtime feed and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nialike/backend/config"
	"github.com/nialike/backend/internal/analytics"
	"github.com/nialike/backend/internal/auth"
	"github.com/nialike/backend/internal/carddesigns"
	"github.com/nialike/backend/internal/cards"
	"github.com/nialike/backend/internal/channels"
	"github.com/nialike/backend/internal/deliverylogs"
	"github.com/nialike/backend/internal/dispatch"
	"github.com/nialike/backend/internal/events"
	"github.com/nialike/backend/internal/guests"
	"github.com/nialike/backend/internal/invitations"
	"github.com/nialike/backend/internal/messageconfigs"
	"github.com/nialike/backend/internal/messaging"
	"github.com/nialike/backend/internal/middleware"
	"github.com/nialike/backend/internal/realtime"
	"github.com/nialike/backend/internal/settings"
	"github.com/nialike/backend/internal/worker"
	"github.com/nialike/backend/pkg/database"
	"github.com/nialike/backend/pkg/queue"
	"github.com/nialike/backend/pkg/redis"
	"github.com/nialike/backend/pkg/response"
	"github.com/nialike/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if missing := cfg.Messaging.MissingAdminSettings(); len(missing) > 0 {
		logger.Warn("system messaging defaults incomplete", zap.Strings("missing", missing))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolOptions{
		MaxConns: int32(cfg.Database.MaxConns),
		MinConns: int32(cfg.Database.MinConns),
	}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// Cards are inlined as data URIs when S3 is unavailable.
	var objects cards.ObjectStore
	if cfg.AWS.Region != "" && cfg.AWS.CardsBucket != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			CardsBucket:     cfg.AWS.CardsBucket,
			PublicBaseURL:   cfg.AWS.PublicBaseURL,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			objects = s3Client
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	// Card pipeline
	renderer := cards.NewRenderer(cards.NewHTTPBackgroundLoader(cfg.Dispatch.BackgroundTimeout), logger)
	cardGenerator := cards.NewGenerator(renderer, cards.NewPublisher(objects, logger))

	// Channels and messaging config
	whatsappClient := channels.NewWhatsAppClient(cfg.Messaging.WhatsAppGraphURL, cfg.Dispatch.SendTimeout, logger)
	smsClient := channels.NewSMSClient(cfg.Dispatch.SendTimeout, logger)
	resolver := messaging.NewResolver(cfg.Messaging)

	// Repositories
	eventRepo := events.NewRepository(pool)
	guestRepo := guests.NewRepository(pool)
	designRepo := carddesigns.NewRepository(pool)
	messageConfigRepo := messageconfigs.NewRepository(pool)
	settingsRepo := settings.NewRepository(pool)
	deliveryRepo := deliverylogs.NewRepository(pool)
	analyticsRepo := analytics.NewRepository(pool)

	settingsService := settings.NewService(settingsRepo, resolver)
	dispatchService := dispatch.NewService(dispatch.Deps{
		Events:     eventRepo,
		Guests:     guestRepo,
		Designs:    designRepo,
		Configs:    messageConfigRepo,
		Settings:   settingsRepo,
		Deliveries: deliveryRepo,
		WhatsApp:   whatsappClient,
		SMS:        smsClient,
		Cards:      cardGenerator,
		Resolver:   resolver,
	}, cfg.Dispatch, logger)

	jobQueue := queue.NewQueue(rdb.Client, logger)
	dispatchProcessor := worker.NewDispatchProcessor(dispatchService, jobQueue, hub, logger)

	// Handlers
	authHandler := auth.NewHandler()
	eventHandler := events.NewHandler(eventRepo, designRepo)
	guestHandler := guests.NewHandler(guestRepo, eventRepo, designRepo, cardGenerator, logger)
	designHandler := carddesigns.NewHandler(designRepo, eventRepo, guestRepo, cardGenerator, logger)
	messageConfigHandler := messageconfigs.NewHandler(messageConfigRepo, eventRepo, settingsService, whatsappClient, logger)
	settingsHandler := settings.NewHandler(settingsRepo, settingsService)
	invitationHandler := invitations.NewHandler(eventRepo, dispatchService, jobQueue, logger)
	deliveryHandler := deliverylogs.NewHandler(deliveryRepo, eventRepo)
	analyticsHandler := analytics.NewHandler(analyticsRepo, eventRepo)

	authorizeEvent := func(ctx context.Context, userID, eventID uuid.UUID) error {
		_, err := eventRepo.GetOwned(ctx, eventID, userID)
		return err
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			response.ServiceUnavailable(c, "database unavailable")
			return
		}
		if err := rdb.Healthy(ctx); err != nil {
			response.ServiceUnavailable(c, "redis unavailable")
			return
		}
		response.OK(c, gin.H{"status": "ok"})
	})

	// Protected API (JWT from the auth provider required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService), middleware.RequireRole(auth.RoleAuthenticated))
	{
		api.GET("/me", authHandler.Me)

		// Events and their custom attributes
		api.GET("/events", eventHandler.List)
		api.POST("/events", eventHandler.Create)
		api.GET("/events/:id", eventHandler.Get)
		api.PATCH("/events/:id", eventHandler.Update)
		api.DELETE("/events/:id", eventHandler.Delete)
		api.PUT("/events/:id/default-card-design", eventHandler.SetDefaultCardDesign)
		api.GET("/events/:id/attributes", eventHandler.ListAttributes)
		api.POST("/events/:id/attributes", eventHandler.CreateAttribute)
		api.PATCH("/attributes/:id", eventHandler.UpdateAttribute)
		api.DELETE("/attributes/:id", eventHandler.DeleteAttribute)

		// Guests
		api.GET("/events/:id/guests", guestHandler.List)
		api.POST("/events/:id/guests", guestHandler.Create)
		api.GET("/guests/:id", guestHandler.Get)
		api.PATCH("/guests/:id", guestHandler.Update)
		api.DELETE("/guests/:id", guestHandler.Delete)
		api.PATCH("/guests/:id/rsvp", guestHandler.UpdateRSVP)
		api.POST("/guests/:id/card", guestHandler.GenerateCard)

		// Card designs
		api.GET("/card-designs", designHandler.List)
		api.POST("/card-designs", designHandler.Create)
		api.GET("/card-designs/:id", designHandler.Get)
		api.PUT("/card-designs/:id", designHandler.Update)
		api.DELETE("/card-designs/:id", designHandler.Delete)
		api.GET("/card-designs/:id/preview", designHandler.Preview)

		// Per-event channel configuration and SMS templates
		api.GET("/events/:id/message-config/whatsapp", messageConfigHandler.GetWhatsApp)
		api.PUT("/events/:id/message-config/whatsapp", messageConfigHandler.PutWhatsApp)
		api.GET("/events/:id/sms-config/:purpose", messageConfigHandler.GetSMS)
		api.PUT("/events/:id/sms-config/:purpose", messageConfigHandler.PutSMS)
		api.GET("/sms-templates", messageConfigHandler.ListTemplates)
		api.POST("/sms-templates", messageConfigHandler.CreateTemplate)
		api.PUT("/sms-templates/:id", messageConfigHandler.UpdateTemplate)
		api.DELETE("/sms-templates/:id", messageConfigHandler.DeleteTemplate)
		api.GET("/whatsapp/templates", messageConfigHandler.ListWhatsAppTemplates)

		// Settings
		api.GET("/settings/configuration", settingsHandler.Get)
		api.PUT("/settings/configuration", settingsHandler.Put)

		// Sending and delivery history
		api.POST("/events/:id/invitations/send", invitationHandler.Send)
		api.GET("/events/:id/deliveries", deliveryHandler.ListByEvent)

		api.GET("/analytics", analyticsHandler.Get)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtService.ValidateUser, authorizeEvent))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background dispatch worker; run cmd/worker instead when DISPATCH_IN_PROCESS=false.
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	workerDone := make(chan struct{})
	if cfg.Dispatch.InProcessWorker {
		go func() {
			defer close(workerDone)
			dispatchProcessor.Run(workerCtx)
		}()
		logger.Info("dispatch worker started")
	} else {
		close(workerDone)
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	// The guest in flight finishes and the rest of its batch is requeued.
	<-workerDone
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
