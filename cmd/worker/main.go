// Package main runs the standalone invitation dispatch worker.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nialike/backend/config"
	"github.com/nialike/backend/internal/carddesigns"
	"github.com/nialike/backend/internal/cards"
	"github.com/nialike/backend/internal/channels"
	"github.com/nialike/backend/internal/deliverylogs"
	"github.com/nialike/backend/internal/dispatch"
	"github.com/nialike/backend/internal/events"
	"github.com/nialike/backend/internal/guests"
	"github.com/nialike/backend/internal/messageconfigs"
	"github.com/nialike/backend/internal/messaging"
	"github.com/nialike/backend/internal/realtime"
	"github.com/nialike/backend/internal/settings"
	"github.com/nialike/backend/internal/worker"
	"github.com/nialike/backend/pkg/database"
	"github.com/nialike/backend/pkg/queue"
	"github.com/nialike/backend/pkg/redis"
	"github.com/nialike/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
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

	rdb, err := redis.NewClient(ctx, redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var objects cards.ObjectStore
	s3Client, err := storage.NewS3(ctx, storage.S3Config{
		Region:          cfg.AWS.Region,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		CardsBucket:     cfg.AWS.CardsBucket,
		PublicBaseURL:   cfg.AWS.PublicBaseURL,
	}, logger)
	if err != nil {
		logger.Warn("s3 disabled, cards will be inlined", zap.Error(err))
	} else {
		objects = s3Client
	}

	renderer := cards.NewRenderer(cards.NewHTTPBackgroundLoader(cfg.Dispatch.BackgroundTimeout), logger)
	settingsRepo := settings.NewRepository(pool)
	service := dispatch.NewService(dispatch.Deps{
		Events:     events.NewRepository(pool),
		Guests:     guests.NewRepository(pool),
		Designs:    carddesigns.NewRepository(pool),
		Configs:    messageconfigs.NewRepository(pool),
		Settings:   settingsRepo,
		Deliveries: deliverylogs.NewRepository(pool),
		WhatsApp:   channels.NewWhatsAppClient(cfg.Messaging.WhatsAppGraphURL, cfg.Dispatch.SendTimeout, logger),
		SMS:        channels.NewSMSClient(cfg.Dispatch.SendTimeout, logger),
		Cards:      cards.NewGenerator(renderer, cards.NewPublisher(objects, logger)),
		Resolver:   messaging.NewResolver(cfg.Messaging),
	}, cfg.Dispatch, logger)

	// Progress goes through Redis so every server instance relays it to its watchers.
	notifier := realtime.NewRedisPubSub(rdb.Client, logger)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewDispatchProcessor(service, jobQueue, notifier, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		processor.Run(workerCtx)
	}()
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	// The guest in flight finishes and the rest of its batch is requeued.
	<-done
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
