package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/involved-entity/exwonder-realtime/internal/attachments"
	"github.com/involved-entity/exwonder-realtime/internal/auth"
	"github.com/involved-entity/exwonder-realtime/internal/config"
	"github.com/involved-entity/exwonder-realtime/internal/db"
	"github.com/involved-entity/exwonder-realtime/internal/events"
	"github.com/involved-entity/exwonder-realtime/internal/messenger"
	"github.com/involved-entity/exwonder-realtime/internal/middleware"
	"github.com/involved-entity/exwonder-realtime/internal/notifications"
	"github.com/involved-entity/exwonder-realtime/internal/observability"
	"github.com/involved-entity/exwonder-realtime/internal/repositories"
	"github.com/involved-entity/exwonder-realtime/internal/ws"
)

const serviceName = "exwonder-realtime"

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("zap.NewProduction: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("load config: %v", err)
	}

	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.OTLPEndpoint, serviceName, cfg.Environment)
	if err != nil {
		sugar.Fatalf("init tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			sugar.Warnw("tracing shutdown", "err", err)
		}
	}()

	database, err := db.Connect(cfg.DatabaseDSN, sugar)
	if err != nil {
		sugar.Fatalf("connect database: %v", err)
	}
	defer database.Close()

	tokenStore, err := auth.NewRedisTokenStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		sugar.Fatalf("connect token store: %v", err)
	}
	defer tokenStore.Close()

	if publisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange); err != nil {
		sugar.Warnw("amqp disabled, gateway events will not be published", "err", err)
	} else {
		observability.SetPublisher(publisher)
		defer publisher.Close()
	}

	attachmentStore := attachments.NewStore(attachments.Config{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		Bucket:          cfg.S3Bucket,
	}, sugar)

	chatRepo := repositories.NewChatRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	notificationRepo := repositories.NewNotificationRepo(database)
	followerRepo := repositories.NewFollowerRepo(database)

	hub := ws.NewHub(sugar)
	gate := ws.NewGate(hub, tokenStore, sugar)
	dispatcher := events.NewDispatcher(hub, chatRepo, messageRepo, sugar)

	messengerRouter := messenger.NewRouter(gate, hub, chatRepo, messageRepo, dispatcher, attachmentStore, sugar)
	notificationsRouter := notifications.NewRouter(gate, notificationRepo, sugar)
	gateway := ws.NewGateway(hub, messengerRouter, notificationsRouter, sugar)

	fanOut := notifications.NewFanOut(followerRepo, notificationRepo, dispatcher, sugar)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws/messenger", gateway.Messenger)
	router.GET("/ws/notifications", gateway.Notifications)
	router.POST("/internal/notifications/fan-out", middleware.InternalToken(cfg.InternalToken), fanOut.Handler)

	sugar.Infow("realtime gateway starting", "port", cfg.ServerPort, "environment", cfg.Environment)
	if err := router.Run(":" + cfg.ServerPort); err != nil {
		sugar.Fatalf("server error: %v", err)
	}
}
