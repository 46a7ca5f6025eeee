package main

import (
	"context"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	fbapp "firebase.google.com/go/v4"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"casalivre/internal/adapter/api"
	"casalivre/internal/adapter/api/handler"
	apimiddleware "casalivre/internal/adapter/api/middleware"
	"casalivre/internal/adapter/api/router"
	"casalivre/internal/adapter/repository"
	"casalivre/internal/infrastructure/firebase"
	"casalivre/internal/infrastructure/ratelimit"
	"casalivre/internal/infrastructure/realtime"
	"casalivre/internal/infrastructure/storage"
	"casalivre/internal/infrastructure/websocket"
	"casalivre/internal/usecase"
	"casalivre/pkg/config"
	"casalivre/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("Failed to load configuration: %v", err)
	}

	var log *logger.Logger
	if cfg.IsDevelopment() {
		log, err = logger.NewDevelopment()
	} else {
		log, err = logger.New(cfg.LogLevel)
	}
	if err != nil {
		stdlog.Fatalf("Failed to initialize logger: %v", err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	credentialsPath := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH")

	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opts...)
	if err != nil {
		log.Fatal("failed to initialize firebase", zap.Error(err))
	}

	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
	if err != nil {
		log.Fatal("failed to create firestore client", zap.Error(err))
	}
	defer firestoreClient.Close()

	storageClient, err := storage.NewCloudStorageClient(ctx, cfg.StorageBucket, credentialsPath)
	if err != nil {
		log.Fatal("failed to initialize cloud storage", zap.Error(err))
	}
	defer storageClient.Close()

	// The change feed runs over NATS when configured, otherwise in-process.
	var bus realtime.Bus
	if cfg.NatsURL != "" {
		natsBus, err := realtime.ConnectNats(cfg.NatsURL, log)
		if err != nil {
			log.Fatal("failed to connect to nats", zap.Error(err))
		}
		defer natsBus.Close()
		bus = natsBus
	} else {
		log.Warn("NATS_URL not set, using in-process change feed")
		bus = realtime.NewMemoryBus()
	}

	feed := realtime.NewFeed(bus, log)
	subs := realtime.NewManager(bus, log)
	defer subs.CloseAll()

	wsManager := websocket.NewManager(log)
	wsManager.Start(ctx)

	messageRepo := repository.NewFirestoreMessageRepository(firestoreClient, feed, log)
	notificationRepo := repository.NewFirestoreNotificationRepository(firestoreClient, feed, log)
	listingRepo := repository.NewFirestoreListingRepository(firestoreClient)
	userRepo := repository.NewFirestoreUserRepository(firestoreClient)
	reportRepo := repository.NewFirestoreReportRepository(firestoreClient)

	var verifier usecase.TokenVerifier
	var profiles usecase.ProfileSource
	if cfg.IsDevelopment() && cfg.FirebaseProject == "" {
		log.Warn("running with development token auth")
		verifier = firebase.NewDevTokenService(cfg.JWTSecret, cfg.JWTExpiry)
	} else {
		authClient, err := firebaseApp.Auth(ctx)
		if err != nil {
			log.Fatal("failed to initialize firebase auth", zap.Error(err))
		}
		fbAuth := firebase.NewAuthClient(authClient)
		verifier = fbAuth
		profiles = fbAuth
	}

	chatUseCase := usecase.NewChatUseCase(messageRepo, notificationRepo, userRepo, subs, storageClient, log)
	notificationUseCase := usecase.NewNotificationUseCase(notificationRepo, subs, handler.NewWSAlerter(wsManager), log)
	conversationUseCase := usecase.NewConversationUseCase(messageRepo, listingRepo, userRepo, log)
	reportUseCase := usecase.NewReportUseCase(reportRepo, listingRepo, log)
	sessionUseCase := usecase.NewSessionUseCase(verifier, profiles, userRepo, notificationUseCase, chatUseCase, log)

	rateLimiter := ratelimit.NewRateLimiter()
	rateLimiter.StartCleanupRoutine()

	handler.Setup(chatUseCase, conversationUseCase, notificationUseCase, reportUseCase, sessionUseCase, storageClient, subs, wsManager, log)
	handler.SetupHealthHandler(subs)
	if devTokens, ok := verifier.(*firebase.DevTokenService); ok {
		handler.SetupDevTokenHandler(devTokens, userRepo)
	}

	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(verifier)
	adminMiddleware := apimiddleware.NewAdminMiddleware(userRepo)
	rateLimitMiddleware := apimiddleware.NewRateLimitMiddleware(rateLimiter)

	router.Setup(e, authMiddleware, adminMiddleware, rateLimitMiddleware)
	router.SetupDevRouter(e, cfg.Environment)

	go func() {
		log.Info("starting server", zap.String("port", cfg.ServerPort))
		if err := e.Start(":" + cfg.ServerPort); err != nil {
			log.Info("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", zap.Error(err))
	}
}
