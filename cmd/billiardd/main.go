package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"billiard-venue-backend/config"
	"billiard-venue-backend/internal/api"
	"billiard-venue-backend/internal/db"
	"billiard-venue-backend/internal/deviceauth"
	"billiard-venue-backend/internal/dispatch"
	"billiard-venue-backend/internal/expiry"
	"billiard-venue-backend/internal/logger"
	"billiard-venue-backend/internal/notification"
	"billiard-venue-backend/internal/reauth"
	"billiard-venue-backend/internal/session"
	"billiard-venue-backend/internal/store"
	"billiard-venue-backend/internal/tabletest"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zlog := logger.Logger
	zlog.Info("configuration loaded", zap.String("path", configPath))

	var webpushOptions *webpush.Options
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	} else {
		zlog.Warn("VAPID keys are not configured, staff push notifications disabled")
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		zlog.Fatal("failed to initialize database", zap.Error(err))
	}
	zlog.Info("database initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)

	nonces := deviceauth.NewNonceCache(cfg.DeviceAuth.FreshnessWindow, cfg.DeviceAuth.NoncePurgeInterval)
	authenticator := deviceauth.New(appStore, nonces, cfg.DeviceAuth.SharedSecret, cfg.DeviceAuth.FreshnessWindow, zlog)

	dispatcher := dispatch.New(appStore, cfg.DeviceAuth.GatewayDeviceID, zlog)
	reauthStore := reauth.NewStore(cfg.Billing.OwnerPinHash, cfg.Billing.OwnerReauthTTL)
	sessions := session.NewManager(appStore, dispatcher, reauthStore, cfg.Billing, zlog)
	tests := tabletest.NewCoordinator(appStore, dispatcher, cfg.TableTest.Duration, zlog)

	pool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions, zlog)
	pool.Start(ctx)

	sweeper := expiry.NewSweeper(appStore, sessions, dispatcher, pool, cfg.Scheduler, zlog)
	go sweeper.Run(ctx)

	handler := api.NewHandler(appStore, sessions, dispatcher, tests, reauthStore, webpushOptions, cfg)
	router := api.NewRouter(handler, authenticator)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		zlog.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	zlog.Info("shutdown signal received, stopping services")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal("HTTP server shutdown failed", zap.Error(err))
	}
	zlog.Info("server gracefully stopped")
}
