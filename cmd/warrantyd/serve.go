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

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"appliance-warranty-backend/config"
	"appliance-warranty-backend/internal/api"
	"appliance-warranty-backend/internal/assistant"
	"appliance-warranty-backend/internal/auth"
	"appliance-warranty-backend/internal/catalog"
	"appliance-warranty-backend/internal/db"
	"appliance-warranty-backend/internal/escalation"
	"appliance-warranty-backend/internal/mw"
	"appliance-warranty-backend/internal/notification"
	"appliance-warranty-backend/internal/store"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.setup()
			if err != nil {
				return err
			}
			defer log.Sync()
			if !opts.debug {
				gin.SetMode(gin.ReleaseMode)
			}
			return serve(cfg, log)
		},
	}
}

func serve(cfg *config.Config, log *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gormDB, err := db.Init(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.Migrate(gormDB, log); err != nil {
		return err
	}
	appStore := store.NewGormStore(gormDB)
	log.Info("data store initialized")

	issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	var gen assistant.Generator
	if cfg.Assistant.APIKey != "" {
		g, err := assistant.NewGeminiGenerator(ctx, cfg.Assistant.APIKey)
		if err != nil {
			log.Warn("assistant disabled", zap.Error(err))
		} else {
			gen = g
		}
	} else {
		log.Warn("assistant api key not set, chat and receipt reading answer with defaults")
	}

	var webpushOptions *webpush.Options
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	} else {
		log.Warn("VAPID keys are not configured, push notifications are disabled")
	}

	var responses mw.ResponseStore
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Warn("redis unreachable, using in-process response cache", zap.Error(err))
		} else {
			responses = mw.NewRedisStore(rdb, "warranty:resp:", log)
		}
		pingCancel()
	}

	publisher := escalation.NewPublisher(cfg.Escalation, log)
	log.Info("escalation publisher ready", zap.String("publisher", publisher.Name()))

	loc := cfg.Warranty.Location()
	var pool *notification.WorkerPool
	if webpushOptions != nil && cfg.Push.SweepIntervalMinutes > 0 {
		pool = notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions, loc, log)
		pool.Start(ctx)
		sweeper := notification.NewSweeper(appStore, pool, time.Duration(cfg.Push.SweepIntervalMinutes)*time.Minute, loc, log)
		go sweeper.Run(ctx)
		log.Info("reminder sweep enabled", zap.Int("interval_minutes", cfg.Push.SweepIntervalMinutes))
	}

	router := api.NewRouter(api.Deps{
		Config:    cfg,
		Store:     appStore,
		Issuer:    issuer,
		Chat:      assistant.NewChat(gen, cfg.Assistant, log),
		Receipts:  assistant.NewReceiptReader(gen, cfg.Assistant, log),
		Catalog:   catalog.NewService(cfg.Catalog, log),
		Publisher: publisher,
		WebPush:   webpushOptions,
		Responses: responses,
		Log:       log,
	})
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-serverErr:
		return fmt.Errorf("HTTP server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}

	cancel()
	if pool != nil {
		pool.Stop()
	}
	log.Info("server gracefully stopped")
	return nil
}
