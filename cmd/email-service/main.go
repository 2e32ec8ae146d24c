package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kamala96/email-service/internal/auth"
	"github.com/kamala96/email-service/internal/clients"
	"github.com/kamala96/email-service/internal/config"
	"github.com/kamala96/email-service/internal/database"
	"github.com/kamala96/email-service/internal/dispatch"
	"github.com/kamala96/email-service/internal/mail"
	"github.com/kamala96/email-service/internal/mailconfig"
	"github.com/kamala96/email-service/internal/ratelimit"
	"github.com/kamala96/email-service/internal/store/postgres"
	"github.com/kamala96/email-service/internal/web"
	"github.com/kamala96/email-service/internal/web/handlers"
	"github.com/kamala96/email-service/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Database
	db, err := postgres.NewDB(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Migrations
	if err := database.RunMigrations(migrations.FS, cfg.DatabaseURL); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Stores
	identityStore := postgres.NewIdentityStore(db)
	clientStore := postgres.NewClientStore(db)
	recordStore := postgres.NewSendRecordStore(db)
	mailConfigStore := postgres.NewMailConfigStore(db)
	jobStore := postgres.NewSendJobStore(db)

	// Services
	registry := clients.NewService(clientStore, identityStore)
	authService := auth.NewService(cfg.JWTSigningKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	mailConfigService := mailconfig.NewService(mailConfigStore)
	if err := mailConfigService.LoadActive(context.Background()); err != nil {
		slog.Error("failed to prime mail configuration", "error", err)
		os.Exit(1)
	}
	sender := mail.NewSMTPSender(mailConfigService)
	dispatcher := dispatch.NewService(jobStore, cfg.MaxRetries)

	// Dispatch worker
	executor := dispatch.NewExecutor(recordStore, registry, sender, cfg.ChunkSize, dispatch.RetryPolicy{
		MaxRetries: cfg.MaxRetries,
		Delay:      cfg.RetryDelay,
	})
	worker := dispatch.NewWorker(jobStore, executor, dispatch.WorkerOptions{
		Concurrency:  cfg.WorkerCount,
		PollInterval: cfg.PollInterval,
		RetryDelay:   cfg.RetryDelay,
	})

	workerCtx, stopWorker := context.WithCancel(context.Background())
	go worker.Run(workerCtx)

	// Rate limiter
	limiter := ratelimit.NewLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	// Handlers
	tokenHandler := handlers.NewTokenHandler(registry, authService)
	sendHandler := handlers.NewSendHandler(dispatcher)
	recordsHandler := handlers.NewRecordsHandler(recordStore)
	adminHandler := handlers.NewAdminHandler(registry, mailConfigService)

	// Router
	router := web.NewRouter(web.RouterDeps{
		TokenHandler:   tokenHandler,
		SendHandler:    sendHandler,
		RecordsHandler: recordsHandler,
		AdminHandler:   adminHandler,
		AuthService:    authService,
		Registry:       registry,
		Limiter:        limiter,
		AdminKeyHash:   cfg.AdminKeyHash,
		DB:             db,
	})

	// Server
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("email service starting", "addr", addr, "workers", cfg.WorkerCount)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down...")

	stopWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
