package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/yukikurage/volunteer-api/internal/database"
	"github.com/yukikurage/volunteer-api/internal/handlers"
	"github.com/yukikurage/volunteer-api/internal/metrics"
	"github.com/yukikurage/volunteer-api/internal/repository"
	"github.com/yukikurage/volunteer-api/internal/security"
	"github.com/yukikurage/volunteer-api/internal/services"
	"github.com/yukikurage/volunteer-api/internal/storage"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		gin.SetMode(cfg.GinMode)

		db, closeDB, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer closeDB()

		if err := database.Migrate(db); err != nil {
			return err
		}

		store, err := storage.NewLocalStorage(cfg.MediaDir, cfg.MediaURL)
		if err != nil {
			return err
		}

		userRepo := repository.NewUserRepository(db)
		unitRepo := repository.NewUnitRepository(db)
		taskRepo := repository.NewTaskRepository(db)
		volunteerRepo := repository.NewVolunteerRepository(db)
		ledgerRepo := repository.NewLedgerRepository(db)

		var revocations security.RevocationStore = security.NewDBRevocationStore(repository.NewTokenRepository(db))
		if cfg.RedisAddr != "" {
			client, err := security.NewRedisClient(cfg.RedisAddr)
			if err != nil {
				return fmt.Errorf("failed to connect to redis: %w", err)
			}
			defer client.Close()
			revocations = security.NewRedisRevocationStore(client)
			slog.Info("refresh token revocations stored in redis", slog.String("addr", cfg.RedisAddr))
		}

		var aiService *services.AIService
		if cfg.OpenAIAPIKey != "" {
			aiService = services.NewAIService(cfg.OpenAIAPIKey)
		}

		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		tokens := security.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
		router := handlers.NewRouter(handlers.RouterDeps{
			Config:     cfg,
			Logger:     slog.Default(),
			Auth:       services.NewAuthService(userRepo, unitRepo, tokens, revocations),
			Units:      services.NewUnitService(unitRepo, store),
			Tasks:      services.NewTaskService(taskRepo, aiService),
			Ledger:     services.NewLedgerService(taskRepo, ledgerRepo, store),
			Volunteers: services.NewVolunteerService(volunteerRepo, store),
			Storage:    store,
			Metrics:    metrics.NewCollector(registry),
			Gatherer:   registry,
		})

		srv := &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			slog.Info("server starting", slog.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}

		slog.Info("server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
