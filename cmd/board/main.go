package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/Freeeeeet/assignment_board/internal/app"
	"github.com/Freeeeeet/assignment_board/internal/audit"
	"github.com/Freeeeeet/assignment_board/internal/config"
	"github.com/Freeeeeet/assignment_board/internal/controller"
	"github.com/Freeeeeet/assignment_board/internal/controller/httpapi"
	"github.com/Freeeeeet/assignment_board/internal/repository"
	"github.com/Freeeeeet/assignment_board/internal/service"
	"github.com/Freeeeeet/assignment_board/migrations"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var logFile *app.LogFile
	if cfg.LogFile != "" {
		logFile = &app.LogFile{Path: cfg.LogFile}
	}
	logger := app.NewLogger(cfg.Environment, logFile)
	defer logger.Sync()

	logger.Info("Starting assignment board",
		zap.String("environment", cfg.Environment),
		zap.String("http_addr", cfg.HTTPAddr),
		zap.Bool("bot_enabled", cfg.BotEnabled()))

	if cfg.IsProduction() && slices.Contains(cfg.CORSOrigins, "*") {
		logger.Warn("CORS allows any origin in production", zap.Strings("cors_origins", cfg.CORSOrigins))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Application stopped with error", zap.Error(err))
	}
	logger.Info("Application stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}
	logger.Info("Connected to database")

	if cfg.AutoMigrate {
		migrator, err := app.NewMigrator(pool, migrations.FS, migrations.Dir, logger)
		if err != nil {
			return err
		}
		err = migrator.Run(ctx)
		migrator.Close()
		if err != nil {
			return err
		}
	}

	store := repository.NewStore(pool)

	// Аудит пишется в БД и в лог, вне транзакций мутаций
	dispatcher := audit.NewDispatcher(
		audit.NewEnricher(store.Names(), logger),
		audit.MultiSink{repository.NewAuditRepository(pool), audit.NewLogSink(logger)},
		cfg.AuditQueue,
		logger,
	)
	dispatcher.Start(context.Background())
	defer dispatcher.Stop()

	boardService := service.NewBoardService(store, dispatcher, logger)
	lifecycleService := service.NewLifecycleService(store, dispatcher, logger)

	var wg sync.WaitGroup

	if cfg.BotEnabled() {
		b, err := bot.New(cfg.TelegramToken)
		if err != nil {
			return err
		}
		botController := controller.NewBotController(b, boardService, lifecycleService, store.Names(), logger)
		if err := botController.RegisterHandlers(ctx); err != nil {
			logger.Warn("Bot commands menu not set", zap.Error(err))
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			botController.Start(ctx)
		}()
	}

	handler := httpapi.NewHandler(boardService, lifecycleService, store, logger)
	server := httpapi.NewServer(cfg.HTTPAddr, httpapi.NewRouter(handler, cfg.CORSOrigins))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	wg.Wait()
	return nil
}
