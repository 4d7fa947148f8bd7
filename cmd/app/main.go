// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sora-batch-studio/internal/config"
	"sora-batch-studio/internal/domain/model"
	"sora-batch-studio/internal/domain/ports/adapter"
	provider "sora-batch-studio/internal/infra/adapters/provider"
	"sora-batch-studio/internal/infra/download"
	"sora-batch-studio/internal/infra/i18n"
	"sora-batch-studio/internal/infra/logging"
	"sora-batch-studio/internal/infra/metrics"
	"sora-batch-studio/internal/infra/notify"
	red "sora-batch-studio/internal/infra/redis"
	"sora-batch-studio/internal/infra/scheduler"
	"sora-batch-studio/internal/infra/web"
	"sora-batch-studio/internal/infra/worker"
	"sora-batch-studio/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, relaxed checks)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}

	// ---- Metrics ----
	metrics.MustRegister()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()

	// ---- Repositories ----
	taskRepo := red.NewTaskRepo(redisClient, logger)
	settingsRepo := red.NewSettingsRepo(redisClient, logger)
	characterRepo := red.NewCharacterRepo(redisClient, logger)
	promptRepo := red.NewPromptRepo(redisClient, logger)
	languageRepo := red.NewLanguageRepo(redisClient)
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Provider adapters ----
	apimart := provider.NewApimartAdapter(logger)
	kie := provider.NewKieAdapter(logger)
	videoProvider := provider.NewMultiProviderAdapter(model.ProviderApimart, map[string]adapter.VideoProvider{
		model.ProviderApimart: apimart,
		model.ProviderKie:     kie,
	})

	// ---- Notifications ----
	lang, err := languageRepo.Get(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("language lookup failed, using zh")
		lang = "zh"
	}
	translator, err := i18n.NewTranslator(i18n.LocalesFS, lang)
	if err != nil {
		logger.Fatal().Err(err).Msg("i18n")
	}
	var sink adapter.NotificationSink
	if cfg.Notify.Telegram.Token != "" {
		sink, err = notify.NewTelegramSink(cfg.Notify.Telegram.Token, cfg.Notify.Telegram.ChatID, translator, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("telegram sink unavailable, falling back to log sink")
			sink = notify.NewLogSink(translator, logger)
		}
	} else {
		sink = notify.NewLogSink(translator, logger)
	}

	// ---- Downloads ----
	saver := download.NewDownloader(cfg.Download.Dir, sink, logger)

	// ---- Poll worker pool ----
	pool := worker.NewPool(cfg.Queue.PollWorkers, logger)
	pool.Start(ctx)
	defer pool.Stop()

	// ---- Use cases ----
	queueUC := usecase.NewQueueUseCase(taskRepo, settingsRepo, characterRepo, videoProvider, sink, saver, pool, logger)
	historyUC := usecase.NewHistoryUseCase(taskRepo, settingsRepo, videoProvider, sink, logger)
	settingsUC := usecase.NewSettingsUseCase(settingsRepo, languageRepo, videoProvider)
	libraryUC := usecase.NewLibraryUseCase(characterRepo, promptRepo)

	// ---- Queue scheduler ----
	runner := scheduler.NewScheduler(cfg.Queue.TickInterval, queueUC, logger)
	defer runner.Stop()

	// ---- Control API ----
	auth := web.NewAuthManager(cfg.Web.JWTSecret, !cfg.Runtime.Dev, 12*time.Hour)
	srv := web.NewServer(queueUC, historyUC, settingsUC, libraryUC, runner, auth, rateLimiter, sink, cfg.Web.AdminKey, ctx, logger)
	server := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Web.Port), Handler: srv.Router()}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("control api listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	runner.Stop()
	cancel()
}
