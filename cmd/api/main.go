package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"regen/internal/adapter/repo"
	"regen/internal/apply"
	"regen/internal/http/handlers"
	"regen/internal/http/httpapi"
	"regen/internal/infra"
	"regen/internal/infra/credentials"
	"regen/internal/remotejob"
	"regen/internal/saga"
	"regen/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	requests := repo.NewRequestRepo(runner)
	handleStore := repo.NewHandleStore(runner)
	assets := repo.NewAssetRepo(runner)

	fileStore, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure storage")
	}

	apiKey := strings.TrimSpace(cfg.GenerateAPIKey)
	if apiKey == "" {
		credStore := credentials.NewStore(runner)
		keyFromStore, err := credStore.GenerateAPIKey(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("api: failed to load generation api key from store")
		} else {
			apiKey = keyFromStore
		}
	}

	client, err := remotejob.NewClient(remotejob.Options{
		APIKey:  apiKey,
		BaseURL: cfg.GenerateBaseURL,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure generation client")
	}

	applier, err := apply.NewReplacementApplier(apply.Options{
		Store:          fileStore,
		Targets:        assets,
		Logger:         &logger,
		PayloadCeiling: cfg.PayloadCeiling,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure applier")
	}

	generationSaga := saga.New(client, applier, saga.Config{
		PollInterval: cfg.PollInterval,
		PollDeadline: cfg.PollDeadline,
	}, saga.WithLogger(logger), saga.WithHandleRecorder(handleStore))

	app := handlers.NewApp(requests, generationSaga, logger)
	router := httpapi.NewRouter(app, logger)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("addr", server.Addr()).Msg("api: listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("api: stopped")
}
