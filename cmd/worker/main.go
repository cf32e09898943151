package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"regen/internal/adapter/repo"
	"regen/internal/apply"
	"regen/internal/domain"
	"regen/internal/infra"
	"regen/internal/infra/credentials"
	"regen/internal/remotejob"
	"regen/internal/saga"
	"regen/internal/storage"
)

const claimInterval = 2 * time.Second

type requestWorker struct {
	ctx      context.Context
	requests *repo.RequestRepoPG
	saga     *saga.GenerationSaga
	logger   infra.Logger
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	requests := repo.NewRequestRepo(runner)
	handleStore := repo.NewHandleStore(runner)
	assets := repo.NewAssetRepo(runner)

	fileStore, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	apiKey := strings.TrimSpace(cfg.GenerateAPIKey)
	if apiKey == "" {
		credStore := credentials.NewStore(runner)
		keyFromStore, err := credStore.GenerateAPIKey(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("worker: failed to load generation api key from store")
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
		logger.Fatal().Err(err).Msg("worker: failed to configure generation client")
	}

	applier, err := apply.NewReplacementApplier(apply.Options{
		Store:          fileStore,
		Targets:        assets,
		Logger:         &logger,
		PayloadCeiling: cfg.PayloadCeiling,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure applier")
	}

	generationSaga := saga.New(client, applier, saga.Config{
		PollInterval: cfg.PollInterval,
		PollDeadline: cfg.PollDeadline,
	}, saga.WithLogger(logger), saga.WithHandleRecorder(handleStore))

	worker := &requestWorker{
		ctx:      ctx,
		requests: requests,
		saga:     generationSaga,
		logger:   logger,
	}

	if err := worker.Run(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

func (w *requestWorker) Run() error {
	w.logger.Info().Msg("worker: started")
	for {
		select {
		case <-w.ctx.Done():
			return w.ctx.Err()
		default:
		}

		req, err := w.requests.Claim(w.ctx)
		if err != nil {
			if errors.Is(err, repo.ErrNoRequestAvailable) {
				time.Sleep(claimInterval)
				continue
			}
			w.logger.Error().Err(err).Msg("worker: failed to claim request")
			time.Sleep(claimInterval)
			continue
		}

		w.handleRequest(req)
	}
}

func (w *requestWorker) handleRequest(req domain.GenerationRequest) {
	w.logger.Info().
		Str("request_id", req.ID).
		Str("target_ref", req.TargetRef).
		Msg("worker: picked request")

	result := w.saga.Run(w.ctx, req)

	if result.Applied() {
		w.logger.Info().Str("request_id", req.ID).Str("applied_ref", result.AppliedRef).Msg("worker: request succeeded")
	} else {
		w.logger.Error().
			Err(result.Err).
			Str("request_id", req.ID).
			Str("stage", string(result.FailedStage)).
			Msg("worker: request failed")
	}
	if result.CompensateWarning != nil {
		w.logger.Warn().
			Err(result.CompensateWarning).
			Str("request_id", req.ID).
			Msg("worker: remote job cleanup incomplete")
	}

	// The outcome is recorded even when the run was cancelled, so a restart
	// does not replay a request whose remote job already ran.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(w.ctx), 10*time.Second)
	defer cancel()
	if err := w.requests.Finish(recordCtx, req.ID, result); err != nil {
		w.logger.Error().Err(err).Str("request_id", req.ID).Msg("worker: record outcome failed")
	}
}
