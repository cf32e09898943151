// jobsweep lists and cleans up remote job handles whose saga never finished
// compensation, typically after a crash or a failed delete. It re-attempts
// the deletion the saga could not complete.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"regen/internal/adapter/repo"
	"regen/internal/domain"
	"regen/internal/infra"
	"regen/internal/infra/credentials"
	"regen/internal/remotejob"
)

func main() {
	var (
		olderThanFlag time.Duration
		deleteFlag    bool
	)
	flag.DurationVar(&olderThanFlag, "older-than", time.Hour, "only consider handles older than this")
	flag.BoolVar(&deleteFlag, "delete", false, "delete the stale remote jobs instead of only listing them")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		exitWithError(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		exitWithError(fmt.Errorf("connect database: %w", err))
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	handleStore := repo.NewHandleStore(runner)

	records, err := handleStore.ListStale(ctx, olderThanFlag)
	if err != nil {
		exitWithError(fmt.Errorf("list stale handles: %w", err))
	}
	if len(records) == 0 {
		fmt.Println("no stale handles")
		return
	}

	if !deleteFlag {
		for _, rec := range records {
			fmt.Printf("%s\t%s\t%s\n", rec.RequestID, rec.Handle, rec.CreatedAt.Format(time.RFC3339))
		}
		fmt.Printf("%d stale handle(s); rerun with -delete to clean up\n", len(records))
		return
	}

	apiKey := strings.TrimSpace(cfg.GenerateAPIKey)
	if apiKey == "" {
		credStore := credentials.NewStore(runner)
		apiKey, err = credStore.GenerateAPIKey(ctx)
		if err != nil {
			exitWithError(fmt.Errorf("load generation api key: %w", err))
		}
	}

	client, err := remotejob.NewClient(remotejob.Options{
		APIKey:  apiKey,
		BaseURL: cfg.GenerateBaseURL,
		Logger:  &logger,
	})
	if err != nil {
		exitWithError(err)
	}

	swept := 0
	for _, rec := range records {
		err := client.Delete(ctx, rec.Handle)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			logger.Warn().Err(err).Str("handle", string(rec.Handle)).Msg("jobsweep: delete failed")
			continue
		}
		if err := handleStore.Clear(ctx, rec.RequestID); err != nil {
			logger.Warn().Err(err).Str("request_id", rec.RequestID).Msg("jobsweep: clear record failed")
			continue
		}
		swept++
	}
	fmt.Printf("swept %d of %d stale handle(s)\n", swept, len(records))
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
