package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/customercompass/compass/config"
	"github.com/customercompass/compass/internal/fetch"
	"github.com/customercompass/compass/internal/notify"
	"github.com/customercompass/compass/internal/pipeline"
	"github.com/customercompass/compass/internal/queue/streams"
	"github.com/customercompass/compass/internal/search"
	"github.com/customercompass/compass/internal/server"
	"github.com/customercompass/compass/internal/store"
	"github.com/customercompass/compass/internal/worker"
	"github.com/customercompass/compass/provider"
)

func main() {
	var cfgPath string

	root := &cobra.Command{Use: "compass"}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			return server.Run(cfg)
		},
	}

	workerCmd := &cobra.Command{
		Use:   "worker",
		Short: "Run background pipeline worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			return runWorker(cfg)
		},
	}

	var migDir string
	var direction string
	var steps int
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			return server.Migrate(migDir, cfg.Storage.Postgres.DSN(), direction, steps)
		},
	}
	migrateCmd.Flags().StringVar(&migDir, "dir", "file://migrations", "migrations source (file://migrations)")
	migrateCmd.Flags().StringVar(&direction, "direction", "up", "up or down")
	migrateCmd.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")

	root.AddCommand(serve, workerCmd, migrateCmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runWorker(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
	if err != nil {
		return fmt.Errorf("worker store init: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Storage.Redis.Addr(),
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("worker redis ping: %w", err)
	}
	defer func() { _ = rdb.Close() }()

	if err := streams.EnsureGroup(ctx, rdb, cfg.Queue.Stream, cfg.Queue.Group); err != nil {
		return fmt.Errorf("worker ensure group: %w", err)
	}

	consumerName := cfg.Queue.Consumer
	if consumerName == "" {
		consumerName = fmt.Sprintf("worker-%s", uuid.NewString()[:8])
	}
	consumer := streams.NewConsumer(rdb, cfg.Queue.Group, consumerName)

	orch, err := buildOrchestrator(cfg, st)
	if err != nil {
		return err
	}

	logger := log.New(os.Stdout, "[WORKER] ", log.LstdFlags)
	processor := worker.NewProcessor(logger, consumer, orch, rdb, cfg.Queue.Stream)
	return processor.Start(ctx)
}

func buildOrchestrator(cfg *config.Config, st *store.Store) (*pipeline.Orchestrator, error) {
	searcher, err := search.NewSearcher(search.Provider(cfg.Search.Provider), cfg.Search.APIKey, cfg.Search.EngineID, cfg.Search.Timeout)
	if err != nil {
		return nil, fmt.Errorf("search provider: %w", err)
	}
	fetcher, err := fetch.New(fetch.FetcherType(cfg.Fetch.Type), fetch.Options{
		Timeout:   cfg.Fetch.Timeout,
		MaxChars:  cfg.Fetch.MaxChars,
		UserAgent: cfg.Fetch.UserAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("fetcher: %w", err)
	}
	llm, err := provider.NewProvider(provider.Client(cfg.LLM.Provider), cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Temperature, cfg.LLM.MaxTokens, cfg.LLM.Timeout)
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}

	logger := log.New(os.Stdout, "[PIPELINE] ", log.LstdFlags)
	gateway := pipeline.NewSearchGateway(searcher, cfg.Search.MaxResults, cfg.Search.Concurrency, logger)
	assembler := pipeline.NewContentAssembler(fetcher, cfg.Fetch.Concurrency, cfg.Fetch.Timeout, logger)
	summarizer := pipeline.NewSummarizer(llm, logger)

	var sink pipeline.NotificationSink
	if cfg.Notify.Enabled {
		sink = notify.NewSendGrid(cfg.Notify.APIKey, cfg.Notify.Sender)
	}
	return pipeline.NewOrchestrator(st, gateway, assembler, summarizer, sink, logger), nil
}
