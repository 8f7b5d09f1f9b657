package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pointsScope/internal/chain"
	"pointsScope/internal/config"
	"pointsScope/internal/dex"
	"pointsScope/internal/indexer"
	"pointsScope/internal/storage"
	"pointsScope/internal/storage/postgres"
)

func runLogs(cmd *cobra.Command, _ []string) (err error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadLogs(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	pools, err := indexer.ParseAddresses(cfg.Pools)
	if err != nil {
		return err
	}
	if len(pools) == 0 {
		return fmt.Errorf("pool list is required")
	}

	decoder, err := dex.NewPositionDecoder(dex.DecoderConfig{Topic0Map: cfg.Topic0Map})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	var checkpoint indexer.Checkpoint
	switch {
	case !cfg.CheckpointEnabled:
	case cfg.PGDSN != "":
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		checkpoint = &indexer.StoreCheckpoint{Store: store}
	default:
		checkpoint = &indexer.FileCheckpoint{Path: cfg.Checkpoint}
	}

	// Resumed runs append to the existing file.
	sink, err := storage.NewJSONLWriter(cfg.Out, cfg.CheckpointEnabled)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sink.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
	}()

	runner := indexer.NewRunner(indexer.RunConfig{
		FromBlock: cfg.FromBlock,
		ToBlock:   cfg.ToBlock,
		Pools:     pools,
		Topic0:    decoder.Topics(),
		BatchSize: cfg.BatchSize,
		Retry:     dex.RetryPolicy{MaxRetries: cfg.MaxRetries, Backoff: cfg.RetryBackoff},
	}, chainClient, sink, checkpoint, logger)

	logger.Info("logs start",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Int("pools", len(pools)),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.String("out", cfg.Out),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
	)

	result, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("logs complete",
		zap.Uint64("from", result.From),
		zap.Uint64("to", result.To),
		zap.Int("batches", result.Batches),
		zap.Int("logs", result.Logs),
		zap.Int("duplicates", result.Duplicates),
	)
	return nil
}
