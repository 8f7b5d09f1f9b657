package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pointsScope/internal/aggregate"
	"pointsScope/internal/config"
	"pointsScope/internal/model"
	"pointsScope/internal/storage/postgres"
)

func runSettle(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSettle(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Positions == "" {
		return fmt.Errorf("positions path is required")
	}
	if cfg.PGDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}

	since, err := config.ParseTimestamp(cfg.Since)
	if err != nil {
		return fmt.Errorf("parse since: %w", err)
	}
	engine, err := newEngine(cfg.Weighting)
	if err != nil {
		return err
	}
	promoted, _, err := promotedPools(cfg.Promoted)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	if cfg.EnsureSchema {
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
	}
	if len(promoted) > 0 {
		if err := store.UpsertPromotedPools(ctx, promoted); err != nil {
			return err
		}
	}

	source, closeSource, err := openPoolSource(ctx, cfg.PoolSource, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	settler := aggregate.NewSettler(aggregate.SettleConfig{
		BatchSize: cfg.BatchSize,
		Since:     since,
		Job:       model.JobSettle,
	}, engine, store, source, logger)

	logger.Info("settle start",
		zap.String("positions", cfg.Positions),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Uint64("since", since),
		zap.Int("promoted", len(promoted)),
		zap.String("policy", cfg.Policy),
	)

	_, err = settler.Run(ctx, cfg.Positions, time.Now())
	return err
}
