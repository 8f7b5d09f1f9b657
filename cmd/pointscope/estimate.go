package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pointsScope/internal/aggregate"
	"pointsScope/internal/config"
	"pointsScope/internal/display"
	"pointsScope/internal/fixedpoint"
	"pointsScope/internal/model"
	"pointsScope/internal/storage"
)

func runEstimate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadEstimate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
	}
	if len(cfg.Promoted) == 0 {
		return fmt.Errorf("at least one promoted pool is required")
	}

	engine, err := newEngine(cfg.Weighting)
	if err != nil {
		return err
	}
	_, rates, err := promotedPools(cfg.Promoted)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, closeSource, err := openPoolSource(ctx, cfg.PoolSource, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	positions, err := loadPositions(cfg.Positions, "", logger)
	if err != nil {
		return err
	}
	pools, err := loadPoolStates(ctx, source, positions, rates)
	if err != nil {
		return err
	}

	if cfg.PoolsOut != "" {
		if err := writePoolSnapshot(cfg.PoolsOut, pools); err != nil {
			return err
		}
	}

	logger.Info("estimate start",
		zap.String("positions", cfg.Positions),
		zap.Int("loaded", len(positions)),
		zap.Int("pools", len(pools)),
		zap.String("policy", cfg.Policy),
		zap.String("out", cfg.Out),
	)

	estimates, err := engine.EstimatePositions(positions, pools)
	if err != nil {
		return err
	}

	out, err := storage.NewJSONLWriter(cfg.Out, false)
	if err != nil {
		return err
	}
	for _, est := range estimates {
		if err := out.Write(est.Record()); err != nil {
			out.Close()
			return err
		}
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}

	byOwner := make(map[string][]model.PointsEstimate)
	for _, est := range estimates {
		owner := model.NormalizeAddress(est.Owner)
		byOwner[owner] = append(byOwner[owner], est)
	}
	owners := make([]string, 0, len(byOwner))
	for owner := range byOwner {
		owners = append(owners, owner)
	}
	sort.Strings(owners)

	for _, owner := range owners {
		stats, err := aggregate.AggregateUserPoints(byOwner[owner], fixedpoint.Zero(model.PointsDecimals))
		if err != nil {
			return err
		}
		logger.Info("owner estimate",
			zap.String("owner", owner),
			zap.Int("positions", stats.Positions),
			zap.Int("active", stats.ActivePositions),
			zap.String("points_24h", display.FormatPoints(stats.ProjectedPer24h, display.PointsPlaces)),
		)
	}

	logger.Info("estimate complete",
		zap.Int("estimates", len(estimates)),
		zap.Int("owners", len(owners)),
	)
	return nil
}

func writePoolSnapshot(path string, pools map[string]model.PoolState) error {
	addresses := make([]string, 0, len(pools))
	for address := range pools {
		addresses = append(addresses, address)
	}
	sort.Strings(addresses)

	out, err := storage.NewJSONLWriter(path, false)
	if err != nil {
		return err
	}
	for _, address := range addresses {
		if err := out.Write(pools[address].Record()); err != nil {
			out.Close()
			return err
		}
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close pool snapshot: %w", err)
	}
	return nil
}
