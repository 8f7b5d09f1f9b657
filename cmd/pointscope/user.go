package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pointsScope/internal/aggregate"
	"pointsScope/internal/config"
	"pointsScope/internal/display"
	"pointsScope/internal/fixedpoint"
	"pointsScope/internal/model"
	"pointsScope/internal/storage/postgres"
)

func runUser(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadUser(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if !common.IsHexAddress(cfg.Address) {
		return fmt.Errorf("invalid address: %q", cfg.Address)
	}
	address := model.NormalizeAddress(cfg.Address)
	kind, err := model.ParseKind(cfg.Kind)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settled := fixedpoint.Zero(model.PointsDecimals)
	var ranked []model.LeaderboardEntry
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()

		if ranked, err = loadRankedBoard(ctx, store, kind); err != nil {
			return err
		}
		for _, entry := range ranked {
			if entry.Address == address {
				settled = entry.Points
				break
			}
		}
	}

	var estimates []model.PointsEstimate
	if cfg.Positions != "" {
		if estimates, err = estimateOwner(ctx, cfg, address, logger); err != nil {
			return err
		}
	}

	stats, err := aggregate.AggregateUserPoints(estimates, settled)
	if err != nil {
		return err
	}
	stats.Address = address
	stats = aggregate.AttachRank(stats, ranked)

	rank := "-"
	if stats.Rank > 0 {
		rank = fmt.Sprintf("%d (top %d%%)", stats.Rank, stats.TopPercent)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "address:      %s\n", stats.Address)
	fmt.Fprintf(out, "rank:         %s\n", rank)
	fmt.Fprintf(out, "points:       %s\n", display.FormatWithSuffix(stats.SettledPoints, display.PointsPlaces))
	fmt.Fprintf(out, "next 24h:     %s\n", display.FormatPoints(stats.ProjectedPer24h, display.PointsPlaces))
	fmt.Fprintf(out, "positions:    %d (%d in range)\n", stats.Positions, stats.ActivePositions)
	return nil
}

func estimateOwner(ctx context.Context, cfg config.UserConfig, owner string, logger *zap.Logger) ([]model.PointsEstimate, error) {
	engine, err := newEngine(cfg.Weighting)
	if err != nil {
		return nil, err
	}
	_, rates, err := promotedPools(cfg.Promoted)
	if err != nil {
		return nil, err
	}
	positions, err := loadPositions(cfg.Positions, owner, logger)
	if err != nil {
		return nil, err
	}
	if len(positions) == 0 || len(rates) == 0 {
		return nil, nil
	}

	source, closeSource, err := openPoolSource(ctx, cfg.PoolSource, logger)
	if err != nil {
		return nil, err
	}
	defer closeSource()

	pools, err := loadPoolStates(ctx, source, positions, rates)
	if err != nil {
		return nil, err
	}
	return engine.EstimatePositions(positions, pools)
}
