package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pointsScope/internal/config"
	"pointsScope/internal/display"
	"pointsScope/internal/model"
	"pointsScope/internal/points"
)

func runScale(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadScale(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Pool == "" {
		return fmt.Errorf("pool address is required")
	}
	if cfg.Rate == "" {
		return fmt.Errorf("reward rate is required")
	}
	rate, err := model.PromotedPool{Address: cfg.Pool, PointsPerSecond: cfg.Rate}.Rate()
	if err != nil {
		return err
	}
	amount0, ok := new(big.Int).SetString(cfg.Amount0, 10)
	if !ok {
		return fmt.Errorf("invalid amount0: %q", cfg.Amount0)
	}
	amount1, ok := new(big.Int).SetString(cfg.Amount1, 10)
	if !ok {
		return fmt.Errorf("invalid amount1: %q", cfg.Amount1)
	}
	halfWidths, err := config.ParseHalfWidths(cfg.HalfWidths)
	if err != nil {
		return err
	}
	engine, err := newEngine(cfg.Weighting)
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

	rec, err := source.PoolState(ctx, cfg.Pool)
	if err != nil {
		return fmt.Errorf("pool %s state: %w", cfg.Pool, err)
	}
	pool, err := rec.ToPoolState(rate)
	if err != nil {
		return err
	}

	scale, err := engine.ConcentrationScale(points.ScaleRequest{
		Pool:       pool,
		Amount0:    amount0,
		Amount1:    amount1,
		HalfWidths: halfWidths,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "HALF WIDTH\tLOWER\tUPPER\tLIQUIDITY\tPOINTS / 24H")
	for _, p := range scale.Points {
		fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%s\n",
			p.HalfWidth,
			p.LowerTick,
			p.UpperTick,
			p.Liquidity.String(),
			display.FormatPoints(p.Estimate.PointsPer24h, display.PointsPlaces),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	logger.Info("scale complete",
		zap.String("pool", pool.Address),
		zap.Int32("tick", pool.CurrentTick),
		zap.String("min_24h", display.FormatWithSuffix(scale.Min.Estimate.PointsPer24h, display.PointsPlaces)),
		zap.String("middle_24h", display.FormatWithSuffix(scale.Middle.Estimate.PointsPer24h, display.PointsPlaces)),
		zap.String("max_24h", display.FormatWithSuffix(scale.Max.Estimate.PointsPer24h, display.PointsPlaces)),
	)
	return nil
}
