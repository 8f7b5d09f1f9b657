package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pointsScope/internal/aggregate"
	"pointsScope/internal/config"
	"pointsScope/internal/display"
	"pointsScope/internal/model"
	"pointsScope/internal/storage/postgres"
)

func runLeaderboard(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadLeaderboard(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.PGDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}
	kind, err := model.ParseKind(cfg.Kind)
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

	ranked, err := loadRankedBoard(ctx, store, kind)
	if err != nil {
		return err
	}
	page, err := aggregate.Paginate(ranked, cfg.Page, cfg.PageSize)
	if err != nil {
		return err
	}

	if snapshot, ok, err := store.LoadSnapshotTime(ctx, kind); err != nil {
		return fmt.Errorf("load snapshot time: %w", err)
	} else if ok && aggregate.SnapshotStale(snapshot, time.Now(), cfg.MaxDelay) {
		logger.Warn("leaderboard snapshot is stale",
			zap.String("kind", string(kind)),
			zap.Time("snapshot", snapshot),
			zap.Duration("max_delay", cfg.MaxDelay),
		)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tADDRESS\tPOINTS\tLAST 24H\tPOSITIONS")
	for _, entry := range page.Entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n",
			entry.Rank,
			entry.Address,
			display.FormatPoints(entry.Points, display.PointsPlaces),
			display.FormatLast24h(entry.Last24hPoints),
			entry.Positions,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if page.TotalItems == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no entries")
		return nil
	}
	if len(page.Entries) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "page %d is past the end (%d pages)\n", page.Page, page.TotalPages)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d-%d of %d (page %d/%d)\n",
		page.LowerBound, page.UpperBound, page.TotalItems, page.Page, page.TotalPages)
	return nil
}

func loadRankedBoard(ctx context.Context, store *postgres.Store, kind model.Kind) ([]model.LeaderboardEntry, error) {
	rows, err := store.LoadLeaderboard(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("load %s board: %w", kind, err)
	}
	entries := make([]model.LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := row.ToEntry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return aggregate.RankLeaderboard(entries)
}
