package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// .env only fills variables that are not already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:          "pointscope",
		Short:        "Liquidity points estimation and leaderboard",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Fetch Mint/Burn logs of promoted pools",
		RunE:  runLogs,
	}

	logsCmd.Flags().String("rpc", "", "RPC URL")
	logsCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	logsCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	logsCmd.Flags().StringSlice("pool", nil, "pool addresses (comma-separated), defaults to promoted pools")
	logsCmd.Flags().String("promoted", "", "promoted pools (comma-separated pool=points_per_second)")
	logsCmd.Flags().String("topic0-map", "", "extra topic0->event mappings (comma-separated key=value)")
	logsCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	logsCmd.Flags().String("out", "./data/logs.jsonl", "output JSONL path")
	logsCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	logsCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	logsCmd.Flags().String("pg-dsn", "", "Postgres DSN, keeps the checkpoint in the ledger instead of a file")
	logsCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	logsCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	logsCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(logsCmd)

	positionsCmd := &cobra.Command{
		Use:   "positions",
		Short: "Rebuild open positions from raw Mint/Burn logs",
		RunE:  runPositions,
	}

	positionsCmd.Flags().String("in", "", "input raw logs JSONL")
	positionsCmd.Flags().String("out", "./data/positions.jsonl", "output positions JSONL")
	positionsCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL, empty to discard")
	positionsCmd.Flags().String("topic0-map", "", "extra topic0->event mappings (comma-separated key=value)")
	positionsCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(positionsCmd)

	estimateCmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate points per position and per owner",
		RunE:  runEstimate,
	}

	addPoolSourceFlags(estimateCmd)
	addWeightingFlags(estimateCmd)
	estimateCmd.Flags().String("positions", "", "input positions JSONL")
	estimateCmd.Flags().String("out", "./data/estimates.jsonl", "output estimates JSONL")
	estimateCmd.Flags().String("pools-out", "", "write the pool states used to this JSONL snapshot")
	estimateCmd.Flags().String("promoted", "", "promoted pools (comma-separated pool=points_per_second)")
	estimateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(estimateCmd)

	settleCmd := &cobra.Command{
		Use:   "settle",
		Short: "Accrue points since the last run into the leaderboard",
		RunE:  runSettle,
	}

	addPoolSourceFlags(settleCmd)
	addWeightingFlags(settleCmd)
	settleCmd.Flags().String("positions", "", "input positions JSONL")
	settleCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	settleCmd.Flags().Int("batch-size", 1000, "batch size for DB writes")
	settleCmd.Flags().String("since", "", "accrue from timestamp (unix seconds or RFC3339)")
	settleCmd.Flags().Bool("ensure-schema", false, "create ledger tables if missing")
	settleCmd.Flags().String("promoted", "", "promoted pools to store before settling (comma-separated pool=points_per_second)")
	settleCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(settleCmd)

	leaderboardCmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print one page of a leaderboard",
		RunE:  runLeaderboard,
	}

	leaderboardCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	leaderboardCmd.Flags().String("kind", "total", "leaderboard kind (liquidity, swap, total)")
	leaderboardCmd.Flags().Int("page", 1, "page number, starting at 1")
	leaderboardCmd.Flags().Int("page-size", 20, "entries per page")
	leaderboardCmd.Flags().Duration("max-delay", 4*time.Hour, "warn when the snapshot is older than this")
	leaderboardCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(leaderboardCmd)

	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Show settled and projected points for one address",
		RunE:  runUser,
	}

	addPoolSourceFlags(userCmd)
	addWeightingFlags(userCmd)
	userCmd.Flags().String("address", "", "user address")
	userCmd.Flags().String("positions", "", "input positions JSONL")
	userCmd.Flags().String("pg-dsn", "", "Postgres DSN (optional, for settled points and rank)")
	userCmd.Flags().String("kind", "liquidity", "leaderboard kind used for settled points and rank")
	userCmd.Flags().String("promoted", "", "promoted pools (comma-separated pool=points_per_second)")
	userCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(userCmd)

	scaleCmd := &cobra.Command{
		Use:   "scale",
		Short: "Project points for a deposit across range widths",
		RunE:  runScale,
	}

	addPoolSourceFlags(scaleCmd)
	addWeightingFlags(scaleCmd)
	scaleCmd.Flags().String("pool", "", "pool address")
	scaleCmd.Flags().String("rate", "", "pool reward rate in points per second")
	scaleCmd.Flags().String("amount0", "0", "token0 amount in raw units")
	scaleCmd.Flags().String("amount1", "0", "token1 amount in raw units")
	scaleCmd.Flags().StringSlice("half-widths", nil, "range half widths in tick spacings (comma-separated)")
	scaleCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(scaleCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addPoolSourceFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "RPC URL for live pool state")
	cmd.Flags().Uint64("block", 0, "block to read pool state at, 0 means latest")
	cmd.Flags().String("pools", "", "pool state JSONL snapshot (used instead of --rpc)")
	cmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
}

func addWeightingFlags(cmd *cobra.Command) {
	cmd.Flags().String("policy", "inverse-width", "range weighting (inverse-width, liquidity-share)")
	cmd.Flags().Int64("pivot", 100, "width in ticks at which inverse-width weighting halves")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
