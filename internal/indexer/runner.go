package indexer

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"pointsScope/internal/dex"
	"pointsScope/internal/storage"
)

// LogSource is the chain access the runner needs. *chain.Client satisfies it.
type LogSource interface {
	ChainID(ctx context.Context) (*big.Int, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
}

// RunConfig holds runtime settings for a log sync.
type RunConfig struct {
	FromBlock uint64
	ToBlock   uint64
	Pools     []common.Address
	Topic0    []common.Hash
	BatchSize uint64
	Retry     dex.RetryPolicy
}

// RunResult summarizes a sync.
type RunResult struct {
	From       uint64
	To         uint64
	Batches    int
	Logs       int
	Duplicates int
}

// Runner copies pool liquidity logs from the chain into a sink, batch by
// batch, saving a checkpoint after each batch.
type Runner struct {
	cfg        RunConfig
	source     LogSource
	sink       storage.Sink
	checkpoint Checkpoint
	logger     *zap.Logger
	seen       map[string]struct{}
}

func NewRunner(cfg RunConfig, source LogSource, sink storage.Sink, checkpoint Checkpoint, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		source:     source,
		sink:       sink,
		checkpoint: checkpoint,
		logger:     logger,
		seen:       make(map[string]struct{}),
	}
}

// Run syncs [FromBlock, ToBlock], resuming after the checkpoint when it is
// ahead of FromBlock. ToBlock 0 means the latest block.
func (r *Runner) Run(ctx context.Context) (RunResult, error) {
	if r.source == nil {
		return RunResult{}, fmt.Errorf("log source is nil")
	}
	if r.sink == nil {
		return RunResult{}, fmt.Errorf("sink is nil")
	}
	if len(r.cfg.Pools) == 0 {
		return RunResult{}, fmt.Errorf("at least one pool is required")
	}

	chainID, err := r.source.ChainID(ctx)
	if err != nil {
		return RunResult{}, fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return RunResult{}, fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}

	result := RunResult{From: r.cfg.FromBlock, To: r.cfg.ToBlock}
	if result.To == 0 {
		if result.To, err = r.source.LatestBlockNumber(ctx); err != nil {
			return RunResult{}, fmt.Errorf("get latest block: %w", err)
		}
	}
	if r.checkpoint != nil {
		last, ok, err := r.checkpoint.Load(ctx)
		if err != nil {
			return RunResult{}, fmt.Errorf("load checkpoint: %w", err)
		}
		if ok && last >= result.From {
			result.From = last + 1
			r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", last), zap.Uint64("from", result.From))
		}
	}
	if result.From > result.To {
		r.logger.Info("nothing to sync", zap.Uint64("from", result.From), zap.Uint64("to", result.To))
		return result, nil
	}

	ranges, err := SplitRange(result.From, result.To, r.cfg.BatchSize)
	if err != nil {
		return RunResult{}, err
	}

	for _, span := range ranges {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		written, dupes, err := r.syncRange(ctx, chainID.Uint64(), span)
		if err != nil {
			return result, err
		}
		result.Batches++
		result.Logs += written
		result.Duplicates += dupes

		if err := r.sink.Flush(); err != nil {
			return result, fmt.Errorf("flush batch %d-%d: %w", span.From, span.To, err)
		}
		if r.checkpoint != nil {
			if err := r.checkpoint.Save(ctx, span.To); err != nil {
				return result, fmt.Errorf("save checkpoint: %w", err)
			}
		}
		r.logger.Info("batch complete",
			zap.Uint64("from", span.From),
			zap.Uint64("to", span.To),
			zap.Int("logs", written),
		)
	}
	return result, nil
}

func (r *Runner) syncRange(ctx context.Context, chainID uint64, span BlockRange) (int, int, error) {
	var logs []types.Log
	err := r.cfg.Retry.Do(ctx, r.logger, "filter logs", func(ctx context.Context) error {
		var err error
		logs, err = r.source.FilterLogs(ctx, span.From, span.To, r.cfg.Pools, r.cfg.Topic0)
		return err
	})
	if err != nil {
		return 0, 0, fmt.Errorf("filter logs %d-%d: %w", span.From, span.To, err)
	}

	var written, dupes int
	for _, log := range logs {
		id := logID(log)
		if _, ok := r.seen[id]; ok {
			dupes++
			continue
		}
		r.seen[id] = struct{}{}

		var ts uint64
		err := r.cfg.Retry.Do(ctx, r.logger, "block timestamp", func(ctx context.Context) error {
			var err error
			ts, err = r.source.BlockTimestamp(ctx, log.BlockNumber)
			return err
		})
		if err != nil {
			return 0, 0, fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
		}
		if err := r.sink.Write(logRecord(chainID, log, ts)); err != nil {
			return 0, 0, fmt.Errorf("store log: %w", err)
		}
		written++
	}
	return written, dupes, nil
}
