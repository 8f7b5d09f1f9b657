package main

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"pointsScope/internal/aggregate"
	"pointsScope/internal/chain"
	"pointsScope/internal/config"
	"pointsScope/internal/dex"
	"pointsScope/internal/fixedpoint"
	"pointsScope/internal/model"
	"pointsScope/internal/points"
	"pointsScope/internal/storage"
)

func newEngine(w config.Weighting) (*points.Engine, error) {
	switch w.Policy {
	case "", "inverse-width":
		if w.Pivot <= 0 {
			return nil, fmt.Errorf("pivot must be positive")
		}
		return points.NewEngine(points.InverseWidth{Pivot: uint64(w.Pivot)}), nil
	case "liquidity-share":
		return points.NewEngine(points.LiquidityShare{}), nil
	default:
		return nil, fmt.Errorf("unknown weighting policy %q", w.Policy)
	}
}

// openPoolSource prefers a JSONL snapshot and falls back to the RPC.
// The returned close func is never nil.
func openPoolSource(ctx context.Context, src config.PoolSource, logger *zap.Logger) (aggregate.PoolSource, func(), error) {
	if src.Pools != "" {
		pools, err := storage.LoadStaticPoolSource(src.Pools)
		if err != nil {
			return nil, nil, fmt.Errorf("load pools: %w", err)
		}
		return pools, func() {}, nil
	}
	if src.RPCURL == "" {
		return nil, nil, fmt.Errorf("either pools or rpc url is required")
	}

	client, err := chain.NewClient(ctx, src.RPCURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect rpc: %w", err)
	}
	block := src.Block
	if block == 0 {
		if block, err = client.LatestBlockNumber(ctx); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("latest block: %w", err)
		}
	}
	logger.Info("reading pool state", zap.String("rpc", src.RPCURL), zap.Uint64("block", block))

	retry := dex.RetryPolicy{MaxRetries: src.MaxRetries, Backoff: src.RetryBackoff}
	return dex.NewChainPoolSource(client, block, retry, logger), client.Close, nil
}

// promotedPools parses pool=points_per_second pairs, ordered by address.
func promotedPools(pairs map[string]string) ([]model.PromotedPool, map[string]fixedpoint.Value, error) {
	out := make([]model.PromotedPool, 0, len(pairs))
	rates := make(map[string]fixedpoint.Value, len(pairs))
	for address, pps := range pairs {
		p := model.PromotedPool{Address: model.NormalizeAddress(address), PointsPerSecond: pps}
		rate, err := p.Rate()
		if err != nil {
			return nil, nil, err
		}
		out = append(out, p)
		rates[p.Address] = rate
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, rates, nil
}

// loadPositions reads positions, optionally keeping only one owner.
// Malformed lines are logged and skipped.
func loadPositions(path, owner string, logger *zap.Logger) ([]model.LiquidityPosition, error) {
	if path == "" {
		return nil, fmt.Errorf("positions path is required")
	}
	owner = model.NormalizeAddress(owner)
	positions := make([]model.LiquidityPosition, 0, 256)
	err := storage.ReadJSONL(path, func(line int, rec model.PositionRecord, decodeErr error) error {
		if decodeErr != nil {
			logger.Warn("decode position", zap.Int("line", line), zap.Error(decodeErr))
			return nil
		}
		position, err := rec.ToPosition()
		if err != nil {
			logger.Warn("invalid position", zap.String("id", rec.ID), zap.Error(err))
			return nil
		}
		if owner != "" && position.Owner != owner {
			return nil
		}
		positions = append(positions, position)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return positions, nil
}

// loadPoolStates fetches state for every promoted pool that has a position.
func loadPoolStates(ctx context.Context, source aggregate.PoolSource, positions []model.LiquidityPosition, rates map[string]fixedpoint.Value) (map[string]model.PoolState, error) {
	out := make(map[string]model.PoolState)
	for _, position := range positions {
		rate, ok := rates[position.Pool]
		if !ok {
			continue
		}
		if _, ok := out[position.Pool]; ok {
			continue
		}
		rec, err := source.PoolState(ctx, position.Pool)
		if err != nil {
			return nil, fmt.Errorf("pool %s state: %w", position.Pool, err)
		}
		state, err := rec.ToPoolState(rate)
		if err != nil {
			return nil, err
		}
		out[position.Pool] = state
	}
	return out, nil
}
