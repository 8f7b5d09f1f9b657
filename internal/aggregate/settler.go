package aggregate

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pointsScope/internal/fixedpoint"
	"pointsScope/internal/model"
	"pointsScope/internal/points"
	"pointsScope/internal/storage"
)

// PoolSource supplies the observed state of a pool.
type PoolSource interface {
	PoolState(ctx context.Context, address string) (model.PoolRecord, error)
}

// Ledger is the rewards ledger the settler reads from and writes to.
// Settle must apply a settlement atomically: a failed write leaves both
// boards and the job progress as they were.
type Ledger interface {
	LoadPromotedPools(ctx context.Context) ([]model.PromotedPool, error)
	LoadLeaderboard(ctx context.Context, kind model.Kind) ([]model.LeaderboardRow, error)
	LoadState(ctx context.Context, name model.JobName) (uint64, bool, error)
	Settle(ctx context.Context, st model.Settlement) error
}

// SettleConfig controls a settlement run. Since overrides the settled-up-to
// time stored in the ledger.
type SettleConfig struct {
	BatchSize int
	Since     uint64
	Job       model.JobName
}

// SettleResult summarizes a settlement run.
type SettleResult struct {
	Positions int
	Skipped   int
	Failed    int
	Owners    int
	Elapsed   time.Duration
	Board     []model.LeaderboardEntry
}

// Settler accrues projected points since the last run into the liquidity
// board and rebuilds the total board.
type Settler struct {
	cfg    SettleConfig
	engine *points.Engine
	ledger Ledger
	pools  PoolSource
	logger *zap.Logger
}

func NewSettler(cfg SettleConfig, engine *points.Engine, ledger Ledger, pools PoolSource, logger *zap.Logger) *Settler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil {
		engine = points.NewEngine(nil)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	if cfg.Job == "" {
		cfg.Job = model.JobSettle
	}
	return &Settler{
		cfg:    cfg,
		engine: engine,
		ledger: ledger,
		pools:  pools,
		logger: logger,
	}
}

// Run settles the positions in the JSONL file at positionsPath as of now.
func (s *Settler) Run(ctx context.Context, positionsPath string, now time.Time) (SettleResult, error) {
	if s.ledger == nil {
		return SettleResult{}, fmt.Errorf("ledger is nil")
	}
	if s.pools == nil {
		return SettleResult{}, fmt.Errorf("pool source is nil")
	}

	var result SettleResult
	nowTs := uint64(now.Unix())
	startTs, err := s.loadStartTimestamp(ctx)
	if err != nil {
		return SettleResult{}, err
	}
	if startTs > 0 && startTs < nowTs {
		result.Elapsed = time.Duration(nowTs-startTs) * time.Second
	} else if startTs > nowTs {
		s.logger.Warn("last settlement is in the future, accruing nothing",
			zap.Uint64("last_settled", startTs),
			zap.Uint64("now", nowTs),
		)
	}

	promoted, err := s.ledger.LoadPromotedPools(ctx)
	if err != nil {
		return SettleResult{}, fmt.Errorf("load promoted pools: %w", err)
	}
	rates := make(map[string]fixedpoint.Value, len(promoted))
	for _, p := range promoted {
		rate, err := p.Rate()
		if err != nil {
			return SettleResult{}, err
		}
		rates[model.NormalizeAddress(p.Address)] = rate
	}

	positions := make([]model.LiquidityPosition, 0, 1024)
	err = storage.ReadJSONL(positionsPath, func(line int, rec model.PositionRecord, decodeErr error) error {
		if decodeErr != nil {
			result.Failed++
			s.logger.Warn("decode position", zap.Int("line", line), zap.Error(decodeErr))
			return nil
		}
		position, err := rec.ToPosition()
		if err != nil {
			result.Failed++
			s.logger.Warn("invalid position", zap.String("id", rec.ID), zap.Error(err))
			return nil
		}
		if _, ok := rates[position.Pool]; !ok {
			result.Skipped++
			return nil
		}
		positions = append(positions, position)
		return nil
	})
	if err != nil {
		return SettleResult{}, err
	}
	result.Positions = len(positions)

	pools, err := s.loadPools(ctx, positions, rates)
	if err != nil {
		return SettleResult{}, err
	}

	estimates, err := s.engine.EstimatePositions(positions, pools)
	if err != nil {
		return SettleResult{}, err
	}
	owners, err := GroupByOwner(estimates, model.PointsDecimals)
	if err != nil {
		return SettleResult{}, err
	}
	result.Owners = len(owners)

	board, err := s.accrue(ctx, owners, result.Elapsed)
	if err != nil {
		return SettleResult{}, err
	}
	total, err := s.rebuildTotal(ctx, board)
	if err != nil {
		return SettleResult{}, err
	}
	// progress never moves backwards
	settledAt := nowTs
	if startTs > settledAt {
		settledAt = startTs
	}
	err = s.ledger.Settle(ctx, model.Settlement{
		Liquidity: boardRows(model.KindLiquidity, board),
		Total:     boardRows(model.KindTotal, total),
		Job:       s.cfg.Job,
		SettledAt: settledAt,
		BatchSize: s.cfg.BatchSize,
	})
	if err != nil {
		return SettleResult{}, fmt.Errorf("settle: %w", err)
	}
	result.Board = board

	s.logger.Info("settle complete",
		zap.Int("positions", result.Positions),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.Int("owners", result.Owners),
		zap.Int("board", len(board)),
		zap.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

func (s *Settler) loadStartTimestamp(ctx context.Context) (uint64, error) {
	if s.cfg.Since > 0 {
		return s.cfg.Since, nil
	}
	last, ok, err := s.ledger.LoadState(ctx, s.cfg.Job)
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", s.cfg.Job, err)
	}
	if !ok {
		return 0, nil
	}
	return last, nil
}

func (s *Settler) loadPools(ctx context.Context, positions []model.LiquidityPosition, rates map[string]fixedpoint.Value) (map[string]model.PoolState, error) {
	out := make(map[string]model.PoolState)
	for _, position := range positions {
		if _, ok := out[position.Pool]; ok {
			continue
		}
		rec, err := s.pools.PoolState(ctx, position.Pool)
		if err != nil {
			return nil, fmt.Errorf("pool %s state: %w", position.Pool, err)
		}
		state, err := rec.ToPoolState(rates[position.Pool])
		if err != nil {
			return nil, err
		}
		out[position.Pool] = state
	}
	return out, nil
}

// accrue adds pps*elapsed to each owner's settled liquidity points. Owners on
// the board without open positions keep their points and project nothing.
func (s *Settler) accrue(ctx context.Context, owners []*OwnerAccumulator, elapsed time.Duration) ([]model.LeaderboardEntry, error) {
	existing, err := s.loadBoard(ctx, model.KindLiquidity)
	if err != nil {
		return nil, err
	}
	byAddress := make(map[string]int, len(existing))
	for i, entry := range existing {
		existing[i].Last24hPoints = fixedpoint.Zero(model.PointsDecimals)
		existing[i].Positions = 0
		byAddress[entry.Address] = i
	}

	for _, owner := range owners {
		est := model.PointsEstimate{PointsPerSecond: owner.PointsPerSecond}
		accrued, err := points.AccruedOverWindow(est, elapsed)
		if err != nil {
			return nil, err
		}
		perDay, err := points.AccruedOverWindow(est, 24*time.Hour)
		if err != nil {
			return nil, err
		}

		i, ok := byAddress[owner.Address]
		if !ok {
			existing = append(existing, model.LeaderboardEntry{
				Address: owner.Address,
				Points:  fixedpoint.Zero(model.PointsDecimals),
			})
			i = len(existing) - 1
			byAddress[owner.Address] = i
		}
		entry := &existing[i]
		if entry.Points, err = entry.Points.Add(accrued); err != nil {
			return nil, fmt.Errorf("settle %s: %w", owner.Address, err)
		}
		entry.Last24hPoints = perDay
		entry.Positions = owner.Positions
	}
	return RankLeaderboard(existing)
}

func (s *Settler) rebuildTotal(ctx context.Context, liquidity []model.LeaderboardEntry) ([]model.LeaderboardEntry, error) {
	swap, err := s.loadBoard(ctx, model.KindSwap)
	if err != nil {
		return nil, err
	}
	return CombineTotals(liquidity, swap)
}

func (s *Settler) loadBoard(ctx context.Context, kind model.Kind) ([]model.LeaderboardEntry, error) {
	rows, err := s.ledger.LoadLeaderboard(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("load %s board: %w", kind, err)
	}
	out := make([]model.LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := row.ToEntry()
		if err != nil {
			return nil, fmt.Errorf("load %s board: %w", kind, err)
		}
		out = append(out, entry)
	}
	return out, nil
}

func boardRows(kind model.Kind, board []model.LeaderboardEntry) []model.LeaderboardRow {
	out := make([]model.LeaderboardRow, 0, len(board))
	for _, entry := range board {
		out = append(out, entry.Row(kind))
	}
	return out
}
