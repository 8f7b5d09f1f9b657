package dex

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"pointsScope/internal/model"
)

// ContractCaller performs eth_call. *chain.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ChainPoolSource reads pool state from chain at one pinned block so every
// pool in a run is observed at the same height. Results are cached per pool.
type ChainPoolSource struct {
	caller ContractCaller
	block  uint64
	retry  RetryPolicy
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[common.Address]model.PoolRecord
}

// NewChainPoolSource pins reads to blockNumber; zero reads latest.
func NewChainPoolSource(caller ContractCaller, blockNumber uint64, retry RetryPolicy, logger *zap.Logger) *ChainPoolSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChainPoolSource{
		caller: caller,
		block:  blockNumber,
		retry:  retry,
		logger: logger,
		cache:  make(map[common.Address]model.PoolRecord),
	}
}

// PoolState returns slot0, liquidity and tick spacing of the pool.
func (s *ChainPoolSource) PoolState(ctx context.Context, address string) (model.PoolRecord, error) {
	if s.caller == nil {
		return model.PoolRecord{}, fmt.Errorf("chain client is nil")
	}
	if !common.IsHexAddress(address) {
		return model.PoolRecord{}, fmt.Errorf("invalid pool address: %s", address)
	}
	pool := common.HexToAddress(address)

	s.mu.RLock()
	rec, ok := s.cache[pool]
	s.mu.RUnlock()
	if ok {
		return rec, nil
	}

	poolABI, err := V3PoolABI()
	if err != nil {
		return model.PoolRecord{}, fmt.Errorf("parse pool abi: %w", err)
	}

	rec = model.PoolRecord{
		Address:     model.NormalizeAddress(pool.Hex()),
		BlockNumber: s.block,
	}

	values, err := s.call(ctx, pool, poolABI, "slot0")
	if err != nil {
		return model.PoolRecord{}, err
	}
	if len(values) < 2 {
		return model.PoolRecord{}, fmt.Errorf("unexpected slot0 values: %d", len(values))
	}
	sqrtPrice, err := asBigInt(values[0])
	if err != nil {
		return model.PoolRecord{}, fmt.Errorf("slot0 sqrt price: %w", err)
	}
	tickInt, err := asBigInt(values[1])
	if err != nil {
		return model.PoolRecord{}, fmt.Errorf("slot0 tick: %w", err)
	}
	if rec.Tick, err = int24FromBig(tickInt); err != nil {
		return model.PoolRecord{}, fmt.Errorf("slot0 tick: %w", err)
	}
	rec.SqrtPriceX96 = sqrtPrice.String()

	values, err = s.call(ctx, pool, poolABI, "liquidity")
	if err != nil {
		return model.PoolRecord{}, err
	}
	liquidity, err := asBigInt(values[0])
	if err != nil {
		return model.PoolRecord{}, fmt.Errorf("liquidity: %w", err)
	}
	rec.Liquidity = liquidity.String()

	values, err = s.call(ctx, pool, poolABI, "tickSpacing")
	if err != nil {
		return model.PoolRecord{}, err
	}
	spacingInt, err := asBigInt(values[0])
	if err != nil {
		return model.PoolRecord{}, fmt.Errorf("tick spacing: %w", err)
	}
	if rec.TickSpacing, err = int24FromBig(spacingInt); err != nil {
		return model.PoolRecord{}, fmt.Errorf("tick spacing: %w", err)
	}

	s.mu.Lock()
	s.cache[pool] = rec
	s.mu.Unlock()

	s.logger.Debug("pool state loaded",
		zap.String("pool", rec.Address),
		zap.Int32("tick", rec.Tick),
		zap.String("liquidity", rec.Liquidity),
		zap.Uint64("block", s.block),
	)
	return rec, nil
}

func (s *ChainPoolSource) call(ctx context.Context, pool common.Address, poolABI abi.ABI, method string) ([]interface{}, error) {
	data, err := poolABI.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	var block *big.Int
	if s.block > 0 {
		block = new(big.Int).SetUint64(s.block)
	}

	var resp []byte
	err = s.retry.Do(ctx, s.logger, method, func(ctx context.Context) error {
		var callErr error
		resp, callErr = s.caller.CallContract(ctx, ethereum.CallMsg{To: &pool, Data: data}, block)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	values, err := poolABI.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("empty %s result", method)
	}
	return values, nil
}
