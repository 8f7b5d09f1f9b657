package model

import (
	"fmt"
	"math/big"

	"pointsScope/internal/fixedpoint"
)

// PoolState is the observed state of a pool at one block.
// RewardRatePerSecond is zero when the pool is not promoted.
type PoolState struct {
	Address             string
	CurrentTick         int32
	SqrtPriceX96        *big.Int
	TickSpacing         int32
	Liquidity           fixedpoint.Value
	RewardRatePerSecond fixedpoint.Value
	BlockNumber         uint64
}

// Promoted reports whether the pool earns points.
func (p PoolState) Promoted() bool {
	return !p.RewardRatePerSecond.IsZero()
}

// PoolRecord is the JSONL shape of pool state.
type PoolRecord struct {
	Address      string `json:"address"`
	Tick         int32  `json:"tick"`
	SqrtPriceX96 string `json:"sqrt_price_x96,omitempty"`
	TickSpacing  int32  `json:"tick_spacing"`
	Liquidity    string `json:"liquidity"`
	BlockNumber  uint64 `json:"block_number,omitempty"`
}

// ToPoolState validates the record. The reward rate comes from the promoted
// pool configuration, not from chain state.
func (r PoolRecord) ToPoolState(rate fixedpoint.Value) (PoolState, error) {
	liquidity, err := fixedpoint.ParseRaw(r.Liquidity, 0)
	if err != nil {
		return PoolState{}, fmt.Errorf("pool %s liquidity: %w", r.Address, err)
	}
	if r.TickSpacing < 0 {
		return PoolState{}, fmt.Errorf("pool %s: negative tick spacing %d", r.Address, r.TickSpacing)
	}
	state := PoolState{
		Address:             NormalizeAddress(r.Address),
		CurrentTick:         r.Tick,
		TickSpacing:         r.TickSpacing,
		Liquidity:           liquidity,
		RewardRatePerSecond: rate,
		BlockNumber:         r.BlockNumber,
	}
	if r.SqrtPriceX96 != "" {
		sqrt, ok := new(big.Int).SetString(r.SqrtPriceX96, 10)
		if !ok || sqrt.Sign() < 0 {
			return PoolState{}, &fixedpoint.ParseError{Input: r.SqrtPriceX96, Reason: "invalid sqrt price"}
		}
		state.SqrtPriceX96 = sqrt
	}
	return state, nil
}

// Record converts the state back to its JSONL shape.
func (p PoolState) Record() PoolRecord {
	rec := PoolRecord{
		Address:     p.Address,
		Tick:        p.CurrentTick,
		TickSpacing: p.TickSpacing,
		Liquidity:   p.Liquidity.String(),
		BlockNumber: p.BlockNumber,
	}
	if p.SqrtPriceX96 != nil {
		rec.SqrtPriceX96 = p.SqrtPriceX96.String()
	}
	return rec
}

// PromotedPool configures a reward rate in whole points per second.
// The rate is scaled by 10^PointsDecimals when parsed.
type PromotedPool struct {
	Address         string `json:"address"`
	PointsPerSecond string `json:"points_per_second"`
}

// Rate parses PointsPerSecond at the points exponent.
func (p PromotedPool) Rate() (fixedpoint.Value, error) {
	rate, err := fixedpoint.Parse(p.PointsPerSecond, PointsDecimals)
	if err != nil {
		return fixedpoint.Value{}, fmt.Errorf("promoted pool %s rate: %w", p.Address, err)
	}
	return rate, nil
}
