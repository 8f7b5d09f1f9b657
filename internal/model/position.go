package model

import (
	"fmt"
	"strings"

	"pointsScope/internal/fixedpoint"
)

// LiquidityPosition is one concentrated-liquidity range owned by an address.
// Liquidity is a raw integer (exponent 0).
type LiquidityPosition struct {
	ID        string
	Owner     string
	Pool      string
	LowerTick int32
	UpperTick int32
	Liquidity fixedpoint.Value
}

// Width returns the number of ticks covered by the range.
func (p LiquidityPosition) Width() int64 {
	return int64(p.UpperTick) - int64(p.LowerTick)
}

// InRange reports whether tick lies in [LowerTick, UpperTick).
func (p LiquidityPosition) InRange(tick int32) bool {
	return p.LowerTick <= tick && tick < p.UpperTick
}

// PositionRecord is the JSONL shape of a position.
type PositionRecord struct {
	ID          string `json:"id"`
	Owner       string `json:"owner"`
	Pool        string `json:"pool"`
	TickLower   int32  `json:"tick_lower"`
	TickUpper   int32  `json:"tick_upper"`
	Liquidity   string `json:"liquidity"`
	UpdatedAt   uint64 `json:"updated_at,omitempty"`
	BlockNumber uint64 `json:"block_number,omitempty"`
}

// ToPosition validates the record into a LiquidityPosition.
func (r PositionRecord) ToPosition() (LiquidityPosition, error) {
	if r.TickLower >= r.TickUpper {
		return LiquidityPosition{}, &InvalidRangeError{PositionID: r.ID, Lower: r.TickLower, Upper: r.TickUpper}
	}
	liquidity, err := fixedpoint.ParseRaw(r.Liquidity, 0)
	if err != nil {
		return LiquidityPosition{}, fmt.Errorf("position %s liquidity: %w", r.ID, err)
	}
	return LiquidityPosition{
		ID:        r.ID,
		Owner:     NormalizeAddress(r.Owner),
		Pool:      NormalizeAddress(r.Pool),
		LowerTick: r.TickLower,
		UpperTick: r.TickUpper,
		Liquidity: liquidity,
	}, nil
}

// InvalidRangeError reports a position whose lower tick is not below its upper tick.
type InvalidRangeError struct {
	PositionID string
	Lower      int32
	Upper      int32
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range for position %s: lower %d >= upper %d", e.PositionID, e.Lower, e.Upper)
}

// PositionKey identifies a position by owner, pool and range.
func PositionKey(owner, pool string, lower, upper int32) string {
	return fmt.Sprintf("%s:%s:%d:%d", NormalizeAddress(pool), NormalizeAddress(owner), lower, upper)
}

// NormalizeAddress lowercases and trims an address for use as a map key.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
