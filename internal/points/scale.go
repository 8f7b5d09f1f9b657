package points

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/daoleno/uniswapv3-sdk/utils"

	"pointsScope/internal/fixedpoint"
	"pointsScope/internal/model"
)

// DefaultHalfWidths are the slider stops, in tick-spacing units either side
// of the current tick.
var DefaultHalfWidths = []int32{0, 1, 2, 5, 10, 20, 50, 100}

// ScaleRequest describes a hypothetical deposit into a promoted pool.
type ScaleRequest struct {
	Pool       model.PoolState
	Amount0    *big.Int
	Amount1    *big.Int
	HalfWidths []int32
}

// ScalePoint is the projection for one range choice.
type ScalePoint struct {
	HalfWidth int32
	LowerTick int32
	UpperTick int32
	Liquidity fixedpoint.Value
	Estimate  model.PointsEstimate
}

// Scale holds projections ordered from the narrowest to the widest range.
// Min is the widest (lowest reward) choice and Max the narrowest.
type Scale struct {
	Points []ScalePoint
	Min    ScalePoint
	Middle ScalePoint
	Max    ScalePoint
}

// ConcentrationScale projects points for the same deposit over ranges of
// increasing width around the current tick. The deposit's own liquidity is
// added to the pool total before estimating.
func (e *Engine) ConcentrationScale(req ScaleRequest) (Scale, error) {
	if !req.Pool.Promoted() {
		return Scale{}, fmt.Errorf("pool %s is not promoted", req.Pool.Address)
	}
	amount0 := nonNegative(req.Amount0)
	amount1 := nonNegative(req.Amount1)
	if amount0 == nil || amount1 == nil {
		return Scale{}, fmt.Errorf("deposit amounts must be non-negative")
	}

	halfWidths := uniqueHalfWidths(req.HalfWidths)
	if len(halfWidths) == 0 {
		halfWidths = uniqueHalfWidths(DefaultHalfWidths)
	}

	sqrtCurrent := req.Pool.SqrtPriceX96
	if sqrtCurrent == nil {
		var err error
		sqrtCurrent, err = utils.GetSqrtRatioAtTick(int(req.Pool.CurrentTick))
		if err != nil {
			return Scale{}, fmt.Errorf("sqrt price at tick %d: %w", req.Pool.CurrentTick, err)
		}
	}

	out := Scale{Points: make([]ScalePoint, 0, len(halfWidths))}
	for _, k := range halfWidths {
		lower, upper := rangeAround(req.Pool.CurrentTick, req.Pool.TickSpacing, k)
		point, err := e.projectRange(req.Pool, sqrtCurrent, lower, upper, amount0, amount1)
		if err != nil {
			return Scale{}, fmt.Errorf("half width %d: %w", k, err)
		}
		point.HalfWidth = k
		out.Points = append(out.Points, point)
	}

	out.Max = out.Points[0]
	out.Min = out.Points[len(out.Points)-1]
	out.Middle = out.Points[len(out.Points)/2]
	return out, nil
}

func (e *Engine) projectRange(pool model.PoolState, sqrtCurrent *big.Int, lower, upper int32, amount0, amount1 *big.Int) (ScalePoint, error) {
	if lower >= upper {
		return ScalePoint{}, &model.InvalidRangeError{PositionID: "scale", Lower: lower, Upper: upper}
	}
	sqrtA, err := utils.GetSqrtRatioAtTick(int(lower))
	if err != nil {
		return ScalePoint{}, fmt.Errorf("sqrt price at tick %d: %w", lower, err)
	}
	sqrtB, err := utils.GetSqrtRatioAtTick(int(upper))
	if err != nil {
		return ScalePoint{}, fmt.Errorf("sqrt price at tick %d: %w", upper, err)
	}

	rawL := utils.MaxLiquidityForAmounts(sqrtCurrent, sqrtA, sqrtB, amount0, amount1, true)
	liquidity, err := fixedpoint.FromBig(rawL, 0)
	if err != nil {
		return ScalePoint{}, fmt.Errorf("deposit liquidity: %w", err)
	}

	withDeposit := pool
	withDeposit.Liquidity, err = pool.Liquidity.Add(liquidity)
	if err != nil {
		return ScalePoint{}, fmt.Errorf("pool liquidity with deposit: %w", err)
	}

	position := model.LiquidityPosition{
		ID:        fmt.Sprintf("scale:%d:%d", lower, upper),
		Pool:      pool.Address,
		LowerTick: lower,
		UpperTick: upper,
		Liquidity: liquidity,
	}
	est, err := e.EstimatePositionPoints(position, withDeposit, pool.RewardRatePerSecond)
	if err != nil {
		return ScalePoint{}, err
	}
	return ScalePoint{
		LowerTick: lower,
		UpperTick: upper,
		Liquidity: liquidity,
		Estimate:  est,
	}, nil
}

// rangeAround returns the range spanning k spacings below and k+1 above the
// spacing-aligned floor of tick. Near the usable tick bounds the range slides
// inward and keeps its width, unless it is wider than the whole usable span.
func rangeAround(tick, spacing, k int32) (int32, int32) {
	if spacing <= 0 {
		spacing = 1
	}
	base := int64(floorToSpacing(tick, spacing))
	width := (2*int64(k) + 1) * int64(spacing)
	lower := base - int64(k)*int64(spacing)
	upper := lower + width

	minUsable := -int64(floorToSpacing(int32(-utils.MinTick), spacing))
	maxUsable := int64(floorToSpacing(int32(utils.MaxTick), spacing))
	if upper > maxUsable {
		upper = maxUsable
		lower = upper - width
	}
	if lower < minUsable {
		lower = minUsable
		upper = lower + width
		if upper > maxUsable {
			upper = maxUsable
		}
	}
	return int32(lower), int32(upper)
}

func floorToSpacing(tick, spacing int32) int32 {
	q := tick / spacing
	if tick%spacing != 0 && tick < 0 {
		q--
	}
	return q * spacing
}

func uniqueHalfWidths(in []int32) []int32 {
	seen := make(map[int32]struct{}, len(in))
	out := make([]int32, 0, len(in))
	for _, k := range in {
		if k < 0 {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func nonNegative(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	if v.Sign() < 0 {
		return nil
	}
	return v
}
