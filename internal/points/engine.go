package points

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"pointsScope/internal/fixedpoint"
	"pointsScope/internal/model"
)

// Engine estimates point accrual for positions. It holds no mutable state and
// is safe for concurrent use.
type Engine struct {
	policy WeightPolicy
}

// NewEngine returns an Engine using policy, or InverseWidth with the default
// pivot when policy is nil.
func NewEngine(policy WeightPolicy) *Engine {
	if policy == nil {
		policy = InverseWidth{Pivot: DefaultPivot}
	}
	return &Engine{policy: policy}
}

// Policy returns the weighting policy in use.
func (e *Engine) Policy() WeightPolicy {
	return e.policy
}

// EstimatePositionPoints returns the instantaneous accrual of position in pool
// at the given reward rate. The estimate has the rate's exponent.
//
// An active position earns
//
//	rate * L * num(w) / (max(poolL, L) * den(w))
//
// where w is the range width and num/den the policy weight. The product is
// computed with a 512-bit intermediate and truncated once.
func (e *Engine) EstimatePositionPoints(position model.LiquidityPosition, pool model.PoolState, rate fixedpoint.Value) (model.PointsEstimate, error) {
	est := model.ZeroEstimate(position, rate.Decimals())
	if rate.IsZero() {
		return est, nil
	}
	if position.LowerTick >= position.UpperTick {
		return model.PointsEstimate{}, &model.InvalidRangeError{
			PositionID: position.ID,
			Lower:      position.LowerTick,
			Upper:      position.UpperTick,
		}
	}
	if !position.InRange(pool.CurrentTick) {
		return est, nil
	}
	est.Active = true

	liquidity := position.Liquidity.Raw()
	if liquidity.IsZero() {
		return est, nil
	}

	total := pool.Liquidity.Raw()
	if total.Lt(liquidity) {
		total = liquidity
	}

	wNum, wDen := e.policy.Weight(position.Width())
	if wDen == nil || wDen.IsZero() {
		return model.PointsEstimate{}, fmt.Errorf("weight policy returned zero denominator for width %d", position.Width())
	}

	num, overflow := new(uint256.Int).MulOverflow(liquidity, wNum)
	if overflow {
		return model.PointsEstimate{}, &fixedpoint.OverflowError{Op: "liquidity weight"}
	}
	den, overflow := new(uint256.Int).MulOverflow(total, wDen)
	if overflow {
		return model.PointsEstimate{}, &fixedpoint.OverflowError{Op: "pool weight"}
	}

	pps, err := rate.MulDiv(num, den)
	if err != nil {
		return model.PointsEstimate{}, fmt.Errorf("points per second: %w", err)
	}
	perDay, err := pps.MulUint64(model.SecondsPerDay)
	if err != nil {
		return model.PointsEstimate{}, fmt.Errorf("points per 24h: %w", err)
	}

	est.PointsPerSecond = pps
	est.PointsPer24h = perDay
	return est, nil
}

// EstimatePositions estimates every position whose pool is known and
// promoted. Positions in other pools are skipped, not reported as zero.
//
// Each pool's liquidity is raised to the summed liquidity of the active
// positions given for it, so the estimates of one pool never add up to more
// than its rate even when the pool reading is older or smaller than the
// position set.
func (e *Engine) EstimatePositions(positions []model.LiquidityPosition, pools map[string]model.PoolState) ([]model.PointsEstimate, error) {
	active, err := activeLiquidity(positions, pools)
	if err != nil {
		return nil, err
	}

	out := make([]model.PointsEstimate, 0, len(positions))
	for _, position := range positions {
		key := model.NormalizeAddress(position.Pool)
		pool, ok := pools[key]
		if !ok || !pool.Promoted() {
			continue
		}
		if sum, ok := active[key]; ok {
			c, err := sum.Cmp(pool.Liquidity)
			if err != nil {
				return nil, fmt.Errorf("pool %s liquidity: %w", key, err)
			}
			if c > 0 {
				pool.Liquidity = sum
			}
		}
		est, err := e.EstimatePositionPoints(position, pool, pool.RewardRatePerSecond)
		if err != nil {
			return nil, fmt.Errorf("estimate position %s: %w", position.ID, err)
		}
		out = append(out, est)
	}
	return out, nil
}

// activeLiquidity sums the liquidity of in-range positions per promoted pool.
func activeLiquidity(positions []model.LiquidityPosition, pools map[string]model.PoolState) (map[string]fixedpoint.Value, error) {
	sums := make(map[string]fixedpoint.Value)
	for _, position := range positions {
		key := model.NormalizeAddress(position.Pool)
		pool, ok := pools[key]
		if !ok || !pool.Promoted() {
			continue
		}
		if position.LowerTick >= position.UpperTick || !position.InRange(pool.CurrentTick) {
			continue
		}
		sum, ok := sums[key]
		if !ok {
			sums[key] = position.Liquidity
			continue
		}
		next, err := sum.Add(position.Liquidity)
		if err != nil {
			return nil, fmt.Errorf("active liquidity of pool %s: %w", key, err)
		}
		sums[key] = next
	}
	return sums, nil
}

// AccruedOverWindow projects an estimate over a caller-supplied window,
// truncated to whole seconds.
func AccruedOverWindow(est model.PointsEstimate, window time.Duration) (fixedpoint.Value, error) {
	if window < 0 {
		return fixedpoint.Value{}, fmt.Errorf("negative accrual window %s", window)
	}
	seconds := uint64(window / time.Second)
	accrued, err := est.PointsPerSecond.MulUint64(seconds)
	if err != nil {
		return fixedpoint.Value{}, fmt.Errorf("accrue over %s: %w", window, err)
	}
	return accrued, nil
}
