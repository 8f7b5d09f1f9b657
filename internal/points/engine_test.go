package points

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"pgregory.net/rapid"

	"pointsScope/internal/fixedpoint"
	"pointsScope/internal/model"
)

func rate(whole uint64) fixedpoint.Value {
	v, err := fixedpoint.FromUint64(whole, 0).Rescale(model.PointsDecimals)
	if err != nil {
		panic(err)
	}
	return v
}

func position(id string, lower, upper int32, liquidity uint64) model.LiquidityPosition {
	return model.LiquidityPosition{
		ID:        id,
		Owner:     "0xowner",
		Pool:      "0xpool",
		LowerTick: lower,
		UpperTick: upper,
		Liquidity: fixedpoint.FromUint64(liquidity, 0),
	}
}

func pool(tick int32, liquidity uint64, r fixedpoint.Value) model.PoolState {
	return model.PoolState{
		Address:             "0xpool",
		CurrentTick:         tick,
		TickSpacing:         1,
		Liquidity:           fixedpoint.FromUint64(liquidity, 0),
		RewardRatePerSecond: r,
	}
}

func cmp(t *testing.T, a, b fixedpoint.Value) int {
	t.Helper()
	c, err := a.Cmp(b)
	if err != nil {
		t.Fatalf("cmp: %v", err)
	}
	return c
}

func TestNarrowRangeEarnsMoreWithinRate(t *testing.T) {
	engine := NewEngine(nil)
	r := rate(100_000)
	p := pool(0, 2000, r)

	a, err := engine.EstimatePositionPoints(position("a", -1, 1, 1000), p, r)
	if err != nil {
		t.Fatalf("estimate a: %v", err)
	}
	b, err := engine.EstimatePositionPoints(position("b", -5, 5, 1000), p, r)
	if err != nil {
		t.Fatalf("estimate b: %v", err)
	}

	if !a.Active || !b.Active {
		t.Fatalf("both positions should be active")
	}
	if cmp(t, a.PointsPerSecond, b.PointsPerSecond) <= 0 {
		t.Fatalf("narrow %s should exceed wide %s", a.PointsPerSecond, b.PointsPerSecond)
	}
	sum, err := a.PointsPerSecond.Add(b.PointsPerSecond)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if cmp(t, sum, r) > 0 {
		t.Fatalf("combined %s exceeds rate %s", sum, r)
	}
}

func TestZeroRateShortCircuits(t *testing.T) {
	engine := NewEngine(nil)
	zero := fixedpoint.Zero(model.PointsDecimals)

	// inverted range is not checked when nothing is being distributed
	est, err := engine.EstimatePositionPoints(position("x", 10, -10, 5), pool(0, 10, zero), zero)
	if err != nil {
		t.Fatalf("zero rate should not fail: %v", err)
	}
	if est.Active || !est.PointsPerSecond.IsZero() || !est.PointsPer24h.IsZero() {
		t.Fatalf("expected zero estimate, got %+v", est)
	}
}

func TestInvalidRange(t *testing.T) {
	engine := NewEngine(nil)
	r := rate(1)
	for _, bounds := range [][2]int32{{10, 10}, {10, -10}} {
		_, err := engine.EstimatePositionPoints(position("bad", bounds[0], bounds[1], 5), pool(0, 10, r), r)
		var rangeErr *model.InvalidRangeError
		if !errors.As(err, &rangeErr) {
			t.Fatalf("expected InvalidRangeError for %v, got %v", bounds, err)
		}
		if rangeErr.PositionID != "bad" {
			t.Fatalf("position id mismatch: %+v", rangeErr)
		}
	}
}

func TestActivityBoundaries(t *testing.T) {
	engine := NewEngine(nil)
	r := rate(10)
	pos := position("edge", -10, 10, 100)

	lowerEdge, err := engine.EstimatePositionPoints(pos, pool(-10, 100, r), r)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if !lowerEdge.Active || lowerEdge.PointsPerSecond.IsZero() {
		t.Fatalf("lower tick is inclusive: %+v", lowerEdge)
	}

	upperEdge, err := engine.EstimatePositionPoints(pos, pool(10, 100, r), r)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if upperEdge.Active || !upperEdge.PointsPerSecond.IsZero() {
		t.Fatalf("upper tick is exclusive: %+v", upperEdge)
	}
}

func TestLiquidityShareMatchesPlainShare(t *testing.T) {
	engine := NewEngine(LiquidityShare{})
	r := rate(100)
	est, err := engine.EstimatePositionPoints(position("p", -100, 100, 250), pool(0, 1000, r), r)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if est.PointsPerSecond.String() != "25.000000000000" {
		t.Fatalf("plain share mismatch: %s", est.PointsPerSecond)
	}
}

func TestPositionLargerThanReportedPoolLiquidity(t *testing.T) {
	engine := NewEngine(LiquidityShare{})
	r := rate(7)
	est, err := engine.EstimatePositionPoints(position("p", -1, 1, 500), pool(0, 100, r), r)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if cmp(t, est.PointsPerSecond, r) != 0 {
		t.Fatalf("share is capped at the full rate: %s", est.PointsPerSecond)
	}
}

func TestOverflowSurfaces(t *testing.T) {
	engine := NewEngine(nil)
	huge := new(uint256.Int).SetAllOne()
	pos := position("p", -1, 1, 0)
	pos.Liquidity = fixedpoint.New(huge, 0)
	r := rate(1)

	_, err := engine.EstimatePositionPoints(pos, pool(0, 1, r), r)
	var overflow *fixedpoint.OverflowError
	if !errors.As(err, &overflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestEstimatePositionsSkipsUnpromotedPools(t *testing.T) {
	engine := NewEngine(nil)
	r := rate(10)
	promoted := pool(0, 1000, r)
	plain := pool(0, 1000, fixedpoint.Zero(model.PointsDecimals))
	plain.Address = "0xplain"

	positions := []model.LiquidityPosition{
		position("a", -10, 10, 100),
		{ID: "b", Pool: "0xPLAIN", LowerTick: -10, UpperTick: 10, Liquidity: fixedpoint.FromUint64(100, 0)},
		{ID: "c", Pool: "0xmissing", LowerTick: -10, UpperTick: 10, Liquidity: fixedpoint.FromUint64(100, 0)},
	}
	got, err := engine.EstimatePositions(positions, map[string]model.PoolState{
		"0xpool":  promoted,
		"0xplain": plain,
	})
	if err != nil {
		t.Fatalf("estimate positions: %v", err)
	}
	if len(got) != 1 || got[0].PositionID != "a" {
		t.Fatalf("expected only position a, got %+v", got)
	}
}

func TestEstimatePositionsStaysWithinRateWhenPoolReadingIsSmall(t *testing.T) {
	engine := NewEngine(nil)
	r := rate(100_000)
	p := pool(0, 1000, r)

	positions := []model.LiquidityPosition{
		position("a", -1, 1, 1000),
		position("b", -5, 5, 1000),
		position("idle", 10, 20, 1_000_000),
	}
	got, err := engine.EstimatePositions(positions, map[string]model.PoolState{"0xpool": p})
	if err != nil {
		t.Fatalf("estimate positions: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 estimates, got %d", len(got))
	}
	if cmp(t, got[0].PointsPerSecond, got[1].PointsPerSecond) <= 0 {
		t.Fatalf("narrow range should earn more: a=%s b=%s", got[0].PointsPerSecond, got[1].PointsPerSecond)
	}
	if !got[2].PointsPerSecond.IsZero() {
		t.Fatalf("out of range position earned %s", got[2].PointsPerSecond)
	}

	sum := fixedpoint.Zero(model.PointsDecimals)
	for _, est := range got {
		if sum, err = sum.Add(est.PointsPerSecond); err != nil {
			t.Fatalf("sum: %v", err)
		}
	}
	if cmp(t, sum, r) > 0 {
		t.Fatalf("pool paid %s, above its rate %s", sum, r)
	}
	// a earns 100000 * 1000/2000 * 100/102 points per second
	want, err := r.MulDiv(uint256.NewInt(1000*100), uint256.NewInt(2000*102))
	if err != nil {
		t.Fatalf("want: %v", err)
	}
	if cmp(t, got[0].PointsPerSecond, want) != 0 {
		t.Fatalf("a earned %s, want %s", got[0].PointsPerSecond, want)
	}
}

func TestAccruedOverWindow(t *testing.T) {
	est := model.PointsEstimate{PointsPerSecond: fixedpoint.FromUint64(3, model.PointsDecimals)}
	got, err := AccruedOverWindow(est, 90*time.Second+500*time.Millisecond)
	if err != nil {
		t.Fatalf("accrue: %v", err)
	}
	if got.Raw().Uint64() != 270 {
		t.Fatalf("accrued mismatch: %s", got.Raw())
	}
	if _, err := AccruedOverWindow(est, -time.Second); err == nil {
		t.Fatalf("expected error for negative window")
	}
}

func TestOutOfRangeNeverEarnsProperty(t *testing.T) {
	engine := NewEngine(nil)
	rapid.Check(t, func(t *rapid.T) {
		lower := int32(rapid.IntRange(-887272, 887271).Draw(t, "lower"))
		upper := lower + int32(rapid.IntRange(1, 10_000).Draw(t, "width"))
		var current int32
		if rapid.Bool().Draw(t, "below") {
			current = lower - int32(rapid.IntRange(1, 10_000).Draw(t, "gap"))
		} else {
			current = upper + int32(rapid.IntRange(0, 10_000).Draw(t, "gap"))
		}
		r := fixedpoint.FromUint64(rapid.Uint64().Draw(t, "rate"), model.PointsDecimals)
		liq := rapid.Uint64().Draw(t, "liquidity")

		est, err := engine.EstimatePositionPoints(position("p", lower, upper, liq), pool(current, liq, r), r)
		if err != nil {
			t.Fatalf("estimate: %v", err)
		}
		if est.Active || !est.PointsPerSecond.IsZero() {
			t.Fatalf("out of range position earned %s", est.PointsPerSecond)
		}
	})
}

func TestZeroRateProperty(t *testing.T) {
	engine := NewEngine(nil)
	zero := fixedpoint.Zero(model.PointsDecimals)
	rapid.Check(t, func(t *rapid.T) {
		lower := int32(rapid.IntRange(-1000, 1000).Draw(t, "lower"))
		upper := int32(rapid.IntRange(-1000, 1000).Draw(t, "upper"))
		current := int32(rapid.IntRange(-1000, 1000).Draw(t, "current"))
		liq := rapid.Uint64().Draw(t, "liquidity")

		est, err := engine.EstimatePositionPoints(position("p", lower, upper, liq), pool(current, liq, zero), zero)
		if err != nil {
			t.Fatalf("zero rate failed: %v", err)
		}
		if !est.PointsPerSecond.IsZero() || !est.PointsPer24h.IsZero() {
			t.Fatalf("zero rate earned %s", est.PointsPerSecond)
		}
	})
}

func TestNestedNarrowerRangeEarnsMoreProperty(t *testing.T) {
	engine := NewEngine(nil)
	rapid.Check(t, func(t *rapid.T) {
		current := int32(rapid.IntRange(-100_000, 100_000).Draw(t, "current"))
		innerLower := current - int32(rapid.IntRange(0, 50_000).Draw(t, "innerBelow"))
		innerUpper := current + int32(rapid.IntRange(1, 50_000).Draw(t, "innerAbove"))
		outerLower := innerLower - int32(rapid.IntRange(0, 50_000).Draw(t, "outerBelow"))
		outerUpper := innerUpper + int32(rapid.IntRange(0, 50_000).Draw(t, "outerAbove"))
		if outerLower == innerLower && outerUpper == innerUpper {
			outerUpper++
		}

		liq := rapid.Uint64Range(1, 1<<62).Draw(t, "liquidity")
		poolLiq := liq * rapid.Uint64Range(1, 2).Draw(t, "poolMultiple")
		r := rate(rapid.Uint64Range(100_000, 10_000_000).Draw(t, "rate"))
		p := pool(current, poolLiq, r)

		inner, err := engine.EstimatePositionPoints(position("inner", innerLower, innerUpper, liq), p, r)
		if err != nil {
			t.Fatalf("inner: %v", err)
		}
		outer, err := engine.EstimatePositionPoints(position("outer", outerLower, outerUpper, liq), p, r)
		if err != nil {
			t.Fatalf("outer: %v", err)
		}
		c, err := inner.PointsPerSecond.Cmp(outer.PointsPerSecond)
		if err != nil {
			t.Fatalf("cmp: %v", err)
		}
		if c <= 0 {
			t.Fatalf("inner %s should exceed outer %s", inner.PointsPerSecond, outer.PointsPerSecond)
		}
	})
}

func TestPer24hIsExactMultipleProperty(t *testing.T) {
	engine := NewEngine(nil)
	rapid.Check(t, func(t *rapid.T) {
		lower := int32(rapid.IntRange(-1000, 0).Draw(t, "lower"))
		upper := int32(rapid.IntRange(1, 1000).Draw(t, "upper"))
		liq := rapid.Uint64Range(1, 1<<60).Draw(t, "liquidity")
		r := fixedpoint.FromUint64(rapid.Uint64().Draw(t, "rate"), model.PointsDecimals)

		est, err := engine.EstimatePositionPoints(position("p", lower, upper, liq), pool(0, liq, r), r)
		if err != nil {
			t.Fatalf("estimate: %v", err)
		}
		want := new(big.Int).Mul(est.PointsPerSecond.Big(), big.NewInt(86400))
		if est.PointsPer24h.Big().Cmp(want) != 0 {
			t.Fatalf("24h %s != 86400 * %s", est.PointsPer24h, est.PointsPerSecond)
		}
	})
}
