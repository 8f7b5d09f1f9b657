package points

import "github.com/holiman/uint256"

// DefaultPivot is the range width, in ticks, at which InverseWidth halves
// a position's share.
const DefaultPivot = 100

// WeightPolicy scales a position's liquidity share by its range width.
// Weight returns num/den with num <= den and den > 0.
type WeightPolicy interface {
	Weight(width int64) (num, den *uint256.Int)
}

// InverseWidth weights a range of width w by Pivot/(Pivot+w). The weight is
// continuous and strictly decreasing in w, and never exceeds one.
type InverseWidth struct {
	Pivot uint64
}

func (p InverseWidth) Weight(width int64) (*uint256.Int, *uint256.Int) {
	pivot := p.Pivot
	if pivot == 0 {
		pivot = DefaultPivot
	}
	if width < 0 {
		width = 0
	}
	num := uint256.NewInt(pivot)
	den := new(uint256.Int).Add(num, uint256.NewInt(uint64(width)))
	return num, den
}

// LiquidityShare ignores width: a position earns its plain share of active
// liquidity.
type LiquidityShare struct{}

func (LiquidityShare) Weight(int64) (*uint256.Int, *uint256.Int) {
	return uint256.NewInt(1), uint256.NewInt(1)
}
