package aggregate

import (
	"fmt"
	"sort"

	"pointsScope/internal/fixedpoint"
	"pointsScope/internal/model"
)

// OwnerAccumulator collects estimates for one owner during a settlement run.
type OwnerAccumulator struct {
	Address         string
	PointsPerSecond fixedpoint.Value
	Positions       int
	ActivePositions int
}

func NewOwnerAccumulator(address string, decimals uint8) *OwnerAccumulator {
	return &OwnerAccumulator{
		Address:         model.NormalizeAddress(address),
		PointsPerSecond: fixedpoint.Zero(decimals),
	}
}

// Add folds one estimate into the owner total.
func (a *OwnerAccumulator) Add(est model.PointsEstimate) error {
	sum, err := a.PointsPerSecond.Add(est.PointsPerSecond)
	if err != nil {
		return fmt.Errorf("owner %s position %s: %w", a.Address, est.PositionID, err)
	}
	a.PointsPerSecond = sum
	a.Positions++
	if est.Active {
		a.ActivePositions++
	}
	return nil
}

// GroupByOwner accumulates estimates per owner, ordered by address.
func GroupByOwner(estimates []model.PointsEstimate, decimals uint8) ([]*OwnerAccumulator, error) {
	byOwner := make(map[string]*OwnerAccumulator)
	for _, est := range estimates {
		key := model.NormalizeAddress(est.Owner)
		acc := byOwner[key]
		if acc == nil {
			acc = NewOwnerAccumulator(key, decimals)
			byOwner[key] = acc
		}
		if err := acc.Add(est); err != nil {
			return nil, err
		}
	}
	out := make([]*OwnerAccumulator, 0, len(byOwner))
	for _, acc := range byOwner {
		out = append(out, acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}
