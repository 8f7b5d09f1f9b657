package model

import "pointsScope/internal/fixedpoint"

// PointsDecimals is the exponent of every points quantity.
const PointsDecimals uint8 = 12

// SecondsPerDay converts a per-second rate into a 24h projection.
const SecondsPerDay = 86400

// PointsEstimate is the instantaneous accrual for one position.
type PointsEstimate struct {
	PositionID      string
	Owner           string
	Pool            string
	Active          bool
	PointsPerSecond fixedpoint.Value
	PointsPer24h    fixedpoint.Value
}

// ZeroEstimate returns an inactive estimate at the given exponent.
func ZeroEstimate(position LiquidityPosition, decimals uint8) PointsEstimate {
	return PointsEstimate{
		PositionID:      position.ID,
		Owner:           position.Owner,
		Pool:            position.Pool,
		PointsPerSecond: fixedpoint.Zero(decimals),
		PointsPer24h:    fixedpoint.Zero(decimals),
	}
}

// EstimateRecord is the JSONL shape of an estimate.
type EstimateRecord struct {
	PositionID      string `json:"position_id"`
	Owner           string `json:"owner"`
	Pool            string `json:"pool"`
	Active          bool   `json:"active"`
	PointsPerSecond string `json:"points_per_second"`
	PointsPer24h    string `json:"points_per_24h"`
}

// Record converts the estimate to its JSONL shape.
func (e PointsEstimate) Record() EstimateRecord {
	return EstimateRecord{
		PositionID:      e.PositionID,
		Owner:           e.Owner,
		Pool:            e.Pool,
		Active:          e.Active,
		PointsPerSecond: e.PointsPerSecond.String(),
		PointsPer24h:    e.PointsPer24h.String(),
	}
}

// AggregatedUserStats keeps settled and projected points apart.
// Rank and TopPercent are 0 when the user is not on the ranked board.
type AggregatedUserStats struct {
	Address         string
	SettledPoints   fixedpoint.Value
	ProjectedPer24h fixedpoint.Value
	PointsPerSecond fixedpoint.Value
	Positions       int
	ActivePositions int
	Rank            int
	TopPercent      int
}
