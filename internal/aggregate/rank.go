package aggregate

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"pointsScope/internal/fixedpoint"
	"pointsScope/internal/model"
)

// DefaultSnapshotDelay is how old a ledger snapshot may be before callers
// should flag the board as stale.
const DefaultSnapshotDelay = 4 * time.Hour

// ErrInvalidPage is returned for page or size values below one.
var ErrInvalidPage = errors.New("page and size must be >= 1")

// AggregateUserPoints sums a user's estimates. Settled points are carried
// unchanged in their own field.
func AggregateUserPoints(estimates []model.PointsEstimate, settled fixedpoint.Value) (model.AggregatedUserStats, error) {
	decimals := settled.Decimals()
	stats := model.AggregatedUserStats{
		SettledPoints:   settled,
		ProjectedPer24h: fixedpoint.Zero(decimals),
		PointsPerSecond: fixedpoint.Zero(decimals),
		Positions:       len(estimates),
	}
	var err error
	for _, est := range estimates {
		if stats.Address == "" {
			stats.Address = est.Owner
		}
		if est.Active {
			stats.ActivePositions++
		}
		stats.ProjectedPer24h, err = stats.ProjectedPer24h.Add(est.PointsPer24h)
		if err != nil {
			return model.AggregatedUserStats{}, fmt.Errorf("sum 24h points for %s: %w", est.PositionID, err)
		}
		stats.PointsPerSecond, err = stats.PointsPerSecond.Add(est.PointsPerSecond)
		if err != nil {
			return model.AggregatedUserStats{}, fmt.Errorf("sum points per second for %s: %w", est.PositionID, err)
		}
	}
	return stats, nil
}

// AttachRank copies the user's rank from a ranked board and derives the
// percentile bucket. Users missing from the board keep rank 0.
func AttachRank(stats model.AggregatedUserStats, ranked []model.LeaderboardEntry) model.AggregatedUserStats {
	address := model.NormalizeAddress(stats.Address)
	stats.Rank = 0
	stats.TopPercent = 0
	for _, entry := range ranked {
		if model.NormalizeAddress(entry.Address) == address {
			stats.Rank = entry.Rank
			break
		}
	}
	stats.TopPercent = TopPercent(stats.Rank, len(ranked))
	return stats
}

// TopPercent returns the smallest whole percentage p such that rank falls in
// the top p% of a board of total entries. Rank 1 of 1000 is the top 1%.
// It returns 0 when rank is outside 1..total.
func TopPercent(rank, total int) int {
	if rank < 1 || total < 1 || rank > total {
		return 0
	}
	return (rank*100 + total - 1) / total
}

// RankLeaderboard returns a sorted copy of entries with ranks 1..n. Order is
// points descending, then address ascending; duplicate addresses fall back to
// last-24h points and position count, both descending. Equal totals never
// share a rank.
func RankLeaderboard(entries []model.LeaderboardEntry) ([]model.LeaderboardEntry, error) {
	out := make([]model.LeaderboardEntry, len(entries))
	copy(out, entries)
	if len(out) == 0 {
		return out, nil
	}

	decimals := out[0].Points.Decimals()
	for _, entry := range out {
		if entry.Points.Decimals() != decimals {
			return nil, &fixedpoint.ExponentMismatchError{Left: decimals, Right: entry.Points.Decimals()}
		}
		if entry.Last24hPoints.Decimals() != decimals {
			return nil, &fixedpoint.ExponentMismatchError{Left: decimals, Right: entry.Last24hPoints.Decimals()}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return entryBefore(out[i], out[j])
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

func entryBefore(a, b model.LeaderboardEntry) bool {
	// exponents are checked by the caller, so Cmp cannot fail here
	if c, _ := a.Points.Cmp(b.Points); c != 0 {
		return c > 0
	}
	if c := strings.Compare(model.NormalizeAddress(a.Address), model.NormalizeAddress(b.Address)); c != 0 {
		return c < 0
	}
	if c, _ := a.Last24hPoints.Cmp(b.Last24hPoints); c != 0 {
		return c > 0
	}
	return a.Positions > b.Positions
}

// CombineTotals merges boards by address, summing points, last-24h points
// and positions, and ranks the result.
func CombineTotals(boards ...[]model.LeaderboardEntry) ([]model.LeaderboardEntry, error) {
	index := make(map[string]int)
	merged := make([]model.LeaderboardEntry, 0)
	for _, board := range boards {
		for _, entry := range board {
			key := model.NormalizeAddress(entry.Address)
			i, ok := index[key]
			if !ok {
				entry.Address = key
				entry.Rank = 0
				index[key] = len(merged)
				merged = append(merged, entry)
				continue
			}
			acc := &merged[i]
			var err error
			if acc.Points, err = acc.Points.Add(entry.Points); err != nil {
				return nil, fmt.Errorf("combine points for %s: %w", key, err)
			}
			if acc.Last24hPoints, err = acc.Last24hPoints.Add(entry.Last24hPoints); err != nil {
				return nil, fmt.Errorf("combine 24h points for %s: %w", key, err)
			}
			acc.Positions += entry.Positions
		}
	}
	return RankLeaderboard(merged)
}

// SnapshotStale reports whether a ledger snapshot taken at last is older
// than maxDelay at now. A zero last time is always stale.
func SnapshotStale(last, now time.Time, maxDelay time.Duration) bool {
	if last.IsZero() {
		return true
	}
	return now.Sub(last) > maxDelay
}
