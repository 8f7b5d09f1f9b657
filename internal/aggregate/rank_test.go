package aggregate

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"pgregory.net/rapid"

	"pointsScope/internal/fixedpoint"
	"pointsScope/internal/model"
)

func pts(raw uint64) fixedpoint.Value {
	return fixedpoint.FromUint64(raw, model.PointsDecimals)
}

func entry(address string, points uint64) model.LeaderboardEntry {
	return model.LeaderboardEntry{Address: address, Points: pts(points), Last24hPoints: pts(0)}
}

func TestRankLeaderboardTieBreaksByAddress(t *testing.T) {
	in := []model.LeaderboardEntry{
		entry("0xcc", 10),
		entry("0xaa", 50),
		entry("0xbb", 10),
		entry("0xdd", 0),
	}
	ranked, err := RankLeaderboard(in)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}

	got := make([]string, 0, len(ranked))
	for i, e := range ranked {
		got = append(got, e.Address)
		if e.Rank != i+1 {
			t.Fatalf("rank mismatch at %d: %d", i, e.Rank)
		}
	}
	want := []string{"0xaa", "0xbb", "0xcc", "0xdd"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("order mismatch: %v != %v", got, want)
	}
	if in[0].Rank != 0 || in[0].Address != "0xcc" {
		t.Fatalf("input was modified: %+v", in[0])
	}
}

func TestRankLeaderboardRejectsMixedExponents(t *testing.T) {
	in := []model.LeaderboardEntry{
		entry("0xaa", 1),
		{Address: "0xbb", Points: fixedpoint.FromUint64(1, 6), Last24hPoints: fixedpoint.Zero(6)},
	}
	_, err := RankLeaderboard(in)
	var mismatch *fixedpoint.ExponentMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected exponent mismatch, got %v", err)
	}
}

func TestRankLeaderboardProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 60).Draw(t, "n")
		in := make([]model.LeaderboardEntry, n)
		for i := range in {
			in[i] = model.LeaderboardEntry{
				Address:       fmt.Sprintf("0x%02x", rapid.IntRange(0, 20).Draw(t, "addr")),
				Points:        pts(rapid.Uint64Range(0, 5).Draw(t, "points")),
				Last24hPoints: pts(rapid.Uint64Range(0, 3).Draw(t, "last24h")),
				Positions:     rapid.IntRange(0, 3).Draw(t, "positions"),
				Rank:          rapid.IntRange(0, 100).Draw(t, "rank"),
			}
		}

		first, err := RankLeaderboard(in)
		if err != nil {
			t.Fatalf("rank: %v", err)
		}
		second, err := RankLeaderboard(first)
		if err != nil {
			t.Fatalf("rerank: %v", err)
		}
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("ranking is not idempotent")
		}

		seen := make(map[int]bool, len(first))
		for i, e := range first {
			if e.Rank != i+1 || seen[e.Rank] {
				t.Fatalf("rank %d at index %d is not distinct and contiguous", e.Rank, i)
			}
			seen[e.Rank] = true
			if i > 0 {
				c, _ := first[i-1].Points.Cmp(e.Points)
				if c < 0 {
					t.Fatalf("points not descending at %d", i)
				}
			}
		}
	})
}

func TestAggregateUserPointsKeepsSettledSeparate(t *testing.T) {
	estimates := []model.PointsEstimate{
		{PositionID: "a", Owner: "0xuser", Active: true, PointsPerSecond: pts(2), PointsPer24h: pts(2 * 86400)},
		{PositionID: "b", Owner: "0xuser", PointsPerSecond: pts(0), PointsPer24h: pts(0)},
		{PositionID: "c", Owner: "0xuser", Active: true, PointsPerSecond: pts(3), PointsPer24h: pts(3 * 86400)},
	}
	stats, err := AggregateUserPoints(estimates, pts(1000))
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if stats.SettledPoints.Raw().Uint64() != 1000 {
		t.Fatalf("settled changed: %s", stats.SettledPoints.Raw())
	}
	if stats.ProjectedPer24h.Raw().Uint64() != 5*86400 || stats.PointsPerSecond.Raw().Uint64() != 5 {
		t.Fatalf("projection mismatch: %+v", stats)
	}
	if stats.Positions != 3 || stats.ActivePositions != 2 || stats.Address != "0xuser" {
		t.Fatalf("counts mismatch: %+v", stats)
	}

	empty, err := AggregateUserPoints(nil, pts(7))
	if err != nil {
		t.Fatalf("aggregate empty: %v", err)
	}
	if !empty.ProjectedPer24h.IsZero() || empty.SettledPoints.Raw().Uint64() != 7 {
		t.Fatalf("empty mismatch: %+v", empty)
	}

	bad := []model.PointsEstimate{{PointsPerSecond: fixedpoint.FromUint64(1, 6), PointsPer24h: fixedpoint.FromUint64(1, 6)}}
	if _, err := AggregateUserPoints(bad, pts(0)); err == nil {
		t.Fatalf("expected exponent mismatch")
	}
}

func TestAttachRank(t *testing.T) {
	ranked, err := RankLeaderboard([]model.LeaderboardEntry{entry("0xaa", 5), entry("0xbb", 9)})
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	stats := AttachRank(model.AggregatedUserStats{Address: "0xAA"}, ranked)
	if stats.Rank != 2 || stats.TopPercent != 100 {
		t.Fatalf("rank mismatch: %d top %d%%", stats.Rank, stats.TopPercent)
	}
	missing := AttachRank(model.AggregatedUserStats{Address: "0xzz", Rank: 4, TopPercent: 9}, ranked)
	if missing.Rank != 0 || missing.TopPercent != 0 {
		t.Fatalf("missing user should be unranked: %+v", missing)
	}
}

func TestTopPercent(t *testing.T) {
	cases := []struct {
		rank, total, want int
	}{
		{rank: 1, total: 1000, want: 1},
		{rank: 10, total: 1000, want: 1},
		{rank: 11, total: 1000, want: 2},
		{rank: 1, total: 3, want: 34},
		{rank: 3, total: 3, want: 100},
		{rank: 0, total: 3, want: 0},
		{rank: 4, total: 3, want: 0},
		{rank: 1, total: 0, want: 0},
	}
	for _, tc := range cases {
		if got := TopPercent(tc.rank, tc.total); got != tc.want {
			t.Fatalf("TopPercent(%d, %d) = %d, want %d", tc.rank, tc.total, got, tc.want)
		}
	}
}

func TestCombineTotals(t *testing.T) {
	lp := []model.LeaderboardEntry{
		{Address: "0xAA", Points: pts(10), Last24hPoints: pts(1), Positions: 2, Rank: 1},
		{Address: "0xbb", Points: pts(4), Last24hPoints: pts(0), Positions: 1, Rank: 2},
	}
	swap := []model.LeaderboardEntry{
		{Address: "0xaa", Points: pts(1), Last24hPoints: pts(1), Rank: 2},
		{Address: "0xcc", Points: pts(20), Last24hPoints: pts(5), Rank: 1},
	}
	total, err := CombineTotals(lp, swap)
	if err != nil {
		t.Fatalf("combine: %v", err)
	}
	if len(total) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(total))
	}
	if total[0].Address != "0xcc" || total[1].Address != "0xaa" || total[2].Address != "0xbb" {
		t.Fatalf("order mismatch: %+v", total)
	}
	if total[1].Points.Raw().Uint64() != 11 || total[1].Last24hPoints.Raw().Uint64() != 2 || total[1].Positions != 2 {
		t.Fatalf("merged entry mismatch: %+v", total[1])
	}
	if lp[0].Address != "0xAA" {
		t.Fatalf("input was modified")
	}
}

func TestSnapshotStale(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if !SnapshotStale(time.Time{}, now, DefaultSnapshotDelay) {
		t.Fatalf("missing snapshot should be stale")
	}
	if SnapshotStale(now.Add(-4*time.Hour), now, DefaultSnapshotDelay) {
		t.Fatalf("snapshot at the delay boundary is fresh")
	}
	if !SnapshotStale(now.Add(-4*time.Hour-time.Second), now, DefaultSnapshotDelay) {
		t.Fatalf("old snapshot should be stale")
	}
}
