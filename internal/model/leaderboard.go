package model

import (
	"fmt"
	"strings"

	"pointsScope/internal/fixedpoint"
)

// Kind selects one of the leaderboards.
type Kind string

const (
	KindLiquidity Kind = "liquidity"
	KindSwap      Kind = "swap"
	KindTotal     Kind = "total"
)

// ParseKind accepts a kind name case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindLiquidity:
		return KindLiquidity, nil
	case KindSwap:
		return KindSwap, nil
	case KindTotal, "":
		return KindTotal, nil
	default:
		return "", fmt.Errorf("unknown leaderboard kind %q", s)
	}
}

// LeaderboardEntry is one row of a ranked board. Rank is 1-based; 0 means unranked.
type LeaderboardEntry struct {
	Address       string
	Points        fixedpoint.Value
	Last24hPoints fixedpoint.Value
	Positions     int
	Rank          int
}

// LeaderboardRow is the ledger shape of an entry. Point columns are hex or
// decimal raw integers at PointsDecimals.
type LeaderboardRow struct {
	Kind          Kind   `json:"kind"`
	Address       string `json:"address"`
	Points        string `json:"points"`
	Last24hPoints string `json:"last_24h_points"`
	Positions     int    `json:"positions"`
	Rank          int    `json:"rank"`
}

// ToEntry validates the row. Raw values prefixed with 0x are parsed as hex.
func (r LeaderboardRow) ToEntry() (LeaderboardEntry, error) {
	points, err := parseRawPoints(r.Points)
	if err != nil {
		return LeaderboardEntry{}, fmt.Errorf("row %s points: %w", r.Address, err)
	}
	last24h, err := parseRawPoints(r.Last24hPoints)
	if err != nil {
		return LeaderboardEntry{}, fmt.Errorf("row %s last 24h: %w", r.Address, err)
	}
	return LeaderboardEntry{
		Address:       NormalizeAddress(r.Address),
		Points:        points,
		Last24hPoints: last24h,
		Positions:     r.Positions,
		Rank:          r.Rank,
	}, nil
}

// Row converts an entry to the ledger shape using base-10 raw integers.
func (e LeaderboardEntry) Row(kind Kind) LeaderboardRow {
	return LeaderboardRow{
		Kind:          kind,
		Address:       e.Address,
		Points:        e.Points.Big().String(),
		Last24hPoints: e.Last24hPoints.Big().String(),
		Positions:     e.Positions,
		Rank:          e.Rank,
	}
}

func parseRawPoints(s string) (fixedpoint.Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return fixedpoint.Zero(PointsDecimals), nil
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return fixedpoint.ParseHex(s, PointsDecimals)
	}
	return fixedpoint.ParseRaw(s, PointsDecimals)
}
