package config

import (
	"time"

	"github.com/spf13/pflag"
)

// LeaderboardConfig holds configuration for the leaderboard command.
type LeaderboardConfig struct {
	PGDSN    string
	Kind     string
	Page     int
	PageSize int
	MaxDelay time.Duration
	LogLevel string
}

// LoadLeaderboard merges config file, environment variables, and flags into LeaderboardConfig.
func LoadLeaderboard(cfgFile string, flags *pflag.FlagSet) (LeaderboardConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"kind":      "total",
		"page":      1,
		"page-size": 20,
		"max-delay": 4 * time.Hour,
	})
	if err != nil {
		return LeaderboardConfig{}, err
	}

	cfg := LeaderboardConfig{
		PGDSN:    v.GetString("pg-dsn"),
		Kind:     v.GetString("kind"),
		Page:     v.GetInt("page"),
		PageSize: v.GetInt("page-size"),
		MaxDelay: v.GetDuration("max-delay"),
		LogLevel: v.GetString("log-level"),
	}
	return cfg, nil
}

// UserConfig holds configuration for the user command.
type UserConfig struct {
	PoolSource
	Weighting
	Address   string
	Positions string
	PGDSN     string
	Kind      string
	Promoted  map[string]string
	LogLevel  string
}

// LoadUser merges config file, environment variables, and flags into UserConfig.
func LoadUser(cfgFile string, flags *pflag.FlagSet) (UserConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"kind": "liquidity",
	})
	if err != nil {
		return UserConfig{}, err
	}

	cfg := UserConfig{
		PoolSource: poolSource(v),
		Weighting:  weighting(v),
		Address:    v.GetString("address"),
		Positions:  v.GetString("positions"),
		PGDSN:      v.GetString("pg-dsn"),
		Kind:       v.GetString("kind"),
		Promoted:   getStringMap(v, "promoted"),
		LogLevel:   v.GetString("log-level"),
	}
	return cfg, nil
}

// ScaleConfig holds configuration for the scale command.
type ScaleConfig struct {
	PoolSource
	Weighting
	Pool       string
	Rate       string
	Amount0    string
	Amount1    string
	HalfWidths []string
	LogLevel   string
}

// LoadScale merges config file, environment variables, and flags into ScaleConfig.
func LoadScale(cfgFile string, flags *pflag.FlagSet) (ScaleConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"amount0": "0",
		"amount1": "0",
	})
	if err != nil {
		return ScaleConfig{}, err
	}

	cfg := ScaleConfig{
		PoolSource: poolSource(v),
		Weighting:  weighting(v),
		Pool:       v.GetString("pool"),
		Rate:       v.GetString("rate"),
		Amount0:    v.GetString("amount0"),
		Amount1:    v.GetString("amount1"),
		HalfWidths: getStringSlice(v, "half-widths"),
		LogLevel:   v.GetString("log-level"),
	}
	return cfg, nil
}
