package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// SettleConfig holds configuration for the settle command.
type SettleConfig struct {
	PoolSource
	Weighting
	Positions    string
	PGDSN        string
	BatchSize    int
	Since        string
	EnsureSchema bool
	Promoted     map[string]string
	LogLevel     string
}

// LoadSettle merges config file, environment variables, and flags into SettleConfig.
func LoadSettle(cfgFile string, flags *pflag.FlagSet) (SettleConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"batch-size":    1000,
		"ensure-schema": false,
	})
	if err != nil {
		return SettleConfig{}, err
	}

	cfg := SettleConfig{
		PoolSource:   poolSource(v),
		Weighting:    weighting(v),
		Positions:    v.GetString("positions"),
		PGDSN:        v.GetString("pg-dsn"),
		BatchSize:    v.GetInt("batch-size"),
		Since:        v.GetString("since"),
		EnsureSchema: v.GetBool("ensure-schema"),
		Promoted:     getStringMap(v, "promoted"),
		LogLevel:     v.GetString("log-level"),
	}
	return cfg, nil
}

// ParseTimestamp parses a timestamp value (unix seconds or RFC3339).
func ParseTimestamp(input string) (uint64, error) {
	if strings.TrimSpace(input) == "" {
		return 0, nil
	}

	if isNumeric(input) {
		val, err := strconv.ParseUint(input, 10, 64)
		if err != nil {
			return 0, err
		}
		return val, nil
	}

	tm, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return 0, err
	}
	return uint64(tm.Unix()), nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}
