package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. POINTS_PG_DSN.
const EnvPrefix = "POINTS"

// PoolSource selects where pool state comes from: a JSONL snapshot when
// Pools is set, otherwise the RPC at Block (0 means latest).
type PoolSource struct {
	RPCURL       string
	Block        uint64
	Pools        string
	MaxRetries   int
	RetryBackoff time.Duration
}

// Weighting selects the range weighting policy.
type Weighting struct {
	Policy string
	Pivot  int64
}

// EstimateConfig holds configuration for the estimate command.
type EstimateConfig struct {
	PoolSource
	Weighting
	Positions string
	Out       string
	PoolsOut  string
	Promoted  map[string]string
	LogLevel  string
}

// LoadEstimate merges config file, environment variables, and flags into EstimateConfig.
func LoadEstimate(cfgFile string, flags *pflag.FlagSet) (EstimateConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"out": "./data/estimates.jsonl",
	})
	if err != nil {
		return EstimateConfig{}, err
	}

	cfg := EstimateConfig{
		PoolSource: poolSource(v),
		Weighting:  weighting(v),
		Positions:  v.GetString("positions"),
		Out:        v.GetString("out"),
		PoolsOut:   v.GetString("pools-out"),
		Promoted:   getStringMap(v, "promoted"),
		LogLevel:   v.GetString("log-level"),
	}
	return cfg, nil
}

// load builds a viper instance with the shared defaults, env binding, flags
// and the optional config file. Without cfgFile, ./config.* is read if present.
func load(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("policy", "inverse-width")
	v.SetDefault("pivot", int64(100))
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func poolSource(v *viper.Viper) PoolSource {
	return PoolSource{
		RPCURL:       v.GetString("rpc"),
		Block:        v.GetUint64("block"),
		Pools:        v.GetString("pools"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
	}
}

func weighting(v *viper.Viper) Weighting {
	return Weighting{
		Policy: strings.ToLower(strings.TrimSpace(v.GetString("policy"))),
		Pivot:  v.GetInt64("pivot"),
	}
}

// ParseHalfWidths parses half-widths in tick-spacing units.
func ParseHalfWidths(items []string) ([]int32, error) {
	out := make([]int32, 0, len(items))
	for _, item := range items {
		n, err := strconv.ParseInt(item, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid half width %q: %w", item, err)
		}
		if n < 0 {
			return nil, fmt.Errorf("invalid half width %q: negative", item)
		}
		out = append(out, int32(n))
	}
	return out, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
