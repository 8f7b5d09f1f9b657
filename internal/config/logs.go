package config

import (
	"time"

	"github.com/spf13/pflag"
)

// LogsConfig holds configuration for the logs command.
type LogsConfig struct {
	RPCURL            string
	FromBlock         uint64
	ToBlock           uint64
	Pools             []string
	Promoted          map[string]string
	Topic0Map         map[string]string
	BatchSize         uint64
	Out               string
	Checkpoint        string
	CheckpointEnabled bool
	PGDSN             string
	MaxRetries        int
	RetryBackoff      time.Duration
	LogLevel          string
}

// LoadLogs merges config file, environment variables, and flags into LogsConfig.
// Without an explicit pool list the promoted pools are synced.
func LoadLogs(cfgFile string, flags *pflag.FlagSet) (LogsConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"batch-size":         uint64(2000),
		"out":                "./data/logs.jsonl",
		"checkpoint":         "./data/checkpoint.json",
		"checkpoint-enabled": true,
	})
	if err != nil {
		return LogsConfig{}, err
	}

	cfg := LogsConfig{
		RPCURL:            v.GetString("rpc"),
		FromBlock:         v.GetUint64("from"),
		ToBlock:           v.GetUint64("to"),
		Pools:             getStringSlice(v, "pool"),
		Promoted:          getStringMap(v, "promoted"),
		Topic0Map:         getStringMap(v, "topic0-map"),
		BatchSize:         v.GetUint64("batch-size"),
		Out:               v.GetString("out"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		PGDSN:             v.GetString("pg-dsn"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		LogLevel:          v.GetString("log-level"),
	}
	if len(cfg.Pools) == 0 {
		for pool := range cfg.Promoted {
			cfg.Pools = append(cfg.Pools, pool)
		}
	}
	return cfg, nil
}
