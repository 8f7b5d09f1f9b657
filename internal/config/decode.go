package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// PositionsConfig holds configuration for the positions command.
type PositionsConfig struct {
	In        string
	Out       string
	Errors    string
	LogLevel  string
	Topic0Map map[string]string
}

// LoadPositions merges config file, environment variables, and flags into PositionsConfig.
func LoadPositions(cfgFile string, flags *pflag.FlagSet) (PositionsConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"out":    "./data/positions.jsonl",
		"errors": "./data/decode_errors.jsonl",
	})
	if err != nil {
		return PositionsConfig{}, err
	}

	cfg := PositionsConfig{
		In:        v.GetString("in"),
		Out:       v.GetString("out"),
		Errors:    v.GetString("errors"),
		LogLevel:  v.GetString("log-level"),
		Topic0Map: getStringMap(v, "topic0-map"),
	}
	return cfg, nil
}

func getStringMap(v *viper.Viper, key string) map[string]string {
	if !v.IsSet(key) {
		return map[string]string{}
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case map[string]string:
		return typed
	case map[string]interface{}:
		out := make(map[string]string, len(typed))
		for k, v := range typed {
			out[k] = fmt.Sprintf("%v", v)
		}
		return out
	case string:
		return parseStringMap(typed)
	default:
		return map[string]string{}
	}
}

func parseStringMap(input string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return out
	}
	pairs := strings.Split(input, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}
