package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadSettlePrecedence(t *testing.T) {
	path := writeConfig(t, `
positions: ./data/positions.jsonl
pg-dsn: postgres://file
batch-size: 250
promoted:
  "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA": "0.5"
`)
	t.Setenv("POINTS_PG_DSN", "postgres://env")

	flags := pflag.NewFlagSet("settle", pflag.ContinueOnError)
	flags.Int("batch-size", 1000, "")
	flags.String("since", "", "")
	if err := flags.Parse([]string{"--since=2024-01-02T00:00:00Z"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadSettle(path, flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PGDSN != "postgres://env" {
		t.Fatalf("env should override file: %s", cfg.PGDSN)
	}
	if cfg.BatchSize != 250 {
		t.Fatalf("file should override flag default: %d", cfg.BatchSize)
	}
	if cfg.Positions != "./data/positions.jsonl" {
		t.Fatalf("positions: %s", cfg.Positions)
	}
	want := map[string]string{"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa": "0.5"}
	if !reflect.DeepEqual(cfg.Promoted, want) {
		t.Fatalf("promoted: got %v want %v", cfg.Promoted, want)
	}
	if cfg.Policy != "inverse-width" || cfg.Pivot != 100 {
		t.Fatalf("weighting defaults: %+v", cfg.Weighting)
	}
	if cfg.MaxRetries != 5 || cfg.RetryBackoff != 500*time.Millisecond {
		t.Fatalf("retry defaults: %+v", cfg.PoolSource)
	}

	since, err := ParseTimestamp(cfg.Since)
	if err != nil {
		t.Fatalf("parse since: %v", err)
	}
	if since != 1704153600 {
		t.Fatalf("since: %d", since)
	}
}

func TestLoadLeaderboardDefaults(t *testing.T) {
	flags := pflag.NewFlagSet("leaderboard", pflag.ContinueOnError)
	flags.Int("page", 1, "")
	if err := flags.Parse([]string{"--page=3"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadLeaderboard(writeConfig(t, "kind: swap\n"), flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Page != 3 || cfg.PageSize != 20 {
		t.Fatalf("paging: %+v", cfg)
	}
	if cfg.Kind != "swap" || cfg.MaxDelay != 4*time.Hour || cfg.LogLevel != "info" {
		t.Fatalf("defaults: %+v", cfg)
	}
}

func TestLoadScaleHalfWidthsFromEnv(t *testing.T) {
	t.Setenv("POINTS_HALF_WIDTHS", "1, 5,,20")
	t.Setenv("POINTS_PROMOTED", "0xa=1,broken,0xb=")

	cfg, err := LoadScale(writeConfig(t, "pool: 0x1\n"), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(cfg.HalfWidths, []string{"1", "5", "20"}) {
		t.Fatalf("half widths: %v", cfg.HalfWidths)
	}
	widths, err := ParseHalfWidths(cfg.HalfWidths)
	if err != nil {
		t.Fatalf("parse half widths: %v", err)
	}
	if !reflect.DeepEqual(widths, []int32{1, 5, 20}) {
		t.Fatalf("parsed half widths: %v", widths)
	}
	if cfg.Amount0 != "0" || cfg.Amount1 != "0" {
		t.Fatalf("amount defaults: %+v", cfg)
	}

	user, err := LoadUser(writeConfig(t, "address: 0x1\n"), nil)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if !reflect.DeepEqual(user.Promoted, map[string]string{"0xa": "1"}) {
		t.Fatalf("promoted from env: %v", user.Promoted)
	}

	if _, err := ParseHalfWidths([]string{"-1"}); err == nil {
		t.Fatalf("expected error for negative half width")
	}
	if _, err := ParseHalfWidths([]string{"x"}); err == nil {
		t.Fatalf("expected error for malformed half width")
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	if _, err := LoadPositions(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestParseTimestamp(t *testing.T) {
	cases := map[string]uint64{
		"":                     0,
		"1700000000":           1700000000,
		"2023-11-14T22:13:20Z": 1700000000,
	}
	for input, want := range cases {
		got, err := ParseTimestamp(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if got != want {
			t.Fatalf("parse %q: got %d want %d", input, got, want)
		}
	}
	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Fatalf("expected error for malformed timestamp")
	}
}
