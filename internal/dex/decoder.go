package dex

import "pointsScope/internal/model"

// Decoder turns a raw log into a liquidity event.
type Decoder interface {
	CanDecode(topic0 string) bool
	Decode(log model.LogRecord) (model.LiquidityEvent, error)
}

// DecoderConfig configures decoder behavior.
type DecoderConfig struct {
	// Topic0Map adds topic0 -> event name aliases for forks that emit
	// renamed Mint/Burn events with the same layout.
	Topic0Map map[string]string
}
