package model

// LiquidityEvent is a decoded Mint or Burn on a V3 pool. Amount is the
// liquidity delta as a base-10 integer; Amount0/Amount1 are token amounts.
type LiquidityEvent struct {
	Kind        string `json:"kind"`
	ChainID     uint64 `json:"chain_id"`
	BlockNumber uint64 `json:"block_number"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint64 `json:"log_index"`
	Timestamp   uint64 `json:"timestamp"`
	Pool        string `json:"pool"`
	Owner       string `json:"owner"`
	TickLower   int32  `json:"tick_lower"`
	TickUpper   int32  `json:"tick_upper"`
	Amount      string `json:"amount"`
	Amount0     string `json:"amount0"`
	Amount1     string `json:"amount1"`
}

const (
	EventMint = "Mint"
	EventBurn = "Burn"
)
