package model

// LogRecord is a raw chain log as written by the log indexer, one JSON object per line.
type LogRecord struct {
	ChainID     uint64   `json:"chain_id"`
	BlockNumber uint64   `json:"block_number"`
	BlockHash   string   `json:"block_hash"`
	TxHash      string   `json:"tx_hash"`
	TxIndex     uint64   `json:"tx_index"`
	LogIndex    uint64   `json:"log_index"`
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	Removed     bool     `json:"removed"`
	Timestamp   uint64   `json:"timestamp"`
}

// Topic0 returns the event signature topic or "" when absent.
func (lr LogRecord) Topic0() string {
	if len(lr.Topics) == 0 {
		return ""
	}
	return lr.Topics[0]
}

// Before orders logs by block then log index.
func (lr LogRecord) Before(other LogRecord) bool {
	if lr.BlockNumber != other.BlockNumber {
		return lr.BlockNumber < other.BlockNumber
	}
	return lr.LogIndex < other.LogIndex
}
