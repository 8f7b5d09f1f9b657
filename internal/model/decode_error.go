package model

// DecodeError records a log line that could not become a position update.
type DecodeError struct {
	ChainID     uint64 `json:"chain_id"`
	BlockNumber uint64 `json:"block_number"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint64 `json:"log_index"`
	Address     string `json:"address"`
	Topic0      string `json:"topic0"`
	Stage       string `json:"stage"`
	Error       string `json:"error"`
}

// NewDecodeError builds a DecodeError for a log at the given stage.
func NewDecodeError(record LogRecord, stage string, err error) DecodeError {
	return DecodeError{
		ChainID:     record.ChainID,
		BlockNumber: record.BlockNumber,
		TxHash:      record.TxHash,
		LogIndex:    record.LogIndex,
		Address:     record.Address,
		Topic0:      record.Topic0(),
		Stage:       stage,
		Error:       err.Error(),
	}
}
