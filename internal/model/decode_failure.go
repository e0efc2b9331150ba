package model

// DecodeFailure records a log that could not be decoded, for later inspection.
type DecodeFailure struct {
	BlockNumber uint64 `json:"block_number"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint64 `json:"log_index"`
	Address     string `json:"address"`
	Topic0      string `json:"topic0"`
	Data        string `json:"data"`
	Error       string `json:"error"`
	ObservedAt  string `json:"observed_at"`
}
