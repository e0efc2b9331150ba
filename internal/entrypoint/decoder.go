package entrypoint

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"useropindexer/internal/model"
)

// Decode errors. All of them mark the single log as malformed; none of them
// is fatal to ingestion.
var (
	ErrTopicCountMismatch    = errors.New("unexpected topic count")
	ErrPayloadLengthMismatch = errors.New("unexpected payload length")
	ErrMissingBlockNumber    = errors.New("log carries no block number")
)

const (
	// topic0 plus the three indexed fields: userOpHash, sender, paymaster.
	expectedTopics = 4
	// four non-indexed 32-byte words: nonce, success, actualGasCost, actualGasUsed.
	expectedPayloadLen = 128
)

// DecodeUserOperationEvent converts a raw log into a UserOperationEvent.
// It is pure: no I/O, deterministic on the same input.
//
// The success flag is stored by the EntryPoint as a full word with the
// boolean in its low byte, so it is read as data[63] != 0 rather than
// through strict ABI bool unpacking.
func DecodeUserOperationEvent(log types.Log) (model.UserOperationEvent, error) {
	if len(log.Topics) != expectedTopics {
		return model.UserOperationEvent{}, ErrTopicCountMismatch
	}
	if len(log.Data) != expectedPayloadLen {
		return model.UserOperationEvent{}, ErrPayloadLengthMismatch
	}
	if log.BlockNumber == 0 {
		return model.UserOperationEvent{}, ErrMissingBlockNumber
	}

	return model.UserOperationEvent{
		UserOpHash:    log.Topics[1],
		Sender:        common.BytesToAddress(log.Topics[2].Bytes()),
		Paymaster:     common.BytesToAddress(log.Topics[3].Bytes()),
		Nonce:         new(big.Int).SetBytes(log.Data[0:32]),
		Success:       log.Data[63] != 0,
		ActualGasCost: new(big.Int).SetBytes(log.Data[64:96]),
		ActualGasUsed: new(big.Int).SetBytes(log.Data[96:128]),
		BlockNumber:   log.BlockNumber,
	}, nil
}
