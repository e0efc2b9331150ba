package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// UserOperationEvent is one decoded EntryPoint UserOperationEvent occurrence.
// BlockNumber comes from the log envelope, not the event payload.
type UserOperationEvent struct {
	UserOpHash    common.Hash
	Sender        common.Address
	Paymaster     common.Address
	Nonce         *big.Int
	Success       bool
	ActualGasCost *big.Int
	ActualGasUsed *big.Int
	BlockNumber   uint64
}

// Key returns the natural dedup key (user_op_hash, nonce) as a single string.
func (e UserOperationEvent) Key() string {
	return e.UserOpHash.Hex() + ":" + e.Nonce.String()
}
