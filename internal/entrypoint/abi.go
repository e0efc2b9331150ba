package entrypoint

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// DefaultAddress is the canonical v0.7 EntryPoint deployment.
var DefaultAddress = common.HexToAddress("0x0000000071727De22E5E9d8BAf0edAc6f37da032")

const entryPointABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "userOpHash", "type": "bytes32"},
      {"indexed": true, "internalType": "address", "name": "sender", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "paymaster", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "nonce", "type": "uint256"},
      {"indexed": false, "internalType": "bool", "name": "success", "type": "bool"},
      {"indexed": false, "internalType": "uint256", "name": "actualGasCost", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "actualGasUsed", "type": "uint256"}
    ],
    "name": "UserOperationEvent",
    "type": "event"
  }
]`

var (
	abiOnce  sync.Once
	abiValue abi.ABI
	abiErr   error
)

// EntryPointABI returns the parsed EntryPoint ABI (events only).
func EntryPointABI() (abi.ABI, error) {
	abiOnce.Do(func() {
		abiValue, abiErr = abi.JSON(strings.NewReader(entryPointABIJSON))
	})
	return abiValue, abiErr
}

// EventTopic returns topic0 of UserOperationEvent, i.e. the keccak hash of
// "UserOperationEvent(bytes32,address,address,uint256,bool,uint256,uint256)".
func EventTopic() (common.Hash, error) {
	parsed, err := EntryPointABI()
	if err != nil {
		return common.Hash{}, err
	}
	return parsed.Events["UserOperationEvent"].ID, nil
}
