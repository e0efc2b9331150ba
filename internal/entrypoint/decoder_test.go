package entrypoint

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

func word(value *big.Int) []byte {
	out := make([]byte, 32)
	value.FillBytes(out)
	return out
}

func topicFromAddress(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func buildEventLog(t *testing.T, userOpHash common.Hash, sender, paymaster common.Address, data []byte, blockNumber uint64) types.Log {
	t.Helper()
	topic0, err := EventTopic()
	if err != nil {
		t.Fatalf("event topic: %v", err)
	}
	return types.Log{
		Address:     DefaultAddress,
		Topics:      []common.Hash{topic0, userOpHash, topicFromAddress(sender), topicFromAddress(paymaster)},
		Data:        data,
		BlockNumber: blockNumber,
	}
}

func buildPayload(nonce, successWord, cost, used *big.Int) []byte {
	data := make([]byte, 0, 128)
	data = append(data, word(nonce)...)
	data = append(data, word(successWord)...)
	data = append(data, word(cost)...)
	data = append(data, word(used)...)
	return data
}

func TestEventTopicMatchesSignature(t *testing.T) {
	got, err := EventTopic()
	if err != nil {
		t.Fatalf("event topic: %v", err)
	}

	want := crypto.Keccak256Hash([]byte("UserOperationEvent(bytes32,address,address,uint256,bool,uint256,uint256)"))
	if got != want {
		t.Fatalf("topic0 mismatch: %s != %s", got.Hex(), want.Hex())
	}
}

func TestDecodeUserOperationEvent(t *testing.T) {
	userOpHash := common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111")
	sender := common.HexToAddress("0x2222222222222222222222222222222222222222")
	paymaster := common.HexToAddress("0x3333333333333333333333333333333333333333")

	data := buildPayload(big.NewInt(2), big.NewInt(1), big.NewInt(50000), big.NewInt(42000))
	log := buildEventLog(t, userOpHash, sender, paymaster, data, 100)

	event, err := DecodeUserOperationEvent(log)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if event.UserOpHash != userOpHash {
		t.Fatalf("user op hash mismatch: %s", event.UserOpHash.Hex())
	}
	if event.Sender != sender || event.Paymaster != paymaster {
		t.Fatalf("address mismatch: %s / %s", event.Sender.Hex(), event.Paymaster.Hex())
	}
	if event.Nonce.Cmp(big.NewInt(2)) != 0 {
		t.Fatalf("nonce mismatch: %s", event.Nonce)
	}
	if !event.Success {
		t.Fatalf("expected success = true")
	}
	if event.ActualGasCost.Cmp(big.NewInt(50000)) != 0 {
		t.Fatalf("gas cost mismatch: %s", event.ActualGasCost)
	}
	if event.ActualGasUsed.Cmp(big.NewInt(42000)) != 0 {
		t.Fatalf("gas used mismatch: %s", event.ActualGasUsed)
	}
	if event.BlockNumber != 100 {
		t.Fatalf("block number mismatch: %d", event.BlockNumber)
	}
}

func TestDecodeZeroPaymaster(t *testing.T) {
	data := buildPayload(big.NewInt(7), big.NewInt(0), big.NewInt(1), big.NewInt(1))
	log := buildEventLog(t,
		common.HexToHash("0xaaaa000000000000000000000000000000000000000000000000000000000000"),
		common.HexToAddress("0x2222222222222222222222222222222222222222"),
		common.Address{},
		data, 10)

	event, err := DecodeUserOperationEvent(log)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.Paymaster != (common.Address{}) {
		t.Fatalf("expected zero paymaster, got %s", event.Paymaster.Hex())
	}
	if event.Success {
		t.Fatalf("expected success = false")
	}
}

func TestDecodeLargeValues(t *testing.T) {
	// Values beyond 64 bits must survive decoding intact.
	nonce, _ := new(big.Int).SetString("ffffffffffffffffffffffffffffffff", 16)
	cost := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	data := buildPayload(nonce, big.NewInt(1), cost, big.NewInt(1))
	log := buildEventLog(t,
		common.HexToHash("0xbbbb000000000000000000000000000000000000000000000000000000000000"),
		common.HexToAddress("0x2222222222222222222222222222222222222222"),
		common.HexToAddress("0x3333333333333333333333333333333333333333"),
		data, 11)

	event, err := DecodeUserOperationEvent(log)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.Nonce.Cmp(nonce) != 0 {
		t.Fatalf("nonce truncated: %s", event.Nonce)
	}
	if event.ActualGasCost.Cmp(cost) != 0 {
		t.Fatalf("gas cost truncated: %s", event.ActualGasCost)
	}
}

func TestDecodeTopicCountMismatch(t *testing.T) {
	data := buildPayload(big.NewInt(1), big.NewInt(1), big.NewInt(1), big.NewInt(1))
	log := buildEventLog(t,
		common.HexToHash("0xcccc000000000000000000000000000000000000000000000000000000000000"),
		common.HexToAddress("0x2222222222222222222222222222222222222222"),
		common.HexToAddress("0x3333333333333333333333333333333333333333"),
		data, 12)
	log.Topics = log.Topics[:3]

	if _, err := DecodeUserOperationEvent(log); !errors.Is(err, ErrTopicCountMismatch) {
		t.Fatalf("expected topic count error, got %v", err)
	}
}

func TestDecodePayloadLengthMismatch(t *testing.T) {
	data := buildPayload(big.NewInt(1), big.NewInt(1), big.NewInt(1), big.NewInt(1))
	log := buildEventLog(t,
		common.HexToHash("0xdddd000000000000000000000000000000000000000000000000000000000000"),
		common.HexToAddress("0x2222222222222222222222222222222222222222"),
		common.HexToAddress("0x3333333333333333333333333333333333333333"),
		data[:127], 13)

	if _, err := DecodeUserOperationEvent(log); !errors.Is(err, ErrPayloadLengthMismatch) {
		t.Fatalf("expected payload length error, got %v", err)
	}
}

func TestDecodeMissingBlockNumber(t *testing.T) {
	data := buildPayload(big.NewInt(1), big.NewInt(1), big.NewInt(1), big.NewInt(1))
	log := buildEventLog(t,
		common.HexToHash("0xeeee000000000000000000000000000000000000000000000000000000000000"),
		common.HexToAddress("0x2222222222222222222222222222222222222222"),
		common.HexToAddress("0x3333333333333333333333333333333333333333"),
		data, 0)

	if _, err := DecodeUserOperationEvent(log); !errors.Is(err, ErrMissingBlockNumber) {
		t.Fatalf("expected missing block number error, got %v", err)
	}
}

func TestDecodeSuccessLowByteOnly(t *testing.T) {
	// success is the low byte of word two; the rest of the word is ignored.
	cases := []struct {
		name        string
		successWord *big.Int
		want        bool
	}{
		{"low byte one", big.NewInt(1), true},
		{"low byte two", big.NewInt(2), true},
		{"all zero", big.NewInt(0), false},
		{"high bits set, low byte zero", new(big.Int).Lsh(big.NewInt(0xff), 8), false},
		{"high bits set, low byte set", new(big.Int).Or(new(big.Int).Lsh(big.NewInt(0xff), 248), big.NewInt(1)), true},
	}

	for _, tc := range cases {
		data := buildPayload(big.NewInt(9), tc.successWord, big.NewInt(1), big.NewInt(1))
		log := buildEventLog(t,
			common.HexToHash("0xffff000000000000000000000000000000000000000000000000000000000000"),
			common.HexToAddress("0x2222222222222222222222222222222222222222"),
			common.HexToAddress("0x3333333333333333333333333333333333333333"),
			data, 14)

		event, err := DecodeUserOperationEvent(log)
		if err != nil {
			t.Fatalf("%s: decode: %v", tc.name, err)
		}
		if event.Success != tc.want {
			t.Fatalf("%s: success = %v, want %v", tc.name, event.Success, tc.want)
		}
	}
}
