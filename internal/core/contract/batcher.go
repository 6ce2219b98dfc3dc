package contract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/weisyn/marketclient/pkg/interfaces/ledger"
)

// Call 一次合约调用的描述
type Call struct {
	To     common.Address
	Data   []byte
	Method string // 仅用于日志
}

// BatchCall execute 参数中的单个元素
type BatchCall struct {
	Target common.Address
	Data   []byte
}

// Batcher 把多个调用合并为一笔交易
type Batcher interface {
	Batch(calls []Call) (*ledger.TxRequest, error)
}

// ErrNoCalls 没有可合并的调用
var ErrNoCalls = errors.New("no calls to batch")

const batcherABIJSON = `[{
	"type": "function",
	"name": "execute",
	"stateMutability": "nonpayable",
	"inputs": [{"name": "calls", "type": "tuple[]", "components": [
		{"name": "target", "type": "address"},
		{"name": "data", "type": "bytes"}
	]}],
	"outputs": []
}]`

// BatcherABI 批量执行合约的 ABI
var BatcherABI = mustParseABI(batcherABIJSON)

// ContractBatcher 通过链上批量执行合约 execute((address,bytes)[]) 合并调用
//
// 只有一个调用时直接发送到目标合约，不经过批量合约。
type ContractBatcher struct {
	address common.Address
}

// NewContractBatcher 创建批量器
func NewContractBatcher(address common.Address) *ContractBatcher {
	return &ContractBatcher{address: address}
}

// Address 批量合约地址
func (b *ContractBatcher) Address() common.Address { return b.address }

// Batch 实现 Batcher
func (b *ContractBatcher) Batch(calls []Call) (*ledger.TxRequest, error) {
	switch len(calls) {
	case 0:
		return nil, ErrNoCalls
	case 1:
		to := calls[0].To
		return &ledger.TxRequest{To: &to, Data: calls[0].Data}, nil
	}
	if b.address == (common.Address{}) {
		return nil, fmt.Errorf("batcher address not configured for %d calls", len(calls))
	}
	args := make([]BatchCall, len(calls))
	for i, c := range calls {
		args[i] = BatchCall{Target: c.To, Data: c.Data}
	}
	data, err := BatcherABI.Pack("execute", args)
	if err != nil {
		return nil, fmt.Errorf("pack execute: %w", err)
	}
	to := b.address
	return &ledger.TxRequest{To: &to, Data: data}, nil
}

// UnpackBatch 解码 execute 调用数据
func UnpackBatch(data []byte) ([]BatchCall, error) {
	method := BatcherABI.Methods["execute"]
	if len(data) < 4 || !bytes.Equal(data[:4], method.ID) {
		return nil, errors.New("not an execute call")
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, err
	}
	out, ok := abi.ConvertType(args[0], new([]BatchCall)).(*[]BatchCall)
	if !ok {
		return nil, errors.New("unexpected execute argument type")
	}
	return *out, nil
}

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}
