// Package ledger 定义远程账本/合约层的协作接口
//
// 核心只通过这里的读、提交、回执、字节码、估算原语访问链上状态。
// 生产实现见 client/core/transport.EthLedger（go-ethereum ethclient），
// 测试实现见 internal/core/testutil.FakeChain。
package ledger

import (
	"context"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// TxRequest 待提交的交易
//
// To 为 nil 表示合约创建。签名由节点托管的账户完成（eth_sendTransaction），
// 客户端不管理私钥。
type TxRequest struct {
	From  common.Address
	To    *common.Address
	Data  []byte
	Gas   uint64
	Value *big.Int
}

// CallMsg 转换为只读调用/估算消息
func (r *TxRequest) CallMsg() ethereum.CallMsg {
	return ethereum.CallMsg{
		From:  r.From,
		To:    r.To,
		Data:  r.Data,
		Gas:   r.Gas,
		Value: r.Value,
	}
}

// Reader 只读原语
type Reader interface {
	// CallContract 执行只读合约调用，返回原始返回数据
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	// CodeAt 读取地址上部署的运行时字节码（无合约时返回空切片）
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	// EstimateGas 估算执行消息所需的 gas
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
}

// ReceiptSource 回执查询
type ReceiptSource interface {
	// TransactionReceipt 查询回执；尚未打包时返回 ethereum.NotFound
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

// Sender 交易提交
type Sender interface {
	// SendTransaction 提交交易，返回交易哈希
	SendTransaction(ctx context.Context, req *TxRequest) (common.Hash, error)
}

// Ledger 完整的账本协作接口
type Ledger interface {
	Reader
	ReceiptSource
	Sender
}
