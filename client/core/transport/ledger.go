// Package transport 通过以太坊 JSON-RPC 访问账本
package transport

import (
	"context"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/weisyn/marketclient/pkg/interfaces/ledger"
)

// EthLedger 基于 ethclient 的 ledger.Ledger 实现
//
// 交易由节点托管的账户签名（eth_sendTransaction），客户端不持有私钥。
type EthLedger struct {
	name     string
	endpoint string
	rpc      *rpc.Client
	eth      *ethclient.Client
}

var _ ledger.Ledger = (*EthLedger)(nil)

// NewEthLedger 包装一个已建立的 RPC 连接
func NewEthLedger(name, endpoint string, client *rpc.Client) *EthLedger {
	return &EthLedger{
		name:     name,
		endpoint: endpoint,
		rpc:      client,
		eth:      ethclient.NewClient(client),
	}
}

// Name 端点名称
func (l *EthLedger) Name() string { return l.name }

// Endpoint 端点地址
func (l *EthLedger) Endpoint() string { return l.endpoint }

// CallContract 实现 ledger.Reader
func (l *EthLedger) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return l.eth.CallContract(ctx, msg, blockNumber)
}

// CodeAt 实现 ledger.Reader
func (l *EthLedger) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return l.eth.CodeAt(ctx, account, blockNumber)
}

// EstimateGas 实现 ledger.Reader
func (l *EthLedger) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return l.eth.EstimateGas(ctx, msg)
}

// TransactionReceipt 实现 ledger.ReceiptSource；未打包时返回 ethereum.NotFound
func (l *EthLedger) TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	return l.eth.TransactionReceipt(ctx, txHash)
}

// sendTxArgs eth_sendTransaction 的参数
type sendTxArgs struct {
	From  common.Address  `json:"from"`
	To    *common.Address `json:"to,omitempty"`
	Gas   *hexutil.Uint64 `json:"gas,omitempty"`
	Value *hexutil.Big    `json:"value,omitempty"`
	Data  hexutil.Bytes   `json:"data,omitempty"`
}

// SendTransaction 实现 ledger.Sender
func (l *EthLedger) SendTransaction(ctx context.Context, req *ledger.TxRequest) (common.Hash, error) {
	args := sendTxArgs{From: req.From, To: req.To, Data: req.Data}
	if req.Gas > 0 {
		gas := hexutil.Uint64(req.Gas)
		args.Gas = &gas
	}
	if req.Value != nil {
		args.Value = (*hexutil.Big)(req.Value)
	}

	var hash common.Hash
	if err := l.rpc.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, fmt.Errorf("eth_sendTransaction: %w", err)
	}
	return hash, nil
}

// ChainID 链 ID
func (l *EthLedger) ChainID(ctx context.Context) (*big.Int, error) {
	return l.eth.ChainID(ctx)
}

// Ping 检查节点是否可达
func (l *EthLedger) Ping(ctx context.Context) error {
	_, err := l.eth.BlockNumber(ctx)
	return err
}

// Close 关闭连接
func (l *EthLedger) Close() {
	l.eth.Close()
}
