// Package testutil 提供内存中的账本实现，供各模块单元测试使用
package testutil

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"unicode"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/weisyn/marketclient/internal/core/contract"
	"github.com/weisyn/marketclient/pkg/interfaces/ledger"
	"github.com/weisyn/marketclient/pkg/types"
)

// 固定的合约地址与运行时字节码
var (
	AliasRegistryAddr = common.HexToAddress("0x00000000000000000000000000000000000a11a5")
	StoreRegistryAddr = common.HexToAddress("0x000000000000000000000000000000000057a4e5")
	BatcherAddr       = common.HexToAddress("0x00000000000000000000000000000000000ba7c4")
	DefaultSender     = common.HexToAddress("0x00000000000000000000000000000000000a11ce")

	AliasRegistryCode = []byte{0x60, 0x80, 0x60, 0x40, 0xa1}
	StoreRegistryCode = []byte{0x60, 0x80, 0x60, 0x40, 0x5e}
	BatcherCode       = []byte{0x60, 0x80, 0x60, 0x40, 0xba}
	StoreCode         = []byte{0x60, 0x80, 0x60, 0x40, 0x57}
	SubmarketCode     = []byte{0x60, 0x80, 0x60, 0x40, 0x5b}
)

// ErrFakeRevert 模拟的执行失败
var ErrFakeRevert = errors.New("execution reverted")

type fakeTx struct {
	req     ledger.TxRequest
	receipt *ethtypes.Receipt
	polls   int
}

// FakeChain 内存账本
//
// 交易在提交时立即生效，回执在被查询 ConfirmAfter 次之后才可见。
type FakeChain struct {
	mu sync.Mutex

	code    map[common.Address][]byte
	stores  map[common.Address]map[string]interface{}
	aliases map[[32]byte]common.Address
	names   map[common.Address][32]byte
	txs     map[common.Hash]*fakeTx
	nonce   uint64
	block   uint64

	confirmAfter int
	neverConfirm bool
	failNext     bool
	callErr      error
	sendErr      error
	receiptErr   error

	sent         []ledger.TxRequest
	receiptPolls int
	calls        int

	hold     chan struct{}
	holdOnce *sync.Once
	held     int
}

// NewFakeChain 创建带有别名注册表、店铺注册表和批量合约的内存账本
func NewFakeChain() *FakeChain {
	return &FakeChain{
		code: map[common.Address][]byte{
			AliasRegistryAddr: AliasRegistryCode,
			StoreRegistryAddr: StoreRegistryCode,
			BatcherAddr:       BatcherCode,
		},
		stores:  make(map[common.Address]map[string]interface{}),
		aliases: make(map[[32]byte]common.Address),
		names:   make(map[common.Address][32]byte),
		txs:     make(map[common.Hash]*fakeTx),
		block:   100,
	}
}

// Fingerprints 本账本中各合约种类的指纹
func Fingerprints() *types.Fingerprints {
	return types.NewFingerprints(map[types.ContractKind]common.Hash{
		types.KindStore:         types.FingerprintOf(StoreCode),
		types.KindSubmarket:     types.FingerprintOf(SubmarketCode),
		types.KindAliasRegistry: types.FingerprintOf(AliasRegistryCode),
		types.KindStoreRegistry: types.FingerprintOf(StoreRegistryCode),
	})
}

// FingerprintConfig 与 Fingerprints 等价的 profile 配置形式
func FingerprintConfig() map[string]string {
	return map[string]string{
		string(types.KindStore):         "code:" + hexutil.Encode(StoreCode),
		string(types.KindSubmarket):     "code:" + hexutil.Encode(SubmarketCode),
		string(types.KindAliasRegistry): "code:" + hexutil.Encode(AliasRegistryCode),
		string(types.KindStoreRegistry): "code:" + hexutil.Encode(StoreRegistryCode),
	}
}

// ==================== 行为控制 ====================

// SetConfirmAfter 回执在被查询 n 次后可见
func (c *FakeChain) SetConfirmAfter(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confirmAfter = n
}

// NeverConfirm 之后的交易永远查不到回执
func (c *FakeChain) NeverConfirm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.neverConfirm = true
}

// FailNext 下一笔交易执行失败（回执 status=0，不产生状态变化）
func (c *FakeChain) FailNext() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failNext = true
}

// SetCallError 之后所有只读调用返回 err
func (c *FakeChain) SetCallError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callErr = err
}

// SetSendError 之后所有交易提交返回 err
func (c *FakeChain) SetSendError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendErr = err
}

// SetReceiptError 之后所有回执查询返回 err
func (c *FakeChain) SetReceiptError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.receiptErr = err
}

// HoldCalls 之后的只读调用阻塞，直到调用返回的 release
func (c *FakeChain) HoldCalls() (release func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	hold, once := make(chan struct{}), &sync.Once{}
	c.hold, c.holdOnce = hold, once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			if c.hold == hold {
				c.hold = nil
			}
			c.mu.Unlock()
			close(hold)
		})
	}
}

// HeldCalls 曾被 HoldCalls 阻塞的调用次数
func (c *FakeChain) HeldCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.held
}

// ==================== 状态构造 ====================

// SetCode 在地址上放置字节码
func (c *FakeChain) SetCode(addr common.Address, code []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.code[addr] = code
}

// ClaimAlias 直接写入别名映射
func (c *FakeChain) ClaimAlias(alias string, addr common.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var key [32]byte
	copy(key[:], alias)
	c.aliases[key] = addr
	c.names[addr] = key
}

// PutStore 直接部署一个店铺合约
func (c *FakeChain) PutStore(addr common.Address, values map[string]interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.code[addr] = StoreCode
	state := defaultStoreState()
	for k, v := range values {
		state[k] = v
	}
	c.stores[addr] = state
}

// StoreValue 读取店铺字段的当前值
func (c *FakeChain) StoreValue(addr common.Address, field string) interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.stores[addr]; ok {
		return s[field]
	}
	return nil
}

// Sent 已提交的交易
func (c *FakeChain) Sent() []ledger.TxRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ledger.TxRequest(nil), c.sent...)
}

// ReceiptPolls 回执查询次数
func (c *FakeChain) ReceiptPolls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.receiptPolls
}

// Calls 只读调用次数
func (c *FakeChain) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func defaultStoreState() map[string]interface{} {
	return map[string]interface{}{
		contract.StoreIsOpen:                 false,
		contract.StoreCurrency:               [32]byte{},
		contract.StoreDisputeSeconds:         new(big.Int),
		contract.StoreMinTotal:               new(big.Int),
		contract.StoreAffiliateFeeCentiperun: new(big.Int),
		contract.StoreOwner:                  common.Address{},
		contract.StoreMeta:                   []byte{},
	}
}

// ==================== ledger.Ledger 实现 ====================

var _ ledger.Ledger = (*FakeChain)(nil)

// CallContract 实现 ledger.Reader
func (c *FakeChain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	c.mu.Lock()
	if hold := c.hold; hold != nil {
		c.held++
		c.mu.Unlock()
		<-hold
		c.mu.Lock()
	}
	defer c.mu.Unlock()
	c.calls++
	if c.callErr != nil {
		return nil, c.callErr
	}
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, nil
	}
	to := *msg.To

	if to == AliasRegistryAddr {
		method, args, err := decodeCall(contract.AliasRegistryABI, msg.Data)
		if err != nil {
			return nil, err
		}
		switch method.Name {
		case "getAddr":
			return method.Outputs.Pack(c.aliases[args[0].([32]byte)])
		case "getAlias":
			return method.Outputs.Pack(c.names[args[0].(common.Address)])
		}
		return nil, ErrFakeRevert
	}

	if state, ok := c.stores[to]; ok {
		method, _, err := decodeCall(contract.StoreBinding.ABI(), msg.Data)
		if err != nil {
			return nil, err
		}
		v, ok := state[method.Name]
		if !ok {
			return nil, ErrFakeRevert
		}
		return method.Outputs.Pack(v)
	}

	// 没有合约的地址返回空数据
	return nil, nil
}

// CodeAt 实现 ledger.Reader
func (c *FakeChain) CodeAt(_ context.Context, account common.Address, _ *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.callErr != nil {
		return nil, c.callErr
	}
	return append([]byte(nil), c.code[account]...), nil
}

// EstimateGas 实现 ledger.Reader，结果只与调用数据长度有关
func (c *FakeChain) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.callErr != nil {
		return 0, c.callErr
	}
	gas := uint64(21000) + 16*uint64(len(msg.Data))
	if msg.To == nil {
		gas += 32000
	}
	return gas, nil
}

// SendTransaction 实现 ledger.Sender
func (c *FakeChain) SendTransaction(_ context.Context, req *ledger.TxRequest) (common.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return common.Hash{}, c.sendErr
	}

	c.nonce++
	c.block++
	var nb [8]byte
	binary.BigEndian.PutUint64(nb[:], c.nonce)
	hash := crypto.Keccak256Hash(nb[:], req.Data)
	from := req.From
	if from == (common.Address{}) {
		from = DefaultSender
	}

	receipt := &ethtypes.Receipt{
		Status:      ethtypes.ReceiptStatusSuccessful,
		TxHash:      hash,
		BlockNumber: new(big.Int).SetUint64(c.block),
		GasUsed:     21000 + 16*uint64(len(req.Data)),
	}

	if c.failNext {
		c.failNext = false
		receipt.Status = ethtypes.ReceiptStatusFailed
	} else if err := c.apply(from, req, receipt); err != nil {
		receipt.Status = ethtypes.ReceiptStatusFailed
	}

	c.sent = append(c.sent, *req)
	c.txs[hash] = &fakeTx{req: *req, receipt: receipt}
	return hash, nil
}

// TransactionReceipt 实现 ledger.ReceiptSource
func (c *FakeChain) TransactionReceipt(_ context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.receiptPolls++
	if c.receiptErr != nil {
		return nil, c.receiptErr
	}
	tx, ok := c.txs[txHash]
	if !ok || c.neverConfirm {
		return nil, ethereum.NotFound
	}
	tx.polls++
	if tx.polls <= c.confirmAfter {
		return nil, ethereum.NotFound
	}
	return tx.receipt, nil
}

// ==================== 交易执行 ====================

func (c *FakeChain) apply(from common.Address, req *ledger.TxRequest, receipt *ethtypes.Receipt) error {
	if req.To == nil {
		addr := crypto.CreateAddress(from, c.nonce)
		c.code[addr] = StoreCode
		c.stores[addr] = defaultStoreState()
		c.stores[addr][contract.StoreOwner] = from
		receipt.ContractAddress = addr
		return nil
	}
	return c.applyCall(from, *req.To, req.Data, receipt)
}

func (c *FakeChain) applyCall(from, to common.Address, data []byte, receipt *ethtypes.Receipt) error {
	switch to {
	case AliasRegistryAddr:
		method, args, err := decodeCall(contract.AliasRegistryABI, data)
		if err != nil {
			return err
		}
		if method.Name != "claimAlias" {
			return ErrFakeRevert
		}
		return c.claim(args[0].([32]byte), from)

	case StoreRegistryAddr:
		method, args, err := decodeCall(contract.StoreRegistryABI, data)
		if err != nil || method.Name != "create" {
			return ErrFakeRevert
		}
		return c.createStore(from, args, receipt)

	case BatcherAddr:
		calls, err := contract.UnpackBatch(data)
		if err != nil {
			return err
		}
		for _, call := range calls {
			if err := c.applyCall(from, call.Target, call.Data, receipt); err != nil {
				return err
			}
		}
		return nil
	}

	state, ok := c.stores[to]
	if !ok {
		if _, hasCode := c.code[to]; hasCode {
			return fmt.Errorf("unsupported call to %s", to.Hex())
		}
		// 普通账户：视为转账
		return nil
	}
	method, args, err := decodeCall(contract.StoreBinding.ABI(), data)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(method.Name, "set") || len(args) != 1 {
		return ErrFakeRevert
	}
	state[fieldOfSetter(method.Name)] = args[0]
	return nil
}

func (c *FakeChain) claim(alias [32]byte, addr common.Address) error {
	if alias == ([32]byte{}) {
		return ErrFakeRevert
	}
	if owner, taken := c.aliases[alias]; taken && owner != (common.Address{}) {
		return ErrFakeRevert
	}
	c.aliases[alias] = addr
	c.names[addr] = alias
	return nil
}

func (c *FakeChain) createStore(from common.Address, args []interface{}, receipt *ethtypes.Receipt) error {
	addr := crypto.CreateAddress(StoreRegistryAddr, c.nonce)
	alias := args[6].([32]byte)
	if alias != ([32]byte{}) {
		if err := c.claim(alias, addr); err != nil {
			return err
		}
	}
	c.code[addr] = StoreCode
	c.stores[addr] = map[string]interface{}{
		contract.StoreIsOpen:                 args[0].(bool),
		contract.StoreCurrency:               args[1].([32]byte),
		contract.StoreDisputeSeconds:         args[2].(*big.Int),
		contract.StoreMinTotal:               args[3].(*big.Int),
		contract.StoreAffiliateFeeCentiperun: args[4].(*big.Int),
		contract.StoreMeta:                   args[5].([]byte),
		contract.StoreOwner:                  from,
	}

	event := contract.StoreRegistryABI.Events["Registration"]
	logData, err := event.Inputs.Pack(addr)
	if err != nil {
		return err
	}
	receipt.Logs = append(receipt.Logs, &ethtypes.Log{
		Address: StoreRegistryAddr,
		Topics:  []common.Hash{event.ID},
		Data:    logData,
		TxHash:  receipt.TxHash,
	})
	return nil
}

func decodeCall(parsed abi.ABI, data []byte) (*abi.Method, []interface{}, error) {
	if len(data) < 4 {
		return nil, nil, ErrFakeRevert
	}
	method, err := parsed.MethodById(data[:4])
	if err != nil {
		return nil, nil, err
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, err
	}
	return method, args, nil
}

func fieldOfSetter(setter string) string {
	r := []rune(strings.TrimPrefix(setter, "set"))
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
