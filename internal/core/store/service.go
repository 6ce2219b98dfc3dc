// Package store 店铺实体：创建、读取、批量更新链上店铺合约
package store

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/weisyn/marketclient/internal/core/alias"
	"github.com/weisyn/marketclient/internal/core/codec"
	"github.com/weisyn/marketclient/internal/core/contract"
	"github.com/weisyn/marketclient/internal/core/currency"
	infralog "github.com/weisyn/marketclient/internal/core/infrastructure/log"
	"github.com/weisyn/marketclient/internal/core/txmonitor"
	"github.com/weisyn/marketclient/internal/core/validator"
	"github.com/weisyn/marketclient/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/marketclient/pkg/interfaces/ledger"
	"github.com/weisyn/marketclient/pkg/types"
)

const (
	// DefaultGasMultiplier 估算 gas 的放大倍数
	DefaultGasMultiplier = 4
	// DefaultRefreshTimeout 单次刷新的超时
	DefaultRefreshTimeout = 30 * time.Second

	descCreate = "Create a New Store"
	descUpdate = "Update Store"
)

// ErrBytecodeNotConfigured 没有配置店铺合约的部署字节码
var ErrBytecodeNotConfigured = errors.New("store bytecode not configured")

// Config 店铺服务配置
type Config struct {
	From            common.Address // 节点托管的发送账户
	StoreRegistry   common.Address
	GasMultiplier   uint64
	DisplayCurrency string
	StoreBytecode   []byte // 部署字节码，仅用于成本估算
	RefreshTimeout  time.Duration
}

func (c Config) withDefaults() Config {
	if c.GasMultiplier == 0 {
		c.GasMultiplier = DefaultGasMultiplier
	}
	if c.RefreshTimeout <= 0 {
		c.RefreshTimeout = DefaultRefreshTimeout
	}
	return c
}

// Deps 店铺服务的协作者
type Deps struct {
	Ledger    ledger.Ledger
	Monitor   *txmonitor.Monitor
	Aliases   *alias.Registry
	Guard     *contract.Guard
	Batcher   contract.Batcher
	Converter *currency.Converter
	Logger    log.Logger
}

// Service 店铺服务
type Service struct {
	cfg       Config
	ledger    ledger.Ledger
	monitor   *txmonitor.Monitor
	aliases   *alias.Registry
	guard     *contract.Guard
	batcher   contract.Batcher
	converter *currency.Converter
	validator *validator.Validator
	logger    log.Logger
}

// NewService 创建店铺服务
func NewService(cfg Config, deps Deps) *Service {
	logger := infralog.OrNop(deps.Logger)
	var checker validator.ContractChecker
	if deps.Guard != nil {
		checker = deps.Guard
	}
	return &Service{
		cfg:       cfg.withDefaults(),
		ledger:    deps.Ledger,
		monitor:   deps.Monitor,
		aliases:   deps.Aliases,
		guard:     deps.Guard,
		batcher:   deps.Batcher,
		converter: deps.Converter,
		validator: validator.New(checker, logger),
		logger:    logger,
	}
}

// Config 生效的配置
func (s *Service) Config() Config { return s.cfg }

// ==================== 打开 ====================

// Open 按地址或别名打开店铺，并在后台开始首次刷新
func (s *Service) Open(ctx context.Context, ref string) (*Store, error) {
	addr, err := s.ResolveRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.At(ctx, addr), nil
}

// ResolveRef 20 字节十六进制地址直接使用，否则按别名解析
func (s *Service) ResolveRef(ctx context.Context, ref string) (common.Address, error) {
	if IsAddr(ref) {
		return common.HexToAddress(ref), nil
	}
	if !validator.IsAlias(ref) {
		return common.Address{}, &types.ValidationError{Field: "ref", Rule: "type", Message: fmt.Sprintf("%s is neither an address nor an alias", ref)}
	}
	return s.aliases.ResolveClaimed(ctx, ref)
}

// At 绑定到已知地址
func (s *Service) At(ctx context.Context, addr common.Address) *Store {
	return newStore(ctx, s, addr)
}

// IsAddr 判断是否为 0x 前缀的 20 字节十六进制地址
func IsAddr(s string) bool {
	return len(s) == 2+2*common.AddressLength && common.IsHexAddress(s)
}

// ==================== 校验 ====================

// Check 静态校验别名与元数据，不产生任何交易
//
// 按顺序校验：别名、元数据结构、每个子市场、每个商品、每个配送方式，返回第一个错误。
func (s *Service) Check(ctx context.Context, aliasName string, meta map[string]interface{}) error {
	if err := s.validator.Check(ctx, map[string]interface{}{"alias": aliasName}, aliasSchema, ""); err != nil {
		return err
	}
	return s.checkMeta(ctx, meta)
}

func (s *Service) checkMeta(ctx context.Context, meta map[string]interface{}) error {
	meta = cloneMeta(meta)
	if err := s.validator.Check(ctx, meta, metaSchema, ""); err != nil {
		return err
	}

	for _, addr := range elements(meta["submarketAddrs"]) {
		if err := s.validator.Check(ctx, map[string]interface{}{"addr": addr}, submarketSchema, "Submarket"); err != nil {
			return err
		}
	}
	if err := s.checkEach(ctx, meta["products"], productSchema, "Product"); err != nil {
		return err
	}
	return s.checkEach(ctx, meta["transports"], transportSchema, "Transport")
}

func (s *Service) checkEach(ctx context.Context, list interface{}, schema *validator.Schema, prefix string) error {
	for _, e := range elements(list) {
		item, ok := e.(map[string]interface{})
		if !ok {
			return &types.ValidationError{Prefix: prefix, Rule: "object", Message: "is not an object"}
		}
		if err := s.validator.Check(ctx, cloneMeta(item), schema, prefix); err != nil {
			return err
		}
	}
	return nil
}

// encodeMeta 校验并编码元数据
func (s *Service) encodeMeta(ctx context.Context, meta map[string]interface{}) ([]byte, error) {
	if err := s.checkMeta(ctx, meta); err != nil {
		return nil, err
	}
	return codec.Marshal(toWire(meta))
}

func (s *Service) checkFields(ctx context.Context, upd FieldUpdate) error {
	return s.validator.Check(ctx, upd.data(), fieldsSchema, "")
}

// ==================== 创建 ====================

// Creation 一次店铺创建
type Creation struct {
	proposal *txmonitor.Proposal
	svc      *Service
}

// Proposal 底层交易提议
func (c *Creation) Proposal() *txmonitor.Proposal { return c.proposal }

// Store 等待创建交易确认，返回绑定到新地址的店铺
func (c *Creation) Store(ctx context.Context) (*Store, error) {
	receipt, err := c.proposal.Wait(ctx)
	if err != nil {
		return nil, err
	}
	addr, err := c.svc.createdAddress(receipt)
	if err != nil {
		return nil, err
	}
	c.svc.logger.Infof("店铺已创建: %s", addr.Hex())
	return c.svc.At(ctx, addr), nil
}

// Create 校验后通过店铺注册表部署新店铺，同时认领别名
func (s *Service) Create(ctx context.Context, fields Fields, meta map[string]interface{}, aliasName string) (*Creation, error) {
	if err := s.Check(ctx, aliasName, meta); err != nil {
		return nil, err
	}
	if err := s.checkFields(ctx, fields.Update()); err != nil {
		return nil, err
	}

	metaBytes, err := codec.Marshal(toWire(meta))
	if err != nil {
		return nil, err
	}
	cur, err := codec.TextToBytes32(fields.Currency)
	if err != nil {
		return nil, err
	}
	minTotal, err := scaleMinTotal(fields.MinTotal)
	if err != nil {
		return nil, err
	}
	aliasKey, err := codec.TextToBytes32(aliasName)
	if err != nil {
		return nil, err
	}

	data, err := contract.StoreRegistryABI.Pack("create",
		fields.IsOpen,
		cur,
		new(big.Int).SetUint64(fields.DisputeSeconds),
		minTotal,
		new(big.Int).SetUint64(fields.AffiliateFeeCentiperun),
		metaBytes,
		aliasKey,
	)
	if err != nil {
		return nil, fmt.Errorf("pack create: %w", err)
	}

	to := s.cfg.StoreRegistry
	req := &ledger.TxRequest{From: s.cfg.From, To: &to, Data: data}
	if err := s.applyGas(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Infof("创建店铺: alias=%s gas=%d", aliasName, req.Gas)
	p := s.monitor.Propose(ctx, descCreate, txmonitor.Send(s.ledger, req))
	return &Creation{proposal: p, svc: s}, nil
}

// createdAddress 回执中的合约地址，缺失时从注册表的 Registration 事件中提取
func (s *Service) createdAddress(receipt *ethtypes.Receipt) (common.Address, error) {
	if receipt == nil {
		return common.Address{}, errors.New("no receipt")
	}
	if receipt.ContractAddress != (common.Address{}) {
		return receipt.ContractAddress, nil
	}
	event := contract.StoreRegistryABI.Events["Registration"]
	for _, l := range receipt.Logs {
		if l.Address != s.cfg.StoreRegistry || len(l.Topics) == 0 || l.Topics[0] != event.ID {
			continue
		}
		values, err := event.Inputs.Unpack(l.Data)
		if err != nil || len(values) != 1 {
			continue
		}
		if addr, ok := values[0].(common.Address); ok {
			return addr, nil
		}
	}
	return common.Address{}, fmt.Errorf("no store address in receipt of %s", receipt.TxHash.Hex())
}

// applyGas gas = 估算值 × 倍数
func (s *Service) applyGas(ctx context.Context, req *ledger.TxRequest) error {
	estimate, err := s.ledger.EstimateGas(ctx, req.CallMsg())
	if err != nil {
		return &types.IOError{Op: "estimateGas", Err: err}
	}
	req.Gas = estimate * s.cfg.GasMultiplier
	return nil
}

// ==================== 成本估算 ====================

// CreationCost 两步创建（部署 + 认领别名）的 gas 估算
type CreationCost struct {
	DeployGas uint64 `json:"deploy_gas"`
	ClaimGas  uint64 `json:"claim_gas"`
}

// Total 总 gas
func (c CreationCost) Total() uint64 { return c.DeployGas + c.ClaimGas }

// EstimateCreationCost 只读模拟，不提交任何交易
func (s *Service) EstimateCreationCost(ctx context.Context, aliasName string, meta map[string]interface{}) (CreationCost, error) {
	if len(s.cfg.StoreBytecode) == 0 {
		return CreationCost{}, ErrBytecodeNotConfigured
	}
	if err := s.Check(ctx, aliasName, meta); err != nil {
		return CreationCost{}, err
	}
	metaBytes, err := codec.Marshal(toWire(meta))
	if err != nil {
		return CreationCost{}, err
	}
	aliasKey, err := codec.TextToBytes32(aliasName)
	if err != nil {
		return CreationCost{}, err
	}

	args, err := contract.StoreConstructorABI.Pack("", aliasKey, metaBytes, s.aliases.Address())
	if err != nil {
		return CreationCost{}, fmt.Errorf("pack constructor: %w", err)
	}
	deployData := append(append([]byte{}, s.cfg.StoreBytecode...), args...)
	deploy, err := s.ledger.EstimateGas(ctx, ethereum.CallMsg{From: s.cfg.From, Data: deployData})
	if err != nil {
		return CreationCost{}, &types.IOError{Op: "estimateGas deploy", Err: err}
	}

	claim, err := s.aliases.ClaimCall(aliasName)
	if err != nil {
		return CreationCost{}, err
	}
	claimGas, err := s.ledger.EstimateGas(ctx, ethereum.CallMsg{From: s.cfg.From, To: &claim.To, Data: claim.Data})
	if err != nil {
		return CreationCost{}, &types.IOError{Op: "estimateGas claimAlias", Err: err}
	}
	return CreationCost{DeployGas: deploy, ClaimGas: claimGas}, nil
}
