package contract

import (
	"github.com/weisyn/marketclient/pkg/types"
)

// ==================== 市场合约 ABI ====================

const aliasRegistryABIJSON = `[
	{"type": "function", "name": "getAddr", "stateMutability": "view",
	 "inputs": [{"name": "alias", "type": "bytes32"}],
	 "outputs": [{"name": "", "type": "address"}]},
	{"type": "function", "name": "getAlias", "stateMutability": "view",
	 "inputs": [{"name": "addr", "type": "address"}],
	 "outputs": [{"name": "", "type": "bytes32"}]},
	{"type": "function", "name": "claimAlias", "stateMutability": "nonpayable",
	 "inputs": [{"name": "alias", "type": "bytes32"}],
	 "outputs": []}
]`

const storeRegistryABIJSON = `[
	{"type": "function", "name": "create", "stateMutability": "nonpayable",
	 "inputs": [
		{"name": "isOpen", "type": "bool"},
		{"name": "currency", "type": "bytes32"},
		{"name": "disputeSeconds", "type": "uint256"},
		{"name": "minTotal", "type": "uint256"},
		{"name": "affiliateFeeCentiperun", "type": "uint256"},
		{"name": "meta", "type": "bytes"},
		{"name": "alias", "type": "bytes32"}
	 ],
	 "outputs": []},
	{"type": "event", "name": "Registration", "anonymous": false,
	 "inputs": [{"name": "addr", "type": "address", "indexed": false}]}
]`

const storeConstructorABIJSON = `[
	{"type": "constructor", "stateMutability": "nonpayable",
	 "inputs": [
		{"name": "alias", "type": "bytes32"},
		{"name": "meta", "type": "bytes"},
		{"name": "aliasReg", "type": "address"}
	 ]}
]`

var (
	// AliasRegistryABI 别名注册表
	AliasRegistryABI = mustParseABI(aliasRegistryABIJSON)
	// StoreRegistryABI 店铺注册表（create + Registration 事件）
	StoreRegistryABI = mustParseABI(storeRegistryABIJSON)
	// StoreConstructorABI 店铺合约构造函数，用于部署成本估算
	StoreConstructorABI = mustParseABI(storeConstructorABIJSON)
)

// 店铺合约字段名
const (
	StoreIsOpen                 = "isOpen"
	StoreCurrency               = "currency"
	StoreDisputeSeconds         = "disputeSeconds"
	StoreMinTotal               = "minTotal"
	StoreAffiliateFeeCentiperun = "affiliateFeeCentiperun"
	StoreOwner                  = "owner"
	StoreMeta                   = "meta"
)

// StoreFields 店铺合约的字段声明
var StoreFields = []Field{
	{Name: StoreIsOpen, Type: FieldBool},
	{Name: StoreCurrency, Type: FieldBytes32},
	{Name: StoreDisputeSeconds, Type: FieldUint},
	{Name: StoreMinTotal, Type: FieldUint},
	{Name: StoreAffiliateFeeCentiperun, Type: FieldUint},
	{Name: StoreOwner, Type: FieldAddress, ReadOnly: true},
	{Name: StoreMeta, Type: FieldBytes},
}

// StoreBinding 店铺合约绑定
var StoreBinding = MustBinding(types.KindStore, StoreFields)
