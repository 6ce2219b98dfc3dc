package types

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ContractKind 合约种类
type ContractKind string

const (
	KindNone          ContractKind = ""
	KindStore         ContractKind = "store"
	KindMarket        ContractKind = "market"
	KindSubmarket     ContractKind = "submarket"
	KindAliasRegistry ContractKind = "alias_registry"
	KindStoreRegistry ContractKind = "store_registry"
)

// ParseContractKind 解析合约种类名称（大小写不敏感）
func ParseContractKind(s string) (ContractKind, error) {
	switch k := ContractKind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindStore, KindMarket, KindSubmarket, KindAliasRegistry, KindStoreRegistry:
		return k, nil
	default:
		return KindNone, fmt.Errorf("unknown contract kind %q", s)
	}
}

// Fingerprints 合约种类 -> 运行时字节码的 keccak256 指纹
//
// 进程启动时加载一次，之后只读；注入到 Validator、ContractProxy、AliasRegistry，
// 不作为包级全局变量使用。
type Fingerprints struct {
	byKind map[ContractKind]common.Hash
	order  []ContractKind
}

// NewFingerprints 从 种类->指纹 映射创建
func NewFingerprints(m map[ContractKind]common.Hash) *Fingerprints {
	fp := &Fingerprints{byKind: make(map[ContractKind]common.Hash, len(m))}
	// 固定匹配顺序，保证 Match 结果可复现
	for _, k := range []ContractKind{KindStore, KindMarket, KindSubmarket, KindAliasRegistry, KindStoreRegistry} {
		if h, ok := m[k]; ok {
			fp.byKind[k] = h
			fp.order = append(fp.order, k)
		}
	}
	return fp
}

// ParseFingerprints 解析配置中的指纹定义
//
// 每个值可以是 32 字节的哈希（0x + 64 位十六进制），也可以是完整的运行时字节码，
// 后者会被计算 keccak256 后保存。
func ParseFingerprints(raw map[string]string) (*Fingerprints, error) {
	m := make(map[ContractKind]common.Hash, len(raw))
	for name, value := range raw {
		kind, err := ParseContractKind(name)
		if err != nil {
			return nil, err
		}
		value = strings.TrimSpace(value)
		forceCode := strings.HasPrefix(value, codePrefix)
		b, err := hexutil.Decode(strings.TrimPrefix(value, codePrefix))
		if err != nil {
			return nil, fmt.Errorf("fingerprint %s: %w", name, err)
		}
		if len(b) == common.HashLength && !forceCode {
			m[kind] = common.BytesToHash(b)
		} else {
			m[kind] = crypto.Keccak256Hash(b)
		}
	}
	return NewFingerprints(m), nil
}

// codePrefix 配置中以 "code:" 开头的值强制按字节码处理
// （避免恰好 32 字节的字节码被误认作哈希）
const codePrefix = "code:"

// FingerprintOf 计算运行时字节码的指纹
func FingerprintOf(code []byte) common.Hash {
	return crypto.Keccak256Hash(code)
}

// Get 获取指定种类的指纹
func (f *Fingerprints) Get(kind ContractKind) (common.Hash, bool) {
	if f == nil {
		return common.Hash{}, false
	}
	h, ok := f.byKind[kind]
	return h, ok
}

// Matches 判断字节码是否属于指定种类
func (f *Fingerprints) Matches(kind ContractKind, code []byte) bool {
	if len(code) == 0 {
		return false
	}
	h, ok := f.Get(kind)
	return ok && h == FingerprintOf(code)
}

// Match 返回字节码所属的种类；无匹配时返回 KindNone
func (f *Fingerprints) Match(code []byte) ContractKind {
	if f == nil || len(code) == 0 {
		return KindNone
	}
	h := FingerprintOf(code)
	for _, k := range f.order {
		if f.byKind[k] == h {
			return k
		}
	}
	return KindNone
}

// Kinds 返回已配置的种类
func (f *Fingerprints) Kinds() []ContractKind {
	if f == nil {
		return nil
	}
	return append([]ContractKind(nil), f.order...)
}
