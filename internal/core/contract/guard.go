package contract

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/weisyn/marketclient/pkg/types"
)

// CodeReader 字节码读取原语
type CodeReader interface {
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// Guard 基于字节码指纹判断地址上部署的合约种类
//
// 未配置指纹的种类一律视为不匹配。
type Guard struct {
	code         CodeReader
	fingerprints *types.Fingerprints
}

// NewGuard 创建指纹守卫，code 通常是带缓存的读取器
func NewGuard(code CodeReader, fingerprints *types.Fingerprints) *Guard {
	return &Guard{code: code, fingerprints: fingerprints}
}

// Verify 检查 addr 上部署的是 kind 种类的合约
//
// 没有合约、该种类未配置指纹或指纹不匹配时返回 *types.NotFoundError；
// 读取失败返回 *types.IOError。
func (g *Guard) Verify(ctx context.Context, addr common.Address, kind types.ContractKind) error {
	code, err := g.code.CodeAt(ctx, addr, nil)
	if err != nil {
		return &types.IOError{Op: "getCode " + addr.Hex(), Err: err}
	}
	if len(code) == 0 {
		return &types.NotFoundError{Address: addr, Kind: kind, Reason: "no contract code"}
	}
	if kind == types.KindNone {
		return nil
	}
	if _, ok := g.fingerprints.Get(kind); !ok {
		return &types.NotFoundError{Address: addr, Kind: kind, Reason: "no fingerprint configured"}
	}
	if !g.fingerprints.Matches(kind, code) {
		return &types.NotFoundError{Address: addr, Kind: kind, Reason: "bytecode fingerprint mismatch"}
	}
	return nil
}

// IsContract 实现 validator.ContractChecker
func (g *Guard) IsContract(ctx context.Context, addr common.Address, kind types.ContractKind) (bool, error) {
	err := g.Verify(ctx, addr, kind)
	if err == nil {
		return true, nil
	}
	if _, ok := types.IsNotFound(err); ok {
		return false, nil
	}
	return false, err
}

// Classify 返回地址上合约的种类；没有合约或没有匹配的指纹时返回 KindNone
func (g *Guard) Classify(ctx context.Context, addr common.Address) (types.ContractKind, error) {
	code, err := g.code.CodeAt(ctx, addr, nil)
	if err != nil {
		return types.KindNone, &types.IOError{Op: "getCode " + addr.Hex(), Err: err}
	}
	return g.fingerprints.Match(code), nil
}
