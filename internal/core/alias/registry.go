// Package alias 通过链上别名注册表在可读名称与合约地址之间解析
package alias

import (
	"context"
	"fmt"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/weisyn/marketclient/internal/core/codec"
	"github.com/weisyn/marketclient/internal/core/contract"
	"github.com/weisyn/marketclient/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/marketclient/pkg/types"
)

// Registry 别名注册表客户端
type Registry struct {
	caller contract.Caller
	addr   common.Address
	guard  *contract.Guard
	logger log.Logger
}

// New 创建别名注册表客户端
func New(caller contract.Caller, addr common.Address, guard *contract.Guard, logger log.Logger) *Registry {
	return &Registry{caller: caller, addr: addr, guard: guard, logger: logger}
}

// Address 注册表合约地址
func (r *Registry) Address() common.Address { return r.addr }

// Resolve 别名 -> 地址；未认领的别名返回零地址
func (r *Registry) Resolve(ctx context.Context, alias string) (common.Address, error) {
	key, err := aliasKey(alias)
	if err != nil {
		return common.Address{}, err
	}
	out, err := r.call(ctx, "getAddr", key)
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := out.(common.Address)
	if !ok {
		return common.Address{}, &types.IOError{Op: "decode getAddr()", Err: fmt.Errorf("unexpected %T", out)}
	}
	if r.logger != nil {
		r.logger.Debugf("别名解析: %s -> %s", alias, addr.Hex())
	}
	return addr, nil
}

// ReverseResolve 地址 -> 别名；没有别名时返回空字符串
func (r *Registry) ReverseResolve(ctx context.Context, addr common.Address) (string, error) {
	out, err := r.call(ctx, "getAlias", addr)
	if err != nil {
		return "", err
	}
	raw, ok := out.([32]byte)
	if !ok {
		return "", &types.IOError{Op: "decode getAlias()", Err: fmt.Errorf("unexpected %T", out)}
	}
	return codec.Bytes32ToText(raw), nil
}

// IsAvailable 别名解析为零地址时可用
func (r *Registry) IsAvailable(ctx context.Context, alias string) (bool, error) {
	addr, err := r.Resolve(ctx, alias)
	if err != nil {
		return false, err
	}
	return addr == (common.Address{}), nil
}

// Classify 返回别名指向的合约种类；未认领或没有匹配的指纹时返回 KindNone
func (r *Registry) Classify(ctx context.Context, alias string) (types.ContractKind, error) {
	addr, err := r.Resolve(ctx, alias)
	if err != nil {
		return types.KindNone, err
	}
	if addr == (common.Address{}) {
		return types.KindNone, nil
	}
	return r.guard.Classify(ctx, addr)
}

// Validate 别名是否指向 kind 种类的合约
func (r *Registry) Validate(ctx context.Context, alias string, kind types.ContractKind) (bool, error) {
	addr, err := r.Resolve(ctx, alias)
	if err != nil {
		return false, err
	}
	if addr == (common.Address{}) {
		return false, nil
	}
	return r.guard.IsContract(ctx, addr, kind)
}

// ResolveClaimed 与 Resolve 相同，但未认领的别名返回 ErrAliasUnclaimed
func (r *Registry) ResolveClaimed(ctx context.Context, alias string) (common.Address, error) {
	addr, err := r.Resolve(ctx, alias)
	if err != nil {
		return common.Address{}, err
	}
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: %s", types.ErrAliasUnclaimed, alias)
	}
	return addr, nil
}

// ClaimCall 构造认领别名的调用
func (r *Registry) ClaimCall(alias string) (contract.Call, error) {
	key, err := aliasKey(alias)
	if err != nil {
		return contract.Call{}, err
	}
	data, err := contract.AliasRegistryABI.Pack("claimAlias", key)
	if err != nil {
		return contract.Call{}, err
	}
	return contract.Call{To: r.addr, Data: data, Method: "claimAlias"}, nil
}

func (r *Registry) call(ctx context.Context, method string, args ...interface{}) (interface{}, error) {
	input, err := contract.AliasRegistryABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	to := r.addr
	out, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	if err != nil {
		return nil, &types.IOError{Op: fmt.Sprintf("call %s()", method), Err: err}
	}
	if len(out) == 0 {
		return nil, &types.NotFoundError{Address: r.addr, Kind: types.KindAliasRegistry, Reason: "empty return data"}
	}
	return unpackSingle(contract.AliasRegistryABI, method, out)
}

// unpackSingle 解码只有一个返回值的方法
func unpackSingle(parsed abi.ABI, method string, out []byte) (interface{}, error) {
	op := fmt.Sprintf("decode %s()", method)
	values, err := parsed.Unpack(method, out)
	if err != nil {
		return nil, &types.IOError{Op: op, Err: err}
	}
	if len(values) != 1 {
		return nil, &types.IOError{Op: op, Err: fmt.Errorf("expected 1 value, got %d", len(values))}
	}
	return values[0], nil
}

func aliasKey(alias string) ([32]byte, error) {
	key, err := codec.TextToBytes32(alias)
	if err != nil {
		return key, &types.ValidationError{Field: "alias", Rule: "length", Message: "Alias is too long (maximum is 32)"}
	}
	return key, nil
}
