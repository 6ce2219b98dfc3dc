package contract

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/weisyn/marketclient/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/marketclient/pkg/types"
)

// Caller 只读合约调用原语
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Snapshot 一次完整刷新读到的字段值，创建后不可变
type Snapshot struct {
	Contract common.Address
	Values   map[string]interface{}
	ReadAt   time.Time
}

// Bool 读取 bool 字段
func (s *Snapshot) Bool(name string) bool {
	v, _ := s.Values[name].(bool)
	return v
}

// Bytes32 读取 bytes32 字段
func (s *Snapshot) Bytes32(name string) [32]byte {
	v, _ := s.Values[name].([32]byte)
	return v
}

// BigInt 读取 uint 字段（返回副本，缺失时为 0）
func (s *Snapshot) BigInt(name string) *big.Int {
	if v, ok := s.Values[name].(*big.Int); ok && v != nil {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

// Address 读取 address 字段
func (s *Snapshot) Address(name string) common.Address {
	v, _ := s.Values[name].(common.Address)
	return v
}

// Bytes 读取 bytes 字段
func (s *Snapshot) Bytes(name string) []byte {
	v, _ := s.Values[name].([]byte)
	return v
}

// Proxy 远程合约的字段代理
type Proxy struct {
	caller  Caller
	binding *Binding
	addr    common.Address
	guard   *Guard
	logger  log.Logger

	snapshot atomic.Pointer[Snapshot]
}

// NewProxy 创建字段代理
//
// guard 为 nil 时不做字节码检查，此时空返回数据同样被归类为 NotFound。
func NewProxy(caller Caller, binding *Binding, addr common.Address, guard *Guard, logger log.Logger) *Proxy {
	return &Proxy{
		caller:  caller,
		binding: binding,
		addr:    addr,
		guard:   guard,
		logger:  logger,
	}
}

// Address 合约地址
func (p *Proxy) Address() common.Address { return p.addr }

// Binding 合约绑定
func (p *Proxy) Binding() *Binding { return p.binding }

// Snapshot 最近一次完整刷新的快照；尚未刷新时为 nil
func (p *Proxy) Snapshot() *Snapshot { return p.snapshot.Load() }

// Update 读取所有声明的字段
//
// 所有字段都读取成功后才替换快照，调用方不会看到部分更新的结果。
func (p *Proxy) Update(ctx context.Context) (*Snapshot, error) {
	if p.guard != nil {
		if err := p.guard.Verify(ctx, p.addr, p.binding.Kind()); err != nil {
			return nil, err
		}
	}

	var (
		mu     sync.Mutex
		values = make(map[string]interface{}, len(p.binding.fields))
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, f := range p.binding.fields {
		name := f.Name
		g.Go(func() error {
			v, err := p.read(gctx, name)
			if err != nil {
				return err
			}
			mu.Lock()
			values[name] = v
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := &Snapshot{Contract: p.addr, Values: values, ReadAt: time.Now()}
	p.snapshot.Store(snap)
	if p.logger != nil {
		p.logger.Debugf("合约字段已刷新: kind=%s addr=%s fields=%d", p.binding.Kind(), p.addr.Hex(), len(values))
	}
	return snap, nil
}

func (p *Proxy) read(ctx context.Context, name string) (interface{}, error) {
	input, err := p.binding.PackGet(name)
	if err != nil {
		return nil, err
	}
	to := p.addr
	out, err := p.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	if err != nil {
		return nil, &types.IOError{Op: fmt.Sprintf("call %s()", name), Err: err}
	}
	if len(out) == 0 {
		return nil, &types.NotFoundError{Address: p.addr, Kind: p.binding.Kind(), Reason: fmt.Sprintf("empty return data for %s()", name)}
	}
	v, err := p.binding.UnpackGet(name, out)
	if err != nil {
		return nil, &types.IOError{Op: fmt.Sprintf("decode %s()", name), Err: err}
	}
	return v, nil
}

// BuildCalls 为 data 中出现的每个字段生成一个 setter 调用
//
// 调用顺序为字段声明顺序。未声明的字段返回 ErrUnknownField，只读字段返回 ErrReadOnlyField。
func (p *Proxy) BuildCalls(data map[string]interface{}) ([]Call, error) {
	for name := range data {
		f, ok := p.binding.Field(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", types.ErrUnknownField, name)
		}
		if f.ReadOnly {
			return nil, fmt.Errorf("%w: %s", types.ErrReadOnlyField, name)
		}
	}

	calls := make([]Call, 0, len(data))
	for _, f := range p.binding.fields {
		value, ok := data[f.Name]
		if !ok {
			continue
		}
		input, err := p.binding.PackSet(f.Name, value)
		if err != nil {
			return nil, err
		}
		calls = append(calls, Call{To: p.addr, Data: input, Method: p.binding.SetterName(f.Name)})
	}
	return calls, nil
}
