package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/singleflight"

	"github.com/weisyn/marketclient/internal/core/codec"
	"github.com/weisyn/marketclient/internal/core/contract"
	"github.com/weisyn/marketclient/internal/core/currency"
	"github.com/weisyn/marketclient/internal/core/txmonitor"
	"github.com/weisyn/marketclient/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/marketclient/pkg/types"
)

// State 店铺本地状态
type State int

const (
	StateUninitialized State = iota
	StateUpdating
	StateReady
)

// String 状态名称
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateUpdating:
		return "updating"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// View 一次刷新得到的完整快照，构建完成后不再修改
type View struct {
	Address                common.Address
	Owner                  common.Address
	IsOpen                 bool
	Currency               string
	DisputeSeconds         uint64
	MinTotal               currency.Coinage
	AffiliateFeeCentiperun uint64
	Name                   string
	Info                   string
	Products               []Product
	Transports             []Transport
	SubmarketAddrs         []common.Address
	UpdatedAt              time.Time
}

// Store 绑定到一个链上店铺合约的实体
//
// 快照只属于本实例；同一地址的两个实例各自刷新，互不共享。
type Store struct {
	svc    *Service
	proxy  *contract.Proxy
	logger log.Logger

	group singleflight.Group

	mu    sync.RWMutex
	state State
	view  *View
	alias *string
}

func newStore(ctx context.Context, svc *Service, addr common.Address) *Store {
	s := &Store{
		svc:    svc,
		proxy:  contract.NewProxy(svc.ledger, contract.StoreBinding, addr, svc.guard, svc.logger),
		logger: svc.logger.With("store", addr.Hex()),
		state:  StateUninitialized,
	}
	// 首次刷新的结果由 singleflight 保留，Ready/Update 会加入同一次刷新
	s.startUpdate(ctx)
	return s
}

// Address 合约地址
func (s *Store) Address() common.Address { return s.proxy.Address() }

// State 当前状态
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Snapshot 最近一次成功刷新的快照；尚未就绪时为 nil
func (s *Store) Snapshot() *View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Ready 等待店铺就绪；已就绪时直接返回快照
func (s *Store) Ready(ctx context.Context) (*View, error) {
	s.mu.RLock()
	state, view := s.state, s.view
	s.mu.RUnlock()
	if state == StateReady && view != nil {
		return view, nil
	}
	return s.Update(ctx)
}

// Update 重新读取字段与元数据并重建商品、配送方式
//
// 并发调用共享同一次刷新。ctx 取消只放弃本次等待，刷新本身继续完成。
func (s *Store) Update(ctx context.Context) (*View, error) {
	ch := s.startUpdate(ctx)
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*View), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Store) startUpdate(ctx context.Context) <-chan singleflight.Result {
	return s.group.DoChan("update", func() (interface{}, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.svc.cfg.RefreshTimeout)
		defer cancel()
		return s.refresh(rctx)
	})
}

func (s *Store) refresh(ctx context.Context) (*View, error) {
	s.mu.Lock()
	prev := s.state
	s.state = StateUpdating
	s.mu.Unlock()

	view, err := s.read(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = prev
		s.logger.Warnf("店铺刷新失败: %v", err)
		return nil, err
	}
	s.view = view
	s.state = StateReady
	return view, nil
}

// read 字段 -> 元数据 -> 子集合，按顺序构建
func (s *Store) read(ctx context.Context) (*View, error) {
	snap, err := s.proxy.Update(ctx)
	if err != nil {
		return nil, err
	}

	cur := codec.Bytes32ToText(snap.Bytes32(contract.StoreCurrency))
	view := &View{
		Address:                s.Address(),
		Owner:                  snap.Address(contract.StoreOwner),
		IsOpen:                 snap.Bool(contract.StoreIsOpen),
		Currency:               cur,
		DisputeSeconds:         snap.BigInt(contract.StoreDisputeSeconds).Uint64(),
		MinTotal:               currency.Coinage{Amount: unscaleMinTotal(snap.BigInt(contract.StoreMinTotal)), Currency: cur},
		AffiliateFeeCentiperun: snap.BigInt(contract.StoreAffiliateFeeCentiperun).Uint64(),
		Products:               []Product{},
		Transports:             []Transport{},
		SubmarketAddrs:         []common.Address{},
		UpdatedAt:              snap.ReadAt,
	}

	meta := &wireMeta{}
	if raw := snap.Bytes(contract.StoreMeta); len(raw) > 0 {
		if decoded, err := decodeMeta(raw); err != nil {
			s.logger.Warnf("元数据无法解码，按空数据处理: %v", err)
		} else {
			meta = decoded
		}
	}
	view.Name = meta.Name
	view.Info = meta.Info
	view.SubmarketAddrs = parseSubmarkets(meta.SubmarketAddrs)

	for _, wp := range meta.Products {
		p, err := NewProduct(wp.ID, wp.Name, wp.Price, wp.Info, wp.ImageURL, cur)
		if err != nil {
			s.logger.Warnf("忽略非法商品: %v", err)
			continue
		}
		view.Products = append(view.Products, p)
	}
	for _, wt := range meta.Transports {
		t, err := NewTransport(wt.ID, wt.Type, wt.Price, cur)
		if err != nil {
			s.logger.Warnf("忽略非法配送方式: %v", err)
			continue
		}
		t.Label = s.label(ctx, t)
		view.Transports = append(view.Transports, t)
	}
	return view, nil
}

// label "<type> (<价格>)"，价格按展示币种格式化；换算失败时退回店铺币种
func (s *Store) label(ctx context.Context, t Transport) string {
	display := s.svc.cfg.DisplayCurrency
	if display == "" || display == t.Price.Currency || s.svc.converter == nil {
		return fmt.Sprintf("%s (%s)", t.Type, currency.Format(t.Price.Amount, t.Price.Currency))
	}
	amount, err := t.Price.In(ctx, s.svc.converter, display)
	if err != nil {
		s.logger.Debugf("配送价格换算失败: %v", err)
		return fmt.Sprintf("%s (%s)", t.Type, currency.Format(t.Price.Amount, t.Price.Currency))
	}
	return fmt.Sprintf("%s (%s)", t.Type, currency.Format(amount, display))
}

// Alias 店铺的别名（首次调用时反向解析并缓存）
func (s *Store) Alias(ctx context.Context) (string, error) {
	s.mu.RLock()
	cached := s.alias
	s.mu.RUnlock()
	if cached != nil {
		return *cached, nil
	}
	name, err := s.svc.aliases.ReverseResolve(ctx, s.Address())
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.alias = &name
	s.mu.Unlock()
	return name, nil
}

// Set 把字段更新与元数据替换合并为一笔交易
//
// meta 非 nil 时整体替换元数据 blob。成功后不会自动刷新，需要新视图时调用 Update。
func (s *Store) Set(ctx context.Context, upd FieldUpdate, meta map[string]interface{}) (*txmonitor.Proposal, error) {
	if upd.Empty() && meta == nil {
		return nil, &types.ValidationError{Rule: "presence", Message: "Nothing to update"}
	}
	if err := s.svc.checkFields(ctx, upd); err != nil {
		return nil, err
	}
	values, err := upd.chainValues()
	if err != nil {
		return nil, err
	}
	if meta != nil {
		raw, err := s.svc.encodeMeta(ctx, meta)
		if err != nil {
			return nil, err
		}
		values[contract.StoreMeta] = raw
	}

	calls, err := s.proxy.BuildCalls(values)
	if err != nil {
		return nil, err
	}
	req, err := s.svc.batcher.Batch(calls)
	if err != nil {
		return nil, err
	}
	req.From = s.svc.cfg.From
	if err := s.svc.applyGas(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Infof("更新店铺: calls=%d gas=%d", len(calls), req.Gas)
	return s.svc.monitor.Propose(ctx, descUpdate, txmonitor.Send(s.svc.ledger, req)), nil
}
