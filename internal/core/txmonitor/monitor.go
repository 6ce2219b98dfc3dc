// Package txmonitor 跟踪交易从提交到确认的生命周期
//
// Propose 立即返回一个 *Proposal（future），后台 goroutine 执行提交操作并轮询回执。
// 轮询只确认已提交的交易，从不重试提交本身；超时或取消只放弃本地等待。
package txmonitor

import (
	"context"
	"errors"
	"math/big"
	"sort"
	"sync"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/sync/errgroup"

	"github.com/weisyn/marketclient/internal/core/infrastructure/metrics"
	"github.com/weisyn/marketclient/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/marketclient/pkg/interfaces/ledger"
	"github.com/weisyn/marketclient/pkg/types"
)

const (
	// DefaultTimeout 默认确认超时
	DefaultTimeout = 60 * time.Second
	// DefaultPollInterval 默认轮询间隔
	DefaultPollInterval = 3 * time.Second
)

// Options 轮询参数，零值字段使用默认值
type Options struct {
	Timeout      time.Duration
	PollInterval time.Duration
}

// DefaultOptions 默认轮询参数（60s / 3s）
func DefaultOptions() Options {
	return Options{Timeout: DefaultTimeout, PollInterval: DefaultPollInterval}
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	return o
}

// Operation 产生交易的操作，返回交易哈希
type Operation func(ctx context.Context) (common.Hash, error)

// Send 把一笔交易请求包装为 Operation
func Send(sender ledger.Sender, req *ledger.TxRequest) Operation {
	return func(ctx context.Context) (common.Hash, error) {
		return sender.SendTransaction(ctx, req)
	}
}

// Option 监控器选项
type Option func(*Monitor)

// WithOptions 设置默认轮询参数
func WithOptions(opts Options) Option {
	return func(m *Monitor) { m.opts = opts.withDefaults() }
}

// WithSink 设置观测接收方
func WithSink(s Sink) Option {
	return func(m *Monitor) {
		if s != nil {
			m.sink = s
		}
	}
}

// WithMetrics 设置指标
func WithMetrics(tm *metrics.TxMetrics) Option {
	return func(m *Monitor) { m.metrics = tm }
}

// Monitor 交易监控器
type Monitor struct {
	receipts ledger.ReceiptSource
	opts     Options
	sink     Sink
	metrics  *metrics.TxMetrics
	logger   log.Logger

	mu      sync.Mutex
	pending map[string]*Proposal
}

// New 创建交易监控器
func New(receipts ledger.ReceiptSource, logger log.Logger, options ...Option) *Monitor {
	m := &Monitor{
		receipts: receipts,
		opts:     DefaultOptions(),
		sink:     nopSink{},
		logger:   logger,
		pending:  make(map[string]*Proposal),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Options 当前默认轮询参数
func (m *Monitor) Options() Options { return m.opts }

// Propose 执行 op 并等待其交易确认
//
// 返回的 Proposal 在以下情况结束：
//   - op 返回错误（提交失败，原样传递）
//   - 回执出现（status=0 时为 TransactionFailedError）
//   - 超时（TransactionTimeoutError）
//   - ctx 取消（本地等待被放弃）
func (m *Monitor) Propose(ctx context.Context, description string, op Operation) *Proposal {
	p := newProposal(description)
	m.track(p)
	m.metrics.Proposed(description)
	if m.logger != nil {
		m.logger.Infof("提议交易: %s (id=%s)", description, p.ID)
	}
	m.sink.Notify(description, p)

	go m.run(ctx, p, op)
	return p
}

func (m *Monitor) run(ctx context.Context, p *Proposal, op Operation) {
	hash, err := op(ctx)
	if err != nil {
		m.finish(p, StatusFailed, nil, err)
		return
	}
	p.submitted(hash)
	if m.logger != nil {
		m.logger.Debugf("交易已提交: %s tx=%s", p.Description, hash.Hex())
	}

	receipt, err := m.WaitFor(ctx, hash, m.opts)
	switch {
	case err == nil:
		m.finish(p, StatusConfirmed, receipt, nil)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		m.finish(p, StatusAbandoned, nil, err)
	default:
		if _, timedOut := types.IsTransactionTimeout(err); timedOut {
			m.finish(p, StatusTimedOut, nil, err)
		} else {
			m.finish(p, StatusFailed, receipt, err)
		}
	}
}

func (m *Monitor) finish(p *Proposal, status Status, receipt *ethtypes.Receipt, err error) {
	m.untrack(p)
	p.resolve(status, receipt, err)
	m.metrics.Resolved(string(status), p.elapsed())
	if m.logger == nil {
		return
	}
	if err != nil {
		m.logger.Warnf("交易未完成: %s status=%s err=%v", p.Description, status, err)
		return
	}
	m.logger.Infof("交易已确认: %s tx=%s block=%v", p.Description, receipt.TxHash.Hex(), receipt.BlockNumber)
}

// WaitFor 轮询回执直到出现或超时
//
// 首次查询立即进行，之后每 PollInterval 查询一次。
// 回执查询的暂时性错误会被记录并继续轮询，直到超时。
func (m *Monitor) WaitFor(ctx context.Context, hash common.Hash, opts Options) (*ethtypes.Receipt, error) {
	opts = opts.withDefaults()
	start := time.Now()

	timer := time.NewTimer(opts.Timeout)
	defer timer.Stop()
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		receipt, err := m.receipts.TransactionReceipt(ctx, hash)
		m.metrics.Polled()
		switch {
		case err == nil && receipt != nil:
			if receipt.Status == ethtypes.ReceiptStatusFailed {
				return receipt, &types.TransactionFailedError{TxHash: hash, Receipt: receipt}
			}
			return receipt, nil
		case err != nil && !errors.Is(err, ethereum.NotFound):
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if m.logger != nil {
				m.logger.Warnf("查询回执失败 tx=%s: %v", hash.Hex(), err)
			}
		default:
			if m.logger != nil {
				m.logger.Debugf("等待回执 tx=%s elapsed=%s", hash.Hex(), time.Since(start).Round(time.Millisecond))
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, &types.TransactionTimeoutError{TxHash: hash, Elapsed: time.Since(start)}
		case <-ticker.C:
		}
	}
}

// WaitForAll 等待所有交易确认
//
// 输入为空时立即返回 ErrNoTransactions；任一交易失败时立即返回该错误，
// 其余交易的本地等待被取消。
func (m *Monitor) WaitForAll(ctx context.Context, hashes []common.Hash) error {
	if len(hashes) == 0 {
		return types.ErrNoTransactions
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, h := range hashes {
		hash := h
		g.Go(func() error {
			_, err := m.WaitFor(gctx, hash, m.opts)
			return err
		})
	}
	return g.Wait()
}

// Transfer 提议一笔普通转账
func (m *Monitor) Transfer(ctx context.Context, sender ledger.Sender, from, to common.Address, value *big.Int) *Proposal {
	req := &ledger.TxRequest{From: from, To: &to, Value: value, Gas: 21000}
	return m.Propose(ctx, "Send", Send(sender, req))
}

// Pending 进行中的提议，按创建时间排序
func (m *Monitor) Pending() []Record {
	m.mu.Lock()
	records := make([]Record, 0, len(m.pending))
	for _, p := range m.pending {
		records = append(records, p.record())
	}
	m.mu.Unlock()

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records
}

func (m *Monitor) track(p *Proposal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[p.ID] = p
}

func (m *Monitor) untrack(p *Proposal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, p.ID)
}
