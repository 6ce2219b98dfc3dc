package txmonitor

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
)

// Status 交易记录状态
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusTimedOut  Status = "timed_out"
	StatusFailed    Status = "failed"
	StatusAbandoned Status = "abandoned" // 本地等待被取消，链上交易仍可能确认
)

// Proposal 一次提议的 future
//
// 提交成功后 TxHash 可用；Done 关闭后 Receipt / Err 不再变化。
type Proposal struct {
	ID          string
	Description string
	CreatedAt   time.Time

	mu       sync.RWMutex
	txHash   common.Hash
	status   Status
	receipt  *ethtypes.Receipt
	err      error
	resolved time.Time

	sent     chan struct{}
	sentOnce sync.Once
	done     chan struct{}
}

func newProposal(description string) *Proposal {
	return &Proposal{
		ID:          uuid.NewString(),
		Description: description,
		CreatedAt:   time.Now(),
		status:      StatusPending,
		sent:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// TxHash 交易哈希（尚未提交时为零值）
func (p *Proposal) TxHash() common.Hash {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.txHash
}

// Status 当前状态
func (p *Proposal) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// Done 提议结束时关闭
func (p *Proposal) Done() <-chan struct{} { return p.done }

// Receipt 回执（失败的交易也可能带回执）
func (p *Proposal) Receipt() *ethtypes.Receipt {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.receipt
}

// Err 失败原因；未结束或成功时为 nil
func (p *Proposal) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.err
}

// Wait 阻塞直到提议结束或 ctx 取消
//
// ctx 取消只放弃本次等待，不影响提议本身。
func (p *Proposal) Wait(ctx context.Context) (*ethtypes.Receipt, error) {
	select {
	case <-p.done:
		p.mu.RLock()
		defer p.mu.RUnlock()
		return p.receipt, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Submitted 阻塞直到交易已提交（返回哈希）或提议提前结束（返回失败原因）
func (p *Proposal) Submitted(ctx context.Context) (common.Hash, error) {
	select {
	case <-p.sent:
	case <-ctx.Done():
		return common.Hash{}, ctx.Err()
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.txHash == (common.Hash{}) {
		return common.Hash{}, p.err
	}
	return p.txHash, nil
}

func (p *Proposal) submitted(hash common.Hash) {
	p.mu.Lock()
	p.txHash = hash
	p.mu.Unlock()
	p.sentOnce.Do(func() { close(p.sent) })
}

func (p *Proposal) resolve(status Status, receipt *ethtypes.Receipt, err error) {
	p.mu.Lock()
	p.status = status
	p.receipt = receipt
	p.err = err
	p.resolved = time.Now()
	p.mu.Unlock()
	p.sentOnce.Do(func() { close(p.sent) })
	close(p.done)
}

func (p *Proposal) elapsed() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.resolved.IsZero() {
		return time.Since(p.CreatedAt)
	}
	return p.resolved.Sub(p.CreatedAt)
}

// Record 待确认交易的只读视图
type Record struct {
	ID          string      `json:"id"`
	Description string      `json:"description"`
	TxHash      common.Hash `json:"tx_hash"`
	Status      Status      `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
}

func (p *Proposal) record() Record {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Record{
		ID:          p.ID,
		Description: p.Description,
		TxHash:      p.txHash,
		Status:      p.status,
		CreatedAt:   p.CreatedAt,
	}
}
