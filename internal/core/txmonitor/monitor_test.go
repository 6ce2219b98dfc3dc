package txmonitor

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/marketclient/internal/core/infrastructure/metrics"
	"github.com/weisyn/marketclient/internal/core/testutil"
	"github.com/weisyn/marketclient/pkg/interfaces/ledger"
	"github.com/weisyn/marketclient/pkg/types"
)

var fastPoll = Options{Timeout: time.Second, PollInterval: 5 * time.Millisecond}

// scriptedReceipts 按哈希返回预设结果
type scriptedReceipts struct {
	mu      sync.Mutex
	results map[common.Hash]func(poll int) (*ethtypes.Receipt, error)
	polls   map[common.Hash]int
}

func newScripted() *scriptedReceipts {
	return &scriptedReceipts{
		results: make(map[common.Hash]func(int) (*ethtypes.Receipt, error)),
		polls:   make(map[common.Hash]int),
	}
}

func (s *scriptedReceipts) on(hash common.Hash, fn func(poll int) (*ethtypes.Receipt, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[hash] = fn
}

func (s *scriptedReceipts) TransactionReceipt(_ context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
	s.mu.Lock()
	s.polls[hash]++
	poll := s.polls[hash]
	fn := s.results[hash]
	s.mu.Unlock()
	if fn == nil {
		return nil, ethereum.NotFound
	}
	return fn(poll)
}

func okReceipt(hash common.Hash) *ethtypes.Receipt {
	return &ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful, TxHash: hash, BlockNumber: big.NewInt(1)}
}

func sendOne(t *testing.T, chain *testutil.FakeChain) common.Hash {
	t.Helper()
	to := common.HexToAddress("0xbeef")
	hash, err := chain.SendTransaction(context.Background(), &ledger.TxRequest{To: &to})
	require.NoError(t, err)
	return hash
}

// TestWaitFor_Timeout 永远不出现回执时，在 [timeout, 2*timeout) 内超时
func TestWaitFor_Timeout(t *testing.T) {
	chain := testutil.NewFakeChain()
	chain.NeverConfirm()
	hash := sendOne(t, chain)
	m := New(chain, nil)

	start := time.Now()
	_, err := m.WaitFor(context.Background(), hash, Options{Timeout: 100 * time.Millisecond, PollInterval: 10 * time.Millisecond})
	elapsed := time.Since(start)

	te, ok := types.IsTransactionTimeout(err)
	require.True(t, ok, "expected timeout, got %v", err)
	assert.Equal(t, hash, te.TxHash)
	assert.GreaterOrEqual(t, te.Elapsed, 100*time.Millisecond)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, 200*time.Millisecond)
	assert.Greater(t, chain.ReceiptPolls(), 1)
}

// TestWaitFor_ConfirmsAfterPolls 测试多次轮询后确认
func TestWaitFor_ConfirmsAfterPolls(t *testing.T) {
	chain := testutil.NewFakeChain()
	chain.SetConfirmAfter(2)
	hash := sendOne(t, chain)

	receipt, err := New(chain, nil).WaitFor(context.Background(), hash, fastPoll)
	require.NoError(t, err)
	assert.Equal(t, hash, receipt.TxHash)
	assert.Equal(t, 3, chain.ReceiptPolls())
}

// TestWaitFor_FailedReceipt 测试回执 status=0
func TestWaitFor_FailedReceipt(t *testing.T) {
	chain := testutil.NewFakeChain()
	chain.FailNext()
	hash := sendOne(t, chain)

	receipt, err := New(chain, nil).WaitFor(context.Background(), hash, fastPoll)
	fe, ok := types.IsTransactionFailed(err)
	require.True(t, ok, "expected failed, got %v", err)
	assert.Equal(t, hash, fe.TxHash)
	assert.NotNil(t, receipt)
}

// TestWaitFor_TransientErrorKeepsPolling 测试回执查询暂时失败时继续轮询
func TestWaitFor_TransientErrorKeepsPolling(t *testing.T) {
	hash := common.HexToHash("0x01")
	src := newScripted()
	src.on(hash, func(poll int) (*ethtypes.Receipt, error) {
		if poll < 3 {
			return nil, errors.New("502 bad gateway")
		}
		return okReceipt(hash), nil
	})

	receipt, err := New(src, nil).WaitFor(context.Background(), hash, fastPoll)
	require.NoError(t, err)
	assert.Equal(t, hash, receipt.TxHash)
}

// TestWaitFor_ContextCancel 测试取消本地等待
func TestWaitFor_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := New(newScripted(), nil).WaitFor(ctx, common.HexToHash("0x02"), fastPoll)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestWaitForAll_Empty 空输入立即失败，不会挂起
func TestWaitForAll_Empty(t *testing.T) {
	m := New(newScripted(), nil)
	done := make(chan error, 1)
	go func() { done <- m.WaitForAll(context.Background(), nil) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, types.ErrNoTransactions)
	case <-time.After(time.Second):
		t.Fatal("WaitForAll([]) 挂起")
	}
	assert.ErrorIs(t, m.WaitForAll(context.Background(), []common.Hash{}), types.ErrNoTransactions)
}

// TestWaitForAll_AllConfirm 测试全部确认
func TestWaitForAll_AllConfirm(t *testing.T) {
	chain := testutil.NewFakeChain()
	chain.SetConfirmAfter(1)
	hashes := []common.Hash{sendOne(t, chain), sendOne(t, chain), sendOne(t, chain)}

	m := New(chain, nil, WithOptions(fastPoll))
	assert.NoError(t, m.WaitForAll(context.Background(), hashes))
}

// TestWaitForAll_ShortCircuit 任一失败立即返回，不等待其余交易
func TestWaitForAll_ShortCircuit(t *testing.T) {
	failing := common.HexToHash("0x0f")
	slow := common.HexToHash("0x05")
	src := newScripted()
	src.on(failing, func(int) (*ethtypes.Receipt, error) {
		return &ethtypes.Receipt{Status: ethtypes.ReceiptStatusFailed, TxHash: failing}, nil
	})

	m := New(src, nil, WithOptions(Options{Timeout: 5 * time.Second, PollInterval: 5 * time.Millisecond}))
	start := time.Now()
	err := m.WaitForAll(context.Background(), []common.Hash{slow, failing})

	fe, ok := types.IsTransactionFailed(err)
	require.True(t, ok, "expected failed, got %v", err)
	assert.Equal(t, failing, fe.TxHash)
	assert.Less(t, time.Since(start), time.Second)
}

// TestPropose_Confirmed 测试提议成功
func TestPropose_Confirmed(t *testing.T) {
	chain := testutil.NewFakeChain()
	chain.SetConfirmAfter(1)

	var notified []string
	var mu sync.Mutex
	sink := SinkFunc(func(description string, p *Proposal) {
		mu.Lock()
		defer mu.Unlock()
		notified = append(notified, description)
		assert.NotEmpty(t, p.ID)
	})
	m := New(chain, nil, WithOptions(fastPoll), WithSink(sink), WithMetrics(metrics.NewTxMetrics(nil)))

	to := common.HexToAddress("0xbeef")
	p := m.Propose(context.Background(), "Update Store", Send(chain, &ledger.TxRequest{To: &to, Data: []byte{1}}))
	receipt, err := p.Wait(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusConfirmed, p.Status())
	assert.Equal(t, p.TxHash(), receipt.TxHash)
	assert.Same(t, receipt, p.Receipt())
	assert.NoError(t, p.Err())
	assert.Empty(t, m.Pending(), "已结束的记录被移除")

	mu.Lock()
	assert.Equal(t, []string{"Update Store"}, notified)
	mu.Unlock()
}

// TestPropose_SubmissionFailure 提交失败原样传递给调用方
func TestPropose_SubmissionFailure(t *testing.T) {
	m := New(newScripted(), nil, WithOptions(fastPoll))
	submitErr := errors.New("insufficient funds")

	p := m.Propose(context.Background(), "Update Store", func(context.Context) (common.Hash, error) {
		return common.Hash{}, submitErr
	})
	_, err := p.Wait(context.Background())
	assert.ErrorIs(t, err, submitErr)
	assert.Equal(t, StatusFailed, p.Status())
}

// TestPropose_TimedOut 测试提议超时
func TestPropose_TimedOut(t *testing.T) {
	chain := testutil.NewFakeChain()
	chain.NeverConfirm()
	m := New(chain, nil, WithOptions(Options{Timeout: 50 * time.Millisecond, PollInterval: 10 * time.Millisecond}))

	to := common.HexToAddress("0xbeef")
	p := m.Propose(context.Background(), "Update Store", Send(chain, &ledger.TxRequest{To: &to}))
	_, err := p.Wait(context.Background())
	_, ok := types.IsTransactionTimeout(err)
	assert.True(t, ok)
	assert.Equal(t, StatusTimedOut, p.Status())
}

// TestPropose_Abandoned 取消 ctx 只放弃本地等待
func TestPropose_Abandoned(t *testing.T) {
	chain := testutil.NewFakeChain()
	chain.NeverConfirm()
	m := New(chain, nil, WithOptions(fastPoll))

	ctx, cancel := context.WithCancel(context.Background())
	to := common.HexToAddress("0xbeef")
	p := m.Propose(ctx, "Update Store", Send(chain, &ledger.TxRequest{To: &to}))

	require.Eventually(t, func() bool { return len(m.Pending()) == 1 && m.Pending()[0].TxHash != (common.Hash{}) },
		time.Second, 5*time.Millisecond)
	cancel()

	<-p.Done()
	assert.Equal(t, StatusAbandoned, p.Status())
	assert.ErrorIs(t, p.Err(), context.Canceled)
	assert.Len(t, chain.Sent(), 1, "交易已提交，不会被撤回")
	assert.Empty(t, m.Pending())
}

// TestProposal_WaitContext 测试 Wait 的 ctx 取消不影响提议
func TestProposal_WaitContext(t *testing.T) {
	chain := testutil.NewFakeChain()
	chain.SetConfirmAfter(3)
	m := New(chain, nil, WithOptions(fastPoll))

	to := common.HexToAddress("0xbeef")
	p := m.Propose(context.Background(), "Update Store", Send(chain, &ledger.TxRequest{To: &to}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = p.Wait(context.Background())
	assert.NoError(t, err)
}

// TestTransfer 测试普通转账
func TestTransfer(t *testing.T) {
	chain := testutil.NewFakeChain()
	m := New(chain, nil, WithOptions(fastPoll))

	to := common.HexToAddress("0xbeef")
	p := m.Transfer(context.Background(), chain, testutil.DefaultSender, to, big.NewInt(1000))
	_, err := p.Wait(context.Background())
	require.NoError(t, err)

	sent := chain.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, to, *sent[0].To)
	assert.Equal(t, int64(1000), sent[0].Value.Int64())
	assert.Equal(t, "Send", p.Description)
}

// TestProposal_Submitted 测试等待提交（不等待确认）
func TestProposal_Submitted(t *testing.T) {
	chain := testutil.NewFakeChain()
	chain.NeverConfirm()
	m := New(chain, nil, WithOptions(fastPoll))

	to := common.HexToAddress("0xbeef")
	p := m.Propose(context.Background(), "Update Store", Send(chain, &ledger.TxRequest{To: &to}))
	hash, err := p.Submitted(context.Background())
	require.NoError(t, err)
	assert.Equal(t, p.TxHash(), hash)
	assert.Equal(t, StatusPending, p.Status())

	// 提交失败时返回失败原因
	submitErr := errors.New("nonce too low")
	failed := m.Propose(context.Background(), "Update Store", func(context.Context) (common.Hash, error) {
		return common.Hash{}, submitErr
	})
	_, err = failed.Submitted(context.Background())
	assert.ErrorIs(t, err, submitErr)
}
