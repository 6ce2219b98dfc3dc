package store

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/marketclient/internal/core/alias"
	"github.com/weisyn/marketclient/internal/core/codec"
	"github.com/weisyn/marketclient/internal/core/contract"
	"github.com/weisyn/marketclient/internal/core/currency"
	"github.com/weisyn/marketclient/internal/core/testutil"
	"github.com/weisyn/marketclient/internal/core/txmonitor"
	"github.com/weisyn/marketclient/pkg/types"
)

var (
	shopAddr      = common.HexToAddress("0x5000000000000000000000000000000000000005")
	submarketAddr = common.HexToAddress("0x5b00000000000000000000000000000000000005")
	fastPoll      = txmonitor.Options{Timeout: 2 * time.Second, PollInterval: 5 * time.Millisecond}
)

type testEnv struct {
	chain *testutil.FakeChain
	svc   *Service
}

func newEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()
	chain := testutil.NewFakeChain()
	guard := contract.NewGuard(chain, testutil.Fingerprints())
	cfg := Config{
		From:            testutil.DefaultSender,
		StoreRegistry:   testutil.StoreRegistryAddr,
		DisplayCurrency: currency.ETH,
		StoreBytecode:   []byte{0x60, 0x80, 0x60, 0x40, 0x52},
		RefreshTimeout:  time.Second,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	svc := NewService(cfg, Deps{
		Ledger:  chain,
		Monitor: txmonitor.New(chain, nil, txmonitor.WithOptions(fastPoll)),
		Aliases: alias.New(chain, testutil.AliasRegistryAddr, guard, nil),
		Guard:   guard,
		Batcher: contract.NewContractBatcher(testutil.BatcherAddr),
		Converter: currency.NewConverter(currency.StaticRates{
			"ETH": big.NewRat(1, 1),
			"USD": big.NewRat(2000, 1),
		}),
	})
	return &testEnv{chain: chain, svc: svc}
}

func shopMeta() map[string]interface{} {
	return map[string]interface{}{
		"name":           "Shop",
		"products":       []interface{}{},
		"submarketAddrs": []interface{}{},
		"transports": []interface{}{
			map[string]interface{}{"id": "0", "type": "Standard", "price": "5"},
		},
	}
}

func shopFields() Fields {
	return Fields{
		IsOpen:                 true,
		Currency:               currency.ETH,
		DisputeSeconds:         86400,
		MinTotal:               "1000",
		AffiliateFeeCentiperun: 100,
	}
}

// putShop 直接部署一个带元数据的店铺
func (e *testEnv) putShop(t *testing.T, meta *wireMeta) {
	t.Helper()
	raw, err := codec.Marshal(meta)
	require.NoError(t, err)
	cur, err := codec.TextToBytes32(currency.ETH)
	require.NoError(t, err)
	e.chain.PutStore(shopAddr, map[string]interface{}{
		contract.StoreCurrency: cur,
		contract.StoreMeta:     raw,
	})
}

// ==================== 创建 ====================

// TestCreate_EndToEnd 测试创建、读取与按别名打开
func TestCreate_EndToEnd(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()

	creation, err := env.svc.Create(ctx, shopFields(), shopMeta(), "myshop")
	require.NoError(t, err)

	st, err := creation.Store(ctx)
	require.NoError(t, err)
	assert.Equal(t, txmonitor.StatusConfirmed, creation.Proposal().Status())
	assert.Equal(t, "Create a New Store", creation.Proposal().Description)

	view, err := st.Ready(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateReady, st.State())
	assert.True(t, view.IsOpen)
	assert.Equal(t, "ETH", view.Currency)
	assert.Equal(t, uint64(86400), view.DisputeSeconds)
	assert.Equal(t, uint64(100), view.AffiliateFeeCentiperun)
	assert.Equal(t, 0, view.MinTotal.Amount.Cmp(big.NewRat(1000, 1)))
	assert.Equal(t, testutil.DefaultSender, view.Owner)
	assert.Equal(t, "Shop", view.Name)
	assert.Empty(t, view.Products)
	require.Len(t, view.Transports, 1)
	assert.Equal(t, "Standard (5.0000)", view.Transports[0].Label)

	// minTotal 以 10^12 缩放写入链上
	onChain, ok := env.chain.StoreValue(st.Address(), contract.StoreMinTotal).(*big.Int)
	require.True(t, ok)
	assert.Equal(t, "1000000000000000", onChain.String())

	reopened, err := env.svc.Open(ctx, "myshop")
	require.NoError(t, err)
	assert.Equal(t, st.Address(), reopened.Address())

	name, err := st.Alias(ctx)
	require.NoError(t, err)
	assert.Equal(t, "myshop", name)
}

// TestCreate_MetaWithoutSubmarketAddrs 测试元数据不带子市场列表时可以创建
func TestCreate_MetaWithoutSubmarketAddrs(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()
	meta := map[string]interface{}{
		"name":     "Shop",
		"products": []interface{}{},
		"transports": []interface{}{
			map[string]interface{}{"id": "0", "type": "Standard", "price": "5"},
		},
	}
	fields := shopFields()
	fields.Currency = "USD"

	creation, err := env.svc.Create(ctx, fields, meta, "myshop")
	require.NoError(t, err)
	st, err := creation.Store(ctx)
	require.NoError(t, err)
	view, err := st.Ready(ctx)
	require.NoError(t, err)

	assert.Equal(t, "Shop", view.Name)
	assert.Empty(t, view.SubmarketAddrs)
	require.Len(t, view.Transports, 1)
	// 展示币种 ETH：5 USD = 0.0025 ETH
	assert.Equal(t, "Standard (0.0025)", view.Transports[0].Label)
}

// TestCreate_GasMultiplier 测试 gas = 估算 × 倍数
func TestCreate_GasMultiplier(t *testing.T) {
	env := newEnv(t, func(c *Config) { c.GasMultiplier = 3 })
	ctx := context.Background()

	creation, err := env.svc.Create(ctx, shopFields(), shopMeta(), "myshop")
	require.NoError(t, err)
	_, err = creation.Proposal().Wait(ctx)
	require.NoError(t, err)

	sent := env.chain.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, testutil.StoreRegistryAddr, *sent[0].To)
	assert.Equal(t, testutil.DefaultSender, sent[0].From)
	assert.Equal(t, (21000+16*uint64(len(sent[0].Data)))*3, sent[0].Gas)
}

// TestCreate_InvalidInputSendsNothing 测试校验失败时不提交交易
func TestCreate_InvalidInputSendsNothing(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()

	fields := shopFields()
	fields.AffiliateFeeCentiperun = 101
	_, err := env.svc.Create(ctx, fields, shopMeta(), "myshop")
	ve, ok := types.IsValidationError(err)
	require.True(t, ok, "expected ValidationError, got %v", err)
	assert.Equal(t, "affiliateFeeCentiperun", ve.Field)

	_, err = env.svc.Create(ctx, shopFields(), shopMeta(), "My Shop")
	_, ok = types.IsValidationError(err)
	assert.True(t, ok)

	assert.Empty(t, env.chain.Sent())
}

// TestCreate_FailedTransaction 测试创建交易执行失败
func TestCreate_FailedTransaction(t *testing.T) {
	env := newEnv(t, nil)
	env.chain.FailNext()
	ctx := context.Background()

	creation, err := env.svc.Create(ctx, shopFields(), shopMeta(), "myshop")
	require.NoError(t, err)
	_, err = creation.Store(ctx)
	_, failed := types.IsTransactionFailed(err)
	assert.True(t, failed, "expected TransactionFailedError, got %v", err)
}

// TestCreatedAddress 测试从回执中提取新地址
func TestCreatedAddress(t *testing.T) {
	env := newEnv(t, nil)

	direct := &ethtypes.Receipt{ContractAddress: shopAddr}
	addr, err := env.svc.createdAddress(direct)
	require.NoError(t, err)
	assert.Equal(t, shopAddr, addr)

	event := contract.StoreRegistryABI.Events["Registration"]
	data, err := event.Inputs.Pack(shopAddr)
	require.NoError(t, err)
	other := &ethtypes.Log{Address: common.HexToAddress("0x01"), Topics: []common.Hash{event.ID}, Data: data}
	fromLog := &ethtypes.Receipt{Logs: []*ethtypes.Log{other, {
		Address: testutil.StoreRegistryAddr,
		Topics:  []common.Hash{event.ID},
		Data:    data,
	}}}
	addr, err = env.svc.createdAddress(fromLog)
	require.NoError(t, err)
	assert.Equal(t, shopAddr, addr)

	_, err = env.svc.createdAddress(&ethtypes.Receipt{Logs: []*ethtypes.Log{other}})
	assert.Error(t, err)
}

// ==================== 校验 ====================

// TestCheck 测试静态校验的各类失败
func TestCheck(t *testing.T) {
	tests := []struct {
		name   string
		alias  string
		mutate func(m map[string]interface{})
		prefix string
		field  string
		rule   string
	}{
		{
			name:  "非法别名",
			alias: "My Shop",
			field: "alias",
			rule:  "type",
		},
		{
			name:   "缺少名称",
			alias:  "myshop",
			mutate: func(m map[string]interface{}) { delete(m, "name") },
			field:  "name",
			rule:   "presence",
		},
		{
			name:   "配送方式为空",
			alias:  "myshop",
			mutate: func(m map[string]interface{}) { m["transports"] = []interface{}{} },
			field:  "transports",
			rule:   "presence",
		},
		{
			name:   "子市场列表不是数组",
			alias:  "myshop",
			mutate: func(m map[string]interface{}) { m["submarketAddrs"] = "nope" },
			field:  "submarketAddrs",
			rule:   "type",
		},
		{
			name:  "商品价格为零",
			alias: "myshop",
			mutate: func(m map[string]interface{}) {
				m["products"] = []interface{}{
					map[string]interface{}{"id": "1", "name": "Tea", "price": "0"},
				}
			},
			prefix: "Product",
			field:  "price",
			rule:   "numericality",
		},
		{
			name:  "商品不是对象",
			alias: "myshop",
			mutate: func(m map[string]interface{}) {
				m["products"] = []interface{}{"tea"}
			},
			prefix: "Product",
			rule:   "object",
		},
		{
			name:  "配送方式 id 为负数",
			alias: "myshop",
			mutate: func(m map[string]interface{}) {
				m["transports"] = []interface{}{
					map[string]interface{}{"id": "-1", "type": "Standard", "price": "5"},
				}
			},
			prefix: "Transport",
			field:  "id",
			rule:   "numericality",
		},
		{
			name:  "子市场地址上没有合约",
			alias: "myshop",
			mutate: func(m map[string]interface{}) {
				m["submarketAddrs"] = []interface{}{submarketAddr.Hex()}
			},
			prefix: "Submarket",
			field:  "addr",
			rule:   "addrOfContract",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEnv(t, nil)
			meta := shopMeta()
			if tt.mutate != nil {
				tt.mutate(meta)
			}
			err := env.svc.Check(context.Background(), tt.alias, meta)
			ve, ok := types.IsValidationError(err)
			require.True(t, ok, "expected ValidationError, got %v", err)
			assert.Equal(t, tt.prefix, ve.Prefix)
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, tt.rule, ve.Rule)
		})
	}
}

// TestCheck_Valid 测试合法输入，且不修改调用方的数据
func TestCheck_Valid(t *testing.T) {
	env := newEnv(t, nil)
	env.chain.SetCode(submarketAddr, testutil.SubmarketCode)

	meta := shopMeta()
	meta["submarketAddrs"] = []interface{}{submarketAddr.Hex()}
	meta["products"] = []interface{}{
		map[string]interface{}{"id": "1", "name": "Tea", "price": "2.5", "imageUrl": "https://example.com/tea.png"},
	}
	meta["extra"] = "kept"

	require.NoError(t, env.svc.Check(context.Background(), "myshop", meta))
	assert.Equal(t, "kept", meta["extra"])
	assert.Empty(t, env.chain.Sent())
}

// ==================== 刷新 ====================

// TestUpdate_RebuildsChildren 测试刷新重建子集合，购物车数量归零
func TestUpdate_RebuildsChildren(t *testing.T) {
	env := newEnv(t, nil)
	env.putShop(t, &wireMeta{
		Name:       "Tea House",
		Info:       "green and black",
		Products:   []wireProduct{{ID: "1", Name: "Sencha", Price: "2.5"}, {ID: "x", Name: "Broken", Price: "1"}},
		Transports: []wireTransport{{ID: "0", Type: "Post", Price: "0.1"}},
	})
	ctx := context.Background()

	st := env.svc.At(ctx, shopAddr)
	first, err := st.Ready(ctx)
	require.NoError(t, err)
	require.Len(t, first.Products, 1, "非法商品被忽略")
	assert.Equal(t, uint64(1), first.Products[0].ID)
	assert.Equal(t, "2.5000 ETH", first.Products[0].Price.String())
	first.Products[0].Quantity = 3

	second, err := st.Update(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, 0, second.Products[0].Quantity)
	assert.Equal(t, "Tea House", second.Name)
	assert.Equal(t, "Post (0.1000)", second.Transports[0].Label)
	assert.Same(t, second, st.Snapshot())
}

// TestUpdate_Idempotent 测试链上状态不变时连续两次刷新得到相同快照
func TestUpdate_Idempotent(t *testing.T) {
	env := newEnv(t, nil)
	env.chain.SetCode(submarketAddr, testutil.SubmarketCode)
	env.putShop(t, &wireMeta{
		Name:           "Tea House",
		Info:           "green and black",
		Products:       []wireProduct{{ID: "1", Name: "Sencha", Price: "2.5", ImageURL: "https://example.com/s.png"}, {ID: "2", Name: "Assam", Price: "3"}},
		Transports:     []wireTransport{{ID: "0", Type: "Post", Price: "0.1"}, {ID: "1", Type: "Courier", Price: "1"}},
		SubmarketAddrs: []string{submarketAddr.Hex()},
	})
	ctx := context.Background()

	st := env.svc.At(ctx, shopAddr)
	first, err := st.Ready(ctx)
	require.NoError(t, err)
	first.Products[0].Quantity = 3

	second, err := st.Update(ctx)
	require.NoError(t, err)
	require.NotSame(t, first, second)

	want := *first
	want.Products = append([]Product(nil), first.Products...)
	want.Products[0].Quantity = 0
	want.UpdatedAt = second.UpdatedAt
	assert.Equal(t, want, *second)
}

// TestUpdate_ConcurrentCallersShareRefresh 测试并发调用方等待同一次刷新
func TestUpdate_ConcurrentCallersShareRefresh(t *testing.T) {
	env := newEnv(t, nil)
	env.putShop(t, &wireMeta{Name: "Shop"})
	ctx := context.Background()

	// 先测出一次刷新需要的只读调用数
	before := env.chain.Calls()
	_, err := env.svc.At(ctx, shopAddr).Ready(ctx)
	require.NoError(t, err)
	perRefresh := env.chain.Calls() - before
	require.Positive(t, perRefresh)

	release := env.chain.HoldCalls()
	defer release()
	before = env.chain.Calls()
	st := env.svc.At(ctx, shopAddr)
	require.Eventually(t, func() bool { return env.chain.HeldCalls() > 0 }, time.Second, time.Millisecond)

	const callers = 8
	var (
		wg      sync.WaitGroup
		started sync.WaitGroup
		views   = make([]*View, callers)
		errs    = make([]error, callers)
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		started.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			if i%2 == 0 {
				views[i], errs[i] = st.Ready(ctx)
			} else {
				views[i], errs[i] = st.Update(ctx)
			}
		}(i)
	}
	started.Wait()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, StateUpdating, st.State())
	release()
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, views[0], views[i])
	}
	assert.Same(t, views[0], st.Snapshot())
	assert.Equal(t, perRefresh, env.chain.Calls()-before)
}

// TestUpdate_MalformedMetaTreatedAsEmpty 测试元数据无法解码
func TestUpdate_MalformedMetaTreatedAsEmpty(t *testing.T) {
	env := newEnv(t, nil)
	env.chain.PutStore(shopAddr, map[string]interface{}{
		contract.StoreIsOpen: true,
		contract.StoreMeta:   []byte{0xff, 0x00, 0x13},
	})

	st := env.svc.At(context.Background(), shopAddr)
	view, err := st.Ready(context.Background())
	require.NoError(t, err)
	assert.True(t, view.IsOpen)
	assert.Empty(t, view.Name)
	assert.Empty(t, view.Products)
	assert.Empty(t, view.Transports)
}

// TestUpdate_NotAStore 测试地址上不是店铺合约
func TestUpdate_NotAStore(t *testing.T) {
	env := newEnv(t, nil)
	env.chain.SetCode(shopAddr, testutil.SubmarketCode)

	st := env.svc.At(context.Background(), shopAddr)
	_, err := st.Ready(context.Background())
	_, ok := types.IsNotFound(err)
	assert.True(t, ok, "expected NotFound, got %v", err)
	assert.Equal(t, StateUninitialized, st.State())
	assert.Nil(t, st.Snapshot())
}

// TestUpdate_FailureKeepsPreviousView 测试刷新失败时保留上一次的快照
func TestUpdate_FailureKeepsPreviousView(t *testing.T) {
	env := newEnv(t, nil)
	env.putShop(t, &wireMeta{Name: "Shop"})
	ctx := context.Background()

	st := env.svc.At(ctx, shopAddr)
	before, err := st.Ready(ctx)
	require.NoError(t, err)

	env.chain.SetCallError(errors.New("connection refused"))
	_, err = st.Update(ctx)
	_, isIO := types.IsIOError(err)
	assert.True(t, isIO, "expected IOError, got %v", err)
	assert.Equal(t, StateReady, st.State())
	assert.Same(t, before, st.Snapshot())
}

// TestLabel_DisplayCurrency 测试配送方式标签按展示币种格式化
func TestLabel_DisplayCurrency(t *testing.T) {
	tests := []struct {
		display string
		want    string
	}{
		{display: "USD", want: "Standard (10000.00)"},
		{display: "XYZ", want: "Standard (5.0000)"}, // 换算失败退回店铺币种
		{display: "", want: "Standard (5.0000)"},
	}
	for _, tt := range tests {
		t.Run(tt.display, func(t *testing.T) {
			env := newEnv(t, func(c *Config) { c.DisplayCurrency = tt.display })
			env.putShop(t, &wireMeta{Name: "Shop", Transports: []wireTransport{{ID: "0", Type: "Standard", Price: "5"}}})
			view, err := env.svc.At(context.Background(), shopAddr).Ready(context.Background())
			require.NoError(t, err)
			require.Len(t, view.Transports, 1)
			assert.Equal(t, tt.want, view.Transports[0].Label)
		})
	}
}

// TestOpen 测试按引用打开店铺
func TestOpen(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()

	_, err := env.svc.Open(ctx, "not an alias!")
	_, ok := types.IsValidationError(err)
	assert.True(t, ok)

	_, err = env.svc.Open(ctx, "ghost")
	assert.ErrorIs(t, err, types.ErrAliasUnclaimed)

	st, err := env.svc.Open(ctx, shopAddr.Hex())
	require.NoError(t, err)
	assert.Equal(t, shopAddr, st.Address())
}

// ==================== 更新 ====================

// TestSet_BatchesFieldsAndMeta 测试字段与元数据合并为一笔交易
func TestSet_BatchesFieldsAndMeta(t *testing.T) {
	env := newEnv(t, nil)
	env.putShop(t, &wireMeta{Name: "Shop"})
	ctx := context.Background()
	st := env.svc.At(ctx, shopAddr)
	_, err := st.Ready(ctx)
	require.NoError(t, err)

	open := true
	usd := "USD"
	meta := shopMeta()
	meta["name"] = "Renamed"
	p, err := st.Set(ctx, FieldUpdate{IsOpen: &open, Currency: &usd}, meta)
	require.NoError(t, err)
	assert.Equal(t, "Update Store", p.Description)
	_, err = p.Wait(ctx)
	require.NoError(t, err)

	sent := env.chain.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, testutil.BatcherAddr, *sent[0].To)
	calls, err := contract.UnpackBatch(sent[0].Data)
	require.NoError(t, err)
	assert.Len(t, calls, 3)

	// 不自动刷新
	assert.False(t, st.Snapshot().IsOpen)

	view, err := st.Update(ctx)
	require.NoError(t, err)
	assert.True(t, view.IsOpen)
	assert.Equal(t, "USD", view.Currency)
	assert.Equal(t, "Renamed", view.Name)
}

// TestSet_SingleFieldGoesDirect 测试单个字段直接发送到店铺合约
func TestSet_SingleFieldGoesDirect(t *testing.T) {
	env := newEnv(t, nil)
	env.putShop(t, &wireMeta{Name: "Shop"})
	ctx := context.Background()
	st := env.svc.At(ctx, shopAddr)
	_, err := st.Ready(ctx)
	require.NoError(t, err)

	minTotal := "0.5"
	p, err := st.Set(ctx, FieldUpdate{MinTotal: &minTotal}, nil)
	require.NoError(t, err)
	_, err = p.Wait(ctx)
	require.NoError(t, err)

	sent := env.chain.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, shopAddr, *sent[0].To)
	assert.Equal(t, testutil.DefaultSender, sent[0].From)
	assert.Equal(t, (21000+16*uint64(len(sent[0].Data)))*DefaultGasMultiplier, sent[0].Gas)

	view, err := st.Update(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0.5000 ETH", view.MinTotal.String())
}

// TestSet_Invalid 测试非法更新不提交交易
func TestSet_Invalid(t *testing.T) {
	env := newEnv(t, nil)
	env.putShop(t, &wireMeta{Name: "Shop"})
	ctx := context.Background()
	st := env.svc.At(ctx, shopAddr)

	_, err := st.Set(ctx, FieldUpdate{}, nil)
	_, ok := types.IsValidationError(err)
	assert.True(t, ok)

	fee := uint64(101)
	_, err = st.Set(ctx, FieldUpdate{AffiliateFeeCentiperun: &fee}, nil)
	ve, ok := types.IsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "affiliateFeeCentiperun", ve.Field)

	meta := shopMeta()
	delete(meta, "transports")
	_, err = st.Set(ctx, FieldUpdate{}, meta)
	ve, ok = types.IsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "transports", ve.Field)

	assert.Empty(t, env.chain.Sent())
}

// ==================== 成本估算 ====================

// TestEstimateCreationCost 测试部署 + 认领别名的估算
func TestEstimateCreationCost(t *testing.T) {
	env := newEnv(t, nil)
	cost, err := env.svc.EstimateCreationCost(context.Background(), "myshop", shopMeta())
	require.NoError(t, err)

	// claimAlias(bytes32)：4 字节选择器 + 32 字节参数
	assert.Equal(t, uint64(21000+16*36), cost.ClaimGas)
	assert.Greater(t, cost.DeployGas, uint64(21000+32000))
	assert.Equal(t, cost.DeployGas+cost.ClaimGas, cost.Total())
	assert.Empty(t, env.chain.Sent())

	noCode := newEnv(t, func(c *Config) { c.StoreBytecode = nil })
	_, err = noCode.svc.EstimateCreationCost(context.Background(), "myshop", shopMeta())
	assert.ErrorIs(t, err, ErrBytecodeNotConfigured)
}

// ==================== 值类型 ====================

// TestNewProductAndTransport 测试值类型构造
func TestNewProductAndTransport(t *testing.T) {
	p, err := NewProduct("7", "Tea", "2.5", "", "", "USD")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), p.ID)
	assert.Equal(t, "2.50 USD", p.Price.String())
	assert.Zero(t, p.Quantity)

	_, err = NewProduct("-1", "Tea", "2.5", "", "", "USD")
	assert.Error(t, err)
	_, err = NewTransport("1", "Post", "-3", "USD")
	assert.Error(t, err)
}

// TestScaleMinTotal 测试 minTotal 的 10^12 缩放
func TestScaleMinTotal(t *testing.T) {
	v, err := scaleMinTotal("1.5")
	require.NoError(t, err)
	assert.Equal(t, "1500000000000", v.String())
	assert.Equal(t, 0, unscaleMinTotal(v).Cmp(big.NewRat(3, 2)))

	_, err = scaleMinTotal("0.0000000000001")
	_, ok := types.IsValidationError(err)
	assert.True(t, ok)
}

// TestDocument 测试展示形式
func TestDocument(t *testing.T) {
	env := newEnv(t, nil)
	env.putShop(t, &wireMeta{
		Name:           "Shop",
		Products:       []wireProduct{{ID: "1", Name: "Tea", Price: "2"}},
		Transports:     []wireTransport{{ID: "0", Type: "Post", Price: "1"}},
		SubmarketAddrs: []string{submarketAddr.Hex(), "garbage"},
	})
	view, err := env.svc.At(context.Background(), shopAddr).Ready(context.Background())
	require.NoError(t, err)

	doc := view.Document("shop")
	assert.Equal(t, shopAddr.Hex(), doc.Address)
	assert.Equal(t, "shop", doc.Alias)
	assert.Equal(t, "0.0000", doc.MinTotal)
	assert.Equal(t, []string{submarketAddr.Hex()}, doc.SubmarketAddrs)
	require.Len(t, doc.Products, 1)
	assert.Equal(t, "2.0000 ETH", doc.Products[0].Price)
	assert.Equal(t, "Post (1.0000)", doc.Transports[0].Label)
}
