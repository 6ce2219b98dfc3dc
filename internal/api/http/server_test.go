package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/marketclient/internal/core/alias"
	"github.com/weisyn/marketclient/internal/core/contract"
	"github.com/weisyn/marketclient/internal/core/infrastructure/metrics"
	"github.com/weisyn/marketclient/internal/core/store"
	"github.com/weisyn/marketclient/internal/core/testutil"
	"github.com/weisyn/marketclient/internal/core/txmonitor"
	"github.com/weisyn/marketclient/pkg/types"
)

var shopAddr = common.HexToAddress("0x5000000000000000000000000000000000000005")

type envelope struct {
	Data      json.RawMessage `json:"data"`
	RequestID string          `json:"requestId"`
	Error     *struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
}

type testServer struct {
	chain  *testutil.FakeChain
	server *Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	chain := testutil.NewFakeChain()
	guard := contract.NewGuard(chain, testutil.Fingerprints())
	monitor := txmonitor.New(chain, nil, txmonitor.WithOptions(txmonitor.Options{
		Timeout:      2 * time.Second,
		PollInterval: 5 * time.Millisecond,
	}))
	registry := alias.New(chain, testutil.AliasRegistryAddr, guard, nil)
	stores := store.NewService(store.Config{
		From:           testutil.DefaultSender,
		StoreRegistry:  testutil.StoreRegistryAddr,
		StoreBytecode:  []byte{0x60, 0x80, 0x60, 0x40, 0x52},
		RefreshTimeout: time.Second,
	}, store.Deps{
		Ledger:  chain,
		Monitor: monitor,
		Aliases: registry,
		Guard:   guard,
		Batcher: contract.NewContractBatcher(testutil.BatcherAddr),
	})

	reg := metrics.NewRegistry()
	server := NewServer(Config{Listen: "127.0.0.1:0"}, Deps{
		Stores:     stores,
		Aliases:    registry,
		Monitor:    monitor,
		Registerer: reg,
		Gatherer:   reg,
	})
	return &testServer{chain: chain, server: server}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.server.Handler().ServeHTTP(w, req)

	// /metrics 等非 JSON 响应解码失败时返回零值
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func validMeta() map[string]interface{} {
	return map[string]interface{}{
		"name":           "Shop",
		"products":       []interface{}{},
		"submarketAddrs": []interface{}{},
		"transports": []interface{}{
			map[string]interface{}{"id": "0", "type": "Standard", "price": "5"},
		},
	}
}

// ==================== 店铺 ====================

// TestShowStore 测试按地址与别名读取快照
func TestShowStore(t *testing.T) {
	s := newTestServer(t)
	s.chain.PutStore(shopAddr, map[string]interface{}{contract.StoreIsOpen: true})
	s.chain.ClaimAlias("myshop", shopAddr)

	for _, ref := range []string{shopAddr.Hex(), "myshop"} {
		w, env := s.do(t, http.MethodGet, "/api/v1/stores/"+ref, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.NotEmpty(t, env.RequestID)
		assert.Equal(t, env.RequestID, w.Header().Get("X-Request-ID"))

		var doc store.Document
		require.NoError(t, json.Unmarshal(env.Data, &doc))
		assert.Equal(t, shopAddr.Hex(), doc.Address)
		assert.Equal(t, "myshop", doc.Alias)
		assert.True(t, doc.IsOpen)
		assert.NotNil(t, doc.Products)
	}
}

// TestShowStore_Errors 测试错误到状态码的映射
func TestShowStore_Errors(t *testing.T) {
	s := newTestServer(t)
	s.chain.SetCode(shopAddr, testutil.SubmarketCode)

	tests := []struct {
		name   string
		ref    string
		status int
		code   string
	}{
		{"不是店铺合约", shopAddr.Hex(), http.StatusNotFound, types.CodeNotFound},
		{"没有合约", common.HexToAddress("0x01").Hex(), http.StatusNotFound, types.CodeNotFound},
		{"别名未认领", "nobody", http.StatusNotFound, types.CodeNotFound},
		{"既不是地址也不是别名", "Not-A-Ref", http.StatusUnprocessableEntity, types.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := s.do(t, http.MethodGet, "/api/v1/stores/"+tt.ref, nil)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
			assert.NotEmpty(t, env.Error.Message)
		})
	}
}

// TestCheck 测试静态校验
func TestCheck(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodPost, "/api/v1/stores/check", map[string]interface{}{
		"alias": "newshop",
		"meta":  validMeta(),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"valid":true}`, string(env.Data))

	meta := validMeta()
	meta["transports"] = []interface{}{map[string]interface{}{"id": "0", "type": "Standard", "price": "cheap"}}
	w, env = s.do(t, http.MethodPost, "/api/v1/stores/check", map[string]interface{}{
		"alias": "newshop",
		"meta":  meta,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, types.CodeValidation, env.Error.Code)
	assert.Equal(t, "Transport", env.Error.Details["prefix"])
	assert.Equal(t, "price", env.Error.Details["field"])

	// 没有发出任何交易
	assert.Empty(t, s.chain.Sent())
}

// TestCheck_BadBody 测试请求体不是合法 JSON
func TestCheck_BadBody(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/stores/check", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestEstimate 测试创建成本估算
func TestEstimate(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodPost, "/api/v1/stores/estimate", map[string]interface{}{
		"alias": "myshop",
		"meta":  validMeta(),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out struct {
		Gas       uint64 `json:"gas"`
		DeployGas uint64 `json:"deployGas"`
		ClaimGas  uint64 `json:"claimGas"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, out.DeployGas+out.ClaimGas, out.Gas)
	assert.Positive(t, out.ClaimGas)
	assert.Empty(t, s.chain.Sent())
}

// ==================== 别名 / 交易 ====================

// TestAliasLookup 测试别名查询
func TestAliasLookup(t *testing.T) {
	s := newTestServer(t)
	s.chain.PutStore(shopAddr, nil)
	s.chain.ClaimAlias("myshop", shopAddr)

	w, env := s.do(t, http.MethodGet, "/api/v1/aliases/myshop", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"alias":"myshop","address":"`+shopAddr.Hex()+`","available":false,"kind":"store"}`, string(env.Data))

	w, env = s.do(t, http.MethodGet, "/api/v1/aliases/free", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"alias":"free","address":"`+(common.Address{}).Hex()+`","available":true}`, string(env.Data))
}

// TestPendingTransactions 测试待确认交易列表
func TestPendingTransactions(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(t, http.MethodGet, "/api/v1/transactions/pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(env.Data))
}

// ==================== 运维接口 ====================

// TestHealthAndMetrics 测试健康检查与指标暴露
func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)

	w, _ = s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `marketclient_api_requests_total{method="GET",path="/health",status="200"} 1`)
}

type downLedger struct{}

func (downLedger) Ping(context.Context) error { return assert.AnError }

// TestHealth_LedgerDown 测试账本节点不可达
func TestHealth_LedgerDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	server := NewServer(Config{}, Deps{Ledger: downLedger{}})
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"degraded"`)
}

// TestServer_StartStop 测试监听与优雅关闭
func TestServer_StartStop(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.server.Start())
	addr := s.server.Addr()
	require.NotEmpty(t, addr)

	resp, err := http.Get("http://" + addr + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.server.Stop(ctx))
}
