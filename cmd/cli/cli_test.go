package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/marketclient/client/core/config"
	logconfig "github.com/weisyn/marketclient/internal/config/log"
	"github.com/weisyn/marketclient/internal/app"
	infralog "github.com/weisyn/marketclient/internal/core/infrastructure/log"
	"github.com/weisyn/marketclient/internal/core/testutil"
)

type cliEnv struct {
	t     *testing.T
	dir   string
	chain *testutil.FakeChain
}

// newCLIEnv 准备临时配置目录与内存账本
func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	chain := testutil.NewFakeChain()

	pm, err := config.NewProfileManager(dir)
	require.NoError(t, err)
	require.NoError(t, pm.SaveProfile(&config.Profile{
		Name:           "test",
		Endpoints:      []config.EndpointConfig{{Name: "local", Priority: 1, URL: "http://127.0.0.1:8545"}},
		From:           testutil.DefaultSender.Hex(),
		AliasRegistry:  testutil.AliasRegistryAddr.Hex(),
		StoreRegistry:  testutil.StoreRegistryAddr.Hex(),
		Batcher:        testutil.BatcherAddr.Hex(),
		ConfirmTimeout: config.Duration(2 * time.Second),
		PollInterval:   config.Duration(5 * time.Millisecond),
		StaticRates:    map[string]string{"ETH": "1", "USD": "2000"},
		Fingerprints:   testutil.FingerprintConfig(),
		StoreBytecode:  "0x6080604052",
		HTTPListen:     "127.0.0.1:0",
	}))
	require.NoError(t, pm.SwitchProfile("test"))

	orig := newApp
	newApp = func(opts ...app.Option) (app.App, error) {
		return app.New(append(opts, app.WithLedger(chain), app.WithLogger(infralog.NewNop()))...)
	}
	t.Cleanup(func() { newApp = orig })

	return &cliEnv{t: t, dir: dir, chain: chain}
}

// exec 执行一次命令，返回退出码与标准输出/错误
func (e *cliEnv) exec(args ...string) (int, string, string) {
	e.t.Helper()
	resetFlags(rootCmd)
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), append([]string{"--config-dir", e.dir}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// execJSON 执行命令并把成功输出解析为 JSON
func (e *cliEnv) execJSON(args ...string) map[string]interface{} {
	e.t.Helper()
	code, stdout, stderr := e.exec(args...)
	require.Equal(e.t, 0, code, "stderr: %s", stderr)
	var out map[string]interface{}
	require.NoError(e.t, json.Unmarshal([]byte(stdout), &out), stdout)
	return out
}

// writeMeta 写入元数据文件
func (e *cliEnv) writeMeta(meta map[string]interface{}) string {
	e.t.Helper()
	raw, err := json.Marshal(meta)
	require.NoError(e.t, err)
	path := filepath.Join(e.dir, "meta.json")
	require.NoError(e.t, os.WriteFile(path, raw, 0600))
	return path
}

// resetFlags 把所有命令的标志恢复为默认值（命令树是包级变量，多次执行之间共享）
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
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

// ==================== store ====================

// TestStore_CreateAndShow 测试创建店铺后按别名读取
func TestStore_CreateAndShow(t *testing.T) {
	env := newCLIEnv(t)
	meta := env.writeMeta(shopMeta())

	created := env.execJSON("store", "create", "--meta", meta, "--alias", "myshop",
		"--currency", "USD", "--open", "--min-total", "10", "--wait")
	assert.Equal(t, "myshop", created["alias"])
	assert.Equal(t, "USD", created["currency"])
	assert.Equal(t, true, created["is_open"])
	addr, _ := created["address"].(string)
	require.NotEmpty(t, addr)

	shown := env.execJSON("store", "show", "myshop")
	assert.Equal(t, addr, shown["address"])
	assert.Equal(t, "myshop", shown["alias"])
	assert.Equal(t, "Shop", shown["name"])
	transports, _ := shown["transports"].([]interface{})
	require.Len(t, transports, 1)
	assert.Equal(t, "Standard (0.0025)", transports[0].(map[string]interface{})["label"])

	byAddr := env.execJSON("store", "show", addr)
	assert.Equal(t, "myshop", byAddr["alias"])
}

// TestStore_CreateWithoutWait 测试不等待确认时输出交易记录
func TestStore_CreateWithoutWait(t *testing.T) {
	env := newCLIEnv(t)
	meta := env.writeMeta(shopMeta())

	out := env.execJSON("store", "create", "--meta", meta, "--alias", "quick")
	assert.NotEmpty(t, out["id"])
	assert.NotEqual(t, "0x0000000000000000000000000000000000000000000000000000000000000000", out["tx_hash"])
	assert.Len(t, env.chain.Sent(), 1)
}

// TestStore_Set 测试只提交被显式指定的字段
func TestStore_Set(t *testing.T) {
	env := newCLIEnv(t)
	meta := env.writeMeta(shopMeta())
	env.execJSON("store", "create", "--meta", meta, "--alias", "myshop", "--wait")

	out := env.execJSON("store", "set", "myshop", "--open", "--wait")
	assert.Equal(t, true, out["is_open"])
	assert.Equal(t, "ETH", out["currency"])
	assert.Len(t, env.chain.Sent(), 2)
}

// TestStore_CheckFailure 测试校验失败时的退出码与错误输出
func TestStore_CheckFailure(t *testing.T) {
	env := newCLIEnv(t)
	bad := shopMeta()
	bad["transports"] = []interface{}{
		map[string]interface{}{"id": "0", "type": "Standard", "price": "cheap"},
	}
	meta := env.writeMeta(bad)

	code, stdout, stderr := env.exec("store", "check", "--meta", meta, "--alias", "myshop")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Transport")

	var out struct {
		Error struct {
			Code    string            `json:"code"`
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &out), stdout)
	assert.Equal(t, "VALIDATION_FAILED", out.Error.Code)
	assert.Equal(t, "Transport", out.Error.Details["prefix"])
	assert.Equal(t, "price", out.Error.Details["field"])
	assert.Empty(t, env.chain.Sent())
}

// TestStore_CheckOK 测试校验通过
func TestStore_CheckOK(t *testing.T) {
	env := newCLIEnv(t)
	meta := env.writeMeta(shopMeta())

	out := env.execJSON("store", "check", "--meta", meta, "--alias", "myshop")
	assert.Equal(t, true, out["valid"])
}

// TestStore_Estimate 测试成本估算
func TestStore_Estimate(t *testing.T) {
	env := newCLIEnv(t)
	meta := env.writeMeta(shopMeta())

	out := env.execJSON("store", "estimate", "--meta", meta, "--alias", "myshop")
	assert.Greater(t, out["gas"].(float64), float64(0))
	assert.Equal(t, out["gas"], out["deploy_gas"].(float64)+out["claim_gas"].(float64))
}

// TestStore_MissingMeta 测试缺少元数据文件
func TestStore_MissingMeta(t *testing.T) {
	env := newCLIEnv(t)
	code, _, stderr := env.exec("store", "check", "--alias", "myshop")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "--meta")
}

// ==================== alias ====================

// TestAlias_Commands 测试别名解析、反查与分类
func TestAlias_Commands(t *testing.T) {
	env := newCLIEnv(t)
	meta := env.writeMeta(shopMeta())
	created := env.execJSON("store", "create", "--meta", meta, "--alias", "myshop", "--wait")
	addr := created["address"].(string)

	resolved := env.execJSON("alias", "resolve", "myshop")
	assert.Equal(t, addr, resolved["address"])

	reversed := env.execJSON("alias", "reverse", addr)
	assert.Equal(t, "myshop", reversed["alias"])

	kind := env.execJSON("alias", "classify", "myshop")
	assert.Equal(t, "store", kind["kind"])

	valid := env.execJSON("alias", "validate", "myshop", "submarket")
	assert.Equal(t, false, valid["valid"])

	taken := env.execJSON("alias", "available", "myshop")
	assert.Equal(t, false, taken["available"])
	free := env.execJSON("alias", "available", "free")
	assert.Equal(t, true, free["available"])
}

// TestAlias_ReverseInvalidAddress 测试非法地址
func TestAlias_ReverseInvalidAddress(t *testing.T) {
	env := newCLIEnv(t)
	code, stdout, _ := env.exec("alias", "reverse", "nope")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "VALIDATION_FAILED")
}

// ==================== profile ====================

// TestProfile_Commands 测试 profile 管理
func TestProfile_Commands(t *testing.T) {
	env := newCLIEnv(t)

	code, stdout, stderr := env.exec("profile", "list")
	require.Equal(t, 0, code, stderr)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(stdout), &list))
	names := make([]string, 0, len(list))
	for _, p := range list {
		names = append(names, p["name"].(string))
		if p["name"] == "test" {
			assert.Equal(t, true, p["current"])
		}
	}
	assert.Contains(t, names, "test")
	assert.Contains(t, names, "local")

	current := env.execJSON("profile", "current")
	assert.Equal(t, "test", current["name"])
	assert.Equal(t, "http://127.0.0.1:8545", current["endpoint"])

	created := env.execJSON("profile", "create", "dev",
		"--url", "http://10.0.0.1:8545",
		"--from", testutil.DefaultSender.Hex(),
		"--alias-registry", testutil.AliasRegistryAddr.Hex(),
		"--store-registry", testutil.StoreRegistryAddr.Hex())
	assert.Equal(t, "dev", created["name"])
	assert.Equal(t, false, created["current"])

	code, _, stderr = env.exec("profile", "create", "dev")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "已存在")

	switched := env.execJSON("profile", "switch", "dev")
	assert.Equal(t, true, switched["current"])

	code, _, stderr = env.exec("profile", "delete", "dev", "--yes")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "当前正在使用")

	env.execJSON("profile", "switch", "test")
	code, _, stderr = env.exec("profile", "delete", "dev", "--yes")
	require.Equal(t, 0, code, stderr)
	_, err := os.Stat(filepath.Join(env.dir, "profiles", "dev.json"))
	assert.True(t, os.IsNotExist(err))
}

// TestProfile_CreateInvalid 测试创建非法 profile
func TestProfile_CreateInvalid(t *testing.T) {
	env := newCLIEnv(t)
	code, _, stderr := env.exec("profile", "create", "bad", "--from", "nope")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "is not a hex address")
}

// TestProfile_ExportImport 测试导出后导入
func TestProfile_ExportImport(t *testing.T) {
	env := newCLIEnv(t)
	file := filepath.Join(env.dir, "exported.json")
	env.execJSON("profile", "export", "test", file)

	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	var p config.Profile
	require.NoError(t, json.Unmarshal(raw, &p))
	p.Name = "copy"
	raw, err = json.Marshal(&p)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(file, raw, 0600))

	imported := env.execJSON("profile", "import", file)
	assert.Equal(t, "copy", imported["name"])

	code, _, _ := env.exec("profile", "import", file)
	assert.Equal(t, 1, code)
}

// ==================== 全局 ====================

// TestVersion 测试版本输出
func TestVersion(t *testing.T) {
	env := newCLIEnv(t)
	code, stdout, _ := env.exec("-o", "text", "version")
	require.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(stdout, "marketcli "))

	info := env.execJSON("version")
	assert.NotEmpty(t, info["version"])
}

// TestUnknownOutputFormat 测试非法输出格式
func TestUnknownOutputFormat(t *testing.T) {
	env := newCLIEnv(t)
	code, _, stderr := env.exec("-o", "xml", "version")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown output format")
}

// TestCLILogOptions 测试命令行日志级别
func TestCLILogOptions(t *testing.T) {
	assert.Equal(t, "warn", cliLogOptions(nil, "warn", false).Level)
	assert.Equal(t, "debug", cliLogOptions(nil, "warn", true).Level)
	assert.Equal(t, "error", cliLogOptions(&logconfig.LogOptions{Level: "error"}, "warn", false).Level)
	assert.Equal(t, "info", cliLogOptions(&logconfig.LogOptions{}, "info", false).Level)
}
