package app

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/fx"

	"github.com/weisyn/marketclient/client/core/config"
	"github.com/weisyn/marketclient/client/core/transport"
	httpapi "github.com/weisyn/marketclient/internal/api/http"
	logconfig "github.com/weisyn/marketclient/internal/config/log"
	"github.com/weisyn/marketclient/internal/core/alias"
	"github.com/weisyn/marketclient/internal/core/contract"
	"github.com/weisyn/marketclient/internal/core/currency"
	"github.com/weisyn/marketclient/internal/core/infrastructure/cache"
	"github.com/weisyn/marketclient/internal/core/store"
	"github.com/weisyn/marketclient/internal/core/txmonitor"
	"github.com/weisyn/marketclient/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/marketclient/pkg/interfaces/ledger"
	"github.com/weisyn/marketclient/pkg/types"
)

// ==================== 配置派生 ====================

// ProvideLogOptions profile 中的日志配置（可为 nil）
func ProvideLogOptions(p *config.Profile) *logconfig.LogOptions {
	return p.Log
}

// ProvideMonitorOptions 交易确认轮询参数
func ProvideMonitorOptions(p *config.Profile) *txmonitor.Options {
	return &txmonitor.Options{
		Timeout:      p.ConfirmTimeout.Std(),
		PollInterval: p.PollInterval.Std(),
	}
}

// ProvideStoreConfig 店铺服务配置
func ProvideStoreConfig(p *config.Profile) (store.Config, error) {
	cfg := store.Config{
		From:            common.HexToAddress(p.From),
		StoreRegistry:   common.HexToAddress(p.StoreRegistry),
		GasMultiplier:   p.GasMultiplier,
		DisplayCurrency: p.DisplayCurrency,
		RefreshTimeout:  p.RefreshTimeout.Std(),
	}
	if p.StoreBytecode != "" {
		code, err := hexutil.Decode(p.StoreBytecode)
		if err != nil {
			return store.Config{}, fmt.Errorf("store_bytecode: %w", err)
		}
		cfg.StoreBytecode = code
	}
	return cfg, nil
}

// ProvideHTTPConfig HTTP 网关配置
func ProvideHTTPConfig(p *config.Profile) *httpapi.Config {
	return &httpapi.Config{Listen: p.HTTPListen}
}

// ==================== 账本 ====================

// ProvideEthLedger 按 profile 端点拨号，停止时关闭连接
func ProvideEthLedger(lc fx.Lifecycle, p *config.Profile, logger log.Logger) (*transport.EthLedger, error) {
	cc := transport.ClientConfig{Timeout: p.Timeout.Std()}
	for _, ep := range p.SortedEndpoints() {
		cc.Endpoints = append(cc.Endpoints, transport.EndpointConfig{
			Name:     ep.Name,
			Priority: ep.Priority,
			URL:      ep.URL,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.Timeout.Std())
	defer cancel()
	l, err := transport.Dial(ctx, cc, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			l.Close()
			return nil
		},
	})
	return l, nil
}

// ==================== 合约访问 ====================

// ProvideCodeCache 字节码缓存，包在账本读取之外
func ProvideCodeCache(lc fx.Lifecycle, l ledger.Ledger, p *config.Profile, logger log.Logger) (*cache.CodeCache, error) {
	opts := cache.DefaultOptions()
	opts.LifeWindow = p.CodeCacheTTL.Std()
	c, err := cache.New(l, opts, logger.With("module", "cache"))
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return c.Close() },
	})
	return c, nil
}

// ProvideGuard 基于指纹的合约种类校验
func ProvideGuard(codes *cache.CodeCache, p *config.Profile) (*contract.Guard, error) {
	fp, err := types.ParseFingerprints(p.Fingerprints)
	if err != nil {
		return nil, err
	}
	return contract.NewGuard(codes, fp), nil
}

// ProvideAliasRegistry 别名注册表客户端
func ProvideAliasRegistry(l ledger.Ledger, guard *contract.Guard, p *config.Profile, logger log.Logger) *alias.Registry {
	return alias.New(l, common.HexToAddress(p.AliasRegistry), guard, logger.With("module", "alias"))
}

// ProvideBatcher 批量写入器
func ProvideBatcher(p *config.Profile, logger log.Logger) contract.Batcher {
	if p.Batcher == "" {
		logger.Warn("未配置批量合约，多字段更新将无法合并提交")
	}
	return contract.NewContractBatcher(common.HexToAddress(p.Batcher))
}

// ==================== 币种 ====================

// ProvideConverter 汇率转换器；配置了 redis_addr 时从 Redis 读取汇率
func ProvideConverter(lc fx.Lifecycle, p *config.Profile, logger log.Logger) (*currency.Converter, error) {
	if p.RedisAddr == "" {
		rates, err := currency.ParseStaticRates(p.StaticRates)
		if err != nil {
			return nil, fmt.Errorf("static_rates: %w", err)
		}
		return currency.NewConverter(rates), nil
	}

	source, client, err := currency.NewRedisRates(p.RedisAddr, p.RatesKey)
	if err != nil {
		return nil, err
	}
	logger.Infof("使用 Redis 汇率来源: %s key=%s", p.RedisAddr, p.RatesKey)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return client.Close() },
	})
	return currency.NewConverter(source), nil
}
