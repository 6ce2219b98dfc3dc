// Package app 把 profile 装配为可运行的市场客户端
//
// 分层与加载顺序：
// - 基础设施层：profile、日志、指标、事件
// - 账本层：JSON-RPC 连接（或外部注入的账本）
// - 业务层：字节码缓存、合约校验、别名、批量器、汇率、交易监控、店铺
// - 应用层：HTTP 网关（可选）
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/fx"

	"github.com/weisyn/marketclient/client/core/config"
	"github.com/weisyn/marketclient/client/core/transport"
	httpapi "github.com/weisyn/marketclient/internal/api/http"
	"github.com/weisyn/marketclient/internal/api/http/handlers"
	"github.com/weisyn/marketclient/internal/core/alias"
	"github.com/weisyn/marketclient/internal/core/infrastructure/event"
	infralog "github.com/weisyn/marketclient/internal/core/infrastructure/log"
	"github.com/weisyn/marketclient/internal/core/infrastructure/metrics"
	"github.com/weisyn/marketclient/internal/core/store"
	"github.com/weisyn/marketclient/internal/core/txmonitor"
	"github.com/weisyn/marketclient/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/marketclient/pkg/interfaces/ledger"
)

// ErrNoProfile 没有提供 profile
var ErrNoProfile = errors.New("profile is required")

// Services 装配完成后供 CLI 使用的服务
type Services struct {
	fx.In

	Profile *config.Profile
	Stores  *store.Service
	Aliases *alias.Registry
	Monitor *txmonitor.Monitor
	Ledger  ledger.Ledger
	Logger  log.Logger
	Server  *httpapi.Server `optional:"true"`
}

// Bootstrap 应用引导程序
type Bootstrap struct {
	opts     *options
	services Services
}

// NewBootstrap 创建引导程序
func NewBootstrap(opts *options) *Bootstrap {
	return &Bootstrap{opts: opts}
}

// SetupInfrastructureLayer 设置基础设施层模块
func (b *Bootstrap) SetupInfrastructureLayer() []fx.Option {
	profile := b.opts.profile
	modules := []fx.Option{
		fx.Provide(func() (*config.Profile, error) {
			profile.ApplyDefaults()
			if err := profile.Validate(); err != nil {
				return nil, fmt.Errorf("profile %s: %w", profile.Name, err)
			}
			return profile, nil
		}),
		fx.Provide(ProvideLogOptions),
		metrics.Module(),
		event.Module(),
	}

	if b.opts.logger != nil {
		logger := b.opts.logger
		modules = append(modules, fx.Provide(func() log.Logger { return logger }))
	} else {
		modules = append(modules, infralog.Module())
	}
	return modules
}

// SetupLedgerLayer 设置账本连接
func (b *Bootstrap) SetupLedgerLayer() []fx.Option {
	modules := []fx.Option{
		fx.Provide(func(l ledger.Ledger) ledger.ReceiptSource { return l }),
	}

	if b.opts.ledger != nil {
		injected := b.opts.ledger
		return append(modules, fx.Provide(func() ledger.Ledger { return injected }))
	}

	return append(modules,
		fx.Provide(
			ProvideEthLedger,
			func(l *transport.EthLedger) ledger.Ledger { return l },
			func(l *transport.EthLedger) handlers.Pinger { return l },
		),
	)
}

// SetupBusinessLayer 设置业务逻辑层模块
//
// 依赖顺序：字节码缓存 -> 合约校验 -> 别名 -> 交易监控 -> 店铺
func (b *Bootstrap) SetupBusinessLayer() []fx.Option {
	return []fx.Option{
		fx.Provide(
			ProvideCodeCache,
			ProvideGuard,
			ProvideAliasRegistry,
			ProvideBatcher,
			ProvideConverter,
			ProvideMonitorOptions,
			ProvideStoreConfig,
		),
		txmonitor.Module(),
		store.Module(),
	}
}

// SetupApplicationLayer 设置应用层模块
func (b *Bootstrap) SetupApplicationLayer() []fx.Option {
	if !b.opts.enableAPI {
		return nil
	}
	return []fx.Option{
		fx.Provide(ProvideHTTPConfig),
		httpapi.Module(),
	}
}

// SetupModules 设置所有应用模块
func (b *Bootstrap) SetupModules() ([]fx.Option, error) {
	if b.opts.profile == nil {
		return nil, ErrNoProfile
	}

	var all []fx.Option
	all = append(all, b.SetupInfrastructureLayer()...)
	all = append(all, b.SetupLedgerLayer()...)
	all = append(all, b.SetupBusinessLayer()...)
	all = append(all, b.SetupApplicationLayer()...)
	all = append(all, b.opts.extra...)
	return all, nil
}

// CreateFxApp 创建fx应用并取出服务
func (b *Bootstrap) CreateFxApp() (*fx.App, error) {
	modules, err := b.SetupModules()
	if err != nil {
		return nil, err
	}

	fxApp := fx.New(
		fx.Options(modules...),
		fx.NopLogger,
		fx.Invoke(func(s Services) { b.services = s }),
	)
	if err := fxApp.Err(); err != nil {
		return nil, fmt.Errorf("装配应用失败: %w", err)
	}
	return fxApp, nil
}

// Validate 只检查依赖图是否完整，不调用任何构造函数
func Validate(opts ...Option) error {
	b := NewBootstrap(newOptions(opts...))
	modules, err := b.SetupModules()
	if err != nil {
		return err
	}
	return fx.ValidateApp(
		fx.Options(modules...),
		fx.NopLogger,
		fx.Invoke(func(Services) {}),
	)
}

// startApp 启动生命周期钩子（HTTP 网关在此开始监听）
func startApp(ctx context.Context, fxApp *fx.App) error {
	if err := fxApp.Start(ctx); err != nil {
		return fmt.Errorf("启动应用失败: %w", err)
	}
	return nil
}
