package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"
)

// DefaultStopTimeout 停止应用的超时时间
const DefaultStopTimeout = 15 * time.Second

// App 装配完成的市场客户端
type App interface {
	// Services 返回装配好的服务
	Services() Services

	// Start 启动生命周期钩子
	Start(ctx context.Context) error

	// Stop 停止应用
	Stop(ctx context.Context) error
}

// internalApp 应用的内部实现
type internalApp struct {
	fxApp     *fx.App
	bootstrap *Bootstrap
}

// New 装配应用但不启动
//
// 构造阶段即完成账本拨号与 profile 校验，任何失败都在这里返回。
func New(opts ...Option) (App, error) {
	b := NewBootstrap(newOptions(opts...))
	fxApp, err := b.CreateFxApp()
	if err != nil {
		return nil, err
	}
	return &internalApp{fxApp: fxApp, bootstrap: b}, nil
}

// Services 返回装配好的服务
func (a *internalApp) Services() Services {
	return a.bootstrap.services
}

// Start 启动应用
func (a *internalApp) Start(ctx context.Context) error {
	return startApp(ctx, a.fxApp)
}

// Stop 停止应用
func (a *internalApp) Stop(ctx context.Context) error {
	if err := a.fxApp.Stop(ctx); err != nil {
		return fmt.Errorf("停止应用失败: %w", err)
	}
	return nil
}
