package http

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/weisyn/marketclient/internal/api/http/handlers"
	"github.com/weisyn/marketclient/internal/core/alias"
	"github.com/weisyn/marketclient/internal/core/store"
	"github.com/weisyn/marketclient/internal/core/txmonitor"
	"github.com/weisyn/marketclient/pkg/interfaces/infrastructure/log"
)

// ModuleParams HTTP 模块依赖
type ModuleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Config     *Config `optional:"true"`
	Stores     *store.Service
	Aliases    *alias.Registry
	Monitor    *txmonitor.Monitor
	Ledger     handlers.Pinger       `optional:"true"`
	Registerer prometheus.Registerer `optional:"true"`
	Gatherer   prometheus.Gatherer   `optional:"true"`
	Logger     log.Logger            `optional:"true"`
}

// Module 返回HTTP网关模块；服务器随 fx 生命周期启停
func Module() fx.Option {
	return fx.Module("http",
		fx.Provide(ProvideServer),
		fx.Invoke(func(*Server) {}),
	)
}

// ProvideServer 创建服务器并挂载生命周期钩子
func ProvideServer(params ModuleParams) *Server {
	gin.SetMode(gin.ReleaseMode)

	var config Config
	if params.Config != nil {
		config = *params.Config
	}
	var logger log.Logger
	if params.Logger != nil {
		logger = params.Logger.With("module", "http")
	}

	server := NewServer(config, Deps{
		Stores:     params.Stores,
		Aliases:    params.Aliases,
		Monitor:    params.Monitor,
		Ledger:     params.Ledger,
		Registerer: params.Registerer,
		Gatherer:   params.Gatherer,
		Logger:     logger,
	})

	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error { return server.Start() },
		OnStop:  func(ctx context.Context) error { return server.Stop(ctx) },
	})
	return server
}
