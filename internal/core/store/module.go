package store

import (
	"go.uber.org/fx"

	"github.com/weisyn/marketclient/internal/core/alias"
	"github.com/weisyn/marketclient/internal/core/contract"
	"github.com/weisyn/marketclient/internal/core/currency"
	"github.com/weisyn/marketclient/internal/core/txmonitor"
	"github.com/weisyn/marketclient/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/marketclient/pkg/interfaces/ledger"
)

// ModuleParams 店铺模块的依赖
type ModuleParams struct {
	fx.In

	Config    Config
	Ledger    ledger.Ledger
	Monitor   *txmonitor.Monitor
	Aliases   *alias.Registry
	Guard     *contract.Guard
	Batcher   contract.Batcher
	Converter *currency.Converter `optional:"true"`
	Logger    log.Logger          `optional:"true"`
}

// Module 返回店铺模块
func Module() fx.Option {
	return fx.Module("store",
		fx.Provide(ProvideService),
	)
}

// ProvideService 根据依赖创建店铺服务
func ProvideService(params ModuleParams) *Service {
	var logger log.Logger
	if params.Logger != nil {
		logger = params.Logger.With("module", "store")
	}
	return NewService(params.Config, Deps{
		Ledger:    params.Ledger,
		Monitor:   params.Monitor,
		Aliases:   params.Aliases,
		Guard:     params.Guard,
		Batcher:   params.Batcher,
		Converter: params.Converter,
		Logger:    logger,
	})
}
