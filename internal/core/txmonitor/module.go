package txmonitor

import (
	"go.uber.org/fx"

	"github.com/weisyn/marketclient/internal/core/infrastructure/metrics"
	"github.com/weisyn/marketclient/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/marketclient/pkg/interfaces/ledger"
)

// ModuleParams 交易监控模块的依赖
type ModuleParams struct {
	fx.In

	Receipts ledger.ReceiptSource
	Options  *Options           `optional:"true"`
	Sink     Sink               `optional:"true"`
	Metrics  *metrics.TxMetrics `optional:"true"`
	Logger   log.Logger         `optional:"true"`
}

// Module 返回交易监控模块
func Module() fx.Option {
	return fx.Module("txmonitor",
		fx.Provide(ProvideMonitor),
	)
}

// ProvideMonitor 根据依赖创建监控器
func ProvideMonitor(params ModuleParams) *Monitor {
	opts := []Option{WithSink(params.Sink), WithMetrics(params.Metrics)}
	if params.Options != nil {
		opts = append(opts, WithOptions(*params.Options))
	}
	var logger log.Logger
	if params.Logger != nil {
		logger = params.Logger.With("module", "txmonitor")
	}
	return New(params.Receipts, logger, opts...)
}
