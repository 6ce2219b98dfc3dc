package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Module 返回 metrics 模块的 fx.Option
//
// 提供：
// - *prometheus.Registry（同时作为 Registerer / Gatherer）
// - *TxMetrics
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(
			NewRegistry,
			func(reg *prometheus.Registry) prometheus.Registerer { return reg },
			func(reg *prometheus.Registry) prometheus.Gatherer { return reg },
			NewTxMetrics,
		),
	)
}
