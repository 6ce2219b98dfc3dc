// Package metrics 提供市场客户端的 Prometheus 指标
//
// 所有指标注册到注入的 Registerer 上而不是全局默认注册表，
// 同一进程内可以创建多个实例（测试中尤其需要）。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "marketclient"

// NewRegistry 创建带有 Go 运行时与进程指标的注册表
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// TxMetrics 交易监控指标
type TxMetrics struct {
	proposals       *prometheus.CounterVec
	outcomes        *prometheus.CounterVec
	pending         prometheus.Gauge
	confirmDuration prometheus.Histogram
	receiptPolls    prometheus.Counter
}

// NewTxMetrics 创建交易监控指标；reg 为 nil 时指标不注册
func NewTxMetrics(reg prometheus.Registerer) *TxMetrics {
	factory := promauto.With(reg)
	return &TxMetrics{
		proposals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "tx",
				Name:      "proposals_total",
				Help:      "Total number of proposed transactions",
			},
			[]string{"description"},
		),
		outcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "tx",
				Name:      "outcomes_total",
				Help:      "Resolved transactions by final status",
			},
			[]string{"status"},
		),
		pending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tx",
			Name:      "pending",
			Help:      "Transactions currently awaiting confirmation",
		}),
		confirmDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tx",
			Name:      "confirm_duration_seconds",
			Help:      "Time from proposal to confirmed receipt",
			Buckets:   []float64{0.1, 0.5, 1, 3, 6, 15, 30, 60, 120},
		}),
		receiptPolls: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tx",
			Name:      "receipt_polls_total",
			Help:      "Receipt lookups issued while polling",
		}),
	}
}

// Proposed 记录一次提议
func (m *TxMetrics) Proposed(description string) {
	if m == nil {
		return
	}
	m.proposals.WithLabelValues(description).Inc()
	m.pending.Inc()
}

// Resolved 记录提议结束；status 为 confirmed/failed/timed_out/rejected
func (m *TxMetrics) Resolved(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.pending.Dec()
	m.outcomes.WithLabelValues(status).Inc()
	if status == "confirmed" {
		m.confirmDuration.Observe(elapsed.Seconds())
	}
}

// Polled 记录一次回执查询
func (m *TxMetrics) Polled() {
	if m == nil {
		return
	}
	m.receiptPolls.Inc()
}
