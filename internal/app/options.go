package app

import (
	"go.uber.org/fx"

	"github.com/weisyn/marketclient/client/core/config"
	"github.com/weisyn/marketclient/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/marketclient/pkg/interfaces/ledger"
)

// Option 应用程序选项函数类型
type Option func(*options)

// options 应用程序选项
type options struct {
	// 连接 profile（必需）
	profile *config.Profile

	// 外部提供的账本；为空时按 profile 的端点拨号
	ledger ledger.Ledger

	// 外部提供的日志记录器；为空时按 profile.Log 创建
	logger log.Logger

	// HTTP 网关开关（默认关闭，serve 命令开启）
	enableAPI bool

	// 附加的 fx 选项
	extra []fx.Option
}

// WithProfile 设置连接 profile
func WithProfile(profile *config.Profile) Option {
	return func(o *options) {
		o.profile = profile
	}
}

// WithLedger 使用已有的账本连接（不再按端点拨号）
func WithLedger(l ledger.Ledger) Option {
	return func(o *options) {
		o.ledger = l
	}
}

// WithLogger 使用已有的日志记录器
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithAPI 启用HTTP网关
func WithAPI() Option {
	return func(o *options) {
		o.enableAPI = true
	}
}

// WithoutAPI 禁用HTTP网关
func WithoutAPI() Option {
	return func(o *options) {
		o.enableAPI = false
	}
}

// WithFxOptions 追加 fx 选项（测试中用于替换或补充依赖）
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) {
		o.extra = append(o.extra, opts...)
	}
}

// newOptions 创建选项
func newOptions(opts ...Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
