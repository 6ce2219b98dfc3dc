// Package log 定义市场客户端的日志接口
//
// 所有核心组件只依赖本接口；具体实现位于 internal/core/infrastructure/log（zap）。
package log

import (
	"github.com/weisyn/marketclient/pkg/types"
	"go.uber.org/zap"
)

// LogLevel 兼容别名
type LogLevel = types.LogLevel

// Logger 定义日志记录器接口
type Logger interface {
	Debug(msg string)
	Debugf(format string, args ...interface{})

	Info(msg string)
	Infof(format string, args ...interface{})

	Warn(msg string)
	Warnf(format string, args ...interface{})

	Error(msg string)
	Errorf(format string, args ...interface{})

	// With 返回一个带有额外字段的Logger，参数按 key, value 成对提供
	With(args ...interface{}) Logger

	// Sync 同步日志缓冲区到输出
	Sync() error

	// GetZapLogger 获取原始的zap日志记录器
	GetZapLogger() *zap.Logger
}
