package log

import (
	"go.uber.org/zap/zapcore"
)

// 日志配置默认值
const (
	// defaultLogLevel 默认 info；轮询细节在 debug 级别
	defaultLogLevel = "info"

	// defaultToConsole CLI 默认输出到 stderr 控制台
	defaultToConsole = true

	defaultMaxSize    = 50 // MB
	defaultMaxBackups = 5
	defaultMaxAge     = 14 // days
	defaultCompress   = true

	defaultEnableCaller     = false
	defaultEnableStacktrace = false
)

// 默认的日志级别映射
var defaultLevelMap = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
}
