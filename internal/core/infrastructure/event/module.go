// Package event 提供事件总线与交易观测接收方
package event

import (
	"go.uber.org/fx"

	"github.com/weisyn/marketclient/internal/core/txmonitor"
	eventInterface "github.com/weisyn/marketclient/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/marketclient/pkg/interfaces/infrastructure/log"
)

// ModuleInput 事件模块输入依赖
type ModuleInput struct {
	fx.In

	Logger log.Logger `optional:"true"` // 日志记录器（可选）
}

// ModuleOutput 事件模块输出服务
type ModuleOutput struct {
	fx.Out

	EventBus eventInterface.EventBus // 基础事件总线
	Sink     txmonitor.Sink          // 交易观测接收方
}

// Module 返回事件模块
func Module() fx.Option {
	return fx.Module("event",
		fx.Provide(func(input ModuleInput) ModuleOutput {
			bus := New(true)
			return ModuleOutput{
				EventBus: bus,
				Sink:     NewBusSink(bus, input.Logger),
			}
		}),
	)
}
